package did

import (
	"fmt"

	"github.com/onionoriginals/originals-go/pkg/canonical"
)

// DefaultContexts is the context list every DID document in this SDK
// carries.
var DefaultContexts = []string{
	"https://www.w3.org/ns/did/v1",
	"https://w3id.org/security/multikey/v1",
}

// VerificationMethod is a Multikey-typed verification method.
type VerificationMethod struct {
	ID                 string `json:"id"`
	Controller         string `json:"controller"`
	Type               string `json:"type"`
	PublicKeyMultibase string `json:"publicKeyMultibase"`
	SecretKeyMultibase string `json:"secretKeyMultibase,omitempty"`
}

// Document is a DID document. Every id in a relationship set either
// appears in VerificationMethod or is fully inlined.
type Document struct {
	Contexts           []string             `json:"@context"`
	ID                 string               `json:"id"`
	VerificationMethod []VerificationMethod `json:"verificationMethod"`
	Authentication     []string             `json:"authentication,omitempty"`
	AssertionMethod    []string             `json:"assertionMethod,omitempty"`
	Service            []Service            `json:"service,omitempty"`
	Deactivated        bool                 `json:"deactivated,omitempty"`
}

// Service is a DID document service endpoint entry.
type Service struct {
	ID              string `json:"id"`
	Type            string `json:"type"`
	ServiceEndpoint string `json:"serviceEndpoint"`
}

// Validate enforces the DidDocument invariant: every relationship set holds
// ids that either appear in verification_method or are fully inlined (we
// require ids here — inlined verification methods are represented as
// separate VerificationMethod entries referenced by id, which keeps one
// representation instead of two).
func (d Document) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("did document: missing id")
	}
	known := make(map[string]bool, len(d.VerificationMethod))
	for _, vm := range d.VerificationMethod {
		if vm.Type != "Multikey" {
			return fmt.Errorf("did document: verification method %s has unsupported type %q", vm.ID, vm.Type)
		}
		if vm.PublicKeyMultibase == "" {
			return fmt.Errorf("did document: verification method %s missing publicKeyMultibase", vm.ID)
		}
		known[vm.ID] = true
	}
	for _, id := range d.Authentication {
		if !known[id] {
			return fmt.Errorf("did document: authentication references unknown verification method %q", id)
		}
	}
	for _, id := range d.AssertionMethod {
		if !known[id] {
			return fmt.Errorf("did document: assertionMethod references unknown verification method %q", id)
		}
	}
	return nil
}

// FindVerificationMethod looks up a verification method by its full id
// (including #fragment).
func (d Document) FindVerificationMethod(id string) (VerificationMethod, bool) {
	for _, vm := range d.VerificationMethod {
		if vm.ID == id {
			return vm, true
		}
	}
	return VerificationMethod{}, false
}

// CanAssert reports whether verificationMethodID is authorized for the
// assertionMethod proof purpose in d.
func (d Document) CanAssert(verificationMethodID string) bool {
	for _, id := range d.AssertionMethod {
		if id == verificationMethodID {
			return true
		}
	}
	return false
}

// Canonical returns the JCS canonical bytes of the document.
func (d Document) Canonical() ([]byte, error) {
	return canonical.Canonicalize(d)
}
