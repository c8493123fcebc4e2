// Package credential implements issuance and verification of W3C
// Verifiable Credentials carrying a Data Integrity proof, plus
// VerifiablePresentation assembly.
package credential

import "github.com/onionoriginals/originals-go/pkg/canonical"

// DefaultContexts is the context list every credential in this SDK carries.
var DefaultContexts = []string{
	"https://www.w3.org/2018/credentials/v1",
	"https://w3id.org/security/multikey/v1",
}

// Subject carries at least {resource_id, resource_type, created_time,
// creator}, plus whatever else a particular credential type adds.
type Subject map[string]any

// Proof is a Data Integrity proof.
type Proof struct {
	Type                string `json:"type"`
	Cryptosuite         string `json:"cryptosuite"`
	Created             string `json:"created"`
	VerificationMethod  string `json:"verificationMethod"`
	ProofPurpose        string `json:"proofPurpose"`
	ProofValueMultibase string `json:"proofValue"`
}

// Credential is a W3C Verifiable Credential. Once signed it is immutable;
// verification never mutates it.
type Credential struct {
	Contexts       []string `json:"@context"`
	ID             string   `json:"id,omitempty"`
	Types          []string `json:"type"`
	Issuer         string   `json:"issuer"`
	IssuanceTime   string   `json:"issuanceDate"`
	ExpirationTime string   `json:"expirationDate,omitempty"`
	Subject        Subject  `json:"credentialSubject"`
	Proof          *Proof   `json:"proof,omitempty"`
}

// withoutProof is the shape canonicalized for both the pre-sign digest and
// the verification digest: the proof field itself is always excluded.
type withoutProof struct {
	Contexts       []string `json:"@context"`
	ID             string   `json:"id,omitempty"`
	Types          []string `json:"type"`
	Issuer         string   `json:"issuer"`
	IssuanceTime   string   `json:"issuanceDate"`
	ExpirationTime string   `json:"expirationDate,omitempty"`
	Subject        Subject  `json:"credentialSubject"`
}

func (c Credential) withoutProofBytes() ([]byte, error) {
	return canonical.Canonicalize(withoutProof{
		Contexts:       c.Contexts,
		ID:             c.ID,
		Types:          c.Types,
		Issuer:         c.Issuer,
		IssuanceTime:   c.IssuanceTime,
		ExpirationTime: c.ExpirationTime,
		Subject:        c.Subject,
	})
}

// proofOptions is the proof-options block canonicalized and hashed
// alongside the document to form the signing digest.
type proofOptions struct {
	Type               string `json:"type"`
	Cryptosuite        string `json:"cryptosuite"`
	Created            string `json:"created"`
	VerificationMethod string `json:"verificationMethod"`
	ProofPurpose       string `json:"proofPurpose"`
}

// Presentation is a VerifiablePresentation.
type Presentation struct {
	Contexts             []string     `json:"@context"`
	Types                []string     `json:"type"`
	Holder               string       `json:"holder,omitempty"`
	VerifiableCredential []Credential `json:"verifiableCredential"`
	Proof                *Proof       `json:"proof,omitempty"`
}

// Credential type names for the three lifecycle transitions.
const (
	TypeResourceCreated  = "ResourceCreated"
	TypeResourceUpdated  = "ResourceUpdated"
	TypeResourceMigrated = "ResourceMigrated"
)
