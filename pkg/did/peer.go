package did

import (
	"crypto/sha256"
	"fmt"
	"sort"

	mbase "github.com/multiformats/go-multibase"
	"github.com/onionoriginals/originals-go/pkg/canonical"
)

// peerNumalgoContentHash is the numalgo digit this SDK uses for content-hash
// derived peer identifiers. did:peer reserves numalgos 0, 2, 3, 4 for
// key-derived genesis documents; none of them fit a DID whose genesis is a
// set of resource content hashes rather than a key, so this SDK uses the
// unassigned digit 9 as a local discriminator.
const peerNumalgoContentHash = "9"

// DerivePeerID computes the deterministic, content-hash-derived
// method-specific id for a did:peer identifier.
func DerivePeerID(contentHashes []string) (string, error) {
	if len(contentHashes) == 0 {
		return "", fmt.Errorf("did: peer identity requires at least one content hash")
	}
	sorted := append([]string(nil), contentHashes...)
	sort.Strings(sorted)

	canon, err := canonical.Canonicalize(sorted)
	if err != nil {
		return "", fmt.Errorf("did: canonicalize content hash set: %w", err)
	}
	sum := sha256.Sum256(canon)
	enc, err := mbase.Encode(mbase.Base58BTC, sum[:])
	if err != nil {
		return "", fmt.Errorf("did: encode peer id: %w", err)
	}
	return peerNumalgoContentHash + enc, nil
}

// SynthesizePeerDocument builds the DID document for a did:peer identity
// from key material alone, with no network I/O. Every verification
// method is authorized for both authentication and assertionMethod, since a
// peer identity has no rotation history to separate the two.
func SynthesizePeerDocument(id Identifier, vms []VerificationMethod) (Document, error) {
	if id.Method != MethodPeer {
		return Document{}, fmt.Errorf("did: SynthesizePeerDocument requires a peer identifier")
	}
	if len(vms) == 0 {
		return Document{}, fmt.Errorf("did: peer document requires at least one verification method")
	}
	didStr := id.String()
	ids := make([]string, 0, len(vms))
	for i := range vms {
		vms[i].Controller = didStr
		ids = append(ids, vms[i].ID)
	}
	doc := Document{
		Contexts:           append([]string(nil), DefaultContexts...),
		ID:                 didStr,
		VerificationMethod: vms,
		Authentication:     ids,
		AssertionMethod:    ids,
	}
	if err := doc.Validate(); err != nil {
		return Document{}, err
	}
	return doc, nil
}
