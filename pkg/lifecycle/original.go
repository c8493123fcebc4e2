// Package lifecycle implements the engine coordinating an original's
// transitions between the peer, webvh, and btco layers, and the
// cross-layer invariants that bind them.
package lifecycle

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	"github.com/onionoriginals/originals-go/pkg/canonical"
	"github.com/onionoriginals/originals-go/pkg/coreerrors"
	"github.com/onionoriginals/originals-go/pkg/credential"
	"github.com/onionoriginals/originals-go/pkg/did"
	"github.com/onionoriginals/originals-go/pkg/ordinals"
	"github.com/onionoriginals/originals-go/pkg/webvh"
)

// Resource is a piece of content an Original carries. Identity across
// layers is by ContentHash. ID is a local bookkeeping handle, a UUID
// distinct from ContentHash, used only as a stable map key before any
// promotion assigns a DID; it never participates in identity or equality.
type Resource struct {
	ID          string
	ContentHash string
	MediaType   string
	Size        int64
	InlineBytes []byte
	URL         string
}

// NewResource builds a Resource from inline content, computing its
// SHA-256 content hash via ordinals.ContentHash.
func NewResource(mediaType string, content []byte) Resource {
	return Resource{
		ID:          uuid.NewString(),
		ContentHash: ordinals.ContentHash(content),
		MediaType:   mediaType,
		Size:        int64(len(content)),
		InlineBytes: content,
	}
}

// ProvenanceEntry is one link in an Original's provenance log: a signed
// credential plus the hash of the entry that preceded it. PrevHash is
// empty for the genesis entry.
type ProvenanceEntry struct {
	Credential credential.Credential
	PrevHash   string
}

// pendingCommit is the state retained across an Inscribe call that
// broadcasts its commit but fails (or is still unconfirmed) before the
// reveal completes, so ResumeInscription can continue from it instead of
// paying for a second commit.
type pendingCommit struct {
	CommitTxid          string
	CommitVout          uint32
	Prepared            ordinals.PreparedInscription
	Sat                 uint64
	Index               uint32
	Network             did.Network
	FeeRate             int64
	DestinationAddress  string
	DocContent          []byte
	ContentType         string
	KnownInscriptionIDs []string
	VerificationMethod  string
}

// Original is a content-addressed digital asset and its provenance. The
// Engine exclusively owns it: every exported field is safe for callers to
// read, but only Engine methods in this package mutate it. Unexported
// fields hold bookkeeping the engine needs across calls to drive further
// transitions. Secret key material is passed explicitly per call and never
// stored here.
type Original struct {
	ID            did.Identifier
	Resources     []Resource
	ProvenanceLog []ProvenanceEntry

	webvhLog      *webvh.Log
	webvhDomain   string
	webvhSegments []string

	sat                 uint64
	hasSat              bool
	nextIndex           uint32
	pending             *pendingCommit
	deactivated         bool
	pendingDeactivation bool
}

// New creates a fresh, peer-layer Original from a set of resources; its
// identifier is derived from the resource content hashes alone. No
// credential is issued at genesis: the provenance log only records
// transitions, and genesis has no prior state to link from.
func New(resources []Resource) (*Original, error) {
	if len(resources) == 0 {
		return nil, coreerrors.New(coreerrors.CodeInvalidDocument, "original: at least one resource is required")
	}
	hashes := make([]string, len(resources))
	for i, r := range resources {
		if r.ContentHash == "" {
			return nil, coreerrors.New(coreerrors.CodeInvalidDocument, "original: resource missing content hash")
		}
		hashes[i] = r.ContentHash
	}
	methodID, err := did.DerivePeerID(hashes)
	if err != nil {
		return nil, coreerrors.Wrap(coreerrors.CodeInvalidDocument, err)
	}
	return &Original{
		ID:        did.NewPeer(methodID),
		Resources: append([]Resource(nil), resources...),
	}, nil
}

// History returns a defensive copy of the provenance log.
func (o *Original) History() []ProvenanceEntry {
	out := make([]ProvenanceEntry, len(o.ProvenanceLog))
	copy(out, o.ProvenanceLog)
	return out
}

// WebVHEntries returns the update log entries for a webvh-layer original,
// or nil before PromoteToWebVH has run. The engine itself never writes
// these to disk; a caller that wants the on-disk form (internal/api's demo
// daemon, for instance) reads them here and passes them to
// pkg/webvh.WriteFile.
func (o *Original) WebVHEntries() []webvh.Entry {
	if o.webvhLog == nil {
		return nil
	}
	return o.webvhLog.Entries()
}

// WebVHPathSegments returns the path segments a webvh-layer original's
// update log is addressed by, or nil before promotion.
func (o *Original) WebVHPathSegments() []string {
	return o.webvhSegments
}

// WebVHDocument returns the DID document at the head of a webvh-layer
// original's update log, or false before promotion.
func (o *Original) WebVHDocument() (did.Document, bool) {
	if o.webvhLog == nil {
		return did.Document{}, false
	}
	return o.webvhLog.Latest(), true
}

// Sat returns the satoshi a btco-layer original is bound to, or false if it
// has not yet been inscribed.
func (o *Original) Sat() (uint64, bool) {
	return o.sat, o.hasSat
}

// ContentHashes returns the original's resource content-hash set, used to
// verify that promotion preserves it.
func (o *Original) ContentHashes() []string {
	out := make([]string, len(o.Resources))
	for i, r := range o.Resources {
		out[i] = r.ContentHash
	}
	return out
}

// appendProvenance appends exactly one credential to the provenance log,
// enforcing monotone issuance time and computing the hash link to the
// previous entry.
func (o *Original) appendProvenance(c credential.Credential) error {
	var prevHash string
	if n := len(o.ProvenanceLog); n > 0 {
		prev := o.ProvenanceLog[n-1].Credential
		if c.IssuanceTime < prev.IssuanceTime {
			return fmt.Errorf("lifecycle: provenance log must be monotone by issuance_time (got %q after %q)", c.IssuanceTime, prev.IssuanceTime)
		}
		prevCanon, err := canonical.Canonicalize(prev)
		if err != nil {
			return fmt.Errorf("lifecycle: canonicalize previous provenance entry: %w", err)
		}
		prevHash = hashHex(prevCanon)
	}
	o.ProvenanceLog = append(o.ProvenanceLog, ProvenanceEntry{Credential: c, PrevHash: prevHash})
	return nil
}

func hashHex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
