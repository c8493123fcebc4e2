package did

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/onionoriginals/originals-go/pkg/coreerrors"
)

// InscriptionRecord is the minimal view of a Bitcoin ordinals inscription
// the did:btco resolver needs. It is declared here, rather than imported
// from pkg/ordinals, so pkg/did carries no dependency on the ordinals
// transport layer: any gateway that can enumerate inscriptions on a sat
// satisfies OrdinalsResolver by returning these.
type InscriptionRecord struct {
	InscriptionID string
	Index         uint32
	ContentType   string
	Content       []byte
}

// OrdinalsResolver is the read surface did:btco resolution needs from an
// ordinals gateway: every inscription ever carried by a given satoshi, in
// inscription order.
type OrdinalsResolver interface {
	InscriptionsOnSat(ctx context.Context, sat uint64) ([]InscriptionRecord, error)
}

// WebVHFetcher retrieves the raw did:webvh update log for an identifier.
// Satisfied by pkg/webvh's log store without pkg/did importing pkg/webvh
// (that import would run the other way and create a cycle).
type WebVHFetcher interface {
	FetchLog(ctx context.Context, id Identifier) ([]byte, error)
}

// WebVHLogVerifier verifies a did:webvh update log's hash chain and key
// rotation authorizations, returning the document at the log's head.
// Satisfied by pkg/webvh.FileStore.
type WebVHLogVerifier interface {
	VerifyLog(log []byte, id Identifier) (Document, error)
}

// Metadata is the resolution metadata returned alongside the resolved
// document.
type Metadata struct {
	InscriptionID     string
	Sat               uint64
	ContentType       string
	Network           Network
	Deactivated       bool
	TotalInscriptions int
}

// Result is the outcome of a successful resolution.
type Result struct {
	Document Document
	Metadata Metadata
}

// Resolver resolves did:peer / did:webvh / did:btco identifiers through
// one method per DID method (ResolvePeer, ResolveWebVH, ResolveBtco); the
// caller picks the method that matches the identifier.
type Resolver struct {
	Fetcher  WebVHFetcher
	Verifier WebVHLogVerifier
	Ordinals OrdinalsResolver
}

// ResolvePeer validates a synthesized peer document against its own
// identifier. did:peer never touches the network: the document must
// already have been produced by SynthesizePeerDocument or an equivalent
// construction; resolution here is merely the integrity check performed
// before a peer document is trusted.
func (r *Resolver) ResolvePeer(id Identifier, doc Document) (Result, error) {
	if id.Method != MethodPeer {
		return Result{}, coreerrors.New(coreerrors.CodeInvalidDID, "resolver: not a did:peer identifier")
	}
	if doc.ID != id.String() {
		return Result{}, coreerrors.New(coreerrors.CodeInvalidDocument, "resolver: document id does not match requested did:peer identifier")
	}
	if err := doc.Validate(); err != nil {
		return Result{}, coreerrors.Wrap(coreerrors.CodeInvalidDocument, fmt.Errorf("resolver: peer document failed validation: %w", err))
	}
	return Result{Document: doc}, nil
}

// ResolveWebVH fetches and verifies the update log for a did:webvh
// identifier and returns the document at its head.
func (r *Resolver) ResolveWebVH(ctx context.Context, id Identifier) (Result, error) {
	if id.Method != MethodWebVH {
		return Result{}, coreerrors.New(coreerrors.CodeInvalidDID, "resolver: not a did:webvh identifier")
	}
	if r.Fetcher == nil || r.Verifier == nil {
		return Result{}, coreerrors.New(coreerrors.CodeUnreachable, "resolver: no webvh fetcher/verifier configured")
	}
	raw, err := r.Fetcher.FetchLog(ctx, id)
	if err != nil {
		return Result{}, coreerrors.Wrap(coreerrors.CodeUnreachable, fmt.Errorf("resolver: fetch webvh log: %w", err)).AsRecoverable()
	}
	if raw == nil {
		return Result{}, coreerrors.New(coreerrors.CodeNotFound, "resolver: no update log found for did:webvh identifier")
	}
	doc, err := r.Verifier.VerifyLog(raw, id)
	if err != nil {
		return Result{}, coreerrors.Wrap(coreerrors.CodeInvalidDocument, fmt.Errorf("resolver: webvh log failed verification: %w", err))
	}
	if doc.Deactivated {
		return Result{Document: doc}, coreerrors.New(coreerrors.CodeDeactivated, "resolver: did:webvh identity has been deactivated")
	}
	return Result{Document: doc}, nil
}

// deactivationMarker is the sentinel content an inscription carries to
// deactivate a did:btco identity.
type deactivationMarker struct {
	Deactivated bool `json:"deactivated"`
}

// ResolveBtco queries every inscription ever carried by id.Sat and resolves
// the document at id.Index (defaulting to 0 for the shorthand form),
// detecting deactivation via the {"deactivated": true} marker content.
func (r *Resolver) ResolveBtco(ctx context.Context, id Identifier) (Result, error) {
	if id.Method != MethodBtco {
		return Result{}, coreerrors.New(coreerrors.CodeInvalidDID, "resolver: not a did:btco identifier")
	}
	if r.Ordinals == nil {
		return Result{}, coreerrors.New(coreerrors.CodeUnreachable, "resolver: no ordinals gateway configured")
	}
	records, err := r.Ordinals.InscriptionsOnSat(ctx, id.Sat)
	if err != nil {
		return Result{}, coreerrors.Wrap(coreerrors.CodeUnreachable, fmt.Errorf("resolver: query inscriptions on sat: %w", err)).AsRecoverable()
	}
	if len(records) == 0 {
		return Result{}, coreerrors.New(coreerrors.CodeNotFound, "resolver: satoshi carries no inscriptions")
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Index < records[j].Index })

	index := id.Index
	if !id.HasIndex {
		index = 0
	}
	var target *InscriptionRecord
	for i := range records {
		if records[i].Index == index {
			target = &records[i]
			break
		}
	}
	if target == nil {
		return Result{}, coreerrors.New(coreerrors.CodeNotFound, "resolver: no inscription at requested index")
	}

	var marker deactivationMarker
	deactivated := json.Unmarshal(target.Content, &marker) == nil && marker.Deactivated

	var doc Document
	if !deactivated {
		if err := json.Unmarshal(target.Content, &doc); err != nil {
			return Result{}, coreerrors.Wrap(coreerrors.CodeInvalidDocument, fmt.Errorf("resolver: inscription content is not a valid did document: %w", err))
		}
		if err := doc.Validate(); err != nil {
			return Result{}, coreerrors.Wrap(coreerrors.CodeInvalidDocument, fmt.Errorf("resolver: btco document failed validation: %w", err))
		}
		doc.Deactivated = false
	} else {
		doc.ID = id.String()
		doc.Deactivated = true
	}

	meta := Metadata{
		InscriptionID:     target.InscriptionID,
		Sat:               id.Sat,
		ContentType:       target.ContentType,
		Network:           id.Network,
		Deactivated:       deactivated,
		TotalInscriptions: len(records),
	}

	if deactivated {
		return Result{Document: doc, Metadata: meta}, coreerrors.New(coreerrors.CodeDeactivated, "resolver: did:btco identity has been deactivated")
	}
	return Result{Document: doc, Metadata: meta}, nil
}
