package did

import (
	"context"
	"encoding/json"
	"testing"
)

func TestIdentifierRoundTrip(t *testing.T) {
	cases := []string{
		"did:peer:9zQmABC",
		"did:webvh:example.com:myscid",
		"did:webvh:example.com:path:to:thing:myscid",
		"did:btco:12345",
		"did:btco:12345/0",
		"did:btco:test:12345/1",
		"did:btco:sig:12345",
	}
	for _, s := range cases {
		id, err := Parse(s)
		if err != nil {
			t.Fatalf("parse %q: %v", s, err)
		}
		if got := id.String(); got != s {
			t.Fatalf("round trip %q: got %q", s, got)
		}
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, s := range []string{"not-a-did", "did:", "did:btco:notanumber", "did:unknownmethod:x"} {
		if _, err := Parse(s); err == nil {
			t.Fatalf("expected parse error for %q", s)
		}
	}
}

func TestDerivePeerIDDeterministic(t *testing.T) {
	hashes := []string{"sha256-bbb", "sha256-aaa", "sha256-ccc"}
	id1, err := DerivePeerID(hashes)
	if err != nil {
		t.Fatal(err)
	}
	reordered := []string{"sha256-ccc", "sha256-bbb", "sha256-aaa"}
	id2, err := DerivePeerID(reordered)
	if err != nil {
		t.Fatal(err)
	}
	if id1 != id2 {
		t.Fatal("expected peer id to be independent of input ordering")
	}

	other, err := DerivePeerID([]string{"sha256-bbb", "sha256-aaa"})
	if err != nil {
		t.Fatal(err)
	}
	if other == id1 {
		t.Fatal("expected different content hash sets to derive different ids")
	}
}

func TestSynthesizePeerDocument(t *testing.T) {
	methodID, err := DerivePeerID([]string{"sha256-abc"})
	if err != nil {
		t.Fatal(err)
	}
	id := NewPeer(methodID)
	vm := VerificationMethod{ID: id.String() + "#key-1", Type: "Multikey", PublicKeyMultibase: "zABCDEF"}
	doc, err := SynthesizePeerDocument(id, []VerificationMethod{vm})
	if err != nil {
		t.Fatal(err)
	}
	if doc.ID != id.String() {
		t.Fatalf("expected document id %q, got %q", id.String(), doc.ID)
	}
	if !doc.CanAssert(vm.ID) {
		t.Fatal("expected synthesized peer document to authorize its sole key for assertionMethod")
	}
}

func TestResolvePeerRejectsMismatchedID(t *testing.T) {
	r := &Resolver{}
	id := NewPeer("9somevalue")
	doc := Document{ID: "did:peer:9different", VerificationMethod: []VerificationMethod{
		{ID: "did:peer:9different#k1", Type: "Multikey", PublicKeyMultibase: "zABC"},
	}}
	if _, err := r.ResolvePeer(id, doc); err == nil {
		t.Fatal("expected mismatch error")
	}
}

type fakeFetcher struct{ log []byte }

func (f fakeFetcher) FetchLog(ctx context.Context, id Identifier) ([]byte, error) { return f.log, nil }

type fakeVerifier struct {
	doc Document
	err error
}

func (v fakeVerifier) VerifyLog(log []byte, id Identifier) (Document, error) { return v.doc, v.err }

func TestResolveWebVHDeactivated(t *testing.T) {
	id, _ := Parse("did:webvh:example.com:scid123")
	r := &Resolver{
		Fetcher:  fakeFetcher{log: []byte("{}")},
		Verifier: fakeVerifier{doc: Document{ID: id.String(), Deactivated: true}},
	}
	_, err := r.ResolveWebVH(context.Background(), id)
	if err == nil {
		t.Fatal("expected deactivated error")
	}
}

type fakeOrdinals struct {
	records []InscriptionRecord
}

func (f fakeOrdinals) InscriptionsOnSat(ctx context.Context, sat uint64) ([]InscriptionRecord, error) {
	return f.records, nil
}

func TestResolveBtcoLatestInscription(t *testing.T) {
	docBytes, _ := json.Marshal(Document{
		ID: "did:btco:555/0",
		VerificationMethod: []VerificationMethod{
			{ID: "did:btco:555/0#k1", Type: "Multikey", PublicKeyMultibase: "zABC"},
		},
	})
	r := &Resolver{Ordinals: fakeOrdinals{records: []InscriptionRecord{
		{InscriptionID: "insc0", Index: 0, ContentType: "application/did+json", Content: docBytes},
	}}}
	id, _ := Parse("did:btco:555")
	res, err := r.ResolveBtco(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if res.Metadata.InscriptionID != "insc0" {
		t.Fatalf("expected insc0, got %s", res.Metadata.InscriptionID)
	}
	if res.Metadata.TotalInscriptions != 1 {
		t.Fatalf("expected 1 total inscription, got %d", res.Metadata.TotalInscriptions)
	}
}

func TestResolveBtcoDeactivationMarker(t *testing.T) {
	marker, _ := json.Marshal(map[string]bool{"deactivated": true})
	r := &Resolver{Ordinals: fakeOrdinals{records: []InscriptionRecord{
		{InscriptionID: "insc1", Index: 0, ContentType: "application/json", Content: marker},
	}}}
	id, _ := Parse("did:btco:777")
	res, err := r.ResolveBtco(context.Background(), id)
	if err == nil {
		t.Fatal("expected deactivated error")
	}
	if !res.Metadata.Deactivated {
		t.Fatal("expected metadata to report deactivated")
	}
}

func TestResolveBtcoNotFound(t *testing.T) {
	r := &Resolver{Ordinals: fakeOrdinals{records: nil}}
	id, _ := Parse("did:btco:999")
	if _, err := r.ResolveBtco(context.Background(), id); err == nil {
		t.Fatal("expected not found error")
	}
}
