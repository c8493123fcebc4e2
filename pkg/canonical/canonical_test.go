package canonical

import (
	"strings"
	"testing"
)

func TestCanonicalizeSortsKeys(t *testing.T) {
	in := map[string]any{"b": 1, "a": 2, "c": map[string]any{"z": 1, "y": 2}}
	out, err := Canonicalize(in)
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	got := string(out)
	wantOrder := []string{`"a"`, `"b"`, `"c"`, `"y"`, `"z"`}
	lastIdx := -1
	for _, w := range wantOrder {
		idx := strings.Index(got, w)
		if idx == -1 {
			t.Fatalf("expected key %s in output %s", w, got)
		}
		if idx < lastIdx {
			t.Fatalf("key %s out of order in %s", w, got)
		}
		lastIdx = idx
	}
}

func TestCanonicalizeRejectsNonFinite(t *testing.T) {
	if _, err := Canonicalize(map[string]any{"x": nan()}); err == nil {
		t.Fatal("expected error for NaN")
	}
}

func nan() float64 {
	var zero float64
	return zero / zero
}

func TestCanonicalizeStableUnderKeyReordering(t *testing.T) {
	a, err := Canonicalize(map[string]any{"role": "member", "id": "did:ex:s"})
	if err != nil {
		t.Fatal(err)
	}
	b, err := Canonicalize(map[string]any{"id": "did:ex:s", "role": "member"})
	if err != nil {
		t.Fatal(err)
	}
	if string(a) != string(b) {
		t.Fatalf("expected identical canonical bytes, got %s vs %s", a, b)
	}
}

func TestRoundTrip(t *testing.T) {
	in := map[string]any{"b": 1.5, "a": []any{1, 2, 3}}
	c1, err := Canonicalize(in)
	if err != nil {
		t.Fatal(err)
	}
	parsed, err := Parse(c1)
	if err != nil {
		t.Fatal(err)
	}
	c2, err := Canonicalize(parsed)
	if err != nil {
		t.Fatal(err)
	}
	if string(c1) != string(c2) {
		t.Fatalf("round-trip mismatch: %s vs %s", c1, c2)
	}
}
