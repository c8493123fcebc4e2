// Package canonical implements JSON Canonicalization (JCS, RFC 8785) for
// credentials, proof options, and update-log entries — the single
// canonicalization path every cross-implementation digest in this module
// goes through.
package canonical

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/gowebpki/jcs"
)

// Canonicalize lexicographically sorts object keys at every depth, emits
// numbers in shortest round-trippable form, and returns UTF-8 bytes without a
// BOM. It fails only for non-finite numbers or cyclic inputs (the latter
// surfaces as a json.Marshal error).
func Canonicalize(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonical: marshal: %w", err)
	}
	if err := rejectNonFinite(v); err != nil {
		return nil, err
	}
	return CanonicalizeJSON(raw)
}

// CanonicalizeJSON re-serializes an already-encoded JSON document into its
// canonical byte form.
func CanonicalizeJSON(raw []byte) ([]byte, error) {
	out, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canonical: jcs transform: %w", err)
	}
	return out, nil
}

// Parse decodes canonical (or any valid) JSON bytes into a generic value
// suitable for re-canonicalization. Used by the round-trip law
// canonicalize(parse(canonicalize(x))) == canonicalize(x).
func Parse(data []byte) (any, error) {
	var v any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("canonical: parse: %w", err)
	}
	return v, nil
}

func rejectNonFinite(v any) error {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return fmt.Errorf("canonical: non-finite number")
		}
	case map[string]any:
		for _, vv := range t {
			if err := rejectNonFinite(vv); err != nil {
				return err
			}
		}
	case []any:
		for _, vv := range t {
			if err := rejectNonFinite(vv); err != nil {
				return err
			}
		}
	}
	return nil
}
