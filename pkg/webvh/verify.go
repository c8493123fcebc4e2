package webvh

import (
	"fmt"
	"strings"

	mbase "github.com/multiformats/go-multibase"
	"github.com/onionoriginals/originals-go/pkg/canonical"
	"github.com/onionoriginals/originals-go/pkg/did"
	"github.com/onionoriginals/originals-go/pkg/multikey"
	"github.com/onionoriginals/originals-go/pkg/signer"
)

// VerifyResult is the outcome of verifying an update log: an OK flag plus
// every error encountered, so a caller can report more than the first
// failure.
type VerifyResult struct {
	OK     bool
	Errors []string
}

func (r *VerifyResult) fail(format string, args ...any) {
	r.OK = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Verify recomputes the SCID and every version_id/proof in entries and
// reports whether the chain is internally consistent and fully authorized.
// It never panics on malformed input; every failure is recorded in the
// result instead.
func Verify(entries []Entry, id did.Identifier) (did.Document, VerifyResult) {
	result := VerifyResult{OK: true}
	if len(entries) == 0 {
		result.fail("update log has no entries")
		return did.Document{}, result
	}

	e0 := entries[0]
	probe := entryWithoutProof{VersionTime: e0.VersionTime, Parameters: e0.Parameters, State: e0.State}
	placeholderParams := probe.Parameters
	placeholderParams.SCID = scidPlaceholder
	probe.Parameters = placeholderParams
	probe.State = substituteSCID(probe.State, e0.Parameters.SCID, scidPlaceholder)

	canon, err := canonical.Canonicalize(probe)
	if err != nil {
		result.fail("canonicalize genesis entry: %v", err)
		return did.Document{}, result
	}
	recomputedSCID := hashHex(canon)
	if recomputedSCID != e0.Parameters.SCID {
		result.fail("recomputed SCID %q does not match entry 0 parameters.scid %q", recomputedSCID, e0.Parameters.SCID)
	}
	if id.Method == did.MethodWebVH && recomputedSCID != id.SCID {
		result.fail("recomputed SCID %q does not match DID suffix %q", recomputedSCID, id.SCID)
	}
	if e0.VersionID != "0-"+recomputedSCID {
		result.fail("entry 0 version_id %q does not match expected 0-%s", e0.VersionID, recomputedSCID)
	}
	if !verifyProof(e0, e0.State, &result) {
		result.fail("entry 0 proof failed verification")
	}

	prev := e0
	for n := 1; n < len(entries); n++ {
		e := entries[n]
		prevCanon, err := canonical.Canonicalize(prev)
		if err != nil {
			result.fail("entry %d: canonicalize previous entry: %v", n, err)
			break
		}
		eProbe := entryWithoutProof{VersionTime: e.VersionTime, Parameters: e.Parameters, State: e.State}
		eCanon, err := canonical.Canonicalize(eProbe)
		if err != nil {
			result.fail("entry %d: canonicalize entry: %v", n, err)
			break
		}
		combined := append(append([]byte{}, prevCanon...), eCanon...)
		expected := fmt.Sprintf("%d-%s", n, hashHex(combined))
		if e.VersionID != expected {
			result.fail("entry %d: version_id %q does not match expected %q", n, e.VersionID, expected)
		}
		if e.VersionTime < prev.VersionTime {
			result.fail("entry %d: version_time %q precedes entry %d's %q", n, e.VersionTime, n-1, prev.VersionTime)
		}

		authorizedSigner := false
		for _, p := range e.Proof {
			if authorized(prev, p.VerificationMethod) {
				authorizedSigner = true
			}
		}
		if !authorizedSigner {
			result.fail("entry %d: no proof signed by a key authorized by the previous state", n)
		}
		if !verifyProof(e, prev.State, &result) {
			result.fail("entry %d: proof failed verification", n)
		}
		prev = e
	}

	return prev.State, result
}

// verifyProof checks every proof on entry against verification methods
// resolved from authority (the document whose assertionMethod is expected
// to authorize the entry's signer).
func verifyProof(entry Entry, authority did.Document, result *VerifyResult) bool {
	if len(entry.Proof) == 0 {
		result.fail("entry %s carries no proof", entry.VersionID)
		return false
	}
	canon, err := canonical.Canonicalize(entry.withoutProof())
	if err != nil {
		result.fail("entry %s: canonicalize for proof verification: %v", entry.VersionID, err)
		return false
	}
	ok := true
	for _, p := range entry.Proof {
		vm, found := authority.FindVerificationMethod(p.VerificationMethod)
		if !found {
			result.fail("entry %s: unknown verification method %q", entry.VersionID, p.VerificationMethod)
			ok = false
			continue
		}
		suite, err := signer.SuiteForCryptosuite(p.Cryptosuite)
		if err != nil {
			result.fail("entry %s: %v", entry.VersionID, err)
			ok = false
			continue
		}
		pubDec, err := decodeMultikeyPublic(vm.PublicKeyMultibase, suite)
		if err != nil {
			result.fail("entry %s: decode verification method key: %v", entry.VersionID, err)
			ok = false
			continue
		}
		_, sigRaw, err := mbase.Decode(p.ProofValue)
		if err != nil {
			result.fail("entry %s: decode proof value: %v", entry.VersionID, err)
			ok = false
			continue
		}
		if !signer.Verify(suite, pubDec, canon, sigRaw) {
			result.fail("entry %s: signature verification failed for %q", entry.VersionID, p.VerificationMethod)
			ok = false
		}
	}
	return ok
}

// substituteSCID returns a copy of doc with every occurrence of `from`
// replaced by `to` in its id and verification method ids/controllers, used
// to recover the placeholder form of the genesis document for SCID
// recomputation. The input document (and the entry slice data it shares)
// is left untouched.
func substituteSCID(doc did.Document, from, to string) did.Document {
	doc.ID = strings.ReplaceAll(doc.ID, from, to)

	vms := make([]did.VerificationMethod, len(doc.VerificationMethod))
	for i, vm := range doc.VerificationMethod {
		vm.ID = strings.ReplaceAll(vm.ID, from, to)
		vm.Controller = strings.ReplaceAll(vm.Controller, from, to)
		vms[i] = vm
	}
	doc.VerificationMethod = vms

	doc.Authentication = replaceAllStrings(doc.Authentication, from, to)
	doc.AssertionMethod = replaceAllStrings(doc.AssertionMethod, from, to)
	return doc
}

func replaceAllStrings(in []string, from, to string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ReplaceAll(s, from, to)
	}
	return out
}

func decodeMultikeyPublic(encoded string, expectedSuite signer.Suite) ([]byte, error) {
	dec, err := multikey.DecodePublicKey(encoded)
	if err != nil {
		return nil, err
	}
	if dec.Suite != expectedSuite {
		return nil, fmt.Errorf("verification method suite %q does not match proof cryptosuite suite %q", dec.Suite, expectedSuite)
	}
	return dec.Bytes, nil
}
