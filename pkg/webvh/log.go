// Package webvh builds, signs, and verifies the did:webvh update log: an
// append-only, hash-linked chain of signed entries with a self-certifying
// identifier (SCID).
package webvh

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	mbase "github.com/multiformats/go-multibase"
	"github.com/onionoriginals/originals-go/pkg/canonical"
	"github.com/onionoriginals/originals-go/pkg/did"
	"github.com/onionoriginals/originals-go/pkg/multikey"
	"github.com/onionoriginals/originals-go/pkg/signer"
)

// scidPlaceholder stands in for the self-certifying identifier while the
// genesis entry's own hash (which the SCID is derived from) is computed.
const scidPlaceholder = "{SCID}"

// Parameters carries the update-log-wide knobs: the SCID itself, the
// portability flag, and an explicit key-rotation allowlist
// that authorizes entries signed by keys not present in the prior state's
// assertionMethod.
type Parameters struct {
	SCID       string   `json:"scid"`
	Portable   bool     `json:"portable,omitempty"`
	UpdateKeys []string `json:"updateKeys,omitempty"`
}

// Proof is a Data Integrity proof over a single log entry's canonical bytes.
type Proof struct {
	Type               string `json:"type"`
	Cryptosuite        string `json:"cryptosuite"`
	Created            string `json:"created"`
	VerificationMethod string `json:"verificationMethod"`
	ProofPurpose       string `json:"proofPurpose"`
	ProofValue         string `json:"proofValue"`
}

// Entry is one update log entry.
type Entry struct {
	VersionID   string       `json:"versionId"`
	VersionTime string       `json:"versionTime"`
	Parameters  Parameters   `json:"parameters"`
	State       did.Document `json:"state"`
	Proof       []Proof      `json:"proof,omitempty"`
}

// entryWithoutProof is what gets canonicalized and hashed/signed: the proof
// field itself is excluded both from the version_id digest and from the
// bytes a proof signs, matching every other Data Integrity proof in this
// SDK (see pkg/credential).
type entryWithoutProof struct {
	VersionID   string       `json:"versionId"`
	VersionTime string       `json:"versionTime"`
	Parameters  Parameters   `json:"parameters"`
	State       did.Document `json:"state"`
}

func (e Entry) withoutProof() entryWithoutProof {
	return entryWithoutProof{VersionID: e.VersionID, VersionTime: e.VersionTime, Parameters: e.Parameters, State: e.State}
}

// Signer is the key material an Append/genesis call signs with.
type Signer struct {
	Suite                multikey.Suite
	VerificationMethodID string
	SecretKey            []byte
}

// Log is the in-memory, owning representation of an update log. Entries,
// once appended, are never mutated.
type Log struct {
	entries []Entry
}

// Entries returns a defensive copy of the log's entry vector.
func (l *Log) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Latest returns the state (DID document) at the head of the log.
func (l *Log) Latest() did.Document {
	if len(l.entries) == 0 {
		return did.Document{}
	}
	return l.entries[len(l.entries)-1].State
}

// CreateGenesis builds the first entry of a new update log. buildState is
// called twice: once with the placeholder identifier to compute the SCID,
// and once with the real identifier once the SCID is known, substituting
// the placeholder back into the entry.
func CreateGenesis(domain string, pathSegments []string, params Parameters, buildState func(id did.Identifier) did.Document, s Signer) (*Log, did.Identifier, error) {
	placeholderID := did.NewWebVH(domain, pathSegments, scidPlaceholder)
	placeholderParams := params
	placeholderParams.SCID = scidPlaceholder
	placeholderState := buildState(placeholderID)

	genesisTime := nowRFC3339()
	probe := entryWithoutProof{VersionTime: genesisTime, Parameters: placeholderParams, State: placeholderState}
	canon, err := canonical.Canonicalize(probe)
	if err != nil {
		return nil, did.Identifier{}, fmt.Errorf("webvh: canonicalize genesis probe: %w", err)
	}
	scid := hashHex(canon)

	realID := did.NewWebVH(domain, pathSegments, scid)
	realParams := params
	realParams.SCID = scid
	realState := buildState(realID)

	// s is a value parameter: a buildState closure that mutates a
	// caller-local Signer variable never reaches this copy, since Go copies
	// call arguments before the call executes. Derive the signer's
	// verification method from the genesis state itself instead of trusting
	// the caller to have threaded it through.
	if s.VerificationMethodID == "" {
		if len(realState.AssertionMethod) == 0 {
			return nil, did.Identifier{}, fmt.Errorf("webvh: genesis state has no assertionMethod to sign with")
		}
		s.VerificationMethodID = realState.AssertionMethod[0]
	}

	entry := Entry{
		VersionID:   "0-" + scid,
		VersionTime: genesisTime,
		Parameters:  realParams,
		State:       realState,
	}
	proof, err := sign(entry, s)
	if err != nil {
		return nil, did.Identifier{}, err
	}
	entry.Proof = []Proof{proof}

	return &Log{entries: []Entry{entry}}, realID, nil
}

// Append builds entry_n = {version_id: hash(entry_{n-1} || canonical(state,
// parameters)), ...} and authorizes it against the previous state's
// assertionMethod or an explicit key-rotation rule in parameters.
func (l *Log) Append(state did.Document, params Parameters, s Signer) error {
	if len(l.entries) == 0 {
		return fmt.Errorf("webvh: cannot append to a log with no genesis entry")
	}
	prev := l.entries[len(l.entries)-1]
	if !authorized(prev, s.VerificationMethodID) {
		return fmt.Errorf("webvh: signer %q is not authorized by the previous entry's assertionMethod or updateKeys", s.VerificationMethodID)
	}

	prevCanon, err := canonical.Canonicalize(prev)
	if err != nil {
		return fmt.Errorf("webvh: canonicalize previous entry: %w", err)
	}
	n := len(l.entries)
	probe := entryWithoutProof{VersionTime: nowRFC3339(), Parameters: params, State: state}
	probeCanon, err := canonical.Canonicalize(probe)
	if err != nil {
		return fmt.Errorf("webvh: canonicalize entry %d: %w", n, err)
	}
	combined := append(append([]byte{}, prevCanon...), probeCanon...)

	entry := Entry{
		VersionID:   fmt.Sprintf("%d-%s", n, hashHex(combined)),
		VersionTime: probe.VersionTime,
		Parameters:  params,
		State:       state,
	}
	proof, err := sign(entry, s)
	if err != nil {
		return err
	}
	entry.Proof = []Proof{proof}
	l.entries = append(l.entries, entry)
	return nil
}

// authorized reports whether verificationMethodID may sign the next entry
// given the state and parameters of prev.
func authorized(prev Entry, verificationMethodID string) bool {
	if prev.State.CanAssert(verificationMethodID) {
		return true
	}
	for _, k := range prev.Parameters.UpdateKeys {
		if k == verificationMethodID {
			return true
		}
	}
	return false
}

func sign(entry Entry, s Signer) (Proof, error) {
	cryptosuite, err := signer.CryptosuiteForSuite(s.Suite)
	if err != nil {
		return Proof{}, fmt.Errorf("webvh: %w", err)
	}
	canon, err := canonical.Canonicalize(entry.withoutProof())
	if err != nil {
		return Proof{}, fmt.Errorf("webvh: canonicalize entry for signing: %w", err)
	}
	sig, err := signer.Sign(s.Suite, s.SecretKey, canon)
	if err != nil {
		return Proof{}, fmt.Errorf("webvh: sign entry: %w", err)
	}
	sigEnc, err := mbase.Encode(mbase.Base58BTC, sig)
	if err != nil {
		return Proof{}, fmt.Errorf("webvh: encode proof value: %w", err)
	}
	return Proof{
		Type:               "DataIntegrityProof",
		Cryptosuite:        cryptosuite,
		Created:            entry.VersionTime,
		VerificationMethod: s.VerificationMethodID,
		ProofPurpose:       "assertionMethod",
		ProofValue:         sigEnc,
	}, nil
}

func hashHex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}
