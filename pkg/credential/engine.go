package credential

import (
	"crypto/sha256"
	"fmt"
	"strings"

	mbase "github.com/multiformats/go-multibase"
	"github.com/onionoriginals/originals-go/pkg/canonical"
	"github.com/onionoriginals/originals-go/pkg/multikey"
	"github.com/onionoriginals/originals-go/pkg/signer"
)

// Engine issues and verifies credentials. It holds no mutable state beyond
// an optional DocumentLoader.
type Engine struct {
	Loader DocumentLoader
}

// New builds an Engine. loader may be nil; verification then only accepts
// inline multibase verification methods.
func New(loader DocumentLoader) *Engine {
	return &Engine{Loader: loader}
}

// Issue signs credential with secretKey under verificationMethod and
// purpose, attaching a Data Integrity proof. The credential is returned
// unchanged apart from the new proof and, when it has no contexts,
// DefaultContexts filled in.
func (e *Engine) Issue(cred Credential, verificationMethod string, suite multikey.Suite, secretKey []byte, purpose string) (Credential, error) {
	if purpose == "" {
		purpose = "assertionMethod"
	}
	cryptosuite, err := signer.CryptosuiteForSuite(suite)
	if err != nil {
		return Credential{}, fmt.Errorf("credential: %w", err)
	}
	if len(cred.Contexts) == 0 {
		cred.Contexts = append([]string(nil), DefaultContexts...)
	}

	digest, created, err := e.digest(cred, proofOptions{
		Type:               "DataIntegrityProof",
		Cryptosuite:        cryptosuite,
		VerificationMethod: verificationMethod,
		ProofPurpose:       purpose,
	})
	if err != nil {
		return Credential{}, err
	}

	sig, err := signer.Sign(suite, secretKey, digest)
	if err != nil {
		return Credential{}, fmt.Errorf("credential: sign: %w", err)
	}
	sigEnc, err := mbase.Encode(mbase.Base58BTC, sig)
	if err != nil {
		return Credential{}, fmt.Errorf("credential: encode proof value: %w", err)
	}

	cred.Proof = &Proof{
		Type:                "DataIntegrityProof",
		Cryptosuite:         cryptosuite,
		Created:             created,
		VerificationMethod:  verificationMethod,
		ProofPurpose:        purpose,
		ProofValueMultibase: sigEnc,
	}
	return cred, nil
}

// digest computes SHA-256(canonical(proofOptions) || canonical(document)),
// using a fixed `created` timestamp so repeated issuance of an otherwise
// identical credential produces a byte-identical proofValue.
func (e *Engine) digest(cred Credential, opts proofOptions) (digest []byte, created string, err error) {
	opts.Created = deterministicCreated(cred)
	optCanon, err := canonical.Canonicalize(opts)
	if err != nil {
		return nil, "", fmt.Errorf("credential: canonicalize proof options: %w", err)
	}
	docCanon, err := cred.withoutProofBytes()
	if err != nil {
		return nil, "", fmt.Errorf("credential: canonicalize document: %w", err)
	}
	sum := sha256.Sum256(append(append([]byte{}, optCanon...), docCanon...))
	return sum[:], opts.Created, nil
}

// deterministicCreated derives the proof's `created` timestamp from the
// credential's own issuance time rather than wall-clock time, so issuing
// the same credential twice yields byte-identical proofs.
func deterministicCreated(cred Credential) string {
	if cred.IssuanceTime != "" {
		return cred.IssuanceTime
	}
	return "1970-01-01T00:00:00Z"
}

// VerifyResult is the structured verification outcome: an OK flag plus
// every error encountered. Verify never panics or returns a Go error.
type VerifyResult struct {
	OK     bool
	Errors []string
}

func failure(format string, args ...any) VerifyResult {
	return VerifyResult{OK: false, Errors: []string{fmt.Sprintf(format, args...)}}
}

// Verify checks a signed credential's proof. It never panics; any
// malformed input surfaces as a false result with explanatory errors.
func (e *Engine) Verify(cred Credential) VerifyResult {
	if cred.Proof == nil {
		return failure("no proof")
	}
	proof := *cred.Proof

	suite, err := signer.SuiteForCryptosuite(proof.Cryptosuite)
	if err != nil {
		return failure("credential: %v", err)
	}

	pubKey, err := e.resolveVerificationMethod(proof.VerificationMethod, suite)
	if err != nil {
		return failure("credential: %v", err)
	}

	// Verify must use whatever `created` is already on the proof, not a
	// recomputed one: recompute the digest with the proof's actual options.
	opts := proofOptions{
		Type:               proof.Type,
		Cryptosuite:        proof.Cryptosuite,
		Created:            proof.Created,
		VerificationMethod: proof.VerificationMethod,
		ProofPurpose:       proof.ProofPurpose,
	}
	optCanon, err := canonical.Canonicalize(opts)
	if err != nil {
		return failure("credential: canonicalize proof options: %v", err)
	}
	docCanon, err := cred.withoutProofBytes()
	if err != nil {
		return failure("credential: canonicalize document: %v", err)
	}
	sum := sha256.Sum256(append(append([]byte{}, optCanon...), docCanon...))
	digest := sum[:]

	_, sigRaw, err := mbase.Decode(proof.ProofValueMultibase)
	if err != nil {
		return failure("credential: decode proof value: %v", err)
	}

	if !signer.Verify(suite, pubKey, digest, sigRaw) {
		return failure("signature verification failed")
	}
	return VerifyResult{OK: true}
}

// resolveVerificationMethod loads a DID URL with a fragment via the
// configured DocumentLoader; anything else is treated as an inline
// multibase public key.
func (e *Engine) resolveVerificationMethod(verificationMethod string, suite multikey.Suite) ([]byte, error) {
	if strings.HasPrefix(verificationMethod, "did:") && strings.Contains(verificationMethod, "#") {
		if e.Loader == nil {
			return nil, fmt.Errorf("no document loader configured to resolve %q", verificationMethod)
		}
		vm, err := e.Loader.LoadVerificationMethod(verificationMethod)
		if err != nil {
			return nil, err
		}
		if vm.Type == "" {
			vm.Type = "Multikey"
		}
		if vm.Type != "Multikey" {
			return nil, fmt.Errorf("unsupported verification method type %q", vm.Type)
		}
		dec, err := multikey.DecodePublicKey(vm.PublicKeyMultibase)
		if err != nil {
			return nil, err
		}
		if dec.Suite != suite {
			return nil, fmt.Errorf("verification method suite %q does not match proof cryptosuite suite %q", dec.Suite, suite)
		}
		return dec.Bytes, nil
	}

	dec, err := multikey.DecodePublicKey(verificationMethod)
	if err != nil {
		return nil, fmt.Errorf("inline verification method is not a valid multikey: %w", err)
	}
	if dec.Suite != suite {
		return nil, fmt.Errorf("inline verification method suite %q does not match proof cryptosuite suite %q", dec.Suite, suite)
	}
	return dec.Bytes, nil
}

// CreatePresentation assembles a VerifiablePresentation whose
// verifiableCredential array preserves input order.
func (e *Engine) CreatePresentation(credentials []Credential, holder string) Presentation {
	return Presentation{
		Contexts:             append([]string(nil), DefaultContexts...),
		Types:                []string{"VerifiablePresentation"},
		Holder:               holder,
		VerifiableCredential: append([]Credential(nil), credentials...),
	}
}

// VerifyPresentation verifies every credential carried by p and reports the
// aggregate result plus per-credential detail.
func (e *Engine) VerifyPresentation(p Presentation) (VerifyResult, []VerifyResult) {
	perCred := make([]VerifyResult, len(p.VerifiableCredential))
	ok := true
	var errs []string
	for i, c := range p.VerifiableCredential {
		r := e.Verify(c)
		perCred[i] = r
		if !r.OK {
			ok = false
			for _, msg := range r.Errors {
				errs = append(errs, fmt.Sprintf("credential %d: %s", i, msg))
			}
		}
	}
	return VerifyResult{OK: ok, Errors: errs}, perCred
}
