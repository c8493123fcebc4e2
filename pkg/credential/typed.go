package credential

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/onionoriginals/originals-go/pkg/multikey"
)

// Typed facade over the generic Credential type: each lifecycle transition
// gets a constructor that fills in credentialSubject's required shape
// without callers hand-assembling a bare map.

// TransitionSubject is the minimum shape every lifecycle credential's
// subject carries, plus the prior/new identifier this transition links.
type TransitionSubject struct {
	ResourceID   string
	ResourceType string
	CreatedTime  string
	Creator      string
	FromID       string
	ToID         string
}

func (s TransitionSubject) toSubject() Subject {
	sub := Subject{
		"resource_id":   s.ResourceID,
		"resource_type": s.ResourceType,
		"created_time":  s.CreatedTime,
		"creator":       s.Creator,
		"toId":          s.ToID,
	}
	if s.FromID != "" {
		sub["fromId"] = s.FromID
	}
	return sub
}

func newUnsigned(types []string, issuer, issuanceTime string, subj TransitionSubject) Credential {
	return Credential{
		Contexts:     append([]string(nil), DefaultContexts...),
		ID:           "urn:uuid:" + uuid.NewString(),
		Types:        append([]string{"VerifiableCredential"}, types...),
		Issuer:       issuer,
		IssuanceTime: issuanceTime,
		Subject:      subj.toSubject(),
	}
}

// NewResourceCreatedCredential builds the unsigned ResourceCreated
// credential issued for a brand-new (genesis, peer-layer) original.
func NewResourceCreatedCredential(issuer, issuanceTime string, subj TransitionSubject) Credential {
	return newUnsigned([]string{TypeResourceCreated}, issuer, issuanceTime, subj)
}

// NewResourceUpdatedCredential builds the unsigned ResourceUpdated
// credential issued for an in-place update within a layer (update_btco,
// deactivate).
func NewResourceUpdatedCredential(issuer, issuanceTime string, subj TransitionSubject) Credential {
	return newUnsigned([]string{TypeResourceUpdated}, issuer, issuanceTime, subj)
}

// NewResourceMigratedCredential builds the unsigned ResourceMigrated
// credential issued for a cross-layer promotion (promote_to_webvh,
// inscribe), linking the new identifier to the one it replaces.
func NewResourceMigratedCredential(issuer, issuanceTime string, subj TransitionSubject) Credential {
	return newUnsigned([]string{TypeResourceMigrated}, issuer, issuanceTime, subj)
}

// IssueTransition is a convenience wrapper combining one of the
// constructors above with Engine.Issue, since every lifecycle transition
// issues exactly one credential with the same verification-method/suite
// shape; every lifecycle transition appends exactly one credential to the
// provenance log.
func (e *Engine) IssueTransition(unsigned Credential, verificationMethod string, suite multikey.Suite, secretKey []byte) (Credential, error) {
	signed, err := e.Issue(unsigned, verificationMethod, suite, secretKey, "assertionMethod")
	if err != nil {
		return Credential{}, fmt.Errorf("credential: issue transition credential: %w", err)
	}
	return signed, nil
}
