package ordinals

import (
	"context"
	"fmt"

	"github.com/onionoriginals/originals-go/pkg/did"
)

// GatewayResolver adapts a Gateway into a did.OrdinalsResolver, letting
// pkg/did.Resolver resolve did:btco identities against a live indexer
// without importing this package directly (mirrors pkg/webvh.FileStore's
// role for did:webvh, see pkg/did/resolver.go's comment on avoiding the
// did<->ordinals import cycle).
type GatewayResolver struct {
	Gateway Gateway
}

// InscriptionsOnSat implements did.OrdinalsResolver. GetSatInfo reports
// inscription ids in carry order, which is also ordinal-index order, so
// the position in that list is the record's Index.
func (r GatewayResolver) InscriptionsOnSat(ctx context.Context, sat uint64) ([]did.InscriptionRecord, error) {
	info, err := r.Gateway.GetSatInfo(ctx, sat)
	if err != nil {
		return nil, fmt.Errorf("ordinals: get sat info: %w", err)
	}
	records := make([]did.InscriptionRecord, len(info.InscriptionIDs))
	for i, id := range info.InscriptionIDs {
		insc, err := r.Gateway.ResolveInscription(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("ordinals: resolve inscription %s: %w", id, err)
		}
		records[i] = did.InscriptionRecord{
			InscriptionID: insc.InscriptionID,
			Index:         uint32(i),
			ContentType:   insc.ContentType,
			Content:       insc.ContentBytes,
		}
	}
	return records, nil
}
