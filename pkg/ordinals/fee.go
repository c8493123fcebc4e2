package ordinals

import "context"

// FeeOracle returns a single sat/vB integer for a target confirmation
// window. The core consumes the value verbatim; callers supply a fallback
// constant if the oracle fails.
type FeeOracle interface {
	EstimateFee(ctx context.Context, targetBlocks int) (int64, error)
}

// ConstantFeeOracle is the fallback FeeOracle a caller supplies when no
// live indexer is configured.
type ConstantFeeOracle struct {
	SatsPerVByte int64
}

// EstimateFee implements FeeOracle.
func (c ConstantFeeOracle) EstimateFee(ctx context.Context, targetBlocks int) (int64, error) {
	return c.SatsPerVByte, nil
}
