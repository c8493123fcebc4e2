package ordinals

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/onionoriginals/originals-go/pkg/coreerrors"
)

// Gateway is the surface an external ordinals indexer provides.
type Gateway interface {
	GetSatInfo(ctx context.Context, sat uint64) (SatInfo, error)
	ResolveInscription(ctx context.Context, inscriptionID string) (Inscription, error)
	GetMetadata(ctx context.Context, inscriptionID string) ([]byte, error)
	BroadcastTransaction(ctx context.Context, network string, txHex string) (txid string, err error)
	GetTransactionStatus(ctx context.Context, network string, txid string) (TxStatus, error)
	EstimateFee(ctx context.Context, blocks int) (int64, error)
}

// RetryPolicy configures RetryingGateway's attempt budget and backoff.
type RetryPolicy struct {
	MaxAttempts       int
	BaseDelay         time.Duration
	PerAttemptTimeout time.Duration
}

// DefaultRetryPolicy allows two attempts with a 30-second per-attempt
// timeout.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 2, BaseDelay: 200 * time.Millisecond, PerAttemptTimeout: 30 * time.Second}
}

// RetryingGateway decorates a Gateway so every operation retries with
// exponential backoff; all errors are retriable unless they carry
// coreerrors.CodeNotFound.
type RetryingGateway struct {
	Inner  Gateway
	Policy RetryPolicy
}

// NewRetryingGateway wraps inner with the default retry policy.
func NewRetryingGateway(inner Gateway) *RetryingGateway {
	return &RetryingGateway{Inner: inner, Policy: DefaultRetryPolicy()}
}

func (g *RetryingGateway) retry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= g.Policy.MaxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, g.Policy.PerAttemptTimeout)
		lastErr = fn(attemptCtx)
		cancel()
		if lastErr == nil {
			return nil
		}
		var structured *coreerrors.Error
		if errors.As(lastErr, &structured) && structured.Code == coreerrors.CodeNotFound {
			return lastErr
		}
		if attempt < g.Policy.MaxAttempts {
			log.Printf("[OrdinalsGateway] %s attempt %d/%d failed: %v; retrying", op, attempt, g.Policy.MaxAttempts, lastErr)
			delay := time.Duration(math.Pow(2, float64(attempt-1))) * g.Policy.BaseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return coreerrors.Wrap(coreerrors.CodeUnreachable, fmt.Errorf("%s: exhausted %d attempts: %w", op, g.Policy.MaxAttempts, lastErr)).AsRecoverable()
}

func (g *RetryingGateway) GetSatInfo(ctx context.Context, sat uint64) (SatInfo, error) {
	var out SatInfo
	err := g.retry(ctx, "GetSatInfo", func(ctx context.Context) error {
		var innerErr error
		out, innerErr = g.Inner.GetSatInfo(ctx, sat)
		return innerErr
	})
	return out, err
}

func (g *RetryingGateway) ResolveInscription(ctx context.Context, inscriptionID string) (Inscription, error) {
	var out Inscription
	err := g.retry(ctx, "ResolveInscription", func(ctx context.Context) error {
		var innerErr error
		out, innerErr = g.Inner.ResolveInscription(ctx, inscriptionID)
		return innerErr
	})
	return out, err
}

func (g *RetryingGateway) GetMetadata(ctx context.Context, inscriptionID string) ([]byte, error) {
	var out []byte
	err := g.retry(ctx, "GetMetadata", func(ctx context.Context) error {
		var innerErr error
		out, innerErr = g.Inner.GetMetadata(ctx, inscriptionID)
		return innerErr
	})
	return out, err
}

func (g *RetryingGateway) BroadcastTransaction(ctx context.Context, network string, txHex string) (string, error) {
	var out string
	err := g.retry(ctx, "BroadcastTransaction", func(ctx context.Context) error {
		var innerErr error
		out, innerErr = g.Inner.BroadcastTransaction(ctx, network, txHex)
		if innerErr != nil {
			return coreerrors.Wrap(coreerrors.CodeBroadcastRejected, innerErr)
		}
		return nil
	})
	return out, err
}

func (g *RetryingGateway) GetTransactionStatus(ctx context.Context, network string, txid string) (TxStatus, error) {
	var out TxStatus
	err := g.retry(ctx, "GetTransactionStatus", func(ctx context.Context) error {
		var innerErr error
		out, innerErr = g.Inner.GetTransactionStatus(ctx, network, txid)
		return innerErr
	})
	return out, err
}

func (g *RetryingGateway) EstimateFee(ctx context.Context, blocks int) (int64, error) {
	var out int64
	err := g.retry(ctx, "EstimateFee", func(ctx context.Context) error {
		var innerErr error
		out, innerErr = g.Inner.EstimateFee(ctx, blocks)
		return innerErr
	})
	return out, err
}
