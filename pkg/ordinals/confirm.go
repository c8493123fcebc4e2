package ordinals

import (
	"context"
	"log"
	"time"

	"github.com/onionoriginals/originals-go/pkg/coreerrors"
)

// ConfirmOptions configures AwaitConfirmation's polling cadence and
// overall deadline.
type ConfirmOptions struct {
	Timeout      time.Duration
	PollInterval time.Duration
}

// DefaultConfirmOptions polls every 3 seconds for up to two hours.
func DefaultConfirmOptions() ConfirmOptions {
	return ConfirmOptions{Timeout: 2 * time.Hour, PollInterval: 3 * time.Second}
}

// AwaitConfirmation polls gw.GetTransactionStatus until txid confirms, the
// timeout elapses, or ctx is cancelled. It is idempotent: calling it twice
// for an already-confirmed txid returns immediately.
func AwaitConfirmation(ctx context.Context, gw Gateway, network, txid string, opts ConfirmOptions) (TxStatus, error) {
	if opts.PollInterval <= 0 {
		opts = DefaultConfirmOptions()
	}
	deadline := time.Now().Add(opts.Timeout)

	status, err := gw.GetTransactionStatus(ctx, network, txid)
	if err != nil {
		return TxStatus{}, err
	}
	if status.Confirmed {
		return status, nil
	}

	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return TxStatus{}, ctx.Err()
		case now := <-ticker.C:
			if now.After(deadline) {
				return TxStatus{}, coreerrors.New(coreerrors.CodeTimeout, "timed out waiting for confirmation").AsRecoverable()
			}
			status, err := gw.GetTransactionStatus(ctx, network, txid)
			if err != nil {
				log.Printf("[AwaitConfirmation] poll for %s failed: %v", txid, err)
				continue
			}
			if status.Confirmed {
				return status, nil
			}
		}
	}
}
