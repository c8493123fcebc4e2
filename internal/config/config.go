// Package config loads internal/api/cmd/originalsd's runtime configuration
// from the environment. Gateway and WalletAdapter are supplied by the
// embedding Go program, not loaded from env. Every value lands in an
// explicit struct passed to constructors rather than read ad hoc at call
// sites.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/onionoriginals/originals-go/pkg/did"
	"github.com/onionoriginals/originals-go/pkg/ordinals"
)

// Config is the full set of knobs cmd/originalsd needs to wire the engine
// and its demo HTTP+WS surface.
type Config struct {
	// Port is the HTTP listen port for the demo daemon.
	Port string

	// DatabaseURL is the Postgres connection string backing
	// internal/doccache's DocumentLoader cache. Empty disables the cache
	// (the engine still runs, just without cached DID resolution).
	DatabaseURL string

	// AllowedOrigins is a comma-separated CORS allowlist; empty means
	// "allow all" (development mode).
	AllowedOrigins string

	// AuthToken gates internal/api's protected routes via bearer auth.
	// Empty disables auth (development mode).
	AuthToken string

	// Network selects the Bitcoin network the engine's did:btco identities
	// and ordinals transactions are constructed against.
	Network     did.Network
	ChainParams *chaincfg.Params

	// FeeRateFallback is the sats/vByte ConstantFeeOracle falls back to
	// when no live fee estimator is configured.
	FeeRateFallback int64

	// Confirm configures ordinals.AwaitConfirmation's poll cadence and
	// timeout for both commit and reveal transactions.
	Confirm ordinals.ConfirmOptions

	// Retry configures ordinals.RetryingGateway's backoff policy around
	// whatever live indexer gateway the daemon is wired to.
	Retry ordinals.RetryPolicy

	// AllowDeactivation gates lifecycle.Engine.Deactivate, matching
	// lifecycle.Engine.AllowDeactivation's explicit opt-in.
	AllowDeactivation bool
}

// Load reads Config from the environment. DatabaseURL and AuthToken are
// optional: the daemon starts with its doccache and auth layers disabled
// when they are unset.
func Load() (Config, error) {
	network := did.Network(getEnvOrDefault("ORIGINALS_NETWORK", string(did.NetworkTestnet)))
	params, err := chainParamsFor(network)
	if err != nil {
		return Config{}, err
	}

	feeRate, err := strconv.ParseInt(getEnvOrDefault("FEE_RATE_FALLBACK_SATVB", "10"), 10, 64)
	if err != nil {
		return Config{}, fmt.Errorf("config: invalid FEE_RATE_FALLBACK_SATVB: %w", err)
	}

	confirmTimeout, err := time.ParseDuration(getEnvOrDefault("CONFIRM_TIMEOUT", "2h"))
	if err != nil {
		return Config{}, fmt.Errorf("config: invalid CONFIRM_TIMEOUT: %w", err)
	}
	pollInterval, err := time.ParseDuration(getEnvOrDefault("CONFIRM_POLL_INTERVAL", "3s"))
	if err != nil {
		return Config{}, fmt.Errorf("config: invalid CONFIRM_POLL_INTERVAL: %w", err)
	}

	retryAttempts, err := strconv.Atoi(getEnvOrDefault("GATEWAY_RETRY_ATTEMPTS", "2"))
	if err != nil {
		return Config{}, fmt.Errorf("config: invalid GATEWAY_RETRY_ATTEMPTS: %w", err)
	}
	retryBaseDelay, err := time.ParseDuration(getEnvOrDefault("GATEWAY_RETRY_BASE_DELAY", "200ms"))
	if err != nil {
		return Config{}, fmt.Errorf("config: invalid GATEWAY_RETRY_BASE_DELAY: %w", err)
	}

	return Config{
		Port:            getEnvOrDefault("PORT", "5339"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		AllowedOrigins:  os.Getenv("ALLOWED_ORIGINS"),
		AuthToken:       os.Getenv("API_AUTH_TOKEN"),
		Network:         network,
		ChainParams:     params,
		FeeRateFallback: feeRate,
		Confirm: ordinals.ConfirmOptions{
			Timeout:      confirmTimeout,
			PollInterval: pollInterval,
		},
		Retry: ordinals.RetryPolicy{
			MaxAttempts:       retryAttempts,
			BaseDelay:         retryBaseDelay,
			PerAttemptTimeout: 30 * time.Second,
		},
		AllowDeactivation: getEnvOrDefault("ALLOW_DEACTIVATION", "false") == "true",
	}, nil
}

func chainParamsFor(network did.Network) (*chaincfg.Params, error) {
	switch network {
	case did.NetworkMainnet:
		return &chaincfg.MainNetParams, nil
	case did.NetworkTestnet:
		return &chaincfg.TestNet3Params, nil
	case did.NetworkSignet:
		return &chaincfg.SigNetParams, nil
	default:
		return nil, fmt.Errorf("config: unknown ORIGINALS_NETWORK %q", network)
	}
}

// getEnvOrDefault returns the env var value or a safe default for
// non-secret settings.
func getEnvOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
