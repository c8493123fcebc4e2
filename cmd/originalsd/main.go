// Command originalsd is a demo HTTP+WS daemon: a thin, JSON-only wrapper
// around pkg/lifecycle.Engine. It is not part of the core library's public
// API, and it carries no Gateway or WalletAdapter of its own; both are
// external collaborators, so this binary runs in "API-only mode"
// (peer/webvh transitions only) unless an embedder wires one in.
package main

import (
	"log"

	"github.com/onionoriginals/originals-go/internal/api"
	"github.com/onionoriginals/originals-go/internal/config"
	"github.com/onionoriginals/originals-go/internal/doccache"
	"github.com/onionoriginals/originals-go/pkg/credential"
	"github.com/onionoriginals/originals-go/pkg/did"
	"github.com/onionoriginals/originals-go/pkg/lifecycle"
	"github.com/onionoriginals/originals-go/pkg/ordinals"
	"github.com/onionoriginals/originals-go/pkg/webvh"
)

// outputDir is where update logs are written, one
// <output>/(segments)/did.jsonl per DID.
const outputDir = "./data/webvh"

func main() {
	log.Println("Starting Originals engine daemon...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	resolver := &did.Resolver{
		Fetcher:  webvh.FileStore{OutputDir: outputDir},
		Verifier: webvh.FileStore{OutputDir: outputDir},
	}

	var loader credential.DocumentLoader
	if cfg.DatabaseURL != "" {
		cache, err := doccache.Connect(cfg.DatabaseURL, resolver)
		if err != nil {
			log.Printf("Warning: failed to connect to PostgreSQL, continuing without a verification method cache: %v", err)
		} else {
			defer cache.Close()
			if err := cache.InitSchema(); err != nil {
				log.Printf("Warning: doccache schema init failed: %v", err)
			}
			loader = cache
		}
	}

	engine := &lifecycle.Engine{
		Credentials:       credential.New(loader),
		FeeOracle:         ordinals.ConstantFeeOracle{SatsPerVByte: cfg.FeeRateFallback},
		Network:           cfg.ChainParams,
		NetworkName:       cfg.Network,
		ConfirmOptions:    cfg.Confirm,
		AllowDeactivation: cfg.AllowDeactivation,
	}
	log.Println("WARNING: no ordinals gateway/wallet wired — engine running in API-only mode (promote only; inscribe/update disabled until an embedder supplies ordinals.Gateway and lifecycle.WalletAdapter)")

	wsHub := api.NewHub()
	go wsHub.Run()

	handler := &api.APIHandler{
		Store:       api.NewOriginalStore(),
		Engine:      engine,
		Resolver:    resolver,
		OutputDir:   outputDir,
		NetworkName: cfg.Network,
	}

	r := api.SetupRouter(handler, wsHub, cfg.AllowedOrigins, cfg.AuthToken)

	log.Printf("Engine running on :%s (network=%s)\n", cfg.Port, cfg.Network)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
