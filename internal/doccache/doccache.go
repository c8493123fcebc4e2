// Package doccache is a Postgres-backed credential.DocumentLoader: a
// connection pool, a file-loaded schema, and parameterized upserts. Unlike
// the core SDK, it is demonstration/operations tooling — pkg/lifecycle and
// pkg/credential never import it, so the library itself persists nothing
// beyond the update log.
package doccache

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/onionoriginals/originals-go/pkg/credential"
	"github.com/onionoriginals/originals-go/pkg/did"
)

// Cache resolves DID URLs to verification methods, checking a Postgres
// table before falling back to a live did.Resolver and caching what it
// finds. It implements credential.DocumentLoader.
type Cache struct {
	pool     *pgxpool.Pool
	resolver *did.Resolver
}

// Connect opens the connection pool and pings once up front so a
// misconfigured connection string fails at startup rather than on first
// use.
func Connect(connStr string, resolver *did.Resolver) (*Cache, error) {
	pool, err := pgxpool.New(context.Background(), connStr)
	if err != nil {
		return nil, fmt.Errorf("doccache: unable to connect to database: %w", err)
	}
	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("doccache: ping failed: %w", err)
	}
	log.Println("[DocCache] connected to PostgreSQL verification method cache")
	return &Cache{pool: pool, resolver: resolver}, nil
}

// Close releases the connection pool.
func (c *Cache) Close() {
	if c.pool != nil {
		c.pool.Close()
	}
}

// InitSchema loads and executes schema.sql from the working directory.
func (c *Cache) InitSchema() error {
	schemaBytes, err := os.ReadFile("internal/doccache/schema.sql")
	if err != nil {
		return fmt.Errorf("doccache: failed to read schema file: %w", err)
	}
	if _, err := c.pool.Exec(context.Background(), string(schemaBytes)); err != nil {
		return fmt.Errorf("doccache: failed to execute schema migration: %w", err)
	}
	log.Println("[DocCache] schema initialized")
	return nil
}

// LoadVerificationMethod implements credential.DocumentLoader. did:peer URLs
// are never cached or resolved here: a peer document is only ever known
// because the caller already holds it (pkg/did.Resolver.ResolvePeer takes
// the document as an argument), so there is nothing for a network-backed
// cache to contribute.
func (c *Cache) LoadVerificationMethod(didURL string) (credential.ResolvedVerificationMethod, error) {
	ctx := context.Background()

	if cached, ok := c.lookup(ctx, didURL); ok {
		return cached, nil
	}

	vm, err := c.resolveLive(ctx, didURL)
	if err != nil {
		return credential.ResolvedVerificationMethod{}, err
	}

	c.store(ctx, didURL, vm)
	return vm, nil
}

func (c *Cache) lookup(ctx context.Context, didURL string) (credential.ResolvedVerificationMethod, bool) {
	var vm credential.ResolvedVerificationMethod
	row := c.pool.QueryRow(ctx, `SELECT type, public_key_multibase FROM verification_methods WHERE did_url = $1`, didURL)
	if err := row.Scan(&vm.Type, &vm.PublicKeyMultibase); err != nil {
		return credential.ResolvedVerificationMethod{}, false
	}
	return vm, true
}

func (c *Cache) store(ctx context.Context, didURL string, vm credential.ResolvedVerificationMethod) {
	const upsert = `
		INSERT INTO verification_methods (did_url, type, public_key_multibase)
		VALUES ($1, $2, $3)
		ON CONFLICT (did_url) DO UPDATE
		SET type = EXCLUDED.type, public_key_multibase = EXCLUDED.public_key_multibase, cached_at = NOW();
	`
	if _, err := c.pool.Exec(ctx, upsert, didURL, vm.Type, vm.PublicKeyMultibase); err != nil {
		log.Printf("[DocCache] failed to cache verification method for %s: %v", didURL, err)
	}
}

func (c *Cache) resolveLive(ctx context.Context, didURL string) (credential.ResolvedVerificationMethod, error) {
	didPart, _, found := strings.Cut(didURL, "#")
	if !found {
		return credential.ResolvedVerificationMethod{}, fmt.Errorf("doccache: %q is not a DID URL with a fragment", didURL)
	}
	id, err := did.Parse(didPart)
	if err != nil {
		return credential.ResolvedVerificationMethod{}, fmt.Errorf("doccache: parse %q: %w", didPart, err)
	}

	var doc did.Document
	switch id.Method {
	case did.MethodWebVH:
		result, err := c.resolver.ResolveWebVH(ctx, id)
		if err != nil {
			return credential.ResolvedVerificationMethod{}, fmt.Errorf("doccache: resolve did:webvh: %w", err)
		}
		doc = result.Document
	case did.MethodBtco:
		result, err := c.resolver.ResolveBtco(ctx, id)
		if err != nil {
			return credential.ResolvedVerificationMethod{}, fmt.Errorf("doccache: resolve did:btco: %w", err)
		}
		doc = result.Document
	default:
		return credential.ResolvedVerificationMethod{}, fmt.Errorf("doccache: cannot resolve verification methods for %q identities over the network", id.Method)
	}

	vm, ok := doc.FindVerificationMethod(didURL)
	if !ok {
		return credential.ResolvedVerificationMethod{}, fmt.Errorf("doccache: %q not found in resolved document", didURL)
	}
	return credential.ResolvedVerificationMethod{Type: vm.Type, PublicKeyMultibase: vm.PublicKeyMultibase}, nil
}
