package api

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/onionoriginals/originals-go/pkg/coreerrors"
	"github.com/onionoriginals/originals-go/pkg/did"
	"github.com/onionoriginals/originals-go/pkg/keymanager"
	"github.com/onionoriginals/originals-go/pkg/lifecycle"
	"github.com/onionoriginals/originals-go/pkg/multikey"
	"github.com/onionoriginals/originals-go/pkg/webvh"
)

// APIHandler wires the lifecycle.Engine and the in-memory OriginalStore to
// the demo HTTP+WS surface: a set of collaborators plumbed once at
// startup, with one method per route.
type APIHandler struct {
	Store       *OriginalStore
	Engine      *lifecycle.Engine
	Resolver    *did.Resolver
	OutputDir   string
	NetworkName did.Network
	wsHub       *Hub
}

// SetupRouter builds the gin.Engine for cmd/originalsd: CORS configured
// from an allowlist, a public group, and a protected group gated by bearer
// auth plus a per-IP rate limiter.
func SetupRouter(handler *APIHandler, wsHub *Hub, allowedOrigins, authToken string) *gin.Engine {
	r := gin.Default()
	handler.wsHub = wsHub

	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowedOrigins == "" || allowedOrigins == "*" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			for _, allowed := range strings.Split(allowedOrigins, ",") {
				if strings.TrimSpace(allowed) == origin {
					c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	pub := r.Group("/v1")
	{
		pub.GET("/health", handler.handleHealth)
		pub.GET("/ws", wsHub.Subscribe)
		pub.GET("/originals/:handle", handler.handleResolve)
	}

	// One shared per-IP budget, spent faster by the routes that do on-chain
	// work: an inscribe costs five units where the off-chain transitions
	// cost one, so a client can burn its minute on bookkeeping or on a
	// handful of inscriptions but not both.
	rl := NewLimiter(time.Minute, 30)

	protected := r.Group("/v1")
	protected.Use(AuthMiddleware(authToken))
	{
		protected.POST("/originals", rl.Middleware(1), handler.handleCreate)
		protected.POST("/originals/:handle/promote", rl.Middleware(1), handler.handlePromote)
		protected.POST("/originals/:handle/inscribe", rl.Middleware(5), handler.handleInscribe)
	}

	return r
}

func (h *APIHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "operational",
		"network": string(h.NetworkName),
	})
}

// handleCreate implements POST /v1/originals: create a peer-identity
// original from resource hashes.
func (h *APIHandler) handleCreate(c *gin.Context) {
	var req struct {
		Resources []struct {
			MediaType     string `json:"mediaType"`
			ContentBase64 string `json:"contentBase64"`
		} `json:"resources"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if len(req.Resources) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one resource is required"})
		return
	}

	resources := make([]lifecycle.Resource, len(req.Resources))
	for i, r := range req.Resources {
		content, err := base64.StdEncoding.DecodeString(r.ContentBase64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "resource contentBase64 is not valid base64"})
			return
		}
		resources[i] = lifecycle.NewResource(r.MediaType, content)
	}

	original, err := lifecycle.New(resources)
	if err != nil {
		writeError(c, err)
		return
	}

	handle := uuid.NewString()
	h.Store.Put(handle, original)

	if h.wsHub != nil {
		h.wsHub.Broadcast(Event{Type: "created", Handle: handle, DID: original.ID.String(), Layer: string(original.ID.Method)})
	}

	c.JSON(http.StatusCreated, gin.H{
		"handle":    handle,
		"id":        original.ID.String(),
		"resources": resourceViews(original.Resources),
	})
}

// handlePromote implements "POST /v1/originals/:id/promote — promote peer →
// webvh": it generates a fresh Ed25519 key, synthesizes the genesis webvh
// document around it, and writes the resulting update log to OutputDir as
// a did.jsonl file.
func (h *APIHandler) handlePromote(c *gin.Context) {
	handle := c.Param("handle")
	original, ok := h.Store.Get(handle)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no original registered under this handle"})
		return
	}

	var req struct {
		Domain       string   `json:"domain"`
		PathSegments []string `json:"pathSegments"`
		Creator      string   `json:"creator"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Domain == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "domain is required"})
		return
	}

	kp, err := keymanager.Generate(multikey.Ed25519)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "key generation failed"})
		return
	}
	dec, err := multikey.DecodeSecretKey(kp.SecretMultibase)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "key decode failed"})
		return
	}
	sig := lifecycle.Signer{VerificationMethod: kp.PublicMultibase, Suite: kp.Suite, SecretKey: dec.Bytes}
	vms := []did.VerificationMethod{{ID: "#key-1", Type: "Multikey", PublicKeyMultibase: kp.PublicMultibase}}

	creator := req.Creator
	if creator == "" {
		creator = original.ID.String()
	}

	signed, err := h.Engine.PromoteToWebVH(original, req.Domain, req.PathSegments, vms, sig, creator)
	if err != nil {
		writeError(c, err)
		return
	}

	if h.OutputDir != "" {
		dir := webvh.PathFor(h.OutputDir, original.WebVHPathSegments())
		if err := webvh.WriteFile(dir, original.WebVHEntries()); err != nil {
			log.Printf("[API] failed to persist update log for %s: %v", original.ID.String(), err)
		}
	}

	if h.wsHub != nil {
		h.wsHub.Broadcast(Event{Type: "promoted", Handle: handle, DID: original.ID.String(), Layer: string(original.ID.Method)})
	}

	c.JSON(http.StatusOK, gin.H{
		"handle":     handle,
		"id":         original.ID.String(),
		"credential": signed,
	})
}

// handleInscribe implements "POST /v1/originals/:id/inscribe — promote
// webvh → btco". Key custody and UTXO funding stay at the caller's
// boundary: the reveal public key, destination address, and signing key
// for the lifecycle credential all arrive in the request rather than being
// generated server-side.
func (h *APIHandler) handleInscribe(c *gin.Context) {
	handle := c.Param("handle")
	original, ok := h.Store.Get(handle)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no original registered under this handle"})
		return
	}
	if h.Engine.Gateway == nil || h.Engine.Wallet == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no ordinals gateway/wallet configured for this engine"})
		return
	}

	var req struct {
		RevealPublicKeyHex string `json:"revealPublicKeyHex"`
		DestinationAddress string `json:"destinationAddress"`
		VerificationMethod string `json:"verificationMethod"`
		SecretKeyMultibase string `json:"secretKeyMultibase"`
		Creator            string `json:"creator"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	pubBytes, err := hex.DecodeString(req.RevealPublicKeyHex)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "revealPublicKeyHex is not valid hex"})
		return
	}
	revealPubKey, err := btcec.ParsePubKey(pubBytes)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "revealPublicKeyHex is not a valid public key"})
		return
	}
	destination, err := btcutil.DecodeAddress(req.DestinationAddress, h.Engine.Network)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "destinationAddress is invalid for this network"})
		return
	}
	dec, err := multikey.DecodeSecretKey(req.SecretKeyMultibase)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "secretKeyMultibase is invalid"})
		return
	}

	sig := lifecycle.Signer{VerificationMethod: req.VerificationMethod, Suite: dec.Suite, SecretKey: dec.Bytes}
	creator := req.Creator
	if creator == "" {
		creator = original.ID.String()
	}

	result, err := h.Engine.Inscribe(c.Request.Context(), original, revealPubKey, destination, sig, creator)
	if err != nil {
		writeError(c, err)
		return
	}

	if h.wsHub != nil {
		h.wsHub.Broadcast(Event{
			Type:       string(result.Status),
			Handle:     handle,
			DID:        original.ID.String(),
			Layer:      string(original.ID.Method),
			CommitTxid: result.CommitTxid,
			RevealTxid: result.RevealTxid,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"handle":     handle,
		"id":         original.ID.String(),
		"status":     result.Status,
		"commitTxid": result.CommitTxid,
		"revealTxid": result.RevealTxid,
		"credential": result.Credential,
	})
}

// handleResolve implements "GET /v1/originals/:id — resolve current
// identifier and document." Peer-layer originals have no document (a peer
// identity is content-hash-derived, not key-derived); webvh documents come
// from the in-memory log the promote step wrote; btco
// documents are resolved live through h.Resolver when one is configured.
func (h *APIHandler) handleResolve(c *gin.Context) {
	handle := c.Param("handle")
	original, ok := h.Store.Get(handle)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no original registered under this handle"})
		return
	}

	resp := gin.H{
		"handle":    handle,
		"id":        original.ID.String(),
		"layer":     string(original.ID.Method),
		"resources": resourceViews(original.Resources),
	}

	switch original.ID.Method {
	case did.MethodWebVH:
		if doc, ok := original.WebVHDocument(); ok {
			resp["document"] = doc
		}
	case did.MethodBtco:
		if h.Resolver != nil {
			result, err := h.Resolver.ResolveBtco(c.Request.Context(), original.ID)
			if err != nil {
				var structured *coreerrors.Error
				if errors.As(err, &structured) && structured.Code == coreerrors.CodeDeactivated {
					resp["document"] = result.Document
					resp["deactivated"] = true
				} else {
					c.JSON(http.StatusOK, resp)
					return
				}
			} else {
				resp["document"] = result.Document
				resp["resolutionMetadata"] = result.Metadata
			}
		}
	}

	c.JSON(http.StatusOK, resp)
}

func resourceViews(resources []lifecycle.Resource) []gin.H {
	out := make([]gin.H, len(resources))
	for i, r := range resources {
		out[i] = gin.H{
			"id":          r.ID,
			"contentHash": r.ContentHash,
			"mediaType":   r.MediaType,
			"size":        r.Size,
		}
	}
	return out
}

func writeError(c *gin.Context, err error) {
	var structured *coreerrors.Error
	if errors.As(err, &structured) {
		status := http.StatusUnprocessableEntity
		switch structured.Code {
		case coreerrors.CodeNotFound:
			status = http.StatusNotFound
		case coreerrors.CodeUnreachable, coreerrors.CodeTimeout:
			status = http.StatusGatewayTimeout
		case coreerrors.CodeInvalidDID, coreerrors.CodeInvalidDocument, coreerrors.CodeInvalidCredential:
			status = http.StatusBadRequest
		case coreerrors.CodeDeactivated:
			status = http.StatusGone
		}
		c.JSON(status, gin.H{
			"code":        structured.Code,
			"message":     structured.Message,
			"suggestion":  structured.Suggestion,
			"recoverable": structured.Recoverable,
		})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
