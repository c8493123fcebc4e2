// Package did implements the identifier grammar and resolver for the three
// DID methods this SDK understands: peer, webvh, and btco.
package did

import (
	"fmt"
	"strconv"
	"strings"
)

// Method is one of the three DID methods this SDK resolves.
type Method string

const (
	MethodPeer  Method = "peer"
	MethodWebVH Method = "webvh"
	MethodBtco  Method = "btco"
)

// Network is a Bitcoin network identifier.
type Network string

const (
	NetworkMainnet Network = "mainnet"
	NetworkTestnet Network = "testnet"
	NetworkSignet  Network = "signet"
)

func (n Network) prefix() string {
	switch n {
	case NetworkTestnet:
		return "test:"
	case NetworkSignet:
		return "sig:"
	default:
		return ""
	}
}

// Identifier is a tagged-variant DID value. Exactly one of the
// method-specific field groups is populated, selected by Method.
type Identifier struct {
	Method Method

	// Peer
	PeerMethodSpecificID string

	// WebVH
	Domain       string
	PathSegments []string
	SCID         string

	// Btco
	Network  Network
	Sat      uint64
	Index    uint32
	HasIndex bool
}

// NewPeer builds a did:peer identifier from a precomputed method-specific id
// (see pkg/did.DerivePeerID for how that id is produced from content hashes).
func NewPeer(methodSpecificID string) Identifier {
	return Identifier{Method: MethodPeer, PeerMethodSpecificID: methodSpecificID}
}

// NewWebVH builds a did:webvh identifier.
func NewWebVH(domain string, pathSegments []string, scid string) Identifier {
	return Identifier{Method: MethodWebVH, Domain: domain, PathSegments: pathSegments, SCID: scid}
}

// NewBtco builds a did:btco identifier. index==nil denotes the shorthand
// form (did:btco:<sat>), which String renders without an index and
// ResolveBtco resolves as index 0; resolution does not rewrite a shorthand
// identifier into the explicit indexed form.
func NewBtco(network Network, sat uint64, index *uint32) Identifier {
	id := Identifier{Method: MethodBtco, Network: network, Sat: sat}
	if index != nil {
		id.Index = *index
		id.HasIndex = true
	}
	return id
}

// WithExplicitIndex returns a copy of a btco identifier with a concrete
// index (did:btco:<sat>/<index>). The lifecycle engine's UpdateBtco path
// uses it to move an original to the index of its newest inscription.
func (id Identifier) WithExplicitIndex(index uint32) Identifier {
	id.Index = index
	id.HasIndex = true
	return id
}

// String renders the identifier in its canonical DID form.
func (id Identifier) String() string {
	switch id.Method {
	case MethodPeer:
		return "did:peer:" + id.PeerMethodSpecificID
	case MethodWebVH:
		parts := append([]string{"did:webvh:" + id.Domain}, id.PathSegments...)
		return strings.Join(parts, ":") + ":" + id.SCID
	case MethodBtco:
		s := "did:btco:" + id.Network.prefix() + strconv.FormatUint(id.Sat, 10)
		if id.HasIndex {
			s += "/" + strconv.FormatUint(uint64(id.Index), 10)
		}
		return s
	default:
		return ""
	}
}

// Parse parses a DID string into an Identifier.
func Parse(s string) (Identifier, error) {
	if !strings.HasPrefix(s, "did:") {
		return Identifier{}, fmt.Errorf("did: missing did: prefix")
	}
	rest := strings.TrimPrefix(s, "did:")
	parts := strings.SplitN(rest, ":", 2)
	if len(parts) != 2 {
		return Identifier{}, fmt.Errorf("did: malformed identifier %q", s)
	}
	method, methodSpecific := parts[0], parts[1]

	switch Method(method) {
	case MethodPeer:
		if methodSpecific == "" {
			return Identifier{}, fmt.Errorf("did:peer: empty method-specific id")
		}
		return NewPeer(methodSpecific), nil
	case MethodWebVH:
		return parseWebVH(methodSpecific)
	case MethodBtco:
		return parseBtco(methodSpecific)
	default:
		return Identifier{}, fmt.Errorf("did: unsupported method %q", method)
	}
}

func parseWebVH(methodSpecific string) (Identifier, error) {
	segs := strings.Split(methodSpecific, ":")
	if len(segs) < 2 {
		return Identifier{}, fmt.Errorf("did:webvh: expected domain:(...):scid, got %q", methodSpecific)
	}
	domain := segs[0]
	scid := segs[len(segs)-1]
	middle := segs[1 : len(segs)-1]
	if domain == "" || scid == "" {
		return Identifier{}, fmt.Errorf("did:webvh: empty domain or scid in %q", methodSpecific)
	}
	return NewWebVH(domain, middle, scid), nil
}

func parseBtco(methodSpecific string) (Identifier, error) {
	network := NetworkMainnet
	rest := methodSpecific
	switch {
	case strings.HasPrefix(rest, "test:"):
		network = NetworkTestnet
		rest = strings.TrimPrefix(rest, "test:")
	case strings.HasPrefix(rest, "sig:"):
		network = NetworkSignet
		rest = strings.TrimPrefix(rest, "sig:")
	}

	satStr := rest
	var indexPtr *uint32
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		satStr = rest[:i]
		idxVal, err := strconv.ParseUint(rest[i+1:], 10, 32)
		if err != nil {
			return Identifier{}, fmt.Errorf("did:btco: invalid index: %w", err)
		}
		idx := uint32(idxVal)
		indexPtr = &idx
	}
	sat, err := strconv.ParseUint(satStr, 10, 64)
	if err != nil {
		return Identifier{}, fmt.Errorf("did:btco: invalid satoshi number: %w", err)
	}
	return NewBtco(network, sat, indexPtr), nil
}
