package signer

import (
	"bytes"
	"crypto/elliptic"
	"crypto/hmac"
	"crypto/sha256"
	"math/big"
)

// rfc6979Nonce deterministically derives the per-message ECDSA nonce k for
// curve order n, private scalar d, and message hash, per RFC 6979 §3.2,
// using HMAC-SHA256 as the PRF. Parameterizing over elliptic.Curve lets
// one implementation serve both btcec.S256() and elliptic.P256() instead
// of maintaining two curve-specific copies.
func rfc6979Nonce(n *big.Int, d *big.Int, hash []byte) *big.Int {
	qlen := n.BitLen()
	rolen := (qlen + 7) / 8
	holen := sha256.Size

	bx := append(int2octets(d, rolen), bits2octets(hash, n, qlen, rolen)...)

	v := bytes.Repeat([]byte{0x01}, holen)
	k := bytes.Repeat([]byte{0x00}, holen)

	k = hmacSum(k, concat(v, []byte{0x00}, bx))
	v = hmacSum(k, v)
	k = hmacSum(k, concat(v, []byte{0x01}, bx))
	v = hmacSum(k, v)

	for {
		var t []byte
		for len(t) < rolen {
			v = hmacSum(k, v)
			t = append(t, v...)
		}
		cand := bits2int(t, qlen)
		if cand.Sign() > 0 && cand.Cmp(n) < 0 {
			return cand
		}
		k = hmacSum(k, concat(v, []byte{0x00}))
		v = hmacSum(k, v)
	}
}

func hmacSum(key, msg []byte) []byte {
	m := hmac.New(sha256.New, key)
	m.Write(msg)
	return m.Sum(nil)
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// bits2int interprets the leftmost qlen bits of data as a big-endian integer.
func bits2int(data []byte, qlen int) *big.Int {
	x := new(big.Int).SetBytes(data)
	dataBits := len(data) * 8
	if excess := dataBits - qlen; excess > 0 {
		x.Rsh(x, uint(excess))
	}
	return x
}

// int2octets renders x as a big-endian byte slice of exactly rolen bytes.
func int2octets(x *big.Int, rolen int) []byte {
	buf := x.Bytes()
	if len(buf) >= rolen {
		return buf[len(buf)-rolen:]
	}
	out := make([]byte, rolen)
	copy(out[rolen-len(buf):], buf)
	return out
}

// bits2octets reduces bits2int(hash) mod n, then renders it as rolen octets.
func bits2octets(hash []byte, n *big.Int, qlen, rolen int) []byte {
	z := bits2int(hash, qlen)
	z.Mod(z, n)
	return int2octets(z, rolen)
}

// ecdsaSign computes a deterministic ECDSA signature (r, s) over curve for
// private scalar d and the given digest.
func ecdsaSign(curve elliptic.Curve, d *big.Int, hash []byte) (r, s *big.Int) {
	n := curve.Params().N
	z := bits2int(hash, n.BitLen())
	z.Mod(z, n)

	for {
		k := rfc6979Nonce(n, d, hash)
		kInv := new(big.Int).ModInverse(k, n)
		if kInv == nil {
			continue
		}
		x1, _ := curve.ScalarBaseMult(k.Bytes())
		r = new(big.Int).Mod(x1, n)
		if r.Sign() == 0 {
			continue
		}
		s = new(big.Int).Mul(r, d)
		s.Add(s, z)
		s.Mul(s, kInv)
		s.Mod(s, n)
		if s.Sign() == 0 {
			continue
		}
		return r, s
	}
}

// ecdsaVerify verifies a (r, s) signature over curve for public point (x, y)
// and the given digest.
func ecdsaVerify(curve elliptic.Curve, x, y *big.Int, hash []byte, r, s *big.Int) bool {
	n := curve.Params().N
	if r.Sign() <= 0 || r.Cmp(n) >= 0 || s.Sign() <= 0 || s.Cmp(n) >= 0 {
		return false
	}
	z := bits2int(hash, n.BitLen())
	z.Mod(z, n)

	w := new(big.Int).ModInverse(s, n)
	if w == nil {
		return false
	}
	u1 := new(big.Int).Mul(z, w)
	u1.Mod(u1, n)
	u2 := new(big.Int).Mul(r, w)
	u2.Mod(u2, n)

	x1, y1 := curve.ScalarBaseMult(u1.Bytes())
	x2, y2 := curve.ScalarMult(x, y, u2.Bytes())
	xr, yr := curve.Add(x1, y1, x2, y2)
	if xr.Sign() == 0 && yr.Sign() == 0 {
		return false
	}
	xr.Mod(xr, n)
	return xr.Cmp(r) == 0
}

// fixedWidthPair renders (r, s) as a fixed-width big-endian r||s signature of
// 2*byteLen bytes, the IEEE P1363 style used by the DID/JOSE ecosystem
// (ES256K/ES256) rather than ASN.1 DER.
func fixedWidthPair(r, s *big.Int, byteLen int) []byte {
	out := make([]byte, 2*byteLen)
	rb := r.Bytes()
	sb := s.Bytes()
	copy(out[byteLen-len(rb):byteLen], rb)
	copy(out[2*byteLen-len(sb):], sb)
	return out
}

func splitFixedWidthPair(sig []byte, byteLen int) (r, s *big.Int, ok bool) {
	if len(sig) != 2*byteLen {
		return nil, nil, false
	}
	r = new(big.Int).SetBytes(sig[:byteLen])
	s = new(big.Int).SetBytes(sig[byteLen:])
	return r, s, true
}
