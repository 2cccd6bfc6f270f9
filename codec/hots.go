package codec

import (
	"encoding/binary"
	"fmt"

	"chipmunk/hots"
	"chipmunk/ringq"
)

// EncodePublicKey packs a HOTS public key as v0 || v1 (spec.md §4.7); both
// are NTT-domain in memory and written in coefficient form by EncodePoly.
func EncodePublicKey(pk *hots.PublicKey) []byte {
	return append(EncodePoly(pk.V0), EncodePoly(pk.V1)...)
}

// DecodePublicKey unpacks a HOTS public key sized for p's ring. data must be
// exactly 2*PolyByteLen(N, Q) bytes.
func DecodePublicKey(data []byte, p *hots.Params) (*hots.PublicKey, error) {
	slot := polyByteLen(p.Ring.N, p.Ring.Q)
	if len(data) != 2*slot {
		return nil, fmt.Errorf("codec: DecodePublicKey: got %d bytes, want exactly %d", len(data), 2*slot)
	}
	v0, err := DecodePoly(data[:slot], p.Ring, ringq.DomainNTT)
	if err != nil {
		return nil, fmt.Errorf("codec: DecodePublicKey: v0: %w", err)
	}
	v1, err := DecodePoly(data[slot:], p.Ring, ringq.DomainNTT)
	if err != nil {
		return nil, fmt.Errorf("codec: DecodePublicKey: v1: %w", err)
	}
	return &hots.PublicKey{V0: v0, V1: v1}, nil
}

// EncodeSecretKey packs a HOTS secret key as s0 (Gamma polynomials) || s1
// (Gamma polynomials) || seed[32] || counter (u32, big-endian), alongside
// the (seed, counter) pair it was derived from (spec.md §4.7). The secret
// key itself holds no seed/counter; callers that persist a key typically
// need both to reconstruct provenance, so the encoding carries them.
func EncodeSecretKey(sk *hots.SecretKey, seed [32]byte, counter uint32) []byte {
	out := make([]byte, 0)
	for _, p := range sk.S0 {
		out = append(out, EncodePoly(p)...)
	}
	for _, p := range sk.S1 {
		out = append(out, EncodePoly(p)...)
	}
	out = append(out, seed[:]...)
	var ctrBuf [4]byte
	binary.BigEndian.PutUint32(ctrBuf[:], counter)
	out = append(out, ctrBuf[:]...)
	return out
}

// DecodeSecretKey unpacks a HOTS secret key sized for p's ring and Gamma,
// together with the (seed, counter) pair EncodeSecretKey wrote alongside it.
func DecodeSecretKey(data []byte, p *hots.Params) (*hots.SecretKey, [32]byte, uint32, error) {
	var seed [32]byte
	slot := polyByteLen(p.Ring.N, p.Ring.Q)
	want := 2*p.Table.Gamma*slot + 32 + 4
	if len(data) != want {
		return nil, seed, 0, fmt.Errorf("codec: DecodeSecretKey: got %d bytes, want exactly %d", len(data), want)
	}
	sk := &hots.SecretKey{
		S0: make([]*ringq.Poly, p.Table.Gamma),
		S1: make([]*ringq.Poly, p.Table.Gamma),
	}
	off := 0
	for i := 0; i < p.Table.Gamma; i++ {
		poly, err := DecodePoly(data[off:off+slot], p.Ring, ringq.DomainNTT)
		if err != nil {
			return nil, seed, 0, fmt.Errorf("codec: DecodeSecretKey: s0[%d]: %w", i, err)
		}
		sk.S0[i] = poly
		off += slot
	}
	for i := 0; i < p.Table.Gamma; i++ {
		poly, err := DecodePoly(data[off:off+slot], p.Ring, ringq.DomainNTT)
		if err != nil {
			return nil, seed, 0, fmt.Errorf("codec: DecodeSecretKey: s1[%d]: %w", i, err)
		}
		sk.S1[i] = poly
		off += slot
	}
	copy(seed[:], data[off:off+32])
	off += 32
	counter := binary.BigEndian.Uint32(data[off : off+4])
	return sk, seed, counter, nil
}

// EncodeSignature packs a HOTS signature as σ[0] || ... || σ[Gamma-1]
// (spec.md §4.7).
func EncodeSignature(sig *hots.Signature) []byte {
	out := make([]byte, 0)
	for _, p := range sig.Sigma {
		out = append(out, EncodePoly(p)...)
	}
	return out
}

// DecodeSignature unpacks a HOTS signature sized for p's ring and Gamma.
func DecodeSignature(data []byte, p *hots.Params) (*hots.Signature, error) {
	slot := polyByteLen(p.Ring.N, p.Ring.Q)
	want := p.Table.Gamma * slot
	if len(data) != want {
		return nil, fmt.Errorf("codec: DecodeSignature: got %d bytes, want exactly %d", len(data), want)
	}
	sigma := make([]*ringq.Poly, p.Table.Gamma)
	off := 0
	for i := 0; i < p.Table.Gamma; i++ {
		poly, err := DecodePoly(data[off:off+slot], p.Ring, ringq.DomainNTT)
		if err != nil {
			return nil, fmt.Errorf("codec: DecodeSignature: sigma[%d]: %w", i, err)
		}
		sigma[i] = poly
		off += slot
	}
	return &hots.Signature{Sigma: sigma}, nil
}
