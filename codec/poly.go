package codec

import (
	"fmt"

	"chipmunk/ringq"
)

// PolyByteLen returns the packed byte length of a degree-n polynomial over
// modulus q — exported so callers outside this package can size buffers
// without duplicating the bit-packing arithmetic.
func PolyByteLen(n int, q uint64) int {
	return polyByteLen(n, q)
}

// EncodePoly packs p's canonical (non-negative) coefficients into
// ceil(log2(Q)) bits each, big-endian, zero-padded to a whole byte
// (spec.md §4.7). Works in either domain: an NTT-domain p is transformed
// back to its coefficient representation before packing, so the bytes
// always hold normal-domain coefficients, and the caller is responsible for
// decoding back into the matching domain.
func EncodePoly(p *ringq.Poly) []byte {
	r := p.Ring()
	if p.Domain() == ringq.DomainNTT {
		p = p.Clone()
		_ = p.FromNTT() // cannot fail: the clone is in DomainNTT
	}
	return packCoeffs(p.Coeffs(), bitsPerCoeff(r.Q))
}

// DecodePoly unpacks data (normal-domain coefficients, as EncodePoly writes
// them) into a polynomial over ring r, transformed into domain with ToNTT
// when domain is DomainNTT. data must be exactly PolyByteLen(r.N, r.Q) bytes.
func DecodePoly(data []byte, r *ringq.Ring, domain ringq.Domain) (*ringq.Poly, error) {
	want := polyByteLen(r.N, r.Q)
	if len(data) != want {
		return nil, fmt.Errorf("codec: DecodePoly: got %d bytes, want exactly %d", len(data), want)
	}
	words, err := unpackCoeffs(data, r.N, bitsPerCoeff(r.Q))
	if err != nil {
		return nil, fmt.Errorf("codec: DecodePoly: %w", err)
	}
	coeffs := make([]int64, r.N)
	for i, w := range words {
		if w >= r.Q {
			return nil, fmt.Errorf("codec: DecodePoly: coefficient %d value %d out of range [0, %d)", i, w, r.Q)
		}
		coeffs[i] = int64(w)
	}
	p, err := r.NewFromCoeffs(coeffs)
	if err != nil {
		return nil, fmt.Errorf("codec: DecodePoly: %w", err)
	}
	if domain == ringq.DomainNTT {
		if err := p.ToNTT(); err != nil {
			return nil, fmt.Errorf("codec: DecodePoly: to NTT domain: %w", err)
		}
	}
	return p, nil
}
