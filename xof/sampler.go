// Package xof is the Sampler component (spec.md §4.2): deterministic
// expansion of a seed into uniform Rq/Rq_hvc elements and bounded "small"
// polynomials, plus the message-to-challenge-polynomial map used by signing
// and verification. The core never touches the OS RNG — every output here
// is a pure function of its seed and domain separator.
//
// The stream source is SHAKE-256, the same primitive the teacher's
// decs.shake16 already uses for Merkle-tree hashing in DECS/merkle.go;
// this package generalizes it from a fixed 16-byte digest into an
// arbitrary-length keyed byte stream, and adds the rejection-sampling
// discipline from ntru/sampling_bounded.go's FillPolyBoundedFromPRNG (read
// words, reject above the largest multiple of the range to avoid modulo
// bias) instead of that file's external PRNG.
package xof

import (
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/sha3"

	"chipmunk/ringq"
)

// stream opens a SHAKE-256 XOF keyed by seed and a domain-separator label,
// returning a reader of unbounded deterministic pseudorandom bytes.
func stream(seed []byte, domainSep string) io.Reader {
	h := sha3.NewShake256()
	_, _ = h.Write([]byte(domainSep))
	_, _ = h.Write(seed)
	return h
}

// uniformWord reads an unbiased uint64 in [0, bound) from r, using the
// reject-above-threshold technique in ntru/sampling_bounded.go.
func uniformWord(r io.Reader, bound uint64) (uint64, error) {
	if bound == 0 {
		return 0, fmt.Errorf("xof: zero bound")
	}
	const maxUint64 = ^uint64(0)
	threshold := (maxUint64 / bound) * bound
	buf := make([]byte, 8)
	for {
		if _, err := io.ReadFull(r, buf); err != nil {
			return 0, fmt.Errorf("xof: stream read: %w", err)
		}
		word := binary.LittleEndian.Uint64(buf)
		if word < threshold {
			return word % bound, nil
		}
	}
}

// ExpandMatrix deterministically expands seed into count uniform Rq
// elements, returned in NTT domain (the representation HOTSParams and the
// HVC hasher matrix use). Used both for the HOTS public matrix A and the
// HVC hasher matrix (spec.md §4.2).
func ExpandMatrix(r *ringq.Ring, seed []byte, domainSep string, count int) ([]*ringq.Poly, error) {
	if count <= 0 {
		return nil, fmt.Errorf("xof: ExpandMatrix: count must be positive, got %d", count)
	}
	s := stream(seed, domainSep)
	out := make([]*ringq.Poly, count)
	for i := 0; i < count; i++ {
		coeffs := make([]int64, r.N)
		for j := 0; j < r.N; j++ {
			w, err := uniformWord(s, r.Q)
			if err != nil {
				return nil, fmt.Errorf("xof: ExpandMatrix: slot %d coeff %d: %w", i, j, err)
			}
			coeffs[j] = int64(w)
		}
		p, err := r.NewFromCoeffs(coeffs)
		if err != nil {
			return nil, err
		}
		if err := p.ToNTT(); err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

// SampleSmall deterministically derives a normal-domain polynomial with
// coefficients uniform in [-bound, bound], keyed by seed and domainSep.
// Used to derive HOTS secret-key slots from (seed, counter) (spec.md §4.2,
// §4.3).
func SampleSmall(r *ringq.Ring, seed []byte, domainSep string, bound int64) (*ringq.Poly, error) {
	if bound <= 0 {
		return nil, fmt.Errorf("xof: SampleSmall: bound must be positive, got %d", bound)
	}
	s := stream(seed, domainSep)
	span := uint64(2*bound + 1)
	coeffs := make([]int64, r.N)
	for i := 0; i < r.N; i++ {
		w, err := uniformWord(s, span)
		if err != nil {
			return nil, fmt.Errorf("xof: SampleSmall: coeff %d: %w", i, err)
		}
		coeffs[i] = int64(w) - bound
	}
	return r.NewFromCoeffs(coeffs)
}

// SampleScalar deterministically derives a nonzero scalar in [1, bound)
// keyed by seed and domainSep. Used by the Aggregator to derive the
// Fiat-Shamir combination weights it folds per-signer HOTS artifacts under
// (spec.md §4.6).
func SampleScalar(seed []byte, domainSep string, bound uint64) (uint64, error) {
	if bound < 2 {
		return 0, fmt.Errorf("xof: SampleScalar: bound must be at least 2, got %d", bound)
	}
	s := stream(seed, domainSep)
	w, err := uniformWord(s, bound-1)
	if err != nil {
		return 0, fmt.Errorf("xof: SampleScalar: %w", err)
	}
	return w + 1, nil
}

// Challenge maps an arbitrary message to a bounded challenge polynomial
// H(m): a normal-domain polynomial with exactly weight nonzero
// coefficients, each +1 or -1, at positions chosen without replacement from
// [0, N). This is the collision-resistant map spec.md §4.2 and §4.3 call
// for: both signer and verifier recompute the same H(m) from the message
// bytes alone.
func Challenge(r *ringq.Ring, message []byte, weight int) (*ringq.Poly, error) {
	if weight <= 0 || weight > r.N {
		return nil, fmt.Errorf("xof: Challenge: weight must be in (0, N], got %d", weight)
	}
	s := stream(message, "chipmunk/challenge")
	positions := make([]int, r.N)
	for i := range positions {
		positions[i] = i
	}
	// Fisher-Yates partial shuffle: draw `weight` positions without
	// replacement, then sign each independently.
	for i := 0; i < weight; i++ {
		span := uint64(r.N - i)
		j, err := uniformWord(s, span)
		if err != nil {
			return nil, fmt.Errorf("xof: Challenge: position %d: %w", i, err)
		}
		k := i + int(j)
		positions[i], positions[k] = positions[k], positions[i]
	}
	coeffs := make([]int64, r.N)
	for i := 0; i < weight; i++ {
		bit, err := uniformWord(s, 2)
		if err != nil {
			return nil, fmt.Errorf("xof: Challenge: sign %d: %w", i, err)
		}
		if bit == 0 {
			coeffs[positions[i]] = 1
		} else {
			coeffs[positions[i]] = -1
		}
	}
	return r.NewFromCoeffs(coeffs)
}
