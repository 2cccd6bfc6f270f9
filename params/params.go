// Package params holds the domain parameters shared by every Chipmunk
// component: the ring degree, the HOTS and HVC moduli, the HOTS matrix
// width, the HVC hasher width, and the tree height bound. A Table is a plain
// value, taken from a preset (Default) or decoded with FromJSON; nothing in
// this package memoizes or mutates it, so it stays fixed once chosen.
package params

import (
	"encoding/json"
	"fmt"
	"io"
)

// Table is the fixed set of domain parameters every Chipmunk operation is
// built against. Signer and verifier must agree on an identical Table for
// interoperability (spec.md §6).
type Table struct {
	// N is the ring degree; must be a power of two.
	N int `json:"N"`
	// Q is the HOTS ring modulus (prime, Q ≡ 1 mod 2N so lattigo's NTT applies).
	Q uint64 `json:"q"`
	// QHVC is the HVC ring modulus (prime, QHVC ≡ 1 mod 2N).
	QHVC uint64 `json:"qHVC"`
	// Gamma is the width of the HOTS matrix A (number of Rq polynomials
	// per secret/public-key vector).
	Gamma int `json:"gamma"`
	// HVCWidth is the number of base-B digits each child is decomposed
	// into; the HVC hasher matrix holds 2*HVCWidth Rq_hvc polynomials.
	HVCWidth int `json:"hvcWidth"`
	// HVCBase is the digit base B used to decompose an Rq_hvc element into
	// HVCWidth short polynomials before hashing.
	HVCBase uint64 `json:"hvcBase"`
	// TreeHeightMax bounds tree height; LeafCountMax = 2^(TreeHeightMax-1).
	TreeHeightMax int `json:"treeHeightMax"`
	// SecretBound is the coefficient bound for HOTS secret polynomials
	// (coefficients lie in [-SecretBound, SecretBound]).
	SecretBound int64 `json:"secretBound"`
	// ChallengeWeight is the number of nonzero coefficients in a sampled
	// challenge polynomial H(m); the remaining N-ChallengeWeight
	// coefficients are zero.
	ChallengeWeight int `json:"challengeWeight"`
}

// LeafCountMax returns 2^(TreeHeightMax-1), the maximum number of HVC tree
// leaves this Table supports.
func (t Table) LeafCountMax() int {
	return 1 << (t.TreeHeightMax - 1)
}

// SigmaBound is the accept/reject infinity-norm bound for a HOTS signature
// slot σ_i = s0_i·c + s1_i. Both s0_i and s1_i have coefficients bounded by
// SecretBound, and c has exactly ChallengeWeight nonzero coefficients each
// in {-1, 0, 1}; the triangle inequality on the negacyclic convolution
// gives the bound below. A verifier rejects any signature whose decoded
// slot exceeds it, closing the norm-bound gap flagged in spec.md §9 (see
// DESIGN.md for the derivation and the decision record).
func (t Table) SigmaBound() int64 {
	return int64(t.ChallengeWeight)*t.SecretBound + t.SecretBound
}

// Validate checks internal consistency of a Table.
func (t Table) Validate() error {
	if t.N <= 0 || (t.N&(t.N-1)) != 0 {
		return fmt.Errorf("params: N must be a power of two, got %d", t.N)
	}
	if t.Q == 0 || t.QHVC == 0 {
		return fmt.Errorf("params: Q and QHVC must be nonzero")
	}
	if (t.Q-1)%uint64(2*t.N) != 0 {
		return fmt.Errorf("params: Q must be ≡ 1 mod 2N for the negacyclic NTT")
	}
	if (t.QHVC-1)%uint64(2*t.N) != 0 {
		return fmt.Errorf("params: QHVC must be ≡ 1 mod 2N for the negacyclic NTT")
	}
	if t.Gamma <= 0 {
		return fmt.Errorf("params: Gamma must be positive")
	}
	if t.HVCWidth <= 0 {
		return fmt.Errorf("params: HVCWidth must be positive")
	}
	if t.HVCBase < 2 {
		return fmt.Errorf("params: HVCBase must be at least 2")
	}
	if t.TreeHeightMax < 2 {
		return fmt.Errorf("params: TreeHeightMax must be at least 2")
	}
	if t.SecretBound <= 0 {
		return fmt.Errorf("params: SecretBound must be positive")
	}
	if t.ChallengeWeight <= 0 || t.ChallengeWeight > t.N {
		return fmt.Errorf("params: ChallengeWeight must be in (0, N]")
	}
	return nil
}

// Default returns the reference parameter set used by tests and the
// self-test CLI: N=64, Q=257, QHVC=769 (both NTT-friendly primes for N=64),
// Gamma=4, HVCWidth=4, HVCBase=6 (6^4=1296 ≥ 769), TreeHeightMax=4 (leaf
// bound 8, matching the five-signer/eight-leaf scenario in spec.md §8).
func Default() Table {
	return Table{
		N:               64,
		Q:               257,
		QHVC:            769,
		Gamma:           4,
		HVCWidth:        4,
		HVCBase:         6,
		TreeHeightMax:   4,
		SecretBound:     1,
		ChallengeWeight: 20,
	}
}

// FromJSON decodes a Table and validates it, grounded on ntru/io.LoadParams's
// tolerant-decode-then-validate discipline.
func FromJSON(r io.Reader) (Table, error) {
	var t Table
	dec := json.NewDecoder(r)
	if err := dec.Decode(&t); err != nil {
		return Table{}, fmt.Errorf("params: decode: %w", err)
	}
	if err := t.Validate(); err != nil {
		return Table{}, err
	}
	return t, nil
}

// ToJSON encodes a Table for persistence by a caller.
func ToJSON(w io.Writer, t Table) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(t)
}
