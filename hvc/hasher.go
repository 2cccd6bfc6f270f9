// Package hvc implements the homomorphic vector commitment hasher and tree
// (spec.md §4.4, §4.5): a collision-resistant hash of two Rq_hvc
// polynomials into one, and the balanced binary tree built from it.
//
// Grounded directly on commitment.Commit/commitment.Verify in
// commitment/linear.go (a row-major matrix-vector product over Rq, and a
// recompute-and-compare verifier), generalized here from an arbitrary
// opening vector into the fixed "decompose two children, concatenate,
// multiply by the hasher matrix" map the SIS-based HVC hash requires.
package hvc

import (
	"fmt"

	"chipmunk"
	"chipmunk/internal/clog"
	"chipmunk/params"
	"chipmunk/ringq"
	"chipmunk/xof"
)

// Hasher is 2*HVC_WIDTH Rq_hvc polynomials (the matrix, in NTT domain, one
// per digit polynomial of the two decomposed children) plus the seed they
// were derived from. Immutable after Init; shareable
// read-only across goroutines (spec.md §5).
type Hasher struct {
	Table  params.Table
	Ring   *ringq.Ring
	Seed   [32]byte
	Matrix []*ringq.Poly // length 2*HVCWidth, NTT domain
	log    clog.Logger
}

// Init expands seed into the 2*HVC_WIDTH-wide hasher matrix (spec.md §4.4).
func Init(table params.Table, seed [32]byte, logger clog.Logger) (*Hasher, error) {
	logger = clog.OrDiscard(logger)
	if err := table.Validate(); err != nil {
		return nil, chipmunk.Wrapf(chipmunk.KindDomain, err, "hvc: init: invalid params")
	}
	r, err := ringq.New(table.N, table.QHVC, logger)
	if err != nil {
		return nil, chipmunk.Wrapf(chipmunk.KindAllocation, err, "hvc: init: build ring")
	}
	matrix, err := xof.ExpandMatrix(r, seed[:], "chipmunk/hvc/hasher", 2*table.HVCWidth)
	if err != nil {
		return nil, chipmunk.Wrapf(chipmunk.KindAllocation, err, "hvc: init: expand matrix")
	}
	logger.Log(clog.Info, "hvc", "init width=%d N=%d QHVC=%d", table.HVCWidth, table.N, table.QHVC)
	return &Hasher{Table: table, Ring: r, Seed: seed, Matrix: matrix, log: logger}, nil
}

// decompose splits a DomainNormal polynomial into HVCWidth short
// polynomials via balanced base-HVCBase digit expansion, so that
// p = Σ_k HVCBase^k * digits[k] coefficient-wise. This is the standard
// "decompose then matrix-multiply" short-integer-solution construction
// (spec.md §4.4's security rationale).
func (h *Hasher) decompose(p *ringq.Poly) ([]*ringq.Poly, error) {
	if p.Domain() != ringq.DomainNormal {
		return nil, chipmunk.Preconditionf("hvc: decompose: expected normal-domain polynomial")
	}
	coeffs, err := p.CenteredCoeffs()
	if err != nil {
		return nil, chipmunk.Wrapf(chipmunk.KindPrecondition, err, "hvc: decompose: centered coeffs")
	}
	width := h.Table.HVCWidth
	base := int64(h.Table.HVCBase)
	half := base / 2
	digitCoeffs := make([][]int64, width)
	for k := range digitCoeffs {
		digitCoeffs[k] = make([]int64, len(coeffs))
	}
	for i, c := range coeffs {
		v := c
		for k := 0; k < width; k++ {
			d := v % base
			if d > half {
				d -= base
			} else if d < -half {
				d += base
			}
			digitCoeffs[k][i] = d
			v = (v - d) / base
		}
	}
	out := make([]*ringq.Poly, width)
	for k := 0; k < width; k++ {
		dp, err := h.Ring.NewFromCoeffs(digitCoeffs[k])
		if err != nil {
			return nil, err
		}
		if err := dp.ToNTT(); err != nil {
			return nil, chipmunk.Wrapf(chipmunk.KindPrecondition, err, "hvc: decompose: digit %d to NTT", k)
		}
		out[k] = dp
	}
	return out, nil
}

// HashPair hashes two normal-domain Rq_hvc polynomials into one parent
// polynomial (spec.md §4.4). Deterministic: the same (hasher, left, right)
// always yields the same output.
func (h *Hasher) HashPair(left, right *ringq.Poly) (*ringq.Poly, error) {
	ld, err := h.decompose(left)
	if err != nil {
		return nil, fmt.Errorf("hvc: HashPair: left: %w", err)
	}
	rd, err := h.decompose(right)
	if err != nil {
		return nil, fmt.Errorf("hvc: HashPair: right: %w", err)
	}
	vec := append(append([]*ringq.Poly{}, ld...), rd...)
	if len(vec) != len(h.Matrix) {
		return nil, chipmunk.Domainf("hvc: HashPair: decomposition width %d does not match matrix width %d", len(vec), len(h.Matrix))
	}
	parent, err := ringq.Dot(h.Matrix, vec)
	if err != nil {
		return nil, chipmunk.Wrapf(chipmunk.KindPrecondition, err, "hvc: HashPair: matrix-vector product")
	}
	if err := parent.FromNTT(); err != nil {
		return nil, chipmunk.Wrapf(chipmunk.KindPrecondition, err, "hvc: HashPair: to normal domain")
	}
	parent.Reduce()
	return parent, nil
}

// LeafFromEmbedding hashes two embedded Rq_hvc polynomials (typically a
// participant's HOTS v0, v1 re-embedded into the HVC ring) into the single
// leaf polynomial spec.md §3 describes as "a polynomial derived from one
// participant's HOTS public key" (step 3 of the data/control flow in
// spec.md §2).
func (h *Hasher) LeafFromEmbedding(v0, v1 *ringq.Poly) (*ringq.Poly, error) {
	leaf, err := h.HashPair(v0, v1)
	if err != nil {
		return nil, fmt.Errorf("hvc: LeafFromEmbedding: %w", err)
	}
	return leaf, nil
}

// Embed re-expresses a DomainNormal polynomial from a different ring (e.g.
// HOTS's Rq) as an Rq_hvc polynomial, by centering its coefficients and
// re-reducing them modulo QHVC. Requires QHVC large enough that the source
// ring's centered coefficient range embeds without wraparound — true for
// the packaged parameter presets (params.Default has QHVC > Q).
func (h *Hasher) Embed(p *ringq.Poly) (*ringq.Poly, error) {
	if p.Domain() != ringq.DomainNormal {
		return nil, chipmunk.Preconditionf("hvc: Embed: expected normal-domain polynomial")
	}
	coeffs, err := p.CenteredCoeffs()
	if err != nil {
		return nil, chipmunk.Wrapf(chipmunk.KindPrecondition, err, "hvc: Embed: centered coeffs")
	}
	return h.Ring.NewFromCoeffs(coeffs)
}
