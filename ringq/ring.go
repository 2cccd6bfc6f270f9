// Package ringq is the only place in this module where modular reduction,
// the number-theoretic transform, and polynomial multiplication live
// (spec.md §4.1). It wraps github.com/tuneinsight/lattigo/v4/ring, the same
// NTT/RNS library the teacher repo uses for its own ConvolveRNS, so that
// multiplication modulo x^N+1 reduces to a pointwise product in the
// transformed domain instead of a hand-rolled schoolbook convolution.
package ringq

import (
	"fmt"

	"github.com/tuneinsight/lattigo/v4/ring"

	"chipmunk/internal/clog"
)

// Domain tags whether a Poly's coefficients are in the normal (coefficient)
// representation or the NTT representation. Mixing domains in one operation
// is a programming error (spec.md §9's ring-domain design note): every
// arithmetic entry point below asserts its operands' domains before acting.
type Domain int

const (
	DomainNormal Domain = iota
	DomainNTT
)

func (d Domain) String() string {
	if d == DomainNTT {
		return "ntt"
	}
	return "normal"
}

// Ring wraps one lattigo ring.Ring for a single modulus Q and degree N.
// A Ring is built once (see New) and is immutable and safe for concurrent
// read-only use thereafter (spec.md §5).
type Ring struct {
	N      int
	Q      uint64
	inner  *ring.Ring
	log    clog.Logger
}

// New constructs a Ring for degree N and modulus Q. N must be a power of
// two; Q must make x^N+1 split completely, i.e. Q ≡ 1 mod 2N, which is what
// lets lattigo use the negacyclic NTT. Grounded on ntru.Params.BuildRings,
// generalized from the teacher's per-RNS-limb loop to a single explicit
// (N, Q) pair per Chipmunk ring (Rq or Rq_hvc each get their own Ring).
func New(n int, q uint64, logger clog.Logger) (*Ring, error) {
	logger = clog.OrDiscard(logger)
	if n <= 0 || (n&(n-1)) != 0 {
		return nil, fmt.Errorf("ringq: N must be a power of two, got %d", n)
	}
	logger.Log(clog.Debug, "ringq", "New N=%d Q=%d", n, q)
	r, err := ring.NewRing(n, []uint64{q})
	if err != nil {
		return nil, fmt.Errorf("ringq: lattigo NewRing: %w", err)
	}
	return &Ring{N: n, Q: q, inner: r, log: logger}, nil
}

// Zero returns the canonical zero polynomial. The zero polynomial is its
// own NTT image, so either domain tag would be valid; Zero always returns
// DomainNormal since that is the representation HVCTree pads leaves with
// (spec.md §4.5).
func (r *Ring) Zero() *Poly {
	return &Poly{ring: r, domain: DomainNormal, poly: r.inner.NewPoly()}
}

// NewFromCoeffs builds a normal-domain Poly from signed coefficients,
// reducing each into the canonical residue class mod Q.
func (r *Ring) NewFromCoeffs(coeffs []int64) (*Poly, error) {
	if len(coeffs) != r.N {
		return nil, fmt.Errorf("ringq: NewFromCoeffs: got %d coefficients, want %d", len(coeffs), r.N)
	}
	p := r.inner.NewPoly()
	q := int64(r.Q)
	for i, c := range coeffs {
		v := c % q
		if v < 0 {
			v += q
		}
		p.Coeffs[0][i] = uint64(v)
	}
	return &Poly{ring: r, domain: DomainNormal, poly: p}, nil
}

// Poly is a degree-N polynomial with coefficients modulo the owning Ring's
// Q, tagged with the domain its coefficients are currently expressed in.
type Poly struct {
	ring   *Ring
	domain Domain
	poly   *ring.Poly
}

// Domain reports whether p is in normal or NTT representation.
func (p *Poly) Domain() Domain { return p.domain }

// Ring returns the Ring p was constructed from.
func (p *Poly) Ring() *Ring { return p.ring }

func (p *Poly) assertDomain(want Domain, op string) error {
	if p.domain != want {
		p.ring.log.Log(clog.Error, "ringq", "%s: expected %s domain, got %s", op, want, p.domain)
		return fmt.Errorf("ringq: %s: expected %s-domain operand, got %s", op, want, p.domain)
	}
	return nil
}

func sameRing(a, b *Poly, op string) error {
	if a.ring != b.ring {
		return fmt.Errorf("ringq: %s: operands belong to different rings", op)
	}
	if a.domain != b.domain {
		return fmt.Errorf("ringq: %s: domain mismatch (%s vs %s)", op, a.domain, b.domain)
	}
	return nil
}

// Clone returns an independent copy of p.
func (p *Poly) Clone() *Poly {
	out := p.ring.inner.NewPoly()
	copy(out.Coeffs[0], p.poly.Coeffs[0])
	return &Poly{ring: p.ring, domain: p.domain, poly: out}
}

// Coeffs returns the canonical (non-negative, < Q) coefficient
// representation of p, regardless of domain — callers that want the
// coefficient-domain representation must call FromNTT first.
func (p *Poly) Coeffs() []uint64 {
	out := make([]uint64, p.ring.N)
	copy(out, p.poly.Coeffs[0])
	return out
}

// CenteredCoeffs returns p's coefficients (which must be in DomainNormal)
// as signed integers in the balanced range (-Q/2, Q/2], the representation
// invariants and norm checks are stated against (spec.md §3).
func (p *Poly) CenteredCoeffs() ([]int64, error) {
	if err := p.assertDomain(DomainNormal, "CenteredCoeffs"); err != nil {
		return nil, err
	}
	q := int64(p.ring.Q)
	half := q / 2
	out := make([]int64, p.ring.N)
	for i, c := range p.poly.Coeffs[0] {
		v := int64(c)
		if v > half {
			v -= q
		}
		out[i] = v
	}
	return out, nil
}

// Reduce maps every coefficient of p into its canonical residue class.
// Idempotent, as required by spec.md §4.1.
func (p *Poly) Reduce() {
	q := p.ring.Q
	for i, c := range p.poly.Coeffs[0] {
		if c >= q {
			p.poly.Coeffs[0][i] = c % q
		}
	}
}

// Equal reports whether a and b have identical coefficients in the same
// ring and domain.
func Equal(a, b *Poly) bool {
	if a.ring != b.ring || a.domain != b.domain {
		return false
	}
	return a.ring.inner.Equal(a.poly, b.poly)
}

// Add returns a+b, reduced. Both operands must share a ring and domain.
func Add(a, b *Poly) (*Poly, error) {
	if err := sameRing(a, b, "Add"); err != nil {
		return nil, err
	}
	out := a.ring.inner.NewPoly()
	a.ring.inner.Add(a.poly, b.poly, out)
	return &Poly{ring: a.ring, domain: a.domain, poly: out}, nil
}

// Sub returns a-b, reduced. Both operands must share a ring and domain.
func Sub(a, b *Poly) (*Poly, error) {
	if err := sameRing(a, b, "Sub"); err != nil {
		return nil, err
	}
	out := a.ring.inner.NewPoly()
	a.ring.inner.Sub(a.poly, b.poly, out)
	return &Poly{ring: a.ring, domain: a.domain, poly: out}, nil
}

// Neg returns -a, reduced.
func Neg(a *Poly) *Poly {
	out := a.ring.inner.NewPoly()
	a.ring.inner.Neg(a.poly, out)
	p := &Poly{ring: a.ring, domain: a.domain, poly: out}
	p.Reduce()
	return p
}

// ToNTT transforms p in place from DomainNormal to DomainNTT. Reversible by
// FromNTT. Internally brings the polynomial into Montgomery form before the
// transform and keeps it there, mirroring ConvolveRNS in the teacher's
// ntru/ntt.go so that MulNTT below is a single MulCoeffsMontgomery call.
func (p *Poly) ToNTT() error {
	if err := p.assertDomain(DomainNormal, "ToNTT"); err != nil {
		return err
	}
	p.ring.inner.MForm(p.poly, p.poly)
	p.ring.inner.NTT(p.poly, p.poly)
	p.domain = DomainNTT
	return nil
}

// FromNTT transforms p in place from DomainNTT back to DomainNormal.
func (p *Poly) FromNTT() error {
	if err := p.assertDomain(DomainNTT, "FromNTT"); err != nil {
		return err
	}
	p.ring.inner.InvNTT(p.poly, p.poly)
	p.ring.inner.InvMForm(p.poly, p.poly)
	p.domain = DomainNormal
	return nil
}

// MulNTT returns the pointwise product of a and b; both must already be in
// DomainNTT. This is the only multiplication primitive the core offers —
// spec.md §4.1 requires all polynomial multiplication to go through the
// NTT domain.
func MulNTT(a, b *Poly) (*Poly, error) {
	if err := a.assertDomain(DomainNTT, "MulNTT"); err != nil {
		return nil, err
	}
	if err := sameRing(a, b, "MulNTT"); err != nil {
		return nil, err
	}
	out := a.ring.inner.NewPoly()
	a.ring.inner.MulCoeffsMontgomery(a.poly, b.poly, out)
	return &Poly{ring: a.ring, domain: DomainNTT, poly: out}, nil
}

// SmallMul broadcasts a multiply of scalarPoly over a vector: each slot of
// vec is independently multiplied by scalarPoly via MulNTT. All inputs
// (scalarPoly and every element of vec) must be in DomainNTT.
func SmallMul(scalarPoly *Poly, vec []*Poly) ([]*Poly, error) {
	out := make([]*Poly, len(vec))
	for i, v := range vec {
		p, err := MulNTT(scalarPoly, v)
		if err != nil {
			return nil, fmt.Errorf("ringq: SmallMul: slot %d: %w", i, err)
		}
		out[i] = p
	}
	return out, nil
}

// ScalarMul multiplies every coefficient of p by an integer scalar mod Q.
// Because the NTT is linear, scaling by a genuine integer scalar commutes
// with the transform: the result is valid in whichever domain p is in.
// Used by the Aggregator to form the Fiat-Shamir-weighted linear
// combination of per-signer artifacts (spec.md §4.6). Restricted to moduli
// below 2^32 so the coefficient product cannot overflow a uint64.
func ScalarMul(p *Poly, scalar uint64) (*Poly, error) {
	if p.ring.Q >= 1<<32 {
		return nil, fmt.Errorf("ringq: ScalarMul: modulus %d too large for overflow-free uint64 product", p.ring.Q)
	}
	q := p.ring.Q
	s := scalar % q
	out := p.ring.inner.NewPoly()
	for i, c := range p.poly.Coeffs[0] {
		out.Coeffs[0][i] = (c * s) % q
	}
	return &Poly{ring: p.ring, domain: p.domain, poly: out}, nil
}

// Dot computes Σ MulNTT(a[i], b[i]) over two equal-length vectors of
// DomainNTT polynomials — the A·s inner product HOTS keygen and
// verification need (spec.md §4.3).
func Dot(a, b []*Poly) (*Poly, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("ringq: Dot: length mismatch (%d vs %d)", len(a), len(b))
	}
	if len(a) == 0 {
		return nil, fmt.Errorf("ringq: Dot: empty vectors")
	}
	terms := make([]*Poly, len(a))
	for i := range a {
		t, err := MulNTT(a[i], b[i])
		if err != nil {
			return nil, fmt.Errorf("ringq: Dot: slot %d: %w", i, err)
		}
		terms[i] = t
	}
	return Sum(terms)
}

// LinearCombination returns Σ weights[i]*polys[i]. Used by the Aggregator
// to combine per-signer HOTS artifacts under Fiat-Shamir weights
// (spec.md §4.6).
func LinearCombination(polys []*Poly, weights []uint64) (*Poly, error) {
	if len(polys) != len(weights) {
		return nil, fmt.Errorf("ringq: LinearCombination: length mismatch (%d polys, %d weights)", len(polys), len(weights))
	}
	if len(polys) == 0 {
		return nil, fmt.Errorf("ringq: LinearCombination: empty input")
	}
	terms := make([]*Poly, len(polys))
	for i := range polys {
		t, err := ScalarMul(polys[i], weights[i])
		if err != nil {
			return nil, fmt.Errorf("ringq: LinearCombination: term %d: %w", i, err)
		}
		terms[i] = t
	}
	return Sum(terms)
}

// LinearCombinationVectors returns Σ weights[i]*vecs[i], where every vecs[i]
// is an equal-length vector of polynomials (e.g. a Gamma-wide HOTS
// signature); the combination is taken slot by slot.
func LinearCombinationVectors(vecs [][]*Poly, weights []uint64) ([]*Poly, error) {
	if len(vecs) != len(weights) {
		return nil, fmt.Errorf("ringq: LinearCombinationVectors: length mismatch (%d vecs, %d weights)", len(vecs), len(weights))
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("ringq: LinearCombinationVectors: empty input")
	}
	width := len(vecs[0])
	out := make([]*Poly, width)
	for slot := 0; slot < width; slot++ {
		slotPolys := make([]*Poly, len(vecs))
		for i, v := range vecs {
			if len(v) != width {
				return nil, fmt.Errorf("ringq: LinearCombinationVectors: vector %d has width %d, want %d", i, len(v), width)
			}
			slotPolys[i] = v[slot]
		}
		s, err := LinearCombination(slotPolys, weights)
		if err != nil {
			return nil, fmt.Errorf("ringq: LinearCombinationVectors: slot %d: %w", slot, err)
		}
		out[slot] = s
	}
	return out, nil
}

// Sum adds a vector of polynomials (all sharing a ring and domain) into one.
func Sum(vec []*Poly) (*Poly, error) {
	if len(vec) == 0 {
		return nil, fmt.Errorf("ringq: Sum: empty vector")
	}
	acc := vec[0].Clone()
	for i := 1; i < len(vec); i++ {
		s, err := Add(acc, vec[i])
		if err != nil {
			return nil, fmt.Errorf("ringq: Sum: slot %d: %w", i, err)
		}
		acc = s
	}
	return acc, nil
}
