package ringq

import "testing"

func testRing(t *testing.T) *Ring {
	t.Helper()
	r, err := New(64, 257, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r
}

func TestNTTRoundTrip(t *testing.T) {
	r := testRing(t)
	coeffs := make([]int64, r.N)
	for i := range coeffs {
		coeffs[i] = int64(i%7) - 3
	}
	p, err := r.NewFromCoeffs(coeffs)
	if err != nil {
		t.Fatalf("NewFromCoeffs: %v", err)
	}
	original := p.Clone()
	if err := p.ToNTT(); err != nil {
		t.Fatalf("ToNTT: %v", err)
	}
	if p.Domain() != DomainNTT {
		t.Fatalf("domain after ToNTT = %v, want DomainNTT", p.Domain())
	}
	if err := p.FromNTT(); err != nil {
		t.Fatalf("FromNTT: %v", err)
	}
	if !Equal(p, original) {
		t.Fatalf("round trip through NTT changed coefficients")
	}
}

func TestMulNTTAgreesWithConvolution(t *testing.T) {
	r := testRing(t)
	a, err := r.NewFromCoeffs(oneHot(r.N, 1, 1))
	if err != nil {
		t.Fatalf("NewFromCoeffs a: %v", err)
	}
	b, err := r.NewFromCoeffs(oneHot(r.N, 2, 1))
	if err != nil {
		t.Fatalf("NewFromCoeffs b: %v", err)
	}
	if err := a.ToNTT(); err != nil {
		t.Fatalf("a.ToNTT: %v", err)
	}
	if err := b.ToNTT(); err != nil {
		t.Fatalf("b.ToNTT: %v", err)
	}
	prod, err := MulNTT(a, b)
	if err != nil {
		t.Fatalf("MulNTT: %v", err)
	}
	if err := prod.FromNTT(); err != nil {
		t.Fatalf("prod.FromNTT: %v", err)
	}
	// x^1 * x^2 = x^3 in the coefficient ring.
	want, err := r.NewFromCoeffs(oneHot(r.N, 3, 1))
	if err != nil {
		t.Fatalf("NewFromCoeffs want: %v", err)
	}
	if !Equal(prod, want) {
		t.Fatalf("x^1 * x^2 != x^3 under MulNTT")
	}
}

func TestMulNTTNegacyclicWraparound(t *testing.T) {
	r := testRing(t)
	// x^(N-1) * x^1 = x^N = -1 (mod x^N+1).
	a, err := r.NewFromCoeffs(oneHot(r.N, r.N-1, 1))
	if err != nil {
		t.Fatalf("NewFromCoeffs a: %v", err)
	}
	b, err := r.NewFromCoeffs(oneHot(r.N, 1, 1))
	if err != nil {
		t.Fatalf("NewFromCoeffs b: %v", err)
	}
	if err := a.ToNTT(); err != nil {
		t.Fatalf("a.ToNTT: %v", err)
	}
	if err := b.ToNTT(); err != nil {
		t.Fatalf("b.ToNTT: %v", err)
	}
	prod, err := MulNTT(a, b)
	if err != nil {
		t.Fatalf("MulNTT: %v", err)
	}
	if err := prod.FromNTT(); err != nil {
		t.Fatalf("prod.FromNTT: %v", err)
	}
	want, err := r.NewFromCoeffs(oneHot(r.N, 0, -1))
	if err != nil {
		t.Fatalf("NewFromCoeffs want: %v", err)
	}
	if !Equal(prod, want) {
		t.Fatalf("negacyclic wraparound failed: x^(N-1)*x != -1")
	}
}

func TestDomainMismatchRejected(t *testing.T) {
	r := testRing(t)
	a, _ := r.NewFromCoeffs(make([]int64, r.N))
	b, _ := r.NewFromCoeffs(make([]int64, r.N))
	if err := b.ToNTT(); err != nil {
		t.Fatalf("b.ToNTT: %v", err)
	}
	if _, err := MulNTT(a, b); err == nil {
		t.Fatalf("MulNTT accepted mismatched domains")
	}
	if _, err := Add(a, b); err == nil {
		t.Fatalf("Add accepted mismatched domains")
	}
}

func TestCenteredCoeffsBalanced(t *testing.T) {
	r := testRing(t)
	p, err := r.NewFromCoeffs(oneHot(r.N, 0, -1))
	if err != nil {
		t.Fatalf("NewFromCoeffs: %v", err)
	}
	centered, err := p.CenteredCoeffs()
	if err != nil {
		t.Fatalf("CenteredCoeffs: %v", err)
	}
	if centered[0] != -1 {
		t.Fatalf("centered[0] = %d, want -1", centered[0])
	}
	for i := 1; i < len(centered); i++ {
		if centered[i] != 0 {
			t.Fatalf("centered[%d] = %d, want 0", i, centered[i])
		}
	}
}

func TestLinearCombination(t *testing.T) {
	r := testRing(t)
	a, _ := r.NewFromCoeffs(oneHot(r.N, 0, 1))
	b, _ := r.NewFromCoeffs(oneHot(r.N, 0, 1))
	got, err := LinearCombination([]*Poly{a, b}, []uint64{2, 3})
	if err != nil {
		t.Fatalf("LinearCombination: %v", err)
	}
	want, _ := r.NewFromCoeffs(oneHot(r.N, 0, 5))
	if !Equal(got, want) {
		t.Fatalf("LinearCombination(2a+3b) mismatch")
	}
}

// oneHot builds a coefficient slice of length n with value v at position
// pos and zero elsewhere.
func oneHot(n, pos int, v int64) []int64 {
	out := make([]int64, n)
	out[pos] = v
	return out
}
