package xof

import (
	"testing"

	"chipmunk/ringq"
)

func testRing(t *testing.T) *ringq.Ring {
	t.Helper()
	r, err := ringq.New(64, 257, nil)
	if err != nil {
		t.Fatalf("ringq.New: %v", err)
	}
	return r
}

func TestExpandMatrixDeterministic(t *testing.T) {
	r := testRing(t)
	seed := []byte("seed-a")
	a, err := ExpandMatrix(r, seed, "test/expand", 4)
	if err != nil {
		t.Fatalf("ExpandMatrix: %v", err)
	}
	b, err := ExpandMatrix(r, seed, "test/expand", 4)
	if err != nil {
		t.Fatalf("ExpandMatrix: %v", err)
	}
	for i := range a {
		if !ringq.Equal(a[i], b[i]) {
			t.Fatalf("ExpandMatrix not deterministic at slot %d", i)
		}
	}
}

func TestExpandMatrixDomainSeparation(t *testing.T) {
	r := testRing(t)
	seed := []byte("seed-a")
	a, err := ExpandMatrix(r, seed, "test/expand/1", 1)
	if err != nil {
		t.Fatalf("ExpandMatrix: %v", err)
	}
	b, err := ExpandMatrix(r, seed, "test/expand/2", 1)
	if err != nil {
		t.Fatalf("ExpandMatrix: %v", err)
	}
	if ringq.Equal(a[0], b[0]) {
		t.Fatalf("distinct domain separators produced identical output")
	}
}

func TestSampleSmallWithinBound(t *testing.T) {
	r := testRing(t)
	p, err := SampleSmall(r, []byte("seed"), "test/small", 1)
	if err != nil {
		t.Fatalf("SampleSmall: %v", err)
	}
	centered, err := p.CenteredCoeffs()
	if err != nil {
		t.Fatalf("CenteredCoeffs: %v", err)
	}
	for i, c := range centered {
		if c < -1 || c > 1 {
			t.Fatalf("coefficient %d = %d out of [-1,1]", i, c)
		}
	}
}

func TestSampleScalarRange(t *testing.T) {
	for i := 0; i < 32; i++ {
		w, err := SampleScalar([]byte("seed"), "test/scalar", 257)
		if err != nil {
			t.Fatalf("SampleScalar: %v", err)
		}
		if w == 0 || w >= 257 {
			t.Fatalf("SampleScalar out of range: %d", w)
		}
		_ = i
	}
}

func TestChallengeWeightAndSigns(t *testing.T) {
	r := testRing(t)
	c, err := Challenge(r, []byte("hello world"), 20)
	if err != nil {
		t.Fatalf("Challenge: %v", err)
	}
	centered, err := c.CenteredCoeffs()
	if err != nil {
		t.Fatalf("CenteredCoeffs: %v", err)
	}
	nonzero := 0
	for _, v := range centered {
		if v != 0 {
			nonzero++
			if v != 1 && v != -1 {
				t.Fatalf("challenge coefficient not ±1: %d", v)
			}
		}
	}
	if nonzero != 20 {
		t.Fatalf("challenge weight = %d, want 20", nonzero)
	}
}

func TestChallengeDeterministic(t *testing.T) {
	r := testRing(t)
	msg := []byte("sign this message")
	c1, err := Challenge(r, msg, 20)
	if err != nil {
		t.Fatalf("Challenge: %v", err)
	}
	c2, err := Challenge(r, msg, 20)
	if err != nil {
		t.Fatalf("Challenge: %v", err)
	}
	if !ringq.Equal(c1, c2) {
		t.Fatalf("Challenge not deterministic for identical message")
	}
}

func TestChallengeDifferentMessagesDiffer(t *testing.T) {
	r := testRing(t)
	c1, err := Challenge(r, []byte("message one"), 20)
	if err != nil {
		t.Fatalf("Challenge: %v", err)
	}
	c2, err := Challenge(r, []byte("message two"), 20)
	if err != nil {
		t.Fatalf("Challenge: %v", err)
	}
	if ringq.Equal(c1, c2) {
		t.Fatalf("distinct messages produced identical challenges")
	}
}
