// Package hots implements the homomorphic one-time signature (spec.md
// §4.3): setup of the public matrix A, keygen from (seed, counter), sign,
// and verify. HOTS is linear in the secret, which is what lets Aggregator
// later combine per-signer signatures without widening the result.
//
// Grounded on the teacher's NTRU trapdoor keygen/sign/verify split
// (ntru/keygen.go, ntru/signverify/signverify.go) and its acceptance
// predicate pattern (ntru.CheckNormC): this implementation keeps the same
// "compute both sides of a linear congruence, then apply a norm bound before
// accepting" shape, generalized from NTRU-solve sampling to the simpler
// one-time HOTS equation spec.md §4.3 specifies, and with the norm bound
// fixed as params.Table.SigmaBound rather than left implicit (see
// DESIGN.md for that Open Question's resolution).
package hots

import (
	"encoding/binary"
	"fmt"

	"chipmunk"
	"chipmunk/internal/clog"
	"chipmunk/params"
	"chipmunk/ringq"
	"chipmunk/xof"
)

// setupSeed is the fixed domain separator HOTS setup expands its public
// matrix A from. Setup is deterministic and takes no external seed
// (spec.md §4.3): every process that agrees on params.Table gets the same A.
var setupSeed = []byte("chipmunk-hots-public-parameters-v1")

// Params bundles the domain parameters, their Ring, and the public matrix A
// (Gamma NTT-domain polynomials). Immutable after Setup, safe to share
// across goroutines (spec.md §5).
type Params struct {
	Table params.Table
	Ring  *ringq.Ring
	A     []*ringq.Poly
	log   clog.Logger
}

// Setup builds HOTSParams: the Gamma-element matrix A in NTT form,
// deterministic from a fixed domain separator (spec.md §4.3).
func Setup(table params.Table, logger clog.Logger) (*Params, error) {
	logger = clog.OrDiscard(logger)
	if err := table.Validate(); err != nil {
		return nil, chipmunk.Wrapf(chipmunk.KindDomain, err, "hots: setup: invalid params")
	}
	r, err := ringq.New(table.N, table.Q, logger)
	if err != nil {
		return nil, chipmunk.Wrapf(chipmunk.KindAllocation, err, "hots: setup: build ring")
	}
	logger.Log(clog.Info, "hots", "setup gamma=%d N=%d Q=%d", table.Gamma, table.N, table.Q)
	a, err := xof.ExpandMatrix(r, setupSeed, "chipmunk/hots/A", table.Gamma)
	if err != nil {
		return nil, chipmunk.Wrapf(chipmunk.KindAllocation, err, "hots: setup: expand A")
	}
	return &Params{Table: table, Ring: r, A: a, log: logger}, nil
}

// SecretKey is two length-Gamma vectors of small Rq polynomials (s0, s1),
// held in NTT domain (spec.md §3). Each (seed, counter) pair must be used
// to produce at most one signature; the core does not enforce this.
type SecretKey struct {
	S0, S1 []*ringq.Poly
}

// PublicKey is v0 = Σ A_i·s0_i, v1 = Σ A_i·s1_i, both in NTT domain.
type PublicKey struct {
	V0, V1 *ringq.Poly
}

// Signature is σ = s0·H(m) + s1, a length-Gamma vector in NTT domain.
type Signature struct {
	Sigma []*ringq.Poly
}

func slotSeed(seed [32]byte, counter uint32) []byte {
	buf := make([]byte, 32+4)
	copy(buf, seed[:])
	binary.LittleEndian.PutUint32(buf[32:], counter)
	return buf
}

// Keygen derives (pk, sk) from a seed and counter. Distinct domain
// separators keep the s0 and s1 vectors, and every slot within them,
// independent (spec.md §4.3).
func (p *Params) Keygen(seed [32]byte, counter uint32) (*PublicKey, *SecretKey, error) {
	base := slotSeed(seed, counter)
	sk := &SecretKey{
		S0: make([]*ringq.Poly, p.Table.Gamma),
		S1: make([]*ringq.Poly, p.Table.Gamma),
	}
	for i := 0; i < p.Table.Gamma; i++ {
		s0i, err := xof.SampleSmall(p.Ring, base, fmt.Sprintf("chipmunk/hots/s0/%d", i), p.Table.SecretBound)
		if err != nil {
			return nil, nil, chipmunk.Wrapf(chipmunk.KindAllocation, err, "hots: keygen: sample s0[%d]", i)
		}
		if err := s0i.ToNTT(); err != nil {
			return nil, nil, chipmunk.Wrapf(chipmunk.KindPrecondition, err, "hots: keygen: s0[%d] to NTT", i)
		}
		s1i, err := xof.SampleSmall(p.Ring, base, fmt.Sprintf("chipmunk/hots/s1/%d", i), p.Table.SecretBound)
		if err != nil {
			return nil, nil, chipmunk.Wrapf(chipmunk.KindAllocation, err, "hots: keygen: sample s1[%d]", i)
		}
		if err := s1i.ToNTT(); err != nil {
			return nil, nil, chipmunk.Wrapf(chipmunk.KindPrecondition, err, "hots: keygen: s1[%d] to NTT", i)
		}
		sk.S0[i], sk.S1[i] = s0i, s1i
	}
	v0, err := ringq.Dot(p.A, sk.S0)
	if err != nil {
		return nil, nil, chipmunk.Wrapf(chipmunk.KindPrecondition, err, "hots: keygen: v0")
	}
	v1, err := ringq.Dot(p.A, sk.S1)
	if err != nil {
		return nil, nil, chipmunk.Wrapf(chipmunk.KindPrecondition, err, "hots: keygen: v1")
	}
	p.log.Log(clog.Debug, "hots", "keygen counter=%d done", counter)
	return &PublicKey{V0: v0, V1: v1}, sk, nil
}

// challenge recomputes H(m) in NTT domain; both Sign and Verify call this
// so they always agree on the same challenge.
func (p *Params) challenge(message []byte) (*ringq.Poly, error) {
	c, err := xof.Challenge(p.Ring, message, p.Table.ChallengeWeight)
	if err != nil {
		return nil, chipmunk.Wrapf(chipmunk.KindAllocation, err, "hots: challenge")
	}
	if err := c.ToNTT(); err != nil {
		return nil, chipmunk.Wrapf(chipmunk.KindPrecondition, err, "hots: challenge to NTT")
	}
	return c, nil
}

// Sign computes σ_i = s0_i·H(m) + s1_i for every slot (spec.md §4.3).
func (p *Params) Sign(sk *SecretKey, message []byte) (*Signature, error) {
	if sk == nil || len(sk.S0) != p.Table.Gamma || len(sk.S1) != p.Table.Gamma {
		return nil, chipmunk.Domainf("hots: sign: malformed secret key")
	}
	c, err := p.challenge(message)
	if err != nil {
		return nil, err
	}
	sigma := make([]*ringq.Poly, p.Table.Gamma)
	for i := 0; i < p.Table.Gamma; i++ {
		term, err := ringq.MulNTT(sk.S0[i], c)
		if err != nil {
			return nil, chipmunk.Wrapf(chipmunk.KindPrecondition, err, "hots: sign: slot %d multiply", i)
		}
		slot, err := ringq.Add(term, sk.S1[i])
		if err != nil {
			return nil, chipmunk.Wrapf(chipmunk.KindPrecondition, err, "hots: sign: slot %d add", i)
		}
		slot.Reduce()
		sigma[i] = slot
	}
	p.log.Log(clog.Trace, "hots", "sign: produced %d-slot signature", p.Table.Gamma)
	return &Signature{Sigma: sigma}, nil
}

// Verify checks the HOTS linear equation L = Σ A_i·σ_i against
// R = v0·H(m) + v1, and rejects any σ_i whose centered coefficients exceed
// params.Table.SigmaBound (spec.md §4.3's norm-bound requirement). Returns
// (valid, error): error is non-nil only for malformed input, never for a
// signature that simply fails to verify.
func (p *Params) Verify(pk *PublicKey, message []byte, sig *Signature) (bool, error) {
	if pk == nil || pk.V0 == nil || pk.V1 == nil {
		return false, chipmunk.Domainf("hots: verify: malformed public key")
	}
	if sig == nil || len(sig.Sigma) != p.Table.Gamma {
		return false, chipmunk.Domainf("hots: verify: signature has wrong slot count")
	}
	bound := p.Table.SigmaBound()
	for i, slot := range sig.Sigma {
		coeffSlot := slot.Clone()
		if err := coeffSlot.FromNTT(); err != nil {
			return false, chipmunk.Wrapf(chipmunk.KindPrecondition, err, "hots: verify: slot %d to coeff domain", i)
		}
		centered, err := coeffSlot.CenteredCoeffs()
		if err != nil {
			return false, chipmunk.Wrapf(chipmunk.KindPrecondition, err, "hots: verify: slot %d centered coeffs", i)
		}
		for _, c := range centered {
			if c > bound || c < -bound {
				p.log.Log(clog.Debug, "hots", "verify: slot %d exceeds norm bound %d", i, bound)
				return false, nil
			}
		}
	}
	c, err := p.challenge(message)
	if err != nil {
		return false, err
	}
	l, err := ringq.Dot(p.A, sig.Sigma)
	if err != nil {
		return false, chipmunk.Wrapf(chipmunk.KindPrecondition, err, "hots: verify: compute L")
	}
	rhsTerm, err := ringq.MulNTT(pk.V0, c)
	if err != nil {
		return false, chipmunk.Wrapf(chipmunk.KindPrecondition, err, "hots: verify: v0*c")
	}
	rhs, err := ringq.Add(rhsTerm, pk.V1)
	if err != nil {
		return false, chipmunk.Wrapf(chipmunk.KindPrecondition, err, "hots: verify: +v1")
	}
	l.Reduce()
	rhs.Reduce()
	ok := ringq.Equal(l, rhs)
	if !ok {
		p.log.Log(clog.Debug, "hots", "verify: equation mismatch")
	}
	return ok, nil
}
