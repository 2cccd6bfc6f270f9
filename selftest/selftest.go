// Package selftest is the health check spec.md §6 requires every Chipmunk
// deployment to be able to run: keygen, sign, verify, tree build, aggregate,
// and aggregate-verify chained end to end against a shared Table, so a fresh
// build or a config change can be confirmed sound in one call before it is
// trusted with real messages.
//
// Grounded on cmd/keycheck's single-pass "build everything, verify it holds,
// report failure immediately" structure, generalized here from one NTRU key
// pair to the full multi-party Chipmunk pipeline.
package selftest

import (
	"fmt"

	"chipmunk"
	"chipmunk/aggregate"
	"chipmunk/hots"
	"chipmunk/hvc"
	"chipmunk/internal/clog"
	"chipmunk/params"
	"chipmunk/ringq"
)

// Report is the outcome of one self-test run: which stage it reached and,
// on failure, why.
type Report struct {
	Table      params.Table
	Signers    int
	Stage      string
	OK         bool
	FailReason string
}

// Run exercises the full Chipmunk pipeline with signers participants over a
// fixed demonstration tree, using table as the shared domain parameters.
// Run never returns an error for a signature or proof that fails to
// verify — that is reported as a failed Report — but does return an error
// for a malformed table or an internal allocation failure.
func Run(table params.Table, signers int, logger clog.Logger) (*Report, error) {
	logger = clog.OrDiscard(logger)
	report := &Report{Table: table, Signers: signers}

	if signers <= 0 || signers > table.LeafCountMax() {
		return nil, chipmunk.Domainf("selftest: signers=%d out of range (0, %d]", signers, table.LeafCountMax())
	}

	report.Stage = "hots.Setup"
	hotsParams, err := hots.Setup(table, logger)
	if err != nil {
		return nil, fmt.Errorf("selftest: %s: %w", report.Stage, err)
	}

	var hvcSeed [32]byte
	copy(hvcSeed[:], []byte("chipmunk-selftest-hvc-seed-fixed"))
	report.Stage = "hvc.Init"
	hasher, err := hvc.Init(table, hvcSeed, logger)
	if err != nil {
		return nil, fmt.Errorf("selftest: %s: %w", report.Stage, err)
	}

	message := []byte("chipmunk self-test message")

	type signer struct {
		pk *hots.PublicKey
		sk *hots.SecretKey
	}
	signerList := make([]signer, signers)
	pks := make([]*hots.PublicKey, signers)
	for i := 0; i < signers; i++ {
		var seed [32]byte
		copy(seed[:], fmt.Sprintf("chipmunk-selftest-signer-seed-%02d", i))
		report.Stage = fmt.Sprintf("hots.Keygen[%d]", i)
		pk, sk, err := hotsParams.Keygen(seed, 0)
		if err != nil {
			return nil, fmt.Errorf("selftest: %s: %w", report.Stage, err)
		}
		signerList[i] = signer{pk: pk, sk: sk}
		pks[i] = pk
	}

	report.Stage = "hvc.leaves"
	leaves, err := buildLeaves(hasher, pks)
	if err != nil {
		return nil, fmt.Errorf("selftest: %s: %w", report.Stage, err)
	}

	report.Stage = "hvc.Build"
	tree, err := hvc.Build(hasher, leaves, signers, logger)
	if err != nil {
		return nil, fmt.Errorf("selftest: %s: %w", report.Stage, err)
	}

	individuals := make([]aggregate.IndividualSignature, signers)
	for i, s := range signerList {
		report.Stage = fmt.Sprintf("hots.Sign[%d]", i)
		sig, err := hotsParams.Sign(s.sk, message)
		if err != nil {
			return nil, fmt.Errorf("selftest: %s: %w", report.Stage, err)
		}
		ok, err := hotsParams.Verify(s.pk, message, sig)
		if err != nil {
			return nil, fmt.Errorf("selftest: %s: %w", report.Stage, err)
		}
		if !ok {
			report.OK = false
			report.FailReason = fmt.Sprintf("participant %d: HOTS signature did not verify", i)
			return report, nil
		}
		path, err := tree.GenProof(i)
		if err != nil {
			return nil, fmt.Errorf("selftest: hvc.GenProof[%d]: %w", i, err)
		}
		individuals[i] = aggregate.IndividualSignature{Sigma: sig, PK: s.pk, Path: path, Index: uint32(i)}
	}

	agg := aggregate.New(hotsParams, hasher, logger)
	report.Stage = "aggregate.Aggregate"
	aggSig, err := agg.Aggregate(message, individuals, tree)
	if err != nil {
		report.OK = false
		report.FailReason = err.Error()
		return report, nil
	}

	report.Stage = "aggregate.Verify"
	ok, err := agg.Verify(aggSig, message)
	if err != nil {
		return nil, fmt.Errorf("selftest: %s: %w", report.Stage, err)
	}
	if !ok {
		report.OK = false
		report.FailReason = "aggregate signature did not verify"
		return report, nil
	}

	report.Stage = "done"
	report.OK = true
	return report, nil
}

// buildLeaves embeds each signer's public key into the HVC ring and hashes
// it into a leaf polynomial (spec.md §2's "leaf derived from one
// participant's HOTS public key" step).
func buildLeaves(hasher *hvc.Hasher, pks []*hots.PublicKey) ([]*ringq.Poly, error) {
	out := make([]*ringq.Poly, len(pks))
	for i, pk := range pks {
		v0n, v1n := pk.V0.Clone(), pk.V1.Clone()
		if err := v0n.FromNTT(); err != nil {
			return nil, fmt.Errorf("buildLeaves: participant %d: v0 to coeff domain: %w", i, err)
		}
		if err := v1n.FromNTT(); err != nil {
			return nil, fmt.Errorf("buildLeaves: participant %d: v1 to coeff domain: %w", i, err)
		}
		emb0, err := hasher.Embed(v0n)
		if err != nil {
			return nil, fmt.Errorf("buildLeaves: participant %d: embed v0: %w", i, err)
		}
		emb1, err := hasher.Embed(v1n)
		if err != nil {
			return nil, fmt.Errorf("buildLeaves: participant %d: embed v1: %w", i, err)
		}
		leaf, err := hasher.LeafFromEmbedding(emb0, emb1)
		if err != nil {
			return nil, fmt.Errorf("buildLeaves: participant %d: leaf: %w", i, err)
		}
		out[i] = leaf
	}
	return out, nil
}
