package aggregate

import (
	"testing"

	"chipmunk/hots"
	"chipmunk/hvc"
	"chipmunk/params"
	"chipmunk/ringq"
)

type env struct {
	hotsParams *hots.Params
	hasher     *hvc.Hasher
	table      params.Table
}

func newEnv(t *testing.T) *env {
	t.Helper()
	table := params.Default()
	hp, err := hots.Setup(table, nil)
	if err != nil {
		t.Fatalf("hots.Setup: %v", err)
	}
	var seed [32]byte
	copy(seed[:], "aggregate-test-hvc-seed")
	h, err := hvc.Init(table, seed, nil)
	if err != nil {
		t.Fatalf("hvc.Init: %v", err)
	}
	return &env{hotsParams: hp, hasher: h, table: table}
}

// buildSigners creates n (pk, sk) pairs and their HVC leaf polynomials.
func (e *env) buildSigners(t *testing.T, n int) ([]*hots.PublicKey, []*hots.SecretKey, []*ringq.Poly) {
	t.Helper()
	pks := make([]*hots.PublicKey, n)
	sks := make([]*hots.SecretKey, n)
	leaves := make([]*ringq.Poly, n)
	for i := 0; i < n; i++ {
		var seed [32]byte
		copy(seed[:], []byte{byte(i), byte(i >> 8), 'p', 'a', 'r', 't', 'i', 'c', 'i', 'p', 'a', 'n', 't'})
		pk, sk, err := e.hotsParams.Keygen(seed, 0)
		if err != nil {
			t.Fatalf("Keygen(%d): %v", i, err)
		}
		pks[i] = pk
		sks[i] = sk
		v0n, v1n := pk.V0.Clone(), pk.V1.Clone()
		if err := v0n.FromNTT(); err != nil {
			t.Fatalf("v0 FromNTT(%d): %v", i, err)
		}
		if err := v1n.FromNTT(); err != nil {
			t.Fatalf("v1 FromNTT(%d): %v", i, err)
		}
		emb0, err := e.hasher.Embed(v0n)
		if err != nil {
			t.Fatalf("Embed v0(%d): %v", i, err)
		}
		emb1, err := e.hasher.Embed(v1n)
		if err != nil {
			t.Fatalf("Embed v1(%d): %v", i, err)
		}
		leaf, err := e.hasher.LeafFromEmbedding(emb0, emb1)
		if err != nil {
			t.Fatalf("LeafFromEmbedding(%d): %v", i, err)
		}
		leaves[i] = leaf
	}
	return pks, sks, leaves
}

func (e *env) signAll(t *testing.T, sks []*hots.SecretKey, pks []*hots.PublicKey, tree *hvc.Tree, message []byte) []IndividualSignature {
	t.Helper()
	out := make([]IndividualSignature, len(sks))
	for i := range sks {
		sig, err := e.hotsParams.Sign(sks[i], message)
		if err != nil {
			t.Fatalf("Sign(%d): %v", i, err)
		}
		path, err := tree.GenProof(i)
		if err != nil {
			t.Fatalf("GenProof(%d): %v", i, err)
		}
		out[i] = IndividualSignature{Sigma: sig, PK: pks[i], Path: path, Index: uint32(i)}
	}
	return out
}

func TestAggregateVerifyRoundTrip(t *testing.T) {
	e := newEnv(t)
	n := 3
	pks, sks, leaves := e.buildSigners(t, n)
	tree, err := hvc.Build(e.hasher, leaves, n, nil)
	if err != nil {
		t.Fatalf("hvc.Build: %v", err)
	}
	message := []byte("three of four signers, padded tree")
	individuals := e.signAll(t, sks, pks, tree, message)

	agg := New(e.hotsParams, e.hasher, nil)
	aggSig, err := agg.Aggregate(message, individuals, tree)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	ok, err := agg.Verify(aggSig, message)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Fatalf("Verify rejected a genuine aggregate")
	}
	if len(aggSig.CombinedSigma) != e.table.Gamma {
		t.Fatalf("CombinedSigma width = %d, want Gamma=%d (size must not scale with n)", len(aggSig.CombinedSigma), e.table.Gamma)
	}
}

func TestAggregateFiveOfEight(t *testing.T) {
	e := newEnv(t)
	n := 5
	pks, sks, leaves := e.buildSigners(t, n)
	tree, err := hvc.Build(e.hasher, leaves, n, nil)
	if err != nil {
		t.Fatalf("hvc.Build: %v", err)
	}
	message := []byte("five of eight signers")
	individuals := e.signAll(t, sks, pks, tree, message)

	agg := New(e.hotsParams, e.hasher, nil)
	aggSig, err := agg.Aggregate(message, individuals, tree)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	ok, err := agg.Verify(aggSig, message)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Fatalf("Verify rejected a genuine 5-of-8 aggregate")
	}
}

func TestAggregateRejectsWrongMessage(t *testing.T) {
	e := newEnv(t)
	n := 3
	pks, sks, leaves := e.buildSigners(t, n)
	tree, err := hvc.Build(e.hasher, leaves, n, nil)
	if err != nil {
		t.Fatalf("hvc.Build: %v", err)
	}
	message := []byte("the real message")
	individuals := e.signAll(t, sks, pks, tree, message)
	agg := New(e.hotsParams, e.hasher, nil)
	aggSig, err := agg.Aggregate(message, individuals, tree)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	ok, err := agg.Verify(aggSig, []byte("a different message"))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ok {
		t.Fatalf("Verify accepted an aggregate against the wrong message")
	}
}

func TestAggregateRejectsSubstitutedPublicKey(t *testing.T) {
	e := newEnv(t)
	n := 3
	pks, sks, leaves := e.buildSigners(t, n)
	tree, err := hvc.Build(e.hasher, leaves, n, nil)
	if err != nil {
		t.Fatalf("hvc.Build: %v", err)
	}
	message := []byte("substitution attempt")
	individuals := e.signAll(t, sks, pks, tree, message)

	// Swap in an unrelated public key for one participant without updating
	// their membership path: Aggregate must refuse to build an aggregate
	// whose leaf no longer matches the committed tree.
	var outsiderSeed [32]byte
	copy(outsiderSeed[:], "an-outsider-keypair")
	outsiderPK, _, err := e.hotsParams.Keygen(outsiderSeed, 0)
	if err != nil {
		t.Fatalf("Keygen outsider: %v", err)
	}
	individuals[1].PK = outsiderPK

	if _, err := New(e.hotsParams, e.hasher, nil).Aggregate(message, individuals, tree); err == nil {
		t.Fatalf("Aggregate accepted a substituted public key")
	}
}

func TestAggregateBoundaryNEqualsOne(t *testing.T) {
	e := newEnv(t)
	n := 1
	pks, sks, leaves := e.buildSigners(t, n)
	tree, err := hvc.Build(e.hasher, leaves, n, nil)
	if err != nil {
		t.Fatalf("hvc.Build: %v", err)
	}
	message := []byte("solo signer")
	individuals := e.signAll(t, sks, pks, tree, message)
	agg := New(e.hotsParams, e.hasher, nil)
	aggSig, err := agg.Aggregate(message, individuals, tree)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	ok, err := agg.Verify(aggSig, message)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Fatalf("Verify rejected a genuine n=1 aggregate")
	}
}

func TestAggregateBoundaryLeafCountMax(t *testing.T) {
	e := newEnv(t)
	n := e.table.LeafCountMax()
	pks, sks, leaves := e.buildSigners(t, n)
	tree, err := hvc.Build(e.hasher, leaves, n, nil)
	if err != nil {
		t.Fatalf("hvc.Build: %v", err)
	}
	message := []byte("full tree")
	individuals := e.signAll(t, sks, pks, tree, message)
	agg := New(e.hotsParams, e.hasher, nil)
	aggSig, err := agg.Aggregate(message, individuals, tree)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	ok, err := agg.Verify(aggSig, message)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Fatalf("Verify rejected a genuine full-tree aggregate")
	}
}

// TestBatchOfAggregatesCrossCheck builds three independent aggregates (each
// its own signer set, tree, and message) and checks that none of them
// verify under another's root or entry list — each combined signature is
// bound to the specific tree root and participant list its Fiat-Shamir
// weights were derived from (spec.md §8's batch cross-check scenario).
func TestBatchOfAggregatesCrossCheck(t *testing.T) {
	e := newEnv(t)
	n := 3
	message := []byte("shared message text, independent signer sets")

	build := func(seedTag string) *Signature {
		pks := make([]*hots.PublicKey, n)
		sks := make([]*hots.SecretKey, n)
		leaves := make([]*ringq.Poly, n)
		for i := 0; i < n; i++ {
			var seed [32]byte
			copy(seed[:], seedTag+string(rune('a'+i)))
			pk, sk, err := e.hotsParams.Keygen(seed, 0)
			if err != nil {
				t.Fatalf("Keygen: %v", err)
			}
			pks[i] = pk
			sks[i] = sk
			v0n, v1n := pk.V0.Clone(), pk.V1.Clone()
			if err := v0n.FromNTT(); err != nil {
				t.Fatalf("v0 FromNTT: %v", err)
			}
			if err := v1n.FromNTT(); err != nil {
				t.Fatalf("v1 FromNTT: %v", err)
			}
			emb0, err := e.hasher.Embed(v0n)
			if err != nil {
				t.Fatalf("Embed v0: %v", err)
			}
			emb1, err := e.hasher.Embed(v1n)
			if err != nil {
				t.Fatalf("Embed v1: %v", err)
			}
			leaf, err := e.hasher.LeafFromEmbedding(emb0, emb1)
			if err != nil {
				t.Fatalf("LeafFromEmbedding: %v", err)
			}
			leaves[i] = leaf
		}
		tree, err := hvc.Build(e.hasher, leaves, n, nil)
		if err != nil {
			t.Fatalf("hvc.Build: %v", err)
		}
		individuals := e.signAll(t, sks, pks, tree, message)
		agg := New(e.hotsParams, e.hasher, nil)
		aggSig, err := agg.Aggregate(message, individuals, tree)
		if err != nil {
			t.Fatalf("Aggregate: %v", err)
		}
		ok, err := agg.Verify(aggSig, message)
		if err != nil {
			t.Fatalf("Verify: %v", err)
		}
		if !ok {
			t.Fatalf("Verify rejected its own aggregate (seed %q)", seedTag)
		}
		return aggSig
	}

	sigs := []*Signature{build("batch-one-"), build("batch-two-"), build("batch-three-")}

	agg := New(e.hotsParams, e.hasher, nil)
	for i := range sigs {
		for j := range sigs {
			if i == j {
				continue
			}
			// Splice signature i's combined artifact onto signature j's
			// root/entries: a cross-batch swap must not verify.
			mixed := *sigs[j]
			mixed.CombinedSigma = sigs[i].CombinedSigma
			ok, err := agg.Verify(&mixed, message)
			if err != nil {
				t.Fatalf("Verify(mixed %d/%d): %v", i, j, err)
			}
			if ok {
				t.Fatalf("Verify accepted batch %d's combined signature spliced onto batch %d's entries", i, j)
			}
			if sameCombinedSigma(sigs[i], sigs[j]) {
				t.Fatalf("batch %d and batch %d produced identical combined signatures", i, j)
			}
		}
	}
}

func sameCombinedSigma(a, b *Signature) bool {
	if len(a.CombinedSigma) != len(b.CombinedSigma) {
		return false
	}
	for i := range a.CombinedSigma {
		if !ringq.Equal(a.CombinedSigma[i], b.CombinedSigma[i]) {
			return false
		}
	}
	return true
}
