// Package aggregate implements the Aggregator (spec.md §4.6): combining
// one HOTS signature and HVC membership proof per participant into a
// single aggregate signature bound to a shared tree root, and verifying it.
//
// Combining rule (spec.md §9's Open Question — decision recorded in
// DESIGN.md): per-signer HOTS signatures are folded with Fiat-Shamir
// weights derived from the tree root, the message digest, and the sorted
// list of participant public keys, into one Gamma-wide combined signature
// whose size does not grow with the participant count n — only the
// per-signer membership paths and public keys still scale with n, matching
// spec.md §4.6's "size independent of n in the HOTS component; paths are
// included per signer." The deterministic label-building this needs is
// grounded on PIOP/fs_binding.go's sort-then-pack discipline (encoding/
// binary little-endian packing of polynomial coefficients and
// indices), adapted from Fiat-Shamir-transcript binding to signer-weight
// derivation.
package aggregate

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sort"

	"chipmunk"
	"chipmunk/hots"
	"chipmunk/hvc"
	"chipmunk/internal/clog"
	"chipmunk/ringq"
	"chipmunk/xof"
)

// IndividualSignature is one participant's contribution before
// aggregation: their HOTS signature, public key, HVC membership path, and
// the leaf index the path was generated for (spec.md §3).
type IndividualSignature struct {
	Sigma *hots.Signature
	PK    *hots.PublicKey
	Path  *hvc.MembershipPath
	Index uint32
}

// Entry is one participant's record inside an AggregateSignature, ordered
// by leaf index (spec.md §4.6's tie-break rule).
type Entry struct {
	Index uint32
	PK    *hots.PublicKey
	Path  *hvc.MembershipPath
}

// Signature is the aggregate multi-signature: the shared tree root, the
// message digest, the sorted participant entries, and one combined
// Gamma-wide HOTS artifact (spec.md §3, §4.6).
type Signature struct {
	Root          *ringq.Poly
	MessageHash   [32]byte
	N             int
	Entries       []Entry
	CombinedSigma []*ringq.Poly // length Gamma
}

// Aggregator bundles the HOTS parameters and HVC hasher every combine/
// verify call needs, plus an injected logger. Every call is stateless given
// its inputs, so an Aggregator is safe to call concurrently on disjoint
// input sets (spec.md §5).
type Aggregator struct {
	Hots *hots.Params
	Hvc  *hvc.Hasher
	log  clog.Logger
}

// New builds an Aggregator over the given HOTS parameters and HVC hasher.
func New(hotsParams *hots.Params, hasher *hvc.Hasher, logger clog.Logger) *Aggregator {
	return &Aggregator{Hots: hotsParams, Hvc: hasher, log: clog.OrDiscard(logger)}
}

func pkBytes(pk *hots.PublicKey) []byte {
	buf := new(bytes.Buffer)
	for _, c := range pk.V0.Coeffs() {
		_ = binary.Write(buf, binary.LittleEndian, c)
	}
	for _, c := range pk.V1.Coeffs() {
		_ = binary.Write(buf, binary.LittleEndian, c)
	}
	return buf.Bytes()
}

func rootBytes(root *ringq.Poly) []byte {
	buf := new(bytes.Buffer)
	for _, c := range root.Coeffs() {
		_ = binary.Write(buf, binary.LittleEndian, c)
	}
	return buf.Bytes()
}

// fsSeed derives the Fiat-Shamir seed every per-participant weight is drawn
// from: a digest of the tree root, the message hash, and the sorted
// (index, public key) list, so the same participant set always produces
// the same aggregate (spec.md §4.6's tie-break rule).
func fsSeed(root *ringq.Poly, messageHash [32]byte, entries []Entry) []byte {
	h := sha256.New()
	h.Write(rootBytes(root))
	h.Write(messageHash[:])
	for _, e := range entries {
		var idxBuf [4]byte
		binary.LittleEndian.PutUint32(idxBuf[:], e.Index)
		h.Write(idxBuf[:])
		h.Write(pkBytes(e.PK))
	}
	return h.Sum(nil)
}

// weights derives one nonzero scalar in [1, Q) per entry from seed.
func (a *Aggregator) weights(seed []byte, entries []Entry) ([]uint64, error) {
	out := make([]uint64, len(entries))
	for i, e := range entries {
		w, err := xof.SampleScalar(seed, fmt.Sprintf("chipmunk/aggregate/weight/%d", e.Index), a.Hots.Table.Q)
		if err != nil {
			return nil, fmt.Errorf("aggregate: weights: entry %d: %w", i, err)
		}
		out[i] = w
	}
	return out, nil
}

// Aggregate combines n individual signatures over message, all bound to
// tree, into one aggregate signature (spec.md §4.6). Every individual
// signature is verified under its own public key and message, and its path
// is verified against tree's root, before combining; the first participant
// to fail either check aborts aggregation with its index named.
func (a *Aggregator) Aggregate(message []byte, individuals []IndividualSignature, tree *hvc.Tree) (*Signature, error) {
	n := len(individuals)
	if n == 0 {
		return nil, chipmunk.Domainf("aggregate: Aggregate: need at least one participant")
	}
	seen := make(map[uint32]bool, n)
	for i, ind := range individuals {
		if ind.Sigma == nil || ind.PK == nil || ind.Path == nil {
			return nil, chipmunk.Domainf("aggregate: Aggregate: participant %d has a nil field", i)
		}
		if int(ind.Index) >= n {
			return nil, chipmunk.Domainf("aggregate: Aggregate: participant %d has leaf index %d ≥ n=%d", i, ind.Index, n)
		}
		if seen[ind.Index] {
			return nil, chipmunk.Domainf("aggregate: Aggregate: duplicate leaf index %d", ind.Index)
		}
		seen[ind.Index] = true

		ok, err := a.Hots.Verify(ind.PK, message, ind.Sigma)
		if err != nil {
			return nil, chipmunk.Wrapf(chipmunk.KindAggregation, err, "aggregate: participant %d: HOTS verify error", ind.Index)
		}
		if !ok {
			return nil, chipmunk.Aggregationf(int(ind.Index), "HOTS signature does not verify")
		}

		v0n, v1n := ind.PK.V0.Clone(), ind.PK.V1.Clone()
		if err := v0n.FromNTT(); err != nil {
			return nil, chipmunk.Wrapf(chipmunk.KindPrecondition, err, "aggregate: participant %d: v0 to coeff domain", ind.Index)
		}
		if err := v1n.FromNTT(); err != nil {
			return nil, chipmunk.Wrapf(chipmunk.KindPrecondition, err, "aggregate: participant %d: v1 to coeff domain", ind.Index)
		}
		embedded0, err := a.Hvc.Embed(v0n)
		if err != nil {
			return nil, chipmunk.Wrapf(chipmunk.KindPrecondition, err, "aggregate: participant %d: embed v0", ind.Index)
		}
		embedded1, err := a.Hvc.Embed(v1n)
		if err != nil {
			return nil, chipmunk.Wrapf(chipmunk.KindPrecondition, err, "aggregate: participant %d: embed v1", ind.Index)
		}
		leaf, err := a.Hvc.LeafFromEmbedding(embedded0, embedded1)
		if err != nil {
			return nil, chipmunk.Wrapf(chipmunk.KindPrecondition, err, "aggregate: participant %d: recompute leaf", ind.Index)
		}
		if !ringq.Equal(leaf, ind.Path.Leaf) {
			return nil, chipmunk.Aggregationf(int(ind.Index), "public key does not match the leaf committed in its membership path")
		}
		pathOK, err := hvc.VerifyPath(a.Hvc, ind.Path, tree.Root())
		if err != nil {
			return nil, chipmunk.Wrapf(chipmunk.KindAggregation, err, "aggregate: participant %d: path verify error", ind.Index)
		}
		if !pathOK {
			return nil, chipmunk.Aggregationf(int(ind.Index), "membership path does not verify against the tree root")
		}
	}

	entries := make([]Entry, n)
	sigmas := make([][]*ringq.Poly, n)
	for i, ind := range individuals {
		entries[i] = Entry{Index: ind.Index, PK: ind.PK, Path: ind.Path}
		sigmas[i] = ind.Sigma.Sigma
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Index < entries[j].Index })
	// Reorder sigmas to match the now-sorted entries.
	sortedSigmas := make([][]*ringq.Poly, n)
	for newPos, e := range entries {
		for _, ind := range individuals {
			if ind.Index == e.Index {
				sortedSigmas[newPos] = ind.Sigma.Sigma
				break
			}
		}
	}
	sigmas = sortedSigmas

	messageHash := sha256.Sum256(message)
	seed := fsSeed(tree.Root(), messageHash, entries)
	w, err := a.weights(seed, entries)
	if err != nil {
		return nil, chipmunk.Wrapf(chipmunk.KindAllocation, err, "aggregate: derive weights")
	}
	combined, err := ringq.LinearCombinationVectors(sigmas, w)
	if err != nil {
		return nil, chipmunk.Wrapf(chipmunk.KindPrecondition, err, "aggregate: combine signatures")
	}

	a.log.Log(clog.Info, "aggregate", "aggregate: n=%d combined", n)
	return &Signature{
		Root:          tree.Root(),
		MessageHash:   messageHash,
		N:             n,
		Entries:       entries,
		CombinedSigma: combined,
	}, nil
}

// Verify checks an aggregate signature against message (spec.md §4.6).
// Returns (valid, error): a wrong message, a tampered path/public key, or a
// failed combined equation all yield (false, nil), never an error.
func (a *Aggregator) Verify(agg *Signature, message []byte) (bool, error) {
	if agg == nil || agg.Root == nil || len(agg.Entries) == 0 {
		return false, chipmunk.Domainf("aggregate: Verify: malformed aggregate signature")
	}
	if len(agg.CombinedSigma) != a.Hots.Table.Gamma {
		return false, chipmunk.Domainf("aggregate: Verify: combined signature has wrong slot count")
	}

	gotHash := sha256.Sum256(message)
	if gotHash != agg.MessageHash {
		a.log.Log(clog.Debug, "aggregate", "verify: message hash mismatch")
		return false, nil
	}

	v0All := make([]*ringq.Poly, len(agg.Entries))
	v1All := make([]*ringq.Poly, len(agg.Entries))
	for i, e := range agg.Entries {
		v0n, v1n := e.PK.V0.Clone(), e.PK.V1.Clone()
		if err := v0n.FromNTT(); err != nil {
			return false, chipmunk.Wrapf(chipmunk.KindPrecondition, err, "aggregate: verify: entry %d v0 to coeff domain", e.Index)
		}
		if err := v1n.FromNTT(); err != nil {
			return false, chipmunk.Wrapf(chipmunk.KindPrecondition, err, "aggregate: verify: entry %d v1 to coeff domain", e.Index)
		}
		emb0, err := a.Hvc.Embed(v0n)
		if err != nil {
			return false, chipmunk.Wrapf(chipmunk.KindPrecondition, err, "aggregate: verify: entry %d embed v0", e.Index)
		}
		emb1, err := a.Hvc.Embed(v1n)
		if err != nil {
			return false, chipmunk.Wrapf(chipmunk.KindPrecondition, err, "aggregate: verify: entry %d embed v1", e.Index)
		}
		leaf, err := a.Hvc.LeafFromEmbedding(emb0, emb1)
		if err != nil {
			return false, chipmunk.Wrapf(chipmunk.KindPrecondition, err, "aggregate: verify: entry %d recompute leaf", e.Index)
		}
		path := *e.Path
		path.Leaf = leaf
		ok, err := hvc.VerifyPath(a.Hvc, &path, agg.Root)
		if err != nil {
			return false, chipmunk.Wrapf(chipmunk.KindPrecondition, err, "aggregate: verify: entry %d path verify error", e.Index)
		}
		if !ok {
			a.log.Log(clog.Debug, "aggregate", "verify: entry %d path does not verify", e.Index)
			return false, nil
		}
		v0All[i], v1All[i] = e.PK.V0, e.PK.V1
	}

	seed := fsSeed(agg.Root, agg.MessageHash, agg.Entries)
	w, err := a.weights(seed, agg.Entries)
	if err != nil {
		return false, chipmunk.Wrapf(chipmunk.KindAllocation, err, "aggregate: verify: derive weights")
	}

	weightedV0, err := ringq.LinearCombination(v0All, w)
	if err != nil {
		return false, chipmunk.Wrapf(chipmunk.KindPrecondition, err, "aggregate: verify: combine v0")
	}
	weightedV1, err := ringq.LinearCombination(v1All, w)
	if err != nil {
		return false, chipmunk.Wrapf(chipmunk.KindPrecondition, err, "aggregate: verify: combine v1")
	}

	c, err := xof.Challenge(a.Hots.Ring, message, a.Hots.Table.ChallengeWeight)
	if err != nil {
		return false, chipmunk.Wrapf(chipmunk.KindAllocation, err, "aggregate: verify: challenge")
	}
	if err := c.ToNTT(); err != nil {
		return false, chipmunk.Wrapf(chipmunk.KindPrecondition, err, "aggregate: verify: challenge to NTT")
	}

	rhsTerm, err := ringq.MulNTT(weightedV0, c)
	if err != nil {
		return false, chipmunk.Wrapf(chipmunk.KindPrecondition, err, "aggregate: verify: v0*c")
	}
	rhs, err := ringq.Add(rhsTerm, weightedV1)
	if err != nil {
		return false, chipmunk.Wrapf(chipmunk.KindPrecondition, err, "aggregate: verify: +v1")
	}

	lhs, err := ringq.Dot(a.Hots.A, agg.CombinedSigma)
	if err != nil {
		return false, chipmunk.Wrapf(chipmunk.KindPrecondition, err, "aggregate: verify: compute L")
	}

	lhs.Reduce()
	rhs.Reduce()
	ok := ringq.Equal(lhs, rhs)
	if !ok {
		a.log.Log(clog.Debug, "aggregate", "verify: combined equation mismatch")
	}
	return ok, nil
}
