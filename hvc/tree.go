package hvc

import (
	"math/bits"

	"chipmunk"
	"chipmunk/internal/clog"
	"chipmunk/ringq"
)

// Tree is a balanced binary tree of HVC polynomials over up to
// LEAF_COUNT_MAX leaves (spec.md §4.5). Sized to height
// ceil(log2(n))+1 for the actual leaf count n, not a fixed padding
// constant — the Design Note in spec.md §9 calls the latter a performance
// hazard for small n.
type Tree struct {
	hasher *Hasher
	n      int // actual (unpadded) leaf count supplied to Build
	levels [][]*ringq.Poly
	log    clog.Logger
}

// Height returns the tree height H (levels[0] is the padded leaf layer,
// levels[H-1] holds just the root).
func (t *Tree) Height() int { return len(t.levels) }

// Build constructs a tree over leaves[0:n], padding with the canonical
// zero polynomial up to 2^(H-1) where H = ceil(log2(n))+1 (at least 2).
// Build is exclusive: a Tree under construction must not be read
// concurrently (spec.md §5).
func Build(hasher *Hasher, leaves []*ringq.Poly, n int, logger clog.Logger) (*Tree, error) {
	logger = clog.OrDiscard(logger)
	if hasher == nil {
		return nil, chipmunk.Domainf("hvc: Build: nil hasher")
	}
	if n <= 0 || n > hasher.Table.LeafCountMax() {
		return nil, chipmunk.Domainf("hvc: Build: n=%d out of range (0, %d]", n, hasher.Table.LeafCountMax())
	}
	if len(leaves) < n {
		return nil, chipmunk.Domainf("hvc: Build: got %d leaves, need at least %d", len(leaves), n)
	}
	height := treeHeight(n)
	padded := 1 << (height - 1)

	level0 := make([]*ringq.Poly, padded)
	for i := 0; i < padded; i++ {
		if i < n {
			level0[i] = leaves[i]
		} else {
			level0[i] = hasher.Ring.Zero()
		}
	}

	levels := make([][]*ringq.Poly, height)
	levels[0] = level0
	for lvl := 1; lvl < height; lvl++ {
		prev := levels[lvl-1]
		cur := make([]*ringq.Poly, len(prev)/2)
		for j := range cur {
			parent, err := hasher.HashPair(prev[2*j], prev[2*j+1])
			if err != nil {
				return nil, chipmunk.Wrapf(chipmunk.KindPrecondition, err, "hvc: Build: level %d node %d", lvl, j)
			}
			cur[j] = parent
		}
		levels[lvl] = cur
	}
	logger.Log(clog.Info, "hvc", "build n=%d height=%d padded=%d", n, height, padded)
	return &Tree{hasher: hasher, n: n, levels: levels, log: logger}, nil
}

// TreeHeight returns the height a tree built over n leaves would have:
// ceil(log2(n))+1, at least 2 (spec.md §4.5). Exposed so codec can size a
// MembershipPath's sibling list without re-deriving the formula.
func TreeHeight(n int) int { return treeHeight(n) }

// treeHeight returns ceil(log2(n))+1, at least 2 (spec.md §4.5).
func treeHeight(n int) int {
	if n <= 1 {
		return 2
	}
	log2 := bits.Len(uint(n - 1))
	h := log2 + 1
	if h < 2 {
		h = 2
	}
	return h
}

// Root returns the tree's top node.
func (t *Tree) Root() *ringq.Poly {
	top := t.levels[len(t.levels)-1]
	return top[0]
}

// MembershipPath is the sibling path from a leaf to the root, plus the
// leaf polynomial and index the path was generated for (spec.md §3).
type MembershipPath struct {
	Index    uint32
	Leaf     *ringq.Poly
	Siblings []*ringq.Poly // length Height()-1, level 0 first
}

// GenProof walks from leaf index up to the root, recording the sibling at
// each level (spec.md §4.5).
func (t *Tree) GenProof(index int) (*MembershipPath, error) {
	padded := len(t.levels[0])
	if index < 0 || index >= padded {
		return nil, chipmunk.Domainf("hvc: GenProof: index %d out of range [0, %d)", index, padded)
	}
	siblings := make([]*ringq.Poly, len(t.levels)-1)
	idx := index
	for lvl := 0; lvl < len(t.levels)-1; lvl++ {
		siblings[lvl] = t.levels[lvl][idx^1]
		idx >>= 1
	}
	return &MembershipPath{
		Index:    uint32(index),
		Leaf:     t.levels[0][index],
		Siblings: siblings,
	}, nil
}

// VerifyPath recomputes the root from path.Leaf and its siblings, using
// hasher, and reports whether it equals expectedRoot (spec.md §4.5). A
// tampered sibling, leaf, or index yields false, never an error.
func VerifyPath(hasher *Hasher, path *MembershipPath, expectedRoot *ringq.Poly) (bool, error) {
	if hasher == nil || path == nil || expectedRoot == nil {
		return false, chipmunk.Domainf("hvc: VerifyPath: nil argument")
	}
	if path.Leaf == nil {
		return false, chipmunk.Domainf("hvc: VerifyPath: nil leaf")
	}
	cur := path.Leaf
	idx := path.Index
	for _, sib := range path.Siblings {
		if sib == nil {
			return false, chipmunk.Domainf("hvc: VerifyPath: nil sibling")
		}
		var parent *ringq.Poly
		var err error
		if idx&1 == 0 {
			parent, err = hasher.HashPair(cur, sib)
		} else {
			parent, err = hasher.HashPair(sib, cur)
		}
		if err != nil {
			return false, chipmunk.Wrapf(chipmunk.KindPrecondition, err, "hvc: VerifyPath: recompute")
		}
		cur = parent
		idx >>= 1
	}
	return ringq.Equal(cur, expectedRoot), nil
}

// Drop releases the tree's internal nodes so they can be collected
// independently of any leaves the caller still holds — the leaves
// supplied to Build are never owned by the Tree (spec.md §3).
func (t *Tree) Drop() {
	t.levels = nil
}
