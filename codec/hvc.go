package codec

import (
	"encoding/binary"
	"fmt"

	"chipmunk/hvc"
	"chipmunk/ringq"
)

// EncodeMembershipPath packs a membership path as index (u32, big-endian) ||
// leaf || sibling[0] || ... || sibling[H-2], all polynomials normal-domain
// and sized for hasher's ring (spec.md §4.7).
func EncodeMembershipPath(path *hvc.MembershipPath, hasher *hvc.Hasher) []byte {
	out := make([]byte, 4)
	binary.BigEndian.PutUint32(out, path.Index)
	out = append(out, EncodePoly(path.Leaf)...)
	for _, sib := range path.Siblings {
		out = append(out, EncodePoly(sib)...)
	}
	return out
}

// DecodeMembershipPath unpacks a membership path for a tree built over n
// leaves (the sibling count, hvc.TreeHeight(n)-1 = ceil(log2(n)) and at
// least 1, is derived from n rather than
// carried in the byte stream — spec.md §4.7 fixes it by the signing
// session's participant count).
func DecodeMembershipPath(data []byte, hasher *hvc.Hasher, n int) (*hvc.MembershipPath, error) {
	siblingCount := hvc.TreeHeight(n) - 1
	slot := polyByteLen(hasher.Ring.N, hasher.Ring.Q)
	want := 4 + slot*(1+siblingCount)
	if len(data) != want {
		return nil, fmt.Errorf("codec: DecodeMembershipPath: got %d bytes, want exactly %d", len(data), want)
	}
	index := binary.BigEndian.Uint32(data[:4])
	off := 4
	leaf, err := DecodePoly(data[off:off+slot], hasher.Ring, ringq.DomainNormal)
	if err != nil {
		return nil, fmt.Errorf("codec: DecodeMembershipPath: leaf: %w", err)
	}
	off += slot
	siblings := make([]*ringq.Poly, siblingCount)
	for i := 0; i < siblingCount; i++ {
		sib, err := DecodePoly(data[off:off+slot], hasher.Ring, ringq.DomainNormal)
		if err != nil {
			return nil, fmt.Errorf("codec: DecodeMembershipPath: sibling %d: %w", i, err)
		}
		siblings[i] = sib
		off += slot
	}
	return &hvc.MembershipPath{Index: index, Leaf: leaf, Siblings: siblings}, nil
}
