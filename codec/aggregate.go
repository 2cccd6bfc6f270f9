package codec

import (
	"encoding/binary"
	"fmt"

	"chipmunk/aggregate"
	"chipmunk/hots"
	"chipmunk/hvc"
	"chipmunk/ringq"
)

// EncodeAggregateSignature packs an aggregate signature as:
//
//	root || message_hash[32] || n (u32, big-endian) ||
//	for each entry, in leaf-index order:
//	  index (u32) || public_key || membership_path
//	|| combined_sigma (Gamma polynomials)
//
// spec.md §4.7 lists a per-participant σ inside the loop instead of the
// trailing combined_sigma; this codec follows the Aggregator's actual
// combining rule (one Gamma-wide signature shared by the whole aggregate,
// spec.md §9's Open Question resolved in DESIGN.md) rather than the
// literal per-participant field, since there is no longer a per-participant
// σ to serialize once signatures are folded at Aggregate time.
func EncodeAggregateSignature(agg *aggregate.Signature, hasher *hvc.Hasher) []byte {
	out := EncodePoly(agg.Root)
	out = append(out, agg.MessageHash[:]...)
	var nBuf [4]byte
	binary.BigEndian.PutUint32(nBuf[:], uint32(agg.N))
	out = append(out, nBuf[:]...)
	for _, e := range agg.Entries {
		var idxBuf [4]byte
		binary.BigEndian.PutUint32(idxBuf[:], e.Index)
		out = append(out, idxBuf[:]...)
		out = append(out, EncodePublicKey(e.PK)...)
		out = append(out, EncodeMembershipPath(e.Path, hasher)...)
	}
	for _, p := range agg.CombinedSigma {
		out = append(out, EncodePoly(p)...)
	}
	return out
}

// DecodeAggregateSignature unpacks an aggregate signature built from
// hotsParams and hasher. The exact expected length is computed from the
// n value embedded in the stream before any entry is parsed, and data must
// match it precisely — a truncated or padded buffer is rejected outright
// rather than partially decoded (spec.md §4.7).
func DecodeAggregateSignature(data []byte, hotsParams *hots.Params, hasher *hvc.Hasher) (*aggregate.Signature, error) {
	rootSlot := polyByteLen(hasher.Ring.N, hasher.Ring.Q)
	prefix := rootSlot + 32 + 4
	if len(data) < prefix {
		return nil, fmt.Errorf("codec: DecodeAggregateSignature: buffer too short for fixed header")
	}
	root, err := DecodePoly(data[:rootSlot], hasher.Ring, ringq.DomainNormal)
	if err != nil {
		return nil, fmt.Errorf("codec: DecodeAggregateSignature: root: %w", err)
	}
	var messageHash [32]byte
	copy(messageHash[:], data[rootSlot:rootSlot+32])
	n := int(binary.BigEndian.Uint32(data[rootSlot+32 : prefix]))
	if n <= 0 {
		return nil, fmt.Errorf("codec: DecodeAggregateSignature: n must be positive, got %d", n)
	}

	pkSlot := polyByteLen(hotsParams.Ring.N, hotsParams.Ring.Q)
	siblingCount := hvc.TreeHeight(n) - 1
	pathLen := 4 + rootSlot*(1+siblingCount)
	entryLen := 4 + 2*pkSlot + pathLen
	gammaLen := hotsParams.Table.Gamma * pkSlot
	want := prefix + n*entryLen + gammaLen
	if len(data) != want {
		return nil, fmt.Errorf("codec: DecodeAggregateSignature: got %d bytes, want exactly %d for n=%d", len(data), want, n)
	}

	off := prefix
	entries := make([]aggregate.Entry, n)
	for i := 0; i < n; i++ {
		index := binary.BigEndian.Uint32(data[off : off+4])
		off += 4
		pk, err := DecodePublicKey(data[off:off+2*pkSlot], hotsParams)
		if err != nil {
			return nil, fmt.Errorf("codec: DecodeAggregateSignature: entry %d public key: %w", i, err)
		}
		off += 2 * pkSlot
		path, err := DecodeMembershipPath(data[off:off+pathLen], hasher, n)
		if err != nil {
			return nil, fmt.Errorf("codec: DecodeAggregateSignature: entry %d path: %w", i, err)
		}
		off += pathLen
		if path.Index != index {
			return nil, fmt.Errorf("codec: DecodeAggregateSignature: entry %d index %d does not match path index %d", i, index, path.Index)
		}
		entries[i] = aggregate.Entry{Index: index, PK: pk, Path: path}
	}

	combined := make([]*ringq.Poly, hotsParams.Table.Gamma)
	for i := 0; i < hotsParams.Table.Gamma; i++ {
		p, err := DecodePoly(data[off:off+pkSlot], hotsParams.Ring, ringq.DomainNTT)
		if err != nil {
			return nil, fmt.Errorf("codec: DecodeAggregateSignature: combined sigma[%d]: %w", i, err)
		}
		combined[i] = p
		off += pkSlot
	}

	return &aggregate.Signature{
		Root:          root,
		MessageHash:   messageHash,
		N:             n,
		Entries:       entries,
		CombinedSigma: combined,
	}, nil
}
