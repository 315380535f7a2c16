// Package merkle implements the commitment trees used for claim allow-lists
// and burn-requirement item eligibility.
//
// Pairing is order-independent: the two child hashes are sorted before
// concatenation, so a proof is just a list of sibling hashes with no
// left/right position information. Leaves commit to an identity plus the
// leaf's position in the list, which lets the engine track per-leaf
// consumption without storing the list itself.
package merkle

import (
	"encoding/binary"

	"github.com/Klingon-tech/klingnet-claims/pkg/crypto"
	"github.com/Klingon-tech/klingnet-claims/pkg/types"
)

// Leaf computes the commitment leaf for an identity at a given list index.
// Leaf = BLAKE3(address || uint32_le(index)).
func Leaf(addr types.Address, index uint32) types.Hash {
	var buf [types.AddressSize + 4]byte
	copy(buf[:types.AddressSize], addr[:])
	binary.LittleEndian.PutUint32(buf[types.AddressSize:], index)
	return crypto.Hash(buf[:])
}

// LeafValue computes a commitment leaf carrying an embedded numeric payload.
// Leaf = BLAKE3(address || uint32_le(index) || uint64_le(value)).
func LeafValue(addr types.Address, index uint32, value uint64) types.Hash {
	var buf [types.AddressSize + 4 + 8]byte
	copy(buf[:types.AddressSize], addr[:])
	binary.LittleEndian.PutUint32(buf[types.AddressSize:], index)
	binary.LittleEndian.PutUint64(buf[types.AddressSize+4:], value)
	return crypto.Hash(buf[:])
}

// TokenLeaf computes the commitment leaf for a bare token identifier, used
// by burn-requirement items that gate on a committed set of token IDs.
func TokenLeaf(id types.TokenID) types.Hash {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(id))
	return crypto.Hash(buf[:])
}

// Verify folds the leaf with each sibling in the proof using sorted-pair
// hashing and reports whether the result equals root. A zero-length proof
// is valid only when the leaf itself is the root.
func Verify(root, leaf types.Hash, proof []types.Hash) bool {
	computed := leaf
	for _, sibling := range proof {
		computed = crypto.HashPairSorted(computed, sibling)
	}
	return computed == root
}
