// Package crypto provides cryptographic primitives for the claims engine.
package crypto

import (
	"bytes"

	"github.com/Klingon-tech/klingnet-claims/pkg/types"
	"github.com/zeebo/blake3"
)

// Hash computes a BLAKE3-256 hash of the input data.
func Hash(data []byte) types.Hash {
	return blake3.Sum256(data)
}

// AddressFromPubKey derives an address from a compressed public key.
// Address = BLAKE3(compressed_pubkey)[:20].
func AddressFromPubKey(pubKey []byte) types.Address {
	h := Hash(pubKey)
	var addr types.Address
	copy(addr[:], h[:types.AddressSize])
	return addr
}

// HashPairSorted hashes the concatenation of two hashes with the smaller
// one first. Sorting before hashing makes the pairing order-independent,
// so commitment proofs carry no left/right position bits.
func HashPairSorted(a, b types.Hash) types.Hash {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	var buf [2 * types.HashSize]byte
	copy(buf[:types.HashSize], a[:])
	copy(buf[types.HashSize:], b[:])
	return Hash(buf[:])
}
