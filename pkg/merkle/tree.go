package merkle

import (
	"fmt"

	"github.com/Klingon-tech/klingnet-claims/pkg/crypto"
	"github.com/Klingon-tech/klingnet-claims/pkg/types"
)

// Tree is a fully built commitment tree. It is used by tooling and tests to
// construct allow-list roots and proofs; the engine itself only verifies.
type Tree struct {
	// levels[0] is the leaf layer, levels[len-1] is the single-root layer.
	levels [][]types.Hash
}

// NewTree builds a commitment tree over the given leaves. If a layer has an
// odd number of nodes, the last node is duplicated, matching the layout
// Verify expects.
func NewTree(leaves []types.Hash) (*Tree, error) {
	if len(leaves) == 0 {
		return nil, fmt.Errorf("tree requires at least one leaf")
	}

	level := make([]types.Hash, len(leaves))
	copy(level, leaves)

	t := &Tree{levels: [][]types.Hash{level}}
	for len(level) > 1 {
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}
		next := make([]types.Hash, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next[i/2] = crypto.HashPairSorted(level[i], level[i+1])
		}
		t.levels = append(t.levels, next)
		level = next
	}
	return t, nil
}

// Root returns the commitment root.
func (t *Tree) Root() types.Hash {
	return t.levels[len(t.levels)-1][0]
}

// Proof returns the sibling hashes for the leaf at the given index, ordered
// leaf-to-root.
func (t *Tree) Proof(index int) ([]types.Hash, error) {
	if index < 0 || index >= len(t.levels[0]) {
		return nil, fmt.Errorf("leaf index %d out of range [0,%d)", index, len(t.levels[0]))
	}

	var proof []types.Hash
	for _, level := range t.levels[:len(t.levels)-1] {
		sibling := index ^ 1
		if sibling >= len(level) {
			// Odd layer: the last node was duplicated, so the
			// sibling is the node itself.
			sibling = index
		}
		proof = append(proof, level[sibling])
		index /= 2
	}
	return proof, nil
}
