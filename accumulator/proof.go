package accumulator

import (
	"github.com/vocdoni/zk-census/crypto/hash/mimc"
	"github.com/vocdoni/zk-census/types"
)

// MerkleProof is the authentication path of a leaf. Siblings are ordered from
// the leaf level up.
type MerkleProof struct {
	Leaf     types.Hash   `json:"leaf"`
	Index    uint64       `json:"index"`
	Root     types.Hash   `json:"root"`
	Siblings []types.Hash `json:"siblings"`
}

// PathBits returns, for each level, 1 if the path node is a right child and 0
// otherwise. These are the bits of the leaf index.
func (p *MerkleProof) PathBits() []uint8 {
	bits := make([]uint8, len(p.Siblings))
	for i := range bits {
		bits[i] = uint8((p.Index >> i) & 1)
	}
	return bits
}

// Verify recomputes the root from the leaf and the path and compares it with
// the proof root.
func (p *MerkleProof) Verify() bool {
	return ComputeRoot(p.Leaf, p.Index, p.Siblings) == p.Root
}

// ComputeRoot folds the leaf with its siblings.
func ComputeRoot(leaf types.Hash, index uint64, siblings []types.Hash) types.Hash {
	node := mimc.Canonical(leaf)
	for level, sibling := range siblings {
		if (index>>level)&1 == 0 {
			node = mimc.Hash2(node, sibling)
		} else {
			node = mimc.Hash2(sibling, node)
		}
	}
	return node
}
