// Package census defines the gnark circuit that proves membership in the
// census accumulator and derives the nullifier hash for a scope. Its public
// inputs are, in order: root, nullifier hash, signal hash and external
// nullifier.
package census

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/mimc"
	"github.com/vocdoni/zk-census/types"
)

// Circuit proves that MiMC(IdentityNullifier, IdentityTrapdoor) is a leaf of
// the tree with the given Root, and that NullifierHash is
// MiMC(IdentityNullifier, ExternalNullifier).
type Circuit struct {
	Root              frontend.Variable `gnark:",public"`
	NullifierHash     frontend.Variable `gnark:",public"`
	SignalHash        frontend.Variable `gnark:",public"`
	ExternalNullifier frontend.Variable `gnark:",public"`

	IdentityNullifier frontend.Variable
	IdentityTrapdoor  frontend.Variable
	Siblings          [types.TreeDepth]frontend.Variable
	// PathBits[i] is 1 when the path node at level i is a right child.
	PathBits [types.TreeDepth]frontend.Variable
}

// Define implements frontend.Circuit.
func (c *Circuit) Define(api frontend.API) error {
	h, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}
	h.Write(c.IdentityNullifier, c.IdentityTrapdoor)
	node := h.Sum()

	for i := 0; i < types.TreeDepth; i++ {
		api.AssertIsBoolean(c.PathBits[i])
		left := api.Select(c.PathBits[i], c.Siblings[i], node)
		right := api.Select(c.PathBits[i], node, c.Siblings[i])
		h.Reset()
		h.Write(left, right)
		node = h.Sum()
	}
	api.AssertIsEqual(node, c.Root)

	h.Reset()
	h.Write(c.IdentityNullifier, c.ExternalNullifier)
	api.AssertIsEqual(h.Sum(), c.NullifierHash)

	// the signal is not used by any check, square it so it is part of a
	// constraint
	api.Mul(c.SignalHash, c.SignalHash)
	return nil
}
