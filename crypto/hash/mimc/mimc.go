// Package mimc wraps the MiMC hash over the BN254 scalar field. It is the
// hash used by the census circuit, so every value computed here (identity
// commitments, nullifier hashes, accumulator nodes) matches the in-circuit
// computation.
package mimc

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
	"github.com/vocdoni/zk-census/types"
)

// FieldElement interprets b as a big-endian integer and reduces it modulo the
// BN254 scalar field.
func FieldElement(b []byte) fr.Element {
	var e fr.Element
	e.SetBytes(b)
	return e
}

// Canonical returns the 32-byte big-endian encoding of h once reduced to the
// scalar field. Values already in the field are returned unchanged.
func Canonical(h types.Hash) types.Hash {
	e := FieldElement(h[:])
	return e.Bytes()
}

// Hash computes MiMC over the given inputs, each one reduced to a field
// element first.
func Hash(inputs ...types.Hash) (types.Hash, error) {
	if len(inputs) == 0 {
		return types.Hash{}, fmt.Errorf("no inputs provided")
	}
	h := mimc.NewMiMC()
	for _, in := range inputs {
		e := FieldElement(in[:])
		b := e.Bytes()
		if _, err := h.Write(b[:]); err != nil {
			return types.Hash{}, fmt.Errorf("mimc write: %w", err)
		}
	}
	var out types.Hash
	copy(out[:], h.Sum(nil))
	return out, nil
}

// Hash2 computes MiMC(left, right). Both inputs are reduced before hashing so
// the underlying writes cannot fail.
func Hash2(left, right types.Hash) types.Hash {
	h := mimc.NewMiMC()
	for _, in := range [2]types.Hash{left, right} {
		b := Canonical(in)
		_, _ = h.Write(b[:])
	}
	var out types.Hash
	copy(out[:], h.Sum(nil))
	return out
}
