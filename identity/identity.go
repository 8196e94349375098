// Package identity holds the client side secrets of a census participant.
// An identity is a pair of random field elements; its commitment is the
// value enrolled in the accumulator and its nullifier hash for a scope is the
// value that can only be counted once.
package identity

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/vocdoni/zk-census/crypto/hash/mimc"
	"github.com/vocdoni/zk-census/types"
)

// Identity is the secret material of a participant.
type Identity struct {
	Nullifier types.Hash `json:"nullifier"`
	Trapdoor  types.Hash `json:"trapdoor"`
}

// New generates a random identity.
func New() (*Identity, error) {
	var n, t fr.Element
	if _, err := n.SetRandom(); err != nil {
		return nil, fmt.Errorf("cannot generate identity nullifier: %w", err)
	}
	if _, err := t.SetRandom(); err != nil {
		return nil, fmt.Errorf("cannot generate identity trapdoor: %w", err)
	}
	return &Identity{Nullifier: n.Bytes(), Trapdoor: t.Bytes()}, nil
}

// FromSecrets builds an identity from existing secrets, reducing them to the
// scalar field.
func FromSecrets(nullifier, trapdoor types.Hash) *Identity {
	return &Identity{
		Nullifier: mimc.Canonical(nullifier),
		Trapdoor:  mimc.Canonical(trapdoor),
	}
}

// Commitment returns MiMC(nullifier, trapdoor), the value to enroll.
func (id *Identity) Commitment() types.Hash {
	return mimc.Hash2(id.Nullifier, id.Trapdoor)
}

// NullifierHash returns MiMC(nullifier, externalNullifier), the value that
// identifies a participation in the scope bound to externalNullifier.
func (id *Identity) NullifierHash(externalNullifier types.Hash) types.Hash {
	return mimc.Hash2(id.Nullifier, externalNullifier)
}
