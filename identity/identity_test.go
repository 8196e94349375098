package identity

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/zk-census/crypto/hash/mimc"
	"github.com/vocdoni/zk-census/types"
)

func TestIdentity(t *testing.T) {
	c := qt.New(t)

	id, err := New()
	c.Assert(err, qt.IsNil)
	c.Assert(id.Nullifier.IsZero(), qt.IsFalse)
	c.Assert(id.Trapdoor.IsZero(), qt.IsFalse)
	c.Assert(mimc.Canonical(id.Nullifier), qt.Equals, id.Nullifier)

	other, err := New()
	c.Assert(err, qt.IsNil)
	c.Assert(other.Commitment(), qt.Not(qt.Equals), id.Commitment())

	// same secrets, same commitment
	clone := FromSecrets(id.Nullifier, id.Trapdoor)
	c.Assert(clone.Commitment(), qt.Equals, id.Commitment())

	// nullifier hashes differ across scopes
	scope1 := types.Hash{0: 1}
	scope2 := types.Hash{0: 2}
	c.Assert(id.NullifierHash(scope1), qt.Not(qt.Equals), id.NullifierHash(scope2))
	c.Assert(id.NullifierHash(scope1), qt.Equals, clone.NullifierHash(scope1))
}
