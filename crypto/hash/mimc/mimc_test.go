package mimc

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/zk-census/types"
)

func TestHash(t *testing.T) {
	c := qt.New(t)

	a := types.Hash{31: 1}
	b := types.Hash{31: 2}

	h1, err := Hash(a, b)
	c.Assert(err, qt.IsNil)
	h2, err := Hash(a, b)
	c.Assert(err, qt.IsNil)
	c.Assert(h1, qt.Equals, h2)

	swapped, err := Hash(b, a)
	c.Assert(err, qt.IsNil)
	c.Assert(swapped, qt.Not(qt.Equals), h1)

	_, err = Hash()
	c.Assert(err, qt.ErrorMatches, "no inputs provided")
}

func TestCanonical(t *testing.T) {
	c := qt.New(t)

	// the modulus itself reduces to zero
	var mod types.Hash
	fr.Modulus().FillBytes(mod[:])
	c.Assert(Canonical(mod).IsZero(), qt.IsTrue)

	small := types.Hash{0: 1}
	c.Assert(Canonical(small), qt.Equals, small)

	// hashing a value and its reduction gives the same digest
	over := mod
	over[31]++
	h1, err := Hash(over)
	c.Assert(err, qt.IsNil)
	h2, err := Hash(types.Hash{31: 1})
	c.Assert(err, qt.IsNil)
	c.Assert(h1, qt.Equals, h2)
}

func TestHash2(t *testing.T) {
	c := qt.New(t)

	a := types.Hash{31: 7}
	b := types.Hash{31: 9}
	h, err := Hash(a, b)
	c.Assert(err, qt.IsNil)
	c.Assert(Hash2(a, b), qt.Equals, h)
}
