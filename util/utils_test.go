package util

import (
	"crypto/ed25519"
	"encoding/hex"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/zk-census/types"
)

func TestTrimHex(t *testing.T) {
	c := qt.New(t)
	c.Assert(TrimHex("0xabcd"), qt.Equals, "abcd")
	c.Assert(TrimHex("0Xabcd"), qt.Equals, "abcd")
	c.Assert(TrimHex("abcd"), qt.Equals, "abcd")
	c.Assert(TrimHex("0"), qt.Equals, "0")
}

func TestParsePrivateKey(t *testing.T) {
	c := qt.New(t)
	seed := RandomBytes(ed25519.SeedSize)
	expected := ed25519.NewKeyFromSeed(seed)

	key, err := ParsePrivateKey(hex.EncodeToString(seed))
	c.Assert(err, qt.IsNil)
	c.Assert(key.Equal(expected), qt.IsTrue)

	key, err = ParsePrivateKey("0x" + hex.EncodeToString(expected))
	c.Assert(err, qt.IsNil)
	c.Assert(key.Equal(expected), qt.IsTrue)

	_, err = ParsePrivateKey("zz")
	c.Assert(err, qt.Not(qt.IsNil))
	_, err = ParsePrivateKey(RandomHex(16))
	c.Assert(err, qt.Not(qt.IsNil))
	tampered := append(append([]byte{}, seed...), RandomBytes(ed25519.PublicKeySize)...)
	_, err = ParsePrivateKey(hex.EncodeToString(tampered))
	c.Assert(err, qt.Not(qt.IsNil))
}

func TestParseIdentities(t *testing.T) {
	c := qt.New(t)
	pub, _, err := ed25519.GenerateKey(nil)
	c.Assert(err, qt.IsNil)
	id, err := types.IdentityFromPublicKey(pub)
	c.Assert(err, qt.IsNil)

	ids, err := ParseIdentities([]string{id.String(), " ", ""})
	c.Assert(err, qt.IsNil)
	c.Assert(ids, qt.DeepEquals, []types.Identity{id})

	_, err = ParseIdentities([]string{"0x1234"})
	c.Assert(err, qt.Not(qt.IsNil))
}
