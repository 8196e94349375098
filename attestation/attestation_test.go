package attestation

import (
	"crypto/ed25519"
	"encoding/binary"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/zk-census/types"
)

func newSigner(c *qt.C) (ed25519.PrivateKey, types.Identity) {
	pub, priv, err := ed25519.GenerateKey(nil)
	c.Assert(err, qt.IsNil)
	id, err := types.IdentityFromPublicKey(pub)
	c.Assert(err, qt.IsNil)
	return priv, id
}

func TestMessageLayout(t *testing.T) {
	c := qt.New(t)
	a := &Attestation{
		Timestamp:         1700000000,
		Root:              types.Hash{0: 0xaa},
		NullifierHash:     types.Hash{0: 0xbb},
		ExternalNullifier: types.Hash{0: 0xcc},
		SignalHash:        types.Hash{0: 0xdd},
	}
	msg := a.Message()
	c.Assert(msg, qt.HasLen, MessageLen)
	c.Assert(binary.LittleEndian.Uint64(msg[:8]), qt.Equals, uint64(1700000000))
	c.Assert(msg[8], qt.Equals, byte(0xaa))
	c.Assert(msg[40], qt.Equals, byte(0xbb))
	c.Assert(msg[72], qt.Equals, byte(0xcc))
	c.Assert(msg[104], qt.Equals, byte(0xdd))
}

func TestCheckFreshness(t *testing.T) {
	c := qt.New(t)
	now := time.Now().Unix()
	c.Assert(CheckFreshness(now, now), qt.IsNil)
	c.Assert(CheckFreshness(now-299, now), qt.IsNil)
	c.Assert(CheckFreshness(now-300, now), qt.ErrorIs, ErrExpired)
	c.Assert(CheckFreshness(now+1, now), qt.ErrorIs, ErrExpired)
}

func TestSignAndVerify(t *testing.T) {
	c := qt.New(t)
	priv, id := newSigner(c)
	_, stranger := newSigner(c)

	a := &Attestation{Timestamp: 10, Root: types.Hash{1}}
	c.Assert(a.Validate(), qt.ErrorIs, ErrInvalidFormat)
	c.Assert(a.Sign(priv), qt.IsNil)
	c.Assert(a.Signer, qt.Equals, id)
	c.Assert(a.Validate(), qt.IsNil)

	signers := NewTrustedSigners(id)
	c.Assert(signers.Verify(a), qt.IsNil)

	// tampering with any signed field breaks the signature
	a.SignalHash = types.Hash{31: 1}
	c.Assert(signers.Verify(a), qt.ErrorIs, ErrInvalidSignature)

	// an untrusted signer is rejected before the signature is checked
	a.Signer = stranger
	c.Assert(signers.Verify(a), qt.ErrorIs, ErrUntrustedSigner)

	signers.Add(stranger)
	c.Assert(signers.List(), qt.HasLen, 2)
	signers.Remove(stranger)
	c.Assert(signers.Contains(stranger), qt.IsFalse)
}
