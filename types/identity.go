package types

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"strings"
)

// Identity is the public key of an actor of the census: the admin, a trusted
// attestation signer or any API caller. It is an ed25519 public key.
type Identity [ed25519.PublicKeySize]byte

// IdentityFromPublicKey converts an ed25519 public key into an Identity.
func IdentityFromPublicKey(pub ed25519.PublicKey) (Identity, error) {
	var id Identity
	if len(pub) != ed25519.PublicKeySize {
		return id, fmt.Errorf("invalid public key length: %d", len(pub))
	}
	copy(id[:], pub)
	return id, nil
}

// IdentityFromHex parses a hex encoded public key.
func IdentityFromHex(s string) (Identity, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return Identity{}, fmt.Errorf("invalid hex string: %w", err)
	}
	return IdentityFromPublicKey(b)
}

// PublicKey returns the identity as an ed25519 public key.
func (id Identity) PublicKey() ed25519.PublicKey {
	return ed25519.PublicKey(id[:])
}

// IsZero reports whether the identity is unset.
func (id Identity) IsZero() bool {
	return id == Identity{}
}

func (id Identity) String() string {
	return hex.EncodeToString(id[:])
}

// MarshalText implements encoding.TextMarshaler.
func (id Identity) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *Identity) UnmarshalText(text []byte) error {
	parsed, err := IdentityFromHex(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
