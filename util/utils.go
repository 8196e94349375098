package util

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/vocdoni/zk-census/types"
)

// RandomBytes generates a random byte slice of length n.
func RandomBytes(n int) []byte {
	b := make([]byte, n)
	_, err := rand.Read(b)
	if err != nil {
		panic(err)
	}
	return b
}

// RandomHex generates a random hex string of length n.
func RandomHex(n int) string {
	return fmt.Sprintf("%x", RandomBytes(n))
}

// TrimHex trims the '0x' prefix from a hex string.
func TrimHex(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

// ParsePrivateKey decodes a hex encoded ed25519 seed or private key.
func ParsePrivateKey(s string) (ed25519.PrivateKey, error) {
	b, err := hex.DecodeString(TrimHex(strings.TrimSpace(s)))
	if err != nil {
		return nil, fmt.Errorf("invalid hex key: %w", err)
	}
	switch len(b) {
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(b), nil
	case ed25519.PrivateKeySize:
		key := ed25519.NewKeyFromSeed(b[:ed25519.SeedSize])
		if !key.Equal(ed25519.PrivateKey(b)) {
			return nil, fmt.Errorf("private key does not match its seed")
		}
		return key, nil
	default:
		return nil, fmt.Errorf("invalid key length %d", len(b))
	}
}

// ParseIdentities decodes a list of hex encoded ed25519 public keys, skipping
// empty entries.
func ParseIdentities(keys []string) ([]types.Identity, error) {
	ids := []types.Identity{}
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		id, err := types.IdentityFromHex(k)
		if err != nil {
			return nil, fmt.Errorf("invalid identity %q: %w", k, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
