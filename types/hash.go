package types

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"
)

// HashLen is the length in bytes of roots, commitments, nullifiers and every
// other 32-byte value handled by the census.
const HashLen = 32

// Hash is a fixed size 32-byte value. It encodes as hexadecimal in JSON and
// as a byte string in CBOR.
type Hash [HashLen]byte

// HashFromBytes returns a Hash from a byte slice. It fails if the slice is
// not exactly 32 bytes long.
func HashFromBytes(b []byte) (Hash, error) {
	var h Hash
	if len(b) != HashLen {
		return h, fmt.Errorf("invalid hash length: %d, expected %d", len(b), HashLen)
	}
	copy(h[:], b)
	return h, nil
}

// HashFromHex parses a hex string, with or without 0x prefix.
func HashFromHex(s string) (Hash, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return Hash{}, fmt.Errorf("invalid hex string: %w", err)
	}
	return HashFromBytes(b)
}

// Bytes returns a copy of the hash as a byte slice.
func (h Hash) Bytes() []byte {
	return bytes.Clone(h[:])
}

// IsZero reports whether all bytes are zero.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// String returns the hex representation of the hash.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// MarshalText implements encoding.TextMarshaler.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := HashFromHex(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
