// Package attestation implements the alternate admission path of the census:
// a statement signed by a trusted off-chain verifier asserting that it
// checked a census proof for the given public values.
package attestation

import (
	"crypto/ed25519"
	"encoding/binary"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/vocdoni/zk-census/types"
)

// MessageLen is the length of the signed message:
// le64(timestamp) || root || nullifierHash || externalNullifier || signalHash.
const MessageLen = 8 + 4*types.HashLen

var (
	// ErrInvalidFormat is returned for attestations with a malformed
	// signature or signer.
	ErrInvalidFormat = errors.New("invalid attestation format")
	// ErrExpired is returned when the attestation timestamp is outside the
	// freshness window, including timestamps in the future.
	ErrExpired = errors.New("attestation expired")
	// ErrUntrustedSigner is returned when the signer is not in the trusted
	// signers list.
	ErrUntrustedSigner = errors.New("untrusted verifier")
	// ErrInvalidSignature is returned when the signature does not verify
	// under the signer key.
	ErrInvalidSignature = errors.New("invalid verifier signature")
)

// Attestation is a signed statement over the public values of a census
// proof.
type Attestation struct {
	Timestamp         int64          `json:"timestamp"`
	Root              types.Hash     `json:"root"`
	NullifierHash     types.Hash     `json:"nullifierHash"`
	ExternalNullifier types.Hash     `json:"externalNullifier"`
	SignalHash        types.Hash     `json:"signalHash"`
	Signer            types.Identity `json:"signer"`
	Signature         types.HexBytes `json:"signature"`
}

// Message returns the bytes covered by the signature.
func (a *Attestation) Message() []byte {
	msg := make([]byte, 0, MessageLen)
	msg = binary.LittleEndian.AppendUint64(msg, uint64(a.Timestamp))
	msg = append(msg, a.Root[:]...)
	msg = append(msg, a.NullifierHash[:]...)
	msg = append(msg, a.ExternalNullifier[:]...)
	msg = append(msg, a.SignalHash[:]...)
	return msg
}

// Sign sets the signer and the signature of the attestation.
func (a *Attestation) Sign(key ed25519.PrivateKey) error {
	signer, err := types.IdentityFromPublicKey(key.Public().(ed25519.PublicKey))
	if err != nil {
		return err
	}
	a.Signer = signer
	a.Signature = ed25519.Sign(key, a.Message())
	return nil
}

// Validate checks the encoding of the attestation, not its validity.
func (a *Attestation) Validate() error {
	if len(a.Signature) != ed25519.SignatureSize {
		return fmt.Errorf("%w: signature has %d bytes, expected %d",
			ErrInvalidFormat, len(a.Signature), ed25519.SignatureSize)
	}
	if a.Signer.IsZero() {
		return fmt.Errorf("%w: missing signer", ErrInvalidFormat)
	}
	return nil
}

// CheckFreshness accepts timestamps with 0 <= now - timestamp < validity
// seconds.
func CheckFreshness(timestamp, now int64) error {
	age := now - timestamp
	if age < 0 {
		return fmt.Errorf("%w: timestamp %d is in the future", ErrExpired, timestamp)
	}
	if age >= types.AttestationValiditySeconds {
		return fmt.Errorf("%w: age %ds", ErrExpired, age)
	}
	return nil
}

// TrustedSigners is the allow-list of verifier keys whose attestations are
// accepted. It is safe for concurrent use.
type TrustedSigners struct {
	mu      sync.RWMutex
	signers map[types.Identity]struct{}
}

// NewTrustedSigners returns an allow-list with the given signers.
func NewTrustedSigners(signers ...types.Identity) *TrustedSigners {
	ts := &TrustedSigners{signers: make(map[types.Identity]struct{}, len(signers))}
	for _, s := range signers {
		ts.signers[s] = struct{}{}
	}
	return ts
}

// Add trusts a new signer.
func (ts *TrustedSigners) Add(signer types.Identity) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.signers[signer] = struct{}{}
}

// Remove revokes a signer.
func (ts *TrustedSigners) Remove(signer types.Identity) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	delete(ts.signers, signer)
}

// Contains reports whether the signer is trusted.
func (ts *TrustedSigners) Contains(signer types.Identity) bool {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	_, ok := ts.signers[signer]
	return ok
}

// List returns the trusted signers sorted by key.
func (ts *TrustedSigners) List() []types.Identity {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	list := make([]types.Identity, 0, len(ts.signers))
	for s := range ts.signers {
		list = append(list, s)
	}
	slices.SortFunc(list, func(a, b types.Identity) int {
		return slices.Compare(a[:], b[:])
	})
	return list
}

// Verify checks that the signer is trusted and that the signature is valid.
func (ts *TrustedSigners) Verify(a *Attestation) error {
	if !ts.Contains(a.Signer) {
		return fmt.Errorf("%w: %s", ErrUntrustedSigner, a.Signer)
	}
	if !ed25519.Verify(a.Signer.PublicKey(), a.Message(), a.Signature) {
		return ErrInvalidSignature
	}
	return nil
}
