package attestation

import (
	"crypto/ed25519"
	"fmt"
	"time"

	"github.com/vocdoni/zk-census/crypto/groth16"
	"github.com/vocdoni/zk-census/types"
)

// ProofVerifier checks a census proof against its public inputs.
type ProofVerifier interface {
	VerifyRaw(a, b, c []byte, inputs [][]byte) error
}

// Issuer is the trusted verifier side: it checks census proofs and signs
// attestations for the valid ones.
type Issuer struct {
	key      ed25519.PrivateKey
	verifier ProofVerifier
}

// NewIssuer returns an issuer signing with key.
func NewIssuer(key ed25519.PrivateKey, verifier ProofVerifier) (*Issuer, error) {
	if len(key) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid issuer key length: %d", len(key))
	}
	if verifier == nil {
		return nil, fmt.Errorf("no proof verifier provided")
	}
	return &Issuer{key: key, verifier: verifier}, nil
}

// Identity returns the public key of the issuer.
func (i *Issuer) Identity() types.Identity {
	id, _ := types.IdentityFromPublicKey(i.key.Public().(ed25519.PublicKey))
	return id
}

// Issue verifies the proof and returns an attestation over its public inputs
// timestamped with now. The issuer does not check the root or the scope, the
// ledger does when the attestation is submitted.
func (i *Issuer) Issue(a, b, c []byte, inputs []types.Hash, now time.Time) (*Attestation, error) {
	if len(inputs) != types.PublicInputsLen {
		return nil, fmt.Errorf("%w: got %d public inputs, expected %d",
			groth16.ErrInvalidProofFormat, len(inputs), types.PublicInputsLen)
	}
	raw := make([][]byte, len(inputs))
	for j, in := range inputs {
		raw[j] = in.Bytes()
	}
	if err := i.verifier.VerifyRaw(a, b, c, raw); err != nil {
		return nil, err
	}
	att := &Attestation{
		Timestamp:         now.Unix(),
		Root:              inputs[0],
		NullifierHash:     inputs[1],
		SignalHash:        inputs[2],
		ExternalNullifier: inputs[3],
	}
	if err := att.Sign(i.key); err != nil {
		return nil, err
	}
	return att, nil
}
