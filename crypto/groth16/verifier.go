package groth16

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/backend/groth16"
	groth16_bn254 "github.com/consensys/gnark/backend/groth16/bn254"
	"github.com/vocdoni/zk-census/types"
)

// Verifier checks proofs against a fixed verification key. It holds no
// mutable state and can be shared between goroutines.
type Verifier struct {
	vk *VerificationKey
}

// NewVerifier returns a Verifier for the given key.
func NewVerifier(vk *VerificationKey) (*Verifier, error) {
	if vk == nil || len(vk.IC) == 0 {
		return nil, fmt.Errorf("%w: empty IC", ErrInvalidVerificationKey)
	}
	return &Verifier{vk: vk}, nil
}

// NumPublicInputs returns the number of public inputs the verifier expects.
func (v *Verifier) NumPublicInputs() int {
	return v.vk.NumPublicInputs()
}

// Verify checks the proof against the public inputs. Each input is read as a
// big-endian integer and must be lower than the scalar field order. It
// returns nil if the proof is valid, ErrInvalidProofFormat if the inputs are
// malformed and ErrProofRejected if the pairing check fails.
func (v *Verifier) Verify(proof *Proof, inputs []types.Hash) error {
	if proof == nil {
		return fmt.Errorf("%w: nil proof", ErrInvalidProofFormat)
	}
	if len(inputs) != v.vk.NumPublicInputs() {
		return fmt.Errorf("%w: got %d public inputs, expected %d",
			ErrInvalidProofFormat, len(inputs), v.vk.NumPublicInputs())
	}
	// each input must be < r, x+r would alias x
	scalars := make([]fr.Element, len(inputs))
	for i, in := range inputs {
		if err := scalars[i].SetBytesCanonical(in[:]); err != nil {
			return fmt.Errorf("%w: public input %d is not a canonical field element",
				ErrInvalidProofFormat, i)
		}
	}
	// vk_x = IC[0] + sum(x_i * IC[i+1])
	var acc bn254.G1Jac
	acc.FromAffine(&v.vk.IC[0])
	for i := range scalars {
		x := scalars[i]
		if x.IsZero() {
			continue
		}
		var s big.Int
		x.BigInt(&s)
		var term bn254.G1Affine
		term.ScalarMultiplication(&v.vk.IC[i+1], &s)
		acc.AddMixed(&term)
	}
	var vkx bn254.G1Affine
	vkx.FromJacobian(&acc)

	// e(-A, B) * e(alpha, beta) * e(vk_x, gamma) * e(C, delta) == 1
	var negA bn254.G1Affine
	negA.Neg(&proof.A)
	ok, err := bn254.PairingCheck(
		[]bn254.G1Affine{negA, v.vk.Alpha, vkx, proof.C},
		[]bn254.G2Affine{proof.B, v.vk.Beta, v.vk.Gamma, v.vk.Delta},
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProofRejected, err)
	}
	if !ok {
		return ErrProofRejected
	}
	return nil
}

// VerifyRaw parses the encoded proof and public inputs and verifies them.
// Every input must be exactly ScalarSize bytes long.
func (v *Verifier) VerifyRaw(a, b, c []byte, inputs [][]byte) error {
	proof, err := ParseProof(a, b, c)
	if err != nil {
		return err
	}
	hashes := make([]types.Hash, len(inputs))
	for i, in := range inputs {
		if len(in) != ScalarSize {
			return fmt.Errorf("%w: public input %d has %d bytes, expected %d",
				ErrInvalidProofFormat, i, len(in), ScalarSize)
		}
		copy(hashes[i][:], in)
	}
	return v.Verify(proof, hashes)
}

// FromGnarkProof converts a BN254 gnark proof. Proofs carrying commitments
// are rejected.
func FromGnarkProof(proof groth16.Proof) (*Proof, error) {
	bp, ok := proof.(*groth16_bn254.Proof)
	if !ok {
		return nil, fmt.Errorf("%w: not a BN254 proof", ErrInvalidProofFormat)
	}
	if len(bp.Commitments) > 0 {
		return nil, fmt.Errorf("%w: commitments are not supported", ErrInvalidProofFormat)
	}
	return &Proof{A: bp.Ar, B: bp.Bs, C: bp.Krs}, nil
}
