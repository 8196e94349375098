// Package groth16 is the proof verification engine of the census. It checks
// Groth16 proofs over BN254 encoded in the EIP-197 (alt_bn128) byte layout
// against a fixed verification key. The engine is pure and stateless: it
// knows nothing about roots, scopes or nullifiers.
package groth16

import (
	"errors"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fp"
)

const (
	// G1Size is the size of an uncompressed G1 point (X || Y).
	G1Size = 64
	// G2Size is the size of an uncompressed G2 point
	// (X.A1 || X.A0 || Y.A1 || Y.A0).
	G2Size = 128
	// ProofASize, ProofBSize and ProofCSize are the encoded sizes of the
	// proof components.
	ProofASize = G1Size
	ProofBSize = G2Size
	ProofCSize = G1Size
	// ScalarSize is the size of an encoded public input.
	ScalarSize = 32

	coordSize = 32
)

var (
	// ErrInvalidProofFormat is returned when any proof component or public
	// input is malformed: wrong length, non canonical coordinate or a point
	// outside the curve or subgroup.
	ErrInvalidProofFormat = errors.New("invalid proof format")
	// ErrProofRejected is returned when a well formed proof does not satisfy
	// the pairing equation.
	ErrProofRejected = errors.New("proof rejected")
	// ErrInvalidVerificationKey is returned when a verification key cannot
	// be parsed or does not match the expected number of public inputs.
	ErrInvalidVerificationKey = errors.New("invalid verification key")
)

// Proof is a parsed Groth16 proof.
type Proof struct {
	A bn254.G1Affine
	B bn254.G2Affine
	C bn254.G1Affine
}

// ParseProof parses the three proof components. It fails with
// ErrInvalidProofFormat before any pairing work if an encoding is invalid.
func ParseProof(a, b, c []byte) (*Proof, error) {
	if len(a) != ProofASize {
		return nil, fmt.Errorf("%w: proof A has %d bytes, expected %d", ErrInvalidProofFormat, len(a), ProofASize)
	}
	if len(b) != ProofBSize {
		return nil, fmt.Errorf("%w: proof B has %d bytes, expected %d", ErrInvalidProofFormat, len(b), ProofBSize)
	}
	if len(c) != ProofCSize {
		return nil, fmt.Errorf("%w: proof C has %d bytes, expected %d", ErrInvalidProofFormat, len(c), ProofCSize)
	}
	p := &Proof{}
	var err error
	if p.A, err = parseG1(a); err != nil {
		return nil, fmt.Errorf("%w: proof A: %v", ErrInvalidProofFormat, err)
	}
	if p.B, err = parseG2(b); err != nil {
		return nil, fmt.Errorf("%w: proof B: %v", ErrInvalidProofFormat, err)
	}
	if p.C, err = parseG1(c); err != nil {
		return nil, fmt.Errorf("%w: proof C: %v", ErrInvalidProofFormat, err)
	}
	return p, nil
}

// Bytes returns the encoded proof components.
func (p *Proof) Bytes() (a [ProofASize]byte, b [ProofBSize]byte, c [ProofCSize]byte) {
	return encodeG1(&p.A), encodeG2(&p.B), encodeG1(&p.C)
}

// parseCoord decodes a big-endian base field element and rejects values that
// are not reduced modulo p.
func parseCoord(b []byte) (fp.Element, error) {
	var e fp.Element
	e.SetBytes(b)
	if canonical := e.Bytes(); string(canonical[:]) != string(b) {
		return e, fmt.Errorf("coordinate is not canonical")
	}
	return e, nil
}

func isZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

func parseG1(b []byte) (bn254.G1Affine, error) {
	var p bn254.G1Affine
	if isZero(b) {
		return p, nil
	}
	var err error
	if p.X, err = parseCoord(b[:coordSize]); err != nil {
		return p, err
	}
	if p.Y, err = parseCoord(b[coordSize:]); err != nil {
		return p, err
	}
	if !p.IsOnCurve() {
		return p, fmt.Errorf("G1 point is not on curve")
	}
	return p, nil
}

func parseG2(b []byte) (bn254.G2Affine, error) {
	var p bn254.G2Affine
	if isZero(b) {
		return p, nil
	}
	var err error
	if p.X.A1, err = parseCoord(b[0:coordSize]); err != nil {
		return p, err
	}
	if p.X.A0, err = parseCoord(b[coordSize : 2*coordSize]); err != nil {
		return p, err
	}
	if p.Y.A1, err = parseCoord(b[2*coordSize : 3*coordSize]); err != nil {
		return p, err
	}
	if p.Y.A0, err = parseCoord(b[3*coordSize:]); err != nil {
		return p, err
	}
	if !p.IsOnCurve() {
		return p, fmt.Errorf("G2 point is not on curve")
	}
	if !p.IsInSubGroup() {
		return p, fmt.Errorf("G2 point is not in the prime order subgroup")
	}
	return p, nil
}

func encodeG1(p *bn254.G1Affine) [G1Size]byte {
	var out [G1Size]byte
	if p.IsInfinity() {
		return out
	}
	x, y := p.X.Bytes(), p.Y.Bytes()
	copy(out[:coordSize], x[:])
	copy(out[coordSize:], y[:])
	return out
}

func encodeG2(p *bn254.G2Affine) [G2Size]byte {
	var out [G2Size]byte
	if p.IsInfinity() {
		return out
	}
	xa1, xa0 := p.X.A1.Bytes(), p.X.A0.Bytes()
	ya1, ya0 := p.Y.A1.Bytes(), p.Y.A0.Bytes()
	copy(out[0:], xa1[:])
	copy(out[coordSize:], xa0[:])
	copy(out[2*coordSize:], ya1[:])
	copy(out[3*coordSize:], ya0[:])
	return out
}
