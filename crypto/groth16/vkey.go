package groth16

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fp"
	"github.com/consensys/gnark/backend/groth16"
	groth16_bn254 "github.com/consensys/gnark/backend/groth16/bn254"
)

// VerificationKey holds the points of a Groth16 verification key. IC has one
// more element than the number of public inputs.
type VerificationKey struct {
	Alpha bn254.G1Affine
	Beta  bn254.G2Affine
	Gamma bn254.G2Affine
	Delta bn254.G2Affine
	IC    []bn254.G1Affine
}

// NumPublicInputs returns the number of public inputs the key expects.
func (vk *VerificationKey) NumPublicInputs() int {
	if len(vk.IC) == 0 {
		return 0
	}
	return len(vk.IC) - 1
}

// FromGnarkVerifyingKey converts a BN254 gnark verifying key. Keys of
// circuits that use commitments are rejected since their verification needs
// extra proof elements that the raw encoding does not carry.
func FromGnarkVerifyingKey(vk groth16.VerifyingKey) (*VerificationKey, error) {
	bvk, ok := vk.(*groth16_bn254.VerifyingKey)
	if !ok {
		return nil, fmt.Errorf("%w: not a BN254 verifying key", ErrInvalidVerificationKey)
	}
	if len(bvk.CommitmentKeys) > 0 {
		return nil, fmt.Errorf("%w: commitments are not supported", ErrInvalidVerificationKey)
	}
	ic := make([]bn254.G1Affine, len(bvk.G1.K))
	copy(ic, bvk.G1.K)
	return &VerificationKey{
		Alpha: bvk.G1.Alpha,
		Beta:  bvk.G2.Beta,
		Gamma: bvk.G2.Gamma,
		Delta: bvk.G2.Delta,
		IC:    ic,
	}, nil
}

// ReadGnarkVerifyingKey decodes a gnark serialized BN254 verifying key.
func ReadGnarkVerifyingKey(r io.Reader) (*VerificationKey, error) {
	vk := groth16.NewVerifyingKey(ecc.BN254)
	if _, err := vk.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidVerificationKey, err)
	}
	return FromGnarkVerifyingKey(vk)
}

// snarkJSVerificationKey is the verification_key.json document exported by
// snarkjs. Coordinates are decimal strings in projective form.
type snarkJSVerificationKey struct {
	Protocol string     `json:"protocol"`
	Curve    string     `json:"curve"`
	NPublic  int        `json:"nPublic"`
	Alpha    []string   `json:"vk_alpha_1"`
	Beta     [][]string `json:"vk_beta_2"`
	Gamma    [][]string `json:"vk_gamma_2"`
	Delta    [][]string `json:"vk_delta_2"`
	IC       [][]string `json:"IC"`
}

// ParseSnarkJSVerificationKey decodes a snarkjs Groth16 verification key for
// the bn128 curve.
func ParseSnarkJSVerificationKey(data []byte) (*VerificationKey, error) {
	var doc snarkJSVerificationKey
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidVerificationKey, err)
	}
	if doc.Protocol != "groth16" {
		return nil, fmt.Errorf("%w: unsupported protocol %q", ErrInvalidVerificationKey, doc.Protocol)
	}
	if doc.Curve != "bn128" && doc.Curve != "bn254" {
		return nil, fmt.Errorf("%w: unsupported curve %q", ErrInvalidVerificationKey, doc.Curve)
	}
	vk := &VerificationKey{}
	var err error
	if vk.Alpha, err = snarkJSG1(doc.Alpha); err != nil {
		return nil, fmt.Errorf("%w: alpha: %v", ErrInvalidVerificationKey, err)
	}
	if vk.Beta, err = snarkJSG2(doc.Beta); err != nil {
		return nil, fmt.Errorf("%w: beta: %v", ErrInvalidVerificationKey, err)
	}
	if vk.Gamma, err = snarkJSG2(doc.Gamma); err != nil {
		return nil, fmt.Errorf("%w: gamma: %v", ErrInvalidVerificationKey, err)
	}
	if vk.Delta, err = snarkJSG2(doc.Delta); err != nil {
		return nil, fmt.Errorf("%w: delta: %v", ErrInvalidVerificationKey, err)
	}
	for i, p := range doc.IC {
		point, err := snarkJSG1(p)
		if err != nil {
			return nil, fmt.Errorf("%w: IC[%d]: %v", ErrInvalidVerificationKey, i, err)
		}
		vk.IC = append(vk.IC, point)
	}
	if doc.NPublic != 0 && doc.NPublic != vk.NumPublicInputs() {
		return nil, fmt.Errorf("%w: nPublic is %d but IC has %d points",
			ErrInvalidVerificationKey, doc.NPublic, len(vk.IC))
	}
	return vk, nil
}

// LoadVerificationKey decodes a verification key either in snarkjs JSON form
// or in gnark binary form.
func LoadVerificationKey(data []byte) (*VerificationKey, error) {
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		return ParseSnarkJSVerificationKey(trimmed)
	}
	return ReadGnarkVerifyingKey(bytes.NewReader(data))
}

func decimalToFp(s string) (fp.Element, error) {
	var e fp.Element
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return e, fmt.Errorf("invalid decimal %q", s)
	}
	if n.Sign() < 0 || n.Cmp(fp.Modulus()) >= 0 {
		return e, fmt.Errorf("coordinate out of range")
	}
	e.SetBigInt(n)
	return e, nil
}

// snarkJSG1 parses [x, y, z]; z must be 1 except for the point at infinity.
func snarkJSG1(coords []string) (bn254.G1Affine, error) {
	var p bn254.G1Affine
	if len(coords) != 3 {
		return p, fmt.Errorf("expected 3 coordinates, got %d", len(coords))
	}
	if coords[2] == "0" {
		return p, nil
	}
	if coords[2] != "1" {
		return p, fmt.Errorf("point is not normalized")
	}
	var err error
	if p.X, err = decimalToFp(coords[0]); err != nil {
		return p, err
	}
	if p.Y, err = decimalToFp(coords[1]); err != nil {
		return p, err
	}
	if !p.IsOnCurve() {
		return p, fmt.Errorf("G1 point is not on curve")
	}
	return p, nil
}

// snarkJSG2 parses [[x.A0, x.A1], [y.A0, y.A1], [z.A0, z.A1]].
func snarkJSG2(coords [][]string) (bn254.G2Affine, error) {
	var p bn254.G2Affine
	if len(coords) != 3 {
		return p, fmt.Errorf("expected 3 coordinates, got %d", len(coords))
	}
	for _, c := range coords {
		if len(c) != 2 {
			return p, fmt.Errorf("expected 2 limbs per coordinate")
		}
	}
	if coords[2][0] == "0" && coords[2][1] == "0" {
		return p, nil
	}
	if coords[2][0] != "1" || coords[2][1] != "0" {
		return p, fmt.Errorf("point is not normalized")
	}
	var err error
	if p.X.A0, err = decimalToFp(coords[0][0]); err != nil {
		return p, err
	}
	if p.X.A1, err = decimalToFp(coords[0][1]); err != nil {
		return p, err
	}
	if p.Y.A0, err = decimalToFp(coords[1][0]); err != nil {
		return p, err
	}
	if p.Y.A1, err = decimalToFp(coords[1][1]); err != nil {
		return p, err
	}
	if !p.IsOnCurve() || !p.IsInSubGroup() {
		return p, fmt.Errorf("G2 point is not in the prime order subgroup")
	}
	return p, nil
}

// MarshalSnarkJS encodes the key as a snarkjs verification_key.json
// document.
func (vk *VerificationKey) MarshalSnarkJS() ([]byte, error) {
	doc := snarkJSVerificationKey{
		Protocol: "groth16",
		Curve:    "bn128",
		NPublic:  vk.NumPublicInputs(),
		Alpha:    g1ToSnarkJS(&vk.Alpha),
		Beta:     g2ToSnarkJS(&vk.Beta),
		Gamma:    g2ToSnarkJS(&vk.Gamma),
		Delta:    g2ToSnarkJS(&vk.Delta),
	}
	for i := range vk.IC {
		doc.IC = append(doc.IC, g1ToSnarkJS(&vk.IC[i]))
	}
	return json.MarshalIndent(doc, "", " ")
}

func fpToDecimal(e *fp.Element) string {
	var n big.Int
	e.BigInt(&n)
	return n.String()
}

func g1ToSnarkJS(p *bn254.G1Affine) []string {
	if p.IsInfinity() {
		return []string{"0", "1", "0"}
	}
	return []string{fpToDecimal(&p.X), fpToDecimal(&p.Y), "1"}
}

func g2ToSnarkJS(p *bn254.G2Affine) [][]string {
	if p.IsInfinity() {
		return [][]string{{"0", "0"}, {"1", "0"}, {"0", "0"}}
	}
	return [][]string{
		{fpToDecimal(&p.X.A0), fpToDecimal(&p.X.A1)},
		{fpToDecimal(&p.Y.A0), fpToDecimal(&p.Y.A1)},
		{"1", "0"},
	}
}
