package groth16_test

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/zk-census/circuits/census"
	"github.com/vocdoni/zk-census/circuits/testutil"
	"github.com/vocdoni/zk-census/crypto/groth16"
	"github.com/vocdoni/zk-census/types"
	"go.vocdoni.io/dvote/db/metadb"
)

func validProof(t *testing.T) (*groth16.Verifier, *census.Proof) {
	c := qt.New(t)
	keys, err := testutil.CensusKeys()
	c.Assert(err, qt.IsNil)
	verifier, err := keys.Verifier()
	c.Assert(err, qt.IsNil)
	cs, err := testutil.NewCensus(metadb.NewTest(t), 1)
	c.Assert(err, qt.IsNil)
	proof, err := cs.Prove(cs.Members[0], types.Hash{0: 1}, types.Hash{31: 1})
	c.Assert(err, qt.IsNil)
	return verifier, proof
}

func TestVerify(t *testing.T) {
	c := qt.New(t)
	verifier, proof := validProof(t)

	p, err := groth16.ParseProof(proof.A, proof.B, proof.C)
	c.Assert(err, qt.IsNil)
	c.Assert(verifier.Verify(p, proof.PublicInputs), qt.IsNil)

	// encoding round trip
	a, b, cc := p.Bytes()
	c.Assert(a[:], qt.DeepEquals, []byte(proof.A))
	c.Assert(b[:], qt.DeepEquals, []byte(proof.B))
	c.Assert(cc[:], qt.DeepEquals, []byte(proof.C))

	// wrong number of inputs is a format error
	err = verifier.Verify(p, proof.PublicInputs[:3])
	c.Assert(err, qt.ErrorIs, groth16.ErrInvalidProofFormat)

	// swapped A and C are well formed but false
	swapped, err := groth16.ParseProof(proof.C, proof.B, proof.A)
	c.Assert(err, qt.IsNil)
	c.Assert(verifier.Verify(swapped, proof.PublicInputs), qt.ErrorIs, groth16.ErrProofRejected)

	inputs := append([]types.Hash{}, proof.PublicInputs...)
	inputs[1] = types.Hash{}
	c.Assert(verifier.Verify(p, inputs), qt.ErrorIs, groth16.ErrProofRejected)
}

func TestVerifyNonCanonicalInputs(t *testing.T) {
	c := qt.New(t)
	verifier, proof := validProof(t)
	p, err := groth16.ParseProof(proof.A, proof.B, proof.C)
	c.Assert(err, qt.IsNil)

	var modulus types.Hash
	fr.Modulus().FillBytes(modulus[:])
	for i := range proof.PublicInputs {
		// r itself and x+r alias a valid scalar
		inputs := append([]types.Hash{}, proof.PublicInputs...)
		inputs[i] = modulus
		c.Assert(verifier.Verify(p, inputs), qt.ErrorIs, groth16.ErrInvalidProofFormat)

		shifted := new(big.Int).SetBytes(proof.PublicInputs[i][:])
		shifted.Add(shifted, fr.Modulus())
		inputs[i] = types.Hash{}
		shifted.FillBytes(inputs[i][:])
		c.Assert(verifier.Verify(p, inputs), qt.ErrorIs, groth16.ErrInvalidProofFormat)

		raw := make([][]byte, len(inputs))
		for j := range inputs {
			raw[j] = inputs[j][:]
		}
		c.Assert(verifier.VerifyRaw(proof.A, proof.B, proof.C, raw), qt.ErrorIs, groth16.ErrInvalidProofFormat)
	}
}

func TestParseProofFormat(t *testing.T) {
	c := qt.New(t)
	_, proof := validProof(t)

	_, err := groth16.ParseProof(proof.A[:63], proof.B, proof.C)
	c.Assert(err, qt.ErrorIs, groth16.ErrInvalidProofFormat)
	_, err = groth16.ParseProof(proof.A, proof.B[:127], proof.C)
	c.Assert(err, qt.ErrorIs, groth16.ErrInvalidProofFormat)
	_, err = groth16.ParseProof(proof.A, proof.B, append(bytes.Clone(proof.C), 0))
	c.Assert(err, qt.ErrorIs, groth16.ErrInvalidProofFormat)

	// non canonical coordinate
	bad := bytes.Repeat([]byte{0xff}, groth16.G1Size)
	_, err = groth16.ParseProof(bad, proof.B, proof.C)
	c.Assert(err, qt.ErrorIs, groth16.ErrInvalidProofFormat)

	// (1, 1) is not on the curve
	offCurve := make([]byte, groth16.G1Size)
	offCurve[31], offCurve[63] = 1, 1
	_, err = groth16.ParseProof(proof.A, proof.B, offCurve)
	c.Assert(err, qt.ErrorIs, groth16.ErrInvalidProofFormat)

	// G2 with a valid encoding of a point that is not on the twist
	offTwist := make([]byte, groth16.G2Size)
	offTwist[31], offTwist[127] = 1, 1
	_, err = groth16.ParseProof(proof.A, offTwist, proof.C)
	c.Assert(err, qt.ErrorIs, groth16.ErrInvalidProofFormat)

	// the point at infinity parses, and the proof is rejected
	verifier, _ := validProof(t)
	zero := make([]byte, groth16.G1Size)
	inputs := make([][]byte, len(proof.PublicInputs))
	for i, in := range proof.PublicInputs {
		inputs[i] = in.Bytes()
	}
	c.Assert(verifier.VerifyRaw(zero, proof.B, proof.C, inputs), qt.ErrorIs, groth16.ErrProofRejected)

	// short public input
	inputs[0] = inputs[0][:31]
	c.Assert(verifier.VerifyRaw(proof.A, proof.B, proof.C, inputs), qt.ErrorIs, groth16.ErrInvalidProofFormat)
}

func TestLoadVerificationKey(t *testing.T) {
	c := qt.New(t)
	keys, err := testutil.CensusKeys()
	c.Assert(err, qt.IsNil)
	expected, err := groth16.FromGnarkVerifyingKey(keys.VerifyingKey)
	c.Assert(err, qt.IsNil)
	c.Assert(expected.NumPublicInputs(), qt.Equals, types.PublicInputsLen)

	// gnark binary form
	buf := new(bytes.Buffer)
	_, err = keys.VerifyingKey.WriteTo(buf)
	c.Assert(err, qt.IsNil)
	fromGnark, err := groth16.LoadVerificationKey(buf.Bytes())
	c.Assert(err, qt.IsNil)
	c.Assert(fromGnark.Alpha.Equal(&expected.Alpha), qt.IsTrue)
	c.Assert(fromGnark.Delta.Equal(&expected.Delta), qt.IsTrue)
	c.Assert(fromGnark.IC, qt.HasLen, len(expected.IC))

	// snarkjs json form
	data, err := expected.MarshalSnarkJS()
	c.Assert(err, qt.IsNil)
	fromJSON, err := groth16.LoadVerificationKey(data)
	c.Assert(err, qt.IsNil)
	c.Assert(fromJSON.Beta.Equal(&expected.Beta), qt.IsTrue)
	c.Assert(fromJSON.Gamma.Equal(&expected.Gamma), qt.IsTrue)
	for i := range expected.IC {
		c.Assert(fromJSON.IC[i].Equal(&expected.IC[i]), qt.IsTrue)
	}

	// a snarkjs key verifies the same proofs
	verifier, err := groth16.NewVerifier(fromJSON)
	c.Assert(err, qt.IsNil)
	_, proof := validProof(t)
	p, err := groth16.ParseProof(proof.A, proof.B, proof.C)
	c.Assert(err, qt.IsNil)
	c.Assert(verifier.Verify(p, proof.PublicInputs), qt.IsNil)

	_, err = groth16.LoadVerificationKey([]byte(`{"protocol":"plonk","curve":"bn128"}`))
	c.Assert(err, qt.ErrorIs, groth16.ErrInvalidVerificationKey)
	_, err = groth16.LoadVerificationKey([]byte("garbage"))
	c.Assert(err, qt.ErrorIs, groth16.ErrInvalidVerificationKey)
	_, err = groth16.NewVerifier(&groth16.VerificationKey{})
	c.Assert(err, qt.ErrorIs, groth16.ErrInvalidVerificationKey)
}
