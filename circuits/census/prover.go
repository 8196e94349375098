package census

import (
	"bytes"
	"fmt"
	"io"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	cgroth16 "github.com/vocdoni/zk-census/crypto/groth16"
	"github.com/vocdoni/zk-census/crypto/hash/mimc"
	"github.com/vocdoni/zk-census/types"
)

// Keys bundles the compiled circuit with its Groth16 keys.
type Keys struct {
	CS           constraint.ConstraintSystem
	ProvingKey   groth16.ProvingKey
	VerifyingKey groth16.VerifyingKey
}

// Compile compiles the census circuit over the BN254 scalar field.
func Compile() (constraint.ConstraintSystem, error) {
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &Circuit{})
	if err != nil {
		return nil, fmt.Errorf("failed to compile census circuit: %w", err)
	}
	return ccs, nil
}

// Setup compiles the circuit and runs a Groth16 setup. The setup is not a
// ceremony: whoever runs it knows the toxic waste.
func Setup() (*Keys, error) {
	ccs, err := Compile()
	if err != nil {
		return nil, err
	}
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, fmt.Errorf("failed to setup census circuit: %w", err)
	}
	return &Keys{CS: ccs, ProvingKey: pk, VerifyingKey: vk}, nil
}

// ReadKeys decodes a constraint system and a proving key written by
// WriteTo. The verifying key is optional.
func ReadKeys(ccsData, pkData, vkData []byte) (*Keys, error) {
	ccs := groth16.NewCS(ecc.BN254)
	if _, err := ccs.ReadFrom(bytes.NewReader(ccsData)); err != nil {
		return nil, fmt.Errorf("failed to read census circuit definition: %w", err)
	}
	pk := groth16.NewProvingKey(ecc.BN254)
	if _, err := pk.ReadFrom(bytes.NewReader(pkData)); err != nil {
		return nil, fmt.Errorf("failed to read census proving key: %w", err)
	}
	keys := &Keys{CS: ccs, ProvingKey: pk}
	if len(vkData) > 0 {
		vk := groth16.NewVerifyingKey(ecc.BN254)
		if _, err := vk.ReadFrom(bytes.NewReader(vkData)); err != nil {
			return nil, fmt.Errorf("failed to read census verifying key: %w", err)
		}
		keys.VerifyingKey = vk
	}
	return keys, nil
}

// WriteTo serializes the circuit definition and both keys.
func (k *Keys) WriteTo(ccsW, pkW, vkW io.Writer) error {
	if _, err := k.CS.WriteTo(ccsW); err != nil {
		return fmt.Errorf("failed to write circuit definition: %w", err)
	}
	if _, err := k.ProvingKey.WriteTo(pkW); err != nil {
		return fmt.Errorf("failed to write proving key: %w", err)
	}
	if _, err := k.VerifyingKey.WriteTo(vkW); err != nil {
		return fmt.Errorf("failed to write verifying key: %w", err)
	}
	return nil
}

// Verifier returns a raw proof verifier for the verifying key.
func (k *Keys) Verifier() (*cgroth16.Verifier, error) {
	if k.VerifyingKey == nil {
		return nil, fmt.Errorf("verifying key not loaded")
	}
	vk, err := cgroth16.FromGnarkVerifyingKey(k.VerifyingKey)
	if err != nil {
		return nil, err
	}
	return cgroth16.NewVerifier(vk)
}

// Inputs are the values needed to build a census proof.
type Inputs struct {
	IdentityNullifier types.Hash
	IdentityTrapdoor  types.Hash
	LeafIndex         uint64
	Siblings          []types.Hash
	Root              types.Hash
	SignalHash        types.Hash
	ExternalNullifier types.Hash
}

// Proof is a census proof in its raw encoding plus its public inputs.
type Proof struct {
	A            types.HexBytes `json:"a"`
	B            types.HexBytes `json:"b"`
	C            types.HexBytes `json:"c"`
	PublicInputs []types.Hash   `json:"publicInputs"`
}

// Assignment returns the full witness assignment for the inputs.
func Assignment(in *Inputs) (*Circuit, error) {
	if len(in.Siblings) != types.TreeDepth {
		return nil, fmt.Errorf("expected %d siblings, got %d", types.TreeDepth, len(in.Siblings))
	}
	assignment := &Circuit{
		Root:              toBig(in.Root),
		NullifierHash:     toBig(mimc.Hash2(in.IdentityNullifier, in.ExternalNullifier)),
		SignalHash:        toBig(in.SignalHash),
		ExternalNullifier: toBig(in.ExternalNullifier),
		IdentityNullifier: toBig(in.IdentityNullifier),
		IdentityTrapdoor:  toBig(in.IdentityTrapdoor),
	}
	for i := 0; i < types.TreeDepth; i++ {
		assignment.Siblings[i] = toBig(in.Siblings[i])
		assignment.PathBits[i] = (in.LeafIndex >> i) & 1
	}
	return assignment, nil
}

// Prove builds a Groth16 proof for the inputs and returns it in the raw
// encoding accepted by the census ledger.
func (k *Keys) Prove(in *Inputs) (*Proof, error) {
	assignment, err := Assignment(in)
	if err != nil {
		return nil, err
	}
	witness, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("failed to create witness: %w", err)
	}
	gproof, err := groth16.Prove(k.CS, k.ProvingKey, witness)
	if err != nil {
		return nil, fmt.Errorf("failed to prove: %w", err)
	}
	proof, err := cgroth16.FromGnarkProof(gproof)
	if err != nil {
		return nil, err
	}
	a, b, c := proof.Bytes()
	return &Proof{
		A: a[:],
		B: b[:],
		C: c[:],
		PublicInputs: []types.Hash{
			mimc.Canonical(in.Root),
			mimc.Hash2(in.IdentityNullifier, in.ExternalNullifier),
			mimc.Canonical(in.SignalHash),
			mimc.Canonical(in.ExternalNullifier),
		},
	}, nil
}

func toBig(h types.Hash) *big.Int {
	c := mimc.Canonical(h)
	return new(big.Int).SetBytes(c[:])
}
