package api

import (
	"github.com/vocdoni/zk-census/ledger"
	"github.com/vocdoni/zk-census/storage"
	"github.com/vocdoni/zk-census/types"
)

// ProofSubmission is the body of a census proof submission and of an
// attestation request.
type ProofSubmission = ledger.ProofSubmission

// CensusState is the response to a census state request.
type CensusState struct {
	storage.LedgerState
	ExternalNullifier types.Hash       `json:"externalNullifier"`
	TrustedSigners    []types.Identity `json:"trustedSigners"`
}

// Initialize is the body of a census initialization request.
type Initialize struct {
	ScopeDuration int64 `json:"scopeDuration"`
}

// Enrollment is the body of an enrollment request.
type Enrollment struct {
	Commitment types.Hash `json:"commitment"`
}

// EnrollmentResponse is the response to an enrollment request.
type EnrollmentResponse struct {
	LeafIndex uint64 `json:"leafIndex"`
}

// Root is the body and the response of a root publication. An empty body
// root publishes the current accumulator root.
type Root struct {
	Root types.Hash `json:"root"`
}

// Scope is the response to a scope advance request.
type Scope struct {
	Scope uint64 `json:"scope"`
}

// Active is the body of an activation request.
type Active struct {
	Active bool `json:"active"`
}

// AccumulatorProof is the Merkle path of an enrolled leaf.
type AccumulatorProof struct {
	Leaf     types.Hash   `json:"leaf"`
	Index    uint64       `json:"index"`
	Root     types.Hash   `json:"root"`
	Siblings []types.Hash `json:"siblings"`
	PathBits []int        `json:"pathBits"`
}
