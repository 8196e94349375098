package ledger

import (
	"errors"

	"github.com/vocdoni/zk-census/attestation"
	"github.com/vocdoni/zk-census/crypto/groth16"
	"github.com/vocdoni/zk-census/storage"
)

// Authorization errors.
var (
	ErrUnauthorizedAdmin = errors.New("caller is not the census admin")
)

// Format errors.
var (
	ErrInvalidProofFormat       = groth16.ErrInvalidProofFormat
	ErrInvalidCommitment        = errors.New("invalid identity commitment")
	ErrInvalidAttestationFormat = attestation.ErrInvalidFormat
	ErrInvalidScopeDuration     = errors.New("invalid scope duration")
)

// Cryptographic errors.
var (
	ErrInvalidProof             = groth16.ErrProofRejected
	ErrInvalidVerifierSignature = attestation.ErrInvalidSignature
)

// Consistency errors.
var (
	ErrInvalidMerkleRoot = errors.New("merkle root does not match the census root")
	ErrScopeMismatch     = errors.New("external nullifier does not match the current scope")
)

// Uniqueness errors.
var (
	ErrNullifierAlreadyUsed = errors.New("nullifier already used")
)

// Freshness errors.
var (
	ErrAttestationExpired = attestation.ErrExpired
)

// Arithmetic errors.
var (
	ErrArithmeticOverflow = errors.New("arithmetic overflow")
)

// State errors.
var (
	ErrNotInitialized     = errors.New("census not initialized")
	ErrAlreadyInitialized = errors.New("census already initialized")
	ErrCensusNotActive    = errors.New("census is not active")
	ErrTreeFull           = errors.New("membership tree is full")
	ErrUntrustedVerifier  = attestation.ErrUntrustedSigner
	ErrNotFound           = storage.ErrNotFound
)

// Error categories returned by Category.
const (
	CategoryAuthorization = "authorization"
	CategoryFormat        = "format"
	CategoryCryptographic = "cryptographic"
	CategoryConsistency   = "consistency"
	CategoryUniqueness    = "uniqueness"
	CategoryFreshness     = "freshness"
	CategoryArithmetic    = "arithmetic"
	CategoryState         = "state"
	CategoryInternal      = "internal"
)

var categories = []struct {
	category string
	errs     []error
}{
	{CategoryAuthorization, []error{ErrUnauthorizedAdmin}},
	{CategoryFormat, []error{ErrInvalidProofFormat, ErrInvalidCommitment, ErrInvalidAttestationFormat, ErrInvalidScopeDuration}},
	{CategoryCryptographic, []error{ErrInvalidProof, ErrInvalidVerifierSignature}},
	{CategoryConsistency, []error{ErrInvalidMerkleRoot, ErrScopeMismatch}},
	{CategoryUniqueness, []error{ErrNullifierAlreadyUsed}},
	{CategoryFreshness, []error{ErrAttestationExpired}},
	{CategoryArithmetic, []error{ErrArithmeticOverflow}},
	{CategoryState, []error{ErrNotInitialized, ErrAlreadyInitialized, ErrCensusNotActive, ErrTreeFull, ErrUntrustedVerifier, ErrNotFound}},
}

// Category returns the class of a ledger error, or CategoryInternal for
// errors not produced by the ledger rules. It returns an empty string for a
// nil error.
func Category(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range categories {
		for _, target := range c.errs {
			if errors.Is(err, target) {
				return c.category
			}
		}
	}
	return CategoryInternal
}
