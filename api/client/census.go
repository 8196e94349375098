package client

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/vocdoni/zk-census/api"
	"github.com/vocdoni/zk-census/attestation"
	"github.com/vocdoni/zk-census/storage"
	"github.com/vocdoni/zk-census/types"
)

// AdminToken returns a bearer token for the admin endpoints, signed with key
// and valid for ttl.
func AdminToken(key ed25519.PrivateKey, ttl time.Duration) (string, error) {
	return api.NewAdminToken(key, ttl)
}

// APIError is a non 200 response of the API.
type APIError struct {
	Status  int
	Code    int    `json:"code"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %d (code %d: %s)", errCodeNot200, e.Status, e.Code, e.Message)
}

// call performs the request and decodes a successful JSON response into out,
// if not nil.
func (c *HTTPclient) call(method string, body, out any, urlPath ...string) error {
	data, status, err := c.Request(method, body, nil, urlPath...)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		apiErr := &APIError{Status: status}
		if err := json.Unmarshal(data, apiErr); err != nil {
			apiErr.Message = string(data)
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// State returns the census state.
func (c *HTTPclient) State() (*api.CensusState, error) {
	st := &api.CensusState{}
	return st, c.call(HTTPGET, nil, st, api.CensusEndpoint)
}

// Aggregate returns the counters of a scope.
func (c *HTTPclient) Aggregate(scope uint64) (*storage.ScopeAggregate, error) {
	agg := &storage.ScopeAggregate{}
	return agg, c.call(HTTPGET, nil, agg, "census", "scopes", strconv.FormatUint(scope, 10), "aggregate")
}

// Nullifier returns the record of a claimed nullifier.
func (c *HTTPclient) Nullifier(nullifierHash types.Hash) (*storage.NullifierRecord, error) {
	rec := &storage.NullifierRecord{}
	return rec, c.call(HTTPGET, nil, rec, "census", "nullifiers", nullifierHash.String())
}

// SubmitProof submits a census proof.
func (c *HTTPclient) SubmitProof(sub *api.ProofSubmission) (*storage.NullifierRecord, error) {
	rec := &storage.NullifierRecord{}
	return rec, c.call(HTTPPOST, sub, rec, api.ProofsEndpoint)
}

// SubmitAttestation submits an attestation signed by a trusted verifier.
func (c *HTTPclient) SubmitAttestation(att *attestation.Attestation) (*storage.NullifierRecord, error) {
	rec := &storage.NullifierRecord{}
	return rec, c.call(HTTPPOST, att, rec, api.CensusAttestationsEndpoint)
}

// RequestAttestation asks the node to verify a census proof and sign an
// attestation for it.
func (c *HTTPclient) RequestAttestation(sub *api.ProofSubmission) (*attestation.Attestation, error) {
	att := &attestation.Attestation{}
	return att, c.call(HTTPPOST, sub, att, api.AttestationsEndpoint)
}

// AccumulatorProof returns the Merkle path of an enrolled leaf.
func (c *HTTPclient) AccumulatorProof(index uint64) (*api.AccumulatorProof, error) {
	proof := &api.AccumulatorProof{}
	return proof, c.call(HTTPGET, nil, proof, "accumulator", "proofs", strconv.FormatUint(index, 10))
}

// Initialize creates the census with the client admin key as admin.
func (c *HTTPclient) Initialize(scopeDuration int64) error {
	return c.call(HTTPPOST, &api.Initialize{ScopeDuration: scopeDuration}, nil, api.AdminInitializeEndpoint)
}

// RecordEnrollment records an identity commitment and returns its leaf index.
func (c *HTTPclient) RecordEnrollment(commitment types.Hash) (uint64, error) {
	res := &api.EnrollmentResponse{}
	if err := c.call(HTTPPOST, &api.Enrollment{Commitment: commitment}, res, api.AdminEnrollmentsEndpoint); err != nil {
		return 0, err
	}
	return res.LeafIndex, nil
}

// PublishRoot publishes root, or the node accumulator root if root is zero,
// and returns the published root.
func (c *HTTPclient) PublishRoot(root types.Hash) (types.Hash, error) {
	res := &api.Root{}
	if err := c.call(HTTPPOST, &api.Root{Root: root}, res, api.AdminRootEndpoint); err != nil {
		return types.Hash{}, err
	}
	return res.Root, nil
}

// AdvanceScope opens the next scope and returns it.
func (c *HTTPclient) AdvanceScope() (uint64, error) {
	res := &api.Scope{}
	if err := c.call(HTTPPOST, struct{}{}, res, api.AdminScopeEndpoint); err != nil {
		return 0, err
	}
	return res.Scope, nil
}

// SetActive activates or deactivates the census.
func (c *HTTPclient) SetActive(active bool) error {
	return c.call(HTTPPOST, &api.Active{Active: active}, nil, api.AdminActiveEndpoint)
}
