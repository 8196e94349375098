package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/vocdoni/zk-census/accumulator"
	"github.com/vocdoni/zk-census/attestation"
	"github.com/vocdoni/zk-census/ledger"
)

// censusState returns the ledger state
// GET /census
func (a *API) censusState(w http.ResponseWriter, r *http.Request) {
	st, err := a.ledger.State()
	if err != nil {
		ledgerError(err).Write(w)
		return
	}
	res := &CensusState{
		LedgerState:       *st,
		ExternalNullifier: ledger.ExternalNullifier(st.CurrentScope),
	}
	if signers := a.ledger.TrustedSigners(); signers != nil {
		res.TrustedSigners = signers.List()
	}
	httpWriteJSON(w, res)
}

// scopeAggregate returns the counters of a scope
// GET /census/scopes/{scope}/aggregate
func (a *API) scopeAggregate(w http.ResponseWriter, r *http.Request) {
	scope, err := uintParam(r, ScopeURLParam)
	if err != nil {
		ErrMalformedParam.WithErr(err).Write(w)
		return
	}
	agg, err := a.ledger.Aggregate(scope)
	if err != nil {
		ledgerError(err).Write(w)
		return
	}
	httpWriteJSON(w, agg)
}

// nullifier returns the record of a claimed nullifier
// GET /census/nullifiers/{nullifier}
func (a *API) nullifier(w http.ResponseWriter, r *http.Request) {
	nullifierHash, err := hashParam(r, NullifierURLParam)
	if err != nil {
		ErrMalformedParam.WithErr(err).Write(w)
		return
	}
	rec, err := a.ledger.Nullifier(nullifierHash)
	if err != nil {
		ledgerError(err).Write(w)
		return
	}
	httpWriteJSON(w, rec)
}

// submitProof counts the identity behind a census proof
// POST /census/proofs
func (a *API) submitProof(w http.ResponseWriter, r *http.Request) {
	sub := &ProofSubmission{}
	if !decodeBody(w, r, sub) {
		return
	}
	rec, err := a.ledger.SubmitProof(r.Context(), sub)
	if err != nil {
		ledgerError(err).Write(w)
		return
	}
	httpWriteJSON(w, rec)
}

// submitAttestation counts the identity behind a signed attestation
// POST /census/attestations
func (a *API) submitAttestation(w http.ResponseWriter, r *http.Request) {
	att := &attestation.Attestation{}
	if !decodeBody(w, r, att) {
		return
	}
	rec, err := a.ledger.SubmitAttestation(r.Context(), att)
	if err != nil {
		ledgerError(err).Write(w)
		return
	}
	httpWriteJSON(w, rec)
}

// issueAttestation verifies a census proof and signs an attestation for it
// POST /attestations
func (a *API) issueAttestation(w http.ResponseWriter, r *http.Request) {
	if a.issuer == nil {
		ErrIssuerUnavailable.Write(w)
		return
	}
	sub := &ProofSubmission{}
	if !decodeBody(w, r, sub) {
		return
	}
	att, err := a.issuer.Issue(sub.A, sub.B, sub.C, sub.PublicInputs, time.Now())
	if err != nil {
		ledgerError(err).Write(w)
		return
	}
	httpWriteJSON(w, att)
}

// accumulatorProof returns the Merkle path of an enrolled leaf
// GET /accumulator/proofs/{index}
func (a *API) accumulatorProof(w http.ResponseWriter, r *http.Request) {
	if a.accumulator == nil {
		ErrAccumulatorUnavailable.Write(w)
		return
	}
	index, err := uintParam(r, IndexURLParam)
	if err != nil {
		ErrMalformedParam.WithErr(err).Write(w)
		return
	}
	proof, err := a.accumulator.Proof(index)
	if errors.Is(err, accumulator.ErrIndexOutOfRange) {
		ErrResourceNotFound.WithErr(err).Write(w)
		return
	}
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	res := &AccumulatorProof{
		Leaf:     proof.Leaf,
		Index:    proof.Index,
		Root:     proof.Root,
		Siblings: proof.Siblings,
	}
	for _, bit := range proof.PathBits() {
		res.PathBits = append(res.PathBits, int(bit))
	}
	httpWriteJSON(w, res)
}
