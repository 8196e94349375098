package api

import (
	"net/http"

	"github.com/vocdoni/zk-census/log"
)

// initialize creates the census with the token holder as admin. When the
// node is configured with an admin, only that identity can do it.
// POST /admin/initialize
func (a *API) initialize(w http.ResponseWriter, r *http.Request) {
	req := &Initialize{}
	if !decodeBody(w, r, req) {
		return
	}
	if id := caller(r); !a.admin.IsZero() && id != a.admin {
		ErrUnauthorized.Withf("%s is not the configured admin", id).Write(w)
		return
	}
	if err := a.ledger.Initialize(r.Context(), caller(r), req.ScopeDuration); err != nil {
		ledgerError(err).Write(w)
		return
	}
	httpWriteOK(w)
}

// recordEnrollment records an identity commitment
// POST /admin/enrollments
func (a *API) recordEnrollment(w http.ResponseWriter, r *http.Request) {
	req := &Enrollment{}
	if !decodeBody(w, r, req) {
		return
	}
	index, err := a.ledger.RecordEnrollment(r.Context(), caller(r), req.Commitment)
	if err != nil {
		ledgerError(err).Write(w)
		return
	}
	httpWriteJSON(w, &EnrollmentResponse{LeafIndex: index})
}

// publishRoot publishes the root given in the body, or the accumulator root
// if the body root is empty
// POST /admin/root
func (a *API) publishRoot(w http.ResponseWriter, r *http.Request) {
	req := &Root{}
	if !decodeBody(w, r, req) {
		return
	}
	if req.Root.IsZero() {
		if a.accumulator == nil {
			ErrAccumulatorUnavailable.With("a root is required").Write(w)
			return
		}
		root, err := a.accumulator.Root()
		if err != nil {
			ErrGenericInternalServerError.WithErr(err).Write(w)
			return
		}
		req.Root = root
		log.Debugw("publishing accumulator root", "root", root.String())
	}
	if err := a.ledger.PublishRoot(r.Context(), caller(r), req.Root); err != nil {
		ledgerError(err).Write(w)
		return
	}
	httpWriteJSON(w, req)
}

// advanceScope opens the next scope
// POST /admin/scope
func (a *API) advanceScope(w http.ResponseWriter, r *http.Request) {
	scope, err := a.ledger.AdvanceScope(r.Context(), caller(r))
	if err != nil {
		ledgerError(err).Write(w)
		return
	}
	httpWriteJSON(w, &Scope{Scope: scope})
}

// setActive activates or deactivates the census
// POST /admin/active
func (a *API) setActive(w http.ResponseWriter, r *http.Request) {
	req := &Active{}
	if !decodeBody(w, r, req) {
		return
	}
	if err := a.ledger.SetActive(r.Context(), caller(r), req.Active); err != nil {
		ledgerError(err).Write(w)
		return
	}
	httpWriteOK(w)
}
