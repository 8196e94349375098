//nolint:lll
package api

import (
	"fmt"
	"net/http"
)

// The custom Error type satisfies the error interface.
// Error() returns a human-readable description of the error.
//
// Error codes in the 40001-49999 range are the user's fault,
// and they return HTTP Status 400, 401, 403, 404 or 409, whatever is most appropriate.
//
// Error codes 50001-59999 are the server's fault
// and they return HTTP Status 500 or 503, or something else if appropriate.
//
// NEVER change any of the current error codes, only append new errors after the current last 4XXX or 5XXX
// If you notice there's a gap (say, error code 4010, 4011 and 4013 exist, 4012 is missing) DON'T fill in the gap,
// that code was used in the past for some error (not anymore) and shouldn't be reused.
// There's no correlation between Code and HTTP Status.
var (
	ErrResourceNotFound       = Error{Code: 40001, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("resource not found")}
	ErrMalformedParam         = Error{Code: 40002, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed URL parameter")}
	ErrMalformedBody          = Error{Code: 40004, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed JSON body")}
	ErrInvalidToken           = Error{Code: 40005, HTTPstatus: http.StatusUnauthorized, Err: fmt.Errorf("missing or invalid admin token")}
	ErrUnauthorized           = Error{Code: 40006, HTTPstatus: http.StatusForbidden, Err: fmt.Errorf("operation not authorized")}
	ErrInvalidSubmission      = Error{Code: 40007, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid submission format")}
	ErrVerificationFailed     = Error{Code: 40008, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("cryptographic verification failed")}
	ErrStaleSubmission        = Error{Code: 40009, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("submission does not match the census root or scope")}
	ErrNullifierAlreadyUsed   = Error{Code: 40010, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("nullifier already used")}
	ErrAttestationExpired     = Error{Code: 40011, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("attestation expired")}
	ErrCounterOverflow        = Error{Code: 40012, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("counter overflow")}
	ErrInvalidCensusState     = Error{Code: 40013, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("operation not allowed in the current census state")}
	ErrAccumulatorUnavailable = Error{Code: 40014, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("accumulator not available on this node")}
	ErrIssuerUnavailable      = Error{Code: 40015, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("attestation issuer not available on this node")}
	ErrRequestBodyTooLarge    = Error{Code: 40016, HTTPstatus: http.StatusRequestEntityTooLarge, Err: fmt.Errorf("request body too large")}

	ErrMarshalingServerJSONFailed = Error{Code: 50001, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("marshaling (server-side) JSON failed")}
	ErrGenericInternalServerError = Error{Code: 50002, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("internal server error")}
)
