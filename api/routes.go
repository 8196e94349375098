package api

const (
	// PingEndpoint is the endpoint for checking the API status
	PingEndpoint = "/ping"
	// MetricsEndpoint exposes the Prometheus metrics
	MetricsEndpoint = "/metrics"

	// CensusEndpoint returns the ledger state
	CensusEndpoint = "/census"
	// AggregateEndpoint returns the anonymous counters of a scope
	ScopeURLParam     = "scope"
	AggregateEndpoint = "/census/scopes/{" + ScopeURLParam + "}/aggregate"
	// NullifierEndpoint returns the record of a claimed nullifier
	NullifierURLParam = "nullifier"
	NullifierEndpoint = "/census/nullifiers/{" + NullifierURLParam + "}"
	// ProofsEndpoint is the endpoint for submitting census proofs
	ProofsEndpoint = "/census/proofs"
	// CensusAttestationsEndpoint is the endpoint for submitting attestations
	// signed by a trusted verifier
	CensusAttestationsEndpoint = "/census/attestations"

	// AttestationsEndpoint verifies a census proof and returns a signed
	// attestation, only available when the node has an issuer key
	AttestationsEndpoint = "/attestations"

	// AccumulatorProofEndpoint returns the Merkle path of an enrolled leaf
	IndexURLParam            = "index"
	AccumulatorProofEndpoint = "/accumulator/proofs/{" + IndexURLParam + "}"

	// Admin endpoints, they require an admin JWT
	AdminInitializeEndpoint  = "/admin/initialize"
	AdminEnrollmentsEndpoint = "/admin/enrollments"
	AdminRootEndpoint        = "/admin/root"
	AdminScopeEndpoint       = "/admin/scope"
	AdminActiveEndpoint      = "/admin/active"
)
