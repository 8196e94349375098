package types

const (
	// TreeDepth is the depth of the membership accumulator tree (2^20 leaves,
	// about one million citizens).
	TreeDepth = 20
	// TreeCapacity is the maximum number of leaves of the accumulator.
	TreeCapacity = uint64(1) << TreeDepth
	// AttestationValiditySeconds is the width of the freshness window of an
	// attestation, in seconds.
	AttestationValiditySeconds = 300
	// PublicInputsLen is the number of public inputs of a census proof:
	// root, nullifier hash, signal hash and external nullifier.
	PublicInputsLen = 4
	// AttributeCount is the number of anonymous attributes a signal can
	// select (signal values 1 to AttributeCount).
	AttributeCount = 10
	// DefaultScopeDuration is one week in seconds.
	DefaultScopeDuration = 604800
)
