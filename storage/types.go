package storage

import "github.com/vocdoni/zk-census/types"

const (
	// PathProof marks a nullifier claimed by a zero-knowledge proof.
	PathProof = "proof"
	// PathAttestation marks a nullifier claimed by a signed attestation.
	PathAttestation = "attestation"
)

// LedgerState is the census aggregate record. There is one per deployment.
type LedgerState struct {
	Admin             types.Identity `json:"admin" cbor:"0,keyasint,omitempty"`
	CurrentRoot       types.Hash     `json:"currentRoot" cbor:"1,keyasint,omitempty"`
	CurrentScope      uint64         `json:"currentScope" cbor:"2,keyasint,omitempty"`
	ScopeStartTime    int64          `json:"scopeStartTime" cbor:"3,keyasint,omitempty"`
	ScopeDuration     int64          `json:"scopeDuration" cbor:"4,keyasint,omitempty"`
	TotalRegistered   uint64         `json:"totalRegistered" cbor:"5,keyasint,omitempty"`
	CurrentPopulation uint64         `json:"currentPopulation" cbor:"6,keyasint,omitempty"`
	LeafCount         uint64         `json:"leafCount" cbor:"7,keyasint,omitempty"`
	IsActive          bool           `json:"isActive" cbor:"8,keyasint,omitempty"`
}

// NullifierRecord is the receipt of a successful submission. It is created
// once and never modified.
type NullifierRecord struct {
	NullifierHash types.Hash `json:"nullifierHash" cbor:"0,keyasint,omitempty"`
	Scope         uint64     `json:"scope" cbor:"1,keyasint,omitempty"`
	Timestamp     int64      `json:"timestamp" cbor:"2,keyasint,omitempty"`
	Path          string     `json:"path" cbor:"3,keyasint,omitempty"`
}

// ScopeAggregate holds the anonymous counters of a scope.
type ScopeAggregate struct {
	Scope            uint64                       `json:"scope" cbor:"0,keyasint,omitempty"`
	ParticipantCount uint64                       `json:"participantCount" cbor:"1,keyasint,omitempty"`
	AttributeCounts  [types.AttributeCount]uint64 `json:"attributeCounts" cbor:"2,keyasint,omitempty"`
	LastUpdated      int64                        `json:"lastUpdated" cbor:"3,keyasint,omitempty"`
}
