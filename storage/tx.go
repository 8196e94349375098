package storage

import (
	"errors"
	"fmt"

	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

// Tx is a write transaction handed to the Storage.Update callback. Reads see
// the writes made earlier in the same transaction.
type Tx struct {
	wTx db.WriteTx
}

// LedgerState returns the ledger state or ErrNotFound.
func (tx *Tx) LedgerState() (*LedgerState, error) {
	st := &LedgerState{}
	if err := getArtifact(tx.wTx, ledgerPrefix, ledgerStateKey, st); err != nil {
		return nil, err
	}
	return st, nil
}

// SetLedgerState overwrites the ledger state.
func (tx *Tx) SetLedgerState(st *LedgerState) error {
	return tx.set(ledgerPrefix, ledgerStateKey, st)
}

// ClaimNullifier creates the record of a nullifier. It returns
// ErrNullifierExists if a record already exists. There is no way to update
// or delete a record once created.
func (tx *Tx) ClaimNullifier(rec *NullifierRecord) error {
	key := rec.NullifierHash[:]
	_, err := prefixeddb.NewPrefixedWriteTx(tx.wTx, nullifierPrefix).Get(key)
	if err == nil {
		return fmt.Errorf("%w: %x", ErrNullifierExists, key)
	}
	if !errors.Is(err, db.ErrKeyNotFound) {
		return fmt.Errorf("read nullifier: %w", err)
	}
	return tx.set(nullifierPrefix, key, rec)
}

// Aggregate returns the aggregate of the scope, or an empty one if the scope
// has no submissions yet.
func (tx *Tx) Aggregate(scope uint64) (*ScopeAggregate, error) {
	agg := &ScopeAggregate{}
	err := getArtifact(tx.wTx, aggregatePrefix, scopeKey(scope), agg)
	if errors.Is(err, ErrNotFound) {
		return &ScopeAggregate{Scope: scope}, nil
	}
	if err != nil {
		return nil, err
	}
	return agg, nil
}

// SetAggregate stores the aggregate of its scope.
func (tx *Tx) SetAggregate(agg *ScopeAggregate) error {
	return tx.set(aggregatePrefix, scopeKey(agg.Scope), agg)
}

// AccumulatorTx returns the transaction scoped to the accumulator key space,
// so accumulator writes commit or discard with the rest of tx.
func (tx *Tx) AccumulatorTx() db.WriteTx {
	return prefixeddb.NewPrefixedWriteTx(tx.wTx, accumulatorPrefix)
}

func (tx *Tx) set(prefix, key []byte, artifact any) error {
	data, err := encodeArtifact(artifact)
	if err != nil {
		return err
	}
	if err := prefixeddb.NewPrefixedWriteTx(tx.wTx, prefix).Set(key, data); err != nil {
		return fmt.Errorf("set %s%x: %w", prefix, key, err)
	}
	return nil
}
