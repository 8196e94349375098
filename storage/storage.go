// storage package persists the census ledger in a key-value database. Every
// mutation runs inside a serialized write transaction that is either
// committed atomically or discarded. The following prefixes are used:
//   - 'l/' for the ledger state
//   - 'n/' for nullifier records
//   - 's/' for scope aggregates
//   - 'a/' for the membership accumulator
package storage

import (
	"errors"
	"fmt"
	"sync"

	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

var (
	// Prefixes for the keys in the database.
	ledgerPrefix      = []byte("l/")
	nullifierPrefix   = []byte("n/")
	aggregatePrefix   = []byte("s/")
	accumulatorPrefix = []byte("a/")

	ledgerStateKey = []byte("state")
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNullifierExists is returned when claiming a nullifier that has
	// already been claimed.
	ErrNullifierExists = errors.New("nullifier already claimed")
)

// Storage wraps the database of a census node.
type Storage struct {
	db         db.Database
	globalLock sync.Mutex
}

// New creates a new Storage instance.
func New(db db.Database) *Storage {
	return &Storage{db: db}
}

// Close closes the storage.
func (s *Storage) Close() {
	s.db.Close()
}

// AccumulatorDB returns the prefixed database reserved for the membership
// accumulator. Tx.AccumulatorTx writes to the same key space.
func (s *Storage) AccumulatorDB() db.Database {
	return prefixeddb.NewPrefixedDatabase(s.db, accumulatorPrefix)
}

// Update runs fn inside a write transaction. Transactions are serialized: no
// two Update calls run fn concurrently. If fn returns an error the
// transaction is discarded and nothing is written, otherwise it is
// committed.
func (s *Storage) Update(fn func(tx *Tx) error) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	wTx := s.db.WriteTx()
	if err := fn(&Tx{wTx: wTx}); err != nil {
		wTx.Discard()
		return err
	}
	if err := wTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// LedgerState returns the committed ledger state or ErrNotFound.
func (s *Storage) LedgerState() (*LedgerState, error) {
	st := &LedgerState{}
	if err := getArtifact(s.db, ledgerPrefix, ledgerStateKey, st); err != nil {
		return nil, err
	}
	return st, nil
}

// Nullifier returns the committed record of a nullifier or ErrNotFound.
func (s *Storage) Nullifier(nullifierHash []byte) (*NullifierRecord, error) {
	rec := &NullifierRecord{}
	if err := getArtifact(s.db, nullifierPrefix, nullifierHash, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Aggregate returns the committed aggregate of a scope or ErrNotFound.
func (s *Storage) Aggregate(scope uint64) (*ScopeAggregate, error) {
	agg := &ScopeAggregate{}
	if err := getArtifact(s.db, aggregatePrefix, scopeKey(scope), agg); err != nil {
		return nil, err
	}
	return agg, nil
}

// CountNullifiers returns the number of claimed nullifiers.
func (s *Storage) CountNullifiers() (uint64, error) {
	var n uint64
	pr := prefixeddb.NewPrefixedReader(s.db, nullifierPrefix)
	if err := pr.Iterate(nil, func(_, _ []byte) bool {
		n++
		return true
	}); err != nil {
		return 0, fmt.Errorf("iterate nullifiers: %w", err)
	}
	return n, nil
}
