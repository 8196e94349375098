// Package ledger implements the census ledger: the aggregate record of the
// census and every operation that mutates it. Each operation runs in a single
// storage transaction and either applies all its effects or none. Events are
// delivered after the transaction commits.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vocdoni/zk-census/attestation"
	"github.com/vocdoni/zk-census/crypto/groth16"
	"github.com/vocdoni/zk-census/events"
	"github.com/vocdoni/zk-census/log"
	"github.com/vocdoni/zk-census/metrics"
	"github.com/vocdoni/zk-census/storage"
	"github.com/vocdoni/zk-census/types"
	"go.vocdoni.io/dvote/db"
)

// ProofVerifier checks a parsed proof against its public inputs.
type ProofVerifier interface {
	Verify(proof *groth16.Proof, inputs []types.Hash) error
	NumPublicInputs() int
}

// Accumulator is the membership accumulator enrollments are appended to. It
// writes through the ledger transaction, see storage.Tx.AccumulatorTx.
type Accumulator interface {
	AppendTx(wTx db.WriteTx, commitment types.Hash) (uint64, types.Hash, error)
}

// Options configures a Ledger. Only Verifier is required.
type Options struct {
	// Verifier checks census proofs.
	Verifier ProofVerifier
	// TrustedSigners is the allow-list of attestation signers. When nil
	// every attestation is rejected as untrusted.
	TrustedSigners *attestation.TrustedSigners
	// Accumulator, if set, receives every recorded enrollment in the same
	// storage transaction. It must be opened on Storage.AccumulatorDB.
	Accumulator Accumulator
	// Events receives the events of committed operations.
	Events events.Sink
	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time
}

// Ledger is the census ledger. It holds no mutable state of its own: the
// state lives in the storage and every mutation goes through a storage
// transaction.
type Ledger struct {
	storage     *storage.Storage
	verifier    ProofVerifier
	signers     *attestation.TrustedSigners
	accumulator Accumulator
	events      events.Sink
	now         func() time.Time
}

// New returns a ledger over the given storage.
func New(stg *storage.Storage, opts Options) (*Ledger, error) {
	if stg == nil {
		return nil, fmt.Errorf("no storage provided")
	}
	if opts.Verifier == nil {
		return nil, fmt.Errorf("no proof verifier provided")
	}
	if n := opts.Verifier.NumPublicInputs(); n != types.PublicInputsLen {
		return nil, fmt.Errorf("verifier expects %d public inputs, census proofs have %d", n, types.PublicInputsLen)
	}
	l := &Ledger{
		storage:     stg,
		verifier:    opts.Verifier,
		signers:     opts.TrustedSigners,
		accumulator: opts.Accumulator,
		events:      opts.Events,
		now:         opts.Clock,
	}
	if l.events == nil {
		l.events = events.NewMulti()
	}
	if l.now == nil {
		l.now = time.Now
	}
	return l, nil
}

// State returns the committed ledger state.
func (l *Ledger) State() (*storage.LedgerState, error) {
	st, err := l.storage.LedgerState()
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotInitialized
	}
	return st, err
}

// Nullifier returns the record of a claimed nullifier or ErrNotFound.
func (l *Ledger) Nullifier(nullifierHash types.Hash) (*storage.NullifierRecord, error) {
	return l.storage.Nullifier(nullifierHash[:])
}

// Aggregate returns the counters of a scope. Scopes up to the current one
// that have no submissions return an empty aggregate, later scopes return
// ErrNotFound.
func (l *Ledger) Aggregate(scope uint64) (*storage.ScopeAggregate, error) {
	st, err := l.State()
	if err != nil {
		return nil, err
	}
	if scope == 0 || scope > st.CurrentScope {
		return nil, fmt.Errorf("%w: scope %d", ErrNotFound, scope)
	}
	agg, err := l.storage.Aggregate(scope)
	if errors.Is(err, storage.ErrNotFound) {
		return &storage.ScopeAggregate{Scope: scope}, nil
	}
	return agg, err
}

// TrustedSigners returns the attestation allow-list, possibly nil.
func (l *Ledger) TrustedSigners() *attestation.TrustedSigners {
	return l.signers
}

// update runs fn on the current state inside a storage transaction and
// stores the state if fn succeeds. It fails with ErrNotInitialized when
// there is no state yet.
func (l *Ledger) update(fn func(tx *storage.Tx, st *storage.LedgerState) error) error {
	return l.storage.Update(func(tx *storage.Tx) error {
		st, err := tx.LedgerState()
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotInitialized
		}
		if err != nil {
			return err
		}
		if err := fn(tx, st); err != nil {
			return err
		}
		return tx.SetLedgerState(st)
	})
}

// emit delivers an event of a committed operation. Failures are logged and
// counted, never returned.
func (l *Ledger) emit(ctx context.Context, e *events.Event) {
	if e == nil {
		return
	}
	if err := l.events.Publish(ctx, e); err != nil {
		metrics.EventFailures.Inc()
		log.Warnw("cannot deliver census event", "id", e.ID.String(), "kind", string(e.Kind), "error", err.Error())
	}
}

// reject logs and counts a rejected operation and returns err unchanged.
func reject(operation string, err error, keyvalues ...any) error {
	category := Category(err)
	metrics.Reject(operation, category)
	log.Debugw("census operation rejected", append([]any{
		"operation", operation, "category", category, "error", err.Error(),
	}, keyvalues...)...)
	return err
}

func checkAdmin(st *storage.LedgerState, caller types.Identity) error {
	if caller != st.Admin {
		return fmt.Errorf("%w: %s", ErrUnauthorizedAdmin, caller)
	}
	return nil
}

func checkActive(st *storage.LedgerState) error {
	if !st.IsActive {
		return ErrCensusNotActive
	}
	return nil
}
