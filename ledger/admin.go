package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/vocdoni/zk-census/events"
	"github.com/vocdoni/zk-census/log"
	"github.com/vocdoni/zk-census/storage"
	"github.com/vocdoni/zk-census/types"
)

// Initialize creates the ledger with caller as admin. The census starts at
// scope 1, active, with a zero root and no population. It can only run once.
func (l *Ledger) Initialize(ctx context.Context, caller types.Identity, scopeDuration int64) error {
	const op = "initialize"
	if err := ctx.Err(); err != nil {
		return err
	}
	if caller.IsZero() {
		return reject(op, fmt.Errorf("%w: empty caller", ErrUnauthorizedAdmin))
	}
	if scopeDuration <= 0 {
		return reject(op, fmt.Errorf("%w: %d", ErrInvalidScopeDuration, scopeDuration))
	}
	now := l.now().Unix()
	st := &storage.LedgerState{
		Admin:          caller,
		CurrentScope:   1,
		ScopeStartTime: now,
		ScopeDuration:  scopeDuration,
		IsActive:       true,
	}
	err := l.storage.Update(func(tx *storage.Tx) error {
		_, err := tx.LedgerState()
		if err == nil {
			return ErrAlreadyInitialized
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		return tx.SetLedgerState(st)
	})
	if err != nil {
		return reject(op, err)
	}
	log.Infow("census initialized", "admin", caller.String(), "scopeDuration", scopeDuration)
	l.emit(ctx, events.New(events.KindActivationChanged, now, events.ActivationChanged{Active: true}))
	return nil
}

// RecordEnrollment records an identity commitment and returns its leaf
// index. It does not change the published root: the admin publishes the
// accumulator root separately.
func (l *Ledger) RecordEnrollment(ctx context.Context, caller types.Identity, commitment types.Hash) (uint64, error) {
	const op = "record_enrollment"
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	now := l.now().Unix()
	var leafIndex uint64
	err := l.update(func(tx *storage.Tx, st *storage.LedgerState) error {
		if err := checkAdmin(st, caller); err != nil {
			return err
		}
		if err := checkActive(st); err != nil {
			return err
		}
		if err := checkCommitment(commitment); err != nil {
			return err
		}
		if st.LeafCount >= types.TreeCapacity {
			return fmt.Errorf("%w: %d leaves", ErrTreeFull, st.LeafCount)
		}
		if st.TotalRegistered == math.MaxUint64 {
			return fmt.Errorf("%w: total registered", ErrArithmeticOverflow)
		}
		leafIndex = st.LeafCount
		if l.accumulator != nil {
			index, _, err := l.accumulator.AppendTx(tx.AccumulatorTx(), commitment)
			if err != nil {
				return fmt.Errorf("append commitment to accumulator: %w", err)
			}
			if index != leafIndex {
				return fmt.Errorf("accumulator leaf index %d does not match leaf count %d", index, leafIndex)
			}
		}
		st.LeafCount++
		st.TotalRegistered++
		return nil
	})
	if err != nil {
		return 0, reject(op, err, "commitment", commitment.String())
	}
	log.Infow("citizen registered", "leafIndex", leafIndex, "commitment", commitment.String())
	l.emit(ctx, events.New(events.KindCitizenRegistered, now, events.CitizenRegistered{
		Commitment: commitment,
		LeafIndex:  leafIndex,
	}))
	return leafIndex, nil
}

// PublishRoot overwrites the current root. Proofs built against any other
// root are rejected from now on.
func (l *Ledger) PublishRoot(ctx context.Context, caller types.Identity, root types.Hash) error {
	const op = "publish_root"
	if err := ctx.Err(); err != nil {
		return err
	}
	now := l.now().Unix()
	err := l.update(func(_ *storage.Tx, st *storage.LedgerState) error {
		if err := checkAdmin(st, caller); err != nil {
			return err
		}
		st.CurrentRoot = root
		return nil
	})
	if err != nil {
		return reject(op, err, "root", root.String())
	}
	log.Infow("census root published", "root", root.String())
	l.emit(ctx, events.New(events.KindRootPublished, now, events.RootPublished{Root: root}))
	return nil
}

// AdvanceScope closes the current scope and opens the next one, resetting
// the population. Nullifiers claimed in previous scopes stay claimed.
func (l *Ledger) AdvanceScope(ctx context.Context, caller types.Identity) (uint64, error) {
	const op = "advance_scope"
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	now := l.now().Unix()
	var payload events.ScopeAdvanced
	err := l.update(func(_ *storage.Tx, st *storage.LedgerState) error {
		if err := checkAdmin(st, caller); err != nil {
			return err
		}
		if st.CurrentScope == math.MaxUint64 {
			return fmt.Errorf("%w: scope", ErrArithmeticOverflow)
		}
		payload = events.ScopeAdvanced{
			OldScope:        st.CurrentScope,
			NewScope:        st.CurrentScope + 1,
			FinalPopulation: st.CurrentPopulation,
		}
		st.CurrentScope++
		st.ScopeStartTime = now
		st.CurrentPopulation = 0
		return nil
	})
	if err != nil {
		return 0, reject(op, err)
	}
	log.Infow("census scope advanced", "oldScope", payload.OldScope, "newScope", payload.NewScope,
		"finalPopulation", payload.FinalPopulation)
	l.emit(ctx, events.New(events.KindScopeAdvanced, now, payload))
	return payload.NewScope, nil
}

// SetActive activates or deactivates the census. An inactive census rejects
// submissions and enrollments; admin operations keep working.
func (l *Ledger) SetActive(ctx context.Context, caller types.Identity, active bool) error {
	const op = "set_active"
	if err := ctx.Err(); err != nil {
		return err
	}
	now := l.now().Unix()
	changed := false
	err := l.update(func(_ *storage.Tx, st *storage.LedgerState) error {
		if err := checkAdmin(st, caller); err != nil {
			return err
		}
		changed = st.IsActive != active
		st.IsActive = active
		return nil
	})
	if err != nil {
		return reject(op, err)
	}
	if changed {
		log.Infow("census activation changed", "active", active)
		l.emit(ctx, events.New(events.KindActivationChanged, now, events.ActivationChanged{Active: active}))
	}
	return nil
}

// checkCommitment rejects the zero value, reserved for empty leaves, and
// values outside the scalar field, which no identity can hash to.
func checkCommitment(commitment types.Hash) error {
	if commitment.IsZero() {
		return fmt.Errorf("%w: zero commitment", ErrInvalidCommitment)
	}
	var e fr.Element
	if err := e.SetBytesCanonical(commitment[:]); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCommitment, err)
	}
	return nil
}
