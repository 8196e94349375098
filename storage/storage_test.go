package storage

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/zk-census/types"
	"go.vocdoni.io/dvote/db/metadb"
)

func TestLedgerState(t *testing.T) {
	c := qt.New(t)
	stg := New(metadb.NewTest(t))

	_, err := stg.LedgerState()
	c.Assert(err, qt.ErrorIs, ErrNotFound)

	st := &LedgerState{
		Admin:         types.Identity{1},
		CurrentScope:  1,
		ScopeDuration: types.DefaultScopeDuration,
		IsActive:      true,
	}
	c.Assert(stg.Update(func(tx *Tx) error {
		return tx.SetLedgerState(st)
	}), qt.IsNil)

	got, err := stg.LedgerState()
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.DeepEquals, st)
}

func TestUpdateDiscardsOnError(t *testing.T) {
	c := qt.New(t)
	stg := New(metadb.NewTest(t))
	errAbort := errors.New("abort")

	err := stg.Update(func(tx *Tx) error {
		if err := tx.SetLedgerState(&LedgerState{CurrentScope: 7}); err != nil {
			return err
		}
		// writes are visible inside the transaction
		st, err := tx.LedgerState()
		if err != nil {
			return err
		}
		c.Assert(st.CurrentScope, qt.Equals, uint64(7))
		return errAbort
	})
	c.Assert(err, qt.ErrorIs, errAbort)

	_, err = stg.LedgerState()
	c.Assert(err, qt.ErrorIs, ErrNotFound)
}

func TestClaimNullifier(t *testing.T) {
	c := qt.New(t)
	stg := New(metadb.NewTest(t))

	rec := &NullifierRecord{
		NullifierHash: types.Hash{31: 1},
		Scope:         1,
		Timestamp:     1000,
		Path:          PathProof,
	}
	c.Assert(stg.Update(func(tx *Tx) error { return tx.ClaimNullifier(rec) }), qt.IsNil)

	got, err := stg.Nullifier(rec.NullifierHash[:])
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.DeepEquals, rec)

	// a second claim fails and does not overwrite the record
	again := *rec
	again.Scope = 2
	err = stg.Update(func(tx *Tx) error { return tx.ClaimNullifier(&again) })
	c.Assert(err, qt.ErrorIs, ErrNullifierExists)
	got, err = stg.Nullifier(rec.NullifierHash[:])
	c.Assert(err, qt.IsNil)
	c.Assert(got.Scope, qt.Equals, uint64(1))

	// claiming twice inside the same transaction also fails
	other := &NullifierRecord{NullifierHash: types.Hash{31: 2}}
	err = stg.Update(func(tx *Tx) error {
		if err := tx.ClaimNullifier(other); err != nil {
			return err
		}
		return tx.ClaimNullifier(other)
	})
	c.Assert(err, qt.ErrorIs, ErrNullifierExists)
	_, err = stg.Nullifier(other.NullifierHash[:])
	c.Assert(err, qt.ErrorIs, ErrNotFound)

	n, err := stg.CountNullifiers()
	c.Assert(err, qt.IsNil)
	c.Assert(n, qt.Equals, uint64(1))
}

func TestConcurrentClaims(t *testing.T) {
	c := qt.New(t)
	stg := New(metadb.NewTest(t))

	var wg sync.WaitGroup
	var ok, dup atomic.Int32
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := stg.Update(func(tx *Tx) error {
				return tx.ClaimNullifier(&NullifierRecord{NullifierHash: types.Hash{31: 9}})
			})
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, ErrNullifierExists):
				dup.Add(1)
			}
		}()
	}
	wg.Wait()
	c.Assert(ok.Load(), qt.Equals, int32(1))
	c.Assert(dup.Load(), qt.Equals, int32(19))
}

func TestAggregate(t *testing.T) {
	c := qt.New(t)
	stg := New(metadb.NewTest(t))

	_, err := stg.Aggregate(1)
	c.Assert(err, qt.ErrorIs, ErrNotFound)

	c.Assert(stg.Update(func(tx *Tx) error {
		agg, err := tx.Aggregate(1)
		if err != nil {
			return err
		}
		c.Assert(agg.Scope, qt.Equals, uint64(1))
		agg.ParticipantCount++
		agg.AttributeCounts[3]++
		return tx.SetAggregate(agg)
	}), qt.IsNil)

	agg, err := stg.Aggregate(1)
	c.Assert(err, qt.IsNil)
	c.Assert(agg.ParticipantCount, qt.Equals, uint64(1))
	c.Assert(agg.AttributeCounts[3], qt.Equals, uint64(1))

	_, err = stg.Aggregate(2)
	c.Assert(err, qt.ErrorIs, ErrNotFound)
}

func TestAccumulatorDBIsolation(t *testing.T) {
	c := qt.New(t)
	stg := New(metadb.NewTest(t))

	wTx := stg.AccumulatorDB().WriteTx()
	c.Assert(wTx.Set([]byte("state"), []byte("x")), qt.IsNil)
	c.Assert(wTx.Commit(), qt.IsNil)

	// the accumulator key does not collide with the ledger state key
	_, err := stg.LedgerState()
	c.Assert(err, qt.ErrorIs, ErrNotFound)
}
