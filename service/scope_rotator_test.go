package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

func TestScopeRotatorRotate(t *testing.T) {
	c := qt.New(t)
	start := time.Unix(1700000000, 0)
	l := newTestLedger(c, func() time.Time { return start })
	admin := newAdmin(c)
	ctx := context.Background()

	sr := NewScopeRotator(l, admin, time.Second)
	now := start
	sr.now = func() time.Time { return now }

	// nothing to rotate before initialization
	rotated, err := sr.Rotate(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(rotated, qt.IsFalse)

	c.Assert(l.Initialize(ctx, admin, 100), qt.IsNil)
	now = start.Add(99 * time.Second)
	rotated, err = sr.Rotate(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(rotated, qt.IsFalse)

	now = start.Add(100 * time.Second)
	rotated, err = sr.Rotate(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(rotated, qt.IsTrue)
	st, err := l.State()
	c.Assert(err, qt.IsNil)
	c.Assert(st.CurrentScope, qt.Equals, uint64(2))

	// a rotator without the admin identity cannot rotate
	intruder := NewScopeRotator(l, newAdmin(c), time.Second)
	intruder.now = sr.now
	_, err = intruder.Rotate(ctx)
	c.Assert(err, qt.Not(qt.IsNil))
}

func TestScopeRotatorService(t *testing.T) {
	c := qt.New(t)
	var clock atomic.Int64
	clock.Store(1700000000)
	l := newTestLedger(c, func() time.Time { return time.Unix(clock.Load(), 0) })
	admin := newAdmin(c)
	ctx := context.Background()
	c.Assert(l.Initialize(ctx, admin, 60), qt.IsNil)

	sr := NewScopeRotator(l, admin, 10*time.Millisecond)
	sr.now = func() time.Time { return time.Unix(clock.Load(), 0) }
	c.Assert(sr.Start(ctx), qt.IsNil)
	defer sr.Stop()
	c.Assert(sr.Start(ctx), qt.ErrorMatches, "service already running")

	// the scope has not expired yet
	time.Sleep(50 * time.Millisecond)
	st, err := l.State()
	c.Assert(err, qt.IsNil)
	c.Assert(st.CurrentScope, qt.Equals, uint64(1))

	// one rotation once it expires, the new scope starts at the new time
	clock.Add(60)
	deadline := time.Now().Add(5 * time.Second)
	for st.CurrentScope == 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
		st, err = l.State()
		c.Assert(err, qt.IsNil)
	}
	c.Assert(st.CurrentScope, qt.Equals, uint64(2))
	time.Sleep(50 * time.Millisecond)
	st, err = l.State()
	c.Assert(err, qt.IsNil)
	c.Assert(st.CurrentScope, qt.Equals, uint64(2))

	sr.Stop()
	c.Assert(sr.Start(ctx), qt.IsNil)
}
