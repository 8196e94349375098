package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/zk-census/types"
)

type failingSink struct {
	calls int
	err   error
}

func (f *failingSink) Publish(context.Context, *Event) error {
	f.calls++
	return f.err
}

func TestMulti(t *testing.T) {
	c := qt.New(t)
	rec := &Recorder{}
	errSink := errors.New("sink down")
	bad := &failingSink{err: errSink}
	m := NewMulti(rec, nil, LogSink{}, bad)

	e := New(KindScopeAdvanced, 100, ScopeAdvanced{OldScope: 1, NewScope: 2, FinalPopulation: 3})
	err := m.Publish(context.Background(), e)
	c.Assert(err, qt.ErrorIs, errSink)
	c.Assert(rec.Events(), qt.HasLen, 1)
	c.Assert(rec.ByKind(KindScopeAdvanced)[0].ID, qt.Equals, e.ID)
	c.Assert(rec.ByKind(KindCensusCounted), qt.HasLen, 0)

	rec.Reset()
	c.Assert(rec.Events(), qt.HasLen, 0)
}

func TestEventJSON(t *testing.T) {
	c := qt.New(t)
	e := New(KindCensusCounted, 42, CensusCounted{
		NullifierHash: types.Hash{31: 1},
		Scope:         1,
		NewPopulation: 1,
		Path:          "proof",
	})
	data, err := json.Marshal(e)
	c.Assert(err, qt.IsNil)

	var decoded struct {
		ID      string         `json:"id"`
		Kind    Kind           `json:"kind"`
		Payload map[string]any `json:"payload"`
	}
	c.Assert(json.Unmarshal(data, &decoded), qt.IsNil)
	c.Assert(decoded.ID, qt.Equals, e.ID.String())
	c.Assert(decoded.Kind, qt.Equals, KindCensusCounted)
	c.Assert(decoded.Payload["nullifierHash"], qt.Equals, types.Hash{31: 1}.String())

	// every event gets its own id
	c.Assert(New(KindRootPublished, 1, nil).ID, qt.Not(qt.Equals), New(KindRootPublished, 1, nil).ID)
}

func TestBreaker(t *testing.T) {
	c := qt.New(t)
	errSink := errors.New("sink down")
	inner := &failingSink{err: errSink}
	b := NewBreaker(inner, 2, time.Minute)
	now := time.Unix(1000, 0)
	b.now = func() time.Time { return now }
	ctx := context.Background()
	e := New(KindRootPublished, 1, RootPublished{})

	c.Assert(b.Publish(ctx, e), qt.ErrorIs, errSink)
	c.Assert(b.IsOpen(), qt.IsFalse)
	c.Assert(b.Publish(ctx, e), qt.ErrorIs, errSink)
	c.Assert(b.IsOpen(), qt.IsTrue)

	// open: the inner sink is not called
	c.Assert(b.Publish(ctx, e), qt.ErrorIs, ErrCircuitOpen)
	c.Assert(inner.calls, qt.Equals, 2)

	// after the cooldown one call goes through and a success closes it
	now = now.Add(2 * time.Minute)
	inner.err = nil
	c.Assert(b.Publish(ctx, e), qt.IsNil)
	c.Assert(inner.calls, qt.Equals, 3)
	c.Assert(b.IsOpen(), qt.IsFalse)
}
