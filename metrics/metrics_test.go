package metrics

import (
	"context"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/vocdoni/zk-census/events"
)

func TestSink(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	var s Sink

	before := testutil.ToFloat64(Submissions.WithLabelValues("proof"))
	c.Assert(s.Publish(ctx, events.New(events.KindCensusCounted, 1, events.CensusCounted{
		Scope:         3,
		NewPopulation: 7,
		Path:          "proof",
	})), qt.IsNil)
	c.Assert(testutil.ToFloat64(Submissions.WithLabelValues("proof")), qt.Equals, before+1)
	c.Assert(testutil.ToFloat64(Population), qt.Equals, float64(7))
	c.Assert(testutil.ToFloat64(Scope), qt.Equals, float64(3))

	c.Assert(s.Publish(ctx, events.New(events.KindScopeAdvanced, 2, events.ScopeAdvanced{
		OldScope: 3,
		NewScope: 4,
	})), qt.IsNil)
	c.Assert(testutil.ToFloat64(Population), qt.Equals, float64(0))
	c.Assert(testutil.ToFloat64(Scope), qt.Equals, float64(4))

	Reject("submit_proof", "uniqueness")
	c.Assert(testutil.ToFloat64(Rejections.WithLabelValues("submit_proof", "uniqueness")), qt.Equals, float64(1))
}
