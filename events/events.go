// Package events delivers the notifications produced by the census ledger
// after each committed operation. Delivery is best effort: a failing sink
// never rolls back the operation that produced the event.
package events

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/vocdoni/zk-census/log"
	"github.com/vocdoni/zk-census/types"
)

// Kind identifies the type of an event.
type Kind string

const (
	KindCitizenRegistered Kind = "citizen_registered"
	KindCensusCounted     Kind = "census_counted"
	KindScopeAdvanced     Kind = "scope_advanced"
	KindRootPublished     Kind = "root_published"
	KindActivationChanged Kind = "activation_changed"
)

// Event is the envelope of every notification. Payload holds one of the
// payload types of this package, matching Kind.
type Event struct {
	ID        uuid.UUID `json:"id"`
	Kind      Kind      `json:"kind"`
	Timestamp int64     `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// CitizenRegistered is emitted when an enrollment is recorded.
type CitizenRegistered struct {
	Commitment types.Hash `json:"commitment"`
	LeafIndex  uint64     `json:"leafIndex"`
}

// CensusCounted is emitted for every accepted submission.
type CensusCounted struct {
	NullifierHash types.Hash `json:"nullifierHash"`
	Scope         uint64     `json:"scope"`
	NewPopulation uint64     `json:"newPopulation"`
	Path          string     `json:"path"`
}

// ScopeAdvanced is emitted when the scope rotates.
type ScopeAdvanced struct {
	OldScope        uint64 `json:"oldScope"`
	NewScope        uint64 `json:"newScope"`
	FinalPopulation uint64 `json:"finalPopulation"`
}

// RootPublished is emitted when the admin publishes a new root.
type RootPublished struct {
	Root types.Hash `json:"root"`
}

// ActivationChanged is emitted when the ledger is activated or deactivated.
type ActivationChanged struct {
	Active bool `json:"active"`
}

// New returns an event with a fresh random ID.
func New(kind Kind, timestamp int64, payload any) *Event {
	return &Event{
		ID:        uuid.New(),
		Kind:      kind,
		Timestamp: timestamp,
		Payload:   payload,
	}
}

// Sink receives events.
type Sink interface {
	Publish(ctx context.Context, e *Event) error
}

// Multi fans events out to several sinks.
type Multi struct {
	sinks []Sink
}

// NewMulti returns a sink publishing to every non nil sink given.
func NewMulti(sinks ...Sink) *Multi {
	m := &Multi{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Add appends a sink.
func (m *Multi) Add(s Sink) {
	m.sinks = append(m.sinks, s)
}

// Publish delivers the event to all sinks and joins their errors.
func (m *Multi) Publish(ctx context.Context, e *Event) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogSink writes events to the process logger.
type LogSink struct{}

// Publish implements Sink.
func (LogSink) Publish(_ context.Context, e *Event) error {
	log.Infow("census event", "id", e.ID.String(), "kind", string(e.Kind),
		"timestamp", e.Timestamp, "payload", e.Payload)
	return nil
}

// Recorder keeps every event in memory. It is meant for tests and for
// exposing recent activity.
type Recorder struct {
	mu     sync.Mutex
	events []*Event
}

// Publish implements Sink.
func (r *Recorder) Publish(_ context.Context, e *Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []*Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Event(nil), r.events...)
}

// ByKind returns the recorded events of the given kind.
func (r *Recorder) ByKind(kind Kind) []*Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Event
	for _, e := range r.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Reset drops the recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
