package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vocdoni/zk-census/ledger"
	"github.com/vocdoni/zk-census/log"
	"github.com/vocdoni/zk-census/storage"
	"github.com/vocdoni/zk-census/types"
)

// ScopeLedger is the part of the ledger the rotator works with.
type ScopeLedger interface {
	State() (*storage.LedgerState, error)
	AdvanceScope(ctx context.Context, caller types.Identity) (uint64, error)
}

// ScopeRotator represents a service that advances the census scope, acting
// as the admin, once the current scope has lasted its configured duration.
type ScopeRotator struct {
	ledger   ScopeLedger
	admin    types.Identity
	interval time.Duration
	now      func() time.Time
	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewScopeRotator creates a new ScopeRotator that checks the scope every
// interval.
func NewScopeRotator(l ScopeLedger, admin types.Identity, interval time.Duration) *ScopeRotator {
	return &ScopeRotator{
		ledger:   l,
		admin:    admin,
		interval: interval,
		now:      time.Now,
	}
}

// Start begins checking the scope. It returns an error if the service is
// already running.
func (sr *ScopeRotator) Start(ctx context.Context) error {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	if sr.cancel != nil {
		return fmt.Errorf("service already running")
	}
	if sr.interval <= 0 {
		return fmt.Errorf("invalid interval %s", sr.interval)
	}
	ctx, sr.cancel = context.WithCancel(ctx)
	sr.done = make(chan struct{})
	go sr.run(ctx, sr.done)
	return nil
}

// Stop halts the service and waits for the running check to finish.
func (sr *ScopeRotator) Stop() {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	if sr.cancel != nil {
		sr.cancel()
		<-sr.done
		sr.cancel = nil
	}
}

func (sr *ScopeRotator) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(sr.interval)
	defer ticker.Stop()
	for {
		if _, err := sr.Rotate(ctx); err != nil {
			log.Warnw("failed to rotate census scope", "error", err.Error())
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Rotate advances the scope if it has expired and returns whether it did.
// An uninitialized census is not an error.
func (sr *ScopeRotator) Rotate(ctx context.Context) (bool, error) {
	st, err := sr.ledger.State()
	if errors.Is(err, ledger.ErrNotInitialized) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if sr.now().Unix() < st.ScopeStartTime+st.ScopeDuration {
		return false, nil
	}
	scope, err := sr.ledger.AdvanceScope(ctx, sr.admin)
	if err != nil {
		return false, err
	}
	log.Infow("census scope expired", "oldScope", st.CurrentScope, "newScope", scope)
	return true, nil
}
