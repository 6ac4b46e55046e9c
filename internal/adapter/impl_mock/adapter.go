// Package impl_mock is an in-repo test double for adapter.Adapter, used
// by orchestrator and pipeline tests that need a deterministic, fast
// producer of RecordCandidates.
package impl_mock

import (
	"context"
	"sync"

	"github.com/feedspine/feedspine/internal/apperrors"
	"github.com/feedspine/feedspine/internal/model"
)

// Adapter emits a fixed slice of candidates, then closes its output
// channel. It supports Resume/CurrentCheckpoint for orchestrator tests
// that exercise checkpoint resume.
type Adapter struct {
	name       string
	candidates []model.RecordCandidate

	mu         sync.Mutex
	cursor     int
	opened     bool
	closed     bool
	openErr    error
	fetchErr   error
	fetchDelay func()
}

// New creates a mock adapter named name that emits candidates in order.
func New(name string, candidates []model.RecordCandidate) *Adapter {
	return &Adapter{name: name, candidates: candidates}
}

// WithOpenError makes Open fail with err.
func (a *Adapter) WithOpenError(err error) *Adapter {
	a.openErr = err
	return a
}

// WithFetchError makes Fetch return err after emitting all candidates.
func (a *Adapter) WithFetchError(err error) *Adapter {
	a.fetchErr = err
	return a
}

// WithFetchDelay installs a hook invoked before every emitted candidate,
// letting tests simulate slow producers or synchronize with cancellation.
func (a *Adapter) WithFetchDelay(hook func()) *Adapter {
	a.fetchDelay = hook
	return a
}

func (a *Adapter) Name() string { return a.name }

func (a *Adapter) Open(ctx context.Context) error {
	if a.openErr != nil {
		return a.openErr
	}
	a.mu.Lock()
	a.opened = true
	a.mu.Unlock()
	return nil
}

func (a *Adapter) Close(ctx context.Context) error {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
	return nil
}

func (a *Adapter) Opened() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.opened
}

func (a *Adapter) Closed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closed
}

func (a *Adapter) Fetch(ctx context.Context, out chan<- model.RecordCandidate) error {
	defer close(out)

	a.mu.Lock()
	start := a.cursor
	a.mu.Unlock()

	for i := start; i < len(a.candidates); i++ {
		if a.fetchDelay != nil {
			a.fetchDelay()
		}
		select {
		case <-ctx.Done():
			return apperrors.Wrap(ctx.Err(), apperrors.KindCancelled, "mock adapter fetch cancelled")
		case out <- a.candidates[i]:
			a.mu.Lock()
			a.cursor = i + 1
			a.mu.Unlock()
		}
	}
	return a.fetchErr
}

func (a *Adapter) Resume(ctx context.Context, checkpoint model.Checkpoint) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cursor = checkpoint.RecordsProcessed
	return nil
}

func (a *Adapter) CurrentCheckpoint() model.Checkpoint {
	a.mu.Lock()
	defer a.mu.Unlock()
	return model.Checkpoint{FeedName: a.name, RecordsProcessed: a.cursor}
}
