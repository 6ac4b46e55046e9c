// Package adapter defines the contract a feed source must satisfy:
// a named, async producer of RecordCandidates with lifecycle hooks.
package adapter

import (
	"context"

	"github.com/feedspine/feedspine/internal/model"
)

// Adapter is a named source of RecordCandidates. Name must be unique
// per orchestrator; it becomes Sighting.Source for every candidate this
// adapter produces.
type Adapter interface {
	// Name returns the adapter's unique identifier.
	Name() string

	// Open acquires any resources the adapter needs (connections,
	// file handles) before Fetch is called. Called once per collection.
	Open(ctx context.Context) error

	// Close releases resources acquired by Open. Always called on every
	// exit path, including cancellation, even if Open or Fetch failed.
	Close(ctx context.Context) error

	// Fetch streams candidates onto out until the source is exhausted,
	// ctx is cancelled, or an unrecoverable error occurs. Fetch owns its
	// own pacing (rate limiting) and parsing, and must emit only
	// normalized candidates (model.NewRecordCandidate does this).
	// Fetch must close out before returning.
	Fetch(ctx context.Context, out chan<- model.RecordCandidate) error
}

// Resumable is implemented by adapters that can initialize their
// starting position from a previously saved Checkpoint.
type Resumable interface {
	// Resume seeds the adapter's internal cursor from checkpoint. Called
	// after Open and before Fetch, only if a checkpoint exists for this
	// adapter's name.
	Resume(ctx context.Context, checkpoint model.Checkpoint) error
}

// CheckpointSource is implemented by adapters that can report their
// current progress for persistence by a CheckpointManager.
type CheckpointSource interface {
	// CurrentCheckpoint returns the adapter's current cursor state.
	CurrentCheckpoint() model.Checkpoint
}
