// Package checkpoint persists per-feed progress cursors so a collection
// can be resumed.
package checkpoint

import (
	"context"

	"github.com/feedspine/feedspine/internal/model"
)

// Manager saves, loads, and deletes named Checkpoints. Implementations
// are plug-in: in-memory for tests, filesystem (atomic-replace write)
// for single-node deployments.
type Manager interface {
	// Save atomically writes checkpoint, keyed by checkpoint.FeedName.
	Save(ctx context.Context, cp model.Checkpoint) error

	// Load retrieves the checkpoint for feedName. ok is false if none
	// has been saved.
	Load(ctx context.Context, feedName string) (cp model.Checkpoint, ok bool, err error)

	// Delete removes the checkpoint for feedName, if any.
	Delete(ctx context.Context, feedName string) error
}
