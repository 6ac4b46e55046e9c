// Package storage defines the persistence contract for records and
// sightings. Implementations live in impl_inmem (development/testing)
// and impl_postgres (production).
package storage

import (
	"context"
	"time"

	"github.com/feedspine/feedspine/internal/model"
)

// Store is the full persistence contract the core engine depends on.
// It is satisfied by impl_inmem.Store and impl_postgres.Store.
// Construction initializes the backend; Close releases it.
type Store interface {
	Reader
	Writer
	SightingHistory

	// Close releases backend resources (connection pools, file
	// handles). Called once, after all other operations have finished.
	Close(ctx context.Context) error
}

// Reader provides lookup and query access to persisted records.
type Reader interface {
	// Get retrieves a record by its natural key. Returns ErrNotFound
	// (an apperrors.KindStorageError) if absent.
	Get(ctx context.Context, naturalKey string) (model.Record, error)

	// GetByID retrieves a record by its generated RecordID.
	GetByID(ctx context.Context, recordID string) (model.Record, error)

	// Exists reports whether a record is stored under naturalKey
	// (normalized before lookup).
	Exists(ctx context.Context, naturalKey string) (bool, error)

	// Query returns records matching filter, newest FirstSeenAt first.
	Query(ctx context.Context, filter Filter) ([]model.Record, error)

	// Count returns the number of records matching filter, ignoring
	// filter.Limit and filter.Offset.
	Count(ctx context.Context, filter Filter) (int, error)
}

// Writer provides mutation access to persisted records.
type Writer interface {
	// Insert creates a new record. Returns ErrDuplicateNaturalKey if the
	// natural key already exists.
	Insert(ctx context.Context, record model.Record) error

	// Update persists changes to an existing record (e.g. after
	// TouchSighting or Promote). Returns ErrNotFound if absent.
	Update(ctx context.Context, record model.Record) error

	// Delete destroys the record with recordID. The record's sighting
	// history is retained, and its RecordID is never reissued. Returns
	// ErrNotFound if absent.
	Delete(ctx context.Context, recordID string) error

	// RecordSighting is the atomic ingestion entry point used by the
	// dedup engine. In one locked unit it (a) inserts a new record built
	// from candidate if naturalKey is unseen, or touches the existing
	// record's LastSeenAt/ContentHash, and (b) appends the Sighting that
	// observed it, so the sighting is durable before the call returns.
	// isNew reports whether the record was created. The whole unit is
	// atomic per natural key: concurrent callers never both observe
	// isNew=true, and sighting appends for one key are totally ordered.
	// A first-time insert that loses a race to a concurrent caller
	// returns ErrDuplicateNaturalKey; callers retry the find-then-act
	// path once, which then lands as a touch.
	RecordSighting(ctx context.Context, candidate model.RecordCandidate, recordID, sightingID string, seenAt time.Time) (model.Record, model.Sighting, bool, error)
}

// SightingHistory provides read access to the append-only sighting
// log. Writes happen only through Writer.RecordSighting, one sighting
// per ingested candidate.
type SightingHistory interface {
	// Sightings returns the sighting history for a natural key in
	// ascending SeenAt order, ties broken by append order.
	Sightings(ctx context.Context, naturalKey string) ([]model.Sighting, error)
}
