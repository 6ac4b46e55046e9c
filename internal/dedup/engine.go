// Package dedup implements the single-record ingestion decision: given
// a RecordCandidate, validate it and delegate to the storage
// contract's atomic find-or-create, which also appends the Sighting in
// the same unit.
package dedup

import (
	"context"
	"errors"
	"time"

	"github.com/feedspine/feedspine/internal/apperrors"
	"github.com/feedspine/feedspine/internal/model"
	"github.com/feedspine/feedspine/internal/storage"
)

// IDGenerator allocates the next RecordID/SightingID. Satisfied by
// ids.Generator from pkg/ids.
type IDGenerator interface {
	NewRecordID(t time.Time) string
	NewSightingID(t time.Time) string
}

// Clock supplies the current time, injected so tests are deterministic.
type Clock interface {
	Now() time.Time
}

// Engine is the DeduplicationEngine: it decides, for each incoming
// candidate, whether it names a record seen before, and ensures
// exactly one of insert/touch happens per natural key even when
// invoked concurrently for the same key (guaranteed by
// storage.Store.RecordSighting, not by Engine itself).
type Engine struct {
	store storage.Store
	ids   IDGenerator
	clock Clock
}

// New builds an Engine over store, using ids to mint identifiers and
// clock for timestamps.
func New(store storage.Store, ids IDGenerator, clock Clock) *Engine {
	return &Engine{store: store, ids: ids, clock: clock}
}

// Outcome is the result of ingesting one candidate.
type Outcome struct {
	Record   model.Record
	Sighting model.Sighting
	IsNew    bool
}

// Ingest validates candidate (a natural key that is not already
// normalized, as model.NewRecordCandidate leaves it, is rejected with
// KindInvalidCandidate), and records one sighting atomically: a new Record at Bronze if
// the key is unseen, or an updated LastSeenAt/ContentHash on the
// existing Record otherwise, with the Sighting appended inside the same
// storage-level unit.
func (e *Engine) Ingest(ctx context.Context, candidate model.RecordCandidate) (Outcome, error) {
	if err := candidate.Validate(); err != nil {
		return Outcome{}, err
	}

	record, sighting, isNew, err := e.recordSighting(ctx, candidate)
	if err != nil && errors.Is(err, apperrors.ErrDuplicateNaturalKey) {
		// Lost a first-insert race to a concurrent ingestion of the same
		// key: retry the find-then-act path once, which now observes the
		// winner's record and lands as a touch.
		record, sighting, isNew, err = e.recordSighting(ctx, candidate)
	}
	if err != nil {
		return Outcome{}, apperrors.Wrap(err, apperrors.KindStorageError, "recordSighting")
	}

	return Outcome{Record: record, Sighting: sighting, IsNew: isNew}, nil
}

func (e *Engine) recordSighting(ctx context.Context, candidate model.RecordCandidate) (model.Record, model.Sighting, bool, error) {
	now := e.clock.Now()
	return e.store.RecordSighting(ctx, candidate, e.ids.NewRecordID(now), e.ids.NewSightingID(now), now)
}
