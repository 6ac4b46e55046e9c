package model

import (
	"time"

	"github.com/feedspine/feedspine/internal/apperrors"
)

// Record is a persisted RecordCandidate with identity and lifecycle.
//
// Invariant: CapturedAt <= FirstSeenAt <= LastSeenAt <= UpdatedAt, always.
// Invariant: Layer only ever moves forward; see Promote.
type Record struct {
	RecordID string

	NaturalKey  string
	PublishedAt time.Time
	Content     Content
	Metadata    Metadata
	ContentHash string

	Layer Layer

	CapturedAt  time.Time
	UpdatedAt   time.Time
	FirstSeenAt time.Time
	LastSeenAt  time.Time
}

// NewRecord creates the first persisted version of a Record from a
// candidate, per DeduplicationEngine.ingest step 2: new records always
// start at Bronze with all four timestamps equal to now.
func NewRecord(recordID string, candidate RecordCandidate, now time.Time) Record {
	now = now.UTC()
	return Record{
		RecordID:    recordID,
		NaturalKey:  candidate.NaturalKey,
		PublishedAt: candidate.PublishedAt,
		Content:     candidate.Content,
		Metadata:    candidate.Metadata,
		ContentHash: candidate.ContentHash,
		Layer:       Bronze,
		CapturedAt:  now,
		UpdatedAt:   now,
		FirstSeenAt: now,
		LastSeenAt:  now,
	}
}

// TouchSighting advances LastSeenAt for a repeat sighting of this
// record's natural key (raising UpdatedAt to match when it would
// otherwise fall behind), and records the sighting's content hash for
// change detection. It never rewrites Content: at Bronze, content only
// changes through enrichment promotion.
func (r *Record) TouchSighting(seenAt time.Time, contentHash string) error {
	seenAt = seenAt.UTC()
	if seenAt.Before(r.LastSeenAt) {
		return apperrors.Newf(apperrors.KindStorageError,
			"lastSeenAt is monotone: got %s before current %s", seenAt, r.LastSeenAt)
	}
	r.LastSeenAt = seenAt
	if r.UpdatedAt.Before(seenAt) {
		r.UpdatedAt = seenAt
	}
	if contentHash != "" {
		r.ContentHash = contentHash
	}
	return nil
}

// Promote moves the record to newLayer, merging enrichments into
// Content (shallow override on key collision) and advancing UpdatedAt.
// A promotion to a layer <= the current layer is rejected with
// KindInvalidPromotion and leaves the record unchanged, satisfying the
// "layer only moves forward" invariant.
func (r *Record) Promote(newLayer Layer, enrichments Content, updatedAt time.Time) error {
	if newLayer <= r.Layer {
		return apperrors.Newf(apperrors.KindInvalidPromotion,
			"cannot promote from %s to %s: target layer must be strictly greater", r.Layer, newLayer)
	}
	merged := make(Content, len(r.Content)+len(enrichments))
	for k, v := range r.Content {
		merged[k] = v
	}
	for k, v := range enrichments {
		merged[k] = v
	}
	r.Content = merged
	r.Layer = newLayer
	r.UpdatedAt = updatedAt.UTC()
	return nil
}

// CheckTimestampMonotonicity verifies the P6 invariant holds for this
// record's current state: CapturedAt <= FirstSeenAt <= LastSeenAt <= UpdatedAt.
func (r Record) CheckTimestampMonotonicity() error {
	if r.CapturedAt.After(r.FirstSeenAt) {
		return apperrors.Newf(apperrors.KindStorageError, "capturedAt %s after firstSeenAt %s", r.CapturedAt, r.FirstSeenAt)
	}
	if r.FirstSeenAt.After(r.LastSeenAt) {
		return apperrors.Newf(apperrors.KindStorageError, "firstSeenAt %s after lastSeenAt %s", r.FirstSeenAt, r.LastSeenAt)
	}
	if r.LastSeenAt.After(r.UpdatedAt) {
		return apperrors.Newf(apperrors.KindStorageError, "lastSeenAt %s after updatedAt %s", r.LastSeenAt, r.UpdatedAt)
	}
	return nil
}
