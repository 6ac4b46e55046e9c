// Package ids generates the two flavors of identifier FeedSpine needs:
// time-ordered, lexicographically sortable record/sighting IDs (ULID),
// and opaque unique IDs for events (UUID).
package ids

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

func newULID(t time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// NewRecordID returns a new time-ordered, lexicographically sortable
// record identifier seeded from t. Two IDs minted with non-decreasing t
// values compare in the same order as their timestamps.
func NewRecordID(t time.Time) string {
	return newULID(t)
}

// NewSightingID returns a new time-ordered sighting identifier.
func NewSightingID(t time.Time) string {
	return newULID(t)
}

// NewEventID returns a new opaque event identifier for the EventBus.
func NewEventID() string {
	return uuid.NewString()
}

// Generator is a zero-value-usable adapter exposing the package-level
// constructors as methods, so callers that take an interface (e.g.
// dedup.IDGenerator) can be handed ids.Generator{} instead of depending
// on the package directly.
type Generator struct{}

func (Generator) NewRecordID(t time.Time) string   { return NewRecordID(t) }
func (Generator) NewSightingID(t time.Time) string { return NewSightingID(t) }
func (Generator) NewEventID() string               { return NewEventID() }
