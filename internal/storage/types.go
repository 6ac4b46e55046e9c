package storage

import (
	"time"

	"github.com/feedspine/feedspine/internal/model"
)

// Filter narrows Query/Count results. Zero-value fields are not applied.
type Filter struct {
	Source string
	Layer  *model.Layer

	FirstSeenAfter  time.Time
	FirstSeenBefore time.Time

	Limit  int
	Offset int
}

// WithLayer returns a copy of f scoped to layer.
func (f Filter) WithLayer(layer model.Layer) Filter {
	f.Layer = &layer
	return f
}

func (f Filter) matchesLayer(r model.Record) bool {
	return f.Layer == nil || r.Layer == *f.Layer
}

func (f Filter) matchesSource(r model.Record) bool {
	return f.Source == "" || r.Metadata.Source == f.Source
}

func (f Filter) matchesWindow(r model.Record) bool {
	if !f.FirstSeenAfter.IsZero() && r.FirstSeenAt.Before(f.FirstSeenAfter) {
		return false
	}
	if !f.FirstSeenBefore.IsZero() && r.FirstSeenAt.After(f.FirstSeenBefore) {
		return false
	}
	return true
}

// Matches reports whether record satisfies every set field of f. Used
// by impl_inmem's scan; impl_postgres filters in SQL instead.
func (f Filter) Matches(r model.Record) bool {
	return f.matchesLayer(r) && f.matchesSource(r) && f.matchesWindow(r)
}
