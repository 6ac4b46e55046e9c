package model

import "time"

// Sighting is an event recording a single adapter-level observation of a
// natural key. Sightings are append-only and never mutated after
// creation.
type Sighting struct {
	SightingID string
	NaturalKey string
	Source     string
	SeenAt     time.Time
	IsNew      bool
	RecordID   string

	// ContentHash is the hash observed this time, for change detection.
	// May be empty if the adapter did not supply one.
	ContentHash string
}

// NewSighting builds a Sighting for one ingestion of candidate by
// source, recording whether it was the first sighting for its natural
// key (isNew).
func NewSighting(sightingID string, candidate RecordCandidate, source string, seenAt time.Time, recordID string, isNew bool) Sighting {
	return Sighting{
		SightingID:  sightingID,
		NaturalKey:  candidate.NaturalKey,
		Source:      source,
		SeenAt:      seenAt.UTC(),
		IsNew:       isNew,
		RecordID:    recordID,
		ContentHash: candidate.ContentHash,
	}
}
