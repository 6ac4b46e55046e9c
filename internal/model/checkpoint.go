package model

import "time"

// Checkpoint is a per-feed progress marker. Cursor is opaque to the core
// engine: adapters that implement Resume interpret it; adapters that
// don't simply ignore a saved checkpoint.
type Checkpoint struct {
	FeedName         string
	Cursor           string
	RecordsProcessed int
	SavedAt          time.Time
}
