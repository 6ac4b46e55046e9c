package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/feedspine/feedspine/internal/model"
	"github.com/feedspine/feedspine/internal/storage/impl_inmem"
	"github.com/feedspine/feedspine/pkg/clock"
	"github.com/feedspine/feedspine/pkg/ids"
)

func newEngine(now time.Time) (*Engine, *impl_inmem.Store) {
	store := impl_inmem.New()
	return New(store, ids.Generator{}, clock.NewFixed(now)), store
}

func candidate(t *testing.T, key string) model.RecordCandidate {
	t.Helper()
	c, err := model.NewRecordCandidate(key, model.Content{"title": model.String("hello")}, model.Metadata{Source: "example-feed"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return c.WithContentHash("")
}

func TestEngine_Ingest_FirstSightingIsNew(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	engine, _ := newEngine(now)

	outcome, err := engine.Ingest(context.Background(), candidate(t, "key-1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !outcome.IsNew {
		t.Fatal("expected IsNew=true for first sighting")
	}
	if outcome.Record.Layer != model.Bronze {
		t.Errorf("Layer = %v, want Bronze", outcome.Record.Layer)
	}
	if !outcome.Sighting.IsNew {
		t.Error("expected sighting.IsNew=true")
	}
}

func TestEngine_Ingest_RepeatSightingIsNotNew(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	engine, store := newEngine(now)

	first, err := engine.Ingest(context.Background(), candidate(t, "key-1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second, err := engine.Ingest(context.Background(), candidate(t, "Key-1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.IsNew {
		t.Fatal("expected IsNew=false for repeat sighting of same normalized key")
	}
	if second.Record.RecordID != first.Record.RecordID {
		t.Error("expected same RecordID across repeat sightings")
	}

	history, err := store.Sightings(context.Background(), "key-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 sightings appended, got %d", len(history))
	}
}

func TestEngine_Ingest_RejectsInvalidCandidate(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	engine, _ := newEngine(now)

	invalid := model.RecordCandidate{NaturalKey: "Not-Normalized", Metadata: model.Metadata{Source: "x"}}
	if _, err := engine.Ingest(context.Background(), invalid); err == nil {
		t.Fatal("expected error for invalid candidate")
	}
}
