package impl_fs

import (
	"context"
	"testing"
	"time"

	"github.com/feedspine/feedspine/internal/model"
)

func TestManager_SaveLoad_RoundTrips(t *testing.T) {
	ctx := context.Background()
	m, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	savedAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	cp := model.Checkpoint{FeedName: "feed-a", Cursor: "page=5", RecordsProcessed: 50, SavedAt: savedAt}

	if err := m.Save(ctx, cp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loaded, ok, err := m.Load(ctx, "feed-a")
	if err != nil || !ok {
		t.Fatalf("expected checkpoint to load, got ok=%v err=%v", ok, err)
	}
	if loaded.Cursor != "page=5" || loaded.RecordsProcessed != 50 {
		t.Fatalf("unexpected loaded checkpoint: %+v", loaded)
	}
	if !loaded.SavedAt.Equal(savedAt) {
		t.Fatalf("SavedAt = %v, want %v", loaded.SavedAt, savedAt)
	}
}

func TestManager_Load_MissingReturnsNotOK(t *testing.T) {
	m, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, ok, err := m.Load(context.Background(), "nonexistent")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for missing checkpoint")
	}
}

func TestManager_Save_OverwritesPreviousCheckpoint(t *testing.T) {
	ctx := context.Background()
	m, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := m.Save(ctx, model.Checkpoint{FeedName: "feed-a", Cursor: "first"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Save(ctx, model.Checkpoint{FeedName: "feed-a", Cursor: "second"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loaded, ok, err := m.Load(ctx, "feed-a")
	if err != nil || !ok {
		t.Fatalf("expected checkpoint to load, got ok=%v err=%v", ok, err)
	}
	if loaded.Cursor != "second" {
		t.Fatalf("Cursor = %q, want %q (overwrite should win)", loaded.Cursor, "second")
	}
}

func TestManager_Delete_RemovesCheckpoint(t *testing.T) {
	ctx := context.Background()
	m, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := m.Save(ctx, model.Checkpoint{FeedName: "feed-a", Cursor: "x"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Delete(ctx, "feed-a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok, _ := m.Load(ctx, "feed-a"); ok {
		t.Fatal("expected checkpoint to be gone after delete")
	}
	if err := m.Delete(ctx, "feed-a"); err != nil {
		t.Fatalf("deleting an already-absent checkpoint should not error: %v", err)
	}
}
