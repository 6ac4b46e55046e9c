package model

import (
	"errors"
	"testing"
	"time"

	"github.com/feedspine/feedspine/internal/apperrors"
)

func mustCandidate(t *testing.T) RecordCandidate {
	t.Helper()
	c, err := NewRecordCandidate("key", Content{"a": String("1")}, validMeta())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return c.WithContentHash("")
}

func TestNewRecord_StartsAtBronzeWithAlignedTimestamps(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	r := NewRecord("rec-1", mustCandidate(t), now)

	if r.Layer != Bronze {
		t.Errorf("Layer = %v, want Bronze", r.Layer)
	}
	for name, got := range map[string]time.Time{
		"CapturedAt":  r.CapturedAt,
		"UpdatedAt":   r.UpdatedAt,
		"FirstSeenAt": r.FirstSeenAt,
		"LastSeenAt":  r.LastSeenAt,
	} {
		if !got.Equal(now) {
			t.Errorf("%s = %v, want %v", name, got, now)
		}
	}
}

func TestRecord_TouchSighting_AdvancesLastSeenAt(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	r := NewRecord("rec-1", mustCandidate(t), now)

	later := now.Add(time.Hour)
	if err := r.TouchSighting(later, "newhash"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !r.LastSeenAt.Equal(later) {
		t.Errorf("LastSeenAt = %v, want %v", r.LastSeenAt, later)
	}
	if r.ContentHash != "newhash" {
		t.Errorf("ContentHash = %q, want %q", r.ContentHash, "newhash")
	}
}

func TestRecord_TouchSighting_RejectsNonMonotone(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	r := NewRecord("rec-1", mustCandidate(t), now)

	earlier := now.Add(-time.Hour)
	if err := r.TouchSighting(earlier, ""); err == nil {
		t.Fatal("expected error for non-monotone sighting timestamp")
	}
}

func TestRecord_TouchSighting_NeverRewritesContent(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	r := NewRecord("rec-1", mustCandidate(t), now)
	before := r.Content["a"]

	if err := r.TouchSighting(now.Add(time.Minute), "otherhash"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !r.Content["a"].Equal(before) {
		t.Fatal("TouchSighting must never modify Content")
	}
}

func TestRecord_Promote_RejectsNonForwardMove(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	r := NewRecord("rec-1", mustCandidate(t), now)
	r.Layer = Silver

	err := r.Promote(Silver, Content{}, now)
	if err == nil {
		t.Fatal("expected error promoting to the same layer")
	}
	if kind, _ := apperrors.KindOf(err); kind != apperrors.KindInvalidPromotion {
		t.Errorf("Kind = %v, want KindInvalidPromotion", kind)
	}
	if !errors.Is(err, apperrors.ErrInvalidPromotion) {
		t.Error("errors.Is(err, ErrInvalidPromotion) = false")
	}
}

func TestRecord_Promote_MergesEnrichmentsAndAdvances(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	r := NewRecord("rec-1", mustCandidate(t), now)

	later := now.Add(time.Hour)
	err := r.Promote(Silver, Content{"a": String("2"), "b": String("new")}, later)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Layer != Silver {
		t.Errorf("Layer = %v, want Silver", r.Layer)
	}
	if !r.Content["a"].Equal(String("2")) {
		t.Error("Promote must override colliding keys with enrichment value")
	}
	if !r.Content["b"].Equal(String("new")) {
		t.Error("Promote must add new enrichment keys")
	}
	if !r.UpdatedAt.Equal(later) {
		t.Errorf("UpdatedAt = %v, want %v", r.UpdatedAt, later)
	}
}

func TestRecord_CheckTimestampMonotonicity(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	r := NewRecord("rec-1", mustCandidate(t), now)
	if err := r.CheckTimestampMonotonicity(); err != nil {
		t.Fatalf("unexpected error on fresh record: %v", err)
	}

	r.FirstSeenAt = now.Add(-time.Hour)
	if err := r.CheckTimestampMonotonicity(); err == nil {
		t.Fatal("expected error when CapturedAt is after FirstSeenAt")
	}
}
