package model

import (
	"testing"
	"time"
)

func TestNewSighting_CarriesCandidateFields(t *testing.T) {
	c, err := NewRecordCandidate("Some-Key", Content{"a": String("1")}, validMeta())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c = c.WithContentHash("")

	seenAt := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	s := NewSighting("sight-1", c, "example-feed", seenAt, "rec-1", true)

	if s.NaturalKey != "some-key" {
		t.Errorf("NaturalKey = %q, want %q", s.NaturalKey, "some-key")
	}
	if s.Source != "example-feed" {
		t.Errorf("Source = %q, want %q", s.Source, "example-feed")
	}
	if !s.SeenAt.Equal(seenAt) {
		t.Errorf("SeenAt = %v, want %v", s.SeenAt, seenAt)
	}
	if !s.IsNew {
		t.Error("IsNew = false, want true")
	}
	if s.RecordID != "rec-1" {
		t.Errorf("RecordID = %q, want %q", s.RecordID, "rec-1")
	}
	if s.ContentHash != c.ContentHash {
		t.Errorf("ContentHash = %q, want %q", s.ContentHash, c.ContentHash)
	}
}
