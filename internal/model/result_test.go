package model

import (
	"testing"
	"time"
)

func TestCollectionResult_AddFeedStats_Aggregates(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := NewCollectionResult(start)

	r.AddFeedStats(PipelineStats{FeedName: "feed-a", RecordsProcessed: 10, RecordsNew: 7, RecordsDuplicate: 3})
	r.AddFeedStats(PipelineStats{FeedName: "feed-b", RecordsProcessed: 5, RecordsNew: 5, Errors: 1})

	if r.TotalProcessed != 15 || r.TotalNew != 12 || r.TotalDuplicate != 3 || r.TotalErrors != 1 {
		t.Fatalf("unexpected totals: %+v", r)
	}
	if len(r.PerFeed) != 2 {
		t.Fatalf("PerFeed len = %d, want 2", len(r.PerFeed))
	}
}

func TestCollectionResult_Finalize_DerivesStatus(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	clean := NewCollectionResult(start)
	clean.AddFeedStats(PipelineStats{FeedName: "feed-a", RecordsProcessed: 1, RecordsNew: 1})
	clean.Finalize(start.Add(time.Minute), "")
	if clean.Status != StatusCompleted {
		t.Errorf("Status = %v, want StatusCompleted", clean.Status)
	}

	withErrors := NewCollectionResult(start)
	withErrors.AddFeedStats(PipelineStats{FeedName: "feed-a", RecordsProcessed: 1, Errors: 1})
	withErrors.Finalize(start.Add(time.Minute), "")
	if withErrors.Status != StatusPartial {
		t.Errorf("Status = %v, want StatusPartial", withErrors.Status)
	}

	forced := NewCollectionResult(start)
	forced.Finalize(start.Add(time.Minute), StatusFailed)
	if forced.Status != StatusFailed {
		t.Errorf("Status = %v, want StatusFailed", forced.Status)
	}
}

func TestEnrichmentResult_Constructors(t *testing.T) {
	applied := Applied(Content{"k": String("v")}, Silver)
	if applied.Status != EnrichmentApplied || applied.NewLayer != Silver {
		t.Fatalf("Applied() = %+v", applied)
	}

	skipped := Skipped("predicate not met")
	if skipped.Status != EnrichmentSkipped || skipped.Reason != "predicate not met" {
		t.Fatalf("Skipped() = %+v", skipped)
	}

	failed := Failed(errInvalidCandidate("boom"))
	if failed.Status != EnrichmentFailed || failed.Err == nil {
		t.Fatalf("Failed() = %+v", failed)
	}
}
