package storage

import (
	"testing"
	"time"

	"github.com/feedspine/feedspine/internal/model"
)

func TestFilter_Matches(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	r := model.Record{
		Metadata:    model.Metadata{Source: "example-feed"},
		Layer:       model.Silver,
		FirstSeenAt: now,
	}

	empty := Filter{}
	matchingSource := Filter{Source: "example-feed"}
	otherSource := Filter{Source: "other-feed"}
	matchingLayer := Filter{}.WithLayer(model.Silver)
	otherLayer := Filter{}.WithLayer(model.Gold)
	afterWindow := Filter{FirstSeenAfter: now.Add(time.Hour)}
	beforeWindow := Filter{FirstSeenBefore: now.Add(-time.Hour)}

	if !empty.Matches(r) {
		t.Fatal("empty filter should match everything")
	}
	if !matchingSource.Matches(r) {
		t.Fatal("matching source should match")
	}
	if otherSource.Matches(r) {
		t.Fatal("non-matching source should not match")
	}
	if !matchingLayer.Matches(r) {
		t.Fatal("matching layer should match")
	}
	if otherLayer.Matches(r) {
		t.Fatal("non-matching layer should not match")
	}
	if afterWindow.Matches(r) {
		t.Fatal("record before FirstSeenAfter window should not match")
	}
	if beforeWindow.Matches(r) {
		t.Fatal("record after FirstSeenBefore window should not match")
	}
}
