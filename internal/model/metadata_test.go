package model

import "testing"

func TestMetadata_Validate_RequiresSource(t *testing.T) {
	m := Metadata{RecordType: "article"}
	if err := m.Validate(); err == nil {
		t.Fatal("expected error for missing source")
	}
	m.Source = "example-feed"
	if err := m.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
