package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/feedspine/feedspine/internal/apperrors"
)

const validYAML = `
storage:
  backend: memory
orchestrator:
  bufferCapacity: 50
  maxConcurrent: 2
checkpoints:
  dir: /tmp/feedspine-checkpoints
  intervalRecords: 10
resources:
  requestsPerSecond: 5
feeds:
  - name: releases
    type: rss
    url: https://example.com/releases.atom
  - name: filings
    type: jsonfeed
    url: https://example.com/api/filings
    keyField: accession
    headers:
      User-Agent: feedspine/1.0
`

func TestParse_ValidConfig(t *testing.T) {
	cfg, err := Parse([]byte(validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Orchestrator.BufferCapacity != 50 {
		t.Errorf("BufferCapacity = %d, want 50", cfg.Orchestrator.BufferCapacity)
	}
	if cfg.Orchestrator.MaxConcurrent != 2 {
		t.Errorf("MaxConcurrent = %d, want 2", cfg.Orchestrator.MaxConcurrent)
	}
	if len(cfg.Feeds) != 2 {
		t.Fatalf("len(Feeds) = %d, want 2", len(cfg.Feeds))
	}
	if cfg.Feeds[1].KeyField != "accession" {
		t.Errorf("KeyField = %q, want accession", cfg.Feeds[1].KeyField)
	}
	if cfg.Checkpoints.IntervalRecords != 10 {
		t.Errorf("IntervalRecords = %d, want 10", cfg.Checkpoints.IntervalRecords)
	}
}

func TestParse_AppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
storage:
  backend: memory
feeds:
  - name: releases
    type: rss
    url: https://example.com/feed.xml
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Orchestrator.BufferCapacity != 1000 {
		t.Errorf("BufferCapacity default = %d, want 1000", cfg.Orchestrator.BufferCapacity)
	}
	if cfg.Checkpoints.IntervalRecords != 100 || cfg.Checkpoints.IntervalSeconds != 60 {
		t.Errorf("checkpoint defaults = %d/%d, want 100/60",
			cfg.Checkpoints.IntervalRecords, cfg.Checkpoints.IntervalSeconds)
	}
}

func TestParse_RejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte(`
storage:
  backend: memory
bufferCapcity: 10
feeds:
  - name: r
    type: rss
    url: https://example.com/f.xml
`))
	if err == nil {
		t.Fatal("expected error for misspelled top-level key")
	}
	if !errors.Is(err, apperrors.ErrConfigError) {
		t.Errorf("errors.Is(err, ErrConfigError) = false, err = %v", err)
	}
}

func TestParse_ValidationFailures(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"no feeds", "storage:\n  backend: memory\nfeeds: []\n"},
		{"bad backend", "storage:\n  backend: sqlite\nfeeds:\n  - name: r\n    type: rss\n    url: https://x.test/f\n"},
		{"postgres without dsn", "storage:\n  backend: postgres\nfeeds:\n  - name: r\n    type: rss\n    url: https://x.test/f\n"},
		{"bad feed type", "storage:\n  backend: memory\nfeeds:\n  - name: r\n    type: imap\n    url: https://x.test/f\n"},
		{"jsonfeed without keyField", "storage:\n  backend: memory\nfeeds:\n  - name: r\n    type: jsonfeed\n    url: https://x.test/f\n"},
		{"zero buffer", "storage:\n  backend: memory\norchestrator:\n  bufferCapacity: 0\nfeeds:\n  - name: r\n    type: rss\n    url: https://x.test/f\n"},
		{"duplicate feed names", "storage:\n  backend: memory\nfeeds:\n  - name: r\n    type: rss\n    url: https://x.test/f\n  - name: r\n    type: rss\n    url: https://x.test/g\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			if err == nil {
				t.Fatal("expected a validation error")
			}
			if !errors.Is(err, apperrors.ErrConfigError) {
				t.Errorf("errors.Is(err, ErrConfigError) = false, err = %v", err)
			}
		})
	}
}

func TestLoad_ReadsFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedspine.yaml")
	if err := os.WriteFile(path, []byte(validYAML), 0o600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Feeds) != 2 {
		t.Errorf("len(Feeds) = %d, want 2", len(cfg.Feeds))
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, apperrors.ErrConfigError) {
		t.Errorf("errors.Is(err, ErrConfigError) = false, err = %v", err)
	}
}
