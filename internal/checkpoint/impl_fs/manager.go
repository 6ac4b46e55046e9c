// Package impl_fs is a filesystem-backed checkpoint.Manager. Every Save
// writes a temp file in the same directory, fsyncs it, then renames it
// over the target path, so readers never observe a torn checkpoint.
package impl_fs

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/feedspine/feedspine/internal/apperrors"
	"github.com/feedspine/feedspine/internal/checkpoint"
	"github.com/feedspine/feedspine/internal/model"
)

func parseSavedAt(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

// fileCheckpoint is the on-disk JSON shape: feedName, cursor,
// recordsProcessed, savedAt.
type fileCheckpoint struct {
	FeedName         string `json:"feedName"`
	Cursor           string `json:"cursor"`
	RecordsProcessed int    `json:"recordsProcessed"`
	SavedAt          string `json:"savedAt"`
}

// Manager persists one JSON file per feed under Dir.
type Manager struct {
	mu  sync.Mutex
	dir string
}

// New creates a Manager rooted at dir, creating it if absent.
func New(dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindStorageError, "creating checkpoint directory")
	}
	return &Manager{dir: dir}, nil
}

func (m *Manager) pathFor(feedName string) string {
	return filepath.Join(m.dir, feedName+".checkpoint.json")
}

// Save atomically writes cp: encode to a temp file in the same
// directory, fsync the file, rename over the target, then fsync the
// directory so the rename itself is durable.
func (m *Manager) Save(ctx context.Context, cp model.Checkpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := json.Marshal(fileCheckpoint{
		FeedName:         cp.FeedName,
		Cursor:           cp.Cursor,
		RecordsProcessed: cp.RecordsProcessed,
		SavedAt:          cp.SavedAt.UTC().Format("2006-01-02T15:04:05.999999999Z07:00"),
	})
	if err != nil {
		return apperrors.Wrap(err, apperrors.KindStorageError, "encoding checkpoint")
	}

	target := m.pathFor(cp.FeedName)
	tmpPath := target + ".tmp." + randomSuffix()

	file, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return apperrors.Wrap(err, apperrors.KindStorageError, "opening checkpoint temp file")
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return apperrors.Wrap(err, apperrors.KindStorageError, "writing checkpoint temp file")
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return apperrors.Wrap(err, apperrors.KindStorageError, "fsyncing checkpoint temp file")
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return apperrors.Wrap(err, apperrors.KindStorageError, "closing checkpoint temp file")
	}
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return apperrors.Wrap(err, apperrors.KindStorageError, "renaming checkpoint file")
	}
	return syncDir(m.dir)
}

func (m *Manager) Load(ctx context.Context, feedName string) (model.Checkpoint, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.pathFor(feedName))
	if os.IsNotExist(err) {
		return model.Checkpoint{}, false, nil
	}
	if err != nil {
		return model.Checkpoint{}, false, apperrors.Wrap(err, apperrors.KindStorageError, "reading checkpoint")
	}

	var fc fileCheckpoint
	if err := json.Unmarshal(data, &fc); err != nil {
		return model.Checkpoint{}, false, apperrors.Wrap(err, apperrors.KindStorageError, "decoding checkpoint")
	}

	savedAt, err := parseSavedAt(fc.SavedAt)
	if err != nil {
		return model.Checkpoint{}, false, apperrors.Wrap(err, apperrors.KindStorageError, "parsing checkpoint savedAt")
	}

	return model.Checkpoint{
		FeedName:         fc.FeedName,
		Cursor:           fc.Cursor,
		RecordsProcessed: fc.RecordsProcessed,
		SavedAt:          savedAt,
	}, true, nil
}

func (m *Manager) Delete(ctx context.Context, feedName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	err := os.Remove(m.pathFor(feedName))
	if err != nil && !os.IsNotExist(err) {
		return apperrors.Wrap(err, apperrors.KindStorageError, "deleting checkpoint")
	}
	return nil
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return apperrors.Wrap(err, apperrors.KindStorageError, "opening checkpoint directory")
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		return apperrors.Wrap(err, apperrors.KindStorageError, "fsyncing checkpoint directory")
	}
	return nil
}

func randomSuffix() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "fallback"
	}
	return hex.EncodeToString(buf)
}

var _ checkpoint.Manager = (*Manager)(nil)
