// Package impl_inmem provides an in-memory Store for development and
// testing. It is not durable: all state is lost on process exit.
package impl_inmem

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/feedspine/feedspine/internal/model"
	"github.com/feedspine/feedspine/internal/storage"
)

// Store implements storage.Store over in-process maps. Per-natural-key
// atomicity for RecordSighting is provided by a single RWMutex guarding
// the whole store, mirroring the dedup store's single-mutex approach:
// simple and correct, traded for per-key lock granularity.
type Store struct {
	mu        sync.RWMutex
	byKey     map[string]model.Record
	byID      map[string]string // RecordID -> NaturalKey
	sightings map[string][]model.Sighting
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		byKey:     make(map[string]model.Record),
		byID:      make(map[string]string),
		sightings: make(map[string][]model.Sighting),
	}
}

func (s *Store) Get(ctx context.Context, naturalKey string) (model.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byKey[model.NormalizeNaturalKey(naturalKey)]
	if !ok {
		return model.Record{}, storage.ErrNotFound
	}
	return r, nil
}

func (s *Store) GetByID(ctx context.Context, recordID string) (model.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok := s.byID[recordID]
	if !ok {
		return model.Record{}, storage.ErrNotFound
	}
	return s.byKey[key], nil
}

func (s *Store) Exists(ctx context.Context, naturalKey string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byKey[model.NormalizeNaturalKey(naturalKey)]
	return ok, nil
}

func (s *Store) Query(ctx context.Context, filter storage.Filter) ([]model.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := s.matchAll(filter)
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].FirstSeenAt.After(matched[j].FirstSeenAt)
	})
	return paginate(matched, filter.Offset, filter.Limit), nil
}

func (s *Store) Count(ctx context.Context, filter storage.Filter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.matchAll(filter)), nil
}

func (s *Store) matchAll(filter storage.Filter) []model.Record {
	matched := make([]model.Record, 0, len(s.byKey))
	for _, r := range s.byKey {
		if filter.Matches(r) {
			matched = append(matched, r)
		}
	}
	return matched
}

func paginate(records []model.Record, offset, limit int) []model.Record {
	if offset > 0 {
		if offset >= len(records) {
			return nil
		}
		records = records[offset:]
	}
	if limit > 0 && limit < len(records) {
		records = records[:limit]
	}
	return records
}

func (s *Store) Insert(ctx context.Context, record model.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byKey[record.NaturalKey]; exists {
		return storage.ErrAlreadyExists
	}
	s.byKey[record.NaturalKey] = record
	s.byID[record.RecordID] = record.NaturalKey
	return nil
}

func (s *Store) Update(ctx context.Context, record model.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byKey[record.NaturalKey]; !exists {
		return storage.ErrNotFound
	}
	s.byKey[record.NaturalKey] = record
	s.byID[record.RecordID] = record.NaturalKey
	return nil
}

// Delete removes the record but keeps its sighting history: sightings
// are an append-only event log, and record IDs are never reissued.
func (s *Store) Delete(ctx context.Context, recordID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.byID[recordID]
	if !ok {
		return storage.ErrNotFound
	}
	delete(s.byID, recordID)
	delete(s.byKey, key)
	return nil
}

// Close is a no-op: the in-memory store holds no external resources.
func (s *Store) Close(ctx context.Context) error { return nil }

// RecordSighting holds the store mutex for its entire body, so two
// concurrent sightings of the same natural key are strictly serialized:
// at most one observes isNew=true, and the sighting append lands inside
// the same locked unit as the insert-or-touch decision, keeping the
// per-key sighting log totally ordered and durable before returning.
func (s *Store) RecordSighting(ctx context.Context, candidate model.RecordCandidate, recordID, sightingID string, seenAt time.Time) (model.Record, model.Sighting, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.byKey[candidate.NaturalKey]
	if !ok {
		record := model.NewRecord(recordID, candidate, seenAt)
		s.byKey[record.NaturalKey] = record
		s.byID[record.RecordID] = record.NaturalKey
		sighting := model.NewSighting(sightingID, candidate, candidate.Metadata.Source, seenAt, record.RecordID, true)
		s.sightings[record.NaturalKey] = append(s.sightings[record.NaturalKey], sighting)
		return record, sighting, true, nil
	}

	if err := existing.TouchSighting(seenAt, candidate.ContentHash); err != nil {
		return model.Record{}, model.Sighting{}, false, err
	}
	s.byKey[existing.NaturalKey] = existing
	sighting := model.NewSighting(sightingID, candidate, candidate.Metadata.Source, seenAt, existing.RecordID, false)
	s.sightings[existing.NaturalKey] = append(s.sightings[existing.NaturalKey], sighting)
	return existing, sighting, false, nil
}

func (s *Store) Sightings(ctx context.Context, naturalKey string) ([]model.Sighting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key := model.NormalizeNaturalKey(naturalKey)
	out := make([]model.Sighting, len(s.sightings[key]))
	copy(out, s.sightings[key])
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SeenAt.Before(out[j].SeenAt)
	})
	return out, nil
}

var _ storage.Store = (*Store)(nil)
