// Package impl_postgres is the production Store backed by PostgreSQL via
// pgx/v5. RecordSighting runs insert-or-touch plus the sighting append
// in one transaction: existing rows are serialized with SELECT ... FOR
// UPDATE, and a first-time insert that loses the unique-constraint race
// (FOR UPDATE cannot lock a row that does not exist yet) surfaces
// ErrDuplicateNaturalKey so the caller retries the find-then-act path
// as a touch.
package impl_postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/feedspine/feedspine/internal/apperrors"
	"github.com/feedspine/feedspine/internal/model"
	"github.com/feedspine/feedspine/internal/storage"
)

// Store implements storage.Store over a pgxpool.Pool.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps an already-configured pool. Callers own the pool's lifecycle.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureSchema creates the records/sightings tables and indexes if they
// do not already exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return apperrors.Wrap(err, apperrors.KindStorageError, "ensure schema")
	}
	return nil
}

func (s *Store) Get(ctx context.Context, naturalKey string) (model.Record, error) {
	row := s.pool.QueryRow(ctx, selectByNaturalKey, model.NormalizeNaturalKey(naturalKey))
	return scanRecord(row)
}

func (s *Store) GetByID(ctx context.Context, recordID string) (model.Record, error) {
	row := s.pool.QueryRow(ctx, selectByRecordID, recordID)
	return scanRecord(row)
}

func (s *Store) Exists(ctx context.Context, naturalKey string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, existsByNaturalKey, model.NormalizeNaturalKey(naturalKey)).Scan(&exists)
	if err != nil {
		return false, apperrors.Wrap(err, apperrors.KindStorageError, "exists lookup")
	}
	return exists, nil
}

func (s *Store) Query(ctx context.Context, filter storage.Filter) ([]model.Record, error) {
	query, args := buildQuery(filter)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindStorageError, "query records")
	}
	defer rows.Close()

	var out []model.Record
	for rows.Next() {
		r, err := scanRecordRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) Count(ctx context.Context, filter storage.Filter) (int, error) {
	query, args := buildCountQuery(filter)
	var count int
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, apperrors.Wrap(err, apperrors.KindStorageError, "count records")
	}
	return count, nil
}

func (s *Store) Insert(ctx context.Context, record model.Record) error {
	content, metadata, err := encodeRecord(record)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, insertRecord,
		record.RecordID, record.NaturalKey, record.PublishedAt, content, metadata,
		record.ContentHash, record.Layer, record.CapturedAt, record.UpdatedAt,
		record.FirstSeenAt, record.LastSeenAt)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return apperrors.Wrap(err, apperrors.KindStorageError, "insert record")
	}
	return nil
}

func (s *Store) Update(ctx context.Context, record model.Record) error {
	content, metadata, err := encodeRecord(record)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, updateRecord,
		record.NaturalKey, record.PublishedAt, content, metadata, record.ContentHash,
		record.Layer, record.UpdatedAt, record.FirstSeenAt, record.LastSeenAt, record.RecordID)
	if err != nil {
		return apperrors.Wrap(err, apperrors.KindStorageError, "update record")
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Delete removes the record row; sightings are retained as an
// append-only event log.
func (s *Store) Delete(ctx context.Context, recordID string) error {
	tag, err := s.pool.Exec(ctx, deleteRecord, recordID)
	if err != nil {
		return apperrors.Wrap(err, apperrors.KindStorageError, "delete record")
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close(ctx context.Context) error {
	s.pool.Close()
	return nil
}

// RecordSighting runs inside one transaction: a row-level lock via
// SELECT ... FOR UPDATE on the natural key serializes concurrent
// callers racing an existing key, and the sighting insert shares the
// transaction so the per-key log is totally ordered and durable before
// the call returns. A brand-new key has no row to lock, so two
// first-time callers can still race the INSERT; the loser's unique
// violation is returned as ErrDuplicateNaturalKey for the caller to
// retry as a touch.
func (s *Store) RecordSighting(ctx context.Context, candidate model.RecordCandidate, recordID, sightingID string, seenAt time.Time) (model.Record, model.Sighting, bool, error) {
	var result model.Record
	var isNew bool

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, selectByNaturalKeyForUpdate, candidate.NaturalKey)
		existing, err := scanRecord(row)
		switch {
		case err == storage.ErrNotFound:
			result = model.NewRecord(recordID, candidate, seenAt)
			content, metadata, encErr := encodeRecord(result)
			if encErr != nil {
				return encErr
			}
			_, err = tx.Exec(ctx, insertRecord,
				result.RecordID, result.NaturalKey, result.PublishedAt, content, metadata,
				result.ContentHash, result.Layer, result.CapturedAt, result.UpdatedAt,
				result.FirstSeenAt, result.LastSeenAt)
			if err != nil {
				if isUniqueViolation(err) {
					return storage.ErrAlreadyExists
				}
				return apperrors.Wrap(err, apperrors.KindStorageError, "insert record in recordSighting")
			}
			isNew = true
		case err != nil:
			return err
		default:
			if err := existing.TouchSighting(seenAt, candidate.ContentHash); err != nil {
				return err
			}
			content, metadata, encErr := encodeRecord(existing)
			if encErr != nil {
				return encErr
			}
			_, err = tx.Exec(ctx, updateRecord,
				existing.NaturalKey, existing.PublishedAt, content, metadata, existing.ContentHash,
				existing.Layer, existing.UpdatedAt, existing.FirstSeenAt, existing.LastSeenAt, existing.RecordID)
			if err != nil {
				return apperrors.Wrap(err, apperrors.KindStorageError, "update record in recordSighting")
			}
			result = existing
			isNew = false
		}

		_, err = tx.Exec(ctx, insertSighting,
			sightingID, candidate.NaturalKey, candidate.Metadata.Source, seenAt,
			isNew, result.RecordID, candidate.ContentHash)
		if err != nil {
			return apperrors.Wrap(err, apperrors.KindStorageError, "insert sighting in recordSighting")
		}
		return nil
	})
	if err != nil {
		return model.Record{}, model.Sighting{}, false, err
	}
	sighting := model.NewSighting(sightingID, candidate, candidate.Metadata.Source, seenAt, result.RecordID, isNew)
	return result, sighting, isNew, nil
}

func (s *Store) Sightings(ctx context.Context, naturalKey string) ([]model.Sighting, error) {
	rows, err := s.pool.Query(ctx, selectSightings, model.NormalizeNaturalKey(naturalKey))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindStorageError, "query sightings")
	}
	defer rows.Close()

	var out []model.Sighting
	for rows.Next() {
		var sg model.Sighting
		if err := rows.Scan(&sg.SightingID, &sg.NaturalKey, &sg.Source, &sg.SeenAt, &sg.IsNew, &sg.RecordID, &sg.ContentHash); err != nil {
			return nil, apperrors.Wrap(err, apperrors.KindStorageError, "scan sighting")
		}
		out = append(out, sg)
	}
	return out, rows.Err()
}

func encodeRecord(record model.Record) ([]byte, []byte, error) {
	content, err := json.Marshal(record.Content)
	if err != nil {
		return nil, nil, apperrors.Wrap(err, apperrors.KindStorageError, "encode content")
	}
	metadata, err := json.Marshal(record.Metadata)
	if err != nil {
		return nil, nil, apperrors.Wrap(err, apperrors.KindStorageError, "encode metadata")
	}
	return content, metadata, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row pgx.Row) (model.Record, error) {
	return scanRecordRow(row)
}

func scanRecordRow(row scanner) (model.Record, error) {
	var r model.Record
	var content, metadata []byte
	var publishedAt *time.Time

	err := row.Scan(&r.RecordID, &r.NaturalKey, &publishedAt, &content, &metadata,
		&r.ContentHash, &r.Layer, &r.CapturedAt, &r.UpdatedAt, &r.FirstSeenAt, &r.LastSeenAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return model.Record{}, storage.ErrNotFound
		}
		return model.Record{}, apperrors.Wrap(err, apperrors.KindStorageError, "scan record")
	}
	if publishedAt != nil {
		r.PublishedAt = *publishedAt
	}
	if err := json.Unmarshal(content, &r.Content); err != nil {
		return model.Record{}, apperrors.Wrap(err, apperrors.KindStorageError, "decode content")
	}
	if err := json.Unmarshal(metadata, &r.Metadata); err != nil {
		return model.Record{}, apperrors.Wrap(err, apperrors.KindStorageError, "decode metadata")
	}
	return r, nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "23505")
}

var _ storage.Store = (*Store)(nil)

const recordColumns = `record_id, natural_key, published_at, content, metadata, content_hash, layer, captured_at, updated_at, first_seen_at, last_seen_at`

var (
	selectByNaturalKey          = fmt.Sprintf(`SELECT %s FROM records WHERE natural_key = $1`, recordColumns)
	selectByNaturalKeyForUpdate = fmt.Sprintf(`SELECT %s FROM records WHERE natural_key = $1 FOR UPDATE`, recordColumns)
	selectByRecordID            = fmt.Sprintf(`SELECT %s FROM records WHERE record_id = $1`, recordColumns)
	selectSightings             = `SELECT sighting_id, natural_key, source, seen_at, is_new, record_id, content_hash FROM sightings WHERE natural_key = $1 ORDER BY seen_at ASC`

	existsByNaturalKey = `SELECT EXISTS (SELECT 1 FROM records WHERE natural_key = $1)`

	deleteRecord = `DELETE FROM records WHERE record_id = $1`

	insertRecord = `INSERT INTO records (record_id, natural_key, published_at, content, metadata, content_hash, layer, captured_at, updated_at, first_seen_at, last_seen_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	updateRecord = `UPDATE records SET published_at = $2, content = $3, metadata = $4, content_hash = $5, layer = $6, updated_at = $7, first_seen_at = $8, last_seen_at = $9
		WHERE record_id = $10 AND natural_key = $1`

	insertSighting = `INSERT INTO sightings (sighting_id, natural_key, source, seen_at, is_new, record_id, content_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
)
