package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// RecordCandidate is an unpersisted observation emitted by an adapter.
// NaturalKey is always stored normalized (trim + lowercase); two
// candidates whose raw keys differ only in whitespace or case compare
// equal once constructed through NewRecordCandidate.
type RecordCandidate struct {
	NaturalKey string

	// PublishedAt is the timestamp the source asserts for the item. Zero
	// value means absent.
	PublishedAt time.Time

	Content     Content
	Metadata    Metadata
	ContentHash string
}

// NewRecordCandidate constructs and validates a RecordCandidate,
// normalizing NaturalKey and validating meta. It sets no timestamp;
// WithPublishedAt rejects non-UTC timestamps.
func NewRecordCandidate(rawKey string, content Content, meta Metadata) (RecordCandidate, error) {
	key := NormalizeNaturalKey(rawKey)
	if key == "" {
		return RecordCandidate{}, errInvalidCandidate("natural key is empty after normalization")
	}
	if err := meta.Validate(); err != nil {
		return RecordCandidate{}, err
	}
	c := RecordCandidate{
		NaturalKey: key,
		Content:    content,
		Metadata:   meta,
	}
	return c, nil
}

// WithPublishedAt sets PublishedAt, rejecting non-UTC locations.
func (c RecordCandidate) WithPublishedAt(t time.Time) (RecordCandidate, error) {
	if t.IsZero() {
		c.PublishedAt = t
		return c, nil
	}
	if t.Location() != time.UTC {
		return c, errInvalidCandidatef("publishedAt must be UTC, got location %q", t.Location())
	}
	c.PublishedAt = t
	return c, nil
}

// WithContentHash attaches a precomputed content hash, or computes one
// via ComputeContentHash if hash is empty.
func (c RecordCandidate) WithContentHash(hash string) RecordCandidate {
	if hash == "" {
		hash = c.ComputeContentHash()
	}
	c.ContentHash = hash
	return c
}

// ComputeContentHash derives a deterministic fingerprint of Content,
// stable under field-order permutation: it hashes the canonical
// (key-sorted) serialization rather than map iteration order.
func (c RecordCandidate) ComputeContentHash() string {
	sum := sha256.Sum256([]byte(c.Content.CanonicalString()))
	return hex.EncodeToString(sum[:])
}

// Validate re-checks invariants on a constructed candidate, used at
// ingestion boundaries that receive candidates built outside
// NewRecordCandidate (e.g. deserialized from an adapter's wire format).
func (c RecordCandidate) Validate() error {
	if c.NaturalKey == "" {
		return errInvalidCandidate("natural key is empty")
	}
	if c.NaturalKey != NormalizeNaturalKey(c.NaturalKey) {
		return errInvalidCandidate("natural key is not normalized")
	}
	if err := c.Metadata.Validate(); err != nil {
		return err
	}
	if !c.PublishedAt.IsZero() && c.PublishedAt.Location() != time.UTC {
		return errInvalidCandidatef("publishedAt must be UTC, got location %q", c.PublishedAt.Location())
	}
	return nil
}
