package impl_postgres

// schema is applied once at startup via EnsureSchema. No migration
// framework is exercised anywhere else in the codebase, so plain
// embedded SQL is enough; see DESIGN.md for why that tradeoff was made.
const schema = `
CREATE TABLE IF NOT EXISTS records (
	record_id      TEXT PRIMARY KEY,
	natural_key    TEXT NOT NULL UNIQUE,
	published_at   TIMESTAMPTZ,
	content        JSONB NOT NULL,
	metadata       JSONB NOT NULL,
	content_hash   TEXT NOT NULL,
	layer          SMALLINT NOT NULL,
	captured_at    TIMESTAMPTZ NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL,
	first_seen_at  TIMESTAMPTZ NOT NULL,
	last_seen_at   TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_records_layer ON records (layer);
CREATE INDEX IF NOT EXISTS idx_records_published_at ON records (published_at);
CREATE INDEX IF NOT EXISTS idx_records_captured_at ON records (captured_at);

CREATE TABLE IF NOT EXISTS sightings (
	sighting_id  TEXT PRIMARY KEY,
	natural_key  TEXT NOT NULL,
	source       TEXT NOT NULL,
	seen_at      TIMESTAMPTZ NOT NULL,
	is_new       BOOLEAN NOT NULL,
	record_id    TEXT NOT NULL,
	content_hash TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sightings_key_seen ON sightings (natural_key, seen_at);
`
