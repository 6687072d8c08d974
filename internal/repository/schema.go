package repository

// Schema creates the tables used by the hub. Applied by `seed schema`
// and by the repository integration tests.
const Schema = `
CREATE TABLE IF NOT EXISTS entities (
	id            TEXT PRIMARY KEY,
	workflow_type TEXT NOT NULL,
	state         TEXT NOT NULL,
	version       BIGINT NOT NULL,
	payload       JSONB,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS audit_records (
	id             TEXT PRIMARY KEY,
	entity_id      TEXT NOT NULL,
	workflow_type  TEXT NOT NULL,
	from_state     TEXT,
	to_state       TEXT NOT NULL,
	actor          TEXT NOT NULL,
	outcome        TEXT NOT NULL,
	reason         TEXT,
	correlation_id TEXT NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS audit_records_entity_idx ON audit_records (entity_id, created_at);

CREATE TABLE IF NOT EXISTS webhook_log (
	id             TEXT PRIMARY KEY,
	source         TEXT NOT NULL,
	event_type     TEXT NOT NULL,
	caller         TEXT NOT NULL,
	outcome        TEXT NOT NULL,
	detail         TEXT,
	payload_digest TEXT NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS webhook_log_source_idx ON webhook_log (source, created_at);
`
