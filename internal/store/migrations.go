package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Timestamps are stored as Unix seconds so range filters and ordering
// compare exactly.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS emails (
	id              TEXT PRIMARY KEY,
	subject         TEXT,
	sender_email    TEXT NOT NULL,
	sender_name     TEXT,
	received_at     INTEGER NOT NULL,
	body_preview    TEXT NOT NULL DEFAULT '',
	body_content    TEXT,
	is_read         INTEGER NOT NULL DEFAULT 0 CHECK(is_read IN (0, 1)),
	has_attachments INTEGER NOT NULL DEFAULT 0 CHECK(has_attachments IN (0, 1)),
	folder_id       TEXT,
	created_at      INTEGER NOT NULL,
	updated_at      INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS attachments (
	id            TEXT PRIMARY KEY,
	email_id      TEXT NOT NULL REFERENCES emails(id) ON DELETE CASCADE,
	name          TEXT NOT NULL,
	content_type  TEXT,
	size          INTEGER,
	local_path    TEXT,
	downloaded_at INTEGER,
	created_at    INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_emails_sender ON emails(sender_email);
CREATE INDEX IF NOT EXISTS idx_emails_received ON emails(received_at);
CREATE INDEX IF NOT EXISTS idx_emails_folder ON emails(folder_id);
CREATE INDEX IF NOT EXISTS idx_attachments_email ON attachments(email_id);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
