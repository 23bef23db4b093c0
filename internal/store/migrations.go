package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS viewed_flags (
	user_id    INTEGER NOT NULL,
	feature    TEXT NOT NULL,
	viewed_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (user_id, feature)
);

CREATE TABLE IF NOT EXISTS messages (
	id              INTEGER PRIMARY KEY,
	counterpart_id  INTEGER NOT NULL,
	from_user_id    INTEGER NOT NULL,
	to_user_id      INTEGER NOT NULL,
	body            TEXT NOT NULL DEFAULT '',
	created_at      DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_counterpart
	ON messages(counterpart_id, created_at);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
