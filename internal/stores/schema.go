package stores

import "context"

// Table shapes mirror the conceptual model: one session per login attempt,
// challenges keyed by (session_id, challenge_id), messages keyed by
// (session_id, challenge_id, message_name) with an autoincrement seq for
// stable creation ordering. Defs are immutable and schema-scoped.
const schemaSQLite = `
CREATE TABLE IF NOT EXISTS auth_session (
	session_id      TEXT PRIMARY KEY,
	account_id      TEXT NOT NULL,
	account_version INTEGER NOT NULL,
	outcome         TEXT NOT NULL DEFAULT 'Pending'
);

CREATE TABLE IF NOT EXISTS auth_challenge (
	session_id   TEXT NOT NULL REFERENCES auth_session(session_id),
	challenge_id TEXT NOT NULL,
	outcome      TEXT NOT NULL DEFAULT 'Pending',
	PRIMARY KEY (session_id, challenge_id)
);

CREATE TABLE IF NOT EXISTS auth_challenge_message (
	seq          INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id   TEXT NOT NULL,
	challenge_id TEXT NOT NULL,
	message_name TEXT NOT NULL,
	request      TEXT NOT NULL,
	expected     TEXT NOT NULL,
	response     TEXT,
	status_msg   TEXT,
	created_at   INTEGER NOT NULL,
	UNIQUE (session_id, challenge_id, message_name),
	FOREIGN KEY (session_id, challenge_id) REFERENCES auth_challenge(session_id, challenge_id)
);

CREATE TABLE IF NOT EXISTS account_def_auth_challenge (
	challenge_id         TEXT NOT NULL,
	account_version      INTEGER NOT NULL,
	challenge_type       TEXT NOT NULL,
	challenge_parameters TEXT NOT NULL DEFAULT '{}',
	PRIMARY KEY (challenge_id, account_version)
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS auth_session (
	session_id      TEXT PRIMARY KEY,
	account_id      TEXT NOT NULL,
	account_version BIGINT NOT NULL,
	outcome         TEXT NOT NULL DEFAULT 'Pending'
);

CREATE TABLE IF NOT EXISTS auth_challenge (
	session_id   TEXT NOT NULL REFERENCES auth_session(session_id),
	challenge_id TEXT NOT NULL,
	outcome      TEXT NOT NULL DEFAULT 'Pending',
	PRIMARY KEY (session_id, challenge_id)
);

CREATE TABLE IF NOT EXISTS auth_challenge_message (
	seq          BIGSERIAL PRIMARY KEY,
	session_id   TEXT NOT NULL,
	challenge_id TEXT NOT NULL,
	message_name TEXT NOT NULL,
	request      JSONB NOT NULL,
	expected     JSONB NOT NULL,
	response     JSONB,
	status_msg   TEXT,
	created_at   BIGINT NOT NULL,
	UNIQUE (session_id, challenge_id, message_name),
	FOREIGN KEY (session_id, challenge_id) REFERENCES auth_challenge(session_id, challenge_id)
);

CREATE TABLE IF NOT EXISTS account_def_auth_challenge (
	challenge_id         TEXT NOT NULL,
	account_version      BIGINT NOT NULL,
	challenge_type       TEXT NOT NULL,
	challenge_parameters JSONB NOT NULL DEFAULT '{}',
	PRIMARY KEY (challenge_id, account_version)
);
`

// EnsureSchema creates the four tables if they do not exist yet.
func (d *DB) EnsureSchema(ctx context.Context) error {
	ddl := schemaSQLite
	if d.dialect == DialectPostgres {
		ddl = schemaPostgres
	}
	_, err := d.sql.ExecContext(ctx, ddl)
	return err
}
