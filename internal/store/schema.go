package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS projects (
    project_id   TEXT PRIMARY KEY,
    project_name TEXT NOT NULL,
    created_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
    session_id            TEXT PRIMARY KEY,
    project_id            TEXT NOT NULL REFERENCES projects(project_id),
    start_time            TEXT,
    end_time              TEXT,
    message_count         INTEGER NOT NULL DEFAULT 0,
    tool_use_count        INTEGER NOT NULL DEFAULT 0,
    input_tokens          INTEGER NOT NULL DEFAULT 0,
    output_tokens         INTEGER NOT NULL DEFAULT 0,
    cache_creation_tokens INTEGER NOT NULL DEFAULT 0,
    cache_read_tokens     INTEGER NOT NULL DEFAULT 0,
    models                TEXT NOT NULL DEFAULT '',
    file_path             TEXT,
    imported_at           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
    message_id            INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id            TEXT NOT NULL REFERENCES sessions(session_id),
    message_index         INTEGER NOT NULL,
    role                  TEXT NOT NULL CHECK (role IN ('user', 'assistant', 'system')),
    content               TEXT,
    timestamp             TEXT,
    input_tokens          INTEGER,
    output_tokens         INTEGER,
    cache_creation_tokens INTEGER,
    cache_read_tokens     INTEGER,
    UNIQUE (session_id, message_index)
);

CREATE TABLE IF NOT EXISTS tool_uses (
    session_id    TEXT NOT NULL REFERENCES sessions(session_id),
    tool_use_id   TEXT NOT NULL,
    message_index INTEGER NOT NULL,
    tool_name     TEXT,
    tool_input    TEXT,
    tool_result   TEXT,
    has_result    INTEGER NOT NULL DEFAULT 0,
    is_error      INTEGER NOT NULL DEFAULT 0,
    is_orphan     INTEGER NOT NULL DEFAULT 0,
    timestamp     TEXT,
    PRIMARY KEY (session_id, tool_use_id)
);

CREATE TABLE IF NOT EXISTS meta (
    key   TEXT PRIMARY KEY,
    value TEXT
);

CREATE INDEX IF NOT EXISTS idx_sessions_project ON sessions(project_id);
CREATE INDEX IF NOT EXISTS idx_sessions_start ON sessions(start_time);
CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, message_index);
CREATE INDEX IF NOT EXISTS idx_tool_uses_session ON tool_uses(session_id, message_index);
`

// Additive column migrations for databases created by earlier schema
// revisions. "duplicate column name" failures are expected and ignored.
var migrationSQL = []string{
	`ALTER TABLE sessions ADD COLUMN cache_creation_tokens INTEGER NOT NULL DEFAULT 0`,
	`ALTER TABLE sessions ADD COLUMN cache_read_tokens INTEGER NOT NULL DEFAULT 0`,
	`ALTER TABLE sessions ADD COLUMN models TEXT NOT NULL DEFAULT ''`,
	`ALTER TABLE messages ADD COLUMN cache_creation_tokens INTEGER`,
	`ALTER TABLE messages ADD COLUMN cache_read_tokens INTEGER`,
	`ALTER TABLE tool_uses ADD COLUMN is_orphan INTEGER NOT NULL DEFAULT 0`,
}

const ftsSQL = `
CREATE VIRTUAL TABLE fts_messages USING fts5(
    content,
    tokenize='porter unicode61'
);

CREATE VIRTUAL TABLE fts_tool_uses USING fts5(
    tool_input,
    tool_result,
    tokenize='porter unicode61'
);
`
