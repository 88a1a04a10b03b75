package store

const schema = `
CREATE TABLE IF NOT EXISTS admin_users (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    username      TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    created_at    TEXT NOT NULL DEFAULT (datetime('now','localtime'))
);

CREATE TABLE IF NOT EXISTS field_sessions (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    uuid       TEXT NOT NULL UNIQUE,
    name       TEXT NOT NULL,
    origin_x   REAL NOT NULL DEFAULT 0,
    origin_y   REAL NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL DEFAULT (datetime('now','localtime')),
    updated_at TEXT NOT NULL DEFAULT (datetime('now','localtime'))
);
CREATE INDEX IF NOT EXISTS idx_field_sessions_uuid ON field_sessions(uuid);

CREATE TABLE IF NOT EXISTS cones (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id  INTEGER NOT NULL REFERENCES field_sessions(id) ON DELETE CASCADE,
    label       TEXT NOT NULL DEFAULT '',
    x           REAL NOT NULL,
    y           REAL NOT NULL,
    visit_order INTEGER,
    created_at  TEXT NOT NULL DEFAULT (datetime('now','localtime'))
);
CREATE INDEX IF NOT EXISTS idx_cones_session ON cones(session_id);

CREATE TABLE IF NOT EXISTS placements (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id  INTEGER NOT NULL REFERENCES field_sessions(id) ON DELETE CASCADE,
    cone_index  INTEGER NOT NULL,
    total_time  REAL NOT NULL,
    step_log    TEXT NOT NULL DEFAULT '[]',
    recorded_at TEXT NOT NULL DEFAULT (datetime('now','localtime'))
);
CREATE INDEX IF NOT EXISTS idx_placements_session ON placements(session_id);
`

func (db *DB) migrate() error {
	if _, err := db.Exec(schema); err != nil {
		return err
	}
	// Graceful migration for databases created before visit ordering
	db.Exec("ALTER TABLE cones ADD COLUMN visit_order INTEGER")
	return nil
}
