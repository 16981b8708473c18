package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const SchemaSQL = `
CREATE TABLE IF NOT EXISTS audit_runs (
    id TEXT PRIMARY KEY,
    corpus TEXT,
    created_at TEXT,
    status TEXT,
    pack_count INTEGER,
    red INTEGER,
    yellow INTEGER,
    green INTEGER
);

CREATE TABLE IF NOT EXISTS pack_reports (
    id INTEGER PRIMARY KEY,
    run_id TEXT,
    pack_id TEXT,
    scenario TEXT,
    level TEXT,
    status TEXT,
    metrics TEXT
);

CREATE TABLE IF NOT EXISTS issues (
    id INTEGER PRIMARY KEY,
    run_id TEXT,
    pack_id TEXT,
    message TEXT
);
`

func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(SchemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}
