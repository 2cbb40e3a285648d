// Package store persists the tab list. Exactly one record lives under the
// fixed key; every write replaces it wholesale and appends a compressed
// revision. Last write wins — there is no conflict detection, by the
// single-user assumption the whole system runs under.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lotas/setuptabs/internal/types"
)

// WhyKey is the single storage key the tab list lives under.
const WhyKey = "againWhySalesforce"

// migration is a numbered schema change, applied in order and tracked in
// schema_migrations so each runs exactly once.
type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "initial schema",
		SQL: `
CREATE TABLE IF NOT EXISTS storage (
    key        TEXT PRIMARY KEY,
    value      BLOB NOT NULL,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);`,
	},
	{
		Version:     2,
		Description: "revision history of every write",
		SQL: `
CREATE TABLE revisions (
    id         INTEGER PRIMARY KEY,
    key        TEXT NOT NULL,
    value      BLOB NOT NULL,
    tab_count  INTEGER NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);`,
	},
}

// OpenDB opens (or creates) the SQLite database at path, creating parent
// directories, enabling WAL mode and running pending migrations.
func OpenDB(path string) (*sql.DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

func runMigrations(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version     INTEGER PRIMARY KEY,
		description TEXT NOT NULL,
		applied_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	for _, m := range migrations {
		var exists int
		if err := db.QueryRow(
			"SELECT COUNT(*) FROM schema_migrations WHERE version = ?", m.Version,
		).Scan(&exists); err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if exists > 0 {
			continue
		}
		if _, err := db.Exec(m.SQL); err != nil {
			return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Description, err)
		}
		if _, err := db.Exec(
			"INSERT INTO schema_migrations (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}
	}
	return nil
}

// DefaultDBPath returns ~/.local/share/setuptabs/setuptabs.db, or the
// SETUPTABS_DB override.
func DefaultDBPath() (string, error) {
	if p := os.Getenv("SETUPTABS_DB"); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "setuptabs", "setuptabs.db"), nil
}

// GetTabs reads the persisted tab list. found is false when nothing has
// been saved yet; callers seed the defaults in that case. The value may be
// stale the moment it is returned — readers re-get rather than trusting a
// cached copy.
func GetTabs(db *sql.DB) (tabs types.TabList, found bool, err error) {
	var blob []byte
	err = db.QueryRow("SELECT value FROM storage WHERE key = ?", WhyKey).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query storage: %w", err)
	}
	if err := json.Unmarshal(blob, &tabs); err != nil {
		return nil, false, fmt.Errorf("decode tab list: %w", err)
	}
	return tabs, true, nil
}

// SetTabs replaces the persisted list and appends a compressed revision.
func SetTabs(db *sql.DB, tabs types.TabList) error {
	blob, err := json.Marshal(tabs)
	if err != nil {
		return fmt.Errorf("encode tab list: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO storage (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		WhyKey, blob, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("upsert storage: %w", err)
	}

	compressed, err := CompressPayload(blob)
	if err != nil {
		return fmt.Errorf("compress revision: %w", err)
	}
	if _, err := tx.Exec(
		"INSERT INTO revisions (key, value, tab_count) VALUES (?, ?, ?)",
		WhyKey, compressed, len(tabs),
	); err != nil {
		return fmt.Errorf("insert revision: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Revision is one historical tab list, kept for every write.
type Revision struct {
	ID        int64
	TabCount  int
	CreatedAt time.Time
}

// ListRevisions returns revision metadata, newest first.
func ListRevisions(db *sql.DB) ([]Revision, error) {
	rows, err := db.Query(
		"SELECT id, tab_count, created_at FROM revisions WHERE key = ? ORDER BY id DESC", WhyKey,
	)
	if err != nil {
		return nil, fmt.Errorf("query revisions: %w", err)
	}
	defer rows.Close()

	var result []Revision
	for rows.Next() {
		var r Revision
		if err := rows.Scan(&r.ID, &r.TabCount, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan revision: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// GetRevision decompresses and decodes one historical tab list.
func GetRevision(db *sql.DB, id int64) (types.TabList, error) {
	var blob []byte
	err := db.QueryRow("SELECT value FROM revisions WHERE id = ? AND key = ?", id, WhyKey).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("revision %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("query revision: %w", err)
	}

	raw, err := DecompressPayload(blob)
	if err != nil {
		return nil, fmt.Errorf("decompress revision %d: %w", id, err)
	}
	var tabs types.TabList
	if err := json.Unmarshal(raw, &tabs); err != nil {
		return nil, fmt.Errorf("decode revision %d: %w", id, err)
	}
	return tabs, nil
}
