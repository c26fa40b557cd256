// Package sqlite persists the schedule and daemon settings in a single
// WAL-mode database file under the aether home.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// FileName is the database file inside the data directory.
const FileName = "state.db"

// DB is the daemon's store. It satisfies domain.ScheduleStore and
// domain.StateStore.
type DB struct {
	db *sql.DB
}

// Open opens dir/state.db, creating dir as needed, and brings the schema
// up to date.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)",
		filepath.Join(dir, FileName))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer; a single connection also keeps the pragmas in effect.
	db.SetMaxOpenConns(1)

	d := &DB{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return d, nil
}

// Close cleanly shuts down the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks database connectivity.
func (d *DB) Ping() error {
	return d.db.Ping()
}

// migrations are applied in order; PRAGMA user_version records how many
// have run. Append only.
var migrations = [][]string{
	{
		`CREATE TABLE settings (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		// Whole list rewritten on every mutation; position is list order.
		`CREATE TABLE schedule_items (
			id            TEXT PRIMARY KEY,
			position      INTEGER NOT NULL,
			trigger_kind  TEXT NOT NULL,
			trigger_value TEXT NOT NULL,
			enabled       BOOLEAN NOT NULL DEFAULT 1,
			name          TEXT NOT NULL DEFAULT '',
			description   TEXT NOT NULL DEFAULT '',
			author        TEXT NOT NULL DEFAULT '',
			version       TEXT NOT NULL DEFAULT '',
			type          TEXT NOT NULL,
			path          TEXT NOT NULL DEFAULT '',
			url           TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX idx_schedule_position ON schedule_items(position)`,
	},
}

// SchemaVersion reports the number of applied migrations.
func (d *DB) SchemaVersion() (int, error) {
	var v int
	err := d.db.QueryRow(`PRAGMA user_version`).Scan(&v)
	return v, err
}

func (d *DB) migrate() error {
	current, err := d.SchemaVersion()
	if err != nil {
		return err
	}
	for v := current; v < len(migrations); v++ {
		tx, err := d.db.Begin()
		if err != nil {
			return err
		}
		for _, stmt := range migrations[v] {
			if _, err := tx.Exec(stmt); err != nil {
				tx.Rollback()
				return fmt.Errorf("migration %d: %w\nSQL: %s", v+1, err, stmt)
			}
		}
		// PRAGMA does not take bind parameters.
		if _, err := tx.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, v+1)); err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}

// ─── Settings ───────────────────────────────────────────────────────────────

// SetSetting upserts a daemon setting.
func (d *DB) SetSetting(key, value string) error {
	_, err := d.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value`,
		key, value,
	)
	return err
}

// Setting returns a stored setting, "" when unset.
func (d *DB) Setting(key string) (string, error) {
	var value string
	err := d.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}
