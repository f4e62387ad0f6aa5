package repository

import (
	"database/sql"
	"fmt"
	"regexp"
	"sync"

	"github.com/mattn/go-sqlite3"
)

const driverName = "sqlite3_callwatch"

var registerOnce sync.Once

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	image      TEXT NOT NULL DEFAULT '',
	role       TEXT NOT NULL DEFAULT 'student',
	updated_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS monitoring_events (
	id         TEXT PRIMARY KEY,
	call_id    TEXT NOT NULL,
	user_id    TEXT NOT NULL,
	user_name  TEXT NOT NULL DEFAULT '',
	user_image TEXT NOT NULL DEFAULT '',
	event_type TEXT NOT NULL,
	details    TEXT NOT NULL DEFAULT '',
	timestamp  TIMESTAMP NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_monitoring_events_call ON monitoring_events (call_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_monitoring_events_user ON monitoring_events (user_id, call_id, timestamp);
CREATE TABLE IF NOT EXISTS teacher_notes (
	id         TEXT PRIMARY KEY,
	teacher_id TEXT NOT NULL,
	student_id TEXT NOT NULL,
	call_id    TEXT NOT NULL,
	note       TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_teacher_notes_student ON teacher_notes (student_id, call_id, created_at);
`

func regex(re, s string) (bool, error) {
	return regexp.MatchString(re, s)
}

// Open opens the SQLite database at path (":memory:" works) with the regexp
// function registered and the schema applied.
func Open(path string) (*sql.DB, error) {
	registerOnce.Do(func() {
		sql.Register(driverName,
			&sqlite3.SQLiteDriver{
				ConnectHook: func(conn *sqlite3.SQLiteConn) error {
					return conn.RegisterFunc("regexp", regex, true)
				},
			})
	})
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	// SQLite allows a single writer, and an in-memory database exists per connection.
	db.SetMaxOpenConns(1)
	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
