// Package store is the devserver's sqlite persistence: users, messages,
// invitations and contacts, teaching demands, calendar events and tasks.
package store

import (
	"database/sql"
	"encoding/json"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

type Store struct {
	db *sql.DB
}

func New(dataSourceName string) (*Store, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, err
	}
	// One connection: sqlite has a single writer anyway, and this keeps
	// :memory: databases usable across the pool in tests.
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT UNIQUE NOT NULL,
		password TEXT NOT NULL,
		firstname TEXT NOT NULL DEFAULT '',
		lastname TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		photo TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT 'student'
	);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		sender_id TEXT NOT NULL REFERENCES users(id),
		receiver_id TEXT NOT NULL REFERENCES users(id),
		content TEXT NOT NULL,
		files TEXT NOT NULL DEFAULT '[]',
		sent_at DATETIME NOT NULL,
		read BOOLEAN NOT NULL DEFAULT FALSE
	);

	CREATE TABLE IF NOT EXISTS invitations (
		sender_id TEXT NOT NULL REFERENCES users(id),
		receiver_id TEXT NOT NULL REFERENCES users(id),
		status TEXT NOT NULL DEFAULT 'pending',
		PRIMARY KEY (sender_id, receiver_id)
	);

	CREATE TABLE IF NOT EXISTS contacts (
		user_a TEXT NOT NULL REFERENCES users(id),
		user_b TEXT NOT NULL REFERENCES users(id),
		PRIMARY KEY (user_a, user_b)
	);

	CREATE TABLE IF NOT EXISTS demands (
		id TEXT PRIMARY KEY,
		sender_id TEXT NOT NULL REFERENCES users(id),
		receiver_id TEXT NOT NULL REFERENCES users(id),
		sent DATETIME NOT NULL,
		accepted BOOLEAN NOT NULL DEFAULT FALSE,
		cancelled BOOLEAN NOT NULL DEFAULT FALSE
	);

	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		beginning DATETIME NOT NULL,
		end_time DATETIME NOT NULL,
		organizer_id TEXT NOT NULL REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS event_participants (
		event_id TEXT NOT NULL REFERENCES events(id),
		user_id TEXT NOT NULL REFERENCES users(id),
		accepted BOOLEAN NOT NULL DEFAULT FALSE,
		PRIMARY KEY (event_id, user_id)
	);

	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		performer_id TEXT NOT NULL REFERENCES users(id),
		done BOOLEAN NOT NULL DEFAULT FALSE,
		validated BOOLEAN NOT NULL DEFAULT FALSE
	);
	`
	_, err := s.db.Exec(query)
	return err
}

// contactPair orders a symmetric edge so each pair is stored once.
func contactPair(a, b string) (string, string) {
	if a > b {
		return b, a
	}
	return a, b
}

func marshalFiles(files []string) string {
	if len(files) == 0 {
		return "[]"
	}
	raw, err := json.Marshal(files)
	if err != nil {
		return "[]"
	}
	return string(raw)
}

func unmarshalFiles(raw string) []string {
	var files []string
	if err := json.Unmarshal([]byte(raw), &files); err != nil || len(files) == 0 {
		return nil
	}
	return files
}

// IsNotFound reports whether an error is the store's missing-row error.
func IsNotFound(err error) bool {
	return err == sql.ErrNoRows
}
