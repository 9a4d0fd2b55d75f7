// Package sqlite implements store.InterviewStore on SQLite.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/jxucoder/mockmate/pkg/model"
	"github.com/jxucoder/mockmate/pkg/store"
)

// Store manages interview persistence in SQLite.
type Store struct {
	db *sql.DB
}

// New opens (or creates) a SQLite database at the given path.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent read/write performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS interviews (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL,
			role       TEXT NOT NULL,
			history    TEXT NOT NULL DEFAULT '[]',
			turn_count INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT (datetime('now'))
		);

		CREATE INDEX IF NOT EXISTS idx_interviews_user_id
			ON interviews(user_id, created_at);
	`)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveInterview inserts an interview, replacing any previous save with the same ID.
func (s *Store) SaveInterview(iv *model.Interview) error {
	history, err := json.Marshal(iv.History)
	if err != nil {
		return fmt.Errorf("encoding history: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO interviews (id, user_id, role, history, turn_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			history = excluded.history,
			turn_count = excluded.turn_count`,
		iv.ID, iv.UserID, iv.Role, string(history), len(iv.History), iv.CreatedAt,
	)
	return err
}

// GetInterview retrieves an interview by ID.
func (s *Store) GetInterview(id string) (*model.Interview, error) {
	row := s.db.QueryRow(
		`SELECT id, user_id, role, history, created_at
		 FROM interviews WHERE id = ?`, id,
	)
	iv, err := scanInterview(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return iv, err
}

// ListInterviews returns a user's interviews ordered by creation time (newest first).
func (s *Store) ListInterviews(userID string) ([]*model.Interview, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, role, history, created_at
		 FROM interviews WHERE user_id = ?
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Interview
	for rows.Next() {
		iv, err := scanInterview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, iv)
	}
	return out, rows.Err()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanInterview(row scannable) (*model.Interview, error) {
	iv := &model.Interview{}
	var history string
	if err := row.Scan(&iv.ID, &iv.UserID, &iv.Role, &history, &iv.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(history), &iv.History); err != nil {
		return nil, fmt.Errorf("decoding history of %s: %w", iv.ID, err)
	}
	return iv, nil
}

var _ store.InterviewStore = (*Store)(nil)
