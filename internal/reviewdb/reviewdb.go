// Package reviewdb persists code reviews in a SQLite database in the state
// directory, so a review survives program restarts until its remaining-file
// set empties or the user ends it.
package reviewdb

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/gitgraph/pkg/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS code_reviews (
	repo            TEXT NOT NULL,
	id              TEXT NOT NULL,
	remaining_files TEXT NOT NULL,
	last_viewed     TEXT NOT NULL DEFAULT '',
	updated_at      INTEGER NOT NULL,
	PRIMARY KEY (repo, id)
);
`

// Store is a sqlite-backed code review store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the review database inside stateDir.
func Open(stateDir string) (*Store, error) {
	path := filepath.Join(stateDir, "reviews.db")
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open review database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating review schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Put inserts or replaces a review record.
func (s *Store) Put(repo string, review *model.CodeReview) error {
	if review == nil {
		return nil
	}
	_, err := s.db.Exec(
		`INSERT INTO code_reviews (repo, id, remaining_files, last_viewed, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(repo, id) DO UPDATE SET
			remaining_files = excluded.remaining_files,
			last_viewed     = excluded.last_viewed,
			updated_at      = excluded.updated_at`,
		repo, review.ID, encodeFiles(review.RemainingFiles), review.LastViewedFile, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("saving review %s: %w", review.ID, err)
	}
	return nil
}

// Get returns the review with the given id, or nil when none exists.
func (s *Store) Get(repo, id string) (*model.CodeReview, error) {
	row := s.db.QueryRow(
		`SELECT remaining_files, last_viewed FROM code_reviews WHERE repo = ? AND id = ?`,
		repo, id,
	)
	var files, lastViewed string
	if err := row.Scan(&files, &lastViewed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading review %s: %w", id, err)
	}
	return &model.CodeReview{
		ID:             id,
		RemainingFiles: decodeFiles(files),
		LastViewedFile: lastViewed,
	}, nil
}

// Delete removes a review record. Deleting a missing record is a no-op.
func (s *Store) Delete(repo, id string) error {
	if _, err := s.db.Exec(`DELETE FROM code_reviews WHERE repo = ? AND id = ?`, repo, id); err != nil {
		return fmt.Errorf("deleting review %s: %w", id, err)
	}
	return nil
}

// File paths never contain NUL, so a NUL-joined list round-trips exactly.
const fileSep = "\x00"

func encodeFiles(files []string) string {
	return strings.Join(files, fileSep)
}

func decodeFiles(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, fileSep)
}
