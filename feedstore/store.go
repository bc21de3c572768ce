// Package feedstore persists the registry of feeds monitored by the
// validator: which feeds exist, whether they are up, and whether their last
// validation passed.
package feedstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// schema bootstraps the registry table. is_valid is TEXT because legacy
// registries stored either a bare boolean or a JSON-wrapped document; see
// ValidFlag.
const schema = `
CREATE TABLE IF NOT EXISTS feeds (
	id               TEXT PRIMARY KEY,
	name             TEXT NOT NULL DEFAULT '',
	base_url         TEXT NOT NULL,
	schema_url       TEXT NOT NULL DEFAULT '',
	active           INTEGER NOT NULL DEFAULT 1,
	is_up            INTEGER NOT NULL DEFAULT 0,
	is_valid         TEXT NOT NULL DEFAULT 'false',
	last_error       TEXT NOT NULL DEFAULT '',
	response_time_ms INTEGER NOT NULL DEFAULT 0,
	error_count      INTEGER NOT NULL DEFAULT 0,
	checked_at       TIMESTAMP
);
`

// Feed is one registered feed.
type Feed struct {
	// ID is the registry key.
	ID string

	// Name is the human-readable feed name.
	Name string

	// BaseURL is the live API root.
	BaseURL string

	// SchemaURL optionally pins the schema to validate against; empty
	// means discovery.
	SchemaURL string

	// Active marks feeds that should be checked.
	Active bool

	// IsUp records whether the feed answered its last check.
	IsUp bool

	// Valid records the outcome of the last validation.
	Valid ValidFlag

	// LastError is the most recent failure description, empty when the
	// last check passed.
	LastError string

	// ResponseTimeMs is the most recent check's response time.
	ResponseTimeMs int64

	// ErrorCount is the number of consecutive failed checks.
	ErrorCount int

	// CheckedAt is when the feed was last checked; zero when never.
	CheckedAt time.Time
}

// StatusUpdate carries the outcome of one validation run for a feed.
type StatusUpdate struct {
	IsUp           bool
	IsValid        bool
	Error          string
	ResponseTimeMs int64
	ErrorCount     int
}

// Store is a SQLite-backed feed registry.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the registry database at path.
// Use ":memory:" for an ephemeral registry.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("feedstore: failed to open database: %w", err)
	}
	// An in-memory database exists per connection; pin the pool to one
	// connection so every query sees the same database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("feedstore: failed to bootstrap schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Register inserts or replaces a feed definition. Status fields are reset
// for new feeds and preserved for existing ones.
func (s *Store) Register(ctx context.Context, feed Feed) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO feeds (id, name, base_url, schema_url, active)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			base_url = excluded.base_url,
			schema_url = excluded.schema_url,
			active = excluded.active`,
		feed.ID, feed.Name, feed.BaseURL, feed.SchemaURL, boolToInt(feed.Active))
	if err != nil {
		return fmt.Errorf("feedstore: failed to register feed %s: %w", feed.ID, err)
	}
	return nil
}

// ListActive returns every active feed, ordered by ID.
func (s *Store) ListActive(ctx context.Context) ([]Feed, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, base_url, schema_url, active, is_up, is_valid,
		       last_error, response_time_ms, error_count, checked_at
		FROM feeds WHERE active = 1 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("feedstore: failed to list active feeds: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var feeds []Feed
	for rows.Next() {
		var (
			feed      Feed
			active    int
			isUp      int
			rawValid  string
			checkedAt sql.NullTime
		)
		if err := rows.Scan(&feed.ID, &feed.Name, &feed.BaseURL, &feed.SchemaURL,
			&active, &isUp, &rawValid, &feed.LastError,
			&feed.ResponseTimeMs, &feed.ErrorCount, &checkedAt); err != nil {
			return nil, fmt.Errorf("feedstore: failed to scan feed row: %w", err)
		}
		feed.Active = active != 0
		feed.IsUp = isUp != 0
		// Decode the legacy bool-or-wrapped column exactly once, here.
		feed.Valid = DecodeValidFlag(rawValid)
		if checkedAt.Valid {
			feed.CheckedAt = checkedAt.Time
		}
		feeds = append(feeds, feed)
	}
	return feeds, rows.Err()
}

// UpdateStatus records the outcome of one validation run for a feed.
// The is_valid column is always written in the bare boolean encoding;
// wrapped values only ever arrive from legacy rows.
func (s *Store) UpdateStatus(ctx context.Context, feedID string, update StatusUpdate) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE feeds SET
			is_up = ?,
			is_valid = ?,
			last_error = ?,
			response_time_ms = ?,
			error_count = ?,
			checked_at = ?
		WHERE id = ?`,
		boolToInt(update.IsUp),
		encodeValidFlag(update.IsValid),
		update.Error,
		update.ResponseTimeMs,
		update.ErrorCount,
		time.Now().UTC(),
		feedID)
	if err != nil {
		return fmt.Errorf("feedstore: failed to update feed %s: %w", feedID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("feedstore: failed to check update of feed %s: %w", feedID, err)
	}
	if affected == 0 {
		return fmt.Errorf("feedstore: feed %s not found", feedID)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
