package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// DB is a Store persisted in SQLite.
type DB struct {
	path string
	conn *sql.DB
}

// createTableSQL defines the schema for the issue cache.
const createTableSQL = `
CREATE TABLE IF NOT EXISTS issue_cache (
    cache_key TEXT PRIMARY KEY,
    number INTEGER NOT NULL,
    title TEXT NOT NULL,
    body TEXT,
    author TEXT,
    state TEXT,
    labels TEXT,  -- JSON array of label names
    created_at TEXT,
    last_updated TEXT,
    closed_at TEXT,
    cache_time TEXT,
    comments INTEGER DEFAULT 0,
    milestone TEXT, -- JSON object, NULL when the issue has none
    notified_for_reply INTEGER DEFAULT 0,
    last_comment_response TEXT
);
`

// InitDB creates or opens a SQLite database at the given path and initializes the schema.
func InitDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite has a single writer; one connection avoids "database is locked".
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	if _, err := conn.Exec(createTableSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create issue_cache table: %w", err)
	}
	if _, err := conn.Exec(createMetaTableSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create meta table: %w", err)
	}

	return &DB{
		path: path,
		conn: conn,
	}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// Put inserts or replaces the entry stored under key.
func (db *DB) Put(key string, entry Entry) error {
	if key != entry.Key() {
		return ErrKeyMismatch
	}

	labels := entry.Labels
	if labels == nil {
		labels = []string{}
	}
	labelsJSON, err := json.Marshal(labels)
	if err != nil {
		return fmt.Errorf("failed to marshal labels: %w", err)
	}

	var milestone sql.NullString
	if entry.Milestone != nil {
		data, err := json.Marshal(entry.Milestone)
		if err != nil {
			return fmt.Errorf("failed to marshal milestone: %w", err)
		}
		milestone = sql.NullString{String: string(data), Valid: true}
	}

	notified := 0
	if entry.NotifiedForReply {
		notified = 1
	}

	query := `
		INSERT OR REPLACE INTO issue_cache (
			cache_key, number, title, body, author, state, labels,
			created_at, last_updated, closed_at, cache_time, comments,
			milestone, notified_for_reply, last_comment_response
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = db.conn.Exec(query,
		key,
		entry.Number,
		entry.Title,
		sql.NullString{String: entry.Body, Valid: entry.Body != ""},
		sql.NullString{String: entry.User, Valid: entry.User != ""},
		sql.NullString{String: string(entry.State), Valid: entry.State != ""},
		string(labelsJSON),
		formatTime(entry.CreatedTime),
		formatTime(entry.LastUpdated),
		formatTime(entry.ClosedTime),
		formatTime(entry.CacheTime),
		entry.Comments,
		milestone,
		notified,
		formatTime(entry.LastCommentResponse),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert cache entry %s: %w", key, err)
	}

	return nil
}

// Get retrieves the entry stored under key.
func (db *DB) Get(key string) (Entry, bool, error) {
	query := `
		SELECT number, title, body, author, state, labels,
		       created_at, last_updated, closed_at, cache_time, comments,
		       milestone, notified_for_reply, last_comment_response
		FROM issue_cache
		WHERE cache_key = ?
	`

	entry, err := scanEntryFrom(db.conn.QueryRow(query, key))
	if err == sql.ErrNoRows {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	return entry, true, nil
}

// All retrieves every cached entry keyed by issue number.
func (db *DB) All() (map[string]Entry, error) {
	query := `
		SELECT number, title, body, author, state, labels,
		       created_at, last_updated, closed_at, cache_time, comments,
		       milestone, notified_for_reply, last_comment_response
		FROM issue_cache
		ORDER BY number ASC
	`

	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query cache entries: %w", err)
	}
	defer rows.Close()

	entries := make(map[string]Entry)
	for rows.Next() {
		entry, err := scanEntryFrom(rows)
		if err != nil {
			return nil, err
		}
		entries[entry.Key()] = entry
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return entries, nil
}

// scanner is an interface that both *sql.Row and *sql.Rows implement.
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanEntryFrom scans a row into an Entry. sql.ErrNoRows is returned unwrapped.
func scanEntryFrom(s scanner) (Entry, error) {
	var entry Entry
	var body, user, state, labels, createdAt, lastUpdated, closedAt, cacheTime, milestone, lastResponse sql.NullString
	var notified int

	err := s.Scan(
		&entry.Number,
		&entry.Title,
		&body,
		&user,
		&state,
		&labels,
		&createdAt,
		&lastUpdated,
		&closedAt,
		&cacheTime,
		&entry.Comments,
		&milestone,
		&notified,
		&lastResponse,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("failed to scan cache entry: %w", err)
	}

	entry.Body = body.String
	entry.User = user.String
	entry.State = State(state.String)
	entry.NotifiedForReply = notified == 1

	for _, f := range []struct {
		dst *time.Time
		src sql.NullString
	}{
		{&entry.CreatedTime, createdAt},
		{&entry.LastUpdated, lastUpdated},
		{&entry.ClosedTime, closedAt},
		{&entry.CacheTime, cacheTime},
		{&entry.LastCommentResponse, lastResponse},
	} {
		t, err := parseTime(f.src)
		if err != nil {
			return Entry{}, err
		}
		*f.dst = t
	}

	if labels.Valid && labels.String != "" {
		if err := json.Unmarshal([]byte(labels.String), &entry.Labels); err != nil {
			return Entry{}, fmt.Errorf("failed to unmarshal labels: %w", err)
		}
	}

	if milestone.Valid && milestone.String != "" {
		var m Milestone
		if err := json.Unmarshal([]byte(milestone.String), &m); err != nil {
			return Entry{}, fmt.Errorf("failed to unmarshal milestone: %w", err)
		}
		entry.Milestone = &m
	}

	return entry, nil
}

func formatTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339Nano), Valid: true}
}

func parseTime(s sql.NullString) (time.Time, error) {
	if !s.Valid || s.String == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", s.String, err)
	}
	return t, nil
}
