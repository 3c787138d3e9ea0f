package cache

import (
	"database/sql"
	"fmt"
	"time"
)

// Meta keys used by the engine and the CLI.
const (
	MetaLastRefresh = "last_refresh"
	MetaOutstanding = "outstanding"
)

const createMetaTableSQL = `
CREATE TABLE IF NOT EXISTS meta (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// GetMeta returns the value stored under key.
func (db *DB) GetMeta(key string) (string, bool, error) {
	var value string
	err := db.conn.QueryRow(`SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read meta %s: %w", key, err)
	}
	return value, true, nil
}

// PutMeta stores value under key.
func (db *DB) PutMeta(key, value string) error {
	if _, err := db.conn.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`, key, value); err != nil {
		return fmt.Errorf("failed to write meta %s: %w", key, err)
	}
	return nil
}

// LastRefresh returns when the last refresh started, zero if none did.
func (db *DB) LastRefresh() (time.Time, error) {
	value, ok, err := db.GetMeta(MetaLastRefresh)
	if err != nil || !ok {
		return time.Time{}, err
	}
	return parseTime(sql.NullString{String: value, Valid: true})
}

// SetLastRefresh records the start of a refresh.
func (db *DB) SetLastRefresh(t time.Time) error {
	return db.PutMeta(MetaLastRefresh, formatTime(t).String)
}

// LastRefresh returns when the last refresh started, zero if none did.
func (m *Memory) LastRefresh() (time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastRefresh, nil
}

// SetLastRefresh records the start of a refresh.
func (m *Memory) SetLastRefresh(t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastRefresh = t
	return nil
}
