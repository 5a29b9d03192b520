package artifactcache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store caches converted artifacts keyed by input checksum and output
// format. A hit bypasses the conversion queue entirely. This is a content
// cache, not job history: entries carry no job state.
type Store struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS artifacts (
	checksum     TEXT NOT NULL,
	format       TEXT NOT NULL,
	artifact     BLOB NOT NULL,
	size_bytes   INTEGER NOT NULL,
	created_at   TEXT NOT NULL,
	last_used_at TEXT NOT NULL,
	PRIMARY KEY (checksum, format)
);
CREATE INDEX IF NOT EXISTS idx_artifacts_last_used ON artifacts(last_used_at);
`

// Open initializes or connects to the cache database.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init cache schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Checksum returns the cache key for an input document.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Get returns the cached artifact for checksum/format if present, touching
// its last-used timestamp.
func (s *Store) Get(ctx context.Context, checksum, format string) ([]byte, bool, error) {
	if s == nil {
		return nil, false, nil
	}
	var artifact []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT artifact FROM artifacts WHERE checksum = ? AND format = ?",
		checksum, format,
	).Scan(&artifact)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query cache: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		"UPDATE artifacts SET last_used_at = ? WHERE checksum = ? AND format = ?",
		now(), checksum, format,
	); err != nil {
		return nil, false, fmt.Errorf("touch cache entry: %w", err)
	}
	return artifact, true, nil
}

// Put stores an artifact, replacing any previous entry for the same key.
func (s *Store) Put(ctx context.Context, checksum, format string, artifact []byte) error {
	if s == nil {
		return nil
	}
	ts := now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO artifacts (checksum, format, artifact, size_bytes, created_at, last_used_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(checksum, format) DO UPDATE SET
		   artifact = excluded.artifact,
		   size_bytes = excluded.size_bytes,
		   last_used_at = excluded.last_used_at`,
		checksum, format, artifact, len(artifact), ts, ts,
	)
	if err != nil {
		return fmt.Errorf("store cache entry: %w", err)
	}
	return nil
}

// Prune removes least-recently-used entries beyond maxEntries and reports
// how many were deleted.
func (s *Store) Prune(ctx context.Context, maxEntries int) (int, error) {
	if s == nil || maxEntries <= 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM artifacts WHERE (checksum, format) NOT IN (
		   SELECT checksum, format FROM artifacts ORDER BY last_used_at DESC LIMIT ?
		 )`,
		maxEntries,
	)
	if err != nil {
		return 0, fmt.Errorf("prune cache: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return int(affected), nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
