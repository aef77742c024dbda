package manifest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store persists manifest entries in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Entry describes one derived file.
type Entry struct {
	OutputPath string    `json:"output_path"`
	URLPath    string    `json:"url_path"`
	SourcePath string    `json:"source_path"`
	Digest     string    `json:"digest"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	SizeBytes  int64     `json:"size_bytes"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at"`
}

// Stats summarizes the manifest contents.
type Stats struct {
	Entries    int   `json:"entries"`
	Sources    int   `json:"sources"`
	TotalBytes int64 `json:"total_bytes"`
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

const entryColumns = `output_path, url_path, source_path, digest, width, height, size_bytes, created_at, last_used_at`

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// Open initializes or connects to the manifest database at path.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("manifest: empty database path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("manifest: create directory: %w", err)
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

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts or refreshes the entry for e.OutputPath. CreatedAt is kept
// from the first insert.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if strings.TrimSpace(e.OutputPath) == "" {
		return errors.New("manifest: entry has no output path")
	}
	now := time.Now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	if e.LastUsedAt.IsZero() {
		e.LastUsedAt = now
	}
	_, err := s.exec(ctx,
		`INSERT INTO derived_images (`+entryColumns+`)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(output_path) DO UPDATE SET
            url_path = excluded.url_path,
            source_path = excluded.source_path,
            digest = excluded.digest,
            width = excluded.width,
            height = excluded.height,
            size_bytes = excluded.size_bytes,
            last_used_at = excluded.last_used_at`,
		e.OutputPath,
		e.URLPath,
		e.SourcePath,
		e.Digest,
		e.Width,
		e.Height,
		e.SizeBytes,
		e.CreatedAt.UTC().Format(time.RFC3339Nano),
		e.LastUsedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record derived image: %w", err)
	}
	return nil
}

// Touch updates last_used_at for an existing entry. It reports whether a row
// was found.
func (s *Store) Touch(ctx context.Context, outputPath string, at time.Time) (bool, error) {
	res, err := s.exec(ctx,
		`UPDATE derived_images SET last_used_at = ? WHERE output_path = ?`,
		at.UTC().Format(time.RFC3339Nano),
		outputPath,
	)
	if err != nil {
		return false, fmt.Errorf("touch derived image: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("touch derived image: %w", err)
	}
	return n > 0, nil
}

// Get fetches the entry for outputPath. It returns nil when absent.
func (s *Store) Get(ctx context.Context, outputPath string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM derived_images WHERE output_path = ?`, outputPath)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get derived image: %w", err)
	}
	return entry, nil
}

// List returns all entries ordered by source path then output path.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+entryColumns+` FROM derived_images ORDER BY source_path, output_path`)
	if err != nil {
		return nil, fmt.Errorf("list derived images: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan derived image: %w", err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate derived images: %w", err)
	}
	return entries, nil
}

// Delete removes the entry for outputPath.
func (s *Store) Delete(ctx context.Context, outputPath string) error {
	if _, err := s.exec(ctx, `DELETE FROM derived_images WHERE output_path = ?`, outputPath); err != nil {
		return fmt.Errorf("delete derived image: %w", err)
	}
	return nil
}

// Stats aggregates entry counts and recorded sizes.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1), COUNT(DISTINCT source_path), COALESCE(SUM(size_bytes), 0) FROM derived_images`)
	if err := row.Scan(&stats.Entries, &stats.Sources, &stats.TotalBytes); err != nil {
		return Stats{}, fmt.Errorf("manifest stats: %w", err)
	}
	return stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	var (
		e                  Entry
		createdAt, usedAt string
	)
	if err := row.Scan(
		&e.OutputPath,
		&e.URLPath,
		&e.SourcePath,
		&e.Digest,
		&e.Width,
		&e.Height,
		&e.SizeBytes,
		&createdAt,
		&usedAt,
	); err != nil {
		return nil, err
	}
	e.CreatedAt = parseTime(createdAt)
	e.LastUsedAt = parseTime(usedAt)
	return &e, nil
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
