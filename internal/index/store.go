package index

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jdefrancesco/imgDitto/internal/dsklog"
	"github.com/jdefrancesco/imgDitto/internal/match"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

var (
	// ErrLocked means another run holds the index.
	ErrLocked = errors.New("index is locked by another run")
	// ErrInvalidRecord rejects records with an empty path or hash, or a negative size.
	ErrInvalidRecord = errors.New("invalid fingerprint record")
	ErrClosed        = errors.New("index is closed")
)

// Record is one fingerprinted file.
type Record struct {
	Path string
	Hash string
	Size int64
}

// Store is the SQLite backed fingerprint index.
type Store struct {
	// mu guards db. Queries hold it shared so Close waits for them.
	mu      sync.RWMutex
	db      *sql.DB
	path    string
	lock    *flock.Flock
	tempDir string
}

// column maps a fingerprint key onto its column. Lookup only ever
// interpolates values from this table.
var column = map[match.Key]string{
	match.ContentHash: "hash",
	match.SizeBytes:   "filesize",
}

// Open creates or opens the index at path.
func Open(ctx context.Context, path string) (*Store, error) {
	s := &Store{path: path}

	if strings.TrimSpace(path) == "" {
		dir, err := os.MkdirTemp("", "imgDitto-index-")
		if err != nil {
			return nil, fmt.Errorf("create temp index dir: %w", err)
		}
		s.tempDir = dir
		s.path = filepath.Join(dir, "index.db")
	} else if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}

	s.lock = flock.New(s.path + ".lock")
	locked, err := s.lock.TryLock()
	if err != nil {
		s.cleanup()
		return nil, fmt.Errorf("lock index %s: %w", s.path, err)
	}
	if !locked {
		s.cleanup()
		return nil, fmt.Errorf("%w: %s", ErrLocked, s.path)
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		s.cleanup()
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	s.db = db

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = s.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	dsklog.Dlogger.Debugf("Opened fingerprint index %s", s.path)
	return s, nil
}

// OpenExisting opens an index a previous run populated. Unlike Open it
// never creates one, so a mistyped path fails instead of matching against
// an empty database.
func OpenExisting(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("open index: %w", fs.ErrNotExist)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("open index %s: is a directory", path)
	}
	return Open(ctx, path)
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close closes the database, releases the lock and removes throwaway
// indexes. It waits for queries already running; later calls get
// ErrClosed.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var err error
	if s.db != nil {
		err = s.db.Close()
		s.db = nil
	}
	s.cleanup()
	return err
}

func (s *Store) cleanup() {
	if s.lock != nil {
		if err := s.lock.Unlock(); err != nil {
			dsklog.Dlogger.Debugf("Unlock %s: %v", s.lock.Path(), err)
		}
		if s.tempDir == "" {
			_ = os.Remove(s.lock.Path())
		}
		s.lock = nil
	}
	if s.tempDir != "" {
		if err := os.RemoveAll(s.tempDir); err != nil {
			dsklog.Dlogger.Warnf("Could not remove temp index %s: %v", s.tempDir, err)
		}
		s.tempDir = ""
	}
}

// Add inserts or replaces records in a single transaction.
func (s *Store) Add(ctx context.Context, records ...Record) error {
	for _, r := range records {
		if r.Path == "" || r.Hash == "" || r.Size < 0 {
			return fmt.Errorf("%w: %+v", ErrInvalidRecord, r)
		}
	}
	if len(records) == 0 {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return ErrClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO files (filepath, hash, filesize) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.Path, strings.ToLower(r.Hash), r.Size); err != nil {
			return fmt.Errorf("insert %s: %w", r.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert tx: %w", err)
	}
	return nil
}

// Lookup returns every other indexed path whose value under key equals
// that of path, sorted. An unindexed path has no matches.
func (s *Store) Lookup(ctx context.Context, path string, key match.Key) ([]string, error) {
	col, ok := column[key]
	if !ok {
		return nil, fmt.Errorf("%w: %v", match.ErrUnknownKey, key)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, ErrClosed
	}

	query := `SELECT b.filepath FROM files a
		JOIN files b ON a.` + col + ` = b.` + col + `
		WHERE a.filepath = ? AND b.filepath <> ?
		ORDER BY b.filepath`

	rows, err := s.db.QueryContext(ctx, query, path, path)
	if err != nil {
		return nil, fmt.Errorf("query %s by %s: %w", path, key, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// Get fetches the record stored for path.
func (s *Store) Get(ctx context.Context, path string) (Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return Record{}, false, ErrClosed
	}
	var r Record
	err := s.db.QueryRowContext(ctx,
		`SELECT filepath, hash, filesize FROM files WHERE filepath = ?`, path,
	).Scan(&r.Path, &r.Hash, &r.Size)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("get %s: %w", path, err)
	}
	return r, true, nil
}

// Count returns the number of indexed files.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return 0, ErrClosed
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM files`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count files: %w", err)
	}
	return n, nil
}
