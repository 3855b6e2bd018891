package provenance

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"astanon/internal/core/errors"
	"astanon/internal/engine/anonymize"
	"astanon/internal/engine/tree"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5

	defaultBusyTimeout = 2 * time.Second
)

// Run is one anonymized file together with the renames needed to undo it.
// Runs are looked up by the digest of the anonymized output.
type Run struct {
	ID           string
	SourcePath   string
	SourceDigest string
	OutputDigest string
	CreatedAt    time.Time
	Entries      []anonymize.Entry
}

// Digest is the hex SHA-256 of content.
func Digest(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Store persists provenance tables in SQLite.
type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

func Open(path string) (*Store, error) {
	return OpenWithTimeout(path, defaultBusyTimeout)
}

// OpenWithTimeout opens the store, waiting up to busyTimeout for locks held
// by other connections.
func OpenWithTimeout(path string, busyTimeout time.Duration) (*Store, error) {
	if busyTimeout <= 0 {
		busyTimeout = defaultBusyTimeout
	}
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("provenance db path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("provenance db path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create provenance directory %q: %w", dir, err)
		}
	}

	// busy_timeout + WAL reduce lock conflicts while watch mode writes.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)",
		cleanPath, busyTimeout.Milliseconds())
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite provenance %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite provenance %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}
	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// SaveRun stores run and its entries, replacing any earlier run that produced
// the same output. Missing ids and timestamps are filled in.
func (s *Store) SaveRun(run Run) (Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(run.OutputDigest) == "" {
		return Run{}, errors.New(errors.CodeValidationError, "run output digest must not be empty")
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	err := s.withRetry("save run", func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM runs WHERE output_digest = ?`, run.OutputDigest); err != nil {
			_ = tx.Rollback()
			return err
		}
		if _, err := tx.Exec(
			`INSERT INTO runs (id, source_path, source_digest, output_digest, created_at_utc) VALUES (?, ?, ?, ?, ?)`,
			run.ID,
			run.SourcePath,
			run.SourceDigest,
			run.OutputDigest,
			run.CreatedAt.UTC().Format(time.RFC3339Nano),
		); err != nil {
			_ = tx.Rollback()
			return err
		}
		stmt, err := tx.Prepare(`INSERT INTO entries (run_id, node_id, new_label, old_label) VALUES (?, ?, ?, ?)`)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		defer stmt.Close()
		for _, e := range run.Entries {
			if _, err := stmt.Exec(run.ID, int(e.NodeID), e.New, e.Old); err != nil {
				_ = tx.Rollback()
				return err
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return Run{}, err
	}
	return run, nil
}

// LoadByOutputDigest returns the run whose anonymized output hashes to
// digest, entries ordered by node id.
func (s *Store) LoadByOutputDigest(digest string) (Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		run       Run
		createdAt string
	)
	err := s.withRetry("load run", func() error {
		return s.db.QueryRow(
			`SELECT id, source_path, source_digest, output_digest, created_at_utc FROM runs WHERE output_digest = ?`,
			digest,
		).Scan(&run.ID, &run.SourcePath, &run.SourceDigest, &run.OutputDigest, &createdAt)
	})
	if stderrors.Is(err, sql.ErrNoRows) {
		return Run{}, errors.Newf(errors.CodeNotFound, "no provenance recorded for output %s", digest)
	}
	if err != nil {
		return Run{}, err
	}
	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Run{}, fmt.Errorf("parse run timestamp %q: %w", createdAt, err)
	}
	run.CreatedAt = ts.UTC()

	var rows *sql.Rows
	err = s.withRetry("load entries", func() error {
		var qErr error
		rows, qErr = s.db.Query(
			`SELECT node_id, new_label, old_label FROM entries WHERE run_id = ? ORDER BY node_id ASC`,
			run.ID,
		)
		return qErr
	})
	if err != nil {
		return Run{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id int
			e  anonymize.Entry
		)
		if err := rows.Scan(&id, &e.New, &e.Old); err != nil {
			return Run{}, fmt.Errorf("scan entry row: %w", err)
		}
		e.NodeID = tree.NodeID(id)
		run.Entries = append(run.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return Run{}, fmt.Errorf("iterate entry rows: %w", err)
	}
	return run, nil
}

// CountRuns reports how many runs are stored.
func (s *Store) CountRuns() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	err := s.withRetry("count runs", func() error {
		return s.db.QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&n)
	})
	return n, err
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	if stderrors.Is(lastErr, sql.ErrNoRows) {
		return lastErr
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

// IsCorruptError reports whether err looks like a damaged database file.
func IsCorruptError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "malformed") || strings.Contains(msg, "not a database") || stderrors.Is(err, os.ErrInvalid)
}
