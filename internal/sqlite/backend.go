// Package sqlite implements the SQLite storage backend for stu.
// A Backend owns a single database connection for the lifetime of the
// process; callers construct it with Open and release it with Close.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/stu/pkg/types"
)

// Backend is the storage handle for categories and projects.
type Backend struct {
	mu           sync.RWMutex
	path         string
	db           *sql.DB
	log          logrus.FieldLogger
	migrationLog logrus.FieldLogger
}

// Open opens (creating if needed) the database at path, enables foreign keys
// and runs EnsureSchema. The parent directory is created if missing.
func Open(path string, logger logrus.FieldLogger) (*Backend, error) {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	b := &Backend{
		path:         path,
		log:          logger.WithField("component", "storage"),
		migrationLog: logger.WithField("component", "migration"),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.openLocked(); err != nil {
		return nil, err
	}
	return b, nil
}

// openLocked opens the database file and ensures the schema.
// The caller must hold b.mu.
func (b *Backend) openLocked() error {
	if err := os.MkdirAll(filepath.Dir(b.path), 0o755); err != nil {
		return fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(b.path))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	// One shared connection; the pragmas in the DSN apply to it.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("connecting to database: %w", err)
	}

	if err := ensureSchema(context.Background(), db, b.migrationLog); err != nil {
		db.Close()
		return fmt.Errorf("ensuring schema: %w", err)
	}

	// The serving process may run under a different user than the CLI.
	if err := os.Chmod(b.path, 0o666); err != nil {
		b.log.WithError(err).Debug("could not relax database file mode")
	}

	b.db = db
	b.log.WithField("path", b.path).Debug("database opened")
	return nil
}

// dsn builds the modernc.org/sqlite data source name with per-connection
// pragmas.
func dsn(path string) string {
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// Path returns the database file path.
func (b *Backend) Path() string {
	return b.path
}

// Close releases the database connection. Close is idempotent.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	return err
}

// conn returns the open database or ErrStoreClosed.
func (b *Backend) conn() (*sql.DB, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.db == nil {
		return nil, types.ErrStoreClosed
	}
	return b.db, nil
}

// EnsureSchema creates missing tables and columns, guarantees the default
// category and reassigns orphaned projects to it. Safe to call repeatedly.
func (b *Backend) EnsureSchema(ctx context.Context) error {
	db, err := b.conn()
	if err != nil {
		return err
	}
	return ensureSchema(ctx, db, b.migrationLog)
}

// RotateAside closes the database, renames its file to
// <name>-<stamp><ext> and opens a fresh database in its place. It returns
// the rotated path, or "" when there was no file to rotate.
func (b *Backend) RotateAside(stamp string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return "", fmt.Errorf("closing database for rotation: %w", err)
		}
		b.db = nil
	}

	var rotated string
	if _, err := os.Stat(b.path); err == nil {
		ext := filepath.Ext(b.path)
		rotated = strings.TrimSuffix(b.path, ext) + "-" + stamp + ext
		if err := os.Rename(b.path, rotated); err != nil {
			// Reopen the original so the backend stays usable.
			if openErr := b.openLocked(); openErr != nil {
				b.log.WithError(openErr).Error("reopening database after failed rotation")
			}
			return "", fmt.Errorf("rotating database file: %w", err)
		}
		b.log.WithField("rotated", rotated).Info("database rotated aside")
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("stat database file: %w", err)
	}

	if err := b.openLocked(); err != nil {
		return rotated, err
	}
	return rotated, nil
}
