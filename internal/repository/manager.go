// Package repository provides data access implementations
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/mattn/go-sqlite3"
	"github.com/pbnjay/memory"
)

const (
	driverName = "sqlite3_waterlevels"

	// DefaultPoolSize is the number of pooled connections kept per database
	DefaultPoolSize = 5

	busyTimeoutMillis = 30000
)

var registerOnce sync.Once

// registerDriver registers a go-sqlite3 driver whose connect hook applies the
// PRAGMA settings to every new connection the pool opens
func registerDriver() {
	registerOnce.Do(func() {
		pragmas := connectionPragmas(memory.TotalMemory())
		sql.Register(driverName, &sqlite3.SQLiteDriver{
			ConnectHook: func(conn *sqlite3.SQLiteConn) error {
				for _, pragma := range pragmas {
					if _, err := conn.Exec(pragma, nil); err != nil {
						return fmt.Errorf("failed to apply %q: %w", pragma, err)
					}
				}
				return nil
			},
		})
	})
}

// cacheSizeKiB scales the page cache to the RAM available on the machine.
// Negative values are interpreted by SQLite as KiB.
func cacheSizeKiB(totalBytes uint64) int {
	const gib = 1 << 30
	switch {
	case totalBytes == 0:
		return -16000
	case totalBytes < 4*gib:
		return -16000
	case totalBytes < 8*gib:
		return -32000
	case totalBytes < 16*gib:
		return -64000
	default:
		return -128000
	}
}

func connectionPragmas(totalBytes uint64) []string {
	return []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA temp_store=MEMORY",
		fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeoutMillis),
		fmt.Sprintf("PRAGMA cache_size=%d", cacheSizeKiB(totalBytes)),
	}
}

// Options tune how a database is opened
type Options struct {
	PoolSize int
	// Cloud marks the file as a local working copy of a Google Drive database
	Cloud bool
}

// Manager owns the connection pool of the current database and tracks
// whether it has changed since it was opened or last uploaded.
// The pool is capped at PoolSize open connections; once all are held,
// acquisition blocks until one is returned or the context ends.
type Manager struct {
	db       *sql.DB
	path     string
	cloud    bool
	modified atomic.Bool
}

// Open opens (creating if needed) the database at path and ensures the schema exists
func Open(path string, opts Options) (*Manager, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if opts.PoolSize <= 0 {
		opts.PoolSize = DefaultPoolSize
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	registerDriver()

	log.Printf("Opening database at %s (pool size %d)", path, opts.PoolSize)
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(opts.PoolSize)
	db.SetMaxIdleConns(opts.PoolSize)

	if err := Initialize(context.Background(), db); err != nil {
		db.Close()
		return nil, err
	}

	return &Manager{
		db:    db,
		path:  path,
		cloud: opts.Cloud,
	}, nil
}

// DB returns the pooled handle shared by all repositories
func (m *Manager) DB() *sql.DB {
	return m.db
}

// Conn takes a connection from the pool, creating one if none is idle.
// At capacity it blocks until a connection is released or ctx is done.
// Closing the returned connection hands it back to the pool.
func (m *Manager) Conn(ctx context.Context) (*sql.Conn, error) {
	conn, err := m.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	return conn, nil
}

// Path returns the file backing the current database
func (m *Manager) Path() string {
	return m.path
}

// IsCloud reports whether the database is a working copy of a Drive file
func (m *Manager) IsCloud() bool {
	return m.cloud
}

// Modified reports whether any write happened since open or the last ClearModified
func (m *Manager) Modified() bool {
	return m.modified.Load()
}

// ClearModified resets the modification flag, typically after an upload
func (m *Manager) ClearModified() {
	m.modified.Store(false)
}

func (m *Manager) markModified() {
	m.modified.Store(true)
}

// Checkpoint folds the WAL into the main database file so the file can be copied or uploaded
func (m *Manager) Checkpoint(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("failed to checkpoint database: %w", err)
	}
	return nil
}

// Close closes every pooled connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
