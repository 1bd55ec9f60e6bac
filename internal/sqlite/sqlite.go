package sqlite

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"

	_ "embed"
)

//go:embed schema.sql
var schemaDefinition string

// fixtures seeds the exercise catalog. Every statement is idempotent.
//
//go:embed fixtures.sql
var fixtures string

const (
	maxReadConns    = 10
	connMaxLifetime = time.Hour
)

// Database holds a single-connection writer and a pool of read-only connections to the same SQLite database.
//
// Splitting readers from the writer follows https://github.com/mattn/go-sqlite3/issues/1179#issuecomment-1638083995
type Database struct {
	ReadWrite *sql.DB
	ReadOnly  *sql.DB
	logger    *slog.Logger

	stopOptimizer context.CancelFunc
	optimizerDone chan struct{}
}

// NewDatabase connects to url, migrates it to the embedded schema and seeds the exercise catalog.
//
// Use ":memory:" for a private in-memory database, which is what the tests do.
func NewDatabase(ctx context.Context, url string, logger *slog.Logger) (*Database, error) {
	db, err := connect(ctx, url, logger)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err = db.migrateTo(ctx, schemaDefinition); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if _, err = db.ReadWrite.ExecContext(ctx, fixtures); err != nil {
		return nil, fmt.Errorf("apply fixtures: %w", err)
	}

	db.startOptimizer(ctx)

	return db, nil
}

//nolint:gochecknoglobals // sql.Register panics when called twice with the same name.
var registerDriverOnce sync.Once

const optimizedDriver = "sqlite3optimized"

func registerOptimizedDriver() {
	sql.Register(optimizedDriver, &sqlite3.SQLiteDriver{
		Extensions: nil,
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			pragmas := []string{
				// Temporary tables and indices in memory.
				"PRAGMA temp_store = memory",
				// Memory-mapped I/O saves read syscalls.
				"PRAGMA mmap_size = 30000000000",
				// Checkpoints are left to Litestream, see
				// https://litestream.io/tips/#disable-autocheckpoints-for-high-write-load-servers
				"PRAGMA wal_autocheckpoint = 0",
			}
			if _, err := conn.Exec(strings.Join(pragmas, ";"), nil); err != nil {
				return fmt.Errorf("exec connection pragmas: %w", err)
			}
			return nil
		},
	})
}

// dsn builds the connection string. Parameters without an underscore are SQLite URI parameters
// (https://www.sqlite.org/uri.html) and the rest are driver options
// (https://pkg.go.dev/github.com/mattn/go-sqlite3#SQLiteDriver.Open).
func dsn(path string, inMemory bool, mode string, extra ...string) string {
	params := append([]string{
		"mode=" + mode,
		"_loc=auto",
		"_defer_foreign_keys=1",
		"_journal_mode=wal",
		"_busy_timeout=5000",
		"_synchronous=normal",
		"_foreign_keys=on",
	}, extra...)
	if inMemory {
		// Shared cache lets the reader and writer pools see the same in-memory database.
		params[0] = "mode=memory"
		params = append(params, "cache=shared")
	}
	return fmt.Sprintf("file:%s?%s", path, strings.Join(params, "&"))
}

func connect(ctx context.Context, url string, logger *slog.Logger) (*Database, error) {
	inMemory := strings.Contains(url, ":memory:")
	if inMemory {
		// A random name keeps parallel tests from sharing a database.
		url = rand.Text()
	}
	readWriteDSN := dsn(url, inMemory, "rwc", "_txlock=immediate")
	readOnlyDSN := dsn(url, inMemory, "ro", "_txlock=deferred", "_query_only=true")

	registerDriverOnce.Do(registerOptimizedDriver)

	readWrite, err := sql.Open(optimizedDriver, readWriteDSN)
	if err != nil {
		return nil, fmt.Errorf("open read-write database: %w", err)
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "opened database", slog.String("sqlDsn", readWriteDSN))
	readWrite.SetMaxOpenConns(1)
	readWrite.SetMaxIdleConns(1)
	readWrite.SetConnMaxLifetime(connMaxLifetime)
	readWrite.SetConnMaxIdleTime(connMaxLifetime)

	// sql.Open is lazy. Pinging creates the database file before the read-only pool opens it.
	if err = readWrite.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping read-write database: %w", err)
	}

	readOnly, err := sql.Open(optimizedDriver, readOnlyDSN)
	if err != nil {
		return nil, fmt.Errorf("open read-only database: %w", err)
	}
	readOnly.SetMaxOpenConns(maxReadConns)
	readOnly.SetMaxIdleConns(maxReadConns)
	readOnly.SetConnMaxLifetime(connMaxLifetime)
	readOnly.SetConnMaxIdleTime(connMaxLifetime)

	return &Database{
		ReadWrite:     readWrite,
		ReadOnly:      readOnly,
		logger:        logger,
		stopOptimizer: nil,
		optimizerDone: nil,
	}, nil
}

// Close stops the background optimizer and closes both connection pools.
func (db *Database) Close() error {
	db.stopOptimizerAndWait()
	return errors.Join(db.ReadOnly.Close(), db.ReadWrite.Close())
}
