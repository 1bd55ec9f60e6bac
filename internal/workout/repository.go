package workout

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/myrjola/fitplan/internal/sqlite"
)

const (
	timestampFormat = "2006-01-02T15:04:05.000Z"
	dateFormat      = time.DateOnly
)

// baseRepository holds what every repository needs. Repositories read the user from the context with
// contexthelpers.AuthenticatedUserID so that one user can never read another user's rows.
type baseRepository struct {
	db     *sqlite.Database
	logger *slog.Logger
}

func newBaseRepository(db *sqlite.Database, logger *slog.Logger) baseRepository {
	return baseRepository{
		db:     db,
		logger: logger,
	}
}

// withTx runs fn in a read-write transaction and commits it if fn succeeds.
func (r baseRepository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.ReadWrite.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			r.logger.LogAttrs(ctx, slog.LevelError, "rollback transaction", slog.Any("error", rbErr))
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// repository groups the repositories the Service works with.
type repository struct {
	profiles  *sqliteProfileRepository
	exercises *sqliteExerciseRepository
	plans     *sqlitePlanRepository
	progress  *sqliteProgressRepository
}

func newRepository(db *sqlite.Database, logger *slog.Logger) *repository {
	return &repository{
		profiles:  newSQLiteProfileRepository(db, logger),
		exercises: newSQLiteExerciseRepository(db, logger),
		plans:     newSQLitePlanRepository(db, logger),
		progress:  newSQLiteProgressRepository(db, logger),
	}
}

func formatDate(date time.Time) string {
	return date.Format(dateFormat)
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampFormat)
}

// jsonList encodes values for json_each lookups.
func jsonList[T any](values []T) (string, error) {
	if values == nil {
		values = []T{}
	}
	out, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("encode list: %w", err)
	}
	return string(out), nil
}

// closeRows closes rows and joins a close failure into err.
func closeRows(rows *sql.Rows, err *error) {
	if closeErr := rows.Close(); closeErr != nil {
		*err = errors.Join(*err, fmt.Errorf("close rows: %w", closeErr))
	}
}

// rowsAffectedOrNotFound turns an update or delete that matched nothing into ErrNotFound.
func rowsAffectedOrNotFound(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// invalidReferenceError reports a foreign key violation as ErrInvalidRequest. Foreign keys are deferred, so the
// violation surfaces when the transaction commits.
func invalidReferenceError(err error, what string) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey {
		return fmt.Errorf("%w: unknown %s", ErrInvalidRequest, what)
	}
	return err
}
