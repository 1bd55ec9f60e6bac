package sqlite

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"syscall"
	"time"
)

type schemaKind string

const (
	kindTable   schemaKind = "table"
	kindIndex   schemaKind = "index"
	kindTrigger schemaKind = "trigger"
)

// schemaObject is one entry of the union of the live and target sqlite_schema tables.
type schemaObject struct {
	name      string
	liveSQL   sql.NullString
	targetSQL sql.NullString
}

func (o schemaObject) deleted() bool { return o.liveSQL.Valid && !o.targetSQL.Valid }
func (o schemaObject) created() bool { return !o.liveSQL.Valid && o.targetSQL.Valid }

// changed ignores double quotes because ALTER TABLE RENAME quotes the table name in the stored SQL.
func (o schemaObject) changed() bool {
	return o.liveSQL.Valid && o.targetSQL.Valid &&
		strings.ReplaceAll(o.liveSQL.String, `"`, "") != strings.ReplaceAll(o.targetSQL.String, `"`, "")
}

// migrateTo makes the live schema match schemaDefinition declaratively.
//
// Tables missing from the target are dropped, new ones are created, and changed ones are rebuilt with the
// 12-step procedure from https://www.sqlite.org/lang_altertable.html#otheralter, keeping the columns both versions
// share. Indexes and triggers are synchronised afterwards.
func (db *Database) migrateTo(ctx context.Context, schemaDefinition string) error {
	start := time.Now()

	detach, err := db.attachTargetSchema(ctx, schemaDefinition)
	if err != nil {
		return fmt.Errorf("attach target schema: %w", err)
	}
	defer detach()

	if _, err = db.ReadWrite.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		return fmt.Errorf("disable foreign keys: %w", err)
	}
	defer db.enableForeignKeys(ctx)

	var tx *sql.Tx
	if tx, err = db.ReadWrite.BeginTx(ctx, nil); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to roll back migration",
				slog.Any("error", fmt.Errorf("rollback: %w", rbErr)))
		}
	}()

	if err = db.migrateTables(ctx, tx); err != nil {
		return fmt.Errorf("migrate tables: %w", err)
	}
	for _, kind := range []schemaKind{kindTrigger, kindIndex} {
		if err = db.migrateObjects(ctx, tx, kind); err != nil {
			return fmt.Errorf("migrate %ss: %w", kind, err)
		}
	}
	if _, err = tx.ExecContext(ctx, "PRAGMA foreign_key_check"); err != nil {
		return fmt.Errorf("foreign key check: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	db.logger.LogAttrs(ctx, slog.LevelInfo, "migrated database", slog.Duration("duration", time.Since(start)))
	return nil
}

// enableForeignKeys restores foreign key enforcement. Running without it risks silent corruption, so failure
// shuts the process down.
func (db *Database) enableForeignKeys(ctx context.Context) {
	if _, err := db.ReadWrite.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.logger.LogAttrs(ctx, slog.LevelError, "exit to avoid data corruption",
			slog.Any("error", fmt.Errorf("enable foreign keys: %w", err)))
		if err = syscall.Kill(syscall.Getpid(), syscall.SIGINT); err != nil {
			os.Exit(1)
		}
	}
}

// attachTargetSchema creates schemaDefinition in a throwaway in-memory database attached as schemaTarget.
func (db *Database) attachTargetSchema(ctx context.Context, schemaDefinition string) (func(), error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", rand.Text())
	target, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	// The shared-cache database lives as long as a connection is open, i.e. until it has been attached.
	defer func() {
		if closeErr := target.Close(); closeErr != nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to close target schema database",
				slog.Any("error", closeErr))
		}
	}()
	if _, err = target.ExecContext(ctx, schemaDefinition); err != nil {
		return nil, fmt.Errorf("create target schema: %w", err)
	}
	if _, err = db.ReadWrite.ExecContext(ctx, "ATTACH DATABASE ? AS schemaTarget", dsn); err != nil {
		return nil, fmt.Errorf("attach: %w", err)
	}
	return func() {
		if _, detachErr := db.ReadWrite.ExecContext(ctx, "DETACH DATABASE schemaTarget"); detachErr != nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to detach target schema database",
				slog.Any("error", detachErr))
		}
	}, nil
}

// diffSchema lists every object of kind in either the live or the target schema.
func (db *Database) diffSchema(ctx context.Context, tx *sql.Tx, kind schemaKind) (_ []schemaObject, err error) {
	rows, err := tx.QueryContext(ctx, `SELECT name, MAX(live_sql), MAX(target_sql)
FROM (SELECT name, sql AS live_sql, NULL AS target_sql FROM main.sqlite_schema WHERE type = :kind
      UNION ALL
      SELECT name, NULL, sql FROM schemaTarget.sqlite_schema WHERE type = :kind)
WHERE name NOT LIKE 'sqlite_%'
  AND name NOT LIKE '_litestream_%'
GROUP BY name
ORDER BY name`, sql.Named("kind", string(kind)))
	if err != nil {
		return nil, fmt.Errorf("query schema: %w", err)
	}
	defer func() {
		err = errors.Join(err, rows.Close())
	}()

	var objects []schemaObject
	for rows.Next() {
		var o schemaObject
		if err = rows.Scan(&o.name, &o.liveSQL, &o.targetSQL); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		objects = append(objects, o)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return objects, nil
}

func (db *Database) exec(ctx context.Context, tx *sql.Tx, msg string, query string, attrs ...slog.Attr) error {
	db.logger.LogAttrs(ctx, slog.LevelInfo, msg, append(attrs, slog.String("query", query))...)
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("%s: %w", msg, err)
	}
	return nil
}

func (db *Database) migrateTables(ctx context.Context, tx *sql.Tx) error {
	tables, err := db.diffSchema(ctx, tx, kindTable)
	if err != nil {
		return err
	}
	for _, table := range tables {
		switch {
		case table.deleted():
			err = db.exec(ctx, tx, "dropping table", fmt.Sprintf("DROP TABLE %s", table.name))
		case table.created():
			err = db.exec(ctx, tx, "creating table", table.targetSQL.String)
		case table.changed():
			err = db.rebuildTable(ctx, tx, table)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// rebuildTable creates the new definition under a temporary name, copies the shared columns, drops the old table
// and renames the new one into place.
func (db *Database) rebuildTable(ctx context.Context, tx *sql.Tx, table schemaObject) error {
	attrs := []slog.Attr{
		slog.String("table", table.name),
		slog.String("live_sql", table.liveSQL.String),
	}
	tempName := table.name + "_migration_temp"
	createSQL := strings.Replace(table.targetSQL.String, table.name, tempName, 1)
	if err := db.exec(ctx, tx, "creating rebuilt table", createSQL, attrs...); err != nil {
		return err
	}

	columns, err := db.sharedColumns(ctx, tx, table.name)
	if err != nil {
		return fmt.Errorf("shared columns of %s: %w", table.name, err)
	}
	if len(columns) > 0 {
		cols := strings.Join(columns, ", ")
		copySQL := fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s", tempName, cols, cols, table.name)
		if err = db.exec(ctx, tx, "copying rows", copySQL, attrs...); err != nil {
			return err
		}
	}
	if err = db.exec(ctx, tx, "dropping old table", fmt.Sprintf("DROP TABLE %s", table.name), attrs...); err != nil {
		return err
	}
	return db.exec(ctx, tx, "renaming rebuilt table",
		fmt.Sprintf("ALTER TABLE %s RENAME TO %s", tempName, table.name), attrs...)
}

// sharedColumns returns the quoted column names present in both the live and the target version of table.
func (db *Database) sharedColumns(ctx context.Context, tx *sql.Tx, table string) (_ []string, err error) {
	rows, err := tx.QueryContext(ctx, `SELECT '"' || target.name || '"'
FROM PRAGMA_TABLE_INFO(:table) AS live
JOIN PRAGMA_TABLE_INFO(:table, 'schemaTarget') AS target ON target.name = live.name`, sql.Named("table", table))
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer func() {
		err = errors.Join(err, rows.Close())
	}()
	var columns []string
	for rows.Next() {
		var column string
		if err = rows.Scan(&column); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		columns = append(columns, column)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return columns, nil
}

// migrateObjects synchronises indexes or triggers. It runs after the tables since rebuilding a table drops its
// indexes and triggers.
func (db *Database) migrateObjects(ctx context.Context, tx *sql.Tx, kind schemaKind) error {
	objects, err := db.diffSchema(ctx, tx, kind)
	if err != nil {
		return err
	}
	drop := func(name string) string {
		return fmt.Sprintf("DROP %s IF EXISTS %s", strings.ToUpper(string(kind)), name)
	}
	for _, o := range objects {
		attr := slog.String("kind", string(kind))
		switch {
		case o.deleted():
			err = db.exec(ctx, tx, "dropping", drop(o.name), attr)
		case o.created():
			err = db.exec(ctx, tx, "creating", o.targetSQL.String, attr)
		case o.changed():
			if err = db.exec(ctx, tx, "dropping changed", drop(o.name), attr); err == nil {
				err = db.exec(ctx, tx, "creating changed", o.targetSQL.String, attr)
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}
