package sqlite

import (
	"log/slog"
	"testing"

	"github.com/myrjola/fitplan/internal/testhelpers"
)

func newTestDatabase(t *testing.T) (*Database, *slog.Logger) {
	t.Helper()
	logger := testhelpers.NewTestLogger(t)
	db, err := connect(t.Context(), ":memory:", logger)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	t.Cleanup(func() {
		if err = db.Close(); err != nil {
			t.Errorf("Failed to close database: %v", err)
		}
	})
	return db, logger
}

func TestDatabase_migrate(t *testing.T) {
	t.Parallel()
	const (
		tableWithTrigger = `CREATE TABLE test ( id   INTEGER PRIMARY KEY, name TEXT );
                 CREATE TRIGGER test_trigger AFTER INSERT ON test BEGIN SELECT RAISE ( FAIL, 'fail' ); END;`
		tableWithIndex = "CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT); CREATE INDEX test_name ON test (name)"
	)
	tests := []struct {
		name              string
		schemaDefinitions []string
		testQueries       []string
		wantErr           bool
	}{
		{
			name:              "empty schema",
			schemaDefinitions: []string{""},
			testQueries:       []string{"SELECT * FROM sqlite_schema"},
		},
		{
			name:              "create table",
			schemaDefinitions: []string{"CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT)"},
			testQueries: []string{
				"INSERT INTO test (name) VALUES ('test')",
				"SELECT * FROM test",
			},
		},
		{
			name: "drop table",
			schemaDefinitions: []string{
				"CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT)",
				"",
			},
			testQueries: []string{"INSERT INTO test (name) VALUES ('test')"},
			wantErr:     true,
		},
		{
			name: "add column",
			schemaDefinitions: []string{
				"CREATE TABLE test (id INTEGER PRIMARY KEY)",
				"CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT)",
			},
			testQueries: []string{"INSERT INTO test (name) VALUES ('test')"},
		},
		{
			name: "remove column",
			schemaDefinitions: []string{
				"CREATE TABLE test (id INTEGER PRIMARY KEY)",
				"CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT)",
				"CREATE TABLE test (id INTEGER PRIMARY KEY)",
			},
			testQueries: []string{"INSERT INTO test (name) VALUES ('test')"},
			wantErr:     true,
		},
		{
			name:              "create index",
			schemaDefinitions: []string{tableWithIndex},
			testQueries:       []string{"DROP INDEX test_name"},
		},
		{
			name: "drop index",
			schemaDefinitions: []string{
				tableWithIndex,
				"CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT)",
			},
			testQueries: []string{"DROP INDEX test_name"},
			wantErr:     true,
		},
		{
			name: "update index",
			schemaDefinitions: []string{
				tableWithIndex,
				"CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT); CREATE INDEX test_name ON test (id, name)",
			},
			testQueries: []string{"DROP INDEX test_name"},
		},
		{
			name: "index survives table rebuild",
			schemaDefinitions: []string{
				tableWithIndex,
				"CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT, notes TEXT); CREATE INDEX test_name ON test (name)",
			},
			testQueries: []string{"DROP INDEX test_name"},
		},
		{
			name:              "create trigger",
			schemaDefinitions: []string{tableWithTrigger},
			testQueries:       []string{"INSERT INTO test (name) VALUES ('test')"},
			wantErr:           true,
		},
		{
			name: "delete trigger",
			schemaDefinitions: []string{
				tableWithTrigger,
				"CREATE TABLE test ( id   INTEGER PRIMARY KEY, name TEXT )",
			},
			testQueries: []string{"INSERT INTO test (name) VALUES ('test')"},
		},
		{
			name: "update trigger",
			schemaDefinitions: []string{
				tableWithTrigger,
				`CREATE TABLE test ( id   INTEGER PRIMARY KEY, name TEXT );
                 CREATE TRIGGER test_trigger AFTER INSERT ON test BEGIN SELECT 1; END;`,
			},
			testQueries: []string{"INSERT INTO test (name) VALUES ('test')"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := t.Context()
			db, logger := newTestDatabase(t)

			for _, schemaDefinition := range tt.schemaDefinitions {
				logger.LogAttrs(ctx, slog.LevelInfo, "migrating", slog.String("schema", schemaDefinition))
				if err := db.migrateTo(ctx, schemaDefinition); err != nil {
					t.Fatalf("Failed to migrate: %v", err)
				}
			}

			for _, query := range tt.testQueries {
				logger.LogAttrs(ctx, slog.LevelInfo, "executing", slog.String("query", query))
				_, err := db.ReadWrite.ExecContext(ctx, query)
				if tt.wantErr && err == nil {
					t.Errorf("Expected error for query %q, but got none", query)
				}
				if !tt.wantErr && err != nil {
					t.Errorf("Unexpected error for query %q: %v", query, err)
				}
			}
		})
	}
}

func TestDatabase_migrate_keepsRows(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	db, _ := newTestDatabase(t)

	if err := db.migrateTo(ctx, "CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT NOT NULL)"); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	if _, err := db.ReadWrite.ExecContext(ctx, "INSERT INTO test (id, name) VALUES (7, 'squat')"); err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}
	if err := db.migrateTo(ctx,
		"CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT NOT NULL, reps INTEGER NOT NULL DEFAULT 10)"); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	var (
		name string
		reps int
	)
	if err := db.ReadWrite.QueryRowContext(ctx, "SELECT name, reps FROM test WHERE id = 7").Scan(&name, &reps); err != nil {
		t.Fatalf("Failed to read migrated row: %v", err)
	}
	if name != "squat" || reps != 10 {
		t.Errorf("got (%q, %d), want (\"squat\", 10)", name, reps)
	}
}

func TestNewDatabase_seedsCatalog(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	logger := testhelpers.NewTestLogger(t)
	db, err := NewDatabase(ctx, ":memory:", logger)
	if err != nil {
		t.Fatalf("NewDatabase: %v", err)
	}
	t.Cleanup(func() {
		if err = db.Close(); err != nil {
			t.Errorf("Failed to close database: %v", err)
		}
	})

	var count int
	if err = db.ReadOnly.QueryRowContext(ctx, "SELECT COUNT(*) FROM exercises").Scan(&count); err != nil {
		t.Fatalf("count exercises: %v", err)
	}
	if count == 0 {
		t.Fatal("expected the exercise catalog to be seeded")
	}

	// Fixtures are applied on every start and must not duplicate rows.
	if _, err = db.ReadWrite.ExecContext(ctx, fixtures); err != nil {
		t.Fatalf("reapply fixtures: %v", err)
	}
	var again int
	if err = db.ReadOnly.QueryRowContext(ctx, "SELECT COUNT(*) FROM exercises").Scan(&again); err != nil {
		t.Fatalf("count exercises: %v", err)
	}
	if again != count {
		t.Errorf("fixtures not idempotent: %d exercises, then %d", count, again)
	}
}
