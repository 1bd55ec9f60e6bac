package workout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/myrjola/fitplan/internal/contexthelpers"
	"github.com/myrjola/fitplan/internal/ptr"
	"github.com/myrjola/fitplan/internal/sqlite"
)

// noLimit disables the LIMIT clause in SQLite.
const noLimit = -1

const progressColumns = `
	pe.id, p.public_id, pe.entry_date, pe.weight_kg, pe.body_fat, pe.mood, pe.energy_level, pe.duration_min,
	pe.calories_burned, pe.notes`

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type sqliteProgressRepository struct {
	baseRepository
}

func newSQLiteProgressRepository(db *sqlite.Database, logger *slog.Logger) *sqliteProgressRepository {
	return &sqliteProgressRepository{
		baseRepository: newBaseRepository(db, logger),
	}
}

func scanProgressEntry(row rowScanner) (ProgressEntry, error) {
	var (
		entry   ProgressEntry
		date    string
		bodyFat sql.NullFloat64
	)
	if err := row.Scan(
		&entry.ID,
		&entry.PlanPublicID,
		&date,
		&entry.WeightKg,
		&bodyFat,
		&entry.Mood,
		&entry.EnergyLevel,
		&entry.DurationMinutes,
		&entry.CaloriesBurned,
		&entry.NotesMarkdown,
	); err != nil {
		return ProgressEntry{}, err //nolint:wrapcheck // callers wrap with context.
	}
	if bodyFat.Valid {
		entry.BodyFat = ptr.Ref(bodyFat.Float64)
	}
	var err error
	if entry.Date, err = time.Parse(dateFormat, date); err != nil {
		return ProgressEntry{}, fmt.Errorf("parse entry date: %w", err)
	}
	return entry, nil
}

// Create links entry to the user's active plan and returns its ID. ErrNoActivePlan is returned when there is none.
func (r *sqliteProgressRepository) Create(ctx context.Context, entry ProgressEntry) (int, error) {
	userID := contexthelpers.AuthenticatedUserID(ctx)
	var id int
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO progress_entries (user_id, plan_id, entry_date, weight_kg, body_fat, mood, energy_level,
			                              duration_min, calories_burned, notes)
			SELECT user_id, id, ?, ?, ?, ?, ?, ?, ?, ?
			FROM plans
			WHERE user_id = ? AND is_active = 1
			RETURNING id`,
			formatDate(entry.Date),
			entry.WeightKg,
			entry.BodyFat,
			entry.Mood,
			entry.EnergyLevel,
			entry.DurationMinutes,
			entry.CaloriesBurned,
			entry.NotesMarkdown,
			userID,
		).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNoActivePlan
		}
		if err != nil {
			return fmt.Errorf("insert progress entry: %w", err)
		}
		return insertProgressExercises(ctx, tx, id, entry.Exercises)
	})
	if err != nil {
		return 0, invalidReferenceError(err, "exercise")
	}
	return id, nil
}

func insertProgressExercises(ctx context.Context, tx *sql.Tx, progressID int, exercises []ExerciseProgress) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM progress_exercises WHERE progress_id = ?`, progressID); err != nil {
		return fmt.Errorf("clear progress exercises: %w", err)
	}
	for i, ex := range exercises {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO progress_exercises (progress_id, position, exercise_id, sets, reps, weight_kg, difficulty)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			progressID, i, ex.ExerciseID, ex.Sets, ex.Reps, ex.WeightKg, ex.Difficulty); err != nil {
			return fmt.Errorf("insert progress exercise %d: %w", i, err)
		}
	}
	return nil
}

// List returns the user's entries between from and to inclusive, newest first. Zero times leave the range open and a
// non-positive limit returns every entry.
func (r *sqliteProgressRepository) List(ctx context.Context, from, to time.Time, limit int) ([]ProgressEntry, error) {
	var fromDate, toDate string
	if !from.IsZero() {
		fromDate = formatDate(from)
	}
	if !to.IsZero() {
		toDate = formatDate(to)
	}
	if limit <= 0 {
		limit = noLimit
	}
	return listProgress(ctx, r.db.ReadOnly, `
		SELECT `+progressColumns+`
		FROM progress_entries pe
		JOIN plans p ON p.id = pe.plan_id
		WHERE pe.user_id = ?
		  AND (?2 = '' OR pe.entry_date >= ?2)
		  AND (?3 = '' OR pe.entry_date <= ?3)
		ORDER BY pe.entry_date DESC, pe.id DESC
		LIMIT ?4`, contexthelpers.AuthenticatedUserID(ctx), fromDate, toDate, limit)
}

func listProgress(ctx context.Context, q querier, query string, args ...any) (_ []ProgressEntry, err error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query progress entries: %w", err)
	}
	defer closeRows(rows, &err)

	var entries []ProgressEntry
	for rows.Next() {
		var entry ProgressEntry
		if entry, err = scanProgressEntry(rows); err != nil {
			return nil, fmt.Errorf("scan progress entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	for i := range entries {
		if entries[i].Exercises, err = fetchProgressExercises(ctx, q, entries[i].ID); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

func fetchProgressExercises(ctx context.Context, q querier, progressID int) (_ []ExerciseProgress, err error) {
	rows, err := q.QueryContext(ctx, `
		SELECT px.exercise_id, e.name, px.sets, px.reps, px.weight_kg, px.difficulty
		FROM progress_exercises px
		JOIN exercises e ON e.id = px.exercise_id
		WHERE px.progress_id = ?
		ORDER BY px.position`, progressID)
	if err != nil {
		return nil, fmt.Errorf("query progress exercises: %w", err)
	}
	defer closeRows(rows, &err)

	var exercises []ExerciseProgress
	for rows.Next() {
		var (
			ex     ExerciseProgress
			weight sql.NullFloat64
		)
		if err = rows.Scan(&ex.ExerciseID, &ex.ExerciseName, &ex.Sets, &ex.Reps, &weight, &ex.Difficulty); err != nil {
			return nil, fmt.Errorf("scan progress exercise: %w", err)
		}
		if weight.Valid {
			ex.WeightKg = ptr.Ref(weight.Float64)
		}
		exercises = append(exercises, ex)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return exercises, nil
}

func getProgress(ctx context.Context, q querier, id int) (ProgressEntry, error) {
	entries, err := listProgress(ctx, q, `
		SELECT `+progressColumns+`
		FROM progress_entries pe
		JOIN plans p ON p.id = pe.plan_id
		WHERE pe.id = ? AND pe.user_id = ?`, id, contexthelpers.AuthenticatedUserID(ctx))
	if err != nil {
		return ProgressEntry{}, err
	}
	if len(entries) == 0 {
		return ProgressEntry{}, ErrNotFound
	}
	return entries[0], nil
}

// Get returns the user's progress entry or ErrNotFound.
func (r *sqliteProgressRepository) Get(ctx context.Context, id int) (ProgressEntry, error) {
	return getProgress(ctx, r.db.ReadOnly, id)
}

// Update loads the entry, applies updateFn and stores the result if updateFn reports a change. The date and the
// linked plan are kept.
func (r *sqliteProgressRepository) Update(
	ctx context.Context,
	id int,
	updateFn func(entry *ProgressEntry) (bool, error),
) error {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		entry, err := getProgress(ctx, tx, id)
		if err != nil {
			return err
		}
		updated, err := updateFn(&entry)
		if err != nil {
			return fmt.Errorf("update progress entry: %w", err)
		}
		if !updated {
			return nil
		}
		if _, err = tx.ExecContext(ctx, `
			UPDATE progress_entries
			SET weight_kg = ?, body_fat = ?, mood = ?, energy_level = ?, duration_min = ?, calories_burned = ?,
			    notes = ?
			WHERE id = ? AND user_id = ?`,
			entry.WeightKg,
			entry.BodyFat,
			entry.Mood,
			entry.EnergyLevel,
			entry.DurationMinutes,
			entry.CaloriesBurned,
			entry.NotesMarkdown,
			id,
			contexthelpers.AuthenticatedUserID(ctx),
		); err != nil {
			return fmt.Errorf("store progress entry: %w", err)
		}
		return insertProgressExercises(ctx, tx, id, entry.Exercises)
	})
	return invalidReferenceError(err, "exercise")
}

// Delete removes the user's progress entry or returns ErrNotFound.
func (r *sqliteProgressRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ReadWrite.ExecContext(ctx,
		`DELETE FROM progress_entries WHERE id = ? AND user_id = ?`, id, contexthelpers.AuthenticatedUserID(ctx))
	if err != nil {
		return fmt.Errorf("delete progress entry %d: %w", id, err)
	}
	return rowsAffectedOrNotFound(result)
}
