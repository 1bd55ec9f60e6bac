package workout

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/myrjola/fitplan/internal/schedule"
	"github.com/myrjola/fitplan/internal/sqlite"
)

const exerciseKindStrength = "strength"

// exerciseColumns selects an exercise with its ordered muscle groups and equipment aggregated as JSON arrays.
const exerciseColumns = `
	e.id, e.name, e.difficulty, e.kind, e.instructions,
	(SELECT json_group_array(muscle_group)
	 FROM (SELECT muscle_group FROM exercise_muscle_groups WHERE exercise_id = e.id ORDER BY position)),
	(SELECT json_group_array(equipment)
	 FROM (SELECT equipment FROM exercise_equipment WHERE exercise_id = e.id ORDER BY equipment))`

type sqliteExerciseRepository struct {
	baseRepository
}

func newSQLiteExerciseRepository(db *sqlite.Database, logger *slog.Logger) *sqliteExerciseRepository {
	return &sqliteExerciseRepository{
		baseRepository: newBaseRepository(db, logger),
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExercise(row rowScanner) (Exercise, error) {
	var (
		exercise     Exercise
		difficulty   string
		muscleGroups string
		equipment    string
	)
	if err := row.Scan(
		&exercise.ID,
		&exercise.Name,
		&difficulty,
		&exercise.Kind,
		&exercise.InstructionsMarkdown,
		&muscleGroups,
		&equipment,
	); err != nil {
		return Exercise{}, err //nolint:wrapcheck // callers wrap with context.
	}
	exercise.Difficulty = schedule.Level(difficulty)
	if err := json.Unmarshal([]byte(muscleGroups), &exercise.MuscleGroups); err != nil {
		return Exercise{}, fmt.Errorf("decode muscle groups of exercise %d: %w", exercise.ID, err)
	}
	if err := json.Unmarshal([]byte(equipment), &exercise.Equipment); err != nil {
		return Exercise{}, fmt.Errorf("decode equipment of exercise %d: %w", exercise.ID, err)
	}
	return exercise, nil
}

func (r *sqliteExerciseRepository) query(ctx context.Context, query string, args ...any) (_ []Exercise, err error) {
	rows, err := r.db.ReadOnly.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query exercises: %w", err)
	}
	defer closeRows(rows, &err)

	var exercises []Exercise
	for rows.Next() {
		var exercise Exercise
		if exercise, err = scanExercise(rows); err != nil {
			return nil, fmt.Errorf("scan exercise: %w", err)
		}
		exercises = append(exercises, exercise)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return exercises, nil
}

// Get retrieves a single exercise by ID.
func (r *sqliteExerciseRepository) Get(ctx context.Context, id int) (Exercise, error) {
	exercise, err := scanExercise(r.db.ReadOnly.QueryRowContext(ctx,
		`SELECT `+exerciseColumns+` FROM exercises e WHERE e.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Exercise{}, ErrNotFound
	}
	if err != nil {
		return Exercise{}, fmt.Errorf("query exercise %d: %w", id, err)
	}
	return exercise, nil
}

// List returns the whole catalog ordered by name.
func (r *sqliteExerciseRepository) List(ctx context.Context) ([]Exercise, error) {
	return r.query(ctx, `SELECT `+exerciseColumns+` FROM exercises e ORDER BY e.name`)
}

// ListEligible returns the strength exercises of the given difficulty that need at least one of the listed
// equipment items.
func (r *sqliteExerciseRepository) ListEligible(
	ctx context.Context,
	level schedule.Level,
	equipment []string,
) ([]Exercise, error) {
	equipmentJSON, err := jsonList(equipment)
	if err != nil {
		return nil, err
	}
	return r.query(ctx, `
		SELECT `+exerciseColumns+`
		FROM exercises e
		WHERE e.kind = ?
		  AND e.difficulty = ?
		  AND EXISTS (SELECT 1
		              FROM exercise_equipment ee
		              WHERE ee.exercise_id = e.id
		                AND ee.equipment IN (SELECT value FROM json_each(?)))
		ORDER BY e.id`, exerciseKindStrength, string(level), equipmentJSON)
}

// Names maps the given exercise IDs to their current names. Unknown IDs are left out.
func (r *sqliteExerciseRepository) Names(ctx context.Context, ids []int) (_ map[int]string, err error) {
	idsJSON, err := jsonList(ids)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.ReadOnly.QueryContext(ctx,
		`SELECT id, name FROM exercises WHERE id IN (SELECT value FROM json_each(?))`, idsJSON)
	if err != nil {
		return nil, fmt.Errorf("query exercise names: %w", err)
	}
	defer closeRows(rows, &err)

	names := make(map[int]string, len(ids))
	for rows.Next() {
		var (
			id   int
			name string
		)
		if err = rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan exercise name: %w", err)
		}
		names[id] = name
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return names, nil
}
