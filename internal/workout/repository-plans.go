package workout

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/myrjola/fitplan/internal/contexthelpers"
	"github.com/myrjola/fitplan/internal/schedule"
	"github.com/myrjola/fitplan/internal/sqlite"
)

const planColumns = `
	public_id, name, description, goal, difficulty, duration_weeks, days_per_week, schedule, is_deload_week,
	is_active, start_date, end_date`

type sqlitePlanRepository struct {
	baseRepository
}

func newSQLitePlanRepository(db *sqlite.Database, logger *slog.Logger) *sqlitePlanRepository {
	return &sqlitePlanRepository{
		baseRepository: newBaseRepository(db, logger),
	}
}

func scanPlan(row rowScanner) (Plan, error) {
	var (
		plan       Plan
		goal       string
		difficulty string
		days       string
		startDate  string
		endDate    string
	)
	if err := row.Scan(
		&plan.PublicID,
		&plan.Name,
		&plan.Description,
		&goal,
		&difficulty,
		&plan.DurationWeeks,
		&plan.DaysPerWeek,
		&days,
		&plan.IsDeloadWeek,
		&plan.IsActive,
		&startDate,
		&endDate,
	); err != nil {
		return Plan{}, err //nolint:wrapcheck // callers wrap with context.
	}
	plan.Goal = schedule.Goal(goal)
	plan.Difficulty = schedule.Level(difficulty)
	if err := json.Unmarshal([]byte(days), &plan.Days); err != nil {
		return Plan{}, fmt.Errorf("decode schedule of plan %s: %w", plan.PublicID, err)
	}
	var err error
	if plan.StartDate, err = time.Parse(dateFormat, startDate); err != nil {
		return Plan{}, fmt.Errorf("parse start date: %w", err)
	}
	if plan.EndDate, err = time.Parse(dateFormat, endDate); err != nil {
		return Plan{}, fmt.Errorf("parse end date: %w", err)
	}
	return plan, nil
}

// Create stores plan as the user's active plan and deactivates the previous one.
func (r *sqlitePlanRepository) Create(ctx context.Context, plan Plan) error {
	userID := contexthelpers.AuthenticatedUserID(ctx)
	days, err := json.Marshal(plan.Days)
	if err != nil {
		return fmt.Errorf("encode schedule: %w", err)
	}
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err = tx.ExecContext(ctx,
			`UPDATE plans SET is_active = 0 WHERE user_id = ? AND is_active = 1`, userID); err != nil {
			return fmt.Errorf("deactivate previous plan: %w", err)
		}
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO plans (public_id, user_id, name, description, goal, difficulty, duration_weeks,
			                   days_per_week, schedule, is_deload_week, is_active, start_date, end_date)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
			plan.PublicID,
			userID,
			plan.Name,
			plan.Description,
			string(plan.Goal),
			string(plan.Difficulty),
			plan.DurationWeeks,
			plan.DaysPerWeek,
			string(days),
			plan.IsDeloadWeek,
			formatDate(plan.StartDate),
			formatDate(plan.EndDate),
		); err != nil {
			return fmt.Errorf("insert plan: %w", err)
		}
		return nil
	})
}

// GetActive returns the user's active plan or ErrNotFound.
func (r *sqlitePlanRepository) GetActive(ctx context.Context) (Plan, error) {
	userID := contexthelpers.AuthenticatedUserID(ctx)
	plan, err := scanPlan(r.db.ReadOnly.QueryRowContext(ctx,
		`SELECT `+planColumns+` FROM plans WHERE user_id = ? AND is_active = 1`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return Plan{}, ErrNotFound
	}
	if err != nil {
		return Plan{}, fmt.Errorf("query active plan: %w", err)
	}
	return plan, nil
}

// Get returns the user's plan with the given public ID or ErrNotFound.
func (r *sqlitePlanRepository) Get(ctx context.Context, publicID string) (Plan, error) {
	userID := contexthelpers.AuthenticatedUserID(ctx)
	plan, err := scanPlan(r.db.ReadOnly.QueryRowContext(ctx,
		`SELECT `+planColumns+` FROM plans WHERE public_id = ? AND user_id = ?`, publicID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return Plan{}, ErrNotFound
	}
	if err != nil {
		return Plan{}, fmt.Errorf("query plan %s: %w", publicID, err)
	}
	return plan, nil
}

// List returns the user's plans, newest first.
func (r *sqlitePlanRepository) List(ctx context.Context) (_ []Plan, err error) {
	userID := contexthelpers.AuthenticatedUserID(ctx)
	rows, err := r.db.ReadOnly.QueryContext(ctx,
		`SELECT `+planColumns+` FROM plans WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query plans: %w", err)
	}
	defer closeRows(rows, &err)

	var plans []Plan
	for rows.Next() {
		var plan Plan
		if plan, err = scanPlan(rows); err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		plans = append(plans, plan)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return plans, nil
}

// Delete removes the plan together with its progress entries.
func (r *sqlitePlanRepository) Delete(ctx context.Context, publicID string) error {
	userID := contexthelpers.AuthenticatedUserID(ctx)
	result, err := r.db.ReadWrite.ExecContext(ctx,
		`DELETE FROM plans WHERE public_id = ? AND user_id = ?`, publicID, userID)
	if err != nil {
		return fmt.Errorf("delete plan %s: %w", publicID, err)
	}
	return rowsAffectedOrNotFound(result)
}
