package workout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/myrjola/fitplan/internal/contexthelpers"
	"github.com/myrjola/fitplan/internal/schedule"
	"github.com/myrjola/fitplan/internal/sqlite"
)

type sqliteProfileRepository struct {
	baseRepository
}

func newSQLiteProfileRepository(db *sqlite.Database, logger *slog.Logger) *sqliteProfileRepository {
	return &sqliteProfileRepository{
		baseRepository: newBaseRepository(db, logger),
	}
}

// Get returns the authenticated user's profile or ErrNotFound before onboarding.
func (r *sqliteProfileRepository) Get(ctx context.Context) (_ Profile, err error) {
	userID := contexthelpers.AuthenticatedUserID(ctx)

	var (
		profile Profile
		level   sql.NullString
	)
	err = r.db.ReadOnly.QueryRowContext(ctx, `
		SELECT u.display_name, p.fitness_level
		FROM users u
		LEFT JOIN profiles p ON p.user_id = u.id
		WHERE u.id = ?`, userID).Scan(&profile.DisplayName, &level)
	if errors.Is(err, sql.ErrNoRows) {
		return Profile{}, ErrNotFound
	}
	if err != nil {
		return Profile{}, fmt.Errorf("query profile: %w", err)
	}
	if !level.Valid {
		return Profile{}, ErrNotFound
	}
	profile.FitnessLevel = schedule.Level(level.String)

	rows, err := r.db.ReadOnly.QueryContext(ctx, `
		SELECT equipment FROM profile_equipment WHERE user_id = ? ORDER BY equipment`, userID)
	if err != nil {
		return Profile{}, fmt.Errorf("query profile equipment: %w", err)
	}
	defer closeRows(rows, &err)
	for rows.Next() {
		var equipment string
		if err = rows.Scan(&equipment); err != nil {
			return Profile{}, fmt.Errorf("scan equipment: %w", err)
		}
		profile.Equipment = append(profile.Equipment, equipment)
	}
	if err = rows.Err(); err != nil {
		return Profile{}, fmt.Errorf("iterate equipment: %w", err)
	}
	return profile, nil
}

// Set stores the profile, replacing the equipment list. An empty display name keeps the generated one.
func (r *sqliteProfileRepository) Set(ctx context.Context, profile Profile) error {
	userID := contexthelpers.AuthenticatedUserID(ctx)
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if profile.DisplayName != "" {
			if _, err := tx.ExecContext(ctx,
				`UPDATE users SET display_name = ? WHERE id = ?`, profile.DisplayName, userID); err != nil {
				return fmt.Errorf("update display name: %w", err)
			}
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO profiles (user_id, fitness_level)
			VALUES (?, ?)
			ON CONFLICT (user_id) DO UPDATE SET
				fitness_level = excluded.fitness_level,
				updated_at = strftime('%Y-%m-%dT%H:%M:%fZ')`,
			userID, string(profile.FitnessLevel)); err != nil {
			return fmt.Errorf("upsert profile: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM profile_equipment WHERE user_id = ?`, userID); err != nil {
			return fmt.Errorf("clear equipment: %w", err)
		}
		equipment, err := jsonList(profile.Equipment)
		if err != nil {
			return err
		}
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO profile_equipment (user_id, equipment)
			SELECT DISTINCT ?, value FROM json_each(?)`, userID, equipment); err != nil {
			return fmt.Errorf("insert equipment: %w", err)
		}
		return nil
	})
	return invalidReferenceError(err, "equipment")
}

// ListEquipment returns the equipment options known to the catalog.
func (r *sqliteProfileRepository) ListEquipment(ctx context.Context) (_ []string, err error) {
	rows, err := r.db.ReadOnly.QueryContext(ctx, `SELECT name FROM equipment ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query equipment: %w", err)
	}
	defer closeRows(rows, &err)
	var names []string
	for rows.Next() {
		var name string
		if err = rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan equipment: %w", err)
		}
		names = append(names, name)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate equipment: %w", err)
	}
	return names, nil
}
