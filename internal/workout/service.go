package workout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/myrjola/fitplan/internal/schedule"
	"github.com/myrjola/fitplan/internal/sqlite"
	"golang.org/x/sync/errgroup"
)

const daysPerWeek = 7

// Service handles the business logic of profiles, plans and progress tracking.
type Service struct {
	repo      *repository
	logger    *slog.Logger
	generator *schedule.Generator
	now       func() time.Time
}

// NewService creates a new workout service. now should be the same clock the generator uses.
func NewService(
	db *sqlite.Database,
	logger *slog.Logger,
	generator *schedule.Generator,
	now func() time.Time,
) *Service {
	return &Service{
		repo:      newRepository(db, logger),
		logger:    logger,
		generator: generator,
		now:       now,
	}
}

// Profile returns the user's profile or ErrNotFound if the user has not onboarded yet.
func (s *Service) Profile(ctx context.Context) (Profile, error) {
	profile, err := s.repo.profiles.Get(ctx)
	if err != nil {
		return Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return profile, nil
}

// SaveProfile validates and stores the user's profile.
func (s *Service) SaveProfile(ctx context.Context, profile Profile) error {
	if err := profile.validate(); err != nil {
		return err
	}
	if err := s.repo.profiles.Set(ctx, profile); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// EquipmentOptions lists the equipment a profile can choose from.
func (s *Service) EquipmentOptions(ctx context.Context) ([]string, error) {
	equipment, err := s.repo.profiles.ListEquipment(ctx)
	if err != nil {
		return nil, fmt.Errorf("list equipment: %w", err)
	}
	return equipment, nil
}

// Exercise returns a catalog exercise.
func (s *Service) Exercise(ctx context.Context, id int) (Exercise, error) {
	exercise, err := s.repo.exercises.Get(ctx, id)
	if err != nil {
		return Exercise{}, fmt.Errorf("get exercise %d: %w", id, err)
	}
	return exercise, nil
}

// GeneratePlan generates a schedule for the user's profile and stores it as the new active plan.
func (s *Service) GeneratePlan(ctx context.Context, req PlanRequest) (Plan, error) {
	if err := req.validate(); err != nil {
		return Plan{}, err
	}

	profile, err := s.repo.profiles.Get(ctx)
	if err != nil {
		return Plan{}, fmt.Errorf("get profile: %w", err)
	}

	exercises, err := s.repo.exercises.ListEligible(ctx, profile.FitnessLevel, profile.Equipment)
	if err != nil {
		return Plan{}, fmt.Errorf("list eligible exercises: %w", err)
	}
	pool := make([]schedule.Exercise, 0, len(exercises))
	for _, exercise := range exercises {
		pool = append(pool, exercise.toSchedule())
	}

	generated, err := s.generator.Generate(schedule.Request{
		Goal:        req.Goal,
		Level:       profile.FitnessLevel,
		DaysPerWeek: req.DaysPerWeek,
		Exercises:   pool,
	})
	if err != nil {
		return Plan{}, fmt.Errorf("generate schedule: %w", err)
	}
	if len(generated.EmptyMuscleGroups) > 0 {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "no exercises for muscle groups",
			slog.Any("muscle_groups", generated.EmptyMuscleGroups),
			slog.String("level", string(profile.FitnessLevel)),
			slog.Any("equipment", profile.Equipment))
	}
	if generated.CardioClamped {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "cardio scheduled on every training day",
			slog.String("goal", string(req.Goal)),
			slog.Int("days_per_week", req.DaysPerWeek))
	}

	now := s.now()
	plan := Plan{
		PublicID:      uuid.NewString(),
		Name:          fmt.Sprintf("%s Plan - %d weeks", req.Goal.Title(), req.DurationWeeks),
		Description: fmt.Sprintf("Custom %s workout plan for %d weeks",
			strings.ToLower(req.Goal.Title()), req.DurationWeeks),
		Goal:          req.Goal,
		Difficulty:    profile.FitnessLevel,
		DurationWeeks: req.DurationWeeks,
		DaysPerWeek:   req.DaysPerWeek,
		Days:          generated.Days,
		IsDeloadWeek:  generated.IsDeloadWeek,
		IsActive:      true,
		StartDate:     now,
		EndDate:       now.AddDate(0, 0, daysPerWeek*req.DurationWeeks),
	}
	if err = s.repo.plans.Create(ctx, plan); err != nil {
		return Plan{}, fmt.Errorf("create plan: %w", err)
	}

	s.logger.LogAttrs(ctx, slog.LevelDebug, "generated plan",
		slog.String("plan_id", plan.PublicID),
		slog.Int("days", len(plan.Days)),
		slog.Int("eligible_exercises", len(pool)),
		slog.Bool("deload_week", plan.IsDeloadWeek))
	return plan, nil
}

// resolveExerciseNames refreshes the stored exercise names from the catalog.
func (s *Service) resolveExerciseNames(ctx context.Context, plan *Plan) error {
	var ids []int
	for _, day := range plan.Days {
		for _, exercise := range day.Exercises {
			ids = append(ids, exercise.ExerciseID)
		}
	}
	names, err := s.repo.exercises.Names(ctx, ids)
	if err != nil {
		return fmt.Errorf("resolve exercise names: %w", err)
	}
	for i := range plan.Days {
		for j := range plan.Days[i].Exercises {
			if name, ok := names[plan.Days[i].Exercises[j].ExerciseID]; ok {
				plan.Days[i].Exercises[j].Name = name
			}
		}
	}
	return nil
}

// ActivePlan returns the user's active plan or ErrNotFound.
func (s *Service) ActivePlan(ctx context.Context) (Plan, error) {
	plan, err := s.repo.plans.GetActive(ctx)
	if err != nil {
		return Plan{}, fmt.Errorf("get active plan: %w", err)
	}
	if err = s.resolveExerciseNames(ctx, &plan); err != nil {
		return Plan{}, err
	}
	return plan, nil
}

// Plan returns one of the user's plans. Malformed IDs are reported as ErrNotFound.
func (s *Service) Plan(ctx context.Context, publicID string) (Plan, error) {
	if err := uuid.Validate(publicID); err != nil {
		return Plan{}, ErrNotFound
	}
	plan, err := s.repo.plans.Get(ctx, publicID)
	if err != nil {
		return Plan{}, fmt.Errorf("get plan: %w", err)
	}
	if err = s.resolveExerciseNames(ctx, &plan); err != nil {
		return Plan{}, err
	}
	return plan, nil
}

// ListPlans returns the user's plans, newest first.
func (s *Service) ListPlans(ctx context.Context) ([]Plan, error) {
	plans, err := s.repo.plans.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	return plans, nil
}

// DeletePlan deletes one of the user's plans together with the progress logged against it.
func (s *Service) DeletePlan(ctx context.Context, publicID string) error {
	if err := uuid.Validate(publicID); err != nil {
		return ErrNotFound
	}
	if err := s.repo.plans.Delete(ctx, publicID); err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}
	return nil
}

// RecordProgress stores a progress entry against the active plan and returns its ID. A zero date means today.
func (s *Service) RecordProgress(ctx context.Context, entry ProgressEntry) (int, error) {
	if entry.Date.IsZero() {
		entry.Date = s.now()
	}
	if err := entry.validate(); err != nil {
		return 0, err
	}
	id, err := s.repo.progress.Create(ctx, entry)
	if err != nil {
		return 0, fmt.Errorf("record progress: %w", err)
	}
	return id, nil
}

// ListProgress returns the user's progress entries between from and to, newest first. Zero times are open bounds.
func (s *Service) ListProgress(ctx context.Context, from, to time.Time) ([]ProgressEntry, error) {
	entries, err := s.repo.progress.List(ctx, from, to, 0)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	return entries, nil
}

// UpdateProgress replaces the measurements, notes and exercises of an entry. The date and plan stay as they were.
func (s *Service) UpdateProgress(ctx context.Context, id int, update ProgressEntry) error {
	err := s.repo.progress.Update(ctx, id, func(entry *ProgressEntry) (bool, error) {
		update.ID = entry.ID
		update.PlanPublicID = entry.PlanPublicID
		update.Date = entry.Date
		if err := update.validate(); err != nil {
			return false, err
		}
		*entry = update
		return true, nil
	})
	if err != nil {
		return fmt.Errorf("update progress %d: %w", id, err)
	}
	return nil
}

// DeleteProgress deletes one of the user's progress entries.
func (s *Service) DeleteProgress(ctx context.Context, id int) error {
	if err := s.repo.progress.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete progress %d: %w", id, err)
	}
	return nil
}

// Overview loads what the home page shows. Missing profile and plan are left nil.
func (s *Service) Overview(ctx context.Context) (Overview, error) {
	var overview Overview
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		profile, err := s.Profile(gctx)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		overview.Profile = &profile
		return nil
	})
	g.Go(func() error {
		plan, err := s.ActivePlan(gctx)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		overview.ActivePlan = &plan
		return nil
	})
	g.Go(func() error {
		entries, err := s.repo.progress.List(gctx, time.Time{}, time.Time{}, recentProgressLimit)
		if err != nil {
			return fmt.Errorf("list recent progress: %w", err)
		}
		overview.RecentProgress = entries
		return nil
	})
	if err := g.Wait(); err != nil {
		return Overview{}, fmt.Errorf("load overview: %w", err)
	}
	return overview, nil
}
