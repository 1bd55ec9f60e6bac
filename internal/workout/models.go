package workout

import (
	"fmt"
	"time"

	"github.com/myrjola/fitplan/internal/errors"
	"github.com/myrjola/fitplan/internal/schedule"
)

var (
	// ErrNotFound is returned when the requested row does not exist or belongs to another user.
	ErrNotFound = errors.NewSentinel("not found")
	// ErrInvalidRequest is returned when user input fails validation.
	ErrInvalidRequest = errors.NewSentinel("invalid request")
	// ErrNoActivePlan is returned when progress is recorded without an active plan.
	ErrNoActivePlan = errors.NewSentinel("no active plan")
)

const (
	minDurationWeeks = 1
	maxDurationWeeks = 52
	minDaysPerWeek   = 1
	maxDaysPerWeek   = 7
	// recentProgressLimit is the number of progress entries shown on the overview.
	recentProgressLimit = 5
)

// Profile holds the onboarding answers the generator needs.
type Profile struct {
	DisplayName  string
	FitnessLevel schedule.Level
	// Equipment lists what the user has access to. "none" means bodyweight exercises.
	Equipment []string
}

func (p Profile) validate() error {
	if _, err := schedule.ParseLevel(string(p.FitnessLevel)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if len(p.Equipment) == 0 {
		return fmt.Errorf("%w: select at least one equipment option", ErrInvalidRequest)
	}
	return nil
}

// Exercise is an entry of the exercise catalog.
type Exercise struct {
	ID                   int
	Name                 string
	Difficulty           schedule.Level
	Kind                 string
	InstructionsMarkdown string
	// MuscleGroups is ordered, the first one decides the generator bucket.
	MuscleGroups []string
	Equipment    []string
}

func (e Exercise) toSchedule() schedule.Exercise {
	return schedule.Exercise{
		ID:           e.ID,
		Name:         e.Name,
		MuscleGroups: e.MuscleGroups,
		Difficulty:   e.Difficulty,
		Equipment:    e.Equipment,
	}
}

// PlanRequest is the user's input for generating a plan.
type PlanRequest struct {
	Goal          schedule.Goal
	DaysPerWeek   int
	DurationWeeks int
}

func (r PlanRequest) validate() error {
	if _, err := schedule.ParseGoal(string(r.Goal)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if r.DaysPerWeek < minDaysPerWeek || r.DaysPerWeek > maxDaysPerWeek {
		return fmt.Errorf("%w: days per week must be between %d and %d, got %d",
			ErrInvalidRequest, minDaysPerWeek, maxDaysPerWeek, r.DaysPerWeek)
	}
	if r.DurationWeeks < minDurationWeeks || r.DurationWeeks > maxDurationWeeks {
		return fmt.Errorf("%w: duration must be between %d and %d weeks, got %d",
			ErrInvalidRequest, minDurationWeeks, maxDurationWeeks, r.DurationWeeks)
	}
	return nil
}

// Plan is a persisted generated schedule.
type Plan struct {
	PublicID      string
	Name          string
	Description   string
	Goal          schedule.Goal
	Difficulty    schedule.Level
	DurationWeeks int
	DaysPerWeek   int
	Days          []schedule.DaySchedule
	IsDeloadWeek  bool
	IsActive      bool
	StartDate     time.Time
	EndDate       time.Time
}

// ExerciseProgress is the performance of one exercise within a progress entry.
type ExerciseProgress struct {
	ExerciseID   int
	ExerciseName string
	Sets         int
	Reps         int
	WeightKg     *float64
	// Difficulty is the perceived effort from 1 to 10.
	Difficulty int
}

// ProgressEntry is a logged workout linked to the plan that was active when it was recorded.
type ProgressEntry struct {
	ID           int
	PlanPublicID string
	Date         time.Time
	WeightKg     float64
	BodyFat      *float64
	// Mood and EnergyLevel range from 1 to 5.
	Mood            int
	EnergyLevel     int
	DurationMinutes int
	CaloriesBurned  int
	NotesMarkdown   string
	Exercises       []ExerciseProgress
}

func outOfRange(name string, v, lo, hi int) error {
	if v < lo || v > hi {
		return fmt.Errorf("%w: %s must be between %d and %d, got %d", ErrInvalidRequest, name, lo, hi, v)
	}
	return nil
}

func (e ProgressEntry) validate() error {
	if e.WeightKg <= 0 {
		return fmt.Errorf("%w: weight must be positive", ErrInvalidRequest)
	}
	if e.BodyFat != nil && (*e.BodyFat < 0 || *e.BodyFat > 100) {
		return fmt.Errorf("%w: body fat must be a percentage", ErrInvalidRequest)
	}
	if e.DurationMinutes < 0 || e.CaloriesBurned < 0 {
		return fmt.Errorf("%w: duration and calories cannot be negative", ErrInvalidRequest)
	}
	//nolint:mnd // mood and energy use a 1-5 scale, exercise difficulty 1-10.
	errs := []error{
		outOfRange("mood", e.Mood, 1, 5),
		outOfRange("energy level", e.EnergyLevel, 1, 5),
	}
	for i, ex := range e.Exercises {
		if ex.Sets < 1 || ex.Reps < 1 {
			errs = append(errs, fmt.Errorf("%w: exercise %d needs at least one set and rep", ErrInvalidRequest, i+1))
		}
		if ex.WeightKg != nil && *ex.WeightKg < 0 {
			errs = append(errs, fmt.Errorf("%w: exercise %d weight cannot be negative", ErrInvalidRequest, i+1))
		}
		errs = append(errs, outOfRange("exercise difficulty", ex.Difficulty, 1, 10)) //nolint:mnd // see above
	}
	return errors.Join(errs...)
}

// Overview is what the home page shows a logged-in user.
type Overview struct {
	// Profile is nil until the user has onboarded.
	Profile        *Profile
	ActivePlan     *Plan
	RecentProgress []ProgressEntry
}
