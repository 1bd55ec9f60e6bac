package workout

import (
	"errors"
	"slices"
	"testing"

	"github.com/myrjola/fitplan/internal/schedule"
	"github.com/myrjola/fitplan/internal/sqlite"
	"github.com/myrjola/fitplan/internal/testhelpers"
)

func newTestRepository(t *testing.T) *repository {
	t.Helper()
	logger := testhelpers.NewTestLogger(t)
	db, err := sqlite.NewDatabase(t.Context(), ":memory:", logger)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return newRepository(db, logger)
}

func Test_sqliteExerciseRepository_ListEligible(t *testing.T) {
	repo := newTestRepository(t)

	tests := []struct {
		name      string
		level     schedule.Level
		equipment []string
	}{
		{name: "bodyweight beginner", level: schedule.LevelBeginner, equipment: []string{"none"}},
		{name: "gym intermediate", level: schedule.LevelIntermediate, equipment: []string{"barbell", "machine"}},
		{name: "dumbbell advanced", level: schedule.LevelAdvanced, equipment: []string{"dumbbells"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exercises, err := repo.exercises.ListEligible(t.Context(), tt.level, tt.equipment)
			if err != nil {
				t.Fatalf("ListEligible() error = %v", err)
			}
			if len(exercises) == 0 {
				t.Fatal("Expected eligible exercises")
			}
			for _, e := range exercises {
				if e.Difficulty != tt.level {
					t.Errorf("%q has difficulty %s", e.Name, e.Difficulty)
				}
				if e.Kind != exerciseKindStrength {
					t.Errorf("%q has kind %s", e.Name, e.Kind)
				}
				if len(e.MuscleGroups) == 0 {
					t.Errorf("%q has no muscle groups", e.Name)
				}
				if !slices.ContainsFunc(e.Equipment, func(s string) bool { return slices.Contains(tt.equipment, s) }) {
					t.Errorf("%q needs %v", e.Name, e.Equipment)
				}
			}
		})
	}

	none, err := repo.exercises.ListEligible(t.Context(), schedule.LevelBeginner, nil)
	if err != nil {
		t.Fatalf("ListEligible() error = %v", err)
	}
	if len(none) != 0 {
		t.Errorf("Expected no exercises without equipment, got %d", len(none))
	}
}

func Test_sqliteExerciseRepository_Get(t *testing.T) {
	repo := newTestRepository(t)

	exercises, err := repo.exercises.List(t.Context())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(exercises) == 0 {
		t.Fatal("Expected a seeded catalog")
	}
	want := exercises[0]
	got, err := repo.exercises.Get(t.Context(), want.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Name != want.Name || !slices.Equal(got.MuscleGroups, want.MuscleGroups) {
		t.Errorf("Get() = %+v, want %+v", got, want)
	}

	if _, err = repo.exercises.Get(t.Context(), -1); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	names, err := repo.exercises.Names(t.Context(), []int{want.ID, -1})
	if err != nil {
		t.Fatalf("Names() error = %v", err)
	}
	if len(names) != 1 || names[want.ID] != want.Name {
		t.Errorf("Names() = %v", names)
	}
}
