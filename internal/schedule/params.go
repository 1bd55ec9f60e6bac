package schedule

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/myrjola/fitplan/internal/errors"
)

var (
	ErrUnknownGoal        = errors.NewSentinel("unknown goal")
	ErrUnknownLevel       = errors.NewSentinel("unknown experience level")
	ErrInvalidDaysPerWeek = errors.NewSentinel("days per week must be at least 1")
	ErrInvalidTables      = errors.NewSentinel("invalid training tables")
)

// Goal is the training objective driving parameter selection.
type Goal string

const (
	GoalMuscleGain     Goal = "muscle_gain"
	GoalFatLoss        Goal = "fat_loss"
	GoalEndurance      Goal = "endurance"
	GoalGeneralFitness Goal = "general_fitness"
)

// Goals returns every supported goal in display order.
func Goals() []Goal {
	return []Goal{GoalMuscleGain, GoalFatLoss, GoalEndurance, GoalGeneralFitness}
}

// ParseGoal returns ErrUnknownGoal for anything outside the closed set.
func ParseGoal(s string) (Goal, error) {
	g := Goal(s)
	if err := g.validate(); err != nil {
		return "", err
	}
	return g, nil
}

func (g Goal) validate() error {
	switch g {
	case GoalMuscleGain, GoalFatLoss, GoalEndurance, GoalGeneralFitness:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownGoal, string(g))
	}
}

// Title is the human-readable name, e.g. "Muscle Gain".
func (g Goal) Title() string {
	words := strings.Split(string(g), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// Level is the user's experience level. It drives intensity and volume scaling.
type Level string

const (
	LevelBeginner     Level = "beginner"
	LevelIntermediate Level = "intermediate"
	LevelAdvanced     Level = "advanced"
)

// Levels returns every supported level from easiest to hardest.
func Levels() []Level {
	return []Level{LevelBeginner, LevelIntermediate, LevelAdvanced}
}

// ParseLevel returns ErrUnknownLevel for anything outside the closed set.
func ParseLevel(s string) (Level, error) {
	l := Level(s)
	if err := l.validate(); err != nil {
		return "", err
	}
	return l, nil
}

func (l Level) validate() error {
	switch l {
	case LevelBeginner, LevelIntermediate, LevelAdvanced:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownLevel, string(l))
	}
}

// Intensity is the qualitative load of a single exercise.
type Intensity string

const (
	IntensityLight    Intensity = "light"
	IntensityModerate Intensity = "moderate"
	IntensityHeavy    Intensity = "heavy"
)

// metFactor is the metabolic-equivalent multiplier used for calorie estimates.
func (i Intensity) metFactor() (float64, error) {
	switch i {
	case IntensityHeavy:
		return 8, nil //nolint:mnd // MET for heavy lifting.
	case IntensityModerate:
		return 6, nil //nolint:mnd // MET for moderate lifting.
	case IntensityLight:
		return 4, nil //nolint:mnd // MET for light lifting.
	default:
		return 0, fmt.Errorf("unknown intensity %q", string(i))
	}
}

// DayIntensity is the qualitative label of a whole training day.
type DayIntensity string

const (
	DayIntensityLow    DayIntensity = "low"
	DayIntensityMedium DayIntensity = "medium"
	DayIntensityHigh   DayIntensity = "high"
)

// CardioType is the cardio modality appended to a training day.
type CardioType string

const (
	CardioHIIT CardioType = "HIIT"
	CardioLISS CardioType = "LISS"
	CardioMISS CardioType = "MISS"
)

func (c CardioType) valid() bool {
	switch c {
	case CardioHIIT, CardioLISS, CardioMISS:
		return true
	default:
		return false
	}
}

// SetRange is the inclusive range the set count is drawn from.
type SetRange struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// TrainingParameters is the prescription for one (Goal, Level) pair.
type TrainingParameters struct {
	Sets SetRange `yaml:"sets"`
	// Reps is a "low-high" range such as "8-12".
	Reps string `yaml:"reps"`
	// RestPeriod is in seconds.
	RestPeriod int       `yaml:"rest"`
	Intensity  Intensity `yaml:"intensity"`
	Tempo      string    `yaml:"tempo"`
}

// CardioParameters is the cardio prescription for one Goal.
type CardioParameters struct {
	Type CardioType `yaml:"type"`
	// Duration is in minutes.
	Duration int `yaml:"duration"`
	// Frequency is the number of cardio sessions per week.
	Frequency         int     `yaml:"frequency"`
	Intensity         string  `yaml:"intensity"`
	CaloriesPerMinute float64 `yaml:"calories_per_minute"`
}

// parseRepRange parses "low-high".
func parseRepRange(reps string) (int, int, error) {
	lowStr, highStr, found := strings.Cut(reps, "-")
	if !found {
		return 0, 0, fmt.Errorf("rep range %q: missing separator", reps)
	}
	low, err := strconv.Atoi(strings.TrimSpace(lowStr))
	if err != nil {
		return 0, 0, fmt.Errorf("rep range %q: parse low: %w", reps, err)
	}
	high, err := strconv.Atoi(strings.TrimSpace(highStr))
	if err != nil {
		return 0, 0, fmt.Errorf("rep range %q: parse high: %w", reps, err)
	}
	if low < 1 || low > high {
		return 0, 0, fmt.Errorf("rep range %q: want 1 <= low <= high", reps)
	}
	return low, high, nil
}

// widenReps adds by to both bounds of a "low-high" range.
func widenReps(reps string, by int) (string, error) {
	low, high, err := parseRepRange(reps)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d-%d", low+by, high+by), nil
}
