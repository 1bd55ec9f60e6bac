package schedule

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"time"
)

const (
	// secondsPerSet is the assumed working time of one set.
	secondsPerSet = 60
	// referenceBodyWeightKg is used by the MET calorie estimate instead of the user's weight.
	referenceBodyWeightKg = 70
	// minDeloadSets is the floor applied when removing a set on deload weeks.
	minDeloadSets       = 2
	deloadRepsIncrease  = 2
	deloadRestIncrease  = 30
	deloadCycleWeeks    = 4
	deloadWeekIndex     = 3
	defaultBucketLimit  = 3
	enduranceBucketSize = 4
)

// DeloadNotice is the first note of every day generated during a deload week.
const DeloadNotice = "This is a deload week - focus on form and recovery"

//nolint:gochecknoglobals // constant duration expressed in milliseconds.
var weekMillis = (7 * 24 * time.Hour).Milliseconds()

// Exercise is a catalog exercise eligible for generation.
type Exercise struct {
	ID           int
	Name         string
	MuscleGroups []string
	Difficulty   Level
	Equipment    []string
}

// WorkoutExercise is one prescribed exercise within a day.
type WorkoutExercise struct {
	ExerciseID  int    `json:"exerciseId"`
	Name        string `json:"name"`
	MuscleGroup string `json:"muscleGroup"`
	Sets        int    `json:"sets"`
	Reps        string `json:"reps"`
	// RestPeriod is in seconds.
	RestPeriod   int       `json:"restPeriod"`
	Order        int       `json:"order"`
	Intensity    Intensity `json:"intensity"`
	Tempo        string    `json:"tempo"`
	IsSuperset   bool      `json:"isSuperset"`
	SupersetWith *int      `json:"supersetWith,omitempty"`
	IsDeloadWeek bool      `json:"isDeloadWeek"`
}

// CardioBlock is the optional cardio finisher of a day.
type CardioBlock struct {
	Type CardioType `json:"type"`
	// Duration is in minutes.
	Duration  int     `json:"duration"`
	Intensity string  `json:"intensity"`
	Calories  float64 `json:"calories"`
}

// DaySchedule is one generated training day.
type DaySchedule struct {
	DayNumber int               `json:"dayNumber"`
	Exercises []WorkoutExercise `json:"exercises"`
	FocusArea []string          `json:"focusArea"`
	// TotalDuration is in seconds, including the cardio block.
	TotalDuration int          `json:"totalDuration"`
	CaloriesBurn  int          `json:"caloriesBurn"`
	Intensity     DayIntensity `json:"intensity"`
	Notes         []string     `json:"notes"`
	Cardio        *CardioBlock `json:"cardio,omitempty"`
}

// Schedule is the result of one generation run.
type Schedule struct {
	Days         []DaySchedule
	IsDeloadWeek bool
	// EmptyMuscleGroups lists focus muscle groups that had no candidate exercises.
	EmptyMuscleGroups []string
	// CardioClamped is set when daysPerWeek is smaller than the cardio frequency and cardio is scheduled every day.
	CardioClamped bool
}

// Request holds the inputs of one generation run.
type Request struct {
	Goal        Goal
	Level       Level
	DaysPerWeek int
	// Exercises is the pool already filtered by the user's level and equipment.
	Exercises []Exercise
}

// Rand is the randomness the generator draws set counts and exercise order from. *rand.Rand satisfies it.
type Rand interface {
	IntN(n int) int
	Shuffle(n int, swap func(i, j int))
}

// globalRand uses the goroutine-safe top-level functions of math/rand/v2.
type globalRand struct{}

func (globalRand) IntN(n int) int                     { return rand.IntN(n) } //nolint:gosec // not security sensitive.
func (globalRand) Shuffle(n int, swap func(i, j int)) { rand.Shuffle(n, swap) }

// Generator synthesizes weekly training schedules.
type Generator struct {
	tables *Tables
	rand   Rand
	now    func() time.Time
}

type Option func(*Generator)

// WithRand pins the randomness source. A seeded *rand.Rand is not safe for concurrent use.
func WithRand(r Rand) Option {
	return func(g *Generator) {
		g.rand = r
	}
}

// WithClock pins the current instant used for deload-week detection.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		g.now = now
	}
}

// NewGenerator creates a Generator reading from tables. By default it is safe for concurrent use.
func NewGenerator(tables *Tables, opts ...Option) *Generator {
	g := &Generator{
		tables: tables,
		rand:   globalRand{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// IsDeloadWeek reports whether now falls on the last week of the 4-week cycle counted from the Unix epoch.
func IsDeloadWeek(now time.Time) bool {
	ms := now.UnixMilli()
	week := ms / weekMillis
	if ms%weekMillis != 0 && ms < 0 {
		week--
	}
	return (week%deloadCycleWeeks+deloadCycleWeeks)%deloadCycleWeeks == deloadWeekIndex
}

// GroupByMuscle buckets exercises by each of their muscle-group tags, preserving input order.
func GroupByMuscle(exercises []Exercise) map[string][]Exercise {
	buckets := make(map[string][]Exercise)
	for _, e := range exercises {
		for _, muscle := range e.MuscleGroups {
			buckets[muscle] = append(buckets[muscle], e)
		}
	}
	return buckets
}

// Generate produces one DaySchedule per training day.
//
// An empty muscle-group bucket is not an error; the day gets fewer exercises and the group is listed in
// Schedule.EmptyMuscleGroups.
func (g *Generator) Generate(req Request) (Schedule, error) {
	params, err := g.tables.Training(req.Goal, req.Level)
	if err != nil {
		return Schedule{}, fmt.Errorf("resolve training parameters: %w", err)
	}
	cardio, err := g.tables.Cardio(req.Goal)
	if err != nil {
		return Schedule{}, fmt.Errorf("resolve cardio parameters: %w", err)
	}
	if req.DaysPerWeek < 1 {
		return Schedule{}, fmt.Errorf("%w: got %d", ErrInvalidDaysPerWeek, req.DaysPerWeek)
	}

	// Frequencies above daysPerWeek would make the cadence zero. Clamp so that cardio happens every day.
	cadence := req.DaysPerWeek / cardio.Frequency
	clamped := cadence < 1
	if clamped {
		cadence = 1
	}

	a := &dayAssembler{
		rand:      g.rand,
		tables:    g.tables,
		goal:      req.Goal,
		level:     req.Level,
		params:    params,
		cardio:    cardio,
		cadence:   cadence,
		deload:    IsDeloadWeek(g.now()),
		buckets:   GroupByMuscle(req.Exercises),
		emptySeen: make(map[string]bool),
	}

	routine := g.tables.Split(req.DaysPerWeek)
	days := make([]DaySchedule, 0, req.DaysPerWeek)
	for dayIndex := range req.DaysPerWeek {
		var day DaySchedule
		if day, err = a.assemble(dayIndex, routine[dayIndex%len(routine)]); err != nil {
			return Schedule{}, fmt.Errorf("assemble day %d: %w", dayIndex+1, err)
		}
		days = append(days, day)
	}

	return Schedule{
		Days:              days,
		IsDeloadWeek:      a.deload,
		EmptyMuscleGroups: a.empty,
		CardioClamped:     clamped,
	}, nil
}

type dayAssembler struct {
	rand      Rand
	tables    *Tables
	goal      Goal
	level     Level
	params    TrainingParameters
	cardio    CardioParameters
	cadence   int
	deload    bool
	buckets   map[string][]Exercise
	empty     []string
	emptySeen map[string]bool
}

// prescription returns the effective sets, reps, rest and intensity after the deload adjustment.
func (a *dayAssembler) prescription(drawnSets int) (int, string, int, Intensity, error) {
	if !a.deload {
		return drawnSets, a.params.Reps, a.params.RestPeriod, a.params.Intensity, nil
	}
	reps, err := widenReps(a.params.Reps, deloadRepsIncrease)
	if err != nil {
		return 0, "", 0, "", err
	}
	return max(drawnSets-1, minDeloadSets), reps, a.params.RestPeriod + deloadRestIncrease, IntensityLight, nil
}

func (a *dayAssembler) selectExercises(muscle string) []Exercise {
	limit := defaultBucketLimit
	if a.goal == GoalEndurance {
		limit = enduranceBucketSize
	}
	bucket := slices.Clone(a.buckets[muscle])
	a.rand.Shuffle(len(bucket), func(i, j int) {
		bucket[i], bucket[j] = bucket[j], bucket[i]
	})
	return bucket[:min(limit, len(bucket))]
}

// supersetPartner returns the exercise to pair with the first exercise of a muscle group that is followed by
// another muscle group on the same day.
func (a *dayAssembler) supersetPartner(muscle string, positionInMuscle, muscleIndex, muscleCount int) (Exercise, bool) {
	if a.level == LevelBeginner || positionInMuscle != 0 || muscleIndex >= muscleCount-1 {
		return Exercise{}, false
	}
	partners := a.tables.SupersetPartners(muscle)
	if len(partners) == 0 {
		return Exercise{}, false
	}
	bucket := a.buckets[partners[0]]
	if len(bucket) == 0 {
		return Exercise{}, false
	}
	return bucket[0], true
}

func (a *dayAssembler) assemble(dayIndex int, focus []string) (DaySchedule, error) {
	var (
		exercises    = make([]WorkoutExercise, 0)
		totalSeconds int
		calories     float64
		anyDeload    bool
	)

	for muscleIndex, muscle := range focus {
		selected := a.selectExercises(muscle)
		if len(selected) == 0 && !a.emptySeen[muscle] {
			a.emptySeen[muscle] = true
			a.empty = append(a.empty, muscle)
		}
		for position, exercise := range selected {
			drawn := a.params.Sets.Min + a.rand.IntN(a.params.Sets.Max-a.params.Sets.Min+1)
			sets, reps, rest, intensity, err := a.prescription(drawn)
			if err != nil {
				return DaySchedule{}, fmt.Errorf("deload prescription: %w", err)
			}
			anyDeload = anyDeload || a.deload

			we := WorkoutExercise{
				ExerciseID:   exercise.ID,
				Name:         exercise.Name,
				MuscleGroup:  muscle,
				Sets:         sets,
				Reps:         reps,
				RestPeriod:   rest,
				Order:        len(exercises) + 1,
				Intensity:    intensity,
				Tempo:        a.params.Tempo,
				IsSuperset:   false,
				SupersetWith: nil,
				IsDeloadWeek: a.deload,
			}
			if partner, ok := a.supersetPartner(muscle, position, muscleIndex, len(focus)); ok {
				we.IsSuperset = true
				we.SupersetWith = &partner.ID
			}

			seconds := sets * (secondsPerSet + rest)
			totalSeconds += seconds
			var factor float64
			if factor, err = intensity.metFactor(); err != nil {
				return DaySchedule{}, err
			}
			caloriesPerMinute := (factor * 3.5 * referenceBodyWeightKg) / 200 //nolint:mnd // MET formula.
			calories += caloriesPerMinute * float64(seconds) / 60             //nolint:mnd // seconds to minutes.

			exercises = append(exercises, we)
		}
	}

	var block *CardioBlock
	if dayIndex%a.cadence == 0 {
		block = &CardioBlock{
			Type:      a.cardio.Type,
			Duration:  a.cardio.Duration,
			Intensity: a.cardio.Intensity,
			Calories:  float64(a.cardio.Duration) * a.cardio.CaloriesPerMinute,
		}
		totalSeconds += block.Duration * 60 //nolint:mnd // minutes to seconds.
		calories += block.Calories
	}

	_, _, rest, _, err := a.prescription(a.params.Sets.Min)
	if err != nil {
		return DaySchedule{}, fmt.Errorf("deload prescription: %w", err)
	}
	notes := make([]string, 0, 5) //nolint:mnd // at most five notes.
	if anyDeload {
		notes = append(notes, DeloadNotice)
	}
	notes = append(notes,
		fmt.Sprintf("Focus on %s tempo for each exercise", a.params.Tempo),
		fmt.Sprintf("Rest %d seconds between sets", rest),
		a.tables.Coaching(a.goal),
	)
	if block != nil {
		notes = append(notes, fmt.Sprintf("Finish with %d minutes of %s cardio at %s intensity",
			block.Duration, block.Type, block.Intensity))
	}

	return DaySchedule{
		DayNumber:     dayIndex + 1,
		Exercises:     exercises,
		FocusArea:     slices.Clone(focus),
		TotalDuration: totalSeconds,
		CaloriesBurn:  int(math.Round(calories)),
		Intensity:     dayIntensity(dayIndex),
		Notes:         notes,
		Cardio:        block,
	}, nil
}

// dayIntensity follows a fixed positional pattern.
func dayIntensity(dayIndex int) DayIntensity {
	switch dayIndex {
	case 0, 2: //nolint:mnd // first and third day.
		return DayIntensityHigh
	case 1, 3: //nolint:mnd // second and fourth day.
		return DayIntensityMedium
	default:
		return DayIntensityLow
	}
}
