package schedule

import (
	"bytes"
	_ "embed"
	"fmt"
	"slices"

	"github.com/myrjola/fitplan/internal/errors"
	"gopkg.in/yaml.v3"
)

//go:embed tables.yaml
var defaultTables []byte

// fallbackSplitDays is the routine used for days-per-week values without an explicit split.
const fallbackSplitDays = 3

// Tables holds the static lookup tables the generator reads from. It is immutable after loading and safe to share
// between goroutines.
type Tables struct {
	training  map[Goal]map[Level]TrainingParameters
	cardio    map[Goal]CardioParameters
	coaching  map[Goal]string
	supersets map[string][]string
	splits    map[int][][]string
}

type tablesDocument struct {
	Training  map[Goal]map[Level]TrainingParameters `yaml:"training"`
	Cardio    map[Goal]CardioParameters             `yaml:"cardio"`
	Coaching  map[Goal]string                       `yaml:"coaching"`
	Supersets map[string][]string                   `yaml:"supersets"`
	Splits    map[int][][]string                    `yaml:"splits"`
}

// DefaultTables returns the embedded tables.
func DefaultTables() (*Tables, error) {
	return LoadTables(defaultTables)
}

// LoadTables parses a YAML tables document and verifies that every goal and level resolves.
func LoadTables(data []byte) (*Tables, error) {
	var doc tablesDocument
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: decode yaml: %w", ErrInvalidTables, err)
	}
	if err := doc.validate(); err != nil {
		return nil, err
	}
	return &Tables{
		training:  doc.Training,
		cardio:    doc.Cardio,
		coaching:  doc.Coaching,
		supersets: doc.Supersets,
		splits:    doc.Splits,
	}, nil
}

func (d tablesDocument) validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalidTables, fmt.Sprintf(format, args...)))
	}

	for _, goal := range Goals() {
		for _, level := range Levels() {
			p, ok := d.Training[goal][level]
			if !ok {
				invalid("training %s/%s missing", goal, level)
				continue
			}
			if p.Sets.Min < minDeloadSets || p.Sets.Min > p.Sets.Max {
				invalid("training %s/%s: sets want %d <= min <= max, got %d-%d",
					goal, level, minDeloadSets, p.Sets.Min, p.Sets.Max)
			}
			if p.RestPeriod <= 0 {
				invalid("training %s/%s: rest must be positive", goal, level)
			}
			if _, _, err := parseRepRange(p.Reps); err != nil {
				invalid("training %s/%s: %v", goal, level, err)
			}
			if _, err := p.Intensity.metFactor(); err != nil {
				invalid("training %s/%s: %v", goal, level, err)
			}
			if p.Tempo == "" {
				invalid("training %s/%s: tempo missing", goal, level)
			}
		}

		c, ok := d.Cardio[goal]
		switch {
		case !ok:
			invalid("cardio %s missing", goal)
		case c.Frequency < 1:
			invalid("cardio %s: frequency must be at least 1", goal)
		case c.Duration <= 0:
			invalid("cardio %s: duration must be positive", goal)
		case c.CaloriesPerMinute < 0:
			invalid("cardio %s: calories per minute must not be negative", goal)
		case !c.Type.valid():
			invalid("cardio %s: unknown type %q", goal, c.Type)
		}

		if d.Coaching[goal] == "" {
			invalid("coaching %s missing", goal)
		}
	}

	if _, ok := d.Splits[fallbackSplitDays]; !ok {
		invalid("split for %d days missing", fallbackSplitDays)
	}
	for days, routine := range d.Splits {
		if len(routine) != days {
			invalid("split for %d days has %d entries", days, len(routine))
		}
		if slices.ContainsFunc(routine, func(focus []string) bool { return len(focus) == 0 }) {
			invalid("split for %d days has an empty day", days)
		}
	}

	for muscle, partners := range d.Supersets {
		if len(partners) == 0 {
			invalid("superset %s has no partners", muscle)
		}
	}

	return errors.Join(errs...)
}

// Training resolves the training parameters for a goal and level.
func (t *Tables) Training(goal Goal, level Level) (TrainingParameters, error) {
	if err := goal.validate(); err != nil {
		return TrainingParameters{}, err
	}
	if err := level.validate(); err != nil {
		return TrainingParameters{}, err
	}
	p, ok := t.training[goal][level]
	if !ok {
		return TrainingParameters{}, fmt.Errorf("%w: training %s/%s missing", ErrInvalidTables, goal, level)
	}
	return p, nil
}

// Cardio resolves the cardio parameters for a goal.
func (t *Tables) Cardio(goal Goal) (CardioParameters, error) {
	if err := goal.validate(); err != nil {
		return CardioParameters{}, err
	}
	c, ok := t.cardio[goal]
	if !ok {
		return CardioParameters{}, fmt.Errorf("%w: cardio %s missing", ErrInvalidTables, goal)
	}
	return c, nil
}

// Coaching returns the goal-specific coaching line.
func (t *Tables) Coaching(goal Goal) string {
	return t.coaching[goal]
}

// Split returns the per-day muscle-group focus for daysPerWeek.
//
// Values without an explicit routine (e.g. 1, 2 or 7) resolve to the 3-day routine.
func (t *Tables) Split(daysPerWeek int) [][]string {
	routine, ok := t.splits[daysPerWeek]
	if !ok {
		routine = t.splits[fallbackSplitDays]
	}
	out := make([][]string, len(routine))
	for i, focus := range routine {
		out[i] = slices.Clone(focus)
	}
	return out
}

// SupersetPartners returns the muscle groups compatible with muscle in preference order.
func (t *Tables) SupersetPartners(muscle string) []string {
	return slices.Clone(t.supersets[muscle])
}
