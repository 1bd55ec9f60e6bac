package e2etest

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/PuerkitoBio/goquery"
)

// Profile is the onboarding input submitted by Onboard.
type Profile struct {
	DisplayName string
	Level       string
	// Equipment is a comma separated list of equipment names.
	Equipment string
}

// Progress is the input of LogProgress. Exercise rows are filled with the first exercise of the active plan.
type Progress struct {
	Date     string
	WeightKg float64
	Mood     int
	Energy   int
	Notes    string
	Sets     int
	Reps     int
	Effort   int
}

// Onboard fills in the profile form and returns the front page document.
func (c *Client) Onboard(ctx context.Context, profile Profile) (*goquery.Document, error) {
	doc, err := c.GetDoc(ctx, "/profile")
	if err != nil {
		return nil, fmt.Errorf("get profile page: %w", err)
	}
	if doc, err = c.SubmitForm(ctx, doc, "/profile", map[string]string{
		"Display name":        profile.DisplayName,
		"Fitness level":       profile.Level,
		"Available equipment": profile.Equipment,
	}); err != nil {
		return nil, fmt.Errorf("submit profile: %w", err)
	}
	return doc, nil
}

// GeneratePlan submits the new plan form and returns the generated plan document.
func (c *Client) GeneratePlan(ctx context.Context, goal string, daysPerWeek, durationWeeks int) (*goquery.Document, error) {
	doc, err := c.GetDoc(ctx, "/plans/new")
	if err != nil {
		return nil, fmt.Errorf("get new plan page: %w", err)
	}
	if doc, err = c.SubmitForm(ctx, doc, "/plans", map[string]string{
		"Goal":                   goal,
		"Training days per week": strconv.Itoa(daysPerWeek),
		"Duration (weeks)":       strconv.Itoa(durationWeeks),
	}); err != nil {
		return nil, fmt.Errorf("submit plan: %w", err)
	}
	return doc, nil
}

// LogProgress records a progress entry against the active plan and returns the progress page document.
func (c *Client) LogProgress(ctx context.Context, progress Progress) (*goquery.Document, error) {
	doc, err := c.GetDoc(ctx, "/progress")
	if err != nil {
		return nil, fmt.Errorf("get progress page: %w", err)
	}
	exerciseID := doc.Find("#new-exercise-1 option[value!='']").First().AttrOr("value", "")
	if exerciseID == "" {
		return nil, errors.New("no exercise to log, is there an active plan?")
	}
	if doc, err = c.SubmitForm(ctx, doc, "/progress", map[string]string{
		"Date":                         progress.Date,
		"Body weight (kg)":             strconv.FormatFloat(progress.WeightKg, 'f', -1, 64),
		"Mood (1-5)":                   strconv.Itoa(progress.Mood),
		"Energy (1-5)":                 strconv.Itoa(progress.Energy),
		"Notes":                        progress.Notes,
		"Exercise 1":                   exerciseID,
		"Sets for exercise 1":          strconv.Itoa(progress.Sets),
		"Reps for exercise 1":          strconv.Itoa(progress.Reps),
		"Effort for exercise 1 (1-10)": strconv.Itoa(progress.Effort),
	}); err != nil {
		return nil, fmt.Errorf("submit progress: %w", err)
	}
	return doc, nil
}
