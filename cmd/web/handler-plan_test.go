package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/myrjola/fitplan/internal/e2etest"
	"github.com/myrjola/fitplan/internal/testhelpers"
)

// onboard registers a user and fills in the profile.
func onboard(ctx context.Context, t *testing.T, client *e2etest.Client) {
	t.Helper()
	if _, err := client.Register(ctx); err != nil {
		t.Fatalf("Failed to register: %v", err)
	}
	if _, err := client.Onboard(ctx, e2etest.Profile{
		DisplayName: "Steady Otter",
		Level:       "intermediate",
		Equipment:   "barbell,dumbbells",
	}); err != nil {
		t.Fatalf("Failed to onboard: %v", err)
	}
}

func generatePlan(
	ctx context.Context,
	t *testing.T,
	client *e2etest.Client,
	goal string,
	daysPerWeek, durationWeeks int,
) *goquery.Document {
	t.Helper()
	doc, err := client.GeneratePlan(ctx, goal, daysPerWeek, durationWeeks)
	if err != nil {
		t.Fatalf("Failed to generate plan: %v", err)
	}
	return doc
}

func Test_application_profile(t *testing.T) {
	ctx := t.Context()
	server, err := e2etest.StartServer(t, testhelpers.NewWriter(t), testLookupEnv, run)
	if err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	client := server.Client()
	if _, err = client.Register(ctx); err != nil {
		t.Fatalf("Failed to register: %v", err)
	}

	t.Run("New plan requires a profile", func(t *testing.T) {
		doc, getErr := client.GetDoc(ctx, "/plans/new")
		if getErr != nil {
			t.Fatalf("Failed to get new plan page: %v", getErr)
		}
		if doc.Url.Path != "/profile" {
			t.Errorf("Expected redirect to /profile, got %s", doc.Url.Path)
		}
	})

	t.Run("Unknown level is rejected", func(t *testing.T) {
		doc, getErr := client.GetDoc(ctx, "/profile")
		if getErr != nil {
			t.Fatalf("Failed to get profile: %v", getErr)
		}
		_, err = client.SubmitForm(ctx, doc, "/profile", map[string]string{
			"Fitness level":       "expert",
			"Available equipment": "none",
		})
		var statusErr *e2etest.StatusError
		if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusUnprocessableEntity {
			t.Errorf("Expected status %d, got %v", http.StatusUnprocessableEntity, err)
		}
	})

	t.Run("Saved profile is shown", func(t *testing.T) {
		doc, getErr := client.GetDoc(ctx, "/profile")
		if getErr != nil {
			t.Fatalf("Failed to get profile: %v", getErr)
		}
		if doc, err = client.SubmitForm(ctx, doc, "/profile", map[string]string{
			"Display name":        "Steady Otter",
			"Fitness level":       "beginner",
			"Available equipment": "none,bands",
		}); err != nil {
			t.Fatalf("Failed to submit profile: %v", err)
		}
		if got := doc.Find("h1").Text(); !strings.Contains(got, "Steady Otter") {
			t.Errorf("Expected greeting with display name, got %q", got)
		}

		if doc, err = client.GetDoc(ctx, "/profile"); err != nil {
			t.Fatalf("Failed to get profile: %v", err)
		}
		if got := doc.Find("#fitness-level option[selected]").AttrOr("value", ""); got != "beginner" {
			t.Errorf("Expected beginner to be selected, got %q", got)
		}
		var selected []string
		doc.Find("#equipment option[selected]").Each(func(_ int, s *goquery.Selection) {
			selected = append(selected, s.AttrOr("value", ""))
		})
		if strings.Join(selected, ",") != "bands,none" {
			t.Errorf("Expected bands and none to be selected, got %v", selected)
		}
	})
}

func Test_application_plans(t *testing.T) {
	ctx := t.Context()
	server, err := e2etest.StartServer(t, testhelpers.NewWriter(t), testLookupEnv, run)
	if err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	client := server.Client()
	onboard(ctx, t, client)

	var firstPlanPath string

	t.Run("Generate plan", func(t *testing.T) {
		doc := generatePlan(ctx, t, client, "muscle_gain", 4, 8)
		firstPlanPath = doc.Url.Path
		if !strings.HasPrefix(firstPlanPath, "/plans/") {
			t.Fatalf("Expected redirect to the plan page, got %s", firstPlanPath)
		}
		if got := doc.Find("h1").Text(); got != "Muscle Gain Plan - 8 weeks" {
			t.Errorf("Expected plan name heading, got %q", got)
		}
		if got := doc.Find(".plan-day").Length(); got != 4 {
			t.Errorf("Expected 4 plan days, got %d", got)
		}
		if doc.Find(".plan-exercise a[href^='/exercises/']").Length() == 0 {
			t.Error("Expected exercises linking to their instructions")
		}
	})

	t.Run("Invalid days per week", func(t *testing.T) {
		doc, getErr := client.GetDoc(ctx, "/plans/new")
		if getErr != nil {
			t.Fatalf("Failed to get new plan page: %v", getErr)
		}
		_, err = client.SubmitForm(ctx, doc, "/plans", map[string]string{
			"Goal":                   "fat_loss",
			"Training days per week": "9",
			"Duration (weeks)":       "4",
		})
		var statusErr *e2etest.StatusError
		if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusUnprocessableEntity {
			t.Errorf("Expected status %d, got %v", http.StatusUnprocessableEntity, err)
		}
	})

	t.Run("Active plan API", func(t *testing.T) {
		resp, getErr := client.Get(ctx, "/api/plans/active")
		if getErr != nil {
			t.Fatalf("Failed to get active plan: %v", getErr)
		}
		defer func() {
			_ = resp.Body.Close()
		}()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", resp.StatusCode)
		}
		var plan planResponse
		if err = json.NewDecoder(resp.Body).Decode(&plan); err != nil {
			t.Fatalf("Failed to decode plan: %v", err)
		}
		if "/plans/"+plan.ID != firstPlanPath {
			t.Errorf("Expected active plan %s, got %s", firstPlanPath, plan.ID)
		}
		if plan.DaysPerWeek != 4 || len(plan.Schedule) != 4 {
			t.Errorf("Expected 4 scheduled days, got %d and %d", plan.DaysPerWeek, len(plan.Schedule))
		}
		for _, day := range plan.Schedule {
			if len(day.Exercises) == 0 {
				t.Errorf("Expected exercises on day %d", day.DayNumber)
			}
		}
	})

	t.Run("New plan replaces the active plan", func(t *testing.T) {
		doc := generatePlan(ctx, t, client, "endurance", 3, 4)
		secondPlanPath := doc.Url.Path

		if doc, err = client.GetDoc(ctx, "/plans/active"); err != nil {
			t.Fatalf("Failed to get active plan: %v", err)
		}
		if doc.Url.Path != "/plans/active" || doc.Find("h1").Text() != "Endurance Plan - 4 weeks" {
			t.Errorf("Expected the endurance plan to be active, got %q", doc.Find("h1").Text())
		}

		if doc, err = client.GetDoc(ctx, "/plans"); err != nil {
			t.Fatalf("Failed to list plans: %v", err)
		}
		if got := doc.Find(".plan-list li a").Length(); got != 2 {
			t.Errorf("Expected 2 plans, got %d", got)
		}
		if got := doc.Find(".plan-list li a").First().AttrOr("href", ""); got != secondPlanPath {
			t.Errorf("Expected the newest plan first, got %s", got)
		}
	})

	t.Run("Delete plan", func(t *testing.T) {
		doc, getErr := client.GetDoc(ctx, firstPlanPath)
		if getErr != nil {
			t.Fatalf("Failed to get plan: %v", getErr)
		}
		if doc, err = client.SubmitForm(ctx, doc, firstPlanPath+"/delete", nil); err != nil {
			t.Fatalf("Failed to delete plan: %v", err)
		}
		if got := doc.Find(".plan-list li a").Length(); got != 1 {
			t.Errorf("Expected 1 plan after delete, got %d", got)
		}
		resp, getErr := client.Get(ctx, firstPlanPath)
		if getErr != nil {
			t.Fatalf("Failed to get deleted plan: %v", getErr)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("Expected deleted plan to be gone, got status %d", resp.StatusCode)
		}
	})

	t.Run("Plans are private", func(t *testing.T) {
		other, clientErr := e2etest.NewClient(server.URL(), "localhost", "http://localhost:0")
		if clientErr != nil {
			t.Fatalf("Failed to create client: %v", clientErr)
		}
		if _, err = other.Register(ctx); err != nil {
			t.Fatalf("Failed to register: %v", err)
		}
		doc, getErr := client.GetDoc(ctx, "/plans")
		if getErr != nil {
			t.Fatalf("Failed to list plans: %v", getErr)
		}
		planPath := doc.Find(".plan-list li a").First().AttrOr("href", "")
		resp, getErr := other.Get(ctx, planPath)
		if getErr != nil {
			t.Fatalf("Failed to get plan: %v", getErr)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("Expected another user's plan to be not found, got status %d", resp.StatusCode)
		}
	})
}
