package main

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/myrjola/fitplan/internal/e2etest"
	"github.com/myrjola/fitplan/internal/testhelpers"
)

func Test_application_progress(t *testing.T) {
	var (
		ctx = t.Context()
		doc *goquery.Document
	)
	server, err := e2etest.StartServer(t, testhelpers.NewWriter(t), testLookupEnv, run)
	if err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	client := server.Client()
	onboard(ctx, t, client)

	t.Run("Requires an active plan", func(t *testing.T) {
		if doc, err = client.GetDoc(ctx, "/progress"); err != nil {
			t.Fatalf("Failed to get progress: %v", err)
		}
		if _, err = e2etest.FindForm(doc, "/progress"); err == nil {
			t.Error("Expected no progress form without an active plan")
		}
		if doc.Find("main a[href='/plans/new']").Length() != 1 {
			t.Error("Expected a link to generate a plan")
		}
	})

	generatePlan(ctx, t, client, "general_fitness", 3, 6)

	t.Run("Log workout", func(t *testing.T) {
		if doc, err = client.GetDoc(ctx, "/progress"); err != nil {
			t.Fatalf("Failed to get progress: %v", err)
		}
		exerciseID := doc.Find("#new-exercise-1 option[value!='']").First().AttrOr("value", "")
		if exerciseID == "" {
			t.Fatal("Expected the plan's exercises to be selectable")
		}
		if doc, err = client.SubmitForm(ctx, doc, "/progress", map[string]string{
			"Date":                         "2025-03-01",
			"Body weight (kg)":             "81.5",
			"Mood (1-5)":                   "4",
			"Energy (1-5)":                 "3",
			"Duration (minutes)":           "50",
			"Notes":                        "Felt **strong** today",
			"Exercise 1":                   exerciseID,
			"Sets for exercise 1":          "3",
			"Reps for exercise 1":          "10",
			"Load for exercise 1 (kg)":     "40",
			"Effort for exercise 1 (1-10)": "7",
		}); err != nil {
			t.Fatalf("Failed to log workout: %v", err)
		}

		entries := doc.Find(".progress-entry")
		if entries.Length() != 1 {
			t.Fatalf("Expected 1 progress entry, got %d", entries.Length())
		}
		if got := entries.Find("h2").Text(); got != "Saturday, Mar 1, 2025" {
			t.Errorf("Expected entry date heading, got %q", got)
		}
		if got := entries.Find(".notes strong").Text(); got != "strong" {
			t.Errorf("Expected notes rendered as markdown, got %q", got)
		}
		if got := entries.Find(".progress-exercise").Length(); got != 1 {
			t.Errorf("Expected 1 logged exercise, got %d", got)
		}
	})

	t.Run("Out of range mood is rejected", func(t *testing.T) {
		if doc, err = client.GetDoc(ctx, "/progress"); err != nil {
			t.Fatalf("Failed to get progress: %v", err)
		}
		_, err = client.SubmitForm(ctx, doc, "/progress", map[string]string{
			"Body weight (kg)": "80",
			"Mood (1-5)":       "9",
			"Energy (1-5)":     "3",
		})
		var statusErr *e2etest.StatusError
		if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusUnprocessableEntity {
			t.Errorf("Expected status %d, got %v", http.StatusUnprocessableEntity, err)
		}
	})

	var updateAction string

	t.Run("Update entry", func(t *testing.T) {
		if doc, err = client.GetDoc(ctx, "/progress"); err != nil {
			t.Fatalf("Failed to get progress: %v", err)
		}
		updateAction = doc.Find(".progress-entry form[action$='/update']").AttrOr("action", "")
		if updateAction == "" {
			t.Fatal("Expected an edit form for the entry")
		}
		if doc, err = client.SubmitForm(ctx, doc, updateAction, map[string]string{
			"Body weight (kg)": "80.2",
			"Mood (1-5)":       "5",
			"Energy (1-5)":     "5",
			"Notes":            "Edited",
		}); err != nil {
			t.Fatalf("Failed to update entry: %v", err)
		}
		entry := doc.Find(".progress-entry")
		if got := entry.Find("h2").Text(); got != "Saturday, Mar 1, 2025" {
			t.Errorf("Expected the date to stay, got %q", got)
		}
		if got := entry.Find("p").First().Text(); !strings.Contains(got, "80.2 kg") {
			t.Errorf("Expected updated weight, got %q", got)
		}
	})

	t.Run("Filter by date", func(t *testing.T) {
		if doc, err = client.GetDoc(ctx, "/progress?from=2025-03-02"); err != nil {
			t.Fatalf("Failed to get progress: %v", err)
		}
		if got := doc.Find(".progress-entry").Length(); got != 0 {
			t.Errorf("Expected no entries after the filter date, got %d", got)
		}
		if doc, err = client.GetDoc(ctx, "/progress?from=2025-03-01&to=2025-03-01"); err != nil {
			t.Fatalf("Failed to get progress: %v", err)
		}
		if got := doc.Find(".progress-entry").Length(); got != 1 {
			t.Errorf("Expected 1 entry on the filter date, got %d", got)
		}
	})

	t.Run("Delete entry", func(t *testing.T) {
		if doc, err = client.GetDoc(ctx, "/progress"); err != nil {
			t.Fatalf("Failed to get progress: %v", err)
		}
		deleteAction := strings.TrimSuffix(updateAction, "/update") + "/delete"
		if doc, err = client.SubmitForm(ctx, doc, deleteAction, nil); err != nil {
			t.Fatalf("Failed to delete entry: %v", err)
		}
		if got := doc.Find(".progress-entry").Length(); got != 0 {
			t.Errorf("Expected no entries after delete, got %d", got)
		}
	})
}
