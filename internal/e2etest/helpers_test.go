package e2etest_test

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/myrjola/fitplan/internal/e2etest"
)

const formHTML = `<html><body>
<form action="/progress" method="post">
  <label for="weight">Body weight (kg)</label>
  <input id="weight" name="weight_kg" type="number">
  <label>Notes <textarea name="notes"></textarea></label>
  <label for="equipment">Equipment</label>
  <select id="equipment" name="equipment" multiple><option value="none">None</option></select>
  <label for="goal">Goal</label>
  <select id="goal" name="goal"><option value="fat_loss">Fat loss</option></select>
</form>
</body></html>`

func parseForm(t *testing.T) *goquery.Selection {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(formHTML))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	form, err := e2etest.FindForm(doc, "/progress")
	if err != nil {
		t.Fatalf("FindForm: %v", err)
	}
	return form
}

func TestFindInputForLabel(t *testing.T) {
	form := parseForm(t)
	tests := []struct {
		label    string
		wantName string
	}{
		{label: "Body weight (kg)", wantName: "weight_kg"},
		{label: "Notes", wantName: "notes"},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			input, err := e2etest.FindInputForLabel(form, tt.label)
			if err != nil {
				t.Fatalf("FindInputForLabel: %v", err)
			}
			if got := input.AttrOr("name", ""); got != tt.wantName {
				t.Errorf("name = %q, want %q", got, tt.wantName)
			}
		})
	}

	if _, err := e2etest.FindInputForLabel(form, "Missing"); err == nil {
		t.Error("expected error for missing label")
	}
}

func TestFindSelectForLabel(t *testing.T) {
	form := parseForm(t)
	equipment, err := e2etest.FindSelectForLabel(form, "Equipment")
	if err != nil {
		t.Fatalf("FindSelectForLabel: %v", err)
	}
	if !e2etest.IsMultipleSelect(equipment) {
		t.Error("equipment select should be multiple")
	}
	goal, err := e2etest.FindSelectForLabel(form, "Goal")
	if err != nil {
		t.Fatalf("FindSelectForLabel: %v", err)
	}
	if e2etest.IsMultipleSelect(goal) {
		t.Error("goal select should not be multiple")
	}
}

func TestFindForm_missing(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(formHTML))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	if _, err = e2etest.FindForm(doc, "/plans"); err == nil {
		t.Error("expected error for missing form")
	}
}
