package main

import (
	"net/http"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/myrjola/fitplan/internal/e2etest"
	"github.com/myrjola/fitplan/internal/testhelpers"
)

func Test_application_notFound(t *testing.T) {
	ctx := t.Context()
	server, err := e2etest.StartServer(t, testhelpers.NewWriter(t), testLookupEnv, run)
	if err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	client := server.Client()

	// Register a user first (required for mustSession routes)
	if _, err = client.Register(ctx); err != nil {
		t.Fatalf("Failed to register: %v", err)
	}

	tests := []struct {
		name string
		path string
	}{
		{name: "nonexistent path", path: "/nonexistent"},
		{name: "traversal attempt", path: "/../go.mod"},
		{name: "invalid exercise ID", path: "/exercises/not-a-number"},
		{name: "unknown exercise", path: "/exercises/99999"},
		{name: "malformed plan ID", path: "/plans/not-a-uuid"},
		{name: "unknown plan", path: "/plans/0b9c5d4e-0c64-4a4e-9f3b-0a2f4d9c6b11"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, getErr := client.Get(ctx, tt.path)
			if getErr != nil {
				t.Fatalf("Failed to get %s: %v", tt.path, getErr)
			}
			defer func() {
				_ = resp.Body.Close()
			}()

			if resp.StatusCode != http.StatusNotFound {
				t.Errorf("Expected status code %d, got %d", http.StatusNotFound, resp.StatusCode)
			}
			doc, parseErr := goquery.NewDocumentFromReader(resp.Body)
			if parseErr != nil {
				t.Fatalf("Failed to parse 404 document: %v", parseErr)
			}
			checkCustom404Content(t, doc)
		})
	}
}

func checkCustom404Content(t *testing.T, doc *goquery.Document) {
	t.Helper()

	if title := doc.Find("h1").First().Text(); !strings.Contains(title, "404") {
		t.Errorf("Expected title to contain '404', got: %s", title)
	}
	if subtitle := doc.Find("h2").First().Text(); !strings.Contains(subtitle, "Page Not Found") {
		t.Errorf("Expected subtitle to contain 'Page Not Found', got: %s", subtitle)
	}
	homeLinks := doc.Find("main a[href='/']")
	if homeLinks.Length() == 0 {
		t.Fatal("Expected a link to the home page")
	}
	if text := homeLinks.First().Text(); !strings.Contains(text, "Go Home") {
		t.Errorf("Expected home link to say 'Go Home', got: %s", text)
	}
}
