package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"testing/synctest"
	"time"

	"github.com/myrjola/fitplan/internal/contexthelpers"
	"github.com/myrjola/fitplan/internal/flightrecorder"
	"github.com/myrjola/fitplan/internal/testhelpers"
)

func Test_application_timeout(t *testing.T) {
	tests := []struct {
		name     string
		sleep    time.Duration
		timesOut bool
	}{
		{
			name:     "completes within timeout",
			sleep:    500 * time.Millisecond,
			timesOut: false,
		},
		{
			name:     "times out",
			sleep:    3 * time.Second,
			timesOut: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			synctest.Test(t, func(t *testing.T) {
				app := &application{ //nolint:exhaustruct // this is a test
					logger:         testhelpers.NewTestLogger(t),
					requestTimeout: 2 * time.Second,
				}
				handler := app.timeout(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					select {
					case <-time.After(tt.sleep):
						_, _ = w.Write([]byte("completed"))
					case <-r.Context().Done():
					}
				}))

				w := httptest.NewRecorder()
				handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

				if tt.timesOut {
					// TimeoutHandler returns 503 Service Unavailable with "timed out" message
					if w.Code != http.StatusServiceUnavailable {
						t.Errorf("Expected status 503 on timeout, got %d", w.Code)
					}
					if !strings.Contains(w.Body.String(), "timed out") {
						t.Errorf("Expected timeout message in response body, got: %s", w.Body.String())
					}
					return
				}
				if w.Code != http.StatusOK {
					t.Errorf("Expected status 200, got %d", w.Code)
				}
			})
		})
	}
}

func Test_application_timeout_capturesTrace(t *testing.T) {
	logger := testhelpers.NewTestLogger(t)
	dir := t.TempDir()
	recorder, err := flightrecorder.New(logger, flightrecorder.Config{
		Directory: dir,
		MinAge:    0,
		MaxBytes:  0,
		Cooldown:  0,
		Now:       nil,
	})
	if err != nil {
		t.Fatalf("Failed to create flight recorder: %v", err)
	}
	if err = recorder.Start(t.Context()); err != nil {
		t.Fatalf("Failed to start flight recorder: %v", err)
	}
	defer recorder.Stop(t.Context())

	app := &application{ //nolint:exhaustruct // this is a test
		logger:         logger,
		requestTimeout: timeoutWriteMargin + 100*time.Millisecond,
		flightRecorder: recorder,
	}
	handler := app.timeout(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503 on timeout, got %d", w.Code)
	}

	// The capture runs after the timeout response has been written.
	deadline := time.Now().Add(5 * time.Second)
	for {
		entries, readErr := os.ReadDir(dir)
		if readErr != nil {
			t.Fatalf("Failed to read trace directory: %v", readErr)
		}
		if len(entries) == 1 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("Expected 1 trace file, got %d", len(entries))
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func Test_application_mustAuthenticate_stopsChain(t *testing.T) {
	app := &application{ //nolint:exhaustruct // this is a test
		logger: testhelpers.NewTestLogger(t),
	}
	var called bool
	handler := app.mustAuthenticate(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/progress", nil))
	if called {
		t.Error("Expected the next handler not to run for anonymous requests")
	}
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/" {
		t.Errorf("Expected redirect to /, got %d %q", w.Code, w.Header().Get("Location"))
	}

	called = false
	w = httptest.NewRecorder()
	req := contexthelpers.AuthenticateContext(httptest.NewRequest(http.MethodGet, "/progress", nil), 1, false)
	handler.ServeHTTP(w, req)
	if !called {
		t.Error("Expected the next handler to run for authenticated requests")
	}
}
