package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/myrjola/fitplan/internal/e2etest"
	"github.com/myrjola/fitplan/internal/errors"
	"github.com/myrjola/fitplan/internal/logging"
	"github.com/myrjola/fitplan/internal/testhelpers"
)

const smokeTimeout = 10 * time.Second

func TestAuth(ctx context.Context, client *e2etest.Client) error {
	var err error
	if _, err = client.Register(ctx); err != nil {
		return fmt.Errorf("register user: %w", err)
	}
	if _, err = client.Logout(ctx); err != nil {
		return fmt.Errorf("logout user: %w", err)
	}
	if _, err = client.Login(ctx); err != nil {
		return fmt.Errorf("login user: %w", err)
	}
	return nil
}

// TestPlan walks through onboarding, plan generation and logging a single workout.
func TestPlan(ctx context.Context, client *e2etest.Client) error {
	if _, err := client.Onboard(ctx, e2etest.Profile{
		DisplayName: "Smoke Test",
		Level:       "beginner",
		Equipment:   "none",
	}); err != nil {
		return fmt.Errorf("onboard: %w", err)
	}
	doc, err := client.GeneratePlan(ctx, "general_fitness", 3, 4) //nolint:mnd // short plan is enough.
	if err != nil {
		return fmt.Errorf("generate plan: %w", err)
	}
	if doc.Find(".plan-day").Length() != 3 { //nolint:mnd // three training days requested.
		return fmt.Errorf("expected 3 plan days, got %d", doc.Find(".plan-day").Length())
	}
	if _, err = client.LogProgress(ctx, e2etest.Progress{
		Date:     time.Now().Format(time.DateOnly),
		WeightKg: 75,
		Mood:     4,
		Energy:   4,
		Notes:    "Smoke test workout",
		Sets:     3,
		Reps:     10,
		Effort:   6,
	}); err != nil {
		return fmt.Errorf("log progress: %w", err)
	}
	return nil
}

func main() {
	logger := testhelpers.NewLogger(os.Stdout)
	ctx := context.Background()

	if len(os.Args) != 2 { //nolint:mnd // we expect only hostname to be passed as argument.
		logger.LogAttrs(ctx, slog.LevelError, "usage: smoketest <hostname>")
		os.Exit(1)
	}

	var (
		hostname = os.Args[1]
		client   *e2etest.Client
		err      error
		start    = time.Now()
	)
	ctx = logging.WithAttrs(ctx, slog.String("hostname", hostname))
	url := "https://" + hostname
	if strings.Contains(hostname, "localhost") {
		url = "http://" + hostname
		hostname = "localhost"
	}

	if client, err = e2etest.NewClient(url, hostname, url); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating client", errors.SlogError(err))
		os.Exit(1)
	}
	if err = client.WaitForReady(ctx, "/api/healthy"); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "server not ready in time", errors.SlogError(err))
		os.Exit(1)
	}

	smokeCtx, cancel := context.WithTimeout(ctx, smokeTimeout)
	defer cancel()
	if err = TestAuth(smokeCtx, client); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error testing auth", errors.SlogError(err))
		os.Exit(1) //nolint:gocritic // cancel is irrelevant on exit.
	}
	if err = TestPlan(smokeCtx, client); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error testing plan flow", errors.SlogError(err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Smoke test successful 🙌", slog.Duration("duration", time.Since(start)))
}
