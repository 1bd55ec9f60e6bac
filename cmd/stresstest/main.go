package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/myrjola/fitplan/internal/e2etest"
	"github.com/myrjola/fitplan/internal/errors"
	"github.com/myrjola/fitplan/internal/logging"
	"github.com/myrjola/fitplan/internal/testhelpers"
	"golang.org/x/sync/errgroup"
)

const (
	testTimeout                = 10 * time.Second
	userRegistrationTimeout    = 30 * time.Second
	scenarioTimeout            = 30 * time.Second
	historyTimeout             = 5 * time.Minute
	maxConcurrentRegistrations = 10
	maxConcurrentOperations    = 20
	numUsers                   = 10
	successRateThreshold       = 95.0
	expectedArgsCount          = 2
	percentageMultiplier       = 100
	historyWeeks               = 26
	daysPerWeek                = 7
	baseWeightKg               = 80.0
	weightRangeKg              = 6.0
	baseReps                   = 8
	repsRange                  = 5
)

var (
	goals  = []string{"weight_loss", "muscle_gain", "endurance", "general_fitness"}
	levels = []string{"beginner", "intermediate", "advanced"}
)

// AuthenticatedUser holds a client with a valid session.
type AuthenticatedUser struct {
	Client *e2etest.Client
	UserID string
}

func TestAuth(client *e2etest.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()
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

// RegisterAndOnboardUser creates a new user with a filled in profile.
func RegisterAndOnboardUser(
	ctx context.Context,
	url, hostname string,
	userIndex int,
	logger *slog.Logger,
) (*AuthenticatedUser, error) {
	client, err := e2etest.NewClient(url, hostname, url)
	if err != nil {
		return nil, fmt.Errorf("creating client for user %d: %w", userIndex, err)
	}
	if _, err = client.Register(ctx); err != nil {
		return nil, fmt.Errorf("registering user %d: %w", userIndex, err)
	}
	if _, err = client.Onboard(ctx, e2etest.Profile{
		DisplayName: fmt.Sprintf("Stress User %d", userIndex),
		Level:       levels[userIndex%len(levels)],
		Equipment:   "none,bands,dumbbells",
	}); err != nil {
		return nil, fmt.Errorf("onboarding user %d: %w", userIndex, err)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "User registered and onboarded", slog.Int("user_index", userIndex))

	return &AuthenticatedUser{
		Client: client,
		UserID: fmt.Sprintf("user_%d", userIndex),
	}, nil
}

// SetupUsers registers and onboards the specified number of users.
func SetupUsers(ctx context.Context, url, hostname string, count int, logger *slog.Logger) ([]*AuthenticatedUser, error) {
	logger.LogAttrs(ctx, slog.LevelInfo, "Starting user registration", slog.Int("num_users", count))

	var (
		users   = make([]*AuthenticatedUser, 0, count)
		usersMu sync.Mutex
		g       errgroup.Group
	)
	g.SetLimit(maxConcurrentRegistrations)

	for i := range count {
		g.Go(func() error {
			userCtx, cancel := context.WithTimeout(ctx, userRegistrationTimeout)
			defer cancel()

			user, err := RegisterAndOnboardUser(userCtx, url, hostname, i, logger)
			if err != nil {
				return fmt.Errorf("user %d: %w", i, err)
			}
			usersMu.Lock()
			users = append(users, user)
			usersMu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "Some user registrations failed",
			slog.Int("successful_count", len(users)))
		return users, fmt.Errorf("registration failures: %w", err)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "All users registered successfully", slog.Int("total_users", len(users)))
	return users, nil
}

// GenerateProgressHistory generates a plan and logs half a year of weekly workouts against it.
func GenerateProgressHistory(ctx context.Context, user *AuthenticatedUser, logger *slog.Logger) error {
	client := user.Client
	if _, err := client.GeneratePlan(ctx, "general_fitness", 3, historyWeeks); err != nil { //nolint:mnd // 3 days.
		return fmt.Errorf("generate plan: %w", err)
	}

	now := time.Now()
	start := now.AddDate(0, -6, 0)
	for week := range historyWeeks {
		date := start.AddDate(0, 0, week*daysPerWeek)
		if date.After(now) {
			continue
		}
		if _, err := client.LogProgress(ctx, randomProgress(date, week)); err != nil {
			logger.LogAttrs(ctx, slog.LevelWarn, "Failed to log progress",
				slog.String("user_id", user.UserID),
				slog.String("date", date.Format(time.DateOnly)),
				errors.SlogError(err))
			continue
		}
	}
	return nil
}

func randomProgress(date time.Time, week int) e2etest.Progress {
	return e2etest.Progress{
		Date:     date.Format(time.DateOnly),
		WeightKg: baseWeightKg - float64(week)*0.1 + rand.Float64()*weightRangeKg, //nolint:gosec,mnd // not crypto.
		Mood:     1 + rand.IntN(5),                                                //nolint:gosec,mnd // 1-5 scale.
		Energy:   1 + rand.IntN(5),                                                //nolint:gosec,mnd // 1-5 scale.
		Notes:    fmt.Sprintf("Week %d session", week+1),
		Sets:     3,                               //nolint:mnd // typical set count.
		Reps:     baseReps + rand.IntN(repsRange), //nolint:gosec // not crypto.
		Effort:   5 + rand.IntN(5),                //nolint:gosec,mnd // moderate to hard.
	}
}

// GenerateProgressHistoryForUsers generates progress history for all users concurrently.
func GenerateProgressHistoryForUsers(ctx context.Context, users []*AuthenticatedUser, logger *slog.Logger) error {
	var g errgroup.Group
	g.SetLimit(maxConcurrentRegistrations)

	for _, user := range users {
		g.Go(func() error {
			historyCtx, cancel := context.WithTimeout(ctx, historyTimeout)
			defer cancel()

			if err := GenerateProgressHistory(historyCtx, user, logger); err != nil {
				return fmt.Errorf("user %s: %w", user.UserID, err)
			}
			logger.LogAttrs(historyCtx, slog.LevelDebug, "Generated progress history",
				slog.String("user_id", user.UserID))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("progress history generation failures: %w", err)
	}
	return nil
}

// PlanScenario regenerates a plan and reads it back through the pages and the JSON API.
func PlanScenario(ctx context.Context, user *AuthenticatedUser, logger *slog.Logger) error {
	client := user.Client
	goal := goals[rand.IntN(len(goals))] //nolint:gosec // not crypto.
	days := 2 + rand.IntN(4)             //nolint:gosec,mnd // 2-5 days.
	weeks := 4 + rand.IntN(9)            //nolint:gosec,mnd // 4-12 weeks.

	if _, err := client.GeneratePlan(ctx, goal, days, weeks); err != nil {
		return fmt.Errorf("generate plan: %w", err)
	}
	doc, err := client.GetDoc(ctx, "/plans/active")
	if err != nil {
		return fmt.Errorf("get active plan: %w", err)
	}
	if got := doc.Find(".plan-day").Length(); got != days {
		return fmt.Errorf("expected %d plan days, got %d", days, got)
	}

	resp, err := client.Get(ctx, "/api/plans/active")
	if err != nil {
		return fmt.Errorf("get active plan api: %w", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("active plan api returned status %d", resp.StatusCode)
	}

	if _, err = client.LogProgress(ctx, randomProgress(time.Now(), historyWeeks)); err != nil {
		return fmt.Errorf("log progress: %w", err)
	}
	if _, err = client.GetDoc(ctx, "/"); err != nil {
		return fmt.Errorf("get overview: %w", err)
	}

	logger.LogAttrs(ctx, slog.LevelDebug, "Plan scenario completed",
		slog.String("user_id", user.UserID),
		slog.String("goal", goal))
	return nil
}

// RunLoadTest performs the actual load testing with onboarded users.
func RunLoadTest(ctx context.Context, users []*AuthenticatedUser, logger *slog.Logger) error {
	userCount := len(users)
	logger.LogAttrs(ctx, slog.LevelInfo, "Starting load test", slog.Int("num_users", userCount))

	var successCount, failureCount atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentOperations)

	for _, user := range users {
		g.Go(func() error {
			scenarioCtx, cancel := context.WithTimeout(ctx, scenarioTimeout)
			defer cancel()

			if err := PlanScenario(scenarioCtx, user, logger); err != nil {
				failureCount.Add(1)
				logger.LogAttrs(scenarioCtx, slog.LevelWarn, "Scenario failed",
					slog.String("user_id", user.UserID),
					errors.SlogError(err))
				return nil
			}
			successCount.Add(1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("load test failed: %w", err)
	}

	successRate := float64(successCount.Load()) / float64(userCount) * percentageMultiplier
	logger.LogAttrs(ctx, slog.LevelInfo, "Load test completed",
		slog.Int64("successful", successCount.Load()),
		slog.Int64("failed", failureCount.Load()),
		slog.Float64("success_rate", successRate))

	if successRate < successRateThreshold {
		return fmt.Errorf("load test failed: success rate %.1f%% below threshold", successRate)
	}
	return nil
}

func main() {
	logger := testhelpers.NewLogger(os.Stdout)
	ctx := context.Background()

	if len(os.Args) != expectedArgsCount {
		logger.LogAttrs(ctx, slog.LevelError, "usage: stresstest <hostname>")
		os.Exit(1)
	}

	var (
		hostname = os.Args[1]
		start    = time.Now()
	)
	ctx = logging.WithAttrs(ctx, slog.String("hostname", hostname))

	logger.LogAttrs(ctx, slog.LevelInfo, "Running smoke test first...")
	url := "https://" + hostname
	if strings.Contains(hostname, "localhost") {
		url = "http://" + hostname
		hostname = "localhost"
	}
	client, err := e2etest.NewClient(url, hostname, url)
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating client", errors.SlogError(err))
		os.Exit(1)
	}
	if err = client.WaitForReady(ctx, "/api/healthy"); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "server not ready in time", errors.SlogError(err))
		os.Exit(1)
	}
	if err = TestAuth(client); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "smoke test failed", errors.SlogError(err))
		os.Exit(1)
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "Smoke test passed ✓")

	setupStart := time.Now()
	users, err := SetupUsers(ctx, url, hostname, numUsers, logger)
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failed to setup users", errors.SlogError(err))
		os.Exit(1)
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "User setup completed",
		slog.Duration("setup_duration", time.Since(setupStart)),
		slog.Int("onboarded_users", len(users)))

	historyStart := time.Now()
	if err = GenerateProgressHistoryForUsers(ctx, users, logger); err != nil {
		logger.LogAttrs(ctx, slog.LevelWarn, "some progress history generation failed, continuing with load test",
			errors.SlogError(err))
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "Progress history generation completed",
		slog.Duration("history_duration", time.Since(historyStart)),
		slog.Int("weeks_per_user", historyWeeks))

	loadTestStart := time.Now()
	if err = RunLoadTest(ctx, users, logger); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "load test failed", errors.SlogError(err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Load test completed successfully 🙌",
		slog.Duration("total_duration", time.Since(start)),
		slog.Duration("load_test_duration", time.Since(loadTestStart)),
		slog.Int("users_tested", len(users)))
}
