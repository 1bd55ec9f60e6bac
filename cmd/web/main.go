package main

import (
	"context"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/myrjola/fitplan/internal/envstruct"
	"github.com/myrjola/fitplan/internal/errors"
	"github.com/myrjola/fitplan/internal/flightrecorder"
	"github.com/myrjola/fitplan/internal/logging"
	"github.com/myrjola/fitplan/internal/schedule"
	"github.com/myrjola/fitplan/internal/sqlite"
	"github.com/myrjola/fitplan/internal/webauthnhandler"
	"github.com/myrjola/fitplan/internal/workout"
	"github.com/yuin/goldmark"
)

type application struct {
	logger          *slog.Logger
	webAuthnHandler *webauthnhandler.WebAuthnHandler
	sessionManager  *scs.SessionManager
	templateFS      fs.FS
	workoutService  *workout.Service
	markdown        goldmark.Markdown
	requestTimeout  time.Duration
	maintenance     bool
	// flightRecorder is nil when trace capture is disabled.
	flightRecorder *flightrecorder.Recorder
}

type config struct {
	// Addr is the address to listen on. It's possible to choose the address dynamically with localhost:0.
	Addr string `env:"FITPLAN_ADDR" envDefault:"localhost:8081"`
	// FQDN is the fully qualified domain name of the server used for WebAuthn Relying Party configuration.
	FQDN string `env:"FITPLAN_FQDN" envDefault:"localhost"`
	// SqliteURL is the URL to the SQLite database. You can use ":memory:" for an ethereal in-memory database.
	SqliteURL string `env:"FITPLAN_SQLITE_URL" envDefault:"./fitplan.sqlite3"`
	// TemplatePath is the path to the directory containing the HTML templates.
	TemplatePath string `env:"FITPLAN_TEMPLATE_PATH" envDefault:""`
	// TablesPath optionally replaces the embedded training tables with a YAML file.
	TablesPath string `env:"FITPLAN_TABLES_PATH" envDefault:""`
	// RequestTimeout bounds the handling of a single request.
	RequestTimeout time.Duration `env:"FITPLAN_REQUEST_TIMEOUT" envDefault:"2s"`
	// MaintenanceMode answers every page with 503 and a maintenance notice.
	MaintenanceMode bool `env:"FITPLAN_MAINTENANCE_MODE" envDefault:"false"`
	// TracesDir enables writing an execution trace of timed out requests to this directory.
	TracesDir string `env:"FITPLAN_TRACES_DIR" envDefault:""`
}

func loadTables(path string) (*schedule.Tables, error) {
	if path == "" {
		return schedule.DefaultTables() //nolint:wrapcheck // the embedded tables are validated by tests.
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read tables", slog.String("path", path))
	}
	tables, err := schedule.LoadTables(data)
	if err != nil {
		return nil, errors.Wrap(err, "load tables", slog.String("path", path))
	}
	return tables, nil
}

func run(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error {
	var (
		cancel context.CancelFunc
		err    error
	)

	ctx, cancel = signal.NotifyContext(ctx, os.Interrupt)
	defer cancel()

	var cfg config
	if err = envstruct.Populate(&cfg, lookupEnv); err != nil {
		return errors.Wrap(err, "populate config")
	}

	var htmlTemplatePath string
	if htmlTemplatePath, err = resolveAndVerifyTemplatePath(cfg.TemplatePath); err != nil {
		return errors.Wrap(err, "resolve template path")
	}

	tables, err := loadTables(cfg.TablesPath)
	if err != nil {
		return err
	}

	db, err := sqlite.NewDatabase(ctx, cfg.SqliteURL, logger)
	if err != nil {
		return errors.Wrap(err, "open db", slog.String("url", cfg.SqliteURL))
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.LogAttrs(ctx, slog.LevelError, "failed to close db", errors.SlogError(closeErr))
		}
	}()
	logger.LogAttrs(ctx, slog.LevelInfo, "connected to db")

	sessionManager := initializeSessionManager(db)

	var webAuthnHandler *webauthnhandler.WebAuthnHandler
	if webAuthnHandler, err = webauthnhandler.New(cfg.Addr, cfg.FQDN, logger, sessionManager, db); err != nil {
		return errors.Wrap(err, "new webauthn handler")
	}

	generator := schedule.NewGenerator(tables, schedule.WithClock(time.Now))
	app := application{
		logger:          logger,
		webAuthnHandler: webAuthnHandler,
		sessionManager:  sessionManager,
		templateFS:      os.DirFS(htmlTemplatePath),
		workoutService:  workout.NewService(db, logger, generator, time.Now),
		markdown:        newMarkdown(),
		requestTimeout:  cfg.RequestTimeout,
		maintenance:     cfg.MaintenanceMode,
		flightRecorder:  nil,
	}
	if cfg.TracesDir != "" {
		if app.flightRecorder, err = flightrecorder.New(logger, flightrecorder.Config{
			Directory: cfg.TracesDir,
			MinAge:    0,
			MaxBytes:  0,
			Cooldown:  0,
			Now:       time.Now,
		}); err != nil {
			return errors.Wrap(err, "new flight recorder")
		}
		if err = app.flightRecorder.Start(ctx); err != nil {
			return errors.Wrap(err, "start flight recorder")
		}
		defer app.flightRecorder.Stop(ctx)
	}
	if app.maintenance {
		logger.LogAttrs(ctx, slog.LevelWarn, "maintenance mode enabled")
	}

	handler, err := app.routes()
	if err != nil {
		return errors.Wrap(err, "setup routes")
	}
	if err = app.configureAndStartServer(ctx, cfg.Addr, handler); err != nil {
		return errors.Wrap(err, "start server")
	}
	return nil
}

func initializeSessionManager(dbs *sqlite.Database) *scs.SessionManager {
	sessionManager := scs.New()
	sessionManager.Store = sqlite3store.NewWithCleanupInterval(dbs.ReadWrite, 24*time.Hour) //nolint:mnd // day
	sessionManager.Lifetime = 12 * time.Hour                                                //nolint:mnd // half a day
	sessionManager.Cookie.Persist = true
	sessionManager.Cookie.Secure = true
	sessionManager.Cookie.HttpOnly = true
	sessionManager.Cookie.SameSite = http.SameSiteStrictMode
	return sessionManager
}

func main() {
	ctx := context.Background()
	level := new(slog.LevelVar)
	level.Set(slog.LevelDebug)
	logger := logging.NewTextLogger(os.Stdout, level, nil)
	if raw, ok := os.LookupEnv("FITPLAN_LOG_LEVEL"); ok {
		if err := level.UnmarshalText([]byte(raw)); err != nil {
			logger.LogAttrs(ctx, slog.LevelWarn, "invalid FITPLAN_LOG_LEVEL, using DEBUG", slog.String("level", raw))
		}
	}
	if err := run(ctx, logger, os.LookupEnv); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failure starting application", errors.SlogError(err))
		os.Exit(1)
	}
}
