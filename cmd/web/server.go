package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/myrjola/fitplan/internal/e2etest"
)

const (
	shutdownTimeout = 2 * time.Second
	// writeSlack leaves room for writing the response after the request timeout fires.
	writeSlack = 500 * time.Millisecond
)

// configureAndStartServer serves handler on addr until ctx is done and then shuts down gracefully.
func (app *application) configureAndStartServer(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		ErrorLog:          slog.NewLogLogger(app.logger.Handler(), slog.LevelError),
		Handler:           handler,
		IdleTimeout:       time.Minute,
		ReadTimeout:       app.requestTimeout,
		WriteTimeout:      app.requestTimeout + writeSlack,
		ReadHeaderTimeout: time.Second,
	}

	shutdownErr := make(chan error, 1)
	go func() {
		<-ctx.Done()
		app.logger.LogAttrs(context.WithoutCancel(ctx), slog.LevelInfo, "shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			shutdownErr <- fmt.Errorf("shutdown server: %w", err)
			return
		}
		shutdownErr <- nil
	}()

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("TCP listen: %w", err)
	}
	app.logger.LogAttrs(ctx, slog.LevelInfo, "starting server", slog.String(e2etest.LogAddrKey, listener.Addr().String()))
	if err = srv.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server serve: %w", err)
	}
	return <-shutdownErr
}
