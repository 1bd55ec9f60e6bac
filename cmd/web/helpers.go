package main

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/myrjola/fitplan/internal/errors"
	"github.com/myrjola/fitplan/internal/workout"
)

type errorTemplateData struct {
	BaseTemplateData
	Title   string
	Message string
}

func (app *application) serverError(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.LogAttrs(r.Context(), slog.LevelError, "server error", errors.SlogError(err))
	app.render(w, r, http.StatusInternalServerError, "error", errorTemplateData{
		BaseTemplateData: newBaseTemplateData(r),
		Title:            "Something went wrong",
		Message:          "The server failed to handle your request. Please try again later.",
	})
}

func (app *application) notFound(w http.ResponseWriter, r *http.Request) {
	app.render(w, r, http.StatusNotFound, "not-found", newBaseTemplateData(r))
}

// clientError renders the error page with a message the user can act on.
func (app *application) clientError(w http.ResponseWriter, r *http.Request, status int, message string) {
	app.logger.LogAttrs(r.Context(), slog.LevelDebug, "client error",
		slog.Int("status", status), slog.String("message", message))
	app.render(w, r, status, "error", errorTemplateData{
		BaseTemplateData: newBaseTemplateData(r),
		Title:            http.StatusText(status),
		Message:          message,
	})
}

// handleServiceError maps the workout service sentinels to responses.
func (app *application) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, workout.ErrNotFound):
		app.notFound(w, r)
	case errors.Is(err, workout.ErrInvalidRequest):
		app.clientError(w, r, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, workout.ErrNoActivePlan):
		app.clientError(w, r, http.StatusConflict, "Generate a plan before logging progress.")
	default:
		app.serverError(w, r, err)
	}
}

// redirect detects if the request is originating from a fetch API call or a top-level navigation and points the user
// to the correct URL.
func redirect(w http.ResponseWriter, r *http.Request, path string) {
	if r.Header.Get("Sec-Fetch-Dest") == "empty" {
		w.Header().Set("Content-Location", path)
		w.WriteHeader(http.StatusOK)
		return
	}

	http.Redirect(w, r, path, http.StatusSeeOther)
}

// parseIDParam parses the numeric "id" path parameter. On failure it renders the not found page and returns false.
func (app *application) parseIDParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id < 1 {
		app.notFound(w, r)
		return 0, false
	}
	return id, true
}
