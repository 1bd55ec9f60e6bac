package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/myrjola/fitplan/internal/errors"
	"github.com/myrjola/fitplan/internal/schedule"
	"github.com/myrjola/fitplan/internal/workout"
)

const (
	defaultDaysPerWeek   = 3
	defaultDurationWeeks = 8
)

type planNewTemplateData struct {
	BaseTemplateData
	Goals         []selectOption
	DaysPerWeek   int
	DurationWeeks int
	Error         string
}

func newPlanNewTemplateData(r *http.Request, req workout.PlanRequest) planNewTemplateData {
	data := planNewTemplateData{
		BaseTemplateData: newBaseTemplateData(r),
		Goals:            nil,
		DaysPerWeek:      req.DaysPerWeek,
		DurationWeeks:    req.DurationWeeks,
		Error:            "",
	}
	for _, goal := range schedule.Goals() {
		data.Goals = append(data.Goals, selectOption{
			Value:    string(goal),
			Label:    goal.Title(),
			Selected: goal == req.Goal,
		})
	}
	return data
}

func (app *application) planNewGET(w http.ResponseWriter, r *http.Request) {
	if _, err := app.workoutService.Profile(r.Context()); err != nil {
		if errors.Is(err, workout.ErrNotFound) {
			redirect(w, r, "/profile")
			return
		}
		app.serverError(w, r, err)
		return
	}
	data := newPlanNewTemplateData(r, workout.PlanRequest{
		Goal:          schedule.GoalGeneralFitness,
		DaysPerWeek:   defaultDaysPerWeek,
		DurationWeeks: defaultDurationWeeks,
	})
	app.render(w, r, http.StatusOK, "plan-new", data)
}

// atoiOrZero parses form numbers. Invalid input becomes zero which fails validation downstream.
func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func (app *application) planCreatePOST(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		app.serverError(w, r, fmt.Errorf("parse form: %w", err))
		return
	}

	req := workout.PlanRequest{
		Goal:          schedule.Goal(r.PostForm.Get("goal")),
		DaysPerWeek:   atoiOrZero(r.PostForm.Get("days_per_week")),
		DurationWeeks: atoiOrZero(r.PostForm.Get("duration_weeks")),
	}

	plan, err := app.workoutService.GeneratePlan(r.Context(), req)
	switch {
	case errors.Is(err, workout.ErrNotFound):
		// The profile is missing.
		redirect(w, r, "/profile")
		return
	case errors.Is(err, workout.ErrInvalidRequest):
		data := newPlanNewTemplateData(r, req)
		data.Error = err.Error()
		app.render(w, r, http.StatusUnprocessableEntity, "plan-new", data)
		return
	case err != nil:
		app.serverError(w, r, err)
		return
	}

	redirect(w, r, "/plans/"+plan.PublicID)
}

type planTemplateData struct {
	BaseTemplateData
	Plan workout.Plan
}

func (app *application) renderPlan(w http.ResponseWriter, r *http.Request, plan workout.Plan, err error) {
	if err != nil {
		app.handleServiceError(w, r, err)
		return
	}
	app.render(w, r, http.StatusOK, "plan", planTemplateData{
		BaseTemplateData: newBaseTemplateData(r),
		Plan:             plan,
	})
}

func (app *application) planGET(w http.ResponseWriter, r *http.Request) {
	plan, err := app.workoutService.Plan(r.Context(), r.PathValue("id"))
	app.renderPlan(w, r, plan, err)
}

func (app *application) planActiveGET(w http.ResponseWriter, r *http.Request) {
	plan, err := app.workoutService.ActivePlan(r.Context())
	if errors.Is(err, workout.ErrNotFound) {
		redirect(w, r, "/plans/new")
		return
	}
	app.renderPlan(w, r, plan, err)
}

type plansTemplateData struct {
	BaseTemplateData
	Plans []workout.Plan
}

func (app *application) plansGET(w http.ResponseWriter, r *http.Request) {
	plans, err := app.workoutService.ListPlans(r.Context())
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	app.render(w, r, http.StatusOK, "plans", plansTemplateData{
		BaseTemplateData: newBaseTemplateData(r),
		Plans:            plans,
	})
}

func (app *application) planDeletePOST(w http.ResponseWriter, r *http.Request) {
	if err := app.workoutService.DeletePlan(r.Context(), r.PathValue("id")); err != nil {
		app.handleServiceError(w, r, err)
		return
	}
	redirect(w, r, "/plans")
}

// planResponse is the JSON representation of a plan.
type planResponse struct {
	ID            string                 `json:"id"`
	Name          string                 `json:"name"`
	Description   string                 `json:"description"`
	Goal          schedule.Goal          `json:"goal"`
	Difficulty    schedule.Level         `json:"difficulty"`
	DurationWeeks int                    `json:"durationWeeks"`
	DaysPerWeek   int                    `json:"daysPerWeek"`
	IsDeloadWeek  bool                   `json:"isDeloadWeek"`
	StartDate     string                 `json:"startDate"`
	EndDate       string                 `json:"endDate"`
	Schedule      []schedule.DaySchedule `json:"schedule"`
}

func newPlanResponse(plan workout.Plan) planResponse {
	return planResponse{
		ID:            plan.PublicID,
		Name:          plan.Name,
		Description:   plan.Description,
		Goal:          plan.Goal,
		Difficulty:    plan.Difficulty,
		DurationWeeks: plan.DurationWeeks,
		DaysPerWeek:   plan.DaysPerWeek,
		IsDeloadWeek:  plan.IsDeloadWeek,
		StartDate:     plan.StartDate.Format(time.DateOnly),
		EndDate:       plan.EndDate.Format(time.DateOnly),
		Schedule:      plan.Days,
	}
}

func (app *application) writeJSONResponse(w http.ResponseWriter, r *http.Request, status int, v any) {
	out, err := json.Marshal(v)
	if err != nil {
		app.logger.LogAttrs(r.Context(), slog.LevelError, "failed to encode JSON", errors.SlogError(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(out)
}

// activePlanAPI returns the active plan as JSON for clients that render the schedule themselves.
func (app *application) activePlanAPI(w http.ResponseWriter, r *http.Request) {
	plan, err := app.workoutService.ActivePlan(r.Context())
	switch {
	case errors.Is(err, workout.ErrNotFound):
		app.writeJSONResponse(w, r, http.StatusNotFound, map[string]string{"error": "no active plan"})
		return
	case err != nil:
		app.logger.LogAttrs(r.Context(), slog.LevelError, "failed to load active plan", errors.SlogError(err))
		app.writeJSONResponse(w, r, http.StatusInternalServerError,
			map[string]string{"error": http.StatusText(http.StatusInternalServerError)})
		return
	}
	app.writeJSONResponse(w, r, http.StatusOK, newPlanResponse(plan))
}
