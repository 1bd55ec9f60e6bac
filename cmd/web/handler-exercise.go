package main

import (
	"net/http"

	"github.com/myrjola/fitplan/internal/workout"
)

type exerciseTemplateData struct {
	BaseTemplateData
	Exercise workout.Exercise
}

// exerciseGET shows the instructions of a catalog exercise.
func (app *application) exerciseGET(w http.ResponseWriter, r *http.Request) {
	id, ok := app.parseIDParam(w, r)
	if !ok {
		return
	}
	exercise, err := app.workoutService.Exercise(r.Context(), id)
	if err != nil {
		app.handleServiceError(w, r, err)
		return
	}
	app.render(w, r, http.StatusOK, "exercise", exerciseTemplateData{
		BaseTemplateData: newBaseTemplateData(r),
		Exercise:         exercise,
	})
}
