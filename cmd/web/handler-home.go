package main

import (
	"net/http"

	"github.com/myrjola/fitplan/internal/workout"
)

type homeTemplateData struct {
	BaseTemplateData
	// Overview is only loaded for authenticated users.
	Overview workout.Overview
}

func (app *application) home(w http.ResponseWriter, r *http.Request) {
	data := homeTemplateData{
		BaseTemplateData: newBaseTemplateData(r),
		Overview:         workout.Overview{},
	}

	// Only fetch workout data for authenticated users
	if data.Authenticated {
		overview, err := app.workoutService.Overview(r.Context())
		if err != nil {
			app.serverError(w, r, err)
			return
		}
		data.Overview = overview
	}

	app.render(w, r, http.StatusOK, "home", data)
}
