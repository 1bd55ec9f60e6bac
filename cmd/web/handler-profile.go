package main

import (
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/myrjola/fitplan/internal/errors"
	"github.com/myrjola/fitplan/internal/schedule"
	"github.com/myrjola/fitplan/internal/workout"
)

// selectOption is an <option> of a form select.
type selectOption struct {
	Value    string
	Label    string
	Selected bool
}

// humanize turns identifiers such as "muscle_gain" into "Muscle gain".
func humanize(s string) string {
	s = strings.ReplaceAll(s, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

type profileTemplateData struct {
	BaseTemplateData
	DisplayName string
	Levels      []selectOption
	Equipment   []selectOption
	// Error explains why the submitted profile was rejected.
	Error string
}

func (app *application) profileTemplateData(r *http.Request, profile workout.Profile) (profileTemplateData, error) {
	equipment, err := app.workoutService.EquipmentOptions(r.Context())
	if err != nil {
		return profileTemplateData{}, err
	}
	data := profileTemplateData{
		BaseTemplateData: newBaseTemplateData(r),
		DisplayName:      profile.DisplayName,
		Levels:           nil,
		Equipment:        make([]selectOption, 0, len(equipment)),
		Error:            "",
	}
	for _, level := range schedule.Levels() {
		data.Levels = append(data.Levels, selectOption{
			Value:    string(level),
			Label:    humanize(string(level)),
			Selected: level == profile.FitnessLevel,
		})
	}
	for _, name := range equipment {
		data.Equipment = append(data.Equipment, selectOption{
			Value:    name,
			Label:    humanize(name),
			Selected: slices.Contains(profile.Equipment, name),
		})
	}
	return data, nil
}

func (app *application) profileGET(w http.ResponseWriter, r *http.Request) {
	profile, err := app.workoutService.Profile(r.Context())
	if err != nil && !errors.Is(err, workout.ErrNotFound) {
		app.serverError(w, r, err)
		return
	}
	data, err := app.profileTemplateData(r, profile)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	app.render(w, r, http.StatusOK, "profile", data)
}

func (app *application) profilePOST(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		app.serverError(w, r, fmt.Errorf("parse form: %w", err))
		return
	}

	profile := workout.Profile{
		DisplayName:  strings.TrimSpace(r.PostForm.Get("display_name")),
		FitnessLevel: schedule.Level(r.PostForm.Get("fitness_level")),
		Equipment:    r.PostForm["equipment"],
	}

	err := app.workoutService.SaveProfile(r.Context(), profile)
	switch {
	case errors.Is(err, workout.ErrInvalidRequest):
		data, dataErr := app.profileTemplateData(r, profile)
		if dataErr != nil {
			app.serverError(w, r, dataErr)
			return
		}
		data.Error = err.Error()
		app.render(w, r, http.StatusUnprocessableEntity, "profile", data)
		return
	case err != nil:
		app.serverError(w, r, err)
		return
	}

	redirect(w, r, "/")
}
