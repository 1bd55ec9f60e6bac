package main

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/myrjola/fitplan/internal/errors"
	"github.com/myrjola/fitplan/internal/workout"
)

const (
	// newEntryExerciseRows is the number of empty exercise rows offered when logging a workout.
	newEntryExerciseRows = 3
	// maxExerciseRows caps the exercise rows read from a submitted form.
	maxExerciseRows = 20
)

type exerciseRowView struct {
	Index      int
	Options    []selectOption
	Sets       string
	Reps       string
	WeightKg   string
	Difficulty string
}

// progressFormView holds the values of a progress form. IDPrefix keeps element IDs unique when several forms are
// rendered on the same page.
type progressFormView struct {
	Action          string
	IDPrefix        string
	Submit          string
	ShowDate        bool
	Date            string
	WeightKg        string
	BodyFat         string
	Mood            string
	EnergyLevel     string
	DurationMinutes string
	CaloriesBurned  string
	Notes           string
	Rows            []exerciseRowView
}

type progressEntryView struct {
	workout.ProgressEntry
	Form progressFormView
}

type progressTemplateData struct {
	BaseTemplateData
	HasActivePlan bool
	From          string
	To            string
	Entries       []progressEntryView
	NewEntry      progressFormView
	Error         string
}

func formatOptionalFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return formatFloat(*f)
}

// exerciseOptions lists the exercises of the plan first and then those only found in logged entries.
func exerciseOptions(plan *workout.Plan, entries []workout.ProgressEntry) []selectOption {
	var (
		options []selectOption
		seen    = make(map[int]bool)
	)
	add := func(id int, name string) {
		if seen[id] {
			return
		}
		seen[id] = true
		options = append(options, selectOption{Value: strconv.Itoa(id), Label: name, Selected: false})
	}
	if plan != nil {
		for _, day := range plan.Days {
			for _, ex := range day.Exercises {
				add(ex.ExerciseID, ex.Name)
			}
		}
	}
	for _, entry := range entries {
		for _, ex := range entry.Exercises {
			add(ex.ExerciseID, ex.ExerciseName)
		}
	}
	return options
}

func exerciseRows(options []selectOption, exercises []workout.ExerciseProgress, rows int) []exerciseRowView {
	rows = max(rows, len(exercises))
	views := make([]exerciseRowView, rows)
	for i := range views {
		view := exerciseRowView{
			Index:      i + 1,
			Options:    make([]selectOption, len(options)),
			Sets:       "",
			Reps:       "",
			WeightKg:   "",
			Difficulty: "",
		}
		copy(view.Options, options)
		if i < len(exercises) {
			ex := exercises[i]
			selected := strconv.Itoa(ex.ExerciseID)
			for j := range view.Options {
				view.Options[j].Selected = view.Options[j].Value == selected
			}
			view.Sets = strconv.Itoa(ex.Sets)
			view.Reps = strconv.Itoa(ex.Reps)
			view.WeightKg = formatOptionalFloat(ex.WeightKg)
			view.Difficulty = strconv.Itoa(ex.Difficulty)
		}
		views[i] = view
	}
	return views
}

// formatOptionalInt renders zero as an empty field.
func formatOptionalInt(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

// newProgressFormView prefills a form with entry. An entry without ID is a new entry.
func newProgressFormView(entry workout.ProgressEntry, options []selectOption) progressFormView {
	view := progressFormView{
		Action:          fmt.Sprintf("/progress/%d/update", entry.ID),
		IDPrefix:        fmt.Sprintf("entry-%d-", entry.ID),
		Submit:          "Save changes",
		ShowDate:        false,
		Date:            "",
		WeightKg:        "",
		BodyFat:         formatOptionalFloat(entry.BodyFat),
		Mood:            formatOptionalInt(entry.Mood),
		EnergyLevel:     formatOptionalInt(entry.EnergyLevel),
		DurationMinutes: formatOptionalInt(entry.DurationMinutes),
		CaloriesBurned:  formatOptionalInt(entry.CaloriesBurned),
		Notes:           entry.NotesMarkdown,
		Rows:            exerciseRows(options, entry.Exercises, 0),
	}
	if !entry.Date.IsZero() {
		view.Date = entry.Date.Format(time.DateOnly)
	}
	if entry.WeightKg != 0 {
		view.WeightKg = formatFloat(entry.WeightKg)
	}
	if entry.ID == 0 {
		view.Action = "/progress"
		view.IDPrefix = "new-"
		view.Submit = "Log workout"
		view.ShowDate = true
		view.Rows = exerciseRows(options, entry.Exercises, newEntryExerciseRows)
	}
	return view
}

// parseOptionalDate parses a YYYY-MM-DD value. An empty value is the zero time.
func parseOptionalDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q is not in YYYY-MM-DD format", workout.ErrInvalidRequest, s)
	}
	return t, nil
}

// progressForm reads form values, collecting the first parse error.
type progressForm struct {
	r   *http.Request
	err error
}

func (f *progressForm) floatValue(key, label string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(f.r.PostForm.Get(key)), 64)
	if err != nil && f.err == nil {
		f.err = fmt.Errorf("%w: %s must be a number", workout.ErrInvalidRequest, label)
	}
	return v
}

func (f *progressForm) optionalFloat(key, label string) *float64 {
	if strings.TrimSpace(f.r.PostForm.Get(key)) == "" {
		return nil
	}
	v := f.floatValue(key, label)
	return &v
}

func (f *progressForm) intValue(key, label string) int {
	v, err := strconv.Atoi(strings.TrimSpace(f.r.PostForm.Get(key)))
	if err != nil && f.err == nil {
		f.err = fmt.Errorf("%w: %s must be a whole number", workout.ErrInvalidRequest, label)
	}
	return v
}

// optionalInt treats an empty value as zero.
func (f *progressForm) optionalInt(key, label string) int {
	if strings.TrimSpace(f.r.PostForm.Get(key)) == "" {
		return 0
	}
	return f.intValue(key, label)
}

// parseProgressForm builds a progress entry from the submitted form. Exercise rows without an exercise are skipped.
func parseProgressForm(r *http.Request) (workout.ProgressEntry, error) {
	if err := r.ParseForm(); err != nil {
		return workout.ProgressEntry{}, fmt.Errorf("parse form: %w", err)
	}
	f := &progressForm{r: r, err: nil}
	date, err := parseOptionalDate(r.PostForm.Get("date"))
	if err != nil {
		return workout.ProgressEntry{}, err
	}
	entry := workout.ProgressEntry{
		ID:              0,
		PlanPublicID:    "",
		Date:            date,
		WeightKg:        f.floatValue("weight_kg", "body weight"),
		BodyFat:         f.optionalFloat("body_fat", "body fat"),
		Mood:            f.intValue("mood", "mood"),
		EnergyLevel:     f.intValue("energy_level", "energy"),
		DurationMinutes: f.optionalInt("duration_minutes", "duration"),
		CaloriesBurned:  f.optionalInt("calories_burned", "calories burned"),
		NotesMarkdown:   strings.TrimSpace(r.PostForm.Get("notes")),
		Exercises:       nil,
	}
	for i := 1; i <= maxExerciseRows; i++ {
		exerciseID := r.PostForm.Get(fmt.Sprintf("exercise_id_%d", i))
		if exerciseID == "" {
			continue
		}
		label := fmt.Sprintf("exercise %d", i)
		entry.Exercises = append(entry.Exercises, workout.ExerciseProgress{
			ExerciseID:   f.intValue(fmt.Sprintf("exercise_id_%d", i), label),
			ExerciseName: "",
			Sets:         f.intValue(fmt.Sprintf("sets_%d", i), label+" sets"),
			Reps:         f.intValue(fmt.Sprintf("reps_%d", i), label+" reps"),
			WeightKg:     f.optionalFloat(fmt.Sprintf("exercise_weight_%d", i), label+" weight"),
			Difficulty:   f.intValue(fmt.Sprintf("difficulty_%d", i), label+" effort"),
		})
	}
	if f.err != nil {
		return workout.ProgressEntry{}, f.err
	}
	return entry, nil
}

func (app *application) progressTemplateData(
	r *http.Request,
	from, to time.Time,
	newEntry workout.ProgressEntry,
) (progressTemplateData, error) {
	ctx := r.Context()
	var activePlan *workout.Plan
	plan, err := app.workoutService.ActivePlan(ctx)
	switch {
	case err == nil:
		activePlan = &plan
	case !errors.Is(err, workout.ErrNotFound):
		return progressTemplateData{}, err
	}
	entries, err := app.workoutService.ListProgress(ctx, from, to)
	if err != nil {
		return progressTemplateData{}, err
	}

	options := exerciseOptions(activePlan, entries)
	data := progressTemplateData{
		BaseTemplateData: newBaseTemplateData(r),
		HasActivePlan:    activePlan != nil,
		From:             "",
		To:               "",
		Entries:          make([]progressEntryView, len(entries)),
		NewEntry:         newProgressFormView(newEntry, options),
		Error:            "",
	}
	if !from.IsZero() {
		data.From = from.Format(time.DateOnly)
	}
	if !to.IsZero() {
		data.To = to.Format(time.DateOnly)
	}
	for i, entry := range entries {
		data.Entries[i] = progressEntryView{ProgressEntry: entry, Form: newProgressFormView(entry, options)}
	}
	return data, nil
}

func (app *application) progressGET(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	from, err := parseOptionalDate(query.Get("from"))
	if err != nil {
		app.clientError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	to, err := parseOptionalDate(query.Get("to"))
	if err != nil {
		app.clientError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	data, err := app.progressTemplateData(r, from, to, workout.ProgressEntry{})
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	data.NewEntry.Date = time.Now().Format(time.DateOnly)
	app.render(w, r, http.StatusOK, "progress", data)
}

// renderProgressFormError re-renders the progress page with the rejected input and the reason.
func (app *application) renderProgressFormError(
	w http.ResponseWriter,
	r *http.Request,
	entry workout.ProgressEntry,
	cause error,
) {
	data, err := app.progressTemplateData(r, time.Time{}, time.Time{}, entry)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	data.Error = cause.Error()
	app.render(w, r, http.StatusUnprocessableEntity, "progress", data)
}

func (app *application) progressPOST(w http.ResponseWriter, r *http.Request) {
	entry, err := parseProgressForm(r)
	if err != nil {
		if errors.Is(err, workout.ErrInvalidRequest) {
			app.renderProgressFormError(w, r, workout.ProgressEntry{}, err)
			return
		}
		app.serverError(w, r, err)
		return
	}

	_, err = app.workoutService.RecordProgress(r.Context(), entry)
	switch {
	case errors.Is(err, workout.ErrInvalidRequest):
		app.renderProgressFormError(w, r, entry, err)
		return
	case err != nil:
		app.handleServiceError(w, r, err)
		return
	}

	redirect(w, r, "/progress")
}

func (app *application) progressUpdatePOST(w http.ResponseWriter, r *http.Request) {
	id, ok := app.parseIDParam(w, r)
	if !ok {
		return
	}
	entry, err := parseProgressForm(r)
	if err != nil {
		app.handleServiceError(w, r, err)
		return
	}
	if err = app.workoutService.UpdateProgress(r.Context(), id, entry); err != nil {
		app.handleServiceError(w, r, err)
		return
	}
	redirect(w, r, "/progress")
}

func (app *application) progressDeletePOST(w http.ResponseWriter, r *http.Request) {
	id, ok := app.parseIDParam(w, r)
	if !ok {
		return
	}
	if err := app.workoutService.DeleteProgress(r.Context(), id); err != nil {
		app.handleServiceError(w, r, err)
		return
	}
	redirect(w, r, "/progress")
}
