package main

import (
	"context"
	"net/http"
)

func writeJSON(w http.ResponseWriter, out []byte) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(out)
}

func (app *application) beginCeremony(
	w http.ResponseWriter,
	r *http.Request,
	begin func(ctx context.Context) ([]byte, error),
) {
	out, err := begin(r.Context())
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	writeJSON(w, out)
}

func (app *application) finishCeremony(w http.ResponseWriter, r *http.Request, finish func(r *http.Request) error) {
	if err := finish(r); err != nil {
		app.serverError(w, r, err)
		return
	}
	writeJSON(w, []byte(`{"status":"ok"}`))
}

func (app *application) beginRegistration(w http.ResponseWriter, r *http.Request) {
	app.beginCeremony(w, r, app.webAuthnHandler.BeginRegistration)
}

func (app *application) finishRegistration(w http.ResponseWriter, r *http.Request) {
	app.finishCeremony(w, r, app.webAuthnHandler.FinishRegistration)
}

func (app *application) beginLogin(w http.ResponseWriter, r *http.Request) {
	app.beginCeremony(w, r, app.webAuthnHandler.BeginLogin)
}

func (app *application) finishLogin(w http.ResponseWriter, r *http.Request) {
	app.finishCeremony(w, r, app.webAuthnHandler.FinishLogin)
}

func (app *application) logout(w http.ResponseWriter, r *http.Request) {
	if err := app.webAuthnHandler.Logout(r.Context()); err != nil {
		app.serverError(w, r, err)
		return
	}
	redirect(w, r, "/")
}
