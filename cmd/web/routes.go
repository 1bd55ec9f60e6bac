package main

import (
	"fmt"
	"net/http"
)

func (app *application) routes() (*http.ServeMux, error) {
	mux := http.NewServeMux()

	var (
		withoutMaintenanceMode = func(next http.Handler) http.Handler {
			return app.logAndTraceRequest(secureHeaders(app.crossOriginProtection(
				commonContext(app.timeout(next)))))
		}
		shared = func(next http.Handler) http.Handler {
			return withoutMaintenanceMode(app.maintenanceMode(next))
		}
		noAuth = func(next http.Handler) http.Handler {
			return app.recoverPanic(withoutMaintenanceMode(next))
		}
		session = func(next http.Handler) http.Handler {
			return app.recoverPanic(noCache(app.sessionManager.LoadAndSave(
				app.webAuthnHandler.AuthenticateMiddleware(shared(next)))))
		}
		mustSession = func(next http.Handler) http.Handler {
			return session(app.mustAuthenticate(next))
		}
	)

	mux.Handle("GET /profile", mustSession(http.HandlerFunc(app.profileGET)))
	mux.Handle("POST /profile", mustSession(http.HandlerFunc(app.profilePOST)))

	mux.Handle("GET /plans", mustSession(http.HandlerFunc(app.plansGET)))
	mux.Handle("POST /plans", mustSession(http.HandlerFunc(app.planCreatePOST)))
	mux.Handle("GET /plans/new", mustSession(http.HandlerFunc(app.planNewGET)))
	mux.Handle("GET /plans/active", mustSession(http.HandlerFunc(app.planActiveGET)))
	mux.Handle("GET /plans/{id}", mustSession(http.HandlerFunc(app.planGET)))
	mux.Handle("POST /plans/{id}/delete", mustSession(http.HandlerFunc(app.planDeletePOST)))
	mux.Handle("GET /api/plans/active", mustSession(http.HandlerFunc(app.activePlanAPI)))

	mux.Handle("GET /progress", mustSession(http.HandlerFunc(app.progressGET)))
	mux.Handle("POST /progress", mustSession(http.HandlerFunc(app.progressPOST)))
	mux.Handle("POST /progress/{id}/update", mustSession(http.HandlerFunc(app.progressUpdatePOST)))
	mux.Handle("POST /progress/{id}/delete", mustSession(http.HandlerFunc(app.progressDeletePOST)))

	mux.Handle("GET /exercises/{id}", mustSession(http.HandlerFunc(app.exerciseGET)))

	mux.Handle("POST /api/registration/start", session(http.HandlerFunc(app.beginRegistration)))
	mux.Handle("POST /api/registration/finish", session(http.HandlerFunc(app.finishRegistration)))
	mux.Handle("POST /api/login/start", session(http.HandlerFunc(app.beginLogin)))
	mux.Handle("POST /api/login/finish", session(http.HandlerFunc(app.finishLogin)))
	mux.Handle("POST /api/logout", session(http.HandlerFunc(app.logout)))
	mux.Handle("GET /api/healthy", noAuth(http.HandlerFunc(app.healthy)))

	// Home route (most specific)
	mux.Handle("GET /{$}", session(http.HandlerFunc(app.home)))

	// File server with custom 404 handling
	fileServerHandler, err := app.fileServerHandler()
	if err != nil {
		return nil, fmt.Errorf("fileServerHandler: %w", err)
	}
	mux.Handle("/", fileServerHandler)

	return mux, nil
}
