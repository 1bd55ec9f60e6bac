package main

import (
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// resolveStaticRoot finds ui/static relative to the working directory or the module root.
func resolveStaticRoot() (string, error) {
	fileRoot := path.Join(".", "ui", "static")
	if _, err := os.Stat(fileRoot); os.IsNotExist(err) {
		var dir string
		if dir, err = findModuleDir(); err != nil {
			return "", fmt.Errorf("findModuleDir: %w", err)
		}
		fileRoot = path.Join(dir, "ui", "static")
	}
	stat, err := os.Stat(fileRoot)
	if err != nil || !stat.IsDir() {
		return "", fmt.Errorf("file server root %s does not exist or is not a directory", fileRoot)
	}
	return fileRoot, nil
}

// fileServerHandler serves ui/static. Missing files get the not found page rendered with the user's session.
func (app *application) fileServerHandler() (http.Handler, error) {
	fileRoot, err := resolveStaticRoot()
	if err != nil {
		return nil, err
	}
	fileServer := http.FileServer(http.Dir(fileRoot))

	notFound := app.recoverPanic(noCache(app.sessionManager.LoadAndSave(
		app.webAuthnHandler.AuthenticateMiddleware(app.logAndTraceRequest(secureHeaders(app.crossOriginProtection(
			commonContext(app.timeout(app.maintenanceMode(http.HandlerFunc(app.notFound)))))))))))

	static := app.recoverPanic(app.logAndTraceRequest(secureHeaders(app.crossOriginProtection(
		commonContext(app.timeout(cacheForever(fileServer)))))))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cleanPath := filepath.Clean(r.URL.Path)
		if strings.Contains(cleanPath, "..") {
			notFound.ServeHTTP(w, r)
			return
		}
		stat, statErr := os.Stat(filepath.Join(fileRoot, cleanPath))
		if statErr != nil || stat.IsDir() {
			notFound.ServeHTTP(w, r)
			return
		}
		static.ServeHTTP(w, r)
	}), nil
}
