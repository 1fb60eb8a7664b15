// Package api exposes the connectivity watcher over HTTP.
package api

import (
	"net"
	"net/http"

	"github.com/go-errors/errors"
	"github.com/gorilla/mux"
	"github.com/the-lightning-land/netwatchd/connectivity"
)

// Watcher is the part of the connectivity watcher the api drives.
type Watcher interface {
	Snapshot() (connectivity.Snapshot, error)
	CheckState() error
	CheckStateWithBudget(budget int) error
	HideAlert() error
	SetAlertEnabled(enabled bool) error
	SetCancelable(cancelable bool) error
	SetMessage(message string) error
	SetIcon(icon string) error
}

type Config struct {
	Log Logger
}

type Api struct {
	watcher Watcher
	router  *mux.Router
	events  *hub
	log     Logger
}

func New(config *Config) *Api {
	api := &Api{
		router: mux.NewRouter(),
		events: newHub(),
	}

	if config.Log != nil {
		api.log = config.Log
	} else {
		api.log = noopLogger{}
	}

	api.router.Handle("/api/v1/status", api.handleGetStatus()).Methods(http.MethodGet)

	api.router.Handle("/api/v1/checks", api.handlePostCheck()).Methods(http.MethodPost)

	api.router.Handle("/api/v1/alert", api.handleDeleteAlert()).Methods(http.MethodDelete)
	api.router.Handle("/api/v1/alert", api.handlePatchAlert()).Methods(http.MethodPatch)

	api.router.Handle("/api/v1/events", api.handleGetEvents()).Methods(http.MethodGet)

	return api
}

func (a *Api) SetWatcher(watcher Watcher) {
	a.watcher = watcher
}

// Handler returns the router, mostly for tests.
func (a *Api) Handler() http.Handler {
	return a.router
}

func (a *Api) Serve(l net.Listener) error {
	err := http.Serve(l, a.router)
	if err != nil {
		return errors.Errorf("Unable to serve api: %v", err)
	}

	return nil
}

// watcherOrError answers with 503 while no watcher is set.
func (a *Api) watcherOrError(w http.ResponseWriter) (Watcher, bool) {
	if a.watcher == nil {
		a.jsonError(w, "Watcher not available", http.StatusServiceUnavailable)
		return nil, false
	}

	return a.watcher, true
}

// statusCode maps watcher errors to HTTP codes.
func statusCode(err error) int {
	if errors.Is(err, connectivity.ErrNotRunning) {
		return http.StatusServiceUnavailable
	}

	return http.StatusInternalServerError
}
