package api

import (
	"encoding/json"
	"net/http"
)

type patchAlertRequest struct {
	Enabled    *bool   `json:"enabled"`
	Cancelable *bool   `json:"cancelable"`
	Message    *string `json:"message"`
	Icon       *string `json:"icon"`
}

func (a *Api) handleDeleteAlert() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		watcher, ok := a.watcherOrError(w)
		if !ok {
			return
		}

		err := watcher.HideAlert()
		if err != nil {
			a.jsonError(w, err.Error(), statusCode(err))
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func (a *Api) handlePatchAlert() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		watcher, ok := a.watcherOrError(w)
		if !ok {
			return
		}

		req := patchAlertRequest{}
		err := json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			a.jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}

		var ops []func() error

		if req.Enabled != nil {
			ops = append(ops, func() error { return watcher.SetAlertEnabled(*req.Enabled) })
		}

		if req.Cancelable != nil {
			ops = append(ops, func() error { return watcher.SetCancelable(*req.Cancelable) })
		}

		if req.Message != nil {
			ops = append(ops, func() error { return watcher.SetMessage(*req.Message) })
		}

		if req.Icon != nil {
			ops = append(ops, func() error { return watcher.SetIcon(*req.Icon) })
		}

		for _, op := range ops {
			if err := op(); err != nil {
				a.jsonError(w, err.Error(), statusCode(err))
				return
			}
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
