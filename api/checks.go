package api

import (
	"encoding/json"
	"io"
	"net/http"
)

type postCheckRequest struct {
	Budget int `json:"budget"`
}

type postCheckResponse struct {
	Budget int `json:"budget"`
}

func (a *Api) handlePostCheck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		watcher, ok := a.watcherOrError(w)
		if !ok {
			return
		}

		req := postCheckRequest{}
		err := json.NewDecoder(r.Body).Decode(&req)
		if err != nil && err != io.EOF {
			a.jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}

		if req.Budget < 0 {
			a.jsonError(w, "Budget must not be negative", http.StatusBadRequest)
			return
		}

		// without a budget the watcher keeps its current one
		if req.Budget == 0 {
			err = watcher.CheckState()
		} else {
			err = watcher.CheckStateWithBudget(req.Budget)
		}

		if err != nil {
			a.jsonError(w, err.Error(), statusCode(err))
			return
		}

		a.jsonResponse(w, &postCheckResponse{
			Budget: req.Budget,
		}, http.StatusAccepted)
	}
}
