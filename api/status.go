package api

import (
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
)

type getStatusResponse struct {
	State      string     `json:"state"`
	Type       string     `json:"type"`
	Phase      string     `json:"phase"`
	Counter    int        `json:"counter"`
	Budget     int        `json:"budget"`
	NextDelay  string     `json:"nextDelay"`
	ChangedAt  *time.Time `json:"changedAt,omitempty"`
	Changed    string     `json:"changed"`
	Probes     uint64     `json:"probes"`
	Registered bool       `json:"registered"`
}

func (a *Api) handleGetStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		watcher, ok := a.watcherOrError(w)
		if !ok {
			return
		}

		s, err := watcher.Snapshot()
		if err != nil {
			a.jsonError(w, err.Error(), statusCode(err))
			return
		}

		res := &getStatusResponse{
			State:      s.State.String(),
			Type:       s.Type.String(),
			Phase:      s.Phase.String(),
			Counter:    s.Counter,
			Budget:     s.Budget,
			NextDelay:  s.NextDelay.String(),
			Changed:    "never",
			Probes:     s.Probes,
			Registered: s.Registered,
		}

		if !s.ChangedAt.IsZero() {
			changedAt := s.ChangedAt
			res.ChangedAt = &changedAt
			res.Changed = humanize.Time(changedAt)
		}

		a.jsonResponse(w, res, http.StatusOK)
	}
}
