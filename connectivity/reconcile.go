package connectivity

import (
	"time"

	"github.com/go-errors/errors"
	"github.com/the-lightning-land/netwatchd/alert"
	"github.com/the-lightning-land/netwatchd/network"
)

// reconcile commits a probe verdict. The backoff counter is reset even when
// nothing changes.
func (w *Watcher) reconcile(proposed State) {
	w.counter = 0

	if proposed == w.state {
		return
	}

	w.log.Infof("Connectivity changed from %v to %v", w.state, proposed)

	w.state = proposed
	w.changedAt = time.Now()

	switch proposed {
	case Disconnected:
		if w.notifier == nil {
			w.hideAlert()
			return
		}

		w.notifier.OnDisconnected()

		if w.alertCfg.Enabled {
			w.showAlert()
		}
	case Connected:
		w.hideAlert()

		if w.notifier != nil {
			w.notifier.OnConnected(w.connectionType())
		}
	}
}

func (w *Watcher) showAlert() {
	if w.template == nil {
		w.template = alert.New(w.alertCfg.Message, w.alertCfg.Icon, w.alertCfg.Cancelable)
	}

	if err := w.alerter.Show(AlertID, w.template); err != nil {
		w.log.Warnf("Could not show alert: %v", err)
		return
	}

	w.alertShown = true
}

func (w *Watcher) hideAlert() {
	err := w.alerter.Hide(AlertID)
	w.alertShown = false

	switch {
	case err == nil:
	case errors.Is(err, alert.ErrNoAlert):
		w.log.Debugf("No alert to hide")
	default:
		w.log.Warnf("Could not hide alert: %v", err)
	}
}

// connectionType reads the transport fresh from the registered network.
func (w *Watcher) connectionType() network.ConnectionType {
	if w.network == nil {
		return network.None
	}

	return w.network.Status().Type()
}
