package connectivity

import (
	"github.com/the-lightning-land/netwatchd/network"
)

// Register subscribes to connectivity events of n. Only one network can be
// registered at a time.
func (w *Watcher) Register(n network.Network) error {
	return w.do(func() error {
		if w.client != nil {
			return ErrAlreadyRegistered
		}

		w.network = n
		w.client = n.Subscribe()

		go w.listen(w.client)

		w.log.Infof("Listening for network events")

		return nil
	})
}

func (w *Watcher) listen(client *network.Client) {
	for {
		select {
		case <-client.Updates:
			w.post(func() {
				w.onNetworkEvent(client)
			})
		case <-client.Done():
			return
		case <-w.quit:
			return
		}
	}
}

// onNetworkEvent starts a confirmation cycle when the OS disagrees with the
// committed state. The status is read fresh, the event payload is not
// trusted.
func (w *Watcher) onNetworkEvent(client *network.Client) {
	if w.client != client {
		return
	}

	current := stateOf(w.network.Status())
	if current == w.state {
		return
	}

	w.log.Debugf("Network reports %v while %v, confirming", current, w.state)

	w.counter = 0
	w.startCycle(w.eventBudget)
}

// Unregister stops probing, hides the alert and detaches from the network.
// Calling it when nothing is registered is not an error.
func (w *Watcher) Unregister() error {
	return w.do(func() error {
		w.teardown()
		return nil
	})
}

func (w *Watcher) teardown() {
	if w.client == nil && w.pending == nil && w.cancelProbe == nil && !w.alertShown {
		w.log.Debugf("Not registered, nothing to tear down")
		return
	}

	w.cancelPending()
	w.phase = Idle
	w.hideAlert()

	if w.client != nil {
		w.client.Cancel()
		w.client = nil
		w.network = nil
	}

	w.log.Infof("Stopped listening for network events")
}
