package connectivity

import "github.com/the-lightning-land/netwatchd/network"

// NotifierFuncs adapts plain functions to a Notifier. Nil functions are
// skipped.
type NotifierFuncs struct {
	Connected    func(kind network.ConnectionType)
	Disconnected func()
}

func (n NotifierFuncs) OnConnected(kind network.ConnectionType) {
	if n.Connected != nil {
		n.Connected(kind)
	}
}

func (n NotifierFuncs) OnDisconnected() {
	if n.Disconnected != nil {
		n.Disconnected()
	}
}

type multiNotifier []Notifier

// MultiNotifier fans transitions out to all given notifiers in order.
func MultiNotifier(notifiers ...Notifier) Notifier {
	all := make(multiNotifier, 0, len(notifiers))
	for _, n := range notifiers {
		if n != nil {
			all = append(all, n)
		}
	}

	return all
}

func (m multiNotifier) OnConnected(kind network.ConnectionType) {
	for _, n := range m {
		n.OnConnected(kind)
	}
}

func (m multiNotifier) OnDisconnected() {
	for _, n := range m {
		n.OnDisconnected()
	}
}
