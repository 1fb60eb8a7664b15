package connectivity

import (
	"context"
	"time"

	"github.com/the-lightning-land/netwatchd/alert"
	"github.com/the-lightning-land/netwatchd/network"
	"github.com/the-lightning-land/netwatchd/probe"
)

type State int

const (
	Unknown State = iota
	Disconnected
	Connected
)

func (s State) String() string {
	switch s {
	case Unknown:
		return "UNKNOWN"
	case Disconnected:
		return "DISCONNECTED"
	case Connected:
		return "CONNECTED"
	default:
		return "INVALID STATE"
	}
}

// stateOf maps an OS status to a state. A missing status counts as
// disconnected.
func stateOf(status *network.Status) State {
	if status.Connected() {
		return Connected
	}

	return Disconnected
}

// Phase tells whether a probe cycle is outstanding.
type Phase int

const (
	Idle Phase = iota
	Probing
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "IDLE"
	case Probing:
		return "PROBING"
	default:
		return "INVALID PHASE"
	}
}

// Prober performs one echo attempt against target, waiting at most wait.
type Prober interface {
	Probe(ctx context.Context, target string, wait time.Duration) probe.Result
}

// Alerter shows and hides an alert identified by key. Hiding an alert that
// is not shown may fail, such errors are ignored.
type Alerter interface {
	Show(key uint32, a *alert.Alert) error
	Hide(key uint32) error
}

// Notifier is implemented by the host application. Its methods are called
// from the watcher's event loop and must not call back into blocking
// Watcher methods.
type Notifier interface {
	OnConnected(kind network.ConnectionType)
	OnDisconnected()
}

// Snapshot is a read-only view of the watcher.
type Snapshot struct {
	State      State
	Type       network.ConnectionType
	Phase      Phase
	Counter    int
	Budget     int
	NextDelay  time.Duration
	ChangedAt  time.Time
	Probes     uint64
	Registered bool
}
