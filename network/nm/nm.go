// Package nm is a minimal NetworkManager client on the system bus.
package nm

import (
	"sync"

	"github.com/go-errors/errors"
	"github.com/godbus/dbus/v5"
)

const (
	busName    = "org.freedesktop.NetworkManager"
	objectPath = dbus.ObjectPath("/org/freedesktop/NetworkManager")
	iface      = "org.freedesktop.NetworkManager"
)

// State mirrors NMState.
type State uint32

const (
	StateUnknown         State = 0
	StateAsleep          State = 10
	StateDisconnected    State = 20
	StateDisconnecting   State = 30
	StateConnecting      State = 40
	StateConnectedLocal  State = 50
	StateConnectedSite   State = 60
	StateConnectedGlobal State = 70
)

// Connected reports whether NetworkManager has an active connection at all,
// regardless of whether it reaches the internet.
func (s State) Connected() bool {
	return s >= StateConnectedLocal
}

func (s State) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StateAsleep:
		return "asleep"
	case StateDisconnected:
		return "disconnected"
	case StateDisconnecting:
		return "disconnecting"
	case StateConnecting:
		return "connecting"
	case StateConnectedLocal:
		return "connected (local)"
	case StateConnectedSite:
		return "connected (site)"
	case StateConnectedGlobal:
		return "connected (global)"
	default:
		return "invalid"
	}
}

type NetworkManager struct {
	conn *dbus.Conn
	obj  dbus.BusObject
}

func New() *NetworkManager {
	return &NetworkManager{}
}

func (n *NetworkManager) Start() error {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return errors.Errorf("could not connect to system bus: %v", err)
	}

	n.conn = conn
	n.obj = conn.Object(busName, objectPath)

	return nil
}

func (n *NetworkManager) Stop() error {
	if n.conn == nil {
		return nil
	}

	err := n.conn.Close()
	if err != nil {
		return errors.Errorf("could not close system bus connection: %v", err)
	}

	n.conn = nil
	n.obj = nil

	return nil
}

func (n *NetworkManager) State() (State, error) {
	if n.obj == nil {
		return StateUnknown, errors.New("not connected to NetworkManager")
	}

	v, err := n.obj.GetProperty(iface + ".State")
	if err != nil {
		return StateUnknown, errors.Errorf("could not get state: %v", err)
	}

	state, ok := v.Value().(uint32)
	if !ok {
		return StateUnknown, errors.Errorf("could not convert state: %v", v)
	}

	return State(state), nil
}

// PrimaryConnectionType returns the connection type name of the primary
// connection, e.g. "802-11-wireless". Empty when there is none.
func (n *NetworkManager) PrimaryConnectionType() (string, error) {
	if n.obj == nil {
		return "", errors.New("not connected to NetworkManager")
	}

	v, err := n.obj.GetProperty(iface + ".PrimaryConnectionType")
	if err != nil {
		return "", errors.Errorf("could not get primary connection type: %v", err)
	}

	kind, ok := v.Value().(string)
	if !ok {
		return "", errors.Errorf("could not convert primary connection type: %v", v)
	}

	return kind, nil
}

type StateChangedClient struct {
	StateChanged <-chan State
	Cancel       func()
}

func (n *NetworkManager) StateChanged() (*StateChangedClient, error) {
	if n.conn == nil {
		return nil, errors.New("not connected to NetworkManager")
	}

	stateChan := make(chan State)
	signalChan := make(chan *dbus.Signal, 8)
	done := make(chan struct{})

	call := n.conn.BusObject().AddMatchSignal(iface, "StateChanged", dbus.WithMatchObjectPath(objectPath))
	if call.Err != nil {
		return nil, errors.Errorf("could not add signal: %v", call.Err)
	}

	n.conn.Signal(signalChan)

	var once sync.Once

	client := &StateChangedClient{
		StateChanged: stateChan,
		Cancel: func() {
			once.Do(func() {
				n.conn.RemoveSignal(signalChan)

				_ = n.conn.BusObject().RemoveMatchSignal(iface, "StateChanged", dbus.WithMatchObjectPath(objectPath))

				close(done)
			})
		},
	}

	go func() {
		for {
			select {
			case signal, ok := <-signalChan:
				if !ok {
					return
				}

				state, ok := stateFromSignal(signal)
				if !ok {
					continue
				}

				select {
				case stateChan <- state:
				case <-done:
					return
				}
			case <-done:
				return
			}
		}
	}()

	return client, nil
}

func stateFromSignal(signal *dbus.Signal) (State, bool) {
	if signal == nil || signal.Name != iface+".StateChanged" || signal.Path != objectPath {
		return StateUnknown, false
	}

	if len(signal.Body) == 0 {
		return StateUnknown, false
	}

	state, ok := signal.Body[0].(uint32)
	if !ok {
		return StateUnknown, false
	}

	return State(state), true
}
