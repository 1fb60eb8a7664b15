package network

import (
	"sync"

	"github.com/go-errors/errors"
	"github.com/the-lightning-land/netwatchd/network/nm"
)

// check NmNetwork compliance to its interface during compile time
var _ Network = (*NmNetwork)(nil)

type NmConfig struct {
	Logger Logger
}

// NmNetwork follows NetworkManager's global state over D-Bus.
type NmNetwork struct {
	log         Logger
	nm          *nm.NetworkManager
	clients     *clients
	stateClient *nm.StateChangedClient
	done        chan struct{}
	stopOnce    sync.Once
}

func NewNmNetwork(config *NmConfig) *NmNetwork {
	net := &NmNetwork{
		nm:      nm.New(),
		clients: newClients(),
		done:    make(chan struct{}),
	}

	if config != nil && config.Logger != nil {
		net.log = config.Logger
	} else {
		net.log = noopLogger{}
	}

	return net
}

func (n *NmNetwork) Start() error {
	err := n.nm.Start()
	if err != nil {
		return errors.Errorf("could not start NetworkManager client: %v", err)
	}

	n.stateClient, err = n.nm.StateChanged()
	if err != nil {
		_ = n.nm.Stop()
		return errors.Errorf("could not listen for state changes: %v", err)
	}

	go func() {
		for {
			select {
			case state := <-n.stateClient.StateChanged:
				n.log.Debugf("NetworkManager state changed to %v", state)

				n.clients.publish(n.Status())
			case <-n.done:
				return
			}
		}
	}()

	return nil
}

func (n *NmNetwork) Stop() error {
	var err error

	n.stopOnce.Do(func() {
		if n.stateClient != nil {
			n.stateClient.Cancel()
		}

		close(n.done)

		err = n.nm.Stop()
	})

	if err != nil {
		return errors.Errorf("could not stop NetworkManager client: %v", err)
	}

	return nil
}

// Status queries NetworkManager. Any query failure yields a disconnected
// status.
func (n *NmNetwork) Status() *Status {
	state, err := n.nm.State()
	if err != nil {
		n.log.Warnf("Could not query NetworkManager state: %v", err)
		return NewStatus(false, None)
	}

	if !state.Connected() {
		return NewStatus(false, None)
	}

	kind, err := n.nm.PrimaryConnectionType()
	if err != nil {
		n.log.Warnf("Could not query primary connection type: %v", err)
		return NewStatus(true, None)
	}

	return NewStatus(true, connectionTypeOf(kind))
}

func (n *NmNetwork) Subscribe() *Client {
	return n.clients.subscribe(n)
}

func (n *NmNetwork) deleteClient(id uint32) {
	n.clients.delete(id)
}

// connectionTypeOf maps a NetworkManager connection type name.
func connectionTypeOf(kind string) ConnectionType {
	switch kind {
	case "802-11-wireless", "wifi-p2p":
		return Wifi
	case "gsm", "cdma", "bluetooth":
		return Mobile
	case "802-3-ethernet", "pppoe", "bond", "bridge", "vlan", "team":
		return Ethernet
	default:
		return None
	}
}
