//go:build !linux

package network

import "github.com/go-errors/errors"

// check NetlinkNetwork compliance to its interface during compile time
var _ Network = (*NetlinkNetwork)(nil)

type NetlinkConfig struct {
	Logger  Logger
	SysRoot string
}

// NetlinkNetwork is only available on linux.
type NetlinkNetwork struct {
	clients *clients
}

func NewNetlinkNetwork(config *NetlinkConfig) *NetlinkNetwork {
	return &NetlinkNetwork{
		clients: newClients(),
	}
}

func (n *NetlinkNetwork) Start() error {
	return errors.New("netlink is only supported on linux")
}

func (n *NetlinkNetwork) Stop() error {
	return nil
}

func (n *NetlinkNetwork) Status() *Status {
	return NewStatus(false, None)
}

func (n *NetlinkNetwork) Subscribe() *Client {
	return n.clients.subscribe(n)
}

func (n *NetlinkNetwork) deleteClient(id uint32) {
	n.clients.delete(id)
}
