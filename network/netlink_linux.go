//go:build linux

package network

import (
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-errors/errors"
	"golang.org/x/sys/unix"
)

// check NetlinkNetwork compliance to its interface during compile time
var _ Network = (*NetlinkNetwork)(nil)

const (
	netlinkGroups = unix.RTMGRP_LINK |
		unix.RTMGRP_IPV4_IFADDR |
		unix.RTMGRP_IPV6_IFADDR |
		unix.RTMGRP_IPV4_ROUTE |
		unix.RTMGRP_IPV6_ROUTE

	defaultSysRoot = "/sys/class/net"
)

var mobilePrefixes = []string{"wwan", "ppp", "rmnet", "ccmni", "usb", "wwp"}

type NetlinkConfig struct {
	Logger Logger
	// SysRoot overrides /sys/class/net.
	SysRoot string
}

// NetlinkNetwork derives connectivity from the kernel's interface and
// address tables and emits an update for every rtnetlink link, address or
// route notification.
type NetlinkNetwork struct {
	log        Logger
	sysRoot    string
	clients    *clients
	done       chan struct{}
	stopOnce   sync.Once
	interfaces func() ([]net.Interface, error)
	addrs      func(*net.Interface) ([]net.Addr, error)
}

func NewNetlinkNetwork(config *NetlinkConfig) *NetlinkNetwork {
	nl := &NetlinkNetwork{
		sysRoot:    defaultSysRoot,
		clients:    newClients(),
		done:       make(chan struct{}),
		interfaces: net.Interfaces,
		addrs: func(iface *net.Interface) ([]net.Addr, error) {
			return iface.Addrs()
		},
	}

	if config != nil && config.SysRoot != "" {
		nl.sysRoot = config.SysRoot
	}

	if config != nil && config.Logger != nil {
		nl.log = config.Logger
	} else {
		nl.log = noopLogger{}
	}

	return nl
}

func (n *NetlinkNetwork) Start() error {
	fd, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_RAW|unix.SOCK_CLOEXEC, unix.NETLINK_ROUTE)
	if err != nil {
		return errors.Errorf("could not open netlink socket: %v", err)
	}

	err = unix.Bind(fd, &unix.SockaddrNetlink{
		Family: unix.AF_NETLINK,
		Groups: netlinkGroups,
	})
	if err != nil {
		_ = unix.Close(fd)
		return errors.Errorf("could not bind netlink socket: %v", err)
	}

	// a receive timeout lets the reader notice Stop without closing the
	// socket underneath a blocked recvfrom
	err = unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &unix.Timeval{Sec: 1})
	if err != nil {
		_ = unix.Close(fd)
		return errors.Errorf("could not set netlink receive timeout: %v", err)
	}

	go n.receive(fd)

	return nil
}

func (n *NetlinkNetwork) Stop() error {
	n.stopOnce.Do(func() {
		close(n.done)
	})

	return nil
}

func (n *NetlinkNetwork) receive(fd int) {
	defer func() {
		_ = unix.Close(fd)
	}()

	buf := make([]byte, 1<<16)

	for {
		select {
		case <-n.done:
			return
		default:
		}

		nr, _, err := unix.Recvfrom(fd, buf, 0)
		switch {
		case err == unix.EAGAIN || err == unix.EINTR:
			continue
		case err == unix.ENOBUFS:
			// the kernel dropped notifications, the state must be re-read
			n.log.Debugf("netlink receive buffer overrun")
		case err != nil:
			n.log.Errorf("Could not read from netlink socket: %v", err)
			return
		case nr == 0:
			continue
		}

		n.clients.publish(n.Status())
	}
}

// Status reports connected when at least one physical or mobile interface
// is up and carries a global unicast address.
func (n *NetlinkNetwork) Status() *Status {
	ifaces, err := n.interfaces()
	if err != nil {
		n.log.Warnf("Could not list interfaces: %v", err)
		return NewStatus(false, None)
	}

	best := None

	for i := range ifaces {
		iface := &ifaces[i]

		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		kind, ok := n.classify(iface.Name)
		if !ok {
			continue
		}

		if !n.hasGlobalAddress(iface) {
			continue
		}

		if best == None || preference(kind) < preference(best) {
			best = kind
		}
	}

	if best == None {
		return NewStatus(false, None)
	}

	return NewStatus(true, best)
}

func (n *NetlinkNetwork) hasGlobalAddress(iface *net.Interface) bool {
	addrs, err := n.addrs(iface)
	if err != nil {
		n.log.Debugf("Could not list addresses of %v: %v", iface.Name, err)
		return false
	}

	for _, addr := range addrs {
		var ip net.IP

		switch a := addr.(type) {
		case *net.IPNet:
			ip = a.IP
		case *net.IPAddr:
			ip = a.IP
		}

		if ip != nil && ip.IsGlobalUnicast() {
			return true
		}
	}

	return false
}

// classify tells the link type of an interface. Virtual interfaces without
// a backing device (bridges, veths, tunnels) are not considered.
func (n *NetlinkNetwork) classify(name string) (ConnectionType, bool) {
	if exists(filepath.Join(n.sysRoot, name, "wireless")) || exists(filepath.Join(n.sysRoot, name, "phy80211")) {
		return Wifi, true
	}

	for _, prefix := range mobilePrefixes {
		if strings.HasPrefix(name, prefix) {
			return Mobile, true
		}
	}

	if exists(filepath.Join(n.sysRoot, name, "device")) {
		return Ethernet, true
	}

	return None, false
}

func (n *NetlinkNetwork) Subscribe() *Client {
	return n.clients.subscribe(n)
}

func (n *NetlinkNetwork) deleteClient(id uint32) {
	n.clients.delete(id)
}

func preference(kind ConnectionType) int {
	switch kind {
	case Ethernet:
		return 0
	case Wifi:
		return 1
	case Mobile:
		return 2
	default:
		return 3
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
