//go:build linux

package network

import (
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
)

func fakeSysRoot(t *testing.T, entries map[string][]string) string {
	t.Helper()

	root := t.TempDir()
	for iface, children := range entries {
		if err := os.MkdirAll(filepath.Join(root, iface), 0o755); err != nil {
			t.Fatal(err)
		}
		for _, child := range children {
			if err := os.MkdirAll(filepath.Join(root, iface, child), 0o755); err != nil {
				t.Fatal(err)
			}
		}
	}

	return root
}

func TestNetlinkClassify(t *testing.T) {
	root := fakeSysRoot(t, map[string][]string{
		"wlp3s0":  {"device", "wireless"},
		"wlan1":   {"phy80211"},
		"enp0s31": {"device"},
		"wwan0":   {"device"},
		"docker0": {},
	})

	n := NewNetlinkNetwork(&NetlinkConfig{SysRoot: root})

	tests := []struct {
		name string
		want ConnectionType
		ok   bool
	}{
		{"wlp3s0", Wifi, true},
		{"wlan1", Wifi, true},
		{"enp0s31", Ethernet, true},
		{"wwan0", Mobile, true},
		{"ppp0", Mobile, true},
		{"docker0", None, false},
		{"veth1234", None, false},
	}

	for _, tt := range tests {
		got, ok := n.classify(tt.name)
		if got != tt.want || ok != tt.ok {
			t.Errorf("classify(%q) = %v, %v, want %v, %v", tt.name, got, ok, tt.want, tt.ok)
		}
	}
}

func TestNetlinkStatus(t *testing.T) {
	root := fakeSysRoot(t, map[string][]string{
		"wlp3s0":  {"device", "wireless"},
		"enp0s31": {"device"},
		"docker0": {},
	})

	global := &net.IPNet{IP: net.ParseIP("192.168.1.20"), Mask: net.CIDRMask(24, 32)}
	linkLocal := &net.IPNet{IP: net.ParseIP("fe80::1"), Mask: net.CIDRMask(64, 128)}

	tests := []struct {
		name   string
		ifaces []net.Interface
		addrs  map[string][]net.Addr
		want   *Status
	}{
		{
			name: "wifi only",
			ifaces: []net.Interface{
				{Name: "lo", Flags: net.FlagUp | net.FlagLoopback},
				{Name: "wlp3s0", Flags: net.FlagUp},
			},
			addrs: map[string][]net.Addr{"wlp3s0": {global}},
			want:  NewStatus(true, Wifi),
		},
		{
			name: "ethernet preferred over wifi",
			ifaces: []net.Interface{
				{Name: "wlp3s0", Flags: net.FlagUp},
				{Name: "enp0s31", Flags: net.FlagUp},
			},
			addrs: map[string][]net.Addr{"wlp3s0": {global}, "enp0s31": {global}},
			want:  NewStatus(true, Ethernet),
		},
		{
			name: "interface down",
			ifaces: []net.Interface{
				{Name: "enp0s31"},
			},
			addrs: map[string][]net.Addr{"enp0s31": {global}},
			want:  NewStatus(false, None),
		},
		{
			name: "link local only",
			ifaces: []net.Interface{
				{Name: "enp0s31", Flags: net.FlagUp},
			},
			addrs: map[string][]net.Addr{"enp0s31": {linkLocal}},
			want:  NewStatus(false, None),
		},
		{
			name: "virtual bridge ignored",
			ifaces: []net.Interface{
				{Name: "docker0", Flags: net.FlagUp},
			},
			addrs: map[string][]net.Addr{"docker0": {global}},
			want:  NewStatus(false, None),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NewNetlinkNetwork(&NetlinkConfig{SysRoot: root})
			n.interfaces = func() ([]net.Interface, error) {
				return tt.ifaces, nil
			}
			n.addrs = func(iface *net.Interface) ([]net.Addr, error) {
				return tt.addrs[iface.Name], nil
			}

			got := n.Status()
			if got.Connected() != tt.want.Connected() || got.Type() != tt.want.Type() {
				t.Fatalf("status = %v/%v, want %v/%v", got.Connected(), got.Type(), tt.want.Connected(), tt.want.Type())
			}
		})
	}
}

func TestNetlinkStatusInterfaceError(t *testing.T) {
	n := NewNetlinkNetwork(nil)
	n.interfaces = func() ([]net.Interface, error) {
		return nil, errors.New("boom")
	}

	if n.Status().Connected() {
		t.Fatal("interface listing failure must count as disconnected")
	}
}
