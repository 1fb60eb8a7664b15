package probe

import (
	"context"
	"net"
	"testing"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

func marshal(t *testing.T, typ icmp.Type, id, seq int) []byte {
	t.Helper()

	msg := icmp.Message{
		Type: typ,
		Body: &icmp.Echo{ID: id, Seq: seq, Data: payload},
	}

	// the checksum of ICMPv6 needs the pseudo header, which the parser does
	// not verify, so marshalling without it is fine here
	b, err := msg.Marshal(nil)
	if err != nil {
		t.Fatal(err)
	}

	return b
}

func TestFamily(t *testing.T) {
	unprivileged := NewIcmpProber(nil)
	privileged := NewIcmpProber(&IcmpConfig{Privileged: true})

	tests := []struct {
		prober  *IcmpProber
		ip      string
		network string
		proto   int
	}{
		{unprivileged, "8.8.8.8", "udp4", protocolICMP},
		{privileged, "8.8.8.8", "ip4:icmp", protocolICMP},
		{unprivileged, "2001:4860:4860::8888", "udp6", protocolIPv6ICMP},
		{privileged, "2001:4860:4860::8888", "ip6:ipv6-icmp", protocolIPv6ICMP},
	}

	for _, tt := range tests {
		f := tt.prober.family(net.ParseIP(tt.ip))
		if f.network != tt.network || f.proto != tt.proto {
			t.Errorf("family(%v) = %v/%d, want %v/%d", tt.ip, f.network, f.proto, tt.network, tt.proto)
		}
	}

	if _, ok := unprivileged.destination(net.ParseIP("8.8.8.8")).(*net.UDPAddr); !ok {
		t.Error("unprivileged destination must be a UDP address")
	}
	if _, ok := privileged.destination(net.ParseIP("8.8.8.8")).(*net.IPAddr); !ok {
		t.Error("privileged destination must be an IP address")
	}
}

func TestMatchReply(t *testing.T) {
	p := NewIcmpProber(nil)
	v4 := p.family(net.ParseIP("8.8.8.8"))
	v6 := p.family(net.ParseIP("::1"))

	tests := []struct {
		name    string
		f       family
		raw     []byte
		checkID bool
		want    bool
	}{
		{"v4 reply", v4, marshal(t, ipv4.ICMPTypeEchoReply, 7, 42), true, true},
		{"v4 reply rewritten id", v4, marshal(t, ipv4.ICMPTypeEchoReply, 9999, 42), false, true},
		{"v4 reply foreign id", v4, marshal(t, ipv4.ICMPTypeEchoReply, 9999, 42), true, false},
		{"v4 wrong sequence", v4, marshal(t, ipv4.ICMPTypeEchoReply, 7, 41), true, false},
		{"v4 own request", v4, marshal(t, ipv4.ICMPTypeEcho, 7, 42), true, false},
		{"v6 reply", v6, marshal(t, ipv6.ICMPTypeEchoReply, 7, 42), true, true},
		{"garbage", v4, []byte{1, 2}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := matchReply(tt.raw, tt.f, 7, 42, tt.checkID); got != tt.want {
				t.Fatalf("matchReply() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSameHost(t *testing.T) {
	ip := net.ParseIP("1.1.1.1")

	if !sameHost(&net.UDPAddr{IP: net.ParseIP("1.1.1.1")}, ip) {
		t.Error("udp peer should match")
	}
	if !sameHost(&net.IPAddr{IP: net.ParseIP("1.1.1.1")}, ip) {
		t.Error("ip peer should match")
	}
	if sameHost(&net.IPAddr{IP: net.ParseIP("1.0.0.1")}, ip) {
		t.Error("different peer must not match")
	}
	if sameHost(&net.TCPAddr{IP: ip}, ip) {
		t.Error("tcp peer must not match")
	}
}

func TestResolveLiteral(t *testing.T) {
	ip, err := resolve(context.Background(), "192.0.2.1")
	if err != nil {
		t.Fatal(err)
	}
	if !ip.Equal(net.ParseIP("192.0.2.1")) {
		t.Fatalf("resolve() = %v", ip)
	}
}

func TestProbeUnresolvable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := NewIcmpProber(nil).Probe(ctx, "host.invalid", 100*time.Millisecond)
	if res.Replied || res.Err == nil {
		t.Fatalf("probe of unresolvable target = %+v, want error", res)
	}
	if !res.TimedOut() {
		t.Fatal("a failed probe counts as timed out")
	}
}
