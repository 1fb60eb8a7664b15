package probe

import (
	"context"
	"net"
	"os"
	"sync/atomic"
	"time"

	"github.com/go-errors/errors"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

const (
	protocolICMP     = 1
	protocolIPv6ICMP = 58
)

var payload = []byte("netwatchd-echo")

type IcmpConfig struct {
	// Privileged uses raw sockets instead of unprivileged ICMP datagram
	// sockets. Raw sockets need CAP_NET_RAW.
	Privileged bool
	Logger     Logger
}

// IcmpProber sends one ICMP echo request per Probe call and waits for the
// matching reply.
type IcmpProber struct {
	privileged bool
	id         int
	seq        uint32
	log        Logger
}

func NewIcmpProber(config *IcmpConfig) *IcmpProber {
	prober := &IcmpProber{
		id: os.Getpid() & 0xffff,
	}

	if config != nil {
		prober.privileged = config.Privileged
	}

	if config != nil && config.Logger != nil {
		prober.log = config.Logger
	} else {
		prober.log = noopLogger{}
	}

	return prober
}

type family struct {
	network string
	address string
	proto   int
	echo    icmp.Type
	reply   icmp.Type
}

func (p *IcmpProber) family(ip net.IP) family {
	if ip.To4() != nil {
		f := family{
			network: "udp4",
			address: "0.0.0.0",
			proto:   protocolICMP,
			echo:    ipv4.ICMPTypeEcho,
			reply:   ipv4.ICMPTypeEchoReply,
		}
		if p.privileged {
			f.network = "ip4:icmp"
		}
		return f
	}

	f := family{
		network: "udp6",
		address: "::",
		proto:   protocolIPv6ICMP,
		echo:    ipv6.ICMPTypeEchoRequest,
		reply:   ipv6.ICMPTypeEchoReply,
	}
	if p.privileged {
		f.network = "ip6:ipv6-icmp"
	}
	return f
}

func (p *IcmpProber) destination(ip net.IP) net.Addr {
	if p.privileged {
		return &net.IPAddr{IP: ip}
	}

	return &net.UDPAddr{IP: ip}
}

// Probe sends one echo request to target and waits at most wait, or until
// ctx is done, for the reply.
func (p *IcmpProber) Probe(ctx context.Context, target string, wait time.Duration) Result {
	deadline := time.Now().Add(wait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	ip, err := resolve(ctx, target)
	if err != nil {
		return Result{Err: errors.Errorf("could not resolve %v: %v", target, err)}
	}

	f := p.family(ip)

	conn, err := icmp.ListenPacket(f.network, f.address)
	if err != nil {
		return Result{Err: errors.Errorf("could not listen on %v: %v", f.network, err)}
	}

	defer conn.Close()

	err = conn.SetDeadline(deadline)
	if err != nil {
		return Result{Err: errors.Errorf("could not set deadline: %v", err)}
	}

	stop := make(chan struct{})
	defer close(stop)

	go func() {
		select {
		case <-ctx.Done():
			_ = conn.SetDeadline(time.Now())
		case <-stop:
		}
	}()

	seq := int(atomic.AddUint32(&p.seq, 1) & 0xffff)

	msg := icmp.Message{
		Type: f.echo,
		Code: 0,
		Body: &icmp.Echo{
			ID:   p.id,
			Seq:  seq,
			Data: payload,
		},
	}

	b, err := msg.Marshal(nil)
	if err != nil {
		return Result{Err: errors.Errorf("could not marshal echo request: %v", err)}
	}

	started := time.Now()

	_, err = conn.WriteTo(b, p.destination(ip))
	if err != nil {
		return Result{Err: errors.Errorf("could not send echo request to %v: %v", ip, err)}
	}

	buf := make([]byte, 1500)

	for {
		n, peer, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return Result{Err: ctx.Err()}
			}

			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				p.log.Debugf("No echo reply from %v within %v", ip, wait)
				return Result{}
			}

			return Result{Err: errors.Errorf("could not read echo reply: %v", err)}
		}

		if !sameHost(peer, ip) {
			continue
		}

		// unprivileged sockets get their echo id rewritten by the kernel
		if matchReply(buf[:n], f, p.id, seq, p.privileged) {
			return Result{
				Replied: true,
				RTT:     time.Since(started),
			}
		}
	}
}

func matchReply(b []byte, f family, id int, seq int, checkID bool) bool {
	m, err := icmp.ParseMessage(f.proto, b)
	if err != nil {
		return false
	}

	if m.Type != f.reply {
		return false
	}

	echo, ok := m.Body.(*icmp.Echo)
	if !ok {
		return false
	}

	if echo.Seq != seq {
		return false
	}

	return !checkID || echo.ID == id
}

func sameHost(peer net.Addr, ip net.IP) bool {
	switch addr := peer.(type) {
	case *net.UDPAddr:
		return addr.IP.Equal(ip)
	case *net.IPAddr:
		return addr.IP.Equal(ip)
	default:
		return false
	}
}

// resolve prefers an IPv4 address for host names.
func resolve(ctx context.Context, target string) (net.IP, error) {
	if ip := net.ParseIP(target); ip != nil {
		return ip, nil
	}

	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, target)
	if err != nil {
		return nil, err
	}

	if len(addrs) == 0 {
		return nil, errors.Errorf("no addresses for %v", target)
	}

	for _, addr := range addrs {
		if addr.IP.To4() != nil {
			return addr.IP, nil
		}
	}

	return addrs[0].IP, nil
}
