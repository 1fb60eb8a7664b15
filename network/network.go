package network

// ConnectionType is the kind of link currently carrying traffic.
type ConnectionType int

const (
	None ConnectionType = iota
	Wifi
	Mobile
	Ethernet
)

func (t ConnectionType) String() string {
	switch t {
	case None:
		return "none"
	case Wifi:
		return "wifi"
	case Mobile:
		return "mobile"
	case Ethernet:
		return "ethernet"
	default:
		return "invalid"
	}
}

type Status struct {
	connected bool
	kind      ConnectionType
}

func NewStatus(connected bool, kind ConnectionType) *Status {
	if !connected {
		kind = None
	}

	return &Status{
		connected: connected,
		kind:      kind,
	}
}

func (s *Status) Connected() bool {
	return s != nil && s.connected
}

// Type returns None for a nil or disconnected status.
func (s *Status) Type() ConnectionType {
	if s == nil {
		return None
	}

	return s.kind
}

// Network is an OS level view on connectivity. Subscribers get an update
// for every connectivity event the OS reports, whether or not the
// resulting status differs from the previous one.
type Network interface {
	Start() error
	Stop() error
	Status() *Status
	Subscribe() *Client
	deleteClient(uint32)
}
