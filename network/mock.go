package network

import "sync"

// check MockNetwork compliance to its interface during compile time
var _ Network = (*MockNetwork)(nil)

// MockNetwork reports whatever status was last set on it.
type MockNetwork struct {
	mu      sync.Mutex
	status  *Status
	clients *clients
}

func NewMockNetwork(initial *Status) *MockNetwork {
	if initial == nil {
		initial = NewStatus(false, None)
	}

	return &MockNetwork{
		status:  initial,
		clients: newClients(),
	}
}

func (n *MockNetwork) Start() error {
	return nil
}

func (n *MockNetwork) Stop() error {
	return nil
}

func (n *MockNetwork) Status() *Status {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.status
}

// SetStatus changes the reported status and emits an event to all
// subscribers.
func (n *MockNetwork) SetStatus(status *Status) {
	n.mu.Lock()
	n.status = status
	n.mu.Unlock()

	n.clients.publish(status)
}

// Subscribers returns the number of active subscriptions.
func (n *MockNetwork) Subscribers() int {
	return n.clients.count()
}

func (n *MockNetwork) Subscribe() *Client {
	return n.clients.subscribe(n)
}

func (n *MockNetwork) deleteClient(id uint32) {
	n.clients.delete(id)
}
