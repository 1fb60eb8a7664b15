package network

import "sync"

type Client struct {
	Updates    <-chan *Status
	Id         uint32
	updates    chan *Status
	cancelChan chan struct{}
	cancelOnce sync.Once
	network    Network
}

// Done is closed once the client was cancelled.
func (c *Client) Done() <-chan struct{} {
	return c.cancelChan
}

func (c *Client) Cancel() {
	c.cancelOnce.Do(func() {
		c.network.deleteClient(c.Id)
		close(c.cancelChan)
	})
}

type nextClient struct {
	sync.Mutex
	id uint32
}

// clients is the subscriber registry shared by all Network implementations.
type clients struct {
	mu         sync.Mutex
	clients    map[uint32]*Client
	nextClient nextClient
}

func newClients() *clients {
	return &clients{
		clients: make(map[uint32]*Client),
	}
}

func (c *clients) subscribe(network Network) *Client {
	updates := make(chan *Status)

	client := &Client{
		Updates:    updates,
		updates:    updates,
		cancelChan: make(chan struct{}),
		network:    network,
	}

	c.nextClient.Lock()
	client.Id = c.nextClient.id
	c.nextClient.id++
	c.nextClient.Unlock()

	c.mu.Lock()
	c.clients[client.Id] = client
	c.mu.Unlock()

	return client
}

func (c *clients) delete(id uint32) {
	c.mu.Lock()
	delete(c.clients, id)
	c.mu.Unlock()
}

// publish hands the status to every subscriber, blocking until each one
// either received it or was cancelled.
func (c *clients) publish(status *Status) {
	c.mu.Lock()
	subscribers := make([]*Client, 0, len(c.clients))
	for _, client := range c.clients {
		subscribers = append(subscribers, client)
	}
	c.mu.Unlock()

	for _, client := range subscribers {
		select {
		case client.updates <- status:
		case <-client.cancelChan:
		}
	}
}

func (c *clients) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.clients)
}
