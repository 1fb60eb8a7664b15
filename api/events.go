package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/the-lightning-land/netwatchd/connectivity"
	"github.com/the-lightning-land/netwatchd/network"
)

// check Api compliance to the notifier interface during compile time
var _ connectivity.Notifier = (*Api)(nil)

const (
	eventConnected    = "connected"
	eventDisconnected = "disconnected"

	subscriberBuffer = 16
)

type connectivityEvent struct {
	Event string    `json:"event"`
	Type  string    `json:"type,omitempty"`
	Time  time.Time `json:"time"`
}

// hub fans connectivity events out to websocket subscribers. Slow
// subscribers lose events instead of stalling the watcher.
type hub struct {
	mu          sync.Mutex
	subscribers map[uint32]chan *connectivityEvent
	next        uint32
}

func newHub() *hub {
	return &hub{
		subscribers: make(map[uint32]chan *connectivityEvent),
	}
}

func (h *hub) subscribe() (uint32, <-chan *connectivityEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.next
	h.next++

	events := make(chan *connectivityEvent, subscriberBuffer)
	h.subscribers[id] = events

	return id, events
}

func (h *hub) unsubscribe(id uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.subscribers, id)
}

// broadcast returns the number of subscribers that missed the event.
func (h *hub) broadcast(event *connectivityEvent) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	dropped := 0
	for _, events := range h.subscribers {
		select {
		case events <- event:
		default:
			dropped++
		}
	}

	return dropped
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.subscribers)
}

func (a *Api) OnConnected(kind network.ConnectionType) {
	a.publish(&connectivityEvent{
		Event: eventConnected,
		Type:  kind.String(),
		Time:  time.Now(),
	})
}

func (a *Api) OnDisconnected() {
	a.publish(&connectivityEvent{
		Event: eventDisconnected,
		Time:  time.Now(),
	})
}

func (a *Api) publish(event *connectivityEvent) {
	if dropped := a.events.broadcast(event); dropped > 0 {
		a.log.Warnf("%d event subscribers missed %v", dropped, event.Event)
	}
}

func (a *Api) handleGetEvents() http.HandlerFunc {
	upgrader := &websocket.Upgrader{}

	return func(w http.ResponseWriter, r *http.Request) {
		id, events := a.events.subscribe()
		defer a.events.unsubscribe(id)

		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			a.log.Errorf("Could not upgrade to websocket: %v", err)
			return
		}
		defer c.Close()

		closed := make(chan struct{})

		// read pump
		go func() {
			defer close(closed)

			c.SetReadLimit(512)
			c.SetReadDeadline(time.Now().Add(60 * time.Second))
			c.SetPongHandler(func(string) error {
				c.SetReadDeadline(time.Now().Add(60 * time.Second))
				return nil
			})

			for {
				_, _, err := c.ReadMessage()
				if err != nil {
					if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
						a.log.Errorf("unexpected websocket closure: %v", err)
					}
					break
				}
			}
		}()

		// write pump
		ticker := time.NewTicker(54 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case event := <-events:
				c.SetWriteDeadline(time.Now().Add(10 * time.Second))

				err := c.WriteJSON(event)
				if err != nil {
					return
				}
			case <-ticker.C:
				c.SetWriteDeadline(time.Now().Add(10 * time.Second))
				if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			case <-closed:
				return
			}
		}
	}
}
