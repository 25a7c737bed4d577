package realtime

import (
	"sync"

	"github.com/google/uuid"

	"github.com/yungbote/surveybridge-backend/internal/platform/logger"
)

const outboundBuffer = 64

// Client is one event stream subscriber. An empty channel set receives
// every event.
type Client struct {
	ID       uuid.UUID
	Channels map[string]bool
	Outbound chan Event
}

// Hub fans events out to in-process subscribers. Slow clients drop events
// rather than block the publisher.
type Hub struct {
	log     *logger.Logger
	mu      sync.RWMutex
	clients map[uuid.UUID]*Client
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{log: log.With("service", "EventHub"), clients: map[uuid.UUID]*Client{}}
}

func (h *Hub) Subscribe(channels ...string) *Client {
	c := &Client{ID: uuid.New(), Channels: map[string]bool{}, Outbound: make(chan Event, outboundBuffer)}
	for _, ch := range channels {
		if ch != "" {
			c.Channels[ch] = true
		}
	}
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()
	return c
}

// Close unsubscribes c and closes its outbound channel.
func (h *Hub) Close(c *Client) {
	if c == nil {
		return
	}
	h.mu.Lock()
	if _, ok := h.clients[c.ID]; ok {
		delete(h.clients, c.ID)
		close(c.Outbound)
	}
	h.mu.Unlock()
}

func (h *Hub) Broadcast(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		if len(c.Channels) > 0 && !c.Channels[ev.Channel] {
			continue
		}
		select {
		case c.Outbound <- ev:
		default:
			h.log.Warn("event dropped for slow client", "client_id", c.ID.String(), "type", string(ev.Type))
		}
	}
}
