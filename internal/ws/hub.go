package ws

import (
	"context"
	"log"
	"sync/atomic"

	"skill-registry/internal/metrics"
)

type outbound struct {
	eventType string
	payload   []byte
}

// Hub fans registry events out to connected clients. Only Run touches the
// client set. A client whose send buffer is full is dropped instead of
// stalling the loop.
type Hub struct {
	clients    map[*Client]struct{}
	count      atomic.Int64
	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client
	logger     *log.Logger
	metrics    *metrics.Metrics
}

func NewHub(logger *log.Logger, m *metrics.Metrics) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan outbound, 1024),
		register:   make(chan *Client, 128),
		unregister: make(chan *Client, 128),
		logger:     logger,
		metrics:    m,
	}
}

// Run serves the hub until ctx is done, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.drop(c)
			}
			return
		case c := <-h.register:
			if c == nil {
				continue
			}
			h.clients[c] = struct{}{}
			h.count.Store(int64(len(h.clients)))
			h.metrics.WSConnected(1)
			h.logf("[WS] connected total_clients=%d", len(h.clients))
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.drop(c)
				h.logf("[WS] disconnected total_clients=%d", len(h.clients))
			}
		case msg := <-h.broadcast:
			h.fanout(msg)
		}
	}
}

func (h *Hub) fanout(msg outbound) {
	delivered := 0
	for c := range h.clients {
		if !c.wants(msg.eventType) {
			continue
		}
		select {
		case c.send <- msg.payload:
			delivered++
		default:
			h.drop(c)
			h.logf("[WS] slow client dropped type=%s", msg.eventType)
		}
	}
	h.metrics.WSBroadcast()
	h.logf("[WS] broadcast type=%s delivered=%d", msg.eventType, delivered)
}

// drop must only be called from Run.
func (h *Hub) drop(c *Client) {
	delete(h.clients, c)
	close(c.send)
	h.count.Store(int64(len(h.clients)))
	h.metrics.WSConnected(-1)
}

func (h *Hub) logf(format string, args ...any) {
	if h.logger != nil {
		h.logger.Printf(format, args...)
	}
}

func (h *Hub) Register(c *Client) {
	if h == nil {
		return
	}
	h.register <- c
}

func (h *Hub) Unregister(c *Client) {
	if h == nil {
		return
	}
	h.unregister <- c
}

// Broadcast queues payload for every client subscribed to eventType. It never
// blocks; when the queue is full the event is dropped.
func (h *Hub) Broadcast(eventType string, payload []byte) {
	if h == nil {
		return
	}
	select {
	case h.broadcast <- outbound{eventType: eventType, payload: payload}:
	default:
		h.logf("[WS] broadcast dropped type=%s reason=buffer_full", eventType)
	}
}

func (h *Hub) ClientCount() int {
	if h == nil {
		return 0
	}
	return int(h.count.Load())
}
