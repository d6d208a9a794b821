package ws

import (
	"encoding/json"
	"time"
)

type Event struct {
	Type      string `json:"type"`
	Data      any    `json:"data"`
	Timestamp string `json:"timestamp"`
}

// Publisher adapts the hub to the usecase event sink.
type Publisher struct {
	hub *Hub
}

func NewPublisher(hub *Hub) *Publisher {
	return &Publisher{hub: hub}
}

func (p *Publisher) Publish(eventType string, data any) {
	if p == nil || p.hub == nil {
		return
	}

	evt := Event{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	b, err := json.Marshal(evt)
	if err != nil {
		if p.hub.logger != nil {
			p.hub.logger.Printf("[WS] event encode failed type=%s error=%v", eventType, err)
		}
		return
	}

	p.hub.Broadcast(eventType, b)
}
