package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func waitForClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if h.ClientCount() == n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d clients, got %d", n, h.ClientCount())
}

func TestPublisher_BroadcastsToRegisteredClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(nil, nil)
	go hub.Run(ctx)

	c := &Client{hub: hub, send: make(chan []byte, 4)}
	hub.Register(c)
	waitForClients(t, hub, 1)

	NewPublisher(hub).Publish("evaluation_recorded", map[string]any{"level": 4})

	select {
	case msg := <-c.send:
		var evt Event
		if err := json.Unmarshal(msg, &evt); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		if evt.Type != "evaluation_recorded" {
			t.Fatalf("unexpected type %q", evt.Type)
		}
		if evt.Timestamp == "" {
			t.Fatalf("expected timestamp")
		}
	case <-time.After(time.Second):
		t.Fatalf("no message delivered")
	}
}

func TestHub_UnregisterClosesSend(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(nil, nil)
	go hub.Run(ctx)

	c := &Client{hub: hub, send: make(chan []byte, 1)}
	hub.Register(c)
	waitForClients(t, hub, 1)

	hub.Unregister(c)
	waitForClients(t, hub, 0)

	if _, ok := <-c.send; ok {
		t.Fatalf("expected send channel to be closed")
	}
}

func TestNilPublisherIsNoop(t *testing.T) {
	var p *Publisher
	p.Publish("profile_deleted", nil)
	NewPublisher(nil).Publish("profile_deleted", nil)
}

func TestHub_DeliversOnlySubscribedTypes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(nil, nil)
	go hub.Run(ctx)

	deletions := NewClient(hub, nil, "profile_deleted", " ")
	everything := NewClient(hub, nil)
	hub.Register(deletions)
	hub.Register(everything)
	waitForClients(t, hub, 2)

	pub := NewPublisher(hub)
	pub.Publish("evaluation_recorded", nil)
	pub.Publish("profile_deleted", map[string]any{"profileId": "p1"})

	for i := 0; i < 2; i++ {
		select {
		case <-everything.send:
		case <-time.After(time.Second):
			t.Fatalf("unfiltered client missed event %d", i)
		}
	}

	select {
	case msg := <-deletions.send:
		var evt Event
		if err := json.Unmarshal(msg, &evt); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		if evt.Type != "profile_deleted" {
			t.Fatalf("filtered client got %q", evt.Type)
		}
	case <-time.After(time.Second):
		t.Fatalf("filtered client missed its event")
	}

	select {
	case msg := <-deletions.send:
		t.Fatalf("unexpected extra message %s", msg)
	default:
	}
}
