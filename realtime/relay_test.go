package realtime

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"kanban-api/domain"
)

func TestRelayRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	hub := NewHub()
	relay := NewRelay(client, "test:events", hub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go relay.Run(ctx)

	// wait for the subscription to land before publishing
	deadline := time.Now().Add(time.Second)
	for mr.PubSubNumSub("test:events")["test:events"] == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("relay never subscribed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	sub := hub.Subscribe("board-a")
	defer sub.Close()

	relay.Publish(mustEvent(t, domain.TaskMoved, "board-a", map[string]string{"id": "t1"}))

	select {
	case ev := <-sub.Events():
		if ev.Type != domain.TaskMoved || ev.BoardID != "board-a" {
			t.Fatalf("unexpected event through relay: %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for relayed event")
	}
}

func TestRelayIgnoresMalformedPayload(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	hub := NewHub()
	relay := NewRelay(client, "test:events", hub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go relay.Run(ctx)

	deadline := time.Now().Add(time.Second)
	for mr.PubSubNumSub("test:events")["test:events"] == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("relay never subscribed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	sub := hub.Subscribe("board-a")
	defer sub.Close()

	mr.Publish("test:events", "{broken")
	relay.Publish(mustEvent(t, domain.TaskCreated, "board-a", map[string]string{"id": "t2"}))

	select {
	case ev := <-sub.Events():
		if ev.Type != domain.TaskCreated {
			t.Fatalf("expected the well-formed event, got %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for event after malformed payload")
	}
}
