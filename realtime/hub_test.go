package realtime

import (
	"testing"
	"time"

	"kanban-api/domain"
)

func mustEvent(t *testing.T, typ domain.EventType, boardID string, payload any) domain.Event {
	t.Helper()
	ev, err := domain.NewEvent(typ, boardID, payload)
	if err != nil {
		t.Fatalf("build event: %v", err)
	}
	return ev
}

func recvEvent(t *testing.T, sub *Subscription) domain.Event {
	t.Helper()
	select {
	case ev, ok := <-sub.Events():
		if !ok {
			t.Fatalf("subscription channel closed")
		}
		return ev
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for event")
	}
	return domain.Event{}
}

func TestHubDeliversOnlyToMatchingBoard(t *testing.T) {
	hub := NewHub()
	subA := hub.Subscribe("board-a")
	defer subA.Close()
	subB := hub.Subscribe("board-b")
	defer subB.Close()

	hub.Publish(mustEvent(t, domain.TaskCreated, "board-a", map[string]string{"id": "t1"}))

	ev := recvEvent(t, subA)
	if ev.Type != domain.TaskCreated || ev.BoardID != "board-a" {
		t.Fatalf("unexpected event: %+v", ev)
	}

	select {
	case ev := <-subB.Events():
		t.Fatalf("board-b subscriber received foreign event: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubPreservesPublishOrder(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe("board-a")
	defer sub.Close()

	types := []domain.EventType{domain.ColumnCreated, domain.TaskCreated, domain.TaskMoved, domain.TaskDeleted}
	for _, typ := range types {
		hub.Publish(mustEvent(t, typ, "board-a", map[string]string{}))
	}

	for i, want := range types {
		ev := recvEvent(t, sub)
		if ev.Type != want {
			t.Fatalf("event %d: expected %s, got %s", i, want, ev.Type)
		}
	}
}

func TestHubCloseRemovesSubscriber(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe("board-a")
	if got := hub.SubscriberCount("board-a"); got != 1 {
		t.Fatalf("expected 1 subscriber, got %d", got)
	}

	sub.Close()
	if got := hub.SubscriberCount("board-a"); got != 0 {
		t.Fatalf("expected 0 subscribers after close, got %d", got)
	}

	if _, ok := <-sub.Events(); ok {
		t.Fatalf("expected events channel to be closed")
	}

	// closing twice is safe
	sub.Close()
}

func TestHubDropsWhenSubscriberBufferFull(t *testing.T) {
	hub := &Hub{buffer: 1, subs: make(map[string]map[*Subscription]struct{})}
	sub := hub.Subscribe("board-a")
	defer sub.Close()

	first := mustEvent(t, domain.TaskCreated, "board-a", map[string]string{"id": "t1"})
	second := mustEvent(t, domain.TaskUpdated, "board-a", map[string]string{"id": "t1"})
	hub.Publish(first)
	hub.Publish(second) // buffer full, dropped

	ev := recvEvent(t, sub)
	if ev.Type != domain.TaskCreated {
		t.Fatalf("expected the first event to survive, got %s", ev.Type)
	}
	select {
	case ev := <-sub.Events():
		t.Fatalf("expected overflow event to be dropped, got %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubPublishWithoutSubscribersIsNoop(t *testing.T) {
	hub := NewHub()
	hub.Publish(mustEvent(t, domain.BoardCreated, "board-a", map[string]string{}))
}
