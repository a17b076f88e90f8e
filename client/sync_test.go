package client

import (
	"testing"
	"time"

	"kanban-api/domain"
	"kanban-api/export"
	"kanban-api/realtime"
)

func publishAndSettle(t *testing.T, hub *realtime.Hub, typ domain.EventType, boardID string, payload any) {
	t.Helper()
	ev, err := domain.NewEvent(typ, boardID, payload)
	if err != nil {
		t.Fatalf("build event: %v", err)
	}
	hub.Publish(ev)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition never satisfied")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSynchronizerAppliesTaskLifecycle(t *testing.T) {
	hub := realtime.NewHub()
	store := NewBoardStore()
	sync := Attach(hub, Config{BoardID: "b1", Store: store})
	defer sync.Close()

	publishAndSettle(t, hub, domain.ColumnCreated, "b1", col("c1", 0))
	publishAndSettle(t, hub, domain.TaskCreated, "b1", task("t1", "c1", 10))
	waitFor(t, func() bool { return store.TaskCount() == 1 })

	publishAndSettle(t, hub, domain.TaskMoved, "b1", task("t1", "c2", 5))
	waitFor(t, func() bool { return len(store.Tasks("c2")) == 1 })

	publishAndSettle(t, hub, domain.TaskDeleted, "b1", domain.TaskDeletedData{ID: "t1", ColumnID: "c2"})
	waitFor(t, func() bool { return store.TaskCount() == 0 })
}

func TestSynchronizerIgnoresForeignBoardEvents(t *testing.T) {
	hub := realtime.NewHub()
	store := NewBoardStore()
	sync := Attach(hub, Config{BoardID: "b1", Store: store})
	defer sync.Close()

	// marker event so we know the loop has drained the stray
	publishAndSettle(t, hub, domain.TaskCreated, "b2", task("t-stray", "c1", 10))
	publishAndSettle(t, hub, domain.TaskCreated, "b1", task("t1", "c1", 10))
	waitFor(t, func() bool { return store.TaskCount() == 1 })

	if len(store.Tasks("c1")) != 1 || store.Tasks("c1")[0].ID != "t1" {
		t.Fatalf("stray event leaked into the store: %+v", store.Tasks("c1"))
	}
}

func TestSynchronizerBoardDeletedResetsStore(t *testing.T) {
	hub := realtime.NewHub()
	store := NewBoardStore()
	sync := Attach(hub, Config{BoardID: "b1", Store: store})
	defer sync.Close()

	publishAndSettle(t, hub, domain.ColumnCreated, "b1", col("c1", 0))
	waitFor(t, func() bool { return len(store.Columns()) == 1 })

	publishAndSettle(t, hub, domain.BoardDeleted, "b1", domain.BoardDeletedData{ID: "b1"})
	waitFor(t, func() bool { return len(store.Columns()) == 0 })
}

func TestSynchronizerExportCallbacksAndIdempotence(t *testing.T) {
	hub := realtime.NewHub()
	store := NewBoardStore()

	var completed []export.Snapshot
	done := make(chan struct{}, 4)
	sync := Attach(hub, Config{
		BoardID: "b1",
		Store:   store,
		OnExportCompleted: func(s export.Snapshot) {
			completed = append(completed, s)
			done <- struct{}{}
		},
	})
	defer sync.Close()

	snap := export.Snapshot{RequestID: "r1", BoardID: "b1", Status: export.StatusSuccess}
	publishAndSettle(t, hub, domain.ExportCompleted, "b1", snap)
	publishAndSettle(t, hub, domain.ExportCompleted, "b1", snap)

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatalf("export callbacks not delivered")
		}
	}

	last := sync.LastExport()
	if last == nil || last.RequestID != "r1" || last.Status != export.StatusSuccess {
		t.Fatalf("unexpected last export: %+v", last)
	}
	// duplicate delivery leaves the same terminal state
	if len(completed) != 2 || completed[1].Status != export.StatusSuccess {
		t.Fatalf("unexpected callback sequence: %+v", completed)
	}
}

func TestSynchronizerCloseLeavesTopic(t *testing.T) {
	hub := realtime.NewHub()
	store := NewBoardStore()
	sync := Attach(hub, Config{BoardID: "b1", Store: store})

	if hub.SubscriberCount("b1") != 1 {
		t.Fatalf("expected one subscriber after attach")
	}
	sync.Close()
	if hub.SubscriberCount("b1") != 0 {
		t.Fatalf("expected topic to be left on close")
	}
	if store.BoardID() != "" {
		t.Fatalf("store should be reset on close")
	}
}
