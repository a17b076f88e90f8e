package client

import (
	"testing"

	"kanban-api/domain"
)

func col(id string, pos float64) domain.Column {
	return domain.Column{ID: id, BoardID: "b1", Title: "Column " + id, Position: pos}
}

func task(id, columnID string, pos float64) domain.Task {
	return domain.Task{ID: id, BoardID: "b1", ColumnID: columnID, Title: "Task " + id, Position: pos}
}

func columnIDs(cols []domain.Column) []string {
	ids := make([]string, len(cols))
	for i, c := range cols {
		ids[i] = c.ID
	}
	return ids
}

func taskIDs(tasks []domain.Task) []string {
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	return ids
}

func assertOrder(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestStoreSortsColumnsOnWrite(t *testing.T) {
	s := NewBoardStore()
	s.SetColumns([]domain.Column{col("c3", 20), col("c1", 0), col("c2", 10)})
	assertOrder(t, columnIDs(s.Columns()), []string{"c1", "c2", "c3"})

	// an update that changes position re-sorts
	s.UpsertColumn(col("c3", 5))
	assertOrder(t, columnIDs(s.Columns()), []string{"c1", "c3", "c2"})
}

func TestStoreUpsertTaskIsIdempotent(t *testing.T) {
	s := NewBoardStore()
	s.SetColumns([]domain.Column{col("c1", 0)})

	moved := task("t1", "c1", 15)
	s.UpsertTask(moved)
	s.UpsertTask(moved)

	tasks := s.Tasks("c1")
	if len(tasks) != 1 {
		t.Fatalf("duplicate apply produced %d tasks", len(tasks))
	}
	if tasks[0].Position != 15 {
		t.Fatalf("unexpected position: %v", tasks[0].Position)
	}
}

func TestStoreUpsertTaskRehomesAcrossColumns(t *testing.T) {
	s := NewBoardStore()
	s.SetTasks([]domain.Task{task("t1", "c1", 10), task("t2", "c1", 20)})

	// the server-confirmed move carries the new column
	s.UpsertTask(task("t1", "c2", 5))

	assertOrder(t, taskIDs(s.Tasks("c1")), []string{"t2"})
	assertOrder(t, taskIDs(s.Tasks("c2")), []string{"t1"})
	if s.TaskCount() != 2 {
		t.Fatalf("expected 2 tasks total, got %d", s.TaskCount())
	}
}

func TestStoreOptimisticMoveThenAuthoritativeOverwrite(t *testing.T) {
	s := NewBoardStore()
	s.SetTasks([]domain.Task{task("t1", "c1", 10), task("t2", "c2", 10)})

	// drag release: optimistic guess lands at 0
	s.MoveTaskLocally("t1", "c1", "c2", 0)
	assertOrder(t, taskIDs(s.Tasks("c2")), []string{"t1", "t2"})

	// the confirmed event places it after t2 instead
	s.UpsertTask(task("t1", "c2", 20))
	assertOrder(t, taskIDs(s.Tasks("c2")), []string{"t2", "t1"})
}

func TestStoreMoveLocallyUnknownTaskIsNoop(t *testing.T) {
	s := NewBoardStore()
	s.SetTasks([]domain.Task{task("t1", "c1", 10)})

	s.MoveTaskLocally("ghost", "c1", "c2", 0)

	assertOrder(t, taskIDs(s.Tasks("c1")), []string{"t1"})
	if len(s.Tasks("c2")) != 0 {
		t.Fatalf("phantom task appeared in destination")
	}
}

func TestStoreRemoveColumnDropsItsTasks(t *testing.T) {
	s := NewBoardStore()
	s.SetColumns([]domain.Column{col("c1", 0), col("c2", 10)})
	s.SetTasks([]domain.Task{task("t1", "c1", 10), task("t2", "c2", 10)})

	s.RemoveColumn("c1")

	assertOrder(t, columnIDs(s.Columns()), []string{"c2"})
	if s.TaskCount() != 1 {
		t.Fatalf("expected orphaned bucket to be dropped, got %d tasks", s.TaskCount())
	}
}

func TestStorePositionTieBreaksOnID(t *testing.T) {
	s := NewBoardStore()
	s.SetTasks([]domain.Task{task("t-b", "c1", 10), task("t-a", "c1", 10)})
	assertOrder(t, taskIDs(s.Tasks("c1")), []string{"t-a", "t-b"})
}

func TestStoreReset(t *testing.T) {
	s := NewBoardStore()
	s.SetBoardID("b1")
	s.SetColumns([]domain.Column{col("c1", 0)})
	s.SetTasks([]domain.Task{task("t1", "c1", 10)})

	s.Reset()

	if s.BoardID() != "" || len(s.Columns()) != 0 || s.TaskCount() != 0 {
		t.Fatalf("reset left state behind")
	}
}
