// Package client holds the view-side half of the sync core: an in-memory
// mirror of one board, a synchronizer applying bus events to it, and the
// bounded export status poller.
package client

import (
	"sort"
	"sync"

	"kanban-api/domain"
)

// BoardStore mirrors one board's columns and tasks. Every write re-sorts
// the affected scope by position, so the store never trusts caller-supplied
// order. Upsert is the single apply path for both optimistic local
// mutations and authoritative server events: the last write wins and a
// server event naturally overwrites a stale optimistic guess.
type BoardStore struct {
	mu            sync.Mutex
	boardID       string
	columns       []domain.Column
	tasksByColumn map[string][]domain.Task
}

func NewBoardStore() *BoardStore {
	return &BoardStore{tasksByColumn: make(map[string][]domain.Task)}
}

func (s *BoardStore) SetBoardID(id string) {
	s.mu.Lock()
	s.boardID = id
	s.mu.Unlock()
}

func (s *BoardStore) BoardID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.boardID
}

// SetColumns bulk-replaces the column list.
func (s *BoardStore) SetColumns(cols []domain.Column) {
	s.mu.Lock()
	s.columns = append([]domain.Column(nil), cols...)
	sortColumns(s.columns)
	s.mu.Unlock()
}

// SetTasks bulk-replaces every task bucket, grouping by column.
func (s *BoardStore) SetTasks(tasks []domain.Task) {
	s.mu.Lock()
	buckets := make(map[string][]domain.Task)
	for _, t := range tasks {
		buckets[t.ColumnID] = append(buckets[t.ColumnID], t)
	}
	for id := range buckets {
		sortTasks(buckets[id])
	}
	s.tasksByColumn = buckets
	s.mu.Unlock()
}

// UpsertColumn replaces the column by id or inserts it, then re-sorts.
func (s *BoardStore) UpsertColumn(c domain.Column) {
	s.mu.Lock()
	out := s.columns[:0]
	for _, existing := range s.columns {
		if existing.ID != c.ID {
			out = append(out, existing)
		}
	}
	s.columns = append(out, c)
	sortColumns(s.columns)
	s.mu.Unlock()
}

// UpsertTask replaces the task by id inside its column bucket or inserts
// it, then re-sorts that bucket. A task whose column changed is removed
// from every other bucket first.
func (s *BoardStore) UpsertTask(t domain.Task) {
	s.mu.Lock()
	s.removeTaskLocked(t.ID)
	bucket := append(s.tasksByColumn[t.ColumnID], t)
	sortTasks(bucket)
	s.tasksByColumn[t.ColumnID] = bucket
	s.mu.Unlock()
}

// MoveTaskLocally applies an optimistic move on drag release, before the
// server confirms: remove from the source bucket, re-home with the
// provisional position, re-sort the destination.
func (s *BoardStore) MoveTaskLocally(taskID, fromColumnID, toColumnID string, toPosition float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var moving *domain.Task
	src := s.tasksByColumn[fromColumnID]
	out := src[:0]
	for i := range src {
		if src[i].ID == taskID {
			cp := src[i]
			moving = &cp
			continue
		}
		out = append(out, src[i])
	}
	if moving == nil {
		return
	}
	s.tasksByColumn[fromColumnID] = out

	moving.ColumnID = toColumnID
	moving.Position = toPosition
	dst := append(s.tasksByColumn[toColumnID], *moving)
	sortTasks(dst)
	s.tasksByColumn[toColumnID] = dst
}

// RemoveColumn deletes the column and discards its task bucket.
func (s *BoardStore) RemoveColumn(id string) {
	s.mu.Lock()
	out := s.columns[:0]
	for _, c := range s.columns {
		if c.ID != id {
			out = append(out, c)
		}
	}
	s.columns = out
	delete(s.tasksByColumn, id)
	s.mu.Unlock()
}

// RemoveTask deletes a task from the given column's bucket.
func (s *BoardStore) RemoveTask(id, columnID string) {
	s.mu.Lock()
	bucket := s.tasksByColumn[columnID]
	out := bucket[:0]
	for _, t := range bucket {
		if t.ID != id {
			out = append(out, t)
		}
	}
	s.tasksByColumn[columnID] = out
	s.mu.Unlock()
}

// Reset clears all state. Invoked on navigation away from a board so no
// stale state bleeds into the next one.
func (s *BoardStore) Reset() {
	s.mu.Lock()
	s.boardID = ""
	s.columns = nil
	s.tasksByColumn = make(map[string][]domain.Task)
	s.mu.Unlock()
}

// Columns returns a copy of the ordered column list.
func (s *BoardStore) Columns() []domain.Column {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Column(nil), s.columns...)
}

// Tasks returns a copy of the ordered task list for a column.
func (s *BoardStore) Tasks(columnID string) []domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Task(nil), s.tasksByColumn[columnID]...)
}

// TaskCount returns the total number of tasks across buckets.
func (s *BoardStore) TaskCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, bucket := range s.tasksByColumn {
		n += len(bucket)
	}
	return n
}

func (s *BoardStore) removeTaskLocked(id string) {
	for colID, bucket := range s.tasksByColumn {
		out := bucket[:0]
		removed := false
		for _, t := range bucket {
			if t.ID == id {
				removed = true
				continue
			}
			out = append(out, t)
		}
		if removed {
			s.tasksByColumn[colID] = out
		}
	}
}

func sortColumns(cols []domain.Column) {
	sort.SliceStable(cols, func(i, j int) bool {
		if cols[i].Position != cols[j].Position {
			return cols[i].Position < cols[j].Position
		}
		return cols[i].ID < cols[j].ID
	})
}

func sortTasks(tasks []domain.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].Position != tasks[j].Position {
			return tasks[i].Position < tasks[j].Position
		}
		return tasks[i].ID < tasks[j].ID
	})
}
