package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"kanban-api/domain"
)

// Tasks manages the units of work inside columns.
type Tasks struct {
	st  Storage
	bus Publisher
}

func NewTasks(st Storage, bus Publisher) *Tasks {
	return &Tasks{st: st, bus: bus}
}

// CreateTask is the input for Create. Position is optional; when absent the
// task lands at the end of its column.
type CreateTask struct {
	BoardID     string   `json:"boardId"`
	ColumnID    string   `json:"columnId"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Assignee    string   `json:"assignee,omitempty"`
	Position    *float64 `json:"position"`
}

func (s *Tasks) Create(ctx context.Context, in CreateTask) (domain.Task, error) {
	if strings.TrimSpace(in.Title) == "" {
		return domain.Task{}, fmt.Errorf("%w: task title required", domain.ErrValidation)
	}
	if _, err := s.st.GetBoard(ctx, in.BoardID); err != nil {
		return domain.Task{}, err
	}
	col, err := s.st.GetColumn(ctx, in.ColumnID)
	if err != nil {
		return domain.Task{}, err
	}
	if col.BoardID != in.BoardID {
		return domain.Task{}, fmt.Errorf("%w: column %s does not belong to board %s", domain.ErrValidation, in.ColumnID, in.BoardID)
	}
	pos, err := s.resolvePosition(ctx, in)
	if err != nil {
		return domain.Task{}, err
	}
	now := time.Now().UTC()
	t := domain.Task{
		ID:          uuid.NewString(),
		BoardID:     in.BoardID,
		ColumnID:    in.ColumnID,
		Title:       in.Title,
		Description: in.Description,
		Assignee:    in.Assignee,
		Position:    pos,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.st.InsertTask(ctx, t); err != nil {
		return domain.Task{}, err
	}
	publish(s.bus, domain.TaskCreated, t.BoardID, t)
	return t, nil
}

func (s *Tasks) resolvePosition(ctx context.Context, in CreateTask) (float64, error) {
	if in.Position != nil {
		return *in.Position, nil
	}
	siblings, err := s.st.ListTasksByColumn(ctx, in.ColumnID)
	if err != nil {
		return 0, err
	}
	var before *float64
	if n := len(siblings); n > 0 {
		before = &siblings[n-1].Position
	}
	return domain.ComputePosition(len(siblings), len(siblings), before, nil), nil
}

func (s *Tasks) ListByBoard(ctx context.Context, boardID string) ([]domain.Task, error) {
	return s.st.ListTasksByBoard(ctx, boardID)
}

func (s *Tasks) ListByColumn(ctx context.Context, columnID string) ([]domain.Task, error) {
	return s.st.ListTasksByColumn(ctx, columnID)
}

func (s *Tasks) Update(ctx context.Context, id string, upd domain.TaskUpdate) (domain.Task, error) {
	t, err := s.st.UpdateTask(ctx, id, upd)
	if err != nil {
		return domain.Task{}, err
	}
	publish(s.bus, domain.TaskUpdated, t.BoardID, t)
	return t, nil
}

// MoveTask is the input for Move: a column reassignment plus a position
// change, applied as one write.
type MoveTask struct {
	ColumnID string  `json:"columnId"`
	Position float64 `json:"position"`
}

func (s *Tasks) Move(ctx context.Context, id string, in MoveTask) (domain.Task, error) {
	current, err := s.st.GetTask(ctx, id)
	if err != nil {
		return domain.Task{}, err
	}
	col, err := s.st.GetColumn(ctx, in.ColumnID)
	if err != nil {
		return domain.Task{}, err
	}
	if col.BoardID != current.BoardID {
		return domain.Task{}, fmt.Errorf("%w: column %s does not belong to board %s", domain.ErrValidation, in.ColumnID, current.BoardID)
	}
	t, err := s.st.MoveTask(ctx, id, in.ColumnID, in.Position)
	if err != nil {
		return domain.Task{}, err
	}
	publish(s.bus, domain.TaskMoved, t.BoardID, t)
	return t, nil
}

func (s *Tasks) Delete(ctx context.Context, id string) error {
	t, err := s.st.GetTask(ctx, id)
	if err != nil {
		return err
	}
	if err := s.st.DeleteTask(ctx, id); err != nil {
		return err
	}
	publish(s.bus, domain.TaskDeleted, t.BoardID, domain.TaskDeletedData{ID: id, ColumnID: t.ColumnID})
	return nil
}
