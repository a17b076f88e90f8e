package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"kanban-api/domain"
)

// Boards manages board lifecycle including the cascading delete.
type Boards struct {
	st  Storage
	bus Publisher
}

func NewBoards(st Storage, bus Publisher) *Boards {
	return &Boards{st: st, bus: bus}
}

// CreateBoard is the input for Create.
type CreateBoard struct {
	Name  string `json:"name"`
	Owner string `json:"owner,omitempty"`
}

func (s *Boards) Create(ctx context.Context, in CreateBoard) (domain.Board, error) {
	if strings.TrimSpace(in.Name) == "" {
		return domain.Board{}, fmt.Errorf("%w: board name required", domain.ErrValidation)
	}
	b := domain.Board{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Owner:     in.Owner,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.st.InsertBoard(ctx, b); err != nil {
		return domain.Board{}, err
	}
	publish(s.bus, domain.BoardCreated, b.ID, b)
	return b, nil
}

func (s *Boards) List(ctx context.Context) ([]domain.Board, error) {
	return s.st.ListBoards(ctx)
}

func (s *Boards) Get(ctx context.Context, id string) (domain.Board, error) {
	return s.st.GetBoard(ctx, id)
}

// UpdateBoard carries partial board updates.
type UpdateBoard struct {
	Name  *string `json:"name"`
	Owner *string `json:"owner"`
}

func (s *Boards) Update(ctx context.Context, id string, in UpdateBoard) (domain.Board, error) {
	b, err := s.st.GetBoard(ctx, id)
	if err != nil {
		return domain.Board{}, err
	}
	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return domain.Board{}, fmt.Errorf("%w: board name required", domain.ErrValidation)
		}
		b.Name = *in.Name
	}
	if in.Owner != nil {
		b.Owner = *in.Owner
	}
	if err := s.st.UpdateBoard(ctx, b); err != nil {
		return domain.Board{}, err
	}
	publish(s.bus, domain.BoardUpdated, b.ID, b)
	return b, nil
}

// Delete removes a board and everything it owns: tasks first, then columns,
// then the board record. Every descendant publishes its own deleted event,
// so subscribers observe the cascade incrementally.
func (s *Boards) Delete(ctx context.Context, id string) error {
	if _, err := s.st.GetBoard(ctx, id); err != nil {
		return err
	}

	tasks, err := s.st.ListTasksByBoard(ctx, id)
	if err != nil {
		return err
	}
	cols, err := s.st.ListColumns(ctx, id)
	if err != nil {
		return err
	}

	if err := s.st.DeleteTasksByBoard(ctx, id); err != nil {
		return err
	}
	for _, t := range tasks {
		publish(s.bus, domain.TaskDeleted, id, domain.TaskDeletedData{ID: t.ID, ColumnID: t.ColumnID})
	}

	if err := s.st.DeleteColumnsByBoard(ctx, id); err != nil {
		return err
	}
	for _, c := range cols {
		publish(s.bus, domain.ColumnDeleted, id, domain.ColumnDeletedData{ID: c.ID, BoardID: id})
	}

	if err := s.st.DeleteBoard(ctx, id); err != nil {
		return err
	}
	publish(s.bus, domain.BoardDeleted, id, domain.BoardDeletedData{ID: id})

	log.WithFields(log.Fields{"board": id, "tasks": len(tasks), "columns": len(cols)}).
		Info("board deleted")
	return nil
}

// ColumnSummary pairs a column with its current task count.
type ColumnSummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Count int    `json:"count"`
}

// BoardSummary is the read-only per-board projection.
type BoardSummary struct {
	BoardID    string          `json:"boardId"`
	TotalTasks int             `json:"totalTasks"`
	Columns    []ColumnSummary `json:"columns"`
}

// Summary aggregates each column with the count of tasks assigned to it.
func (s *Boards) Summary(ctx context.Context, id string) (BoardSummary, error) {
	if _, err := s.st.GetBoard(ctx, id); err != nil {
		return BoardSummary{}, err
	}
	cols, err := s.st.ListColumns(ctx, id)
	if err != nil {
		return BoardSummary{}, err
	}
	tasks, err := s.st.ListTasksByBoard(ctx, id)
	if err != nil {
		return BoardSummary{}, err
	}
	counts := make(map[string]int, len(cols))
	for _, t := range tasks {
		counts[t.ColumnID]++
	}
	sum := BoardSummary{BoardID: id, TotalTasks: len(tasks), Columns: make([]ColumnSummary, 0, len(cols))}
	for _, c := range cols {
		sum.Columns = append(sum.Columns, ColumnSummary{ID: c.ID, Title: c.Title, Count: counts[c.ID]})
	}
	return sum, nil
}
