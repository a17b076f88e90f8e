package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"kanban-api/domain"
)

// Columns manages the ordered lanes of a board.
type Columns struct {
	st  Storage
	bus Publisher
}

func NewColumns(st Storage, bus Publisher) *Columns {
	return &Columns{st: st, bus: bus}
}

// CreateColumn is the input for Create. Position is optional; when absent
// the column lands at the end of the board.
type CreateColumn struct {
	BoardID  string   `json:"boardId"`
	Title    string   `json:"title"`
	Position *float64 `json:"position"`
}

func (s *Columns) Create(ctx context.Context, in CreateColumn) (domain.Column, error) {
	if strings.TrimSpace(in.Title) == "" {
		return domain.Column{}, fmt.Errorf("%w: column title required", domain.ErrValidation)
	}
	if _, err := s.st.GetBoard(ctx, in.BoardID); err != nil {
		return domain.Column{}, err
	}
	pos, err := s.resolvePosition(ctx, in)
	if err != nil {
		return domain.Column{}, err
	}
	col := domain.Column{
		ID:        uuid.NewString(),
		BoardID:   in.BoardID,
		Title:     in.Title,
		Position:  pos,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.st.InsertColumn(ctx, col); err != nil {
		return domain.Column{}, err
	}
	publish(s.bus, domain.ColumnCreated, col.BoardID, col)
	return col, nil
}

func (s *Columns) resolvePosition(ctx context.Context, in CreateColumn) (float64, error) {
	if in.Position != nil {
		return *in.Position, nil
	}
	siblings, err := s.st.ListColumns(ctx, in.BoardID)
	if err != nil {
		return 0, err
	}
	var before *float64
	if n := len(siblings); n > 0 {
		before = &siblings[n-1].Position
	}
	return domain.ComputePosition(len(siblings), len(siblings), before, nil), nil
}

func (s *Columns) ListByBoard(ctx context.Context, boardID string) ([]domain.Column, error) {
	return s.st.ListColumns(ctx, boardID)
}

func (s *Columns) Update(ctx context.Context, id string, upd domain.ColumnUpdate) (domain.Column, error) {
	col, err := s.st.UpdateColumn(ctx, id, upd)
	if err != nil {
		return domain.Column{}, err
	}
	publish(s.bus, domain.ColumnUpdated, col.BoardID, col)
	return col, nil
}

func (s *Columns) Delete(ctx context.Context, id string) error {
	col, err := s.st.GetColumn(ctx, id)
	if err != nil {
		return err
	}
	if err := s.st.DeleteColumn(ctx, id); err != nil {
		return err
	}
	publish(s.bus, domain.ColumnDeleted, col.BoardID, domain.ColumnDeletedData{ID: id, BoardID: col.BoardID})
	return nil
}
