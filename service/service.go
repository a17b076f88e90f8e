// Package service applies board, column and task mutations: each operation
// writes the record of truth first, then publishes the resulting event on
// the owning board's topic. Completing the write before publishing is what
// keeps per-board event order equal to persistence order.
package service

import (
	"context"

	"kanban-api/domain"
)

// Storage abstracts persistence for the mutation services.
type Storage interface {
	InsertBoard(ctx context.Context, b domain.Board) error
	ListBoards(ctx context.Context) ([]domain.Board, error)
	GetBoard(ctx context.Context, id string) (domain.Board, error)
	UpdateBoard(ctx context.Context, b domain.Board) error
	DeleteBoard(ctx context.Context, id string) error

	InsertColumn(ctx context.Context, c domain.Column) error
	ListColumns(ctx context.Context, boardID string) ([]domain.Column, error)
	GetColumn(ctx context.Context, id string) (domain.Column, error)
	UpdateColumn(ctx context.Context, id string, upd domain.ColumnUpdate) (domain.Column, error)
	DeleteColumn(ctx context.Context, id string) error
	DeleteColumnsByBoard(ctx context.Context, boardID string) error

	InsertTask(ctx context.Context, t domain.Task) error
	ListTasksByBoard(ctx context.Context, boardID string) ([]domain.Task, error)
	ListTasksByColumn(ctx context.Context, columnID string) ([]domain.Task, error)
	GetTask(ctx context.Context, id string) (domain.Task, error)
	UpdateTask(ctx context.Context, id string, upd domain.TaskUpdate) (domain.Task, error)
	MoveTask(ctx context.Context, id, columnID string, position float64) (domain.Task, error)
	DeleteTask(ctx context.Context, id string) error
	DeleteTasksByBoard(ctx context.Context, boardID string) error
}

// Publisher delivers events to every subscriber of a board topic.
type Publisher interface {
	Publish(ev domain.Event)
}

func publish(bus Publisher, t domain.EventType, boardID string, payload any) {
	ev, err := domain.NewEvent(t, boardID, payload)
	if err != nil {
		return
	}
	bus.Publish(ev)
}
