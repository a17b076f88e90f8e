package domain

import (
	"encoding/json"
	"fmt"

	"github.com/bytedance/sonic"
)

// EventType enumerates every event the bus carries. The set is closed:
// publishers and subscribers share these constants so a typo cannot silently
// create a new event kind.
type EventType string

const (
	BoardCreated    EventType = "board.created"
	BoardUpdated    EventType = "board.updated"
	BoardDeleted    EventType = "board.deleted"
	ColumnCreated   EventType = "column.created"
	ColumnUpdated   EventType = "column.updated"
	ColumnDeleted   EventType = "column.deleted"
	TaskCreated     EventType = "task.created"
	TaskUpdated     EventType = "task.updated"
	TaskMoved       EventType = "task.moved"
	TaskDeleted     EventType = "task.deleted"
	ExportRequested EventType = "export.requested"
	ExportCompleted EventType = "export.completed"
	ExportFailed    EventType = "export.failed"
)

// Event is the wire envelope published on a board topic.
type Event struct {
	Type    EventType       `json:"type"`
	BoardID string          `json:"boardId"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// NewEvent serializes payload into an event scoped to boardID.
func NewEvent(t EventType, boardID string, payload any) (Event, error) {
	data, err := sonic.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", t, err)
	}
	return Event{Type: t, BoardID: boardID, Data: data}, nil
}

// ColumnDeletedData is the minimal deletion marker for columns.
type ColumnDeletedData struct {
	ID      string `json:"id"`
	BoardID string `json:"boardId"`
}

// TaskDeletedData carries the deleted task id and the column it left.
type TaskDeletedData struct {
	ID       string `json:"id"`
	ColumnID string `json:"columnId"`
}

// BoardDeletedData is the minimal deletion marker for boards.
type BoardDeletedData struct {
	ID string `json:"id"`
}
