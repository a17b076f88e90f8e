package domain

import "time"

// Board is the top-level container of columns and tasks and the unit of
// realtime topic scoping.
type Board struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Owner     string    `json:"owner,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Column is an ordered lane within a board. Position is an ordering key,
// not an index: siblings sort by (BoardID, Position) with ID as tiebreak.
type Column struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	BoardID   string    `gorm:"index;size:36;not null" json:"boardId"`
	Title     string    `gorm:"not null" json:"title"`
	Position  float64   `json:"position"`
	CreatedAt time.Time `json:"createdAt"`
}

// Task belongs to exactly one column at a time. Moving a task is a column
// reassignment plus a position change.
type Task struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	BoardID     string    `gorm:"index;size:36;not null" json:"boardId"`
	ColumnID    string    `gorm:"index;size:36;not null" json:"columnId"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `json:"description,omitempty"`
	Assignee    string    `json:"assignee,omitempty"`
	Position    float64   `json:"position"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ColumnUpdate carries partial updates for a column.
type ColumnUpdate struct {
	Title    *string
	Position *float64
}

// TaskUpdate carries partial updates for a task.
type TaskUpdate struct {
	Title       *string
	Description *string
	Assignee    *string
	Position    *float64
}
