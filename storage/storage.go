package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"kanban-api/domain"
)

// Store persists boards, columns and tasks.
type Store struct {
	db *gorm.DB
}

// New opens the database at dsn and migrates the schema.
func New(dsn string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return NewWithDB(db)
}

// NewWithDB wraps an existing gorm handle, migrating the schema.
func NewWithDB(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&domain.Board{}, &domain.Column{}, &domain.Task{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return &Store{db: db}, nil
}

func mapErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return err
}

func (s *Store) InsertBoard(ctx context.Context, b domain.Board) error {
	return s.db.WithContext(ctx).Create(&b).Error
}

func (s *Store) ListBoards(ctx context.Context) ([]domain.Board, error) {
	var boards []domain.Board
	err := s.db.WithContext(ctx).Order("created_at asc, id asc").Find(&boards).Error
	return boards, err
}

func (s *Store) GetBoard(ctx context.Context, id string) (domain.Board, error) {
	var b domain.Board
	err := s.db.WithContext(ctx).First(&b, "id = ?", id).Error
	return b, mapErr(err)
}

func (s *Store) UpdateBoard(ctx context.Context, b domain.Board) error {
	res := s.db.WithContext(ctx).Model(&domain.Board{}).Where("id = ?", b.ID).
		Updates(map[string]any{"name": b.Name, "owner": b.Owner})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteBoard(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&domain.Board{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) InsertColumn(ctx context.Context, c domain.Column) error {
	return s.db.WithContext(ctx).Create(&c).Error
}

// ListColumns returns a board's columns ordered by position with the id as
// deterministic tiebreak for colliding positions.
func (s *Store) ListColumns(ctx context.Context, boardID string) ([]domain.Column, error) {
	var cols []domain.Column
	err := s.db.WithContext(ctx).Where("board_id = ?", boardID).
		Order("position asc, id asc").Find(&cols).Error
	return cols, err
}

func (s *Store) GetColumn(ctx context.Context, id string) (domain.Column, error) {
	var c domain.Column
	err := s.db.WithContext(ctx).First(&c, "id = ?", id).Error
	return c, mapErr(err)
}

func (s *Store) UpdateColumn(ctx context.Context, id string, upd domain.ColumnUpdate) (domain.Column, error) {
	fields := map[string]any{}
	if upd.Title != nil {
		fields["title"] = *upd.Title
	}
	if upd.Position != nil {
		fields["position"] = *upd.Position
	}
	if len(fields) > 0 {
		res := s.db.WithContext(ctx).Model(&domain.Column{}).Where("id = ?", id).Updates(fields)
		if res.Error != nil {
			return domain.Column{}, res.Error
		}
		if res.RowsAffected == 0 {
			return domain.Column{}, domain.ErrNotFound
		}
	}
	return s.GetColumn(ctx, id)
}

func (s *Store) DeleteColumn(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&domain.Column{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteColumnsByBoard(ctx context.Context, boardID string) error {
	return s.db.WithContext(ctx).Delete(&domain.Column{}, "board_id = ?", boardID).Error
}

func (s *Store) InsertTask(ctx context.Context, t domain.Task) error {
	return s.db.WithContext(ctx).Create(&t).Error
}

func (s *Store) ListTasksByBoard(ctx context.Context, boardID string) ([]domain.Task, error) {
	var tasks []domain.Task
	err := s.db.WithContext(ctx).Where("board_id = ?", boardID).
		Order("position asc, id asc").Find(&tasks).Error
	return tasks, err
}

func (s *Store) ListTasksByColumn(ctx context.Context, columnID string) ([]domain.Task, error) {
	var tasks []domain.Task
	err := s.db.WithContext(ctx).Where("column_id = ?", columnID).
		Order("position asc, id asc").Find(&tasks).Error
	return tasks, err
}

func (s *Store) GetTask(ctx context.Context, id string) (domain.Task, error) {
	var t domain.Task
	err := s.db.WithContext(ctx).First(&t, "id = ?", id).Error
	return t, mapErr(err)
}

func (s *Store) UpdateTask(ctx context.Context, id string, upd domain.TaskUpdate) (domain.Task, error) {
	fields := map[string]any{}
	if upd.Title != nil {
		fields["title"] = *upd.Title
	}
	if upd.Description != nil {
		fields["description"] = *upd.Description
	}
	if upd.Assignee != nil {
		fields["assignee"] = *upd.Assignee
	}
	if upd.Position != nil {
		fields["position"] = *upd.Position
	}
	if len(fields) > 0 {
		fields["updated_at"] = time.Now().UTC()
		res := s.db.WithContext(ctx).Model(&domain.Task{}).Where("id = ?", id).Updates(fields)
		if res.Error != nil {
			return domain.Task{}, res.Error
		}
		if res.RowsAffected == 0 {
			return domain.Task{}, domain.ErrNotFound
		}
	}
	return s.GetTask(ctx, id)
}

// MoveTask reassigns a task's column and position in one write.
func (s *Store) MoveTask(ctx context.Context, id, columnID string, position float64) (domain.Task, error) {
	res := s.db.WithContext(ctx).Model(&domain.Task{}).Where("id = ?", id).
		Updates(map[string]any{"column_id": columnID, "position": position, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return domain.Task{}, res.Error
	}
	if res.RowsAffected == 0 {
		return domain.Task{}, domain.ErrNotFound
	}
	return s.GetTask(ctx, id)
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&domain.Task{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteTasksByBoard(ctx context.Context, boardID string) error {
	return s.db.WithContext(ctx).Delete(&domain.Task{}, "board_id = ?", boardID).Error
}
