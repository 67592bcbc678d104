package gorm

import (
	"context"
	"errors"
	"fmt"

	"github.com/ichigozero/tasknotes/tasksvc"
	stdgorm "gorm.io/gorm"
)

type noteRepository struct {
	db *stdgorm.DB
}

func NewNoteRepository(db *stdgorm.DB) tasksvc.NoteRepository {
	return &noteRepository{db}
}

func (n noteRepository) Create(ctx context.Context, note tasksvc.Note) (tasksvc.Note, error) {
	if note.ID == "" {
		note.ID = tasksvc.NewID()
	}
	note.CreatedAt = tasksvc.Now()

	result := n.db.WithContext(ctx).Create(&note)
	if result.Error != nil {
		return tasksvc.Note{}, fmt.Errorf("create note: %w", result.Error)
	}
	return note, nil
}

func (n noteRepository) Find(ctx context.Context, noteID string) (tasksvc.Note, error) {
	var note tasksvc.Note
	result := n.db.WithContext(ctx).Where("id = ?", noteID).First(&note)
	if errors.Is(result.Error, stdgorm.ErrRecordNotFound) {
		return tasksvc.Note{}, tasksvc.ErrNoteNotFound
	}
	if result.Error != nil {
		return tasksvc.Note{}, fmt.Errorf("find note: %w", result.Error)
	}
	return note, nil
}

func (n noteRepository) FindByTask(ctx context.Context, taskID string, order tasksvc.Order) ([]tasksvc.Note, error) {
	notes := []tasksvc.Note{}
	result := n.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order(orderBy("created_at", order)).
		Order(orderBy("id", order)).
		Find(&notes)
	if result.Error != nil {
		return nil, fmt.Errorf("find notes: %w", result.Error)
	}
	return notes, nil
}

func (n noteRepository) Delete(ctx context.Context, noteID string) error {
	result := n.db.WithContext(ctx).Where("id = ?", noteID).Delete(&tasksvc.Note{})
	if result.Error != nil {
		return fmt.Errorf("delete note: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return tasksvc.ErrNoteNotFound
	}
	return nil
}
