package gorm

import (
	"context"
	"errors"
	"fmt"

	"github.com/ichigozero/tasknotes/tasksvc"
	stdgorm "gorm.io/gorm"
)

type taskRepository struct {
	db *stdgorm.DB
}

func NewTaskRepository(db *stdgorm.DB) tasksvc.TaskRepository {
	return &taskRepository{db}
}

// Migrate creates or updates the task and note tables.
func Migrate(db *stdgorm.DB) error {
	return db.AutoMigrate(&tasksvc.Task{}, &tasksvc.Note{})
}

func (t taskRepository) Create(ctx context.Context, task tasksvc.Task) (tasksvc.Task, error) {
	if task.ID == "" {
		task.ID = tasksvc.NewID()
	}
	task.CreatedAt = tasksvc.Now()

	result := t.db.WithContext(ctx).Create(&task)
	if result.Error != nil {
		return tasksvc.Task{}, fmt.Errorf("create task: %w", result.Error)
	}
	return task, nil
}

func (t taskRepository) Find(ctx context.Context, taskID string) (tasksvc.Task, error) {
	return findTask(t.db.WithContext(ctx), taskID)
}

func (t taskRepository) FindByUser(ctx context.Context, userID string, order tasksvc.Order) ([]tasksvc.Task, error) {
	tasks := []tasksvc.Task{}
	result := t.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order(orderBy("created_at", order)).
		Order(orderBy("id", order)).
		Find(&tasks)
	if result.Error != nil {
		return nil, fmt.Errorf("find tasks: %w", result.Error)
	}
	return tasks, nil
}

func (t taskRepository) Patch(ctx context.Context, taskID string, patch tasksvc.TaskPatch) (tasksvc.Task, error) {
	var task tasksvc.Task
	err := t.db.WithContext(ctx).Transaction(func(tx *stdgorm.DB) error {
		tk, err := findTask(tx, taskID)
		if err != nil {
			return err
		}

		if !patch.Empty() {
			result := tx.Model(&tk).Updates(updates(patch))
			if result.Error != nil {
				return fmt.Errorf("patch task: %w", result.Error)
			}
		}

		task = patch.Apply(tk)
		return nil
	})
	if err != nil {
		return tasksvc.Task{}, err
	}
	return task, nil
}

func (t taskRepository) Delete(ctx context.Context, taskID string) (int, error) {
	var removed int
	err := t.db.WithContext(ctx).Transaction(func(tx *stdgorm.DB) error {
		notes := tx.Where("task_id = ?", taskID).Delete(&tasksvc.Note{})
		if notes.Error != nil {
			return fmt.Errorf("delete notes: %w", notes.Error)
		}

		result := tx.Where("id = ?", taskID).Delete(&tasksvc.Task{})
		if result.Error != nil {
			return fmt.Errorf("delete task: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return tasksvc.ErrTaskNotFound
		}

		removed = int(notes.RowsAffected)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func findTask(db *stdgorm.DB, taskID string) (tasksvc.Task, error) {
	var task tasksvc.Task
	result := db.Where("id = ?", taskID).First(&task)
	if errors.Is(result.Error, stdgorm.ErrRecordNotFound) {
		return tasksvc.Task{}, tasksvc.ErrTaskNotFound
	}
	if result.Error != nil {
		return tasksvc.Task{}, fmt.Errorf("find task: %w", result.Error)
	}
	return task, nil
}

func updates(patch tasksvc.TaskPatch) map[string]interface{} {
	m := map[string]interface{}{}
	if patch.Title != nil {
		m["title"] = *patch.Title
	}
	if patch.Completed != nil {
		m["completed"] = *patch.Completed
	}
	if patch.Priority != nil {
		m["priority"] = *patch.Priority
	}
	if patch.DueDate != nil {
		m["due_date"] = *patch.DueDate
	}
	return m
}

func orderBy(column string, order tasksvc.Order) string {
	if order == tasksvc.Descending {
		return column + " desc"
	}
	return column + " asc"
}
