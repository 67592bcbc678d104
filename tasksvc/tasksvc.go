package tasksvc

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

func ParsePriority(s string) (Priority, error) {
	p := Priority(s)
	if !p.Valid() {
		return "", fmt.Errorf("priority %q: %w", s, ErrInvalidArgument)
	}
	return p, nil
}

type Task struct {
	ID        string     `json:"id" gorm:"primaryKey;size:36"`
	UserID    string     `json:"userId" gorm:"size:36;not null;index:idx_tasks_user_created,priority:1"`
	Title     string     `json:"title"`
	Completed bool       `json:"completed"`
	Priority  Priority   `json:"priority" gorm:"size:8;not null"`
	DueDate   *time.Time `json:"dueDate,omitempty"`
	CreatedAt time.Time  `json:"createdAt" gorm:"index:idx_tasks_user_created,priority:2"`
}

type Note struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	TaskID    string    `json:"taskId" gorm:"size:36;not null;index:idx_notes_task_created,priority:1"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt" gorm:"index:idx_notes_task_created,priority:2"`
}

// TaskPatch carries the fields of a partial update. Nil fields are left
// untouched.
type TaskPatch struct {
	Title     *string
	Completed *bool
	Priority  *Priority
	DueDate   *time.Time
}

func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Completed == nil && p.Priority == nil && p.DueDate == nil
}

func (p TaskPatch) Apply(t Task) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.DueDate != nil {
		due := *p.DueDate
		t.DueDate = &due
	}
	return t
}

type Order int

const (
	Ascending Order = iota
	Descending
)

// TaskRepository is the task collection of the data store, indexed by owner.
type TaskRepository interface {
	Create(ctx context.Context, task Task) (Task, error)
	Find(ctx context.Context, taskID string) (Task, error)
	FindByUser(ctx context.Context, userID string, order Order) ([]Task, error)
	Patch(ctx context.Context, taskID string, patch TaskPatch) (Task, error)
	// Delete removes the task and every note that references it. It returns
	// the number of notes removed.
	Delete(ctx context.Context, taskID string) (int, error)
}

// NoteRepository is the note collection of the data store, indexed by task.
type NoteRepository interface {
	Create(ctx context.Context, note Note) (Note, error)
	Find(ctx context.Context, noteID string) (Note, error)
	FindByTask(ctx context.Context, taskID string, order Order) ([]Note, error)
	Delete(ctx context.Context, noteID string) error
}

// Auth is the caller identity resolved from the request. A zero UserID is an
// anonymous caller.
type Auth struct {
	AccessUUID string
	UserID     string
}

func (a Auth) Authenticated() bool { return a.UserID != "" }

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUnauthenticated = errors.New("not authenticated")
	ErrForbidden       = errors.New("not authorized")
	ErrNotFound        = errors.New("not found")
	ErrTaskNotFound    = fmt.Errorf("task %w", ErrNotFound)
	ErrNoteNotFound    = fmt.Errorf("note %w", ErrNotFound)
)
