package taskservice

import (
	"context"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/ichigozero/tasknotes/tasksvc"
)

type Service interface {
	CreateTask(ctx context.Context, a tasksvc.Auth, title string, priority tasksvc.Priority, dueDate *time.Time) (tasksvc.Task, error)
	Tasks(ctx context.Context, a tasksvc.Auth, opts tasksvc.ListOptions) ([]tasksvc.Task, error)
	Task(ctx context.Context, a tasksvc.Auth, taskID string) (tasksvc.Task, error)
	UpdateTask(ctx context.Context, a tasksvc.Auth, taskID string, patch tasksvc.TaskPatch) (tasksvc.Task, error)
	DeleteTask(ctx context.Context, a tasksvc.Auth, taskID string) (bool, error)
}

func New(t tasksvc.TaskRepository, logger log.Logger) Service {
	var svc Service
	{
		svc = NewBasicService(t)
		svc = LoggingMiddleware(logger)(svc)
	}
	return svc
}

type basicService struct {
	tasks tasksvc.TaskRepository
}

func NewBasicService(t tasksvc.TaskRepository) Service {
	return basicService{tasks: t}
}

// CreateTask stores a new incomplete task owned by the caller. The title is
// stored as given, empty titles included.
func (s basicService) CreateTask(ctx context.Context, a tasksvc.Auth, title string, priority tasksvc.Priority, dueDate *time.Time) (tasksvc.Task, error) {
	if !a.Authenticated() {
		return tasksvc.Task{}, tasksvc.ErrUnauthenticated
	}
	if !priority.Valid() {
		return tasksvc.Task{}, tasksvc.ErrInvalidArgument
	}

	return s.tasks.Create(ctx, tasksvc.Task{
		UserID:    a.UserID,
		Title:     title,
		Completed: false,
		Priority:  priority,
		DueDate:   dueDate,
	})
}

// Tasks lists the caller's tasks. Anonymous callers get an empty list.
func (s basicService) Tasks(ctx context.Context, a tasksvc.Auth, opts tasksvc.ListOptions) ([]tasksvc.Task, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if !a.Authenticated() {
		return []tasksvc.Task{}, nil
	}

	tasks, err := s.tasks.FindByUser(ctx, a.UserID, tasksvc.Descending)
	if err != nil {
		return nil, err
	}
	return opts.Apply(tasks), nil
}

func (s basicService) Task(ctx context.Context, a tasksvc.Auth, taskID string) (tasksvc.Task, error) {
	return tasksvc.OwnedTask(ctx, s.tasks, a, taskID)
}

func (s basicService) UpdateTask(ctx context.Context, a tasksvc.Auth, taskID string, patch tasksvc.TaskPatch) (tasksvc.Task, error) {
	if patch.Priority != nil && !patch.Priority.Valid() {
		return tasksvc.Task{}, tasksvc.ErrInvalidArgument
	}

	if _, err := tasksvc.OwnedTask(ctx, s.tasks, a, taskID); err != nil {
		return tasksvc.Task{}, err
	}
	return s.tasks.Patch(ctx, taskID, patch)
}

func (s basicService) DeleteTask(ctx context.Context, a tasksvc.Auth, taskID string) (bool, error) {
	if _, err := tasksvc.OwnedTask(ctx, s.tasks, a, taskID); err != nil {
		return false, err
	}

	if _, err := s.tasks.Delete(ctx, taskID); err != nil {
		return false, err
	}
	return true, nil
}
