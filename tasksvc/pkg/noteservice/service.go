package noteservice

import (
	"context"
	"errors"

	"github.com/go-kit/kit/log"
	"github.com/ichigozero/tasknotes/tasksvc"
)

type Service interface {
	CreateNote(ctx context.Context, a tasksvc.Auth, taskID, content string) (tasksvc.Note, error)
	Notes(ctx context.Context, a tasksvc.Auth, taskID string) ([]tasksvc.Note, error)
	DeleteNote(ctx context.Context, a tasksvc.Auth, noteID string) (bool, error)
}

func New(t tasksvc.TaskRepository, n tasksvc.NoteRepository, logger log.Logger) Service {
	var svc Service
	{
		svc = NewBasicService(t, n)
		svc = LoggingMiddleware(logger)(svc)
	}
	return svc
}

type basicService struct {
	tasks tasksvc.TaskRepository
	notes tasksvc.NoteRepository
}

func NewBasicService(t tasksvc.TaskRepository, n tasksvc.NoteRepository) Service {
	return basicService{tasks: t, notes: n}
}

func (s basicService) CreateNote(ctx context.Context, a tasksvc.Auth, taskID, content string) (tasksvc.Note, error) {
	if _, err := tasksvc.OwnedTask(ctx, s.tasks, a, taskID); err != nil {
		return tasksvc.Note{}, err
	}

	return s.notes.Create(ctx, tasksvc.Note{TaskID: taskID, Content: content})
}

// Notes lists the notes of a task, oldest first. Callers that cannot see the
// task get an empty list rather than an error.
func (s basicService) Notes(ctx context.Context, a tasksvc.Auth, taskID string) ([]tasksvc.Note, error) {
	_, err := tasksvc.OwnedTask(ctx, s.tasks, a, taskID)
	switch {
	case errors.Is(err, tasksvc.ErrUnauthenticated),
		errors.Is(err, tasksvc.ErrTaskNotFound),
		errors.Is(err, tasksvc.ErrForbidden):
		return []tasksvc.Note{}, nil
	case err != nil:
		return nil, err
	}

	return s.notes.FindByTask(ctx, taskID, tasksvc.Ascending)
}

func (s basicService) DeleteNote(ctx context.Context, a tasksvc.Auth, noteID string) (bool, error) {
	if !a.Authenticated() {
		return false, tasksvc.ErrUnauthenticated
	}

	note, err := s.notes.Find(ctx, noteID)
	if err != nil {
		return false, err
	}

	// A note whose task is gone is reported as not owned.
	_, err = tasksvc.OwnedTask(ctx, s.tasks, a, note.TaskID)
	if errors.Is(err, tasksvc.ErrTaskNotFound) {
		return false, tasksvc.ErrForbidden
	}
	if err != nil {
		return false, err
	}

	if err := s.notes.Delete(ctx, noteID); err != nil {
		return false, err
	}
	return true, nil
}
