package taskendpoint

import (
	"context"
	"time"

	"github.com/ichigozero/tasknotes/tasksvc"
)

// recordingTasks remembers the identity of the last call.
type recordingTasks struct {
	seen *tasksvc.Auth
}

func (s recordingTasks) CreateTask(_ context.Context, a tasksvc.Auth, _ string, _ tasksvc.Priority, _ *time.Time) (tasksvc.Task, error) {
	*s.seen = a
	return tasksvc.Task{}, nil
}

func (s recordingTasks) Tasks(_ context.Context, a tasksvc.Auth, _ tasksvc.ListOptions) ([]tasksvc.Task, error) {
	*s.seen = a
	return []tasksvc.Task{}, nil
}

func (s recordingTasks) Task(_ context.Context, a tasksvc.Auth, _ string) (tasksvc.Task, error) {
	*s.seen = a
	return tasksvc.Task{}, nil
}

func (s recordingTasks) UpdateTask(_ context.Context, a tasksvc.Auth, _ string, _ tasksvc.TaskPatch) (tasksvc.Task, error) {
	*s.seen = a
	return tasksvc.Task{}, nil
}

func (s recordingTasks) DeleteTask(_ context.Context, a tasksvc.Auth, _ string) (bool, error) {
	*s.seen = a
	return true, nil
}
