package tasksvc_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ichigozero/tasknotes/tasksvc"
	"github.com/ichigozero/tasknotes/tasksvc/db/memory"
)

func TestOwnedTask(t *testing.T) {
	ctx := context.Background()
	tasks := memory.NewStore().Tasks()

	task, err := tasks.Create(ctx, tasksvc.Task{UserID: "u1", Title: "mine", Priority: tasksvc.PriorityLow})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	tests := []struct {
		name   string
		auth   tasksvc.Auth
		taskID string
		want   error
	}{
		{"owner", tasksvc.Auth{UserID: "u1"}, task.ID, nil},
		{"other user", tasksvc.Auth{UserID: "u2"}, task.ID, tasksvc.ErrForbidden},
		{"unknown task", tasksvc.Auth{UserID: "u1"}, "missing", tasksvc.ErrTaskNotFound},
		// identity is checked before the task is looked up
		{"anonymous unknown task", tasksvc.Auth{}, "missing", tasksvc.ErrUnauthenticated},
		{"anonymous", tasksvc.Auth{}, task.ID, tasksvc.ErrUnauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tasksvc.OwnedTask(ctx, tasks, tt.auth, tt.taskID)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("OwnedTask: %v", err)
				}
				if got.ID != task.ID {
					t.Fatalf("OwnedTask = %+v", got)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("OwnedTask err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSessionValidatorResolve(t *testing.T) {
	ctx := context.Background()
	errDown := errors.New("auth service down")

	live := tasksvc.SessionValidator(func(_ context.Context, uuid string) (bool, error) {
		return uuid == "live", nil
	})
	broken := tasksvc.SessionValidator(func(context.Context, string) (bool, error) {
		return false, errDown
	})

	a, err := live.Resolve(ctx, tasksvc.Auth{AccessUUID: "live", UserID: "u1"})
	if err != nil || a.UserID != "u1" {
		t.Fatalf("Resolve live = %+v, %v", a, err)
	}

	a, err = live.Resolve(ctx, tasksvc.Auth{AccessUUID: "revoked", UserID: "u1"})
	if err != nil || a.Authenticated() {
		t.Fatalf("Resolve revoked = %+v, %v; want anonymous", a, err)
	}

	a, err = broken.Resolve(ctx, tasksvc.Auth{})
	if err != nil || a.Authenticated() {
		t.Fatalf("Resolve anonymous = %+v, %v; validator must not be called", a, err)
	}

	if _, err := broken.Resolve(ctx, tasksvc.Auth{AccessUUID: "x", UserID: "u1"}); !errors.Is(err, errDown) {
		t.Fatalf("Resolve with failing validator err = %v, want %v", err, errDown)
	}
}
