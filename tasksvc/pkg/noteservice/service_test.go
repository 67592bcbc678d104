package noteservice

import (
	"context"
	"errors"
	"testing"

	"github.com/go-kit/kit/log"
	"github.com/ichigozero/tasknotes/tasksvc"
	"github.com/ichigozero/tasknotes/tasksvc/db/memory"
	"github.com/ichigozero/tasknotes/tasksvc/pkg/taskservice"
)

var (
	u1   = tasksvc.Auth{AccessUUID: "s1", UserID: "u1"}
	u2   = tasksvc.Auth{AccessUUID: "s2", UserID: "u2"}
	anon = tasksvc.Auth{}
)

type fixture struct {
	tasks taskservice.Service
	notes Service
	store *memory.Store
}

func newFixture() fixture {
	store := memory.NewStore()
	logger := log.NewNopLogger()
	return fixture{
		tasks: taskservice.New(store.Tasks(), logger),
		notes: New(store.Tasks(), store.Notes(), logger),
		store: store,
	}
}

func (f fixture) task(t *testing.T, a tasksvc.Auth) tasksvc.Task {
	t.Helper()
	task, err := f.tasks.CreateTask(context.Background(), a, "t", tasksvc.PriorityMedium, nil)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	return task
}

func TestBuyMilkScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	x, err := f.tasks.CreateTask(ctx, u1, "Buy milk", tasksvc.PriorityLow, nil)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	list, err := f.tasks.Tasks(ctx, u1, tasksvc.ListOptions{})
	if err != nil {
		t.Fatalf("Tasks(u1): %v", err)
	}
	if len(list) != 1 || list[0].ID != x.ID || list[0].Completed {
		t.Fatalf("Tasks(u1) = %+v", list)
	}

	list, err = f.tasks.Tasks(ctx, u2, tasksvc.ListOptions{})
	if err != nil || len(list) != 0 {
		t.Fatalf("Tasks(u2) = %+v, %v; want empty", list, err)
	}

	if _, err := f.notes.CreateNote(ctx, u2, x.ID, "2%  please"); !errors.Is(err, tasksvc.ErrForbidden) {
		t.Fatalf("CreateNote(u2) err = %v, want ErrForbidden", err)
	}

	note, err := f.notes.CreateNote(ctx, u1, x.ID, "2% please")
	if err != nil {
		t.Fatalf("CreateNote(u1): %v", err)
	}

	ok, err := f.tasks.DeleteTask(ctx, u1, x.ID)
	if err != nil || !ok {
		t.Fatalf("DeleteTask = %v, %v", ok, err)
	}

	if _, err := f.store.Notes().Find(ctx, note.ID); !errors.Is(err, tasksvc.ErrNoteNotFound) {
		t.Fatalf("note survived its task: %v", err)
	}

	notes, err := f.notes.Notes(ctx, u1, x.ID)
	if err != nil || notes == nil || len(notes) != 0 {
		t.Fatalf("Notes(u1) = %#v, %v; want empty", notes, err)
	}

	if _, err := f.notes.CreateNote(ctx, u1, x.ID, "late"); !errors.Is(err, tasksvc.ErrTaskNotFound) {
		t.Fatalf("CreateNote on removed task err = %v, want ErrTaskNotFound", err)
	}
}

func TestCreateNote(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	task := f.task(t, u1)

	if _, err := f.notes.CreateNote(ctx, anon, task.ID, "x"); !errors.Is(err, tasksvc.ErrUnauthenticated) {
		t.Fatalf("CreateNote(anonymous) err = %v, want ErrUnauthenticated", err)
	}
	if _, err := f.notes.CreateNote(ctx, u1, "missing", "x"); !errors.Is(err, tasksvc.ErrTaskNotFound) {
		t.Fatalf("CreateNote(missing) err = %v, want ErrTaskNotFound", err)
	}

	empty, err := f.notes.CreateNote(ctx, u1, task.ID, "")
	if err != nil {
		t.Fatalf("CreateNote with empty content: %v", err)
	}
	if empty.Content != "" || empty.TaskID != task.ID || empty.ID == "" {
		t.Fatalf("CreateNote = %+v", empty)
	}
}

func TestNotesOldestFirst(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	task := f.task(t, u1)

	var want []string
	for _, c := range []string{"one", "two", "three"} {
		n, err := f.notes.CreateNote(ctx, u1, task.ID, c)
		if err != nil {
			t.Fatalf("CreateNote: %v", err)
		}
		want = append(want, n.ID)
	}

	notes, err := f.notes.Notes(ctx, u1, task.ID)
	if err != nil {
		t.Fatalf("Notes: %v", err)
	}
	if len(notes) != len(want) {
		t.Fatalf("Notes = %+v", notes)
	}
	for i := range want {
		if notes[i].ID != want[i] {
			t.Fatalf("Notes[%d] = %s, want %s", i, notes[i].ID, want[i])
		}
	}
}

func TestNotesSoftFail(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	task := f.task(t, u1)
	if _, err := f.notes.CreateNote(ctx, u1, task.ID, "secret"); err != nil {
		t.Fatalf("CreateNote: %v", err)
	}

	tests := []struct {
		name   string
		auth   tasksvc.Auth
		taskID string
	}{
		{"anonymous", anon, task.ID},
		{"other user", u2, task.ID},
		{"missing task", u1, "missing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notes, err := f.notes.Notes(ctx, tt.auth, tt.taskID)
			if err != nil {
				t.Fatalf("Notes err = %v, want nil", err)
			}
			if notes == nil || len(notes) != 0 {
				t.Fatalf("Notes = %#v, want empty list", notes)
			}
		})
	}
}

func TestDeleteNote(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	task := f.task(t, u1)

	note, err := f.notes.CreateNote(ctx, u1, task.ID, "n")
	if err != nil {
		t.Fatalf("CreateNote: %v", err)
	}

	if _, err := f.notes.DeleteNote(ctx, anon, note.ID); !errors.Is(err, tasksvc.ErrUnauthenticated) {
		t.Fatalf("DeleteNote(anonymous) err = %v, want ErrUnauthenticated", err)
	}
	if _, err := f.notes.DeleteNote(ctx, u2, note.ID); !errors.Is(err, tasksvc.ErrForbidden) {
		t.Fatalf("DeleteNote(u2) err = %v, want ErrForbidden", err)
	}

	ok, err := f.notes.DeleteNote(ctx, u1, note.ID)
	if err != nil || !ok {
		t.Fatalf("DeleteNote = %v, %v", ok, err)
	}

	if _, err := f.notes.DeleteNote(ctx, u1, note.ID); !errors.Is(err, tasksvc.ErrNoteNotFound) {
		t.Fatalf("second DeleteNote err = %v, want ErrNoteNotFound", err)
	}
}

func TestDeleteNoteOfMissingTask(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	orphan, err := f.store.Notes().Create(ctx, tasksvc.Note{TaskID: "gone", Content: "orphan"})
	if err != nil {
		t.Fatalf("create note: %v", err)
	}

	if _, err := f.notes.DeleteNote(ctx, u1, orphan.ID); !errors.Is(err, tasksvc.ErrForbidden) {
		t.Fatalf("DeleteNote(orphan) err = %v, want ErrForbidden", err)
	}
}

func TestSessionMiddleware(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	task, err := store.Tasks().Create(ctx, tasksvc.Task{UserID: "u1", Title: "t", Priority: tasksvc.PriorityLow})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	validate := tasksvc.SessionValidator(func(_ context.Context, uuid string) (bool, error) {
		return uuid == "s1", nil
	})
	svc := SessionMiddleware(validate)(NewBasicService(store.Tasks(), store.Notes()))

	if _, err := svc.CreateNote(ctx, u1, task.ID, "ok"); err != nil {
		t.Fatalf("CreateNote(live session): %v", err)
	}

	revoked := tasksvc.Auth{AccessUUID: "old", UserID: "u1"}
	if _, err := svc.CreateNote(ctx, revoked, task.ID, "no"); !errors.Is(err, tasksvc.ErrUnauthenticated) {
		t.Fatalf("CreateNote(revoked) err = %v, want ErrUnauthenticated", err)
	}
	notes, err := svc.Notes(ctx, revoked, task.ID)
	if err != nil || len(notes) != 0 {
		t.Fatalf("Notes(revoked) = %+v, %v; want empty", notes, err)
	}
}
