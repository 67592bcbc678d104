// Package storetest checks that a TaskRepository and NoteRepository pair
// behaves the way the services expect. Each store runs it from its tests.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ichigozero/tasknotes/tasksvc"
)

// Factory returns empty repositories sharing one backing store.
type Factory func(t *testing.T) (tasksvc.TaskRepository, tasksvc.NoteRepository)

func Run(t *testing.T, newStore Factory) {
	t.Run("CreateAndFind", func(t *testing.T) { testCreateAndFind(t, newStore) })
	t.Run("FindByUser", func(t *testing.T) { testFindByUser(t, newStore) })
	t.Run("Patch", func(t *testing.T) { testPatch(t, newStore) })
	t.Run("DeleteCascades", func(t *testing.T) { testDeleteCascades(t, newStore) })
	t.Run("Notes", func(t *testing.T) { testNotes(t, newStore) })
}

func due(day int) *time.Time {
	d := time.Date(2030, time.January, day, 9, 0, 0, 0, time.UTC)
	return &d
}

func mustCreateTask(t *testing.T, tasks tasksvc.TaskRepository, userID, title string) tasksvc.Task {
	t.Helper()
	task, err := tasks.Create(context.Background(), tasksvc.Task{
		UserID:   userID,
		Title:    title,
		Priority: tasksvc.PriorityMedium,
	})
	if err != nil {
		t.Fatalf("create task %q: %v", title, err)
	}
	return task
}

func mustCreateNote(t *testing.T, notes tasksvc.NoteRepository, taskID, content string) tasksvc.Note {
	t.Helper()
	note, err := notes.Create(context.Background(), tasksvc.Note{TaskID: taskID, Content: content})
	if err != nil {
		t.Fatalf("create note %q: %v", content, err)
	}
	return note
}

func taskIDs(tasks []tasksvc.Task) []string {
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	return ids
}

func noteIDs(notes []tasksvc.Note) []string {
	ids := make([]string, len(notes))
	for i, n := range notes {
		ids[i] = n.ID
	}
	return ids
}

func equalIDs(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func testCreateAndFind(t *testing.T, newStore Factory) {
	ctx := context.Background()
	tasks, _ := newStore(t)

	created, err := tasks.Create(ctx, tasksvc.Task{
		UserID:   "u1",
		Title:    "Buy milk",
		Priority: tasksvc.PriorityLow,
		DueDate:  due(2),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("Create did not assign an id")
	}
	if created.CreatedAt.IsZero() {
		t.Fatalf("Create did not assign createdAt")
	}

	found, err := tasks.Find(ctx, created.ID)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if found.ID != created.ID || found.UserID != "u1" || found.Title != "Buy milk" ||
		found.Priority != tasksvc.PriorityLow || found.Completed {
		t.Fatalf("Find = %+v, want %+v", found, created)
	}
	if found.DueDate == nil || !found.DueDate.Equal(*due(2)) {
		t.Fatalf("Find dueDate = %v, want %v", found.DueDate, due(2))
	}
	if !found.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("Find createdAt = %v, want %v", found.CreatedAt, created.CreatedAt)
	}

	second := mustCreateTask(t, tasks, "u1", "second")
	if !second.CreatedAt.After(created.CreatedAt) {
		t.Fatalf("createdAt not increasing: %v then %v", created.CreatedAt, second.CreatedAt)
	}

	_, err = tasks.Find(ctx, "missing")
	if !errors.Is(err, tasksvc.ErrTaskNotFound) || !errors.Is(err, tasksvc.ErrNotFound) {
		t.Fatalf("Find missing: err = %v, want ErrTaskNotFound", err)
	}
}

func testFindByUser(t *testing.T, newStore Factory) {
	ctx := context.Background()
	tasks, _ := newStore(t)

	a := mustCreateTask(t, tasks, "u1", "a")
	mustCreateTask(t, tasks, "u2", "other")
	b := mustCreateTask(t, tasks, "u1", "b")
	c := mustCreateTask(t, tasks, "u1", "c")

	desc, err := tasks.FindByUser(ctx, "u1", tasksvc.Descending)
	if err != nil {
		t.Fatalf("FindByUser: %v", err)
	}
	if want := []string{c.ID, b.ID, a.ID}; !equalIDs(taskIDs(desc), want) {
		t.Fatalf("FindByUser desc = %v, want %v", taskIDs(desc), want)
	}

	asc, err := tasks.FindByUser(ctx, "u1", tasksvc.Ascending)
	if err != nil {
		t.Fatalf("FindByUser: %v", err)
	}
	if want := []string{a.ID, b.ID, c.ID}; !equalIDs(taskIDs(asc), want) {
		t.Fatalf("FindByUser asc = %v, want %v", taskIDs(asc), want)
	}

	none, err := tasks.FindByUser(ctx, "nobody", tasksvc.Descending)
	if err != nil {
		t.Fatalf("FindByUser: %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Fatalf("FindByUser unknown user = %#v, want empty slice", none)
	}
}

func testPatch(t *testing.T, newStore Factory) {
	ctx := context.Background()
	tasks, _ := newStore(t)

	created, err := tasks.Create(ctx, tasksvc.Task{
		UserID:   "u1",
		Title:    "Buy milk",
		Priority: tasksvc.PriorityLow,
		DueDate:  due(2),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	done := true
	patched, err := tasks.Patch(ctx, created.ID, tasksvc.TaskPatch{Completed: &done})
	if err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if !patched.Completed || patched.Title != "Buy milk" || patched.Priority != tasksvc.PriorityLow {
		t.Fatalf("Patch = %+v", patched)
	}

	found, err := tasks.Find(ctx, created.ID)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if !found.Completed || found.Title != "Buy milk" || found.Priority != tasksvc.PriorityLow ||
		found.DueDate == nil || !found.DueDate.Equal(*due(2)) {
		t.Fatalf("stored task after Patch = %+v", found)
	}

	title := "Buy oat milk"
	high := tasksvc.PriorityHigh
	patched, err = tasks.Patch(ctx, created.ID, tasksvc.TaskPatch{Title: &title, Priority: &high, DueDate: due(5)})
	if err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if patched.Title != title || patched.Priority != high || !patched.Completed ||
		patched.DueDate == nil || !patched.DueDate.Equal(*due(5)) {
		t.Fatalf("Patch = %+v", patched)
	}

	unchanged, err := tasks.Patch(ctx, created.ID, tasksvc.TaskPatch{})
	if err != nil {
		t.Fatalf("empty Patch: %v", err)
	}
	if unchanged.Title != title || unchanged.UserID != "u1" || !unchanged.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("empty Patch = %+v", unchanged)
	}

	if _, err := tasks.Patch(ctx, "missing", tasksvc.TaskPatch{Completed: &done}); !errors.Is(err, tasksvc.ErrTaskNotFound) {
		t.Fatalf("Patch missing: err = %v, want ErrTaskNotFound", err)
	}
}

func testDeleteCascades(t *testing.T, newStore Factory) {
	ctx := context.Background()
	tasks, notes := newStore(t)

	doomed := mustCreateTask(t, tasks, "u1", "doomed")
	kept := mustCreateTask(t, tasks, "u1", "kept")
	mustCreateNote(t, notes, doomed.ID, "one")
	mustCreateNote(t, notes, doomed.ID, "two")
	survivor := mustCreateNote(t, notes, kept.ID, "three")

	removed, err := tasks.Delete(ctx, doomed.ID)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if removed != 2 {
		t.Fatalf("Delete removed %d notes, want 2", removed)
	}

	if _, err := tasks.Find(ctx, doomed.ID); !errors.Is(err, tasksvc.ErrTaskNotFound) {
		t.Fatalf("Find deleted task: err = %v, want ErrTaskNotFound", err)
	}

	left, err := notes.FindByTask(ctx, doomed.ID, tasksvc.Ascending)
	if err != nil {
		t.Fatalf("FindByTask: %v", err)
	}
	if len(left) != 0 {
		t.Fatalf("notes of deleted task = %v, want none", noteIDs(left))
	}

	remaining, err := tasks.FindByUser(ctx, "u1", tasksvc.Descending)
	if err != nil {
		t.Fatalf("FindByUser: %v", err)
	}
	if want := []string{kept.ID}; !equalIDs(taskIDs(remaining), want) {
		t.Fatalf("FindByUser after Delete = %v, want %v", taskIDs(remaining), want)
	}

	if _, err := notes.Find(ctx, survivor.ID); err != nil {
		t.Fatalf("note of another task was removed: %v", err)
	}

	if _, err := tasks.Delete(ctx, doomed.ID); !errors.Is(err, tasksvc.ErrTaskNotFound) {
		t.Fatalf("second Delete: err = %v, want ErrTaskNotFound", err)
	}
}

func testNotes(t *testing.T, newStore Factory) {
	ctx := context.Background()
	tasks, notes := newStore(t)

	task := mustCreateTask(t, tasks, "u1", "task")
	first := mustCreateNote(t, notes, task.ID, "first")
	second := mustCreateNote(t, notes, task.ID, "")

	if first.ID == "" || !second.CreatedAt.After(first.CreatedAt) {
		t.Fatalf("notes not stamped in order: %+v, %+v", first, second)
	}

	found, err := notes.Find(ctx, second.ID)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if found.TaskID != task.ID || found.Content != "" {
		t.Fatalf("Find = %+v", found)
	}

	asc, err := notes.FindByTask(ctx, task.ID, tasksvc.Ascending)
	if err != nil {
		t.Fatalf("FindByTask: %v", err)
	}
	if want := []string{first.ID, second.ID}; !equalIDs(noteIDs(asc), want) {
		t.Fatalf("FindByTask asc = %v, want %v", noteIDs(asc), want)
	}

	desc, err := notes.FindByTask(ctx, task.ID, tasksvc.Descending)
	if err != nil {
		t.Fatalf("FindByTask: %v", err)
	}
	if want := []string{second.ID, first.ID}; !equalIDs(noteIDs(desc), want) {
		t.Fatalf("FindByTask desc = %v, want %v", noteIDs(desc), want)
	}

	if err := notes.Delete(ctx, first.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := notes.Find(ctx, first.ID); !errors.Is(err, tasksvc.ErrNoteNotFound) {
		t.Fatalf("Find deleted note: err = %v, want ErrNoteNotFound", err)
	}
	if err := notes.Delete(ctx, first.ID); !errors.Is(err, tasksvc.ErrNoteNotFound) {
		t.Fatalf("second Delete: err = %v, want ErrNoteNotFound", err)
	}

	asc, err = notes.FindByTask(ctx, task.ID, tasksvc.Ascending)
	if err != nil {
		t.Fatalf("FindByTask: %v", err)
	}
	if want := []string{second.ID}; !equalIDs(noteIDs(asc), want) {
		t.Fatalf("FindByTask after Delete = %v, want %v", noteIDs(asc), want)
	}
}
