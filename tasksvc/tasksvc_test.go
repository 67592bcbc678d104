package tasksvc

import (
	"errors"
	"testing"
	"time"
)

func TestParsePriority(t *testing.T) {
	for _, s := range []string{"low", "medium", "high"} {
		p, err := ParsePriority(s)
		if err != nil {
			t.Fatalf("ParsePriority(%q): %v", s, err)
		}
		if string(p) != s {
			t.Fatalf("ParsePriority(%q) = %q", s, p)
		}
	}

	for _, s := range []string{"", "HIGH", "urgent"} {
		if _, err := ParsePriority(s); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("ParsePriority(%q) err = %v, want ErrInvalidArgument", s, err)
		}
	}
}

func TestTaskPatch(t *testing.T) {
	due := time.Date(2030, time.May, 1, 12, 0, 0, 0, time.UTC)
	task := Task{
		ID:       "t1",
		UserID:   "u1",
		Title:    "Buy milk",
		Priority: PriorityLow,
		DueDate:  &due,
	}

	if !(TaskPatch{}).Empty() {
		t.Fatalf("zero patch is not empty")
	}
	if got := (TaskPatch{}).Apply(task); got != task {
		t.Fatalf("empty patch changed task: %+v", got)
	}

	done := true
	patch := TaskPatch{Completed: &done}
	if patch.Empty() {
		t.Fatalf("patch with completed reported empty")
	}

	once := patch.Apply(task)
	twice := patch.Apply(once)
	if !once.Completed || once.Title != task.Title || once.Priority != task.Priority || once.DueDate != task.DueDate {
		t.Fatalf("Apply = %+v", once)
	}
	if once != twice {
		t.Fatalf("Apply not idempotent: %+v then %+v", once, twice)
	}

	title := ""
	high := PriorityHigh
	later := due.Add(24 * time.Hour)
	got := TaskPatch{Title: &title, Priority: &high, DueDate: &later}.Apply(task)
	if got.Title != "" || got.Priority != PriorityHigh || !got.DueDate.Equal(later) || got.Completed {
		t.Fatalf("Apply = %+v", got)
	}

	later = later.Add(time.Hour)
	if !got.DueDate.Equal(due.Add(24 * time.Hour)) {
		t.Fatalf("Apply shares the patch due date")
	}
}

func TestErrorsWrapNotFound(t *testing.T) {
	for _, err := range []error{ErrTaskNotFound, ErrNoteNotFound} {
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("%v does not wrap ErrNotFound", err)
		}
	}
	if errors.Is(ErrTaskNotFound, ErrNoteNotFound) {
		t.Fatalf("task and note not found are the same error")
	}
}
