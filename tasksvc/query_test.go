package tasksvc

import (
	"errors"
	"testing"
	"time"
)

func day(d int) *time.Time {
	t := time.Date(2030, time.March, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func ids(tasks []Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func sameIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// newest first, as the repositories return them
var listFixture = []Task{
	{ID: "e", Priority: PriorityLow, Completed: false, DueDate: nil},
	{ID: "d", Priority: PriorityHigh, Completed: true, DueDate: day(9)},
	{ID: "c", Priority: PriorityMedium, Completed: false, DueDate: day(3)},
	{ID: "b", Priority: PriorityHigh, Completed: false, DueDate: nil},
	{ID: "a", Priority: PriorityLow, Completed: true, DueDate: day(3)},
}

func TestListOptionsApply(t *testing.T) {
	tests := []struct {
		name string
		opts ListOptions
		want []string
	}{
		{"zero value", ListOptions{}, []string{"e", "d", "c", "b", "a"}},
		{"all", ListOptions{Status: StatusAll}, []string{"e", "d", "c", "b", "a"}},
		{"active", ListOptions{Status: StatusActive}, []string{"e", "c", "b"}},
		{"completed", ListOptions{Status: StatusCompleted}, []string{"d", "a"}},
		{"priority filter", ListOptions{Priority: PriorityHigh}, []string{"d", "b"}},
		{"active high", ListOptions{Status: StatusActive, Priority: PriorityHigh}, []string{"b"}},
		{"sort created", ListOptions{SortBy: SortCreated}, []string{"e", "d", "c", "b", "a"}},
		{"sort priority", ListOptions{SortBy: SortPriority}, []string{"d", "b", "c", "e", "a"}},
		{"sort due date", ListOptions{SortBy: SortDueDate}, []string{"c", "a", "d", "e", "b"}},
		{"completed by due date", ListOptions{Status: StatusCompleted, SortBy: SortDueDate}, []string{"a", "d"}},
		{"no match", ListOptions{Status: StatusCompleted, Priority: PriorityMedium}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := append([]Task(nil), listFixture...)
			got := tt.opts.Apply(in)
			if !sameIDs(ids(got), tt.want) {
				t.Fatalf("Apply = %v, want %v", ids(got), tt.want)
			}
			if got == nil {
				t.Fatalf("Apply returned nil slice")
			}
			if !sameIDs(ids(in), ids(listFixture)) {
				t.Fatalf("Apply reordered its input: %v", ids(in))
			}
		})
	}
}

func TestListOptionsValidate(t *testing.T) {
	valid := []ListOptions{
		{},
		{Status: StatusActive, Priority: PriorityLow, SortBy: SortDueDate},
		{Status: StatusCompleted, SortBy: SortPriority},
	}
	for _, o := range valid {
		if err := o.Validate(); err != nil {
			t.Fatalf("Validate(%+v) = %v, want nil", o, err)
		}
	}

	invalid := []ListOptions{
		{Status: "done"},
		{Priority: "urgent"},
		{SortBy: "title"},
	}
	for _, o := range invalid {
		if err := o.Validate(); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("Validate(%+v) = %v, want ErrInvalidArgument", o, err)
		}
	}
}
