package tasksvc

import (
	"fmt"
	"sort"
)

type StatusFilter string

const (
	StatusAll       StatusFilter = "all"
	StatusActive    StatusFilter = "active"
	StatusCompleted StatusFilter = "completed"
)

type SortKey string

const (
	SortCreated  SortKey = "created"
	SortPriority SortKey = "priority"
	SortDueDate  SortKey = "dueDate"
)

// ListOptions narrows and orders a task list. The zero value keeps every task
// in newest-created-first order.
type ListOptions struct {
	Status   StatusFilter
	Priority Priority
	SortBy   SortKey
}

func (o ListOptions) Validate() error {
	switch o.Status {
	case "", StatusAll, StatusActive, StatusCompleted:
	default:
		return fmt.Errorf("status %q: %w", o.Status, ErrInvalidArgument)
	}
	if o.Priority != "" && !o.Priority.Valid() {
		return fmt.Errorf("priority %q: %w", o.Priority, ErrInvalidArgument)
	}
	switch o.SortBy {
	case "", SortCreated, SortPriority, SortDueDate:
	default:
		return fmt.Errorf("sort %q: %w", o.SortBy, ErrInvalidArgument)
	}
	return nil
}

var priorityRank = map[Priority]int{
	PriorityHigh:   0,
	PriorityMedium: 1,
	PriorityLow:    2,
}

// Apply filters tasks, which must already be in newest-created-first order,
// and sorts the result. Sorting is stable, so equal keys stay newest first.
func (o ListOptions) Apply(tasks []Task) []Task {
	result := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		switch o.Status {
		case StatusActive:
			if t.Completed {
				continue
			}
		case StatusCompleted:
			if !t.Completed {
				continue
			}
		}
		if o.Priority != "" && t.Priority != o.Priority {
			continue
		}
		result = append(result, t)
	}

	switch o.SortBy {
	case SortPriority:
		sort.SliceStable(result, func(i, j int) bool {
			return priorityRank[result[i].Priority] < priorityRank[result[j].Priority]
		})
	case SortDueDate:
		sort.SliceStable(result, func(i, j int) bool {
			a, b := result[i].DueDate, result[j].DueDate
			switch {
			case a == nil:
				return false
			case b == nil:
				return true
			}
			return a.Before(*b)
		})
	}
	return result
}
