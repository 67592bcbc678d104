package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/ichigozero/tasknotes/tasksvc"
)

// Store keeps tasks and notes in process memory. A single lock guards both
// collections so the cascade delete is atomic.
type Store struct {
	mu    sync.RWMutex
	tasks map[string]tasksvc.Task
	notes map[string]tasksvc.Note
}

func NewStore() *Store {
	return &Store{
		tasks: map[string]tasksvc.Task{},
		notes: map[string]tasksvc.Note{},
	}
}

func (s *Store) Tasks() tasksvc.TaskRepository { return taskRepository{s} }
func (s *Store) Notes() tasksvc.NoteRepository { return noteRepository{s} }

type taskRepository struct{ s *Store }

func (r taskRepository) Create(_ context.Context, task tasksvc.Task) (tasksvc.Task, error) {
	if task.ID == "" {
		task.ID = tasksvc.NewID()
	}
	task.CreatedAt = tasksvc.Now()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.tasks[task.ID] = task
	return task, nil
}

func (r taskRepository) Find(_ context.Context, taskID string) (tasksvc.Task, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.tasks[taskID]
	if !ok {
		return tasksvc.Task{}, tasksvc.ErrTaskNotFound
	}
	return t, nil
}

func (r taskRepository) FindByUser(_ context.Context, userID string, order tasksvc.Order) ([]tasksvc.Task, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	tasks := []tasksvc.Task{}
	for _, t := range r.s.tasks {
		if t.UserID == userID {
			tasks = append(tasks, t)
		}
	}
	sort.Slice(tasks, func(i, j int) bool {
		return before(tasks[i].CreatedAt.UnixMicro(), tasks[j].CreatedAt.UnixMicro(), tasks[i].ID, tasks[j].ID, order)
	})
	return tasks, nil
}

func (r taskRepository) Patch(_ context.Context, taskID string, patch tasksvc.TaskPatch) (tasksvc.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tasks[taskID]
	if !ok {
		return tasksvc.Task{}, tasksvc.ErrTaskNotFound
	}
	t = patch.Apply(t)
	r.s.tasks[taskID] = t
	return t, nil
}

func (r taskRepository) Delete(_ context.Context, taskID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.tasks[taskID]; !ok {
		return 0, tasksvc.ErrTaskNotFound
	}

	var removed int
	for id, n := range r.s.notes {
		if n.TaskID == taskID {
			delete(r.s.notes, id)
			removed++
		}
	}
	delete(r.s.tasks, taskID)
	return removed, nil
}

type noteRepository struct{ s *Store }

func (r noteRepository) Create(_ context.Context, note tasksvc.Note) (tasksvc.Note, error) {
	if note.ID == "" {
		note.ID = tasksvc.NewID()
	}
	note.CreatedAt = tasksvc.Now()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.notes[note.ID] = note
	return note, nil
}

func (r noteRepository) Find(_ context.Context, noteID string) (tasksvc.Note, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	n, ok := r.s.notes[noteID]
	if !ok {
		return tasksvc.Note{}, tasksvc.ErrNoteNotFound
	}
	return n, nil
}

func (r noteRepository) FindByTask(_ context.Context, taskID string, order tasksvc.Order) ([]tasksvc.Note, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	notes := []tasksvc.Note{}
	for _, n := range r.s.notes {
		if n.TaskID == taskID {
			notes = append(notes, n)
		}
	}
	sort.Slice(notes, func(i, j int) bool {
		return before(notes[i].CreatedAt.UnixMicro(), notes[j].CreatedAt.UnixMicro(), notes[i].ID, notes[j].ID, order)
	})
	return notes, nil
}

func (r noteRepository) Delete(_ context.Context, noteID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.notes[noteID]; !ok {
		return tasksvc.ErrNoteNotFound
	}
	delete(r.s.notes, noteID)
	return nil
}

func before(a, b int64, idA, idB string, order tasksvc.Order) bool {
	if a == b {
		if order == tasksvc.Descending {
			return idA > idB
		}
		return idA < idB
	}
	if order == tasksvc.Descending {
		return a > b
	}
	return a < b
}
