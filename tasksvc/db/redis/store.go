// Package redis stores tasks and notes as JSON documents in Redis. Each
// collection keeps a sorted-set index scored by creation time:
//
//	task:<id>          task document
//	user:<id>:tasks    task ids owned by a user
//	note:<id>          note document
//	task:<id>:notes    note ids attached to a task
package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/ichigozero/tasknotes/tasksvc"
	goredis "github.com/redis/go-redis/v9"
)

func taskKey(id string) string      { return "task:" + id }
func userTasksKey(id string) string { return "user:" + id + ":tasks" }
func noteKey(id string) string      { return "note:" + id }
func taskNotesKey(id string) string { return "task:" + id + ":notes" }

type taskRepository struct {
	client goredis.UniversalClient
}

func NewTaskRepository(client goredis.UniversalClient) tasksvc.TaskRepository {
	return &taskRepository{client}
}

func (r taskRepository) Create(ctx context.Context, task tasksvc.Task) (tasksvc.Task, error) {
	if task.ID == "" {
		task.ID = tasksvc.NewID()
	}
	task.CreatedAt = tasksvc.Now()

	data, err := sonic.Marshal(task)
	if err != nil {
		return tasksvc.Task{}, err
	}

	_, err = r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, taskKey(task.ID), data, 0)
		pipe.ZAdd(ctx, userTasksKey(task.UserID), goredis.Z{
			Score:  float64(task.CreatedAt.UnixMicro()),
			Member: task.ID,
		})
		return nil
	})
	if err != nil {
		return tasksvc.Task{}, fmt.Errorf("create task: %w", err)
	}
	return task, nil
}

func (r taskRepository) Find(ctx context.Context, taskID string) (tasksvc.Task, error) {
	return getTask(ctx, r.client, taskID)
}

func (r taskRepository) FindByUser(ctx context.Context, userID string, order tasksvc.Order) ([]tasksvc.Task, error) {
	ids, err := rangeIndex(ctx, r.client, userTasksKey(userID), order)
	if err != nil {
		return nil, fmt.Errorf("find tasks: %w", err)
	}

	tasks := []tasksvc.Task{}
	err = loadDocuments(ctx, r.client, ids, taskKey, func(data []byte) error {
		var t tasksvc.Task
		if err := sonic.Unmarshal(data, &t); err != nil {
			return err
		}
		tasks = append(tasks, t)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("find tasks: %w", err)
	}
	return tasks, nil
}

// Patch applies the patch under WATCH so a concurrent write to the same task
// aborts the transaction instead of being overwritten.
func (r taskRepository) Patch(ctx context.Context, taskID string, patch tasksvc.TaskPatch) (tasksvc.Task, error) {
	var task tasksvc.Task
	err := r.client.Watch(ctx, func(tx *goredis.Tx) error {
		t, err := getTask(ctx, tx, taskID)
		if err != nil {
			return err
		}

		task = patch.Apply(t)
		if patch.Empty() {
			return nil
		}

		data, err := sonic.Marshal(task)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, taskKey(taskID), data, 0)
			return nil
		})
		return err
	}, taskKey(taskID))
	if err != nil {
		return tasksvc.Task{}, wrap("patch task", err)
	}
	return task, nil
}

// Delete removes the task, its note documents and both indexes in a single
// MULTI. The note index is watched so a note added meanwhile aborts the
// delete rather than being orphaned.
func (r taskRepository) Delete(ctx context.Context, taskID string) (int, error) {
	var removed int
	err := r.client.Watch(ctx, func(tx *goredis.Tx) error {
		t, err := getTask(ctx, tx, taskID)
		if err != nil {
			return err
		}

		noteIDs, err := tx.ZRange(ctx, taskNotesKey(taskID), 0, -1).Result()
		if err != nil {
			return err
		}

		keys := make([]string, 0, len(noteIDs)+2)
		for _, id := range noteIDs {
			keys = append(keys, noteKey(id))
		}
		keys = append(keys, taskNotesKey(taskID), taskKey(taskID))

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Del(ctx, keys...)
			pipe.ZRem(ctx, userTasksKey(t.UserID), taskID)
			return nil
		})
		if err != nil {
			return err
		}

		removed = len(noteIDs)
		return nil
	}, taskKey(taskID), taskNotesKey(taskID))
	if err != nil {
		return 0, wrap("delete task", err)
	}
	return removed, nil
}

type noteRepository struct {
	client goredis.UniversalClient
}

func NewNoteRepository(client goredis.UniversalClient) tasksvc.NoteRepository {
	return &noteRepository{client}
}

func (r noteRepository) Create(ctx context.Context, note tasksvc.Note) (tasksvc.Note, error) {
	if note.ID == "" {
		note.ID = tasksvc.NewID()
	}
	note.CreatedAt = tasksvc.Now()

	data, err := sonic.Marshal(note)
	if err != nil {
		return tasksvc.Note{}, err
	}

	_, err = r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, noteKey(note.ID), data, 0)
		pipe.ZAdd(ctx, taskNotesKey(note.TaskID), goredis.Z{
			Score:  float64(note.CreatedAt.UnixMicro()),
			Member: note.ID,
		})
		return nil
	})
	if err != nil {
		return tasksvc.Note{}, fmt.Errorf("create note: %w", err)
	}
	return note, nil
}

func (r noteRepository) Find(ctx context.Context, noteID string) (tasksvc.Note, error) {
	data, err := r.client.Get(ctx, noteKey(noteID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return tasksvc.Note{}, tasksvc.ErrNoteNotFound
	}
	if err != nil {
		return tasksvc.Note{}, fmt.Errorf("find note: %w", err)
	}

	var note tasksvc.Note
	if err := sonic.Unmarshal(data, &note); err != nil {
		return tasksvc.Note{}, fmt.Errorf("find note: %w", err)
	}
	return note, nil
}

func (r noteRepository) FindByTask(ctx context.Context, taskID string, order tasksvc.Order) ([]tasksvc.Note, error) {
	ids, err := rangeIndex(ctx, r.client, taskNotesKey(taskID), order)
	if err != nil {
		return nil, fmt.Errorf("find notes: %w", err)
	}

	notes := []tasksvc.Note{}
	err = loadDocuments(ctx, r.client, ids, noteKey, func(data []byte) error {
		var n tasksvc.Note
		if err := sonic.Unmarshal(data, &n); err != nil {
			return err
		}
		notes = append(notes, n)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("find notes: %w", err)
	}
	return notes, nil
}

func (r noteRepository) Delete(ctx context.Context, noteID string) error {
	note, err := r.Find(ctx, noteID)
	if err != nil {
		return err
	}

	_, err = r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, noteKey(noteID))
		pipe.ZRem(ctx, taskNotesKey(note.TaskID), noteID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return nil
}

type getter interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
}

func getTask(ctx context.Context, c getter, taskID string) (tasksvc.Task, error) {
	data, err := c.Get(ctx, taskKey(taskID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return tasksvc.Task{}, tasksvc.ErrTaskNotFound
	}
	if err != nil {
		return tasksvc.Task{}, fmt.Errorf("find task: %w", err)
	}

	var task tasksvc.Task
	if err := sonic.Unmarshal(data, &task); err != nil {
		return tasksvc.Task{}, fmt.Errorf("find task: %w", err)
	}
	return task, nil
}

func rangeIndex(ctx context.Context, c goredis.Cmdable, key string, order tasksvc.Order) ([]string, error) {
	if order == tasksvc.Descending {
		return c.ZRevRange(ctx, key, 0, -1).Result()
	}
	return c.ZRange(ctx, key, 0, -1).Result()
}

// loadDocuments fetches the documents for ids with one MGET and hands each
// existing one to fn in index order.
func loadDocuments(ctx context.Context, c goredis.Cmdable, ids []string, key func(string) string, fn func([]byte) error) error {
	if len(ids) == 0 {
		return nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = key(id)
	}

	values, err := c.MGet(ctx, keys...).Result()
	if err != nil {
		return err
	}

	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if err := fn([]byte(s)); err != nil {
			return err
		}
	}
	return nil
}

func wrap(op string, err error) error {
	if errors.Is(err, tasksvc.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
