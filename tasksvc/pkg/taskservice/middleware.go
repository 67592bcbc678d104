package taskservice

import (
	"context"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/metrics"
	"github.com/ichigozero/tasknotes/tasksvc"
)

type Middleware func(Service) Service

func LoggingMiddleware(logger log.Logger) Middleware {
	return func(next Service) Service {
		return loggingMiddleware{logger, next}
	}
}

type loggingMiddleware struct {
	logger log.Logger
	next   Service
}

func (mw loggingMiddleware) CreateTask(ctx context.Context, a tasksvc.Auth, title string, priority tasksvc.Priority, dueDate *time.Time) (t tasksvc.Task, err error) {
	defer func() {
		mw.logger.Log(
			"method", "CreateTask",
			"access_uuid", a.AccessUUID,
			"user_id", a.UserID,
			"title", title,
			"priority", priority,
			"due_date", dueDate,
			"task_id", t.ID,
			"err", err,
		)
	}()
	return mw.next.CreateTask(ctx, a, title, priority, dueDate)
}

func (mw loggingMiddleware) Tasks(ctx context.Context, a tasksvc.Auth, opts tasksvc.ListOptions) (t []tasksvc.Task, err error) {
	defer func() {
		mw.logger.Log(
			"method", "Tasks",
			"access_uuid", a.AccessUUID,
			"user_id", a.UserID,
			"status", opts.Status,
			"priority", opts.Priority,
			"sort", opts.SortBy,
			"count", len(t),
			"err", err,
		)
	}()
	return mw.next.Tasks(ctx, a, opts)
}

func (mw loggingMiddleware) Task(ctx context.Context, a tasksvc.Auth, taskID string) (t tasksvc.Task, err error) {
	defer func() {
		mw.logger.Log(
			"method", "Task",
			"access_uuid", a.AccessUUID,
			"user_id", a.UserID,
			"task_id", taskID,
			"err", err,
		)
	}()
	return mw.next.Task(ctx, a, taskID)
}

func (mw loggingMiddleware) UpdateTask(ctx context.Context, a tasksvc.Auth, taskID string, patch tasksvc.TaskPatch) (t tasksvc.Task, err error) {
	defer func() {
		mw.logger.Log(
			"method", "UpdateTask",
			"access_uuid", a.AccessUUID,
			"user_id", a.UserID,
			"task_id", taskID,
			"title", patch.Title,
			"completed", patch.Completed,
			"priority", patch.Priority,
			"due_date", patch.DueDate,
			"err", err,
		)
	}()
	return mw.next.UpdateTask(ctx, a, taskID, patch)
}

func (mw loggingMiddleware) DeleteTask(ctx context.Context, a tasksvc.Auth, taskID string) (result bool, err error) {
	defer func() {
		mw.logger.Log(
			"method", "DeleteTask",
			"access_uuid", a.AccessUUID,
			"user_id", a.UserID,
			"task_id", taskID,
			"result", result,
			"err", err,
		)
	}()
	return mw.next.DeleteTask(ctx, a, taskID)
}

func InstrumentingMiddleware(counter metrics.Counter, latency metrics.Histogram) Middleware {
	return func(next Service) Service {
		return instrumentingMiddleware{counter, latency, next}
	}
}

type instrumentingMiddleware struct {
	requestCount   metrics.Counter
	requestLatency metrics.Histogram
	next           Service
}

func (mw instrumentingMiddleware) CreateTask(ctx context.Context, a tasksvc.Auth, title string, priority tasksvc.Priority, dueDate *time.Time) (t tasksvc.Task, err error) {
	defer func(begin time.Time) {
		mw.requestCount.With("method", "create_task").Add(1)
		mw.requestLatency.With("method", "create_task").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mw.next.CreateTask(ctx, a, title, priority, dueDate)
}

func (mw instrumentingMiddleware) Tasks(ctx context.Context, a tasksvc.Auth, opts tasksvc.ListOptions) (t []tasksvc.Task, err error) {
	defer func(begin time.Time) {
		mw.requestCount.With("method", "tasks").Add(1)
		mw.requestLatency.With("method", "tasks").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mw.next.Tasks(ctx, a, opts)
}

func (mw instrumentingMiddleware) Task(ctx context.Context, a tasksvc.Auth, taskID string) (t tasksvc.Task, err error) {
	defer func(begin time.Time) {
		mw.requestCount.With("method", "task").Add(1)
		mw.requestLatency.With("method", "task").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mw.next.Task(ctx, a, taskID)
}

func (mw instrumentingMiddleware) UpdateTask(ctx context.Context, a tasksvc.Auth, taskID string, patch tasksvc.TaskPatch) (t tasksvc.Task, err error) {
	defer func(begin time.Time) {
		mw.requestCount.With("method", "update_task").Add(1)
		mw.requestLatency.With("method", "update_task").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mw.next.UpdateTask(ctx, a, taskID, patch)
}

func (mw instrumentingMiddleware) DeleteTask(ctx context.Context, a tasksvc.Auth, taskID string) (result bool, err error) {
	defer func(begin time.Time) {
		mw.requestCount.With("method", "delete_task").Add(1)
		mw.requestLatency.With("method", "delete_task").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mw.next.DeleteTask(ctx, a, taskID)
}

// SessionMiddleware downgrades identities whose access session was revoked
// to anonymous before they reach the service.
func SessionMiddleware(validate tasksvc.SessionValidator) Middleware {
	return func(next Service) Service {
		return sessionMiddleware{next, validate}
	}
}

type sessionMiddleware struct {
	next     Service
	validate tasksvc.SessionValidator
}

func (mw sessionMiddleware) CreateTask(ctx context.Context, a tasksvc.Auth, title string, priority tasksvc.Priority, dueDate *time.Time) (tasksvc.Task, error) {
	a, err := mw.validate.Resolve(ctx, a)
	if err != nil {
		return tasksvc.Task{}, err
	}

	return mw.next.CreateTask(ctx, a, title, priority, dueDate)
}

func (mw sessionMiddleware) Tasks(ctx context.Context, a tasksvc.Auth, opts tasksvc.ListOptions) ([]tasksvc.Task, error) {
	a, err := mw.validate.Resolve(ctx, a)
	if err != nil {
		return nil, err
	}

	return mw.next.Tasks(ctx, a, opts)
}

func (mw sessionMiddleware) Task(ctx context.Context, a tasksvc.Auth, taskID string) (tasksvc.Task, error) {
	a, err := mw.validate.Resolve(ctx, a)
	if err != nil {
		return tasksvc.Task{}, err
	}

	return mw.next.Task(ctx, a, taskID)
}

func (mw sessionMiddleware) UpdateTask(ctx context.Context, a tasksvc.Auth, taskID string, patch tasksvc.TaskPatch) (tasksvc.Task, error) {
	a, err := mw.validate.Resolve(ctx, a)
	if err != nil {
		return tasksvc.Task{}, err
	}

	return mw.next.UpdateTask(ctx, a, taskID, patch)
}

func (mw sessionMiddleware) DeleteTask(ctx context.Context, a tasksvc.Auth, taskID string) (bool, error) {
	a, err := mw.validate.Resolve(ctx, a)
	if err != nil {
		return false, err
	}

	return mw.next.DeleteTask(ctx, a, taskID)
}
