package noteservice

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

func (mw loggingMiddleware) CreateNote(ctx context.Context, a tasksvc.Auth, taskID, content string) (n tasksvc.Note, err error) {
	defer func() {
		mw.logger.Log(
			"method", "CreateNote",
			"access_uuid", a.AccessUUID,
			"user_id", a.UserID,
			"task_id", taskID,
			"note_id", n.ID,
			"err", err,
		)
	}()
	return mw.next.CreateNote(ctx, a, taskID, content)
}

func (mw loggingMiddleware) Notes(ctx context.Context, a tasksvc.Auth, taskID string) (n []tasksvc.Note, err error) {
	defer func() {
		mw.logger.Log(
			"method", "Notes",
			"access_uuid", a.AccessUUID,
			"user_id", a.UserID,
			"task_id", taskID,
			"count", len(n),
			"err", err,
		)
	}()
	return mw.next.Notes(ctx, a, taskID)
}

func (mw loggingMiddleware) DeleteNote(ctx context.Context, a tasksvc.Auth, noteID string) (result bool, err error) {
	defer func() {
		mw.logger.Log(
			"method", "DeleteNote",
			"access_uuid", a.AccessUUID,
			"user_id", a.UserID,
			"note_id", noteID,
			"result", result,
			"err", err,
		)
	}()
	return mw.next.DeleteNote(ctx, a, noteID)
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

func (mw instrumentingMiddleware) CreateNote(ctx context.Context, a tasksvc.Auth, taskID, content string) (n tasksvc.Note, err error) {
	defer func(begin time.Time) {
		mw.requestCount.With("method", "create_note").Add(1)
		mw.requestLatency.With("method", "create_note").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mw.next.CreateNote(ctx, a, taskID, content)
}

func (mw instrumentingMiddleware) Notes(ctx context.Context, a tasksvc.Auth, taskID string) (n []tasksvc.Note, err error) {
	defer func(begin time.Time) {
		mw.requestCount.With("method", "notes").Add(1)
		mw.requestLatency.With("method", "notes").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mw.next.Notes(ctx, a, taskID)
}

func (mw instrumentingMiddleware) DeleteNote(ctx context.Context, a tasksvc.Auth, noteID string) (result bool, err error) {
	defer func(begin time.Time) {
		mw.requestCount.With("method", "delete_note").Add(1)
		mw.requestLatency.With("method", "delete_note").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mw.next.DeleteNote(ctx, a, noteID)
}

func SessionMiddleware(validate tasksvc.SessionValidator) Middleware {
	return func(next Service) Service {
		return sessionMiddleware{next, validate}
	}
}

type sessionMiddleware struct {
	next     Service
	validate tasksvc.SessionValidator
}

func (mw sessionMiddleware) CreateNote(ctx context.Context, a tasksvc.Auth, taskID, content string) (tasksvc.Note, error) {
	a, err := mw.validate.Resolve(ctx, a)
	if err != nil {
		return tasksvc.Note{}, err
	}

	return mw.next.CreateNote(ctx, a, taskID, content)
}

func (mw sessionMiddleware) Notes(ctx context.Context, a tasksvc.Auth, taskID string) ([]tasksvc.Note, error) {
	a, err := mw.validate.Resolve(ctx, a)
	if err != nil {
		return nil, err
	}

	return mw.next.Notes(ctx, a, taskID)
}

func (mw sessionMiddleware) DeleteNote(ctx context.Context, a tasksvc.Auth, noteID string) (bool, error) {
	a, err := mw.validate.Resolve(ctx, a)
	if err != nil {
		return false, err
	}

	return mw.next.DeleteNote(ctx, a, noteID)
}
