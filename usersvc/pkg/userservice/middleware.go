package userservice

import (
	"context"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/metrics"
	"github.com/ichigozero/tasknotes/usersvc"
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

func (mw loggingMiddleware) Register(ctx context.Context, name, password string) (u usersvc.User, err error) {
	defer func() {
		mw.logger.Log("method", "Register", "name", name, "user_id", u.ID, "err", err)
	}()
	return mw.next.Register(ctx, name, password)
}

func (mw loggingMiddleware) Authenticate(ctx context.Context, name, password string) (u usersvc.User, err error) {
	defer func() {
		mw.logger.Log("method", "Authenticate", "name", name, "user_id", u.ID, "err", err)
	}()
	return mw.next.Authenticate(ctx, name, password)
}

func (mw loggingMiddleware) CreateAnonymous(ctx context.Context) (u usersvc.User, err error) {
	defer func() {
		mw.logger.Log("method", "CreateAnonymous", "user_id", u.ID, "err", err)
	}()
	return mw.next.CreateAnonymous(ctx)
}

func (mw loggingMiddleware) IsExists(ctx context.Context, id string) (v bool, err error) {
	defer func() {
		mw.logger.Log("method", "IsExists", "id", id, "v", v, "err", err)
	}()
	return mw.next.IsExists(ctx, id)
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

func (mw instrumentingMiddleware) Register(ctx context.Context, name, password string) (usersvc.User, error) {
	defer func(begin time.Time) {
		mw.requestCount.With("method", "register").Add(1)
		mw.requestLatency.With("method", "register").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mw.next.Register(ctx, name, password)
}

func (mw instrumentingMiddleware) Authenticate(ctx context.Context, name, password string) (usersvc.User, error) {
	defer func(begin time.Time) {
		mw.requestCount.With("method", "authenticate").Add(1)
		mw.requestLatency.With("method", "authenticate").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mw.next.Authenticate(ctx, name, password)
}

func (mw instrumentingMiddleware) CreateAnonymous(ctx context.Context) (usersvc.User, error) {
	defer func(begin time.Time) {
		mw.requestCount.With("method", "create_anonymous").Add(1)
		mw.requestLatency.With("method", "create_anonymous").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mw.next.CreateAnonymous(ctx)
}

func (mw instrumentingMiddleware) IsExists(ctx context.Context, id string) (bool, error) {
	defer func(begin time.Time) {
		mw.requestCount.With("method", "is_exists").Add(1)
		mw.requestLatency.With("method", "is_exists").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mw.next.IsExists(ctx, id)
}
