package authservice

import (
	"context"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/metrics"
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

func (mw loggingMiddleware) SignUp(ctx context.Context, username, password string) (tokens map[string]string, err error) {
	defer func() {
		mw.logger.Log("method", "SignUp", "username", username, "err", err)
	}()
	return mw.next.SignUp(ctx, username, password)
}

func (mw loggingMiddleware) SignIn(ctx context.Context, username, password string) (tokens map[string]string, err error) {
	defer func() {
		mw.logger.Log("method", "SignIn", "username", username, "err", err)
	}()
	return mw.next.SignIn(ctx, username, password)
}

func (mw loggingMiddleware) SignInAnonymous(ctx context.Context) (tokens map[string]string, err error) {
	defer func() {
		mw.logger.Log("method", "SignInAnonymous", "err", err)
	}()
	return mw.next.SignInAnonymous(ctx)
}

func (mw loggingMiddleware) Logout(ctx context.Context, accessUUID string) (v bool, err error) {
	defer func() {
		mw.logger.Log("method", "Logout", "access_uuid", accessUUID, "v", v, "err", err)
	}()
	return mw.next.Logout(ctx, accessUUID)
}

func (mw loggingMiddleware) Refresh(ctx context.Context, accessUUID, refreshUUID, userID string) (tokens map[string]string, err error) {
	defer func() {
		mw.logger.Log("method", "Refresh", "access_uuid", accessUUID, "user_id", userID, "err", err)
	}()
	return mw.next.Refresh(ctx, accessUUID, refreshUUID, userID)
}

func (mw loggingMiddleware) Validate(ctx context.Context, accessUUID string) (v bool, err error) {
	defer func() {
		mw.logger.Log("method", "Validate", "access_uuid", accessUUID, "v", v, "err", err)
	}()
	return mw.next.Validate(ctx, accessUUID)
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

func (mw instrumentingMiddleware) observe(method string, begin time.Time) {
	mw.requestCount.With("method", method).Add(1)
	mw.requestLatency.With("method", method).Observe(time.Since(begin).Seconds())
}

func (mw instrumentingMiddleware) SignUp(ctx context.Context, username, password string) (map[string]string, error) {
	defer mw.observe("sign_up", time.Now())
	return mw.next.SignUp(ctx, username, password)
}

func (mw instrumentingMiddleware) SignIn(ctx context.Context, username, password string) (map[string]string, error) {
	defer mw.observe("sign_in", time.Now())
	return mw.next.SignIn(ctx, username, password)
}

func (mw instrumentingMiddleware) SignInAnonymous(ctx context.Context) (map[string]string, error) {
	defer mw.observe("sign_in_anonymous", time.Now())
	return mw.next.SignInAnonymous(ctx)
}

func (mw instrumentingMiddleware) Logout(ctx context.Context, accessUUID string) (bool, error) {
	defer mw.observe("logout", time.Now())
	return mw.next.Logout(ctx, accessUUID)
}

func (mw instrumentingMiddleware) Refresh(ctx context.Context, accessUUID, refreshUUID, userID string) (map[string]string, error) {
	defer mw.observe("refresh", time.Now())
	return mw.next.Refresh(ctx, accessUUID, refreshUUID, userID)
}

func (mw instrumentingMiddleware) Validate(ctx context.Context, accessUUID string) (bool, error) {
	defer mw.observe("validate", time.Now())
	return mw.next.Validate(ctx, accessUUID)
}
