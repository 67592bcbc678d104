package tasksvc

import "context"

// OwnedTask resolves taskID and checks that it belongs to the caller.
// Anonymous callers get ErrUnauthenticated, unknown tasks ErrTaskNotFound and
// tasks of other users ErrForbidden.
func OwnedTask(ctx context.Context, tasks TaskRepository, a Auth, taskID string) (Task, error) {
	if !a.Authenticated() {
		return Task{}, ErrUnauthenticated
	}

	t, err := tasks.Find(ctx, taskID)
	if err != nil {
		return Task{}, err
	}

	if t.UserID != a.UserID {
		return Task{}, ErrForbidden
	}
	return t, nil
}

// SessionValidator reports whether the access session an identity was issued
// for is still live.
type SessionValidator func(ctx context.Context, accessUUID string) (bool, error)

// Resolve returns a if its session is live and the anonymous identity if it
// was revoked. Validator failures are returned as is.
func (v SessionValidator) Resolve(ctx context.Context, a Auth) (Auth, error) {
	if !a.Authenticated() {
		return Auth{}, nil
	}

	ok, err := v(ctx, a.AccessUUID)
	if err != nil {
		return Auth{}, err
	}
	if !ok {
		return Auth{}, nil
	}
	return a, nil
}
