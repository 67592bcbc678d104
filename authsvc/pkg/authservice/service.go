package authservice

import (
	"context"
	"errors"

	"github.com/go-kit/kit/log"
	"github.com/ichigozero/tasknotes/authsvc"
	"github.com/ichigozero/tasknotes/authsvc/inmem"
	"github.com/ichigozero/tasknotes/usersvc"
	"github.com/ichigozero/tasknotes/usersvc/pkg/userservice"
)

type Service interface {
	SignUp(ctx context.Context, username, password string) (map[string]string, error)
	SignIn(ctx context.Context, username, password string) (map[string]string, error)
	SignInAnonymous(ctx context.Context) (map[string]string, error)
	Logout(ctx context.Context, accessUUID string) (bool, error)
	Refresh(ctx context.Context, accessUUID, refreshUUID, userID string) (map[string]string, error)
	Validate(ctx context.Context, accessUUID string) (bool, error)
}

func New(t Tokenizer, c inmem.Client, u userservice.Service, logger log.Logger) Service {
	var svc Service
	{
		svc = NewBasicService(t, c, u)
		svc = LoggingMiddleware(logger)(svc)
	}
	return svc
}

type basicService struct {
	tokenizer Tokenizer
	client    inmem.Client
	users     userservice.Service
}

func NewBasicService(t Tokenizer, c inmem.Client, u userservice.Service) Service {
	return &basicService{tokenizer: t, client: c, users: u}
}

func (s *basicService) SignUp(ctx context.Context, username, password string) (map[string]string, error) {
	u, err := s.users.Register(ctx, username, password)
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, u.ID)
}

func (s *basicService) SignIn(ctx context.Context, username, password string) (map[string]string, error) {
	u, err := s.users.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, u.ID)
}

func (s *basicService) SignInAnonymous(ctx context.Context) (map[string]string, error) {
	u, err := s.users.CreateAnonymous(ctx)
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, u.ID)
}

// Logout revokes the access session and the refresh session paired with it.
func (s *basicService) Logout(ctx context.Context, accessUUID string) (bool, error) {
	if accessUUID == "" {
		return false, authsvc.ErrInvalidArgument
	}

	if err := s.revoke(ctx, accessUUID); err != nil {
		return false, err
	}
	return true, nil
}

// Refresh trades a live refresh session for a new token pair. The old pair
// is revoked, so each refresh token works once.
func (s *basicService) Refresh(ctx context.Context, accessUUID, refreshUUID, userID string) (map[string]string, error) {
	if accessUUID == "" || refreshUUID == "" || userID == "" {
		return nil, authsvc.ErrInvalidArgument
	}

	err := s.client.Get(ctx, refreshUUID)
	if errors.Is(err, inmem.ErrKeyNotFound) {
		return nil, authsvc.ErrSessionExpired
	}
	if err != nil {
		return nil, err
	}

	ok, err := s.users.IsExists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, usersvc.ErrUserNotFound
	}

	if err := s.revoke(ctx, accessUUID); err != nil {
		return nil, err
	}
	return s.issue(ctx, userID)
}

// Validate reports whether the access session is still live.
func (s *basicService) Validate(ctx context.Context, accessUUID string) (bool, error) {
	if accessUUID == "" {
		return false, nil
	}

	err := s.client.Get(ctx, accessUUID)
	if errors.Is(err, inmem.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *basicService) issue(ctx context.Context, userID string) (map[string]string, error) {
	at, rt, err := s.tokenizer.Generate(userID)
	if err != nil {
		return nil, err
	}

	if err := s.storeTokens(ctx, at, rt); err != nil {
		return nil, err
	}

	return s.compileTokens(at, rt), nil
}

func (s *basicService) revoke(ctx context.Context, accessUUID string) error {
	if err := s.client.Delete(ctx, accessUUID); err != nil {
		return err
	}
	return s.client.Delete(ctx, RefreshUUID(accessUUID))
}

func (s *basicService) storeTokens(ctx context.Context, at *AccessToken, rt *RefreshToken) error {
	if err := s.client.Put(ctx, at.UUID, []byte(at.Hash), AccessTokenExpiry()); err != nil {
		return err
	}
	return s.client.Put(ctx, rt.RefreshUUID, []byte(rt.Hash), RefreshTokenExpiry())
}

func (s *basicService) compileTokens(at *AccessToken, rt *RefreshToken) map[string]string {
	return map[string]string{
		"access":  at.Hash,
		"refresh": rt.Hash,
	}
}
