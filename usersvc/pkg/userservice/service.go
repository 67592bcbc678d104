package userservice

import (
	"context"
	"errors"

	"github.com/go-kit/kit/log"
	"github.com/ichigozero/tasknotes/usersvc"
	"github.com/twinj/uuid"
	"golang.org/x/crypto/bcrypt"
)

type Service interface {
	Register(ctx context.Context, name, password string) (usersvc.User, error)
	Authenticate(ctx context.Context, name, password string) (usersvc.User, error)
	CreateAnonymous(ctx context.Context) (usersvc.User, error)
	IsExists(ctx context.Context, id string) (bool, error)
}

func New(r usersvc.UserRepository, cost int, logger log.Logger) Service {
	var svc Service
	{
		svc = NewBasicService(r, cost)
		svc = LoggingMiddleware(logger)(svc)
	}
	return svc
}

// NewBasicService returns a Service hashing passwords with the given bcrypt
// cost. Costs outside bcrypt's range fall back to bcrypt.DefaultCost.
func NewBasicService(r usersvc.UserRepository, cost int) Service {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return basicService{users: r, cost: cost}
}

type basicService struct {
	users usersvc.UserRepository
	cost  int
}

func (s basicService) Register(ctx context.Context, name, password string) (usersvc.User, error) {
	if name == "" || password == "" {
		return usersvc.User{}, usersvc.ErrInvalidArgument
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return usersvc.User{}, err
	}

	return s.users.Create(ctx, usersvc.User{Name: name, PasswordHash: hash})
}

// Authenticate reports unknown names and wrong passwords alike as
// ErrInvalidCredentials.
func (s basicService) Authenticate(ctx context.Context, name, password string) (usersvc.User, error) {
	if name == "" || password == "" {
		return usersvc.User{}, usersvc.ErrInvalidArgument
	}

	u, err := s.users.FindByName(ctx, name)
	if errors.Is(err, usersvc.ErrUserNotFound) {
		return usersvc.User{}, usersvc.ErrInvalidCredentials
	}
	if err != nil {
		return usersvc.User{}, err
	}

	if u.Anonymous || bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)) != nil {
		return usersvc.User{}, usersvc.ErrInvalidCredentials
	}
	return u, nil
}

func (s basicService) CreateAnonymous(ctx context.Context) (usersvc.User, error) {
	id := uuid.NewV4().String()
	return s.users.Create(ctx, usersvc.User{
		ID:        id,
		Name:      "anonymous-" + id,
		Anonymous: true,
	})
}

func (s basicService) IsExists(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, usersvc.ErrInvalidArgument
	}

	_, err := s.users.Find(ctx, id)
	if errors.Is(err, usersvc.ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
