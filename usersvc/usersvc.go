package usersvc

import (
	"context"
	"errors"
	"time"
)

// User is an account that owns tasks. Anonymous users have no password and
// get a generated name.
type User struct {
	ID           string    `json:"id" gorm:"primaryKey;size:36"`
	Name         string    `json:"name" gorm:"size:64;not null;uniqueIndex"`
	PasswordHash []byte    `json:"-"`
	Anonymous    bool      `json:"anonymous"`
	CreatedAt    time.Time `json:"createdAt"`
}

type UserRepository interface {
	Create(ctx context.Context, u User) (User, error)
	Find(ctx context.Context, id string) (User, error)
	FindByName(ctx context.Context, name string) (User, error)
}

var (
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
)
