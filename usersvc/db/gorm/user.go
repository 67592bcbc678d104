package gorm

import (
	"context"
	"errors"

	"github.com/ichigozero/tasknotes/usersvc"
	"github.com/twinj/uuid"
	libgorm "gorm.io/gorm"
)

type userRepository struct {
	db *libgorm.DB
}

func NewUserRepository(db *libgorm.DB) usersvc.UserRepository {
	return &userRepository{db}
}

func Migrate(db *libgorm.DB) error {
	return db.AutoMigrate(&usersvc.User{})
}

// Create inserts u, assigning an ID when it has none. Names are unique.
func (r *userRepository) Create(ctx context.Context, u usersvc.User) (usersvc.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewV4().String()
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *libgorm.DB) error {
		var count int64
		if err := tx.Model(&usersvc.User{}).Where("name = ?", u.Name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return usersvc.ErrUserExists
		}
		return tx.Create(&u).Error
	})
	if err != nil {
		return usersvc.User{}, err
	}
	return u, nil
}

func (r *userRepository) Find(ctx context.Context, id string) (usersvc.User, error) {
	var user usersvc.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if errors.Is(err, libgorm.ErrRecordNotFound) {
		return usersvc.User{}, usersvc.ErrUserNotFound
	}
	return user, err
}

func (r *userRepository) FindByName(ctx context.Context, name string) (usersvc.User, error) {
	var user usersvc.User
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&user).Error
	if errors.Is(err, libgorm.ErrRecordNotFound) {
		return usersvc.User{}, usersvc.ErrUserNotFound
	}
	return user, err
}
