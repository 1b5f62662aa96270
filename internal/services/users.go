package services

import (
	"context"
	"errors"
	"fmt"

	"taskboard/internal/models"
	"taskboard/internal/store"
)

type UserService interface {
	ListUsers(ctx context.Context) ([]models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	CreateUser(ctx context.Context, input models.UserInput) (*models.User, error)
	UpdateUser(ctx context.Context, id string, changes []byte) (*models.User, error)
	DeleteUser(ctx context.Context, id string) error
}

type UserServiceImpl struct {
	users collection[models.User]
}

func NewUserService(users store.Collection[models.User], opts Options) *UserServiceImpl {
	return &UserServiceImpl{users: newCollection("User", store.UsersName, users, opts)}
}

func (s *UserServiceImpl) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.users.list(ctx, store.Query{Sort: []store.SortField{store.Desc("created_at")}})
}

func (s *UserServiceImpl) GetUser(ctx context.Context, id string) (*models.User, error) {
	_, user, err := s.users.get(ctx, id)
	return user, err
}

// CreateUser looks the email up before validating so a taken address is
// reported as ErrEmailExists. Comparison is case sensitive.
func (s *UserServiceImpl) CreateUser(ctx context.Context, input models.UserInput) (*models.User, error) {
	if input.Email != nil && *input.Email != "" {
		_, err := s.users.store.FindOne(ctx, store.Filter{store.Eq("email", *input.Email)})
		switch {
		case err == nil:
			return nil, ErrEmailExists
		case !errors.Is(err, store.ErrNotFound):
			return nil, fmt.Errorf("check user email: %w", err)
		}
	}

	user, err := models.NewUser(input, s.users.now())
	if err != nil {
		return nil, err
	}
	if err := s.users.insert(ctx, user.ID, user); err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			return nil, ErrEmailExists
		}
		return nil, err
	}
	return user, nil
}

func (s *UserServiceImpl) UpdateUser(ctx context.Context, id string, changes []byte) (*models.User, error) {
	user, err := s.users.merge(ctx, id, changes, func(merged, stored *models.User) {
		merged.ID = stored.ID
		merged.CreatedAt = stored.CreatedAt
	})
	if errors.Is(err, store.ErrDuplicateKey) {
		return nil, ErrEmailExists
	}
	return user, err
}

func (s *UserServiceImpl) DeleteUser(ctx context.Context, id string) error {
	return s.users.remove(ctx, id)
}
