package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"eli-dashboard/internal/models"
	"eli-dashboard/internal/repository/postgres"
	"eli-dashboard/internal/util"
)

type UserStore interface {
	List(ctx context.Context) ([]models.User, error)
	Create(ctx context.Context, in models.UserInput) (*models.User, error)
	Get(ctx context.Context, id int64) (*models.User, error)
	Update(ctx context.Context, id int64, in models.UserInput) (*models.User, error)
	Delete(ctx context.Context, id int64) error
}

// UserService handles the dashboard user directory.
type UserService struct {
	store  UserStore
	logger *zap.Logger
}

func NewUserService(store UserStore, logger *zap.Logger) *UserService {
	return &UserService{store: store, logger: logger}
}

func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.store.List(ctx)
}

func (s *UserService) CreateUser(ctx context.Context, in models.UserInput) (*models.User, error) {
	in, err := sanitizeUserInput(in)
	if err != nil {
		return nil, err
	}
	u, err := s.store.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	s.logger.Info("User created successfully", zap.Int64("user_id", u.ID))
	return u, nil
}

func (s *UserService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	u, err := s.store.Get(ctx, id)
	return u, mapNotFound(err, "user", id)
}

func (s *UserService) UpdateUser(ctx context.Context, id int64, in models.UserInput) (*models.User, error) {
	in, err := sanitizeUserInput(in)
	if err != nil {
		return nil, err
	}
	u, err := s.store.Update(ctx, id, in)
	if err != nil {
		return nil, mapNotFound(err, "user", id)
	}
	s.logger.Info("User updated successfully", zap.Int64("user_id", id))
	return u, nil
}

func (s *UserService) DeleteUser(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("User deleted", zap.Int64("user_id", id))
	return nil
}

// sanitizeUserInput trims fields and rejects injection-looking values.
func sanitizeUserInput(in models.UserInput) (models.UserInput, error) {
	for _, f := range []**string{&in.Username, &in.Email} {
		if *f == nil {
			continue
		}
		if util.ContainsSuspicious(**f) {
			return in, fmt.Errorf("user field: %w", ErrInvalidInput)
		}
		v := strings.TrimSpace(**f)
		*f = &v
	}
	if in.Email != nil && *in.Email != "" && !strings.Contains(*in.Email, "@") {
		return in, fmt.Errorf("email %q: %w", *in.Email, ErrInvalidInput)
	}
	return in, nil
}

func mapNotFound(err error, what string, id int64) error {
	if errors.Is(err, postgres.ErrNotFound) {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	return err
}
