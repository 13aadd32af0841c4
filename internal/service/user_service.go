package service

import (
	"context"

	"go.uber.org/zap"

	"brokenweave/internal/model"
	"brokenweave/internal/session"
	"brokenweave/pkg/logger"
)

type UserService struct {
	users  UserStore
	logger *zap.Logger
}

func NewUserService(users UserStore, logger *zap.Logger) *UserService {
	return &UserService{users: users, logger: logger}
}

func (s *UserService) List(ctx context.Context, f ListFilter) ([]model.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	return FilterUsers(users, f), nil
}

// ToggleAdmin flips the admin flag of user id and returns the new value.
// An admin cannot revoke their own flag.
func (s *UserService) ToggleAdmin(ctx context.Context, actor *session.Session, id int64) (bool, error) {
	if actor != nil && actor.UserID != nil && *actor.UserID == id {
		return false, ErrForbidden
	}
	isAdmin, err := s.users.ToggleAdmin(ctx, id)
	if err != nil {
		return false, err
	}
	logger.WithTrace(ctx, s.logger).Info("Admin flag toggled",
		zap.Int64("user_id", id),
		zap.Bool("is_admin", isAdmin),
	)
	return isAdmin, nil
}
