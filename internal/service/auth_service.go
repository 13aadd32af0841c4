package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"brokenweave/internal/model"
	"brokenweave/internal/repository"
	"brokenweave/internal/session"
	"brokenweave/internal/validate"
	"brokenweave/pkg/logger"
	"brokenweave/pkg/util"
)

// Sessions opens and closes sessions.
type Sessions interface {
	Start(ctx context.Context, u *model.User) (*session.Session, string, error)
	StartGuest(ctx context.Context) (*session.Session, string, error)
	End(ctx context.Context, sessionID string) error
}

// AuthResult is what login, register and guest access hand back to the client.
type AuthResult struct {
	Session *session.Session `json:"session"`
	Token   string           `json:"token"`
	User    *model.User      `json:"user,omitempty"`
}

type AuthService struct {
	users     UserStore
	sessions  Sessions
	validator *validate.Validator
	effects   Effects
	notifier  Notifier
	logger    *zap.Logger
	onLogout  []func(sessionID string)
}

func NewAuthService(users UserStore, sessions Sessions, v *validate.Validator, effects Effects, notifier Notifier, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:     users,
		sessions:  sessions,
		validator: v,
		effects:   effects,
		notifier:  notifier,
		logger:    logger,
	}
}

// OnLogout registers fn to run with the id of every ended session.
func (s *AuthService) OnLogout(fn func(sessionID string)) {
	s.onLogout = append(s.onLogout, fn)
}

// Register creates a member account and opens a session for it.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}

	hash, err := util.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	u := &model.User{
		Username:     strings.TrimSpace(in.Username),
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: username or email already registered", ErrDuplicate)
		}
		return nil, err
	}

	sess, token, err := s.sessions.Start(ctx, u)
	if err != nil {
		return nil, err
	}

	id := u.ID
	notifyAsync(ctx, s.effects, s.notifier, model.AdminNotification{
		Title:   "New user registered",
		Message: fmt.Sprintf("%s (%s) created an account.", u.Username, u.Email),
		Type:    model.NotificationRegistration,
		UserID:  &id,
	})

	logger.WithTrace(ctx, s.logger).Info("User registered", zap.Int64("user_id", u.ID))
	return &AuthResult{Session: sess, Token: token, User: u}, nil
}

// Login checks the credentials and opens a session.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}

	u, err := s.users.FindByEmail(ctx, strings.TrimSpace(in.Email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !util.CheckPassword(in.Password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	sess, token, err := s.sessions.Start(ctx, u)
	if err != nil {
		return nil, err
	}

	id := u.ID
	notifyAsync(ctx, s.effects, s.notifier, model.AdminNotification{
		Title:   "User logged in",
		Message: fmt.Sprintf("%s signed in.", u.Username),
		Type:    model.NotificationLogin,
		UserID:  &id,
	})

	logger.WithTrace(ctx, s.logger).Info("User logged in", zap.Int64("user_id", u.ID))
	return &AuthResult{Session: sess, Token: token, User: u}, nil
}

func (s *AuthService) Guest(ctx context.Context) (*AuthResult, error) {
	sess, token, err := s.sessions.StartGuest(ctx)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Session: sess, Token: token}, nil
}

// Logout ends the session and runs the logout hooks.
func (s *AuthService) Logout(ctx context.Context, sess *session.Session) error {
	if sess == nil {
		return session.ErrNoSession
	}
	if err := s.sessions.End(ctx, sess.ID); err != nil {
		return err
	}
	for _, fn := range s.onLogout {
		fn(sess.ID)
	}
	return nil
}
