// Package service holds the application use cases behind the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"

	"brokenweave/internal/model"
	"brokenweave/internal/repository"
	"brokenweave/internal/search"
	"brokenweave/internal/session"
	"brokenweave/pkg/rbac"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = repository.ErrNotFound
	ErrDuplicate          = repository.ErrDuplicate
)

type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id int64) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	ToggleAdmin(ctx context.Context, id int64) (bool, error)
}

type MissingPersonStore interface {
	Create(ctx context.Context, p *model.MissingPerson) error
	GetByID(ctx context.Context, id int64) (*model.MissingPerson, error)
	Search(ctx context.Context, q search.Query) ([]model.MissingPerson, error)
	ListAll(ctx context.Context) ([]model.MissingPerson, error)
	UpdateCaseState(ctx context.Context, id int64, state model.CaseState) error
}

type DonationStore interface {
	Create(ctx context.Context, d *model.Donation) error
	List(ctx context.Context) ([]model.Donation, error)
}

type VolunteerStore interface {
	Create(ctx context.Context, v *model.Volunteer) error
	List(ctx context.Context) ([]model.Volunteer, error)
}

type StoryStore interface {
	Create(ctx context.Context, s *model.SuccessStory) error
	Update(ctx context.Context, s *model.SuccessStory) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, publishedOnly bool) ([]model.SuccessStory, error)
}

type SearchQueryStore interface {
	Insert(ctx context.Context, q *model.SearchQuery) error
}

// Notifier records an admin notification.
type Notifier interface {
	Notify(ctx context.Context, n *model.AdminNotification) error
}

// Effects runs best-effort work after a primary write.
type Effects interface {
	Go(ctx context.Context, name string, fn func(context.Context) error)
}

// Authorize checks that sess holds permission.
func Authorize(sess *session.Session, permission string) error {
	role := rbac.RoleGuest
	if sess != nil && sess.UserID != nil {
		role = rbac.RoleOf(sess.Guest, sess.IsAdmin)
	}
	if err := rbac.CheckPermission(role, permission); err != nil {
		return fmt.Errorf("%w: %v", ErrForbidden, err)
	}
	return nil
}

func notifyAsync(ctx context.Context, effects Effects, notifier Notifier, n model.AdminNotification) {
	if effects == nil || notifier == nil {
		return
	}
	effects.Go(ctx, "notify_"+string(n.Type), func(ctx context.Context) error {
		return notifier.Notify(ctx, &n)
	})
}
