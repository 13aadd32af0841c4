package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"brokenweave/internal/model"
	"brokenweave/internal/session"
	"brokenweave/internal/validate"
	"brokenweave/pkg/logger"
	"brokenweave/pkg/metrics"
	"brokenweave/pkg/rbac"
)

type DonationService struct {
	donations DonationStore
	validator *validate.Validator
	effects   Effects
	notifier  Notifier
	logger    *zap.Logger
}

func NewDonationService(donations DonationStore, v *validate.Validator, effects Effects, notifier Notifier, logger *zap.Logger) *DonationService {
	return &DonationService{donations: donations, validator: v, effects: effects, notifier: notifier, logger: logger}
}

// Create records a donation pledge. Nothing is written when validation fails.
func (s *DonationService) Create(ctx context.Context, sess *session.Session, in DonationInput) (*model.Donation, error) {
	if err := Authorize(sess, rbac.PermissionDonate); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(in); err != nil {
		metrics.IncrementFormSubmission("donation", "invalid")
		return nil, err
	}

	d := &model.Donation{
		Name:    strings.TrimSpace(in.Name),
		Email:   strings.TrimSpace(in.Email),
		Message: strings.TrimSpace(in.Message),
	}
	if err := s.donations.Create(ctx, d); err != nil {
		metrics.IncrementFormSubmission("donation", "error")
		return nil, err
	}
	metrics.IncrementFormSubmission("donation", "ok")

	notifyAsync(ctx, s.effects, s.notifier, model.AdminNotification{
		Title:   "New donation",
		Message: fmt.Sprintf("%s (%s) submitted a donation.", d.Name, d.Email),
		Type:    model.NotificationDonation,
		UserID:  sess.UserID,
	})

	logger.WithTrace(ctx, s.logger).Info("Donation recorded", zap.Int64("donation_id", d.ID))
	return d, nil
}

func (s *DonationService) List(ctx context.Context) ([]model.Donation, error) {
	return s.donations.List(ctx)
}

type VolunteerService struct {
	volunteers VolunteerStore
	validator  *validate.Validator
	effects    Effects
	notifier   Notifier
	logger     *zap.Logger
}

func NewVolunteerService(volunteers VolunteerStore, v *validate.Validator, effects Effects, notifier Notifier, logger *zap.Logger) *VolunteerService {
	return &VolunteerService{volunteers: volunteers, validator: v, effects: effects, notifier: notifier, logger: logger}
}

func (s *VolunteerService) Create(ctx context.Context, sess *session.Session, in VolunteerInput) (*model.Volunteer, error) {
	if err := Authorize(sess, rbac.PermissionVolunteer); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(in); err != nil {
		metrics.IncrementFormSubmission("volunteer", "invalid")
		return nil, err
	}

	v := &model.Volunteer{
		Name:         strings.TrimSpace(in.Name),
		Email:        strings.TrimSpace(in.Email),
		Phone:        strings.TrimSpace(in.Phone),
		Skills:       strings.TrimSpace(in.Skills),
		Availability: strings.TrimSpace(in.Availability),
		Message:      strings.TrimSpace(in.Message),
	}
	if err := s.volunteers.Create(ctx, v); err != nil {
		metrics.IncrementFormSubmission("volunteer", "error")
		return nil, err
	}
	metrics.IncrementFormSubmission("volunteer", "ok")

	notifyAsync(ctx, s.effects, s.notifier, model.AdminNotification{
		Title:   "New volunteer",
		Message: fmt.Sprintf("%s (%s) signed up to volunteer.", v.Name, v.Email),
		Type:    model.NotificationVolunteer,
		UserID:  sess.UserID,
	})

	logger.WithTrace(ctx, s.logger).Info("Volunteer registered", zap.Int64("volunteer_id", v.ID))
	return v, nil
}

func (s *VolunteerService) List(ctx context.Context, f ListFilter) ([]model.Volunteer, error) {
	if err := s.validator.Struct(f); err != nil {
		return nil, err
	}
	volunteers, err := s.volunteers.List(ctx)
	if err != nil {
		return nil, err
	}
	return FilterVolunteers(volunteers, f), nil
}
