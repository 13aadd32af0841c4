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

type ReportService struct {
	reports   MissingPersonStore
	validator *validate.Validator
	effects   Effects
	notifier  Notifier
	logger    *zap.Logger
}

func NewReportService(reports MissingPersonStore, v *validate.Validator, effects Effects, notifier Notifier, logger *zap.Logger) *ReportService {
	return &ReportService{reports: reports, validator: v, effects: effects, notifier: notifier, logger: logger}
}

// Create files a missing-person report on behalf of a member.
func (s *ReportService) Create(ctx context.Context, sess *session.Session, in ReportInput) (*model.MissingPerson, error) {
	if err := Authorize(sess, rbac.PermissionReport); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(in); err != nil {
		metrics.IncrementFormSubmission("report", "invalid")
		return nil, err
	}

	dob, err := validate.ParseDate(in.DOB)
	if err != nil {
		return nil, validate.Field("dob", "dob must be a date (YYYY-MM-DD) not in the future")
	}
	category, err := model.ParseCategory(in.Category)
	if err != nil {
		return nil, validate.Field("category", err.Error())
	}

	p := &model.MissingPerson{
		Name:              strings.TrimSpace(in.Name),
		DOB:               dob,
		Category:          category,
		LastKnownLocation: strings.TrimSpace(in.LastKnownLocation),
		Description:       strings.TrimSpace(in.Description),
		ContactInfo:       model.FormatContactInfo(in.ContactName, in.ContactPhone, in.ContactEmail),
		ImageURL:          strings.TrimSpace(in.ImageURL),
		CaseState:         model.CaseMissing,
		ReportedBy:        sess.UserID,
	}
	if err := s.reports.Create(ctx, p); err != nil {
		metrics.IncrementFormSubmission("report", "error")
		return nil, err
	}
	metrics.IncrementFormSubmission("report", "ok")

	notifyAsync(ctx, s.effects, s.notifier, model.AdminNotification{
		Title:   "New missing person report",
		Message: fmt.Sprintf("%s reported %s (%s) missing.", sess.Username, p.Name, p.Category),
		Type:    model.NotificationReport,
		UserID:  sess.UserID,
	})

	logger.WithTrace(ctx, s.logger).Info("Missing person reported", zap.Int64("report_id", p.ID))
	return p, nil
}

func (s *ReportService) Get(ctx context.Context, id int64) (*model.MissingPerson, error) {
	return s.reports.GetByID(ctx, id)
}

// ListAll returns every report, including reunited ones, narrowed by f.
func (s *ReportService) ListAll(ctx context.Context, f ListFilter) ([]model.MissingPerson, error) {
	if err := s.validator.Struct(f); err != nil {
		return nil, err
	}
	reports, err := s.reports.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return FilterReports(reports, f), nil
}

// UpdateState moves a report to a new case state.
func (s *ReportService) UpdateState(ctx context.Context, id int64, in CaseStateInput) error {
	if err := s.validator.Struct(in); err != nil {
		return err
	}
	state, err := model.ParseCaseState(in.State)
	if err != nil {
		return validate.Field("state", err.Error())
	}
	if err := s.reports.UpdateCaseState(ctx, id, state); err != nil {
		return err
	}
	logger.WithTrace(ctx, s.logger).Info("Case state updated",
		zap.Int64("report_id", id),
		zap.String("state", string(state)),
	)
	return nil
}
