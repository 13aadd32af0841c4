package repository

import (
	"context"

	"go.uber.org/zap"

	"brokenweave/internal/model"
	"brokenweave/pkg/db"
)

type DonationRepository struct {
	db     db.Querier
	logger *zap.Logger
}

func NewDonationRepository(q db.Querier, logger *zap.Logger) *DonationRepository {
	return &DonationRepository{db: q, logger: logger}
}

func (r *DonationRepository) Create(ctx context.Context, d *model.Donation) error {
	r.logger.Debug("Inserting donation inquiry", zap.String("email", d.Email))

	query := `
        INSERT INTO donations (name, email, message)
        VALUES ($1, $2, $3)
        RETURNING id, created_at
    `
	if err := r.db.QueryRow(ctx, query, d.Name, d.Email, d.Message).Scan(&d.ID, &d.CreatedAt); err != nil {
		r.logger.Error("Failed to insert donation inquiry", zap.Error(err))
		return err
	}

	r.logger.Info("Donation inquiry inserted successfully", zap.Int64("id", d.ID))
	return nil
}

func (r *DonationRepository) List(ctx context.Context) ([]model.Donation, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, email, message, created_at FROM donations ORDER BY created_at DESC`)
	if err != nil {
		r.logger.Error("Failed to list donations", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	out := []model.Donation{}
	for rows.Next() {
		var d model.Donation
		if err := rows.Scan(&d.ID, &d.Name, &d.Email, &d.Message, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

type VolunteerRepository struct {
	db     db.Querier
	logger *zap.Logger
}

func NewVolunteerRepository(q db.Querier, logger *zap.Logger) *VolunteerRepository {
	return &VolunteerRepository{db: q, logger: logger}
}

func (r *VolunteerRepository) Create(ctx context.Context, v *model.Volunteer) error {
	r.logger.Debug("Inserting volunteer", zap.String("email", v.Email))

	query := `
        INSERT INTO volunteers (name, email, phone, skills, availability, message)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, registered_at
    `
	err := r.db.QueryRow(ctx, query, v.Name, v.Email, v.Phone, v.Skills, v.Availability, v.Message).
		Scan(&v.ID, &v.RegisteredAt)
	if err != nil {
		r.logger.Error("Failed to insert volunteer", zap.Error(err))
		return err
	}

	r.logger.Info("Volunteer inserted successfully", zap.Int64("id", v.ID))
	return nil
}

func (r *VolunteerRepository) List(ctx context.Context) ([]model.Volunteer, error) {
	query := `
        SELECT id, name, email, phone, skills, availability, message, registered_at
        FROM volunteers
        ORDER BY registered_at DESC
    `
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list volunteers", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	out := []model.Volunteer{}
	for rows.Next() {
		var v model.Volunteer
		if err := rows.Scan(&v.ID, &v.Name, &v.Email, &v.Phone, &v.Skills, &v.Availability, &v.Message, &v.RegisteredAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

type SearchQueryRepository struct {
	db     db.Querier
	logger *zap.Logger
}

func NewSearchQueryRepository(q db.Querier, logger *zap.Logger) *SearchQueryRepository {
	return &SearchQueryRepository{db: q, logger: logger}
}

func (r *SearchQueryRepository) Insert(ctx context.Context, q *model.SearchQuery) error {
	query := `
        INSERT INTO search_queries (search_term, age_range, location, category, user_ip)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, searched_at
    `
	return r.db.QueryRow(ctx, query, q.SearchTerm, q.AgeRange, q.Location, q.Category, q.UserIP).
		Scan(&q.ID, &q.SearchedAt)
}
