package repository

import (
	"context"

	"go.uber.org/zap"

	"brokenweave/internal/model"
	"brokenweave/pkg/db"
)

type StoryRepository struct {
	db     db.Querier
	logger *zap.Logger
}

func NewStoryRepository(q db.Querier, logger *zap.Logger) *StoryRepository {
	return &StoryRepository{db: q, logger: logger}
}

const storyColumns = `id, title, description, content, category, is_published, created_by, created_at, updated_at`

func (r *StoryRepository) Create(ctx context.Context, s *model.SuccessStory) error {
	r.logger.Debug("Inserting success story", zap.String("title", s.Title))

	query := `
        INSERT INTO success_stories (title, description, content, category, is_published, created_by)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at, updated_at
    `
	err := r.db.QueryRow(ctx, query, s.Title, s.Description, s.Content, s.Category, s.IsPublished, s.CreatedBy).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to insert success story", zap.Error(err))
		return err
	}

	r.logger.Info("Success story inserted successfully", zap.Int64("id", s.ID))
	return nil
}

// Update overwrites the editable fields of s.ID and refreshes updated_at.
func (r *StoryRepository) Update(ctx context.Context, s *model.SuccessStory) error {
	query := `
        UPDATE success_stories
        SET title = $1, description = $2, content = $3, category = $4, is_published = $5, updated_at = NOW()
        WHERE id = $6
        RETURNING created_by, created_at, updated_at
    `
	err := r.db.QueryRow(ctx, query, s.Title, s.Description, s.Content, s.Category, s.IsPublished, s.ID).
		Scan(&s.CreatedBy, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		err = translate(err)
		if err != ErrNotFound {
			r.logger.Error("Failed to update success story", zap.Int64("id", s.ID), zap.Error(err))
		}
		return err
	}
	return nil
}

func (r *StoryRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM success_stories WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete success story", zap.Int64("id", id), zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	r.logger.Info("Success story deleted", zap.Int64("id", id))
	return nil
}

// List returns stories newest first; publishedOnly hides drafts.
func (r *StoryRepository) List(ctx context.Context, publishedOnly bool) ([]model.SuccessStory, error) {
	query := `SELECT ` + storyColumns + ` FROM success_stories`
	if publishedOnly {
		query += ` WHERE is_published`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list success stories", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	out := []model.SuccessStory{}
	for rows.Next() {
		var s model.SuccessStory
		if err := rows.Scan(&s.ID, &s.Title, &s.Description, &s.Content, &s.Category,
			&s.IsPublished, &s.CreatedBy, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
