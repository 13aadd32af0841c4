package repository

import (
	"context"
	"time"

	"go.uber.org/zap"

	"brokenweave/internal/model"
	"brokenweave/internal/search"
	"brokenweave/pkg/db"
	"brokenweave/pkg/otel"
)

type MissingPersonRepository struct {
	db     db.Querier
	logger *zap.Logger
}

func NewMissingPersonRepository(q db.Querier, logger *zap.Logger) *MissingPersonRepository {
	return &MissingPersonRepository{db: q, logger: logger}
}

const missingPersonColumns = `id, name, dob, category, last_known_location, description,
       contact_info, image_url, case_state, reported_by, reported_at`

func (r *MissingPersonRepository) Create(ctx context.Context, p *model.MissingPerson) error {
	r.logger.Debug("Inserting missing person report",
		zap.String("category", string(p.Category)),
		zap.Int64p("reported_by", p.ReportedBy),
	)

	if p.CaseState == "" {
		p.CaseState = model.CaseMissing
	}
	query := `
        INSERT INTO missing_persons (name, dob, category, last_known_location, description,
                                     contact_info, image_url, case_state, reported_by)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING id, reported_at
    `
	err := otel.Observe(ctx, "insert", "missing_persons", func(ctx context.Context) error {
		return r.db.QueryRow(ctx, query,
			p.Name, p.DOB, string(p.Category), p.LastKnownLocation, p.Description,
			p.ContactInfo, p.ImageURL, string(p.CaseState), p.ReportedBy,
		).Scan(&p.ID, &p.ReportedAt)
	})
	if err != nil {
		r.logger.Error("Failed to insert missing person report", zap.Error(err))
		return err
	}

	r.logger.Info("Missing person report inserted successfully", zap.Int64("id", p.ID))
	return nil
}

func (r *MissingPersonRepository) GetByID(ctx context.Context, id int64) (*model.MissingPerson, error) {
	query := `SELECT ` + missingPersonColumns + ` FROM missing_persons WHERE id = $1`
	p, err := scanMissingPerson(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, translate(err)
	}
	return p, nil
}

// Search runs a composed query, newest report first.
func (r *MissingPersonRepository) Search(ctx context.Context, q search.Query) ([]model.MissingPerson, error) {
	r.logger.Debug("Searching missing persons", zap.String("where", q.Where), zap.Int("args", len(q.Args)))

	var out []model.MissingPerson
	err := otel.Observe(ctx, "select", "missing_persons", func(ctx context.Context) error {
		rows, err := r.db.Query(ctx, q.SQL(missingPersonColumns), q.Args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = []model.MissingPerson{}
		for rows.Next() {
			p, err := scanMissingPerson(rows)
			if err != nil {
				return err
			}
			out = append(out, *p)
		}
		return rows.Err()
	})
	if err != nil {
		r.logger.Error("Failed to search missing persons", zap.Error(err))
		return nil, err
	}
	return out, nil
}

// ListAll returns every report regardless of state, newest first.
func (r *MissingPersonRepository) ListAll(ctx context.Context) ([]model.MissingPerson, error) {
	return r.Search(ctx, search.Query{})
}

func (r *MissingPersonRepository) UpdateCaseState(ctx context.Context, id int64, state model.CaseState) error {
	tag, err := r.db.Exec(ctx, `UPDATE missing_persons SET case_state = $1 WHERE id = $2`, string(state), id)
	if err != nil {
		r.logger.Error("Failed to update case state", zap.Int64("id", id), zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	r.logger.Info("Case state updated", zap.Int64("id", id), zap.String("case_state", string(state)))
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMissingPerson(row rowScanner) (*model.MissingPerson, error) {
	var p model.MissingPerson
	var dob *time.Time
	var category, state string
	err := row.Scan(&p.ID, &p.Name, &dob, &category, &p.LastKnownLocation, &p.Description,
		&p.ContactInfo, &p.ImageURL, &state, &p.ReportedBy, &p.ReportedAt)
	if err != nil {
		return nil, err
	}
	p.DOB = dob
	p.Category = model.Category(category)
	p.CaseState = model.CaseState(state)
	return &p, nil
}
