package repository

import (
	"context"

	"go.uber.org/zap"

	"brokenweave/internal/model"
	"brokenweave/pkg/db"
)

type UserRepository struct {
	db     db.Querier
	logger *zap.Logger
}

func NewUserRepository(q db.Querier, logger *zap.Logger) *UserRepository {
	return &UserRepository{db: q, logger: logger}
}

const userColumns = `id, username, email, password_hash, is_admin, created_at`

// Create inserts u and fills its id and created_at. Returns ErrDuplicate when
// the username or email is taken.
func (r *UserRepository) Create(ctx context.Context, u *model.User) error {
	r.logger.Debug("Inserting user", zap.String("username", u.Username))

	query := `
        INSERT INTO users (username, email, password_hash, is_admin)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at
    `
	err := r.db.QueryRow(ctx, query, u.Username, u.Email, u.PasswordHash, u.IsAdmin).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		err = translate(err)
		if err != ErrDuplicate {
			r.logger.Error("Failed to insert user", zap.Error(err))
		}
		return err
	}

	r.logger.Info("User inserted successfully", zap.Int64("id", u.ID))
	return nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	return r.findOne(ctx, query, email)
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.findOne(ctx, query, id)
}

func (r *UserRepository) List(ctx context.Context) ([]model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list users", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt); err != nil {
			r.logger.Error("Failed to scan user", zap.Error(err))
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ToggleAdmin flips is_admin and returns the new value.
func (r *UserRepository) ToggleAdmin(ctx context.Context, id int64) (bool, error) {
	var isAdmin bool
	err := r.db.QueryRow(ctx, `UPDATE users SET is_admin = NOT is_admin WHERE id = $1 RETURNING is_admin`, id).Scan(&isAdmin)
	if err != nil {
		return false, translate(err)
	}
	r.logger.Info("User admin flag toggled", zap.Int64("id", id), zap.Bool("is_admin", isAdmin))
	return isAdmin, nil
}

func (r *UserRepository) findOne(ctx context.Context, query string, arg any) (*model.User, error) {
	var u model.User
	err := r.db.QueryRow(ctx, query, arg).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}
