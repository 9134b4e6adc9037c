package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"eli-dashboard/internal/models"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) List(ctx context.Context) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, username, email FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	out := []models.User{}
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *UserRepository) Create(ctx context.Context, in models.UserInput) (*models.User, error) {
	const q = `INSERT INTO users (username, email) VALUES ($1, $2) RETURNING id, username, email`
	return r.scanOne(ctx, "create user", q, in.Username, in.Email)
}

func (r *UserRepository) Get(ctx context.Context, id int64) (*models.User, error) {
	const q = `SELECT id, username, email FROM users WHERE id = $1`
	return r.scanOne(ctx, "get user", q, id)
}

// Update overwrites both fields; ErrNotFound when id does not exist.
func (r *UserRepository) Update(ctx context.Context, id int64, in models.UserInput) (*models.User, error) {
	const q = `UPDATE users SET username = $1, email = $2 WHERE id = $3 RETURNING id, username, email`
	return r.scanOne(ctx, "update user", q, in.Username, in.Email, id)
}

func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	return nil
}

func (r *UserRepository) scanOne(ctx context.Context, op, q string, args ...any) (*models.User, error) {
	var u models.User
	err := r.db.QueryRowContext(ctx, q, args...).Scan(&u.ID, &u.Username, &u.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &u, nil
}
