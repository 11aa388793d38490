package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"restaurant-fulfillment/internal/domain/users"
	"restaurant-fulfillment/internal/ports"
	"restaurant-fulfillment/internal/shared/apperr"
)

// UsersRepo reads operator accounts for the auth service.
type UsersRepo struct{}

// NewUsersRepo constructs a new UsersRepo.
func NewUsersRepo() ports.UserRepository {
	return &UsersRepo{}
}

// GetByUsername loads a user by login name.
func (r *UsersRepo) GetByUsername(ctx context.Context, username string) (*users.User, error) {
	return r.get(ctx, `SELECT id, username, password_hash, created_at FROM users WHERE username = $1`, username)
}

// GetByID loads a user by id.
func (r *UsersRepo) GetByID(ctx context.Context, id string) (*users.User, error) {
	return r.get(ctx, `SELECT id, username, password_hash, created_at FROM users WHERE id = $1`, id)
}

func (r *UsersRepo) get(ctx context.Context, query, arg string) (*users.User, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var u users.User
	err = tx.QueryRow(ctx, query, arg).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("user not found")
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
