package repository

import (
	"context"
	"database/sql"
	"fmt"

	"ticketer/internal/database"
	apperrors "ticketer/internal/errors"
	"ticketer/internal/models"
)

// UserRepository is the read-only user directory: buyer/seller/organizer
// details for payouts and notifications, and the platform admin account.
type UserRepository struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	user := &models.User{}
	query := `SELECT id, email, name, role, created_at FROM users WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.Role,
		&user.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %s: %w", id, apperrors.ErrNotFound)
	}
	return user, err
}
