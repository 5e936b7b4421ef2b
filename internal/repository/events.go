package repository

import (
	"context"
	"database/sql"
	"fmt"

	"ticketer/internal/database"
	apperrors "ticketer/internal/errors"
	"ticketer/internal/models"
)

// EventRepository is the read-only event directory the settlement engine
// consults for organizer ids and fee policies.
type EventRepository struct {
	db *database.DB
}

func NewEventRepository(db *database.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) GetByID(ctx context.Context, id string) (*models.Event, error) {
	event := &models.Event{}
	query := `
		SELECT id, name, organizer_id, date, is_active,
		       primary_fee_bps, resale_fee_bps, royalty_fee_bps, created_at
		FROM events
		WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&event.ID,
		&event.Name,
		&event.OrganizerID,
		&event.Date,
		&event.IsActive,
		&event.PrimaryFeeBps,
		&event.ResaleFeeBps,
		&event.RoyaltyFeeBps,
		&event.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("event %s: %w", id, apperrors.ErrNotFound)
	}
	return event, err
}
