package repository

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"

	"ticketer/internal/database"
	apperrors "ticketer/internal/errors"
	"ticketer/internal/models"

	"github.com/lib/pq"
)

const uniqueViolation = pq.ErrorCode("23505")

// maxCodeAttempts bounds the regenerate-on-collision loop for ticket codes.
// The collision probability per attempt is ~n/2^40.
const maxCodeAttempts = 5

type TicketRepository struct {
	db *database.DB
}

func NewTicketRepository(db *database.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

// GenerateCode produces a ticket code of the form TCK-XXXXXXXXXX.
func GenerateCode() string {
	buf := make([]byte, 5)
	rand.Read(buf)
	return "TCK-" + strings.ToUpper(hex.EncodeToString(buf))
}

// Mint atomically increments a category's minted count and creates count
// tickets owned by ownerID. The capacity guard lives in the UPDATE itself,
// so concurrent mints near capacity cannot overshoot maxTickets.
func (r *TicketRepository) Mint(ctx context.Context, q database.Querier, categoryID, eventID, ownerID string, count int) ([]models.Ticket, error) {
	result, err := q.ExecContext(ctx, `
		UPDATE ticket_categories
		SET minted = minted + $2
		WHERE id = $1 AND minted + $2 <= max_tickets`,
		categoryID, count)
	if err != nil {
		return nil, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, fmt.Errorf("category %s: %w", categoryID, apperrors.ErrCapacityExceeded)
	}

	tickets := make([]models.Ticket, 0, count)
	for i := 0; i < count; i++ {
		ticket, err := r.insertWithUniqueCode(ctx, q, categoryID, eventID, ownerID)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, *ticket)
	}
	return tickets, nil
}

// insertWithUniqueCode creates one ticket, regenerating the code if the
// unique constraint reports a collision.
func (r *TicketRepository) insertWithUniqueCode(ctx context.Context, q database.Querier, categoryID, eventID, ownerID string) (*models.Ticket, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		ticket := &models.Ticket{
			Code:       GenerateCode(),
			EventID:    eventID,
			CategoryID: categoryID,
			OwnerID:    ownerID,
		}
		err := q.QueryRowContext(ctx, `
			INSERT INTO tickets (code, event_id, ticket_category_id, owner_id)
			VALUES ($1, $2, $3, $4)
			RETURNING id, created_at, updated_at`,
			ticket.Code, eventID, categoryID, ownerID,
		).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)

		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == uniqueViolation {
			continue
		}
		if err != nil {
			return nil, err
		}
		return ticket, nil
	}
	return nil, fmt.Errorf("failed to generate a unique ticket code after %d attempts", maxCodeAttempts)
}

// Unmint is the compensating action for Mint when the gateway initiate call
// fails: no money has moved yet, so the tickets are deleted and the minted
// count restored.
func (r *TicketRepository) Unmint(ctx context.Context, q database.Querier, categoryID string, ticketIDs []string) error {
	if len(ticketIDs) == 0 {
		return nil
	}
	if _, err := q.ExecContext(ctx,
		`DELETE FROM tickets WHERE id = ANY($1)`, pq.Array(ticketIDs)); err != nil {
		return err
	}
	_, err := q.ExecContext(ctx, `
		UPDATE ticket_categories
		SET minted = minted - $2
		WHERE id = $1`,
		categoryID, len(ticketIDs))
	return err
}

// GetByIDsForUpdate reads tickets by id, locking their rows so concurrent
// resale settlements racing for the same ticket serialize. Missing ids yield
// ErrNotFound.
func (r *TicketRepository) GetByIDsForUpdate(ctx context.Context, q database.Querier, ids []string) ([]models.Ticket, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, code, event_id, ticket_category_id, owner_id, is_used, is_listed,
		       resale_price, resale_count, sold_to, bank_code, account_number,
		       created_at, updated_at
		FROM tickets
		WHERE id = ANY($1)
		FOR UPDATE`,
		pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tickets, err := scanTickets(rows)
	if err != nil {
		return nil, err
	}
	if len(tickets) != len(ids) {
		return nil, fmt.Errorf("one or more tickets missing: %w", apperrors.ErrNotFound)
	}
	return tickets, nil
}

// TransferOwnership moves a listed ticket to a buyer: clears the listing and
// payout fields, records soldTo, bumps resaleCount and reissues the code so
// a stale QR cannot be reused after resale.
func (r *TicketRepository) TransferOwnership(ctx context.Context, q database.Querier, ticketID, toUserID, newCode string) error {
	result, err := q.ExecContext(ctx, `
		UPDATE tickets
		SET owner_id = $2,
		    sold_to = $2,
		    code = $3,
		    is_listed = FALSE,
		    resale_price = NULL,
		    bank_code = NULL,
		    account_number = NULL,
		    resale_count = resale_count + 1,
		    updated_at = NOW()
		WHERE id = $1 AND is_listed`,
		ticketID, toUserID, newCode)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		// Distinguish a missing ticket from one that is simply not listed.
		var exists bool
		if err := q.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM tickets WHERE id = $1)`, ticketID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("ticket %s: %w", ticketID, apperrors.ErrNotFound)
		}
		return fmt.Errorf("ticket %s is not listed for resale: %w", ticketID, apperrors.ErrPermission)
	}
	return nil
}

// ListForResale marks the seller's tickets as listed at the given price and
// captures the payout destination. Each ticket must be owned by the seller,
// unused, unlisted, and never resold before (resale is capped at one per
// ticket). All listings succeed or none do.
func (r *TicketRepository) ListForResale(ctx context.Context, ticketIDs []string, sellerID string, price int64, bankCode, accountNumber string) ([]models.Ticket, error) {
	var updated []models.Ticket
	err := r.db.WithinTx(ctx, func(tx *sql.Tx) error {
		tickets, err := r.GetByIDsForUpdate(ctx, tx, ticketIDs)
		if err != nil {
			return err
		}
		for _, ticket := range tickets {
			switch {
			case ticket.OwnerID != sellerID:
				return fmt.Errorf("ticket %s is not owned by seller: %w", ticket.ID, apperrors.ErrPermission)
			case ticket.IsUsed:
				return fmt.Errorf("ticket %s already used: %w", ticket.ID, apperrors.ErrInvariantViolation)
			case ticket.IsListed:
				return fmt.Errorf("ticket %s already listed: %w", ticket.ID, apperrors.ErrInvariantViolation)
			case ticket.ResaleCount >= 1:
				return fmt.Errorf("ticket %s can only be resold once: %w", ticket.ID, apperrors.ErrInvariantViolation)
			}
		}

		for i := range tickets {
			err := tx.QueryRowContext(ctx, `
				UPDATE tickets
				SET is_listed = TRUE,
				    resale_price = $2,
				    bank_code = $3,
				    account_number = $4,
				    updated_at = NOW()
				WHERE id = $1
				RETURNING is_listed, resale_price, updated_at`,
				tickets[i].ID, price, bankCode, accountNumber,
			).Scan(&tickets[i].IsListed, &tickets[i].ResalePrice, &tickets[i].UpdatedAt)
			if err != nil {
				return err
			}
		}
		updated = tickets
		return nil
	})
	return updated, err
}

// Delist removes a resale listing. Payout details are cleared together with
// the listing; a later relist must re-enter them.
func (r *TicketRepository) Delist(ctx context.Context, ticketID, sellerID string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE tickets
		SET is_listed = FALSE,
		    resale_price = NULL,
		    bank_code = NULL,
		    account_number = NULL,
		    updated_at = NOW()
		WHERE id = $1 AND owner_id = $2 AND is_listed`,
		ticketID, sellerID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("ticket %s not listed by seller: %w", ticketID, apperrors.ErrNotFound)
	}
	return nil
}

// MarkUsed flips a ticket's one-way used flag.
func (r *TicketRepository) MarkUsed(ctx context.Context, ticketID string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE tickets SET is_used = TRUE, updated_at = NOW() WHERE id = $1 AND NOT is_used`,
		ticketID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("ticket %s missing or already used: %w", ticketID, apperrors.ErrInvariantViolation)
	}
	return nil
}

// GetByCode resolves a ticket by its externally meaningful code.
func (r *TicketRepository) GetByCode(ctx context.Context, code string) (*models.Ticket, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, code, event_id, ticket_category_id, owner_id, is_used, is_listed,
		       resale_price, resale_count, sold_to, bank_code, account_number,
		       created_at, updated_at
		FROM tickets
		WHERE code = $1`,
		code)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tickets, err := scanTickets(rows)
	if err != nil {
		return nil, err
	}
	if len(tickets) == 0 {
		return nil, fmt.Errorf("ticket code %s: %w", code, apperrors.ErrNotFound)
	}
	return &tickets[0], nil
}

// GetByOwner lists a user's tickets, newest first.
func (r *TicketRepository) GetByOwner(ctx context.Context, ownerID string) ([]models.Ticket, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, code, event_id, ticket_category_id, owner_id, is_used, is_listed,
		       resale_price, resale_count, sold_to, bank_code, account_number,
		       created_at, updated_at
		FROM tickets
		WHERE owner_id = $1
		ORDER BY created_at DESC`,
		ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

// GetCategory reads one ticket category.
func (r *TicketRepository) GetCategory(ctx context.Context, categoryID string) (*models.TicketCategory, error) {
	category := &models.TicketCategory{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, event_id, name, price, max_tickets, minted
		FROM ticket_categories
		WHERE id = $1`,
		categoryID,
	).Scan(&category.ID, &category.EventID, &category.Name, &category.Price, &category.MaxTickets, &category.Minted)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("ticket category %s: %w", categoryID, apperrors.ErrNotFound)
	}
	return category, err
}

func scanTickets(rows *sql.Rows) ([]models.Ticket, error) {
	var tickets []models.Ticket
	for rows.Next() {
		var t models.Ticket
		err := rows.Scan(
			&t.ID,
			&t.Code,
			&t.EventID,
			&t.CategoryID,
			&t.OwnerID,
			&t.IsUsed,
			&t.IsListed,
			&t.ResalePrice,
			&t.ResaleCount,
			&t.SoldTo,
			&t.BankCode,
			&t.AccountNumber,
			&t.CreatedAt,
			&t.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}
