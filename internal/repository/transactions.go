package repository

import (
	"context"
	"database/sql"
	"fmt"

	"ticketer/internal/database"
	apperrors "ticketer/internal/errors"
	"ticketer/internal/models"

	"github.com/lib/pq"
)

type TransactionRepository struct {
	db *database.DB
}

func NewTransactionRepository(db *database.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// CreatePending inserts a new PENDING transaction. The reference is the
// caller-assigned idempotency key; a duplicate yields ErrConflict.
func (r *TransactionRepository) CreatePending(ctx context.Context, q database.Querier, txn *models.Transaction) error {
	query := `
		INSERT INTO transactions (reference, type, status, amount, event_id, user_id)
		VALUES ($1, $2, 'PENDING', $3, $4, $5)
		RETURNING id, status, created_at`

	err := q.QueryRowContext(ctx, query,
		txn.Reference,
		txn.Type,
		txn.Amount,
		txn.EventID,
		txn.UserID,
	).Scan(&txn.ID, &txn.Status, &txn.CreatedAt)

	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == uniqueViolation {
		return fmt.Errorf("reference %s: %w", txn.Reference, apperrors.ErrConflict)
	}
	return err
}

// LockAndRead acquires the row lock for a reference and returns the
// transaction. Concurrent settlement attempts for the same reference
// serialize here. Must be called inside the settlement's atomic unit.
func (r *TransactionRepository) LockAndRead(ctx context.Context, q database.Querier, reference string) (*models.Transaction, error) {
	txn := &models.Transaction{}
	query := `
		SELECT id, reference, type, status, amount, event_id, user_id, created_at
		FROM transactions
		WHERE reference = $1
		FOR UPDATE`

	err := q.QueryRowContext(ctx, query, reference).Scan(
		&txn.ID,
		&txn.Reference,
		&txn.Type,
		&txn.Status,
		&txn.Amount,
		&txn.EventID,
		&txn.UserID,
		&txn.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("transaction %s: %w", reference, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	txn.TicketIDs, err = r.ticketIDs(ctx, q, reference)
	return txn, err
}

// MarkSuccessIfPending flips PENDING to SUCCESS within the caller's lock
// scope. Returns true if this call performed the flip; false means the
// transaction was already SUCCESS and the caller must short-circuit.
func (r *TransactionRepository) MarkSuccessIfPending(ctx context.Context, q database.Querier, reference string) (bool, error) {
	query := `UPDATE transactions SET status = 'SUCCESS' WHERE reference = $1 AND status = 'PENDING'`

	result, err := q.ExecContext(ctx, query, reference)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// MarkFailed flips PENDING to FAILED. Used for withdrawals rejected by the
// payout rail; terminal states are never overwritten.
func (r *TransactionRepository) MarkFailed(ctx context.Context, reference string) error {
	query := `UPDATE transactions SET status = 'FAILED' WHERE reference = $1 AND status = 'PENDING'`
	_, err := r.db.ExecContext(ctx, query, reference)
	return err
}

// Delete removes a transaction. Only valid for pre-payment rollback, before
// a checkout URL was obtained.
func (r *TransactionRepository) Delete(ctx context.Context, q database.Querier, reference string) error {
	_, err := q.ExecContext(ctx, `DELETE FROM transactions WHERE reference = $1`, reference)
	return err
}

// LinkTickets associates initiation-time tickets with a transaction.
func (r *TransactionRepository) LinkTickets(ctx context.Context, q database.Querier, reference string, ticketIDs []string) error {
	for _, ticketID := range ticketIDs {
		query := `INSERT INTO transaction_tickets (transaction_reference, ticket_id) VALUES ($1, $2)`
		if _, err := q.ExecContext(ctx, query, reference, ticketID); err != nil {
			return fmt.Errorf("failed to link ticket %s: %w", ticketID, err)
		}
	}
	return nil
}

func (r *TransactionRepository) ticketIDs(ctx context.Context, q database.Querier, reference string) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT ticket_id FROM transaction_tickets WHERE transaction_reference = $1 ORDER BY id`,
		reference)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetByReference reads a transaction without locking it.
func (r *TransactionRepository) GetByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	txn := &models.Transaction{}
	query := `
		SELECT id, reference, type, status, amount, event_id, user_id, created_at
		FROM transactions
		WHERE reference = $1`

	err := r.db.QueryRowContext(ctx, query, reference).Scan(
		&txn.ID,
		&txn.Reference,
		&txn.Type,
		&txn.Status,
		&txn.Amount,
		&txn.EventID,
		&txn.UserID,
		&txn.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("transaction %s: %w", reference, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	txn.TicketIDs, err = r.ticketIDs(ctx, r.db, reference)
	return txn, err
}

// GetByUserID lists a user's transactions, newest first.
func (r *TransactionRepository) GetByUserID(ctx context.Context, userID string) ([]models.Transaction, error) {
	query := `
		SELECT id, reference, type, status, amount, event_id, user_id, created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []models.Transaction
	for rows.Next() {
		var txn models.Transaction
		err := rows.Scan(
			&txn.ID,
			&txn.Reference,
			&txn.Type,
			&txn.Status,
			&txn.Amount,
			&txn.EventID,
			&txn.UserID,
			&txn.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}
	return txns, rows.Err()
}
