package repository

import (
	"context"
	"database/sql"
	"fmt"

	"ticketer/internal/database"
	apperrors "ticketer/internal/errors"
	"ticketer/internal/models"
)

type WalletRepository struct {
	db *database.DB
}

func NewWalletRepository(db *database.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

// Credit adds amount to a user's wallet, creating the wallet if the user has
// none yet. Covers the lazily-created platform admin wallet.
func (r *WalletRepository) Credit(ctx context.Context, q database.Querier, userID string, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("credit amount %d is negative: %w", amount, apperrors.ErrInvariantViolation)
	}
	query := `
		INSERT INTO wallets (user_id, balance) VALUES ($1, $2)
		ON CONFLICT (user_id)
		DO UPDATE SET balance = wallets.balance + EXCLUDED.balance, updated_at = NOW()`

	_, err := q.ExecContext(ctx, query, userID, amount)
	return err
}

// Debit subtracts amount from a wallet. The balance guard is part of the
// statement itself so a concurrent debit can never drive the balance
// negative; zero rows affected means insufficient funds (or no wallet).
func (r *WalletRepository) Debit(ctx context.Context, q database.Querier, userID string, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("debit amount %d is negative: %w", amount, apperrors.ErrInvariantViolation)
	}
	query := `
		UPDATE wallets
		SET balance = balance - $2, updated_at = NOW()
		WHERE user_id = $1 AND balance >= $2`

	result, err := q.ExecContext(ctx, query, userID, amount)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("wallet %s: %w", userID, apperrors.ErrInsufficientFunds)
	}
	return nil
}

// GetForUpdate locks a wallet row for the duration of the enclosing
// transaction. Used by withdrawals to serialize PIN and balance checks.
func (r *WalletRepository) GetForUpdate(ctx context.Context, q database.Querier, userID string) (*models.Wallet, error) {
	wallet := &models.Wallet{}
	query := `
		SELECT user_id, balance, pin_hash, updated_at
		FROM wallets
		WHERE user_id = $1
		FOR UPDATE`

	err := q.QueryRowContext(ctx, query, userID).Scan(
		&wallet.UserID,
		&wallet.Balance,
		&wallet.PinHash,
		&wallet.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("wallet %s: %w", userID, apperrors.ErrNotFound)
	}
	return wallet, err
}

// Get reads a wallet without locking.
func (r *WalletRepository) Get(ctx context.Context, userID string) (*models.Wallet, error) {
	wallet := &models.Wallet{}
	query := `SELECT user_id, balance, pin_hash, updated_at FROM wallets WHERE user_id = $1`

	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&wallet.UserID,
		&wallet.Balance,
		&wallet.PinHash,
		&wallet.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("wallet %s: %w", userID, apperrors.ErrNotFound)
	}
	return wallet, err
}

// SetPinHash sets or rotates the wallet PIN hash, creating the wallet if
// needed.
func (r *WalletRepository) SetPinHash(ctx context.Context, userID, pinHash string) error {
	query := `
		INSERT INTO wallets (user_id, balance, pin_hash) VALUES ($1, 0, $2)
		ON CONFLICT (user_id)
		DO UPDATE SET pin_hash = EXCLUDED.pin_hash, updated_at = NOW()`

	_, err := r.db.ExecContext(ctx, query, userID, pinHash)
	return err
}
