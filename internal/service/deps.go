package service

import (
	"context"
	"database/sql"

	"ticketer/internal/database"
	"ticketer/internal/external"
	"ticketer/internal/models"
)

// The services depend on the slices of the repository and gateway surface
// they actually touch. The concrete repository and external types satisfy
// these; tests substitute in-memory fakes.

type txRunner interface {
	WithinTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// dbHandle is a database handle usable both as an autocommit Querier and as
// a transaction runner.
type dbHandle interface {
	database.Querier
	txRunner
}

type ledgerStore interface {
	CreatePending(ctx context.Context, q database.Querier, txn *models.Transaction) error
	LockAndRead(ctx context.Context, q database.Querier, reference string) (*models.Transaction, error)
	MarkSuccessIfPending(ctx context.Context, q database.Querier, reference string) (bool, error)
	MarkFailed(ctx context.Context, reference string) error
	Delete(ctx context.Context, q database.Querier, reference string) error
	GetByReference(ctx context.Context, reference string) (*models.Transaction, error)
	GetByUserID(ctx context.Context, userID string) ([]models.Transaction, error)
}

type walletStore interface {
	Credit(ctx context.Context, q database.Querier, userID string, amount int64) error
	Debit(ctx context.Context, q database.Querier, userID string, amount int64) error
	Get(ctx context.Context, userID string) (*models.Wallet, error)
	GetForUpdate(ctx context.Context, q database.Querier, userID string) (*models.Wallet, error)
	SetPinHash(ctx context.Context, userID, pinHash string) error
}

type inventoryStore interface {
	GetByIDsForUpdate(ctx context.Context, q database.Querier, ids []string) ([]models.Ticket, error)
	TransferOwnership(ctx context.Context, q database.Querier, ticketID, toUserID, newCode string) error
	GetCategory(ctx context.Context, categoryID string) (*models.TicketCategory, error)
}

type eventDirectory interface {
	GetByID(ctx context.Context, id string) (*models.Event, error)
}

type userDirectory interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

type paymentVerifier interface {
	VerifyTransaction(ctx context.Context, reference string) (*external.VerifyResponse, error)
}

type checkoutInitiator interface {
	InitiatePayment(ctx context.Context, req external.InitiateRequest) (*external.InitiateResponse, error)
}

type payoutRail interface {
	Dispatch(ctx context.Context, reference string, amount int64, recipient *models.User, bankCode, accountNumber, narration string) (*external.PayoutResponse, error)
}

type eventPublisher interface {
	Publish(subject string, data interface{}) error
}
