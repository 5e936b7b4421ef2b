package repository

import (
	"ticketer/internal/database"
)

type Repositories struct {
	Transactions *TransactionRepository
	Wallets      *WalletRepository
	Tickets      *TicketRepository
	Events       *EventRepository
	Users        *UserRepository

	DB *database.DB
}

func NewRepositories(db *database.DB) *Repositories {
	return &Repositories{
		Transactions: NewTransactionRepository(db),
		Wallets:      NewWalletRepository(db),
		Tickets:      NewTicketRepository(db),
		Events:       NewEventRepository(db),
		Users:        NewUserRepository(db),
		DB:           db,
	}
}
