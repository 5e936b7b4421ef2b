package database

import (
	"fmt"
	"log/slog"
)

func (db *DB) RunMigrations() error {
	slog.Info("Running database migrations...")

	migrations := []string{
		createUsersTable,
		createEventsTable,
		createTicketCategoriesTable,
		createTicketsTable,
		createTransactionsTable,
		createTransactionTicketsTable,
		createWalletsTable,
		createTicketIndexes,
	}

	for i, migration := range migrations {
		slog.Info("Running migration", "step", i+1)
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	slog.Info("All migrations completed successfully")
	return nil
}

const createUsersTable = `
CREATE EXTENSION IF NOT EXISTS "uuid-ossp";
CREATE TABLE IF NOT EXISTS users (
    id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
    email VARCHAR(255) UNIQUE NOT NULL,
    name VARCHAR(255) NOT NULL,
    role VARCHAR(20) NOT NULL DEFAULT 'USER',
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);`

const createEventsTable = `
CREATE TABLE IF NOT EXISTS events (
    id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
    name VARCHAR(500) NOT NULL,
    organizer_id UUID NOT NULL REFERENCES users(id),
    date TIMESTAMP NOT NULL,
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    primary_fee_bps BIGINT NOT NULL DEFAULT 1000,
    resale_fee_bps BIGINT NOT NULL DEFAULT 500,
    royalty_fee_bps BIGINT NOT NULL DEFAULT 200,
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);`

const createTicketCategoriesTable = `
CREATE TABLE IF NOT EXISTS ticket_categories (
    id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
    event_id UUID NOT NULL REFERENCES events(id),
    name VARCHAR(100) NOT NULL,
    price BIGINT NOT NULL,
    max_tickets INTEGER NOT NULL,
    minted INTEGER NOT NULL DEFAULT 0,
    CONSTRAINT minted_within_capacity CHECK (minted >= 0 AND minted <= max_tickets)
);`

const createTicketsTable = `
CREATE TABLE IF NOT EXISTS tickets (
    id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
    code VARCHAR(20) UNIQUE NOT NULL,
    event_id UUID NOT NULL REFERENCES events(id),
    ticket_category_id UUID NOT NULL REFERENCES ticket_categories(id),
    owner_id UUID NOT NULL REFERENCES users(id),
    is_used BOOLEAN NOT NULL DEFAULT FALSE,
    is_listed BOOLEAN NOT NULL DEFAULT FALSE,
    resale_price BIGINT,
    resale_count INTEGER NOT NULL DEFAULT 0,
    sold_to UUID REFERENCES users(id),
    bank_code VARCHAR(20),
    account_number VARCHAR(32),
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW()
);`

const createTransactionsTable = `
CREATE TABLE IF NOT EXISTS transactions (
    id BIGSERIAL PRIMARY KEY,
    reference VARCHAR(100) UNIQUE NOT NULL,
    type VARCHAR(20) NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'PENDING',
    amount BIGINT NOT NULL,
    event_id UUID REFERENCES events(id),
    user_id UUID NOT NULL REFERENCES users(id),
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);`

const createTransactionTicketsTable = `
CREATE TABLE IF NOT EXISTS transaction_tickets (
    id BIGSERIAL PRIMARY KEY,
    transaction_reference VARCHAR(100) NOT NULL REFERENCES transactions(reference) ON DELETE CASCADE,
    ticket_id UUID NOT NULL REFERENCES tickets(id) ON DELETE CASCADE,
    UNIQUE (transaction_reference, ticket_id)
);`

const createWalletsTable = `
CREATE TABLE IF NOT EXISTS wallets (
    user_id UUID PRIMARY KEY REFERENCES users(id),
    balance BIGINT NOT NULL DEFAULT 0,
    pin_hash VARCHAR(100),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
    CONSTRAINT balance_non_negative CHECK (balance >= 0)
);`

const createTicketIndexes = `
CREATE INDEX IF NOT EXISTS idx_tickets_owner ON tickets(owner_id);
CREATE INDEX IF NOT EXISTS idx_tickets_listed ON tickets(event_id) WHERE is_listed;
CREATE INDEX IF NOT EXISTS idx_transactions_user ON transactions(user_id);`
