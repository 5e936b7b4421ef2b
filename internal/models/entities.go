package models

import (
	"time"
)

// Transaction types. FUND and WITHDRAW move wallet money; PURCHASE and
// RESALE additionally move ticket inventory.
const (
	TransactionPurchase = "PURCHASE"
	TransactionResale   = "RESALE"
	TransactionFund     = "FUND"
	TransactionWithdraw = "WITHDRAW"
)

// Transaction statuses. PENDING may move to SUCCESS or FAILED, never back.
const (
	StatusPending = "PENDING"
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

// User roles.
const (
	RoleUser      = "USER"
	RoleOrganizer = "ORGANIZER"
	RoleAdmin     = "ADMIN"
)

// User represents a user in the system.
type User struct {
	ID        string    `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Name      string    `json:"name" db:"name"`
	Role      string    `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Event represents an event with its per-event fee policy in basis points.
type Event struct {
	ID            string    `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	OrganizerID   string    `json:"organizer_id" db:"organizer_id"`
	Date          time.Time `json:"date" db:"date"`
	IsActive      bool      `json:"is_active" db:"is_active"`
	PrimaryFeeBps int64     `json:"primary_fee_bps" db:"primary_fee_bps"`
	ResaleFeeBps  int64     `json:"resale_fee_bps" db:"resale_fee_bps"`
	RoyaltyFeeBps int64     `json:"royalty_fee_bps" db:"royalty_fee_bps"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// TicketCategory is a priced capacity bucket within an event.
// Invariant: Minted <= MaxTickets at all times.
type TicketCategory struct {
	ID         string `json:"id" db:"id"`
	EventID    string `json:"event_id" db:"event_id"`
	Name       string `json:"name" db:"name"`
	Price      int64  `json:"price" db:"price"`
	MaxTickets int    `json:"max_tickets" db:"max_tickets"`
	Minted     int    `json:"minted" db:"minted"`
}

// Ticket belongs to exactly one category and one event, and is owned by
// exactly one user at a time. Code is the externally meaningful identifier
// and is reissued on every ownership transfer.
type Ticket struct {
	ID            string    `json:"id" db:"id"`
	Code          string    `json:"code" db:"code"`
	EventID       string    `json:"event_id" db:"event_id"`
	CategoryID    string    `json:"ticket_category_id" db:"ticket_category_id"`
	OwnerID       string    `json:"owner_id" db:"owner_id"`
	IsUsed        bool      `json:"is_used" db:"is_used"`
	IsListed      bool      `json:"is_listed" db:"is_listed"`
	ResalePrice   *int64    `json:"resale_price" db:"resale_price"`
	ResaleCount   int       `json:"resale_count" db:"resale_count"`
	SoldTo        *string   `json:"sold_to" db:"sold_to"`
	BankCode      *string   `json:"-" db:"bank_code"`
	AccountNumber *string   `json:"-" db:"account_number"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// Transaction is the idempotency unit of the settlement ledger: exactly one
// successful settlement effect is applied per Reference.
type Transaction struct {
	ID        int64     `json:"id" db:"id"`
	Reference string    `json:"reference" db:"reference"`
	Type      string    `json:"type" db:"type"`
	Status    string    `json:"status" db:"status"`
	Amount    int64     `json:"amount" db:"amount"`
	EventID   *string   `json:"event_id" db:"event_id"`
	UserID    string    `json:"user_id" db:"user_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// TicketIDs are the tickets linked at initiation time; filled separately.
	TicketIDs []string `json:"ticket_ids,omitempty"`
}

// Wallet holds a non-negative balance in minor currency units. One per user,
// lazily created; the platform's collection account is a wallet like any
// other, keyed by the admin user.
type Wallet struct {
	UserID    string    `json:"user_id" db:"user_id"`
	Balance   int64     `json:"balance" db:"balance"`
	PinHash   *string   `json:"-" db:"pin_hash"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// QRPayload is the verification payload generated per ticket at purchase
// settlement, consumed by the notification templates and the verify endpoint.
type QRPayload struct {
	TicketID         string `json:"ticket_id"`
	EventID          string `json:"event_id"`
	UserID           string `json:"user_id"`
	Code             string `json:"code"`
	VerificationCode string `json:"verification_code"`
	Timestamp        int64  `json:"timestamp"`
}
