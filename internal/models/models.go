package models

// Request and response shapes for the API surface.

// VerifyTransactionRequest is posted by the gateway webhook (or a polling
// caller) to confirm a transaction.
type VerifyTransactionRequest struct {
	Reference string `json:"reference" binding:"required"`
}

// SettlementResponse is the definitive outcome of a settlement attempt.
// Callers are safe to retry: a duplicate delivery gets AlreadyProcessed.
type SettlementResponse struct {
	Message          string   `json:"message"`
	Success          bool     `json:"success"`
	AlreadyProcessed bool     `json:"already_processed,omitempty"`
	TicketIDs        []string `json:"ticket_ids,omitempty"`
}

// BuyNewRequest initiates a primary ticket purchase.
type BuyNewRequest struct {
	EventID    string `json:"event_id" binding:"required"`
	CategoryID string `json:"category_id" binding:"required"`
	Quantity   int    `json:"quantity" binding:"required,min=1"`
}

// BuyResaleRequest initiates a resale purchase for one or more listed tickets.
type BuyResaleRequest struct {
	TicketIDs []string `json:"ticket_ids" binding:"required,min=1"`
}

// CheckoutResponse carries the gateway checkout URL for a pending payment.
type CheckoutResponse struct {
	Reference   string `json:"reference"`
	CheckoutURL string `json:"checkout_url"`
}

// ListResaleRequest lists tickets for resale. Payout destination is captured
// here, at listing time.
type ListResaleRequest struct {
	TicketIDs     []string `json:"ticket_ids" binding:"required,min=1"`
	Price         int64    `json:"price" binding:"required,min=1"`
	BankCode      string   `json:"bank_code" binding:"required"`
	AccountNumber string   `json:"account_number" binding:"required"`
}

// RemoveResaleRequest delists a ticket. Payout details are cleared with the
// listing, so a relist must supply fresh ones.
type RemoveResaleRequest struct {
	TicketID string `json:"ticket_id" binding:"required"`
}

// VerifyTicketRequest checks a ticket by code; organizers may mark it used.
type VerifyTicketRequest struct {
	Code     string `json:"code" binding:"required"`
	EventID  string `json:"event_id" binding:"required"`
	MarkUsed bool   `json:"mark_used"`
}

// VerifyTicketResponse reports ticket validity.
type VerifyTicketResponse struct {
	Valid  bool   `json:"valid"`
	IsUsed bool   `json:"is_used"`
	Reason string `json:"reason,omitempty"`
}

// WithdrawRequest is a user-initiated wallet withdrawal.
type WithdrawRequest struct {
	Amount        int64  `json:"amount" binding:"required,min=1"`
	Pin           string `json:"pin" binding:"required"`
	BankCode      string `json:"bank_code" binding:"required"`
	AccountNumber string `json:"account_number" binding:"required"`
	Narration     string `json:"narration"`
}

// WithdrawResponse reports an accepted withdrawal.
type WithdrawResponse struct {
	Message   string `json:"message"`
	Reference string `json:"reference"`
	Payout    any    `json:"payout,omitempty"`
}

// FundRequest tops up the caller's wallet through the gateway.
type FundRequest struct {
	Amount int64 `json:"amount" binding:"required,min=1"`
}

// BalanceResponse reports a wallet balance in minor units.
type BalanceResponse struct {
	Balance int64 `json:"balance"`
}

// SetPinRequest sets or rotates the wallet PIN.
type SetPinRequest struct {
	OldPin string `json:"old_pin"`
	NewPin string `json:"new_pin" binding:"required"`
}

// HasPinResponse reports whether a wallet PIN is set.
type HasPinResponse struct {
	HasPin bool `json:"has_pin"`
}

// ResaleListing is a marketplace search hit for a listed ticket.
type ResaleListing struct {
	TicketID     string `json:"ticket_id"`
	EventID      string `json:"event_id"`
	EventName    string `json:"event_name"`
	CategoryName string `json:"category_name"`
	SellerID     string `json:"seller_id"`
	SellerName   string `json:"seller_name"`
	Price        int64  `json:"price"`
	ListedAt     int64  `json:"listed_at"`
}
