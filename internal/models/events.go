package models

import "time"

// NATS subjects for settlement notifications. Delivery is at-least-once;
// consumers must tolerate duplicates.
const (
	EventPurchaseSettled = "settlement.purchase.completed"
	EventResaleSettled   = "settlement.resale.completed"
	EventWalletFunded    = "wallet.funded"
	EventWalletWithdrawn = "wallet.withdrawn"
)

// TicketDetail describes one settled ticket for notification templates.
type TicketDetail struct {
	TicketID     string    `json:"ticket_id"`
	Code         string    `json:"code"`
	CategoryName string    `json:"category_name"`
	QR           QRPayload `json:"qr"`
}

// PurchaseSettledEvent is published after a purchase settlement commits.
type PurchaseSettledEvent struct {
	Reference         string         `json:"reference"`
	EventID           string         `json:"event_id"`
	EventName         string         `json:"event_name"`
	BuyerID           string         `json:"buyer_id"`
	OrganizerID       string         `json:"organizer_id"`
	Amount            int64          `json:"amount"`
	PlatformCut       int64          `json:"platform_cut"`
	OrganizerProceeds int64          `json:"organizer_proceeds"`
	Tickets           []TicketDetail `json:"tickets"`
	Timestamp         time.Time      `json:"timestamp"`
}

// ResaleSettledEvent is published after a resale settlement commits.
// Seller totals are per seller because one transaction may settle tickets
// from several sellers.
type ResaleSettledEvent struct {
	Reference        string           `json:"reference"`
	EventID          string           `json:"event_id"`
	EventName        string           `json:"event_name"`
	BuyerID          string           `json:"buyer_id"`
	OrganizerID      string           `json:"organizer_id"`
	Amount           int64            `json:"amount"`
	PlatformCut      int64            `json:"platform_cut"`
	OrganizerRoyalty int64            `json:"organizer_royalty"`
	SellerProceeds   map[string]int64 `json:"seller_proceeds"`
	Tickets          []TicketDetail   `json:"tickets"`
	Timestamp        time.Time        `json:"timestamp"`
}

// WalletFundedEvent is published after a FUND settlement commits.
type WalletFundedEvent struct {
	Reference string    `json:"reference"`
	UserID    string    `json:"user_id"`
	Amount    int64     `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}

// WalletWithdrawnEvent is published after a withdrawal is accepted by the
// payout rail and the wallet debited.
type WalletWithdrawnEvent struct {
	Reference string    `json:"reference"`
	UserID    string    `json:"user_id"`
	Amount    int64     `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}
