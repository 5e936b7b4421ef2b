package consumers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/stan.go"

	"ticketer/internal/external"
	"ticketer/internal/models"
	"ticketer/internal/repository"
)

// maxRedeliveries bounds how often a poisoned message is retried before it
// is logged for manual replay and acknowledged.
const maxRedeliveries = 5

// Handlers fan settlement events out into user notifications. Messages are
// acked only after the fan-out finishes; a crash mid-handler redelivers.
type Handlers struct {
	repos        *repository.Repositories
	notification *external.NotificationClient
}

func NewHandlers(repos *repository.Repositories, notification *external.NotificationClient) *Handlers {
	return &Handlers{
		repos:        repos,
		notification: notification,
	}
}

// poisoned acks messages that exceeded the redelivery budget. Returns true
// when the caller must stop processing.
func poisoned(m *stan.Msg) bool {
	if m.RedeliveryCount <= maxRedeliveries {
		return false
	}
	slog.Error("Message exceeded redelivery budget, dropping",
		"subject", m.Subject,
		"sequence", m.Sequence,
		"redeliveries", m.RedeliveryCount,
		"data", string(m.Data))
	m.Ack()
	return true
}

func (h *Handlers) HandlePurchaseSettled(m *stan.Msg) {
	if poisoned(m) {
		return
	}

	var event models.PurchaseSettledEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal purchase settled event", "error", err)
		m.Ack()
		return
	}

	ctx := context.Background()
	log := slog.With("reference", event.Reference)

	buyer, err := h.repos.Users.GetByID(ctx, event.BuyerID)
	if err != nil {
		log.Error("Failed to load buyer", "error", err)
		return
	}

	if err := h.notification.Send(ctx, external.Notification{
		Recipient: buyer.Email,
		Subject:   fmt.Sprintf("Your tickets for %s", event.EventName),
		Body: fmt.Sprintf("Your purchase of %d ticket(s) for %s is confirmed. Present the QR codes at the gate.",
			len(event.Tickets), event.EventName),
		Metadata: map[string]any{
			"reference": event.Reference,
			"tickets":   event.Tickets,
		},
	}); err != nil {
		log.Error("Failed to notify buyer", "error", err)
		return
	}

	if organizer, err := h.repos.Users.GetByID(ctx, event.OrganizerID); err == nil {
		if err := h.notification.Send(ctx, external.Notification{
			Recipient: organizer.Email,
			Subject:   fmt.Sprintf("Ticket sale for %s", event.EventName),
			Body: fmt.Sprintf("%d ticket(s) sold. Your wallet was credited %d after platform fees.",
				len(event.Tickets), event.OrganizerProceeds),
			Metadata: map[string]any{
				"reference": event.Reference,
			},
		}); err != nil {
			log.Error("Failed to notify organizer", "error", err)
			return
		}
	}

	m.Ack()
}

func (h *Handlers) HandleResaleSettled(m *stan.Msg) {
	if poisoned(m) {
		return
	}

	var event models.ResaleSettledEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal resale settled event", "error", err)
		m.Ack()
		return
	}

	ctx := context.Background()
	log := slog.With("reference", event.Reference)

	buyer, err := h.repos.Users.GetByID(ctx, event.BuyerID)
	if err != nil {
		log.Error("Failed to load buyer", "error", err)
		return
	}

	if err := h.notification.Send(ctx, external.Notification{
		Recipient: buyer.Email,
		Subject:   fmt.Sprintf("Your resale tickets for %s", event.EventName),
		Body: fmt.Sprintf("Your purchase of %d resale ticket(s) for %s is confirmed. Fresh QR codes are attached; the seller's copies are void.",
			len(event.Tickets), event.EventName),
		Metadata: map[string]any{
			"reference": event.Reference,
			"tickets":   event.Tickets,
		},
	}); err != nil {
		log.Error("Failed to notify buyer", "error", err)
		return
	}

	for sellerID, proceeds := range event.SellerProceeds {
		seller, err := h.repos.Users.GetByID(ctx, sellerID)
		if err != nil {
			log.Error("Failed to load seller", "seller_id", sellerID, "error", err)
			return
		}
		if err := h.notification.Send(ctx, external.Notification{
			Recipient: seller.Email,
			Subject:   fmt.Sprintf("Your ticket for %s sold", event.EventName),
			Body:      fmt.Sprintf("Your resale listing sold. %d is on its way to your bank account.", proceeds),
			Metadata: map[string]any{
				"reference": event.Reference,
			},
		}); err != nil {
			log.Error("Failed to notify seller", "seller_id", sellerID, "error", err)
			return
		}
	}

	if organizer, err := h.repos.Users.GetByID(ctx, event.OrganizerID); err == nil && event.OrganizerRoyalty > 0 {
		if err := h.notification.Send(ctx, external.Notification{
			Recipient: organizer.Email,
			Subject:   fmt.Sprintf("Resale royalty for %s", event.EventName),
			Body:      fmt.Sprintf("A resale of your event's tickets earned you a %d royalty.", event.OrganizerRoyalty),
			Metadata: map[string]any{
				"reference": event.Reference,
			},
		}); err != nil {
			log.Error("Failed to notify organizer", "error", err)
			return
		}
	}

	m.Ack()
}

func (h *Handlers) HandleWalletFunded(m *stan.Msg) {
	if poisoned(m) {
		return
	}

	var event models.WalletFundedEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal wallet funded event", "error", err)
		m.Ack()
		return
	}

	ctx := context.Background()
	user, err := h.repos.Users.GetByID(ctx, event.UserID)
	if err != nil {
		slog.Error("Failed to load user", "reference", event.Reference, "error", err)
		return
	}

	if err := h.notification.Send(ctx, external.Notification{
		Recipient: user.Email,
		Subject:   "Wallet funded",
		Body:      fmt.Sprintf("Your wallet was credited %d.", event.Amount),
		Metadata: map[string]any{
			"reference": event.Reference,
		},
	}); err != nil {
		slog.Error("Failed to notify user", "reference", event.Reference, "error", err)
		return
	}

	m.Ack()
}

func (h *Handlers) HandleWalletWithdrawn(m *stan.Msg) {
	if poisoned(m) {
		return
	}

	var event models.WalletWithdrawnEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal wallet withdrawn event", "error", err)
		m.Ack()
		return
	}

	ctx := context.Background()
	user, err := h.repos.Users.GetByID(ctx, event.UserID)
	if err != nil {
		slog.Error("Failed to load user", "reference", event.Reference, "error", err)
		return
	}

	if err := h.notification.Send(ctx, external.Notification{
		Recipient: user.Email,
		Subject:   "Withdrawal processed",
		Body:      fmt.Sprintf("Your withdrawal of %d was sent to your bank account.", event.Amount),
		Metadata: map[string]any{
			"reference": event.Reference,
		},
	}); err != nil {
		slog.Error("Failed to notify user", "reference", event.Reference, "error", err)
		return
	}

	m.Ack()
}
