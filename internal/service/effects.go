package service

import (
	"fmt"

	apperrors "ticketer/internal/errors"
	"ticketer/internal/fees"
	"ticketer/internal/models"
)

// purchaseEffects is the money movement a primary purchase settlement must
// apply. Computed before any wallet is touched.
type purchaseEffects struct {
	PlatformCut       int64
	OrganizerProceeds int64
}

// buildPurchaseEffects validates a purchase transaction against its tickets
// and computes the primary split. All tickets must belong to a single
// category, be owned by the buyer and price out to the paid amount.
func buildPurchaseEffects(txn *models.Transaction, category *models.TicketCategory, primaryFeeBps int64, tickets []models.Ticket) (*purchaseEffects, error) {
	if len(tickets) == 0 {
		return nil, fmt.Errorf("purchase %s has no linked tickets: %w", txn.Reference, apperrors.ErrInvariantViolation)
	}

	for _, ticket := range tickets {
		if ticket.CategoryID != category.ID {
			return nil, fmt.Errorf("purchase %s spans multiple categories: %w", txn.Reference, apperrors.ErrInvariantViolation)
		}
		if ticket.OwnerID != txn.UserID {
			return nil, fmt.Errorf("ticket %s not held by buyer: %w", ticket.ID, apperrors.ErrInvariantViolation)
		}
	}

	expected := category.Price * int64(len(tickets))
	if txn.Amount != expected {
		return nil, fmt.Errorf("purchase %s paid %d, tickets price to %d: %w",
			txn.Reference, txn.Amount, expected, apperrors.ErrInvariantViolation)
	}

	platformCut, organizerProceeds := fees.SplitPrimary(txn.Amount, primaryFeeBps)
	return &purchaseEffects{
		PlatformCut:       platformCut,
		OrganizerProceeds: organizerProceeds,
	}, nil
}

// ticketResaleEffect is one ticket's share of a resale settlement: who gets
// paid, how much, and where. Payout details are captured here before the
// ownership transfer clears them from the ticket row.
type ticketResaleEffect struct {
	TicketID      string
	SellerID      string
	Proceeds      int64
	BankCode      string
	AccountNumber string
}

// resaleEffects is the full money movement of a resale settlement.
type resaleEffects struct {
	PlatformCut      int64
	OrganizerRoyalty int64
	SellerProceeds   map[string]int64
	PerTicket        []ticketResaleEffect
}

// buildResaleEffects validates a resale transaction against its tickets and
// computes the three-way split per ticket. Every ticket must be actively
// listed with a price and a payout destination, must not belong to the
// buyer, and the listed prices must sum to the paid amount.
func buildResaleEffects(txn *models.Transaction, resaleFeeBps, royaltyFeeBps int64, tickets []models.Ticket) (*resaleEffects, error) {
	if len(tickets) == 0 {
		return nil, fmt.Errorf("resale %s has no linked tickets: %w", txn.Reference, apperrors.ErrInvariantViolation)
	}

	effects := &resaleEffects{
		SellerProceeds: make(map[string]int64),
		PerTicket:      make([]ticketResaleEffect, 0, len(tickets)),
	}

	var total int64
	for _, ticket := range tickets {
		// Losing the listing to a concurrent sale surfaces the same way as
		// the ownership transfer guard.
		if !ticket.IsListed || ticket.ResalePrice == nil {
			return nil, fmt.Errorf("ticket %s is not listed for resale: %w", ticket.ID, apperrors.ErrPermission)
		}
		if ticket.BankCode == nil || ticket.AccountNumber == nil {
			return nil, fmt.Errorf("ticket %s has no payout destination: %w", ticket.ID, apperrors.ErrInvariantViolation)
		}
		if ticket.OwnerID == txn.UserID {
			return nil, fmt.Errorf("buyer already owns ticket %s: %w", ticket.ID, apperrors.ErrInvariantViolation)
		}

		price := *ticket.ResalePrice
		total += price

		platformCut, organizerRoyalty, sellerProceeds := fees.SplitResale(price, resaleFeeBps, royaltyFeeBps)
		effects.PlatformCut += platformCut
		effects.OrganizerRoyalty += organizerRoyalty
		effects.SellerProceeds[ticket.OwnerID] += sellerProceeds
		effects.PerTicket = append(effects.PerTicket, ticketResaleEffect{
			TicketID:      ticket.ID,
			SellerID:      ticket.OwnerID,
			Proceeds:      sellerProceeds,
			BankCode:      *ticket.BankCode,
			AccountNumber: *ticket.AccountNumber,
		})
	}

	if txn.Amount != total {
		return nil, fmt.Errorf("resale %s paid %d, listings price to %d: %w",
			txn.Reference, txn.Amount, total, apperrors.ErrInvariantViolation)
	}
	return effects, nil
}
