package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	apperrors "ticketer/internal/errors"
	"ticketer/internal/external"
	"ticketer/internal/logger"
	"ticketer/internal/models"
	"ticketer/internal/monitoring"
	"ticketer/internal/repository"
	"ticketer/internal/search"
)

// TicketService initiates ticket purchases and manages resale listings.
// Money only moves at settlement; initiation creates the PENDING ledger
// entry and, for primary purchases, mints the inventory it pays for.
type TicketService struct {
	repos    *repository.Repositories
	gateway  *external.GatewayClient
	search   *search.ListingsClient
	monitor  *monitoring.Monitor
	currency string
}

func NewTicketService(
	repos *repository.Repositories,
	gateway *external.GatewayClient,
	listings *search.ListingsClient,
	monitor *monitoring.Monitor,
	currency string,
) *TicketService {
	return &TicketService{
		repos:    repos,
		gateway:  gateway,
		search:   listings,
		monitor:  monitor,
		currency: currency,
	}
}

func newReference(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, uuid.New().String())
}

// BuyNew initiates a primary purchase: mints the tickets against the
// category's capacity, records the PENDING transaction and returns the
// gateway checkout URL. If the gateway declines to start the checkout, the
// mint is compensated and the transaction removed; no money has moved.
func (s *TicketService) BuyNew(ctx context.Context, userID string, req *models.BuyNewRequest) (*models.CheckoutResponse, error) {
	category, err := s.repos.Tickets.GetCategory(ctx, req.CategoryID)
	if err != nil {
		return nil, err
	}
	if category.EventID != req.EventID {
		return nil, fmt.Errorf("category %s does not belong to event %s: %w",
			req.CategoryID, req.EventID, apperrors.ErrInvariantViolation)
	}

	event, err := s.repos.Events.GetByID(ctx, req.EventID)
	if err != nil {
		return nil, err
	}
	if !event.IsActive {
		return nil, fmt.Errorf("event %s is not active: %w", event.ID, apperrors.ErrPermission)
	}
	if event.Date.Before(time.Now()) {
		return nil, fmt.Errorf("event %s has already happened: %w", event.ID, apperrors.ErrPermission)
	}

	user, err := s.repos.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	reference := newReference("purchase")
	amount := category.Price * int64(req.Quantity)

	var ticketIDs []string
	err = s.repos.DB.WithinTx(ctx, func(tx *sql.Tx) error {
		txn := &models.Transaction{
			Reference: reference,
			Type:      models.TransactionPurchase,
			Amount:    amount,
			EventID:   &req.EventID,
			UserID:    userID,
		}
		if err := s.repos.Transactions.CreatePending(ctx, tx, txn); err != nil {
			return err
		}

		tickets, err := s.repos.Tickets.Mint(ctx, tx, req.CategoryID, req.EventID, userID, req.Quantity)
		if err != nil {
			return err
		}
		for _, ticket := range tickets {
			ticketIDs = append(ticketIDs, ticket.ID)
		}
		return s.repos.Transactions.LinkTickets(ctx, tx, reference, ticketIDs)
	})
	if err != nil {
		return nil, err
	}

	checkout, err := s.initiateCheckout(ctx, reference, amount, user, map[string]any{
		"event_id":    req.EventID,
		"category_id": req.CategoryID,
		"quantity":    req.Quantity,
	})
	if err != nil {
		s.rollbackPurchase(ctx, reference, req.CategoryID, ticketIDs)
		return nil, err
	}

	logger.WithReference(reference).Info("Purchase initiated",
		slog.String("user_id", userID),
		slog.Int64("amount", amount),
		slog.Int("quantity", req.Quantity))
	return checkout, nil
}

// BuyResale initiates a resale purchase for listed tickets. The tickets stay
// with their sellers until settlement transfers them.
func (s *TicketService) BuyResale(ctx context.Context, userID string, req *models.BuyResaleRequest) (*models.CheckoutResponse, error) {
	user, err := s.repos.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	reference := newReference("resale")

	var amount int64
	err = s.repos.DB.WithinTx(ctx, func(tx *sql.Tx) error {
		tickets, err := s.repos.Tickets.GetByIDsForUpdate(ctx, tx, req.TicketIDs)
		if err != nil {
			return err
		}

		eventID := tickets[0].EventID
		for _, ticket := range tickets {
			switch {
			case !ticket.IsListed || ticket.ResalePrice == nil:
				return fmt.Errorf("ticket %s is not listed for resale: %w", ticket.ID, apperrors.ErrInvariantViolation)
			case ticket.OwnerID == userID:
				return fmt.Errorf("cannot buy own ticket %s: %w", ticket.ID, apperrors.ErrPermission)
			case ticket.IsUsed:
				return fmt.Errorf("ticket %s already used: %w", ticket.ID, apperrors.ErrInvariantViolation)
			case ticket.EventID != eventID:
				return fmt.Errorf("tickets span multiple events: %w", apperrors.ErrInvariantViolation)
			}
			amount += *ticket.ResalePrice
		}

		txn := &models.Transaction{
			Reference: reference,
			Type:      models.TransactionResale,
			Amount:    amount,
			EventID:   &eventID,
			UserID:    userID,
		}
		if err := s.repos.Transactions.CreatePending(ctx, tx, txn); err != nil {
			return err
		}
		return s.repos.Transactions.LinkTickets(ctx, tx, reference, req.TicketIDs)
	})
	if err != nil {
		return nil, err
	}

	checkout, err := s.initiateCheckout(ctx, reference, amount, user, map[string]any{
		"ticket_ids": req.TicketIDs,
	})
	if err != nil {
		if delErr := s.repos.Transactions.Delete(ctx, s.repos.DB, reference); delErr != nil {
			logger.WithReference(reference).Error("Failed to roll back resale transaction",
				slog.String("error", delErr.Error()))
		}
		return nil, err
	}

	logger.WithReference(reference).Info("Resale purchase initiated",
		slog.String("user_id", userID),
		slog.Int64("amount", amount),
		slog.Int("tickets", len(req.TicketIDs)))
	return checkout, nil
}

func (s *TicketService) initiateCheckout(ctx context.Context, reference string, amount int64, user *models.User, metadata map[string]any) (*models.CheckoutResponse, error) {
	resp, err := s.gateway.InitiatePayment(ctx, external.InitiateRequest{
		Customer: external.Customer{
			Email: user.Email,
			Name:  user.Name,
		},
		Amount:    amount,
		Currency:  s.currency,
		Reference: reference,
		Processor: "kora",
		Metadata:  metadata,
	})
	if err != nil {
		s.monitor.TrackGatewayCall("initiate", "failure")
		return nil, err
	}
	s.monitor.TrackGatewayCall("initiate", "success")

	return &models.CheckoutResponse{
		Reference:   reference,
		CheckoutURL: resp.CheckoutURL,
	}, nil
}

// rollbackPurchase compensates a failed checkout initiation. Runs before any
// payment could exist, so deleting the tickets and the transaction restores
// the pre-initiation state exactly.
func (s *TicketService) rollbackPurchase(ctx context.Context, reference, categoryID string, ticketIDs []string) {
	log := logger.WithReference(reference)
	err := s.repos.DB.WithinTx(ctx, func(tx *sql.Tx) error {
		if err := s.repos.Tickets.Unmint(ctx, tx, categoryID, ticketIDs); err != nil {
			return err
		}
		return s.repos.Transactions.Delete(ctx, tx, reference)
	})
	if err != nil {
		log.Error("Failed to roll back purchase initiation", slog.String("error", err.Error()))
		return
	}
	log.Info("Purchase initiation rolled back", slog.Int("tickets", len(ticketIDs)))
}

// ListForResale lists the seller's tickets and indexes them for marketplace
// search. The payout destination travels with the listing.
func (s *TicketService) ListForResale(ctx context.Context, sellerID string, req *models.ListResaleRequest) ([]models.Ticket, error) {
	tickets, err := s.repos.Tickets.ListForResale(ctx, req.TicketIDs, sellerID, req.Price, req.BankCode, req.AccountNumber)
	if err != nil {
		return nil, err
	}

	s.indexListings(ctx, tickets, sellerID, req.Price)
	return tickets, nil
}

func (s *TicketService) indexListings(ctx context.Context, tickets []models.Ticket, sellerID string, price int64) {
	if s.search == nil || len(tickets) == 0 {
		return
	}

	event, err := s.repos.Events.GetByID(ctx, tickets[0].EventID)
	if err != nil {
		logger.Get().Warn("Failed to load event for listing index", slog.String("error", err.Error()))
		return
	}
	seller, err := s.repos.Users.GetByID(ctx, sellerID)
	if err != nil {
		logger.Get().Warn("Failed to load seller for listing index", slog.String("error", err.Error()))
		return
	}

	categoryNames := make(map[string]string)
	for _, ticket := range tickets {
		name, ok := categoryNames[ticket.CategoryID]
		if !ok {
			if category, err := s.repos.Tickets.GetCategory(ctx, ticket.CategoryID); err == nil {
				name = category.Name
			}
			categoryNames[ticket.CategoryID] = name
		}

		listing := &models.ResaleListing{
			TicketID:     ticket.ID,
			EventID:      event.ID,
			EventName:    event.Name,
			CategoryName: name,
			SellerID:     sellerID,
			SellerName:   seller.Name,
			Price:        price,
			ListedAt:     time.Now().UnixMilli(),
		}
		if err := s.search.IndexListing(ctx, listing); err != nil {
			logger.Get().Warn("Failed to index resale listing",
				slog.String("ticket_id", ticket.ID),
				slog.String("error", err.Error()))
		}
	}
}

// Delist removes a resale listing and its search document.
func (s *TicketService) Delist(ctx context.Context, sellerID, ticketID string) error {
	if err := s.repos.Tickets.Delist(ctx, ticketID, sellerID); err != nil {
		return err
	}

	if s.search != nil {
		if err := s.search.DeleteListing(ctx, ticketID); err != nil {
			logger.Get().Warn("Failed to remove listing from search index",
				slog.String("ticket_id", ticketID),
				slog.String("error", err.Error()))
		}
	}
	return nil
}

// MyTickets lists the caller's tickets.
func (s *TicketService) MyTickets(ctx context.Context, userID string) ([]models.Ticket, error) {
	return s.repos.Tickets.GetByOwner(ctx, userID)
}

// SearchListings queries the resale marketplace.
func (s *TicketService) SearchListings(ctx context.Context, query, eventID string, page, pageSize int) ([]models.ResaleListing, error) {
	if s.search == nil {
		return nil, fmt.Errorf("listing search is unavailable: %w", apperrors.ErrNotFound)
	}
	return s.search.Search(ctx, query, eventID, page, pageSize)
}

// Verify checks a ticket code at the gate. Only the event's organizer or an
// admin may mark a ticket used.
func (s *TicketService) Verify(ctx context.Context, callerID string, req *models.VerifyTicketRequest) (*models.VerifyTicketResponse, error) {
	ticket, err := s.repos.Tickets.GetByCode(ctx, req.Code)
	if err != nil {
		return &models.VerifyTicketResponse{Valid: false, Reason: "unknown ticket code"}, nil
	}

	if ticket.EventID != req.EventID {
		return &models.VerifyTicketResponse{Valid: false, Reason: "ticket belongs to a different event"}, nil
	}
	if ticket.IsUsed {
		return &models.VerifyTicketResponse{Valid: false, IsUsed: true, Reason: "ticket already used"}, nil
	}
	if ticket.IsListed {
		return &models.VerifyTicketResponse{Valid: false, Reason: "ticket is listed for resale"}, nil
	}

	if req.MarkUsed {
		caller, err := s.repos.Users.GetByID(ctx, callerID)
		if err != nil {
			return nil, err
		}
		event, err := s.repos.Events.GetByID(ctx, req.EventID)
		if err != nil {
			return nil, err
		}
		if caller.Role != models.RoleAdmin && caller.ID != event.OrganizerID {
			return nil, fmt.Errorf("only the organizer may admit tickets: %w", apperrors.ErrPermission)
		}
		if err := s.repos.Tickets.MarkUsed(ctx, ticket.ID); err != nil {
			return nil, err
		}
		return &models.VerifyTicketResponse{Valid: true, IsUsed: true}, nil
	}

	return &models.VerifyTicketResponse{Valid: true}, nil
}
