package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"ticketer/internal/cache"
	apperrors "ticketer/internal/errors"
	"ticketer/internal/external"
	"ticketer/internal/logger"
	"ticketer/internal/messaging"
	"ticketer/internal/models"
	"ticketer/internal/monitoring"
	"ticketer/internal/repository"
	"ticketer/internal/search"
)

// SettlementService turns verified gateway notifications into committed
// ledger effects. Settlement is exactly-once per reference: the PENDING to
// SUCCESS flip and every side effect share one database transaction, and a
// replayed notification short-circuits on the already settled status.
type SettlementService struct {
	db      txRunner
	txns    ledgerStore
	wallets walletStore
	tickets inventoryStore
	events  eventDirectory
	users   userDirectory
	gateway paymentVerifier
	payouts payoutRail
	nats    eventPublisher
	cache   *cache.SettlementCache
	search  *search.ListingsClient
	monitor *monitoring.Monitor
	adminID string
}

func NewSettlementService(
	repos *repository.Repositories,
	gateway *external.GatewayClient,
	payouts *PayoutDispatcher,
	nats *messaging.NATSClient,
	settlementCache *cache.SettlementCache,
	listings *search.ListingsClient,
	monitor *monitoring.Monitor,
	adminUserID string,
) *SettlementService {
	s := &SettlementService{
		db:      repos.DB,
		txns:    repos.Transactions,
		wallets: repos.Wallets,
		tickets: repos.Tickets,
		events:  repos.Events,
		users:   repos.Users,
		gateway: gateway,
		payouts: payouts,
		cache:   settlementCache,
		search:  listings,
		monitor: monitor,
		adminID: adminUserID,
	}
	if nats != nil {
		s.nats = nats
	}
	return s
}

// VerifyAndSettle confirms a reference with the gateway and applies the
// settlement effects for its transaction type. Safe to call any number of
// times per reference.
func (s *SettlementService) VerifyAndSettle(ctx context.Context, reference string) (*models.SettlementResponse, error) {
	log := logger.WithReference(reference)
	started := time.Now()

	// A replayed webhook for a recently settled reference is answered from
	// cache without a gateway round trip.
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, reference); err == nil {
			var cached models.SettlementResponse
			if err := json.Unmarshal(data, &cached); err == nil {
				cached.AlreadyProcessed = true
				log.Info("Settlement served from cache")
				return &cached, nil
			}
		}
	}

	if _, err := s.gateway.VerifyTransaction(ctx, reference); err != nil {
		s.monitor.TrackGatewayCall("verify", "failure")
		// The ledger is untouched on a failed verification; the gateway
		// may retry the notification later.
		return nil, err
	}
	s.monitor.TrackGatewayCall("verify", "success")

	var (
		response *models.SettlementResponse
		settled  *settledOutcome
	)
	err := s.db.WithinTx(ctx, func(tx *sql.Tx) error {
		txn, err := s.txns.LockAndRead(ctx, tx, reference)
		if err != nil {
			return err
		}

		if txn.Status == models.StatusSuccess {
			response = &models.SettlementResponse{
				Message:          "transaction already settled",
				Success:          true,
				AlreadyProcessed: true,
				TicketIDs:        txn.TicketIDs,
			}
			return nil
		}
		if txn.Status == models.StatusFailed {
			return fmt.Errorf("transaction %s already failed: %w", reference, apperrors.ErrConflict)
		}

		flipped, err := s.txns.MarkSuccessIfPending(ctx, tx, reference)
		if err != nil {
			return err
		}
		if !flipped {
			response = &models.SettlementResponse{
				Message:          "transaction already settled",
				Success:          true,
				AlreadyProcessed: true,
				TicketIDs:        txn.TicketIDs,
			}
			return nil
		}

		switch txn.Type {
		case models.TransactionPurchase:
			settled, err = s.settlePurchase(ctx, tx, txn)
		case models.TransactionResale:
			settled, err = s.settleResale(ctx, tx, txn)
		case models.TransactionFund:
			settled, err = s.settleFund(ctx, tx, txn)
		default:
			err = fmt.Errorf("transaction %s has unexpected type %s: %w",
				reference, txn.Type, apperrors.ErrInvariantViolation)
		}
		if err != nil {
			return err
		}

		response = &models.SettlementResponse{
			Message:   "transaction settled",
			Success:   true,
			TicketIDs: txn.TicketIDs,
		}
		return nil
	})
	if err != nil {
		s.monitor.TrackSettlement("unknown", "failure", time.Since(started))
		return nil, err
	}

	if settled != nil {
		s.afterSettlement(ctx, reference, settled)
		s.cacheResponse(ctx, reference, response)
	}

	s.monitor.TrackSettlement(settlementType(settled), "success", time.Since(started))
	log.Info("Settlement complete",
		slog.Bool("already_processed", response.AlreadyProcessed),
		slog.Duration("took", time.Since(started)))
	return response, nil
}

// settledOutcome carries the committed settlement's notification payload and
// the side effects that run after commit.
type settledOutcome struct {
	txnType         string
	subject         string
	event           any
	delistTicketIDs []string
}

func settlementType(o *settledOutcome) string {
	if o == nil {
		return "replay"
	}
	return o.txnType
}

func (s *SettlementService) settlePurchase(ctx context.Context, tx *sql.Tx, txn *models.Transaction) (*settledOutcome, error) {
	if txn.EventID == nil {
		return nil, fmt.Errorf("purchase %s has no event: %w", txn.Reference, apperrors.ErrInvariantViolation)
	}
	event, err := s.events.GetByID(ctx, *txn.EventID)
	if err != nil {
		return nil, err
	}

	tickets, err := s.tickets.GetByIDsForUpdate(ctx, tx, txn.TicketIDs)
	if err != nil {
		return nil, err
	}
	if len(tickets) == 0 {
		return nil, fmt.Errorf("purchase %s has no linked tickets: %w", txn.Reference, apperrors.ErrInvariantViolation)
	}
	category, err := s.tickets.GetCategory(ctx, tickets[0].CategoryID)
	if err != nil {
		return nil, err
	}

	effects, err := buildPurchaseEffects(txn, category, event.PrimaryFeeBps, tickets)
	if err != nil {
		return nil, err
	}

	if err := s.wallets.Credit(ctx, tx, event.OrganizerID, effects.OrganizerProceeds); err != nil {
		return nil, err
	}
	if err := s.wallets.Credit(ctx, tx, s.adminID, effects.PlatformCut); err != nil {
		return nil, err
	}

	return &settledOutcome{
		txnType: models.TransactionPurchase,
		subject: models.EventPurchaseSettled,
		event: models.PurchaseSettledEvent{
			Reference:         txn.Reference,
			EventID:           event.ID,
			EventName:         event.Name,
			BuyerID:           txn.UserID,
			OrganizerID:       event.OrganizerID,
			Amount:            txn.Amount,
			PlatformCut:       effects.PlatformCut,
			OrganizerProceeds: effects.OrganizerProceeds,
			Tickets:           ticketDetails(tickets, category.Name),
			Timestamp:         time.Now(),
		},
	}, nil
}

func (s *SettlementService) settleResale(ctx context.Context, tx *sql.Tx, txn *models.Transaction) (*settledOutcome, error) {
	if txn.EventID == nil {
		return nil, fmt.Errorf("resale %s has no event: %w", txn.Reference, apperrors.ErrInvariantViolation)
	}
	event, err := s.events.GetByID(ctx, *txn.EventID)
	if err != nil {
		return nil, err
	}

	tickets, err := s.tickets.GetByIDsForUpdate(ctx, tx, txn.TicketIDs)
	if err != nil {
		return nil, err
	}

	effects, err := buildResaleEffects(txn, event.ResaleFeeBps, event.RoyaltyFeeBps, tickets)
	if err != nil {
		return nil, err
	}

	// Transfer each ticket under a fresh code, then pay the seller. The
	// payout reference is deterministic per ticket, so if this settlement
	// rolls back and retries, the rail dedupes the transfer.
	for i := range tickets {
		effect := effects.PerTicket[i]
		newCode := repository.GenerateCode()
		if err := s.tickets.TransferOwnership(ctx, tx, effect.TicketID, txn.UserID, newCode); err != nil {
			return nil, err
		}
		tickets[i].Code = newCode
		tickets[i].OwnerID = txn.UserID

		seller, err := s.users.GetByID(ctx, effect.SellerID)
		if err != nil {
			return nil, err
		}
		payoutRef := ResalePayoutReference(txn.Reference, effect.TicketID)
		if _, err := s.payouts.Dispatch(ctx, payoutRef, effect.Proceeds, seller,
			effect.BankCode, effect.AccountNumber, "Ticket resale proceeds"); err != nil {
			return nil, err
		}
	}

	if err := s.wallets.Credit(ctx, tx, event.OrganizerID, effects.OrganizerRoyalty); err != nil {
		return nil, err
	}
	if err := s.wallets.Credit(ctx, tx, s.adminID, effects.PlatformCut); err != nil {
		return nil, err
	}

	categoryName := ""
	if category, err := s.tickets.GetCategory(ctx, tickets[0].CategoryID); err == nil {
		categoryName = category.Name
	}

	return &settledOutcome{
		txnType:         models.TransactionResale,
		subject:         models.EventResaleSettled,
		delistTicketIDs: txn.TicketIDs,
		event: models.ResaleSettledEvent{
			Reference:        txn.Reference,
			EventID:          event.ID,
			EventName:        event.Name,
			BuyerID:          txn.UserID,
			OrganizerID:      event.OrganizerID,
			Amount:           txn.Amount,
			PlatformCut:      effects.PlatformCut,
			OrganizerRoyalty: effects.OrganizerRoyalty,
			SellerProceeds:   effects.SellerProceeds,
			Tickets:          ticketDetails(tickets, categoryName),
			Timestamp:        time.Now(),
		},
	}, nil
}

func (s *SettlementService) settleFund(ctx context.Context, tx *sql.Tx, txn *models.Transaction) (*settledOutcome, error) {
	if err := s.wallets.Credit(ctx, tx, txn.UserID, txn.Amount); err != nil {
		return nil, err
	}

	return &settledOutcome{
		txnType: models.TransactionFund,
		subject: models.EventWalletFunded,
		event: models.WalletFundedEvent{
			Reference: txn.Reference,
			UserID:    txn.UserID,
			Amount:    txn.Amount,
			Timestamp: time.Now(),
		},
	}, nil
}

// afterSettlement runs the best-effort side effects of a committed
// settlement: queue publication and listing index cleanup. Failures are
// logged, never propagated; the ledger already committed.
func (s *SettlementService) afterSettlement(ctx context.Context, reference string, outcome *settledOutcome) {
	log := logger.WithReference(reference)

	if s.nats != nil {
		if err := s.nats.Publish(outcome.subject, outcome.event); err != nil {
			s.monitor.TrackPublishFailure()
			log.Error("Failed to publish settlement event",
				slog.String("subject", outcome.subject),
				slog.String("error", err.Error()))
		}
	}

	if s.search != nil {
		for _, ticketID := range outcome.delistTicketIDs {
			if err := s.search.DeleteListing(ctx, ticketID); err != nil {
				log.Warn("Failed to remove listing from search index",
					slog.String("ticket_id", ticketID),
					slog.String("error", err.Error()))
			}
		}
	}
}

func (s *SettlementService) cacheResponse(ctx context.Context, reference string, response *models.SettlementResponse) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(response)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, reference, data); err != nil {
		logger.WithReference(reference).Warn("Failed to cache settlement response",
			slog.String("error", err.Error()))
	}
}

// ticketDetails builds notification payloads with fresh QR material.
func ticketDetails(tickets []models.Ticket, categoryName string) []models.TicketDetail {
	details := make([]models.TicketDetail, 0, len(tickets))
	for _, ticket := range tickets {
		details = append(details, models.TicketDetail{
			TicketID:     ticket.ID,
			Code:         ticket.Code,
			CategoryName: categoryName,
			QR: models.QRPayload{
				TicketID:         ticket.ID,
				EventID:          ticket.EventID,
				UserID:           ticket.OwnerID,
				Code:             ticket.Code,
				VerificationCode: generateVerificationCode(),
				Timestamp:        time.Now().Unix(),
			},
		})
	}
	return details
}

func generateVerificationCode() string {
	buf := make([]byte, 8)
	rand.Read(buf)
	return hex.EncodeToString(buf)
}
