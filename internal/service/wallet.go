package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	apperrors "ticketer/internal/errors"
	"ticketer/internal/external"
	"ticketer/internal/logger"
	"ticketer/internal/messaging"
	"ticketer/internal/models"
	"ticketer/internal/monitoring"
	"ticketer/internal/repository"
)

const minPinLength = 4

// WalletService manages wallet funding, withdrawals and PINs. Balances only
// change inside database transactions guarded by the wallet row lock or the
// balance check built into the debit statement.
type WalletService struct {
	db       dbHandle
	txns     ledgerStore
	wallets  walletStore
	users    userDirectory
	gateway  checkoutInitiator
	payouts  payoutRail
	nats     eventPublisher
	monitor  *monitoring.Monitor
	currency string
}

func NewWalletService(
	repos *repository.Repositories,
	gateway *external.GatewayClient,
	payouts *PayoutDispatcher,
	nats *messaging.NATSClient,
	monitor *monitoring.Monitor,
	currency string,
) *WalletService {
	s := &WalletService{
		db:       repos.DB,
		txns:     repos.Transactions,
		wallets:  repos.Wallets,
		users:    repos.Users,
		gateway:  gateway,
		payouts:  payouts,
		monitor:  monitor,
		currency: currency,
	}
	if nats != nil {
		s.nats = nats
	}
	return s
}

// Fund initiates a wallet top-up through the gateway checkout. The wallet is
// credited at settlement, not here.
func (s *WalletService) Fund(ctx context.Context, userID string, req *models.FundRequest) (*models.CheckoutResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	reference := newReference("fund")
	txn := &models.Transaction{
		Reference: reference,
		Type:      models.TransactionFund,
		Amount:    req.Amount,
		UserID:    userID,
	}
	if err := s.txns.CreatePending(ctx, s.db, txn); err != nil {
		return nil, err
	}

	resp, err := s.gateway.InitiatePayment(ctx, external.InitiateRequest{
		Customer: external.Customer{
			Email: user.Email,
			Name:  user.Name,
		},
		Amount:    req.Amount,
		Currency:  s.currency,
		Reference: reference,
		Processor: "kora",
		Narration: "Wallet funding",
	})
	if err != nil {
		s.monitor.TrackGatewayCall("initiate", "failure")
		if delErr := s.txns.Delete(ctx, s.db, reference); delErr != nil {
			logger.WithReference(reference).Error("Failed to roll back funding transaction",
				slog.String("error", delErr.Error()))
		}
		return nil, err
	}
	s.monitor.TrackGatewayCall("initiate", "success")

	logger.WithReference(reference).Info("Wallet funding initiated",
		slog.String("user_id", userID),
		slog.Int64("amount", req.Amount))
	return &models.CheckoutResponse{
		Reference:   reference,
		CheckoutURL: resp.CheckoutURL,
	}, nil
}

// Withdraw debits the caller's wallet and pays out to their bank account.
// The wallet row stays locked across the PIN check, the payout call and the
// debit, so concurrent withdrawals against the same balance serialize. The
// debit only happens after the rail accepts the payout; a rejected payout
// leaves the balance untouched and the transaction FAILED.
func (s *WalletService) Withdraw(ctx context.Context, userID string, req *models.WithdrawRequest) (*models.WithdrawResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	reference := newReference("withdraw")
	txn := &models.Transaction{
		Reference: reference,
		Type:      models.TransactionWithdraw,
		Amount:    req.Amount,
		UserID:    userID,
	}
	if err := s.txns.CreatePending(ctx, s.db, txn); err != nil {
		return nil, err
	}

	narration := req.Narration
	if narration == "" {
		narration = "Wallet withdrawal"
	}

	var payout *external.PayoutResponse
	err = s.db.WithinTx(ctx, func(tx *sql.Tx) error {
		wallet, err := s.wallets.GetForUpdate(ctx, tx, userID)
		if err != nil {
			return err
		}
		if wallet.PinHash == nil {
			return fmt.Errorf("wallet PIN is not set: %w", apperrors.ErrPermission)
		}
		if bcrypt.CompareHashAndPassword([]byte(*wallet.PinHash), []byte(req.Pin)) != nil {
			return fmt.Errorf("incorrect wallet PIN: %w", apperrors.ErrPermission)
		}
		if wallet.Balance < req.Amount {
			return fmt.Errorf("wallet %s: %w", userID, apperrors.ErrInsufficientFunds)
		}

		payout, err = s.payouts.Dispatch(ctx, reference, req.Amount, user,
			req.BankCode, req.AccountNumber, narration)
		if err != nil {
			return err
		}

		if err := s.wallets.Debit(ctx, tx, userID, req.Amount); err != nil {
			return err
		}
		_, err = s.txns.MarkSuccessIfPending(ctx, tx, reference)
		return err
	})
	if err != nil {
		if failErr := s.txns.MarkFailed(ctx, reference); failErr != nil {
			logger.WithReference(reference).Error("Failed to mark withdrawal failed",
				slog.String("error", failErr.Error()))
		}
		return nil, err
	}

	if s.nats != nil {
		event := models.WalletWithdrawnEvent{
			Reference: reference,
			UserID:    userID,
			Amount:    req.Amount,
			Timestamp: time.Now(),
		}
		if err := s.nats.Publish(models.EventWalletWithdrawn, event); err != nil {
			s.monitor.TrackPublishFailure()
			logger.WithReference(reference).Error("Failed to publish withdrawal event",
				slog.String("error", err.Error()))
		}
	}

	logger.WithReference(reference).Info("Withdrawal settled",
		slog.String("user_id", userID),
		slog.Int64("amount", req.Amount))
	return &models.WithdrawResponse{
		Message:   "withdrawal successful",
		Reference: reference,
		Payout:    payout,
	}, nil
}

// SetPin sets or rotates the wallet PIN. Rotating requires the old PIN.
func (s *WalletService) SetPin(ctx context.Context, userID string, req *models.SetPinRequest) error {
	if len(req.NewPin) < minPinLength {
		return fmt.Errorf("PIN must be at least %d characters: %w", minPinLength, apperrors.ErrInvariantViolation)
	}

	wallet, err := s.wallets.Get(ctx, userID)
	if err == nil && wallet.PinHash != nil {
		if req.OldPin == "" {
			return fmt.Errorf("current PIN required to change PIN: %w", apperrors.ErrPermission)
		}
		if bcrypt.CompareHashAndPassword([]byte(*wallet.PinHash), []byte(req.OldPin)) != nil {
			return fmt.Errorf("incorrect wallet PIN: %w", apperrors.ErrPermission)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPin), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash PIN: %w", err)
	}
	return s.wallets.SetPinHash(ctx, userID, string(hash))
}

// Balance reports the wallet balance; a user with no wallet yet has zero.
func (s *WalletService) Balance(ctx context.Context, userID string) (*models.BalanceResponse, error) {
	wallet, err := s.wallets.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return &models.BalanceResponse{Balance: 0}, nil
		}
		return nil, err
	}
	return &models.BalanceResponse{Balance: wallet.Balance}, nil
}

// HasPin reports whether the caller's wallet PIN is set.
func (s *WalletService) HasPin(ctx context.Context, userID string) (*models.HasPinResponse, error) {
	wallet, err := s.wallets.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return &models.HasPinResponse{HasPin: false}, nil
		}
		return nil, err
	}
	return &models.HasPinResponse{HasPin: wallet.PinHash != nil}, nil
}

// Transactions lists the caller's ledger history.
func (s *WalletService) Transactions(ctx context.Context, userID string) ([]models.Transaction, error) {
	return s.txns.GetByUserID(ctx, userID)
}

// Transaction reads one ledger entry, restricted to its owner.
func (s *WalletService) Transaction(ctx context.Context, userID, reference string) (*models.Transaction, error) {
	txn, err := s.txns.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if txn.UserID != userID {
		return nil, fmt.Errorf("transaction %s: %w", reference, apperrors.ErrNotFound)
	}
	return txn, nil
}
