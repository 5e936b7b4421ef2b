package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	apperrors "ticketer/internal/errors"
	"ticketer/internal/external"
	"ticketer/internal/models"
	"ticketer/internal/monitoring"
)

type fakeInitiator struct {
	err  error
	reqs []external.InitiateRequest
}

func (g *fakeInitiator) InitiatePayment(ctx context.Context, req external.InitiateRequest) (*external.InitiateResponse, error) {
	g.reqs = append(g.reqs, req)
	if g.err != nil {
		return nil, g.err
	}
	return &external.InitiateResponse{CheckoutURL: "https://checkout.example/pay"}, nil
}

type walletFixture struct {
	db        *fakeDB
	ledger    *fakeLedger
	wallets   *fakeWallets
	users     *fakeUsers
	gateway   *fakeInitiator
	rail      *fakeRail
	published *fakePublisher
	svc       *WalletService
}

func newWalletFixture() *walletFixture {
	f := &walletFixture{
		db:        &fakeDB{},
		ledger:    &fakeLedger{txns: make(map[string]*models.Transaction)},
		wallets:   &fakeWallets{wallets: make(map[string]*models.Wallet)},
		users:     &fakeUsers{users: make(map[string]*models.User)},
		gateway:   &fakeInitiator{},
		rail:      &fakeRail{},
		published: &fakePublisher{},
	}
	f.users.users["user-1"] = &models.User{ID: "user-1", Email: "user@example.com", Name: "User"}
	f.svc = &WalletService{
		db:       f.db,
		txns:     f.ledger,
		wallets:  f.wallets,
		users:    f.users,
		gateway:  f.gateway,
		payouts:  f.rail,
		nats:     f.published,
		monitor:  monitoring.NewMonitor(),
		currency: "NGN",
	}
	return f
}

func (f *walletFixture) seedWallet(t *testing.T, userID string, balance int64, pin string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.MinCost)
	require.NoError(t, err)
	pinHash := string(hash)
	f.wallets.wallets[userID] = &models.Wallet{UserID: userID, Balance: balance, PinHash: &pinHash}
}

// singleTransaction returns the only ledger entry, created by the call under
// test.
func (f *walletFixture) singleTransaction(t *testing.T) *models.Transaction {
	t.Helper()
	require.Len(t, f.ledger.txns, 1)
	for _, txn := range f.ledger.txns {
		return txn
	}
	return nil
}

func TestWithdrawInsufficientBalanceLeavesBalanceUnchanged(t *testing.T) {
	f := newWalletFixture()
	f.seedWallet(t, "user-1", 100, "1234")

	_, err := f.svc.Withdraw(context.Background(), "user-1", &models.WithdrawRequest{
		Amount:        500,
		Pin:           "1234",
		BankCode:      "058",
		AccountNumber: "0123456789",
	})
	assert.ErrorIs(t, err, apperrors.ErrInsufficientFunds)
	assert.Equal(t, int64(100), f.wallets.balance("user-1"))
	assert.Equal(t, 0, f.wallets.debits)
	assert.Empty(t, f.rail.dispatched)
	assert.Equal(t, models.StatusFailed, f.singleTransaction(t).Status)
}

func TestWithdrawWrongPin(t *testing.T) {
	f := newWalletFixture()
	f.seedWallet(t, "user-1", 1000, "1234")

	_, err := f.svc.Withdraw(context.Background(), "user-1", &models.WithdrawRequest{
		Amount:        500,
		Pin:           "9999",
		BankCode:      "058",
		AccountNumber: "0123456789",
	})
	assert.ErrorIs(t, err, apperrors.ErrPermission)
	assert.Equal(t, int64(1000), f.wallets.balance("user-1"))
	assert.Empty(t, f.rail.dispatched)
}

func TestWithdrawWithoutPinSet(t *testing.T) {
	f := newWalletFixture()
	f.wallets.wallets["user-1"] = &models.Wallet{UserID: "user-1", Balance: 1000}

	_, err := f.svc.Withdraw(context.Background(), "user-1", &models.WithdrawRequest{
		Amount:        500,
		Pin:           "1234",
		BankCode:      "058",
		AccountNumber: "0123456789",
	})
	assert.ErrorIs(t, err, apperrors.ErrPermission)
	assert.Empty(t, f.rail.dispatched)
}

func TestWithdrawRejectedPayoutMarksFailed(t *testing.T) {
	f := newWalletFixture()
	f.rail.err = errors.New("rail unavailable")
	f.seedWallet(t, "user-1", 1000, "1234")

	_, err := f.svc.Withdraw(context.Background(), "user-1", &models.WithdrawRequest{
		Amount:        500,
		Pin:           "1234",
		BankCode:      "058",
		AccountNumber: "0123456789",
	})
	require.Error(t, err)
	assert.Equal(t, int64(1000), f.wallets.balance("user-1"))
	assert.Equal(t, 0, f.wallets.debits)
	assert.Equal(t, models.StatusFailed, f.singleTransaction(t).Status)
	assert.Empty(t, f.published.subjects)
}

func TestWithdrawDebitsAfterAcceptedPayout(t *testing.T) {
	f := newWalletFixture()
	f.seedWallet(t, "user-1", 1000, "1234")

	resp, err := f.svc.Withdraw(context.Background(), "user-1", &models.WithdrawRequest{
		Amount:        400,
		Pin:           "1234",
		BankCode:      "058",
		AccountNumber: "0123456789",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Reference)
	assert.Equal(t, int64(600), f.wallets.balance("user-1"))
	assert.Len(t, f.rail.dispatched, 1)
	assert.Equal(t, models.StatusSuccess, f.singleTransaction(t).Status)
	assert.Equal(t, []string{models.EventWalletWithdrawn}, f.published.subjects)
}

func TestFundCreatesPendingAndReturnsCheckout(t *testing.T) {
	f := newWalletFixture()

	resp, err := f.svc.Fund(context.Background(), "user-1", &models.FundRequest{Amount: 5000})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.example/pay", resp.CheckoutURL)

	txn := f.singleTransaction(t)
	assert.Equal(t, models.StatusPending, txn.Status)
	assert.Equal(t, models.TransactionFund, txn.Type)
	assert.Equal(t, int64(5000), txn.Amount)
}

func TestFundRemovesPendingOnGatewayFailure(t *testing.T) {
	f := newWalletFixture()
	f.gateway.err = errors.New("gateway down")

	_, err := f.svc.Fund(context.Background(), "user-1", &models.FundRequest{Amount: 5000})
	require.Error(t, err)
	assert.Empty(t, f.ledger.txns)
}
