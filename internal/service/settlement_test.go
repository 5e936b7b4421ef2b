package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketer/internal/database"
	apperrors "ticketer/internal/errors"
	"ticketer/internal/external"
	"ticketer/internal/models"
	"ticketer/internal/monitoring"
)

// fakeTxRunner executes the unit of work directly and records whether it
// committed or rolled back.
type fakeTxRunner struct {
	commits   int
	rollbacks int
}

func (r *fakeTxRunner) WithinTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	if err := fn(nil); err != nil {
		r.rollbacks++
		return err
	}
	r.commits++
	return nil
}

// fakeDB adds the unused autocommit surface so it can stand in for the
// database handle.
type fakeDB struct {
	fakeTxRunner
}

func (*fakeDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return nil, nil
}

func (*fakeDB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return nil, nil
}

func (*fakeDB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return nil
}

type fakeLedger struct {
	txns map[string]*models.Transaction
}

func (l *fakeLedger) CreatePending(ctx context.Context, q database.Querier, txn *models.Transaction) error {
	if _, ok := l.txns[txn.Reference]; ok {
		return fmt.Errorf("reference %s: %w", txn.Reference, apperrors.ErrConflict)
	}
	txn.Status = models.StatusPending
	l.txns[txn.Reference] = txn
	return nil
}

func (l *fakeLedger) LockAndRead(ctx context.Context, q database.Querier, reference string) (*models.Transaction, error) {
	txn, ok := l.txns[reference]
	if !ok {
		return nil, fmt.Errorf("transaction %s: %w", reference, apperrors.ErrNotFound)
	}
	copied := *txn
	return &copied, nil
}

func (l *fakeLedger) MarkSuccessIfPending(ctx context.Context, q database.Querier, reference string) (bool, error) {
	txn, ok := l.txns[reference]
	if !ok || txn.Status != models.StatusPending {
		return false, nil
	}
	txn.Status = models.StatusSuccess
	return true, nil
}

func (l *fakeLedger) MarkFailed(ctx context.Context, reference string) error {
	if txn, ok := l.txns[reference]; ok && txn.Status == models.StatusPending {
		txn.Status = models.StatusFailed
	}
	return nil
}

func (l *fakeLedger) Delete(ctx context.Context, q database.Querier, reference string) error {
	delete(l.txns, reference)
	return nil
}

func (l *fakeLedger) GetByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	return l.LockAndRead(ctx, nil, reference)
}

func (l *fakeLedger) GetByUserID(ctx context.Context, userID string) ([]models.Transaction, error) {
	var txns []models.Transaction
	for _, txn := range l.txns {
		if txn.UserID == userID {
			txns = append(txns, *txn)
		}
	}
	return txns, nil
}

type fakeWallets struct {
	wallets map[string]*models.Wallet
	debits  int
}

func (w *fakeWallets) Credit(ctx context.Context, q database.Querier, userID string, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("credit amount %d is negative: %w", amount, apperrors.ErrInvariantViolation)
	}
	if w.wallets[userID] == nil {
		w.wallets[userID] = &models.Wallet{UserID: userID}
	}
	w.wallets[userID].Balance += amount
	return nil
}

func (w *fakeWallets) Debit(ctx context.Context, q database.Querier, userID string, amount int64) error {
	wallet, ok := w.wallets[userID]
	if !ok || wallet.Balance < amount {
		return fmt.Errorf("wallet %s: %w", userID, apperrors.ErrInsufficientFunds)
	}
	wallet.Balance -= amount
	w.debits++
	return nil
}

func (w *fakeWallets) Get(ctx context.Context, userID string) (*models.Wallet, error) {
	wallet, ok := w.wallets[userID]
	if !ok {
		return nil, fmt.Errorf("wallet %s: %w", userID, apperrors.ErrNotFound)
	}
	copied := *wallet
	return &copied, nil
}

func (w *fakeWallets) GetForUpdate(ctx context.Context, q database.Querier, userID string) (*models.Wallet, error) {
	return w.Get(ctx, userID)
}

func (w *fakeWallets) SetPinHash(ctx context.Context, userID, pinHash string) error {
	if w.wallets[userID] == nil {
		w.wallets[userID] = &models.Wallet{UserID: userID}
	}
	w.wallets[userID].PinHash = &pinHash
	return nil
}

func (w *fakeWallets) balance(userID string) int64 {
	if w.wallets[userID] == nil {
		return 0
	}
	return w.wallets[userID].Balance
}

type fakeInventory struct {
	tickets    map[string]*models.Ticket
	categories map[string]*models.TicketCategory
	transfers  int
}

func (i *fakeInventory) GetByIDsForUpdate(ctx context.Context, q database.Querier, ids []string) ([]models.Ticket, error) {
	tickets := make([]models.Ticket, 0, len(ids))
	for _, id := range ids {
		ticket, ok := i.tickets[id]
		if !ok {
			return nil, fmt.Errorf("one or more tickets missing: %w", apperrors.ErrNotFound)
		}
		tickets = append(tickets, *ticket)
	}
	return tickets, nil
}

func (i *fakeInventory) TransferOwnership(ctx context.Context, q database.Querier, ticketID, toUserID, newCode string) error {
	ticket, ok := i.tickets[ticketID]
	if !ok {
		return fmt.Errorf("ticket %s: %w", ticketID, apperrors.ErrNotFound)
	}
	if !ticket.IsListed {
		return fmt.Errorf("ticket %s is not listed for resale: %w", ticketID, apperrors.ErrPermission)
	}
	ticket.OwnerID = toUserID
	ticket.Code = newCode
	ticket.IsListed = false
	ticket.ResalePrice = nil
	ticket.BankCode = nil
	ticket.AccountNumber = nil
	ticket.ResaleCount++
	i.transfers++
	return nil
}

func (i *fakeInventory) GetCategory(ctx context.Context, categoryID string) (*models.TicketCategory, error) {
	category, ok := i.categories[categoryID]
	if !ok {
		return nil, fmt.Errorf("ticket category %s: %w", categoryID, apperrors.ErrNotFound)
	}
	copied := *category
	return &copied, nil
}

type fakeEvents struct {
	events map[string]*models.Event
}

func (e *fakeEvents) GetByID(ctx context.Context, id string) (*models.Event, error) {
	event, ok := e.events[id]
	if !ok {
		return nil, fmt.Errorf("event %s: %w", id, apperrors.ErrNotFound)
	}
	copied := *event
	return &copied, nil
}

type fakeUsers struct {
	users map[string]*models.User
}

func (u *fakeUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := u.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, apperrors.ErrNotFound)
	}
	copied := *user
	return &copied, nil
}

type fakeVerifier struct {
	err   error
	calls int
}

func (v *fakeVerifier) VerifyTransaction(ctx context.Context, reference string) (*external.VerifyResponse, error) {
	v.calls++
	if v.err != nil {
		return nil, v.err
	}
	return &external.VerifyResponse{Status: true, Message: "verification successful"}, nil
}

type fakeRail struct {
	err        error
	dispatched []string
}

func (r *fakeRail) Dispatch(ctx context.Context, reference string, amount int64, recipient *models.User, bankCode, accountNumber, narration string) (*external.PayoutResponse, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.dispatched = append(r.dispatched, reference)
	return &external.PayoutResponse{Status: true, Reference: reference}, nil
}

type fakePublisher struct {
	subjects []string
}

func (p *fakePublisher) Publish(subject string, data interface{}) error {
	p.subjects = append(p.subjects, subject)
	return nil
}

type settlementFixture struct {
	runner    *fakeTxRunner
	ledger    *fakeLedger
	wallets   *fakeWallets
	inventory *fakeInventory
	events    *fakeEvents
	users     *fakeUsers
	verifier  *fakeVerifier
	rail      *fakeRail
	published *fakePublisher
	svc       *SettlementService
}

func newSettlementFixture() *settlementFixture {
	f := &settlementFixture{
		runner:    &fakeTxRunner{},
		ledger:    &fakeLedger{txns: make(map[string]*models.Transaction)},
		wallets:   &fakeWallets{wallets: make(map[string]*models.Wallet)},
		inventory: &fakeInventory{tickets: make(map[string]*models.Ticket), categories: make(map[string]*models.TicketCategory)},
		events:    &fakeEvents{events: make(map[string]*models.Event)},
		users:     &fakeUsers{users: make(map[string]*models.User)},
		verifier:  &fakeVerifier{},
		rail:      &fakeRail{},
		published: &fakePublisher{},
	}
	f.svc = &SettlementService{
		db:      f.runner,
		txns:    f.ledger,
		wallets: f.wallets,
		tickets: f.inventory,
		events:  f.events,
		users:   f.users,
		gateway: f.verifier,
		payouts: f.rail,
		nats:    f.published,
		monitor: monitoring.NewMonitor(),
		adminID: "admin-1",
	}
	return f
}

func TestVerifyAndSettleFundCreditsExactlyOnce(t *testing.T) {
	f := newSettlementFixture()
	f.ledger.txns["fund_1"] = &models.Transaction{
		Reference: "fund_1",
		Type:      models.TransactionFund,
		Status:    models.StatusPending,
		Amount:    10000,
		UserID:    "user-1",
	}

	resp, err := f.svc.VerifyAndSettle(context.Background(), "fund_1")
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.False(t, resp.AlreadyProcessed)
	assert.Equal(t, int64(10000), f.wallets.balance("user-1"))
	assert.Equal(t, models.StatusSuccess, f.ledger.txns["fund_1"].Status)
	assert.Equal(t, []string{models.EventWalletFunded}, f.published.subjects)

	// A redelivered notification must not credit the wallet again.
	resp, err = f.svc.VerifyAndSettle(context.Background(), "fund_1")
	require.NoError(t, err)
	assert.True(t, resp.AlreadyProcessed)
	assert.Equal(t, int64(10000), f.wallets.balance("user-1"))
	assert.Len(t, f.published.subjects, 1)
}

func TestVerifyAndSettleFailedVerifyLeavesLedgerUntouched(t *testing.T) {
	f := newSettlementFixture()
	f.verifier.err = fmt.Errorf("gateway says no: %w", apperrors.ErrVerificationFailed)
	f.ledger.txns["fund_1"] = &models.Transaction{
		Reference: "fund_1",
		Type:      models.TransactionFund,
		Status:    models.StatusPending,
		Amount:    10000,
		UserID:    "user-1",
	}

	_, err := f.svc.VerifyAndSettle(context.Background(), "fund_1")
	assert.ErrorIs(t, err, apperrors.ErrVerificationFailed)
	assert.Equal(t, models.StatusPending, f.ledger.txns["fund_1"].Status)
	assert.Equal(t, 0, f.runner.commits)
	assert.Equal(t, int64(0), f.wallets.balance("user-1"))
	assert.Empty(t, f.published.subjects)
}

func TestVerifyAndSettlePurchaseSplitsProceeds(t *testing.T) {
	f := newSettlementFixture()
	f.events.events["event-1"] = &models.Event{ID: "event-1", Name: "Gig", OrganizerID: "org-1", PrimaryFeeBps: 1000}
	f.inventory.categories["cat-1"] = &models.TicketCategory{ID: "cat-1", EventID: "event-1", Name: "Regular", Price: 5000}
	f.inventory.tickets["tkt-1"] = &models.Ticket{ID: "tkt-1", Code: "TCK-1", EventID: "event-1", CategoryID: "cat-1", OwnerID: "buyer-1"}
	f.ledger.txns["purchase_1"] = &models.Transaction{
		Reference: "purchase_1",
		Type:      models.TransactionPurchase,
		Status:    models.StatusPending,
		Amount:    5000,
		EventID:   strPtr("event-1"),
		UserID:    "buyer-1",
		TicketIDs: []string{"tkt-1"},
	}

	resp, err := f.svc.VerifyAndSettle(context.Background(), "purchase_1")
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, int64(4500), f.wallets.balance("org-1"))
	assert.Equal(t, int64(500), f.wallets.balance("admin-1"))
	assert.Equal(t, []string{models.EventPurchaseSettled}, f.published.subjects)
}

func TestVerifyAndSettlePurchaseWithoutTicketsFails(t *testing.T) {
	f := newSettlementFixture()
	f.events.events["event-1"] = &models.Event{ID: "event-1", OrganizerID: "org-1", PrimaryFeeBps: 1000}
	f.ledger.txns["purchase_1"] = &models.Transaction{
		Reference: "purchase_1",
		Type:      models.TransactionPurchase,
		Status:    models.StatusPending,
		Amount:    5000,
		EventID:   strPtr("event-1"),
		UserID:    "buyer-1",
	}

	_, err := f.svc.VerifyAndSettle(context.Background(), "purchase_1")
	assert.ErrorIs(t, err, apperrors.ErrInvariantViolation)
	assert.Equal(t, 1, f.runner.rollbacks)
	assert.Equal(t, int64(0), f.wallets.balance("org-1"))
	assert.Empty(t, f.published.subjects)
}

func TestVerifyAndSettleResalePaysSellerThroughRail(t *testing.T) {
	f := newSettlementFixture()
	f.events.events["event-1"] = &models.Event{ID: "event-1", Name: "Gig", OrganizerID: "org-1", ResaleFeeBps: 500, RoyaltyFeeBps: 200}
	f.inventory.categories["cat-1"] = &models.TicketCategory{ID: "cat-1", EventID: "event-1", Name: "Regular", Price: 5000}
	f.inventory.tickets["tkt-1"] = &models.Ticket{
		ID:            "tkt-1",
		Code:          "TCK-1",
		EventID:       "event-1",
		CategoryID:    "cat-1",
		OwnerID:       "seller-1",
		IsListed:      true,
		ResalePrice:   int64Ptr(2000),
		BankCode:      strPtr("058"),
		AccountNumber: strPtr("0123456789"),
	}
	f.users.users["seller-1"] = &models.User{ID: "seller-1", Email: "seller@example.com", Name: "Seller"}
	f.ledger.txns["resale_1"] = &models.Transaction{
		Reference: "resale_1",
		Type:      models.TransactionResale,
		Status:    models.StatusPending,
		Amount:    2000,
		EventID:   strPtr("event-1"),
		UserID:    "buyer-1",
		TicketIDs: []string{"tkt-1"},
	}

	resp, err := f.svc.VerifyAndSettle(context.Background(), "resale_1")
	require.NoError(t, err)
	assert.True(t, resp.Success)

	// Seller is paid out over the rail, not credited in the wallet ledger.
	assert.Equal(t, []string{ResalePayoutReference("resale_1", "tkt-1")}, f.rail.dispatched)
	assert.Equal(t, int64(0), f.wallets.balance("seller-1"))
	assert.Equal(t, int64(40), f.wallets.balance("org-1"))
	assert.Equal(t, int64(100), f.wallets.balance("admin-1"))

	ticket := f.inventory.tickets["tkt-1"]
	assert.Equal(t, "buyer-1", ticket.OwnerID)
	assert.False(t, ticket.IsListed)
	assert.NotEqual(t, "TCK-1", ticket.Code)
	assert.Equal(t, []string{models.EventResaleSettled}, f.published.subjects)
}

func TestVerifyAndSettleResaleRolledBackByRejectedPayout(t *testing.T) {
	f := newSettlementFixture()
	f.rail.err = errors.New("rail unavailable")
	f.events.events["event-1"] = &models.Event{ID: "event-1", OrganizerID: "org-1", ResaleFeeBps: 500, RoyaltyFeeBps: 200}
	f.inventory.tickets["tkt-1"] = &models.Ticket{
		ID:            "tkt-1",
		EventID:       "event-1",
		CategoryID:    "cat-1",
		OwnerID:       "seller-1",
		IsListed:      true,
		ResalePrice:   int64Ptr(2000),
		BankCode:      strPtr("058"),
		AccountNumber: strPtr("0123456789"),
	}
	f.users.users["seller-1"] = &models.User{ID: "seller-1"}
	f.ledger.txns["resale_1"] = &models.Transaction{
		Reference: "resale_1",
		Type:      models.TransactionResale,
		Status:    models.StatusPending,
		Amount:    2000,
		EventID:   strPtr("event-1"),
		UserID:    "buyer-1",
		TicketIDs: []string{"tkt-1"},
	}

	_, err := f.svc.VerifyAndSettle(context.Background(), "resale_1")
	require.Error(t, err)
	assert.Equal(t, 1, f.runner.rollbacks)
	assert.Equal(t, int64(0), f.wallets.balance("org-1"))
	assert.Equal(t, int64(0), f.wallets.balance("admin-1"))
	assert.Empty(t, f.published.subjects)
}

func TestVerifyAndSettleFailedTransactionConflicts(t *testing.T) {
	f := newSettlementFixture()
	f.ledger.txns["fund_1"] = &models.Transaction{
		Reference: "fund_1",
		Type:      models.TransactionFund,
		Status:    models.StatusFailed,
		Amount:    10000,
		UserID:    "user-1",
	}

	_, err := f.svc.VerifyAndSettle(context.Background(), "fund_1")
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Equal(t, int64(0), f.wallets.balance("user-1"))
}

func TestVerifyAndSettleUnknownReference(t *testing.T) {
	f := newSettlementFixture()

	_, err := f.svc.VerifyAndSettle(context.Background(), "no_such_ref")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
