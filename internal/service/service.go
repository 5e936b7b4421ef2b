package service

import (
	"ticketer/internal/cache"
	"ticketer/internal/config"
	"ticketer/internal/external"
	"ticketer/internal/messaging"
	"ticketer/internal/monitoring"
	"ticketer/internal/repository"
	"ticketer/internal/search"
)

// Services aggregates the settlement engine's service layer.
type Services struct {
	Settlement *SettlementService
	Tickets    *TicketService
	Wallets    *WalletService
	Payouts    *PayoutDispatcher
}

func NewServices(
	cfg *config.Config,
	repos *repository.Repositories,
	gateway *external.GatewayClient,
	nats *messaging.NATSClient,
	settlementCache *cache.SettlementCache,
	listings *search.ListingsClient,
	monitor *monitoring.Monitor,
) *Services {
	payouts := NewPayoutDispatcher(gateway, monitor, cfg.Platform.Currency)

	return &Services{
		Settlement: NewSettlementService(repos, gateway, payouts, nats, settlementCache, listings, monitor, cfg.Platform.AdminUserID),
		Tickets:    NewTicketService(repos, gateway, listings, monitor, cfg.Platform.Currency),
		Wallets:    NewWalletService(repos, gateway, payouts, nats, monitor, cfg.Platform.Currency),
		Payouts:    payouts,
	}
}
