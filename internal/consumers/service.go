package consumers

import (
	"context"
	"log/slog"

	"ticketer/internal/config"
	"ticketer/internal/database"
	"ticketer/internal/external"
	"ticketer/internal/messaging"
	"ticketer/internal/models"
	"ticketer/internal/repository"
)

type ConsumerService struct {
	db       *database.DB
	nats     *messaging.NATSClient
	repos    *repository.Repositories
	handlers *Handlers
}

func NewConsumerService(cfg *config.Config) (*ConsumerService, error) {
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, err
	}

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		return nil, err
	}

	repos := repository.NewRepositories(db)
	notificationClient := external.NewNotificationClient(cfg.Notification)
	handlers := NewHandlers(repos, notificationClient)

	return &ConsumerService{
		db:       db,
		nats:     natsClient,
		repos:    repos,
		handlers: handlers,
	}, nil
}

func (cs *ConsumerService) Start() error {
	slog.Info("Starting settlement consumers...")

	_, err := cs.nats.SubscribeQueue(models.EventPurchaseSettled, "notifications", cs.handlers.HandlePurchaseSettled)
	if err != nil {
		return err
	}

	_, err = cs.nats.SubscribeQueue(models.EventResaleSettled, "notifications", cs.handlers.HandleResaleSettled)
	if err != nil {
		return err
	}

	_, err = cs.nats.SubscribeQueue(models.EventWalletFunded, "notifications", cs.handlers.HandleWalletFunded)
	if err != nil {
		return err
	}

	_, err = cs.nats.SubscribeQueue(models.EventWalletWithdrawn, "notifications", cs.handlers.HandleWalletWithdrawn)
	if err != nil {
		return err
	}

	slog.Info("All consumers started successfully")
	return nil
}

func (cs *ConsumerService) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down consumer service...")

	if cs.nats != nil {
		if err := cs.nats.Close(); err != nil {
			slog.Error("Error closing NATS connection", "error", err)
		}
	}

	if cs.db != nil {
		if err := cs.db.Close(); err != nil {
			slog.Error("Error closing database connection", "error", err)
			return err
		}
	}

	return nil
}
