package service

import (
	"context"
	"fmt"
	"log/slog"

	"ticketer/internal/external"
	"ticketer/internal/logger"
	"ticketer/internal/models"
	"ticketer/internal/monitoring"
)

// PayoutDispatcher sends money out through the gateway's payout rail.
// References are deterministic so a retried dispatch cannot double-pay.
type PayoutDispatcher struct {
	gateway  *external.GatewayClient
	monitor  *monitoring.Monitor
	currency string
}

func NewPayoutDispatcher(gateway *external.GatewayClient, monitor *monitoring.Monitor, currency string) *PayoutDispatcher {
	return &PayoutDispatcher{
		gateway:  gateway,
		monitor:  monitor,
		currency: currency,
	}
}

// Dispatch initiates a payout to a bank account. The caller supplies the
// deterministic reference; the rail dedupes on it.
func (d *PayoutDispatcher) Dispatch(ctx context.Context, reference string, amount int64, recipient *models.User, bankCode, accountNumber, narration string) (*external.PayoutResponse, error) {
	log := logger.WithReference(reference)

	resp, err := d.gateway.InitiatePayout(ctx, external.PayoutRequest{
		Customer: external.Customer{
			Email: recipient.Email,
			Name:  recipient.Name,
		},
		Amount:   amount,
		Currency: d.currency,
		Destination: external.DestinationAccount{
			AccountNumber: accountNumber,
			BankCode:      bankCode,
		},
		Reference: reference,
		Narration: narration,
		Metadata: map[string]any{
			"user_id": recipient.ID,
		},
	})
	if err != nil {
		d.monitor.TrackPayout("error")
		log.Error("Payout dispatch failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to dispatch payout %s: %w", reference, err)
	}

	if !resp.Status {
		d.monitor.TrackPayout("rejected")
		log.Warn("Payout rejected by gateway", slog.String("message", resp.Message))
		return resp, fmt.Errorf("payout %s rejected: %s", reference, resp.Message)
	}

	d.monitor.TrackPayout("accepted")
	log.Info("Payout dispatched",
		slog.Int64("amount", amount),
		slog.String("bank_code", bankCode))
	return resp, nil
}

// ResalePayoutReference derives the per-ticket payout reference for a resale
// settlement. Deterministic so a replayed settlement reuses the same
// reference and the rail dedupes the transfer.
func ResalePayoutReference(txnReference, ticketID string) string {
	return fmt.Sprintf("resale_payout_%s_%s", txnReference, ticketID)
}
