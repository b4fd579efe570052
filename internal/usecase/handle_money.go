package usecase

import (
	"context"
	"log/slog"

	"eventsaga/internal/domain/event"
	"eventsaga/internal/failure"
)

// HandleWithdrawal only acknowledges receipt; balances are not modelled.
type HandleWithdrawal struct {
	logger *slog.Logger
}

func NewHandleWithdrawal(logger *slog.Logger) *HandleWithdrawal {
	if logger == nil {
		logger = slog.Default()
	}
	return &HandleWithdrawal{logger: logger}
}

func (h *HandleWithdrawal) Handle(_ context.Context, env event.Envelope) error {
	w, ok := env.Payload.(event.WithdrawalRequested)
	if !ok {
		return failure.Malformedf("handle withdrawal", "unexpected payload %T", env.Payload)
	}
	h.logger.Info("withdrawal request received",
		"message_id", env.MessageID,
		"sender_id", w.SenderID,
		"recipient_id", w.RecipientID,
		"amount", w.Amount.String(),
	)
	return nil
}

// HandleDeposit only acknowledges receipt.
type HandleDeposit struct {
	logger *slog.Logger
}

func NewHandleDeposit(logger *slog.Logger) *HandleDeposit {
	if logger == nil {
		logger = slog.Default()
	}
	return &HandleDeposit{logger: logger}
}

func (h *HandleDeposit) Handle(_ context.Context, env event.Envelope) error {
	d, ok := env.Payload.(event.DepositRequested)
	if !ok {
		return failure.Malformedf("handle deposit", "unexpected payload %T", env.Payload)
	}
	h.logger.Info("deposit request received",
		"message_id", env.MessageID,
		"sender_id", d.SenderID,
		"recipient_id", d.RecipientID,
		"amount", d.Amount.String(),
	)
	return nil
}
