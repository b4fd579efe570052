package usecase

import (
	"context"
	"log/slog"

	"eventsaga/internal/domain/event"
	"eventsaga/internal/failure"
	"eventsaga/internal/publisher"
)

const (
	StepPublishWithdrawal = "publish_withdrawal"
	StepAuthorize         = "authorize"
	StepPublishDeposit    = "publish_deposit"
)

type SyncPublisher interface {
	Publish(ctx context.Context, topic, key string, payload event.Payload) (publisher.Receipt, error)
}

// Transfer moves money in three strictly sequential steps: the withdrawal event, a blocking
// authorization call, then the deposit event.
//
// Nothing is compensated. Once the withdrawal event is out it will be processed even if a later
// step fails; such failures are logged with compensation=none and counted.
type Transfer struct {
	publisher     SyncPublisher
	remote        Authorizer
	withdrawTopic string
	depositTopic  string
	logger        *slog.Logger
}

func NewTransfer(pub SyncPublisher, remote Authorizer, withdrawTopic, depositTopic string, logger *slog.Logger) *Transfer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Transfer{
		publisher:     pub,
		remote:        remote,
		withdrawTopic: withdrawTopic,
		depositTopic:  depositTopic,
		logger:        logger,
	}
}

type transferState struct {
	cmd       TransferCommand
	completed []string
}

func (s *transferState) done(step string) { s.completed = append(s.completed, step) }

func (s *transferState) has(step string) bool {
	for _, c := range s.completed {
		if c == step {
			return true
		}
	}
	return false
}

// Execute returns true when all steps completed. Any failure is a *failure.WorkflowError naming
// the step and is never retried here.
func (t *Transfer) Execute(ctx context.Context, cmd TransferCommand) (bool, error) {
	if err := cmd.Validate(); err != nil {
		return false, err
	}

	state := &transferState{cmd: cmd}
	movement := event.MoneyMovement{SenderID: cmd.SenderID, RecipientID: cmd.RecipientID, Amount: cmd.Amount}

	receipt, err := t.publisher.Publish(ctx, t.withdrawTopic, cmd.SenderID, event.WithdrawalRequested{MoneyMovement: movement})
	if err != nil {
		return false, t.fail(state, StepPublishWithdrawal, err)
	}
	state.done(StepPublishWithdrawal)
	t.logger.Info("withdrawal event published", "sender_id", cmd.SenderID, "partition", receipt.Partition, "offset", receipt.Offset)

	if err := t.remote.Authorize(ctx); err != nil {
		return false, t.fail(state, StepAuthorize, err)
	}
	state.done(StepAuthorize)

	receipt, err = t.publisher.Publish(ctx, t.depositTopic, cmd.RecipientID, event.DepositRequested{MoneyMovement: movement})
	if err != nil {
		return false, t.fail(state, StepPublishDeposit, err)
	}
	state.done(StepPublishDeposit)
	t.logger.Info("deposit event published", "recipient_id", cmd.RecipientID, "partition", receipt.Partition, "offset", receipt.Offset)

	transfersTotal.WithLabelValues("succeeded").Inc()
	return true, nil
}

func (t *Transfer) fail(state *transferState, step string, err error) error {
	transfersTotal.WithLabelValues("failed").Inc()

	log := t.logger.With(
		"sender_id", state.cmd.SenderID,
		"recipient_id", state.cmd.RecipientID,
		"amount", state.cmd.Amount.String(),
		"step", step,
		"completed", state.completed,
		"error", err,
	)
	if state.has(StepPublishWithdrawal) {
		uncompensatedWithdrawals.Inc()
		log.Error("transfer failed after withdrawal was published", "compensation", "none")
	} else {
		log.Error("transfer failed")
	}

	return &failure.WorkflowError{Workflow: "transfer", Step: step, Cause: err}
}
