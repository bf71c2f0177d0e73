package worker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/emberware/ticketbot/internal/domain"
	"github.com/emberware/ticketbot/internal/observability"
	"github.com/emberware/ticketbot/internal/platform"
	"github.com/emberware/ticketbot/internal/repository"
	"github.com/emberware/ticketbot/internal/service"
)

const (
	pollInterval = 5 * time.Second
	batchSize    = 50
	maxAttempts  = 5
	retryBackoff = 30 * time.Second
)

// PostCloseWorker drains the teardown outbox written at the close commit.
// Each action is an independently retried, best-effort side effect: failures
// are logged and eventually abandoned, and never un-close the ticket.
type PostCloseWorker struct {
	outbox  repository.OutboxRepository
	tickets repository.TicketRepository
	client  platform.Client
	logger  *zap.Logger
	metrics *observability.Metrics
	baseURL string
	kick    chan struct{}
}

// NewPostCloseWorker constructs the worker.
func NewPostCloseWorker(outbox repository.OutboxRepository, tickets repository.TicketRepository, client platform.Client, logger *zap.Logger, metrics *observability.Metrics, baseURL string) *PostCloseWorker {
	return &PostCloseWorker{
		outbox:  outbox,
		tickets: tickets,
		client:  client,
		logger:  logger,
		metrics: metrics,
		baseURL: baseURL,
		kick:    make(chan struct{}, 1),
	}
}

// Notify wakes the worker ahead of the next poll tick. Non-blocking.
func (w *PostCloseWorker) Notify() {
	select {
	case w.kick <- struct{}{}:
	default:
	}
}

// Run polls until the context is cancelled.
func (w *PostCloseWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-w.kick:
		}
		w.drain(ctx)
	}
}

func (w *PostCloseWorker) drain(ctx context.Context) {
	actions, err := w.outbox.ListPending(ctx, batchSize)
	if err != nil {
		w.logger.Warn("outbox poll failed", zap.Error(err))
		return
	}

	for _, action := range actions {
		if ctx.Err() != nil {
			return
		}
		w.execute(ctx, action)
	}
}

func (w *PostCloseWorker) execute(ctx context.Context, action repository.PostCloseAction) {
	ticket, err := w.tickets.GetByID(ctx, action.TicketID)
	if err != nil || ticket == nil {
		w.logger.Warn("outbox action references unknown ticket",
			zap.Int64("action_id", action.ID), zap.String("ticket_id", action.TicketID), zap.Error(err))
		_ = w.outbox.Abandon(ctx, action.ID)
		return
	}

	if err := w.perform(ctx, action.Action, ticket); err != nil {
		w.metrics.RecordPipeline("teardown_failure")
		w.logger.Warn("post-close action failed",
			zap.Int64("action_id", action.ID),
			zap.String("action", action.Action),
			zap.String("ticket_id", ticket.ID),
			zap.Int("attempts", action.Attempts+1),
			zap.Error(err),
		)
		if action.Attempts+1 >= maxAttempts {
			_ = w.outbox.Abandon(ctx, action.ID)
		} else {
			_ = w.outbox.Reschedule(ctx, action.ID, retryBackoff*time.Duration(action.Attempts+1))
		}
		return
	}

	if err := w.outbox.MarkDone(ctx, action.ID); err != nil {
		w.logger.Warn("outbox mark-done failed", zap.Int64("action_id", action.ID), zap.Error(err))
	}
}

func (w *PostCloseWorker) perform(ctx context.Context, name string, ticket *domain.Ticket) error {
	switch name {
	case service.ActionRevokeSend:
		return w.client.RevokeSendMessages(ctx, ticket.ChannelID, ticket.OpenerID)
	case service.ActionRenameChannel:
		return w.client.RenameChannel(ctx, ticket.ChannelID, fmt.Sprintf("closed-%04d", ticket.Number))
	case service.ActionNotice:
		return w.client.SendChannelMessage(ctx, ticket.ChannelID, "🔒 Ticket closed. Transcript archived.")
	case service.ActionDMOpener:
		return w.client.SendDirectMessage(ctx, ticket.OpenerID, w.openerMessage(ticket))
	case service.ActionDMCloser:
		if ticket.ClosedByID == nil {
			return nil
		}
		return w.client.SendDirectMessage(ctx, *ticket.ClosedByID, w.closerMessage(ticket))
	case service.ActionDeleteChannel:
		return w.client.DeleteChannel(ctx, ticket.ChannelID)
	default:
		w.logger.Warn("unknown post-close action", zap.String("action", name))
		return nil
	}
}

func (w *PostCloseWorker) transcriptURL(ticket *domain.Ticket) string {
	return fmt.Sprintf("%s/ticket/%s", w.baseURL, ticket.ID)
}

func (w *PostCloseWorker) openerMessage(ticket *domain.Ticket) string {
	url := w.transcriptURL(ticket)
	if ticket.CloseReason != nil {
		return fmt.Sprintf("Your ticket #%d has been closed.\nReason: %s\nTranscript: %s",
			ticket.Number, *ticket.CloseReason, url)
	}
	return fmt.Sprintf("Your ticket #%d has been closed.\nTranscript: %s", ticket.Number, url)
}

func (w *PostCloseWorker) closerMessage(ticket *domain.Ticket) string {
	url := w.transcriptURL(ticket)
	if ticket.CloseReason != nil {
		return fmt.Sprintf("You closed ticket #%d.\nReason: %s\nTranscript: %s",
			ticket.Number, *ticket.CloseReason, url)
	}
	return fmt.Sprintf("You closed ticket #%d.\nTranscript: %s", ticket.Number, url)
}
