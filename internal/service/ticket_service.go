package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/emberware/ticketbot/internal/domain"
	"github.com/emberware/ticketbot/internal/observability"
	"github.com/emberware/ticketbot/internal/platform"
	"github.com/emberware/ticketbot/internal/ratelimit"
	"github.com/emberware/ticketbot/internal/repository"
	"github.com/emberware/ticketbot/internal/roles"
	"github.com/emberware/ticketbot/pkg/util/errorutil"
)

// TicketService coordinates the ticket opening workflow and the
// administrative queries.
type TicketService struct {
	tickets  repository.TicketRepository
	resolver *roles.Resolver
	limiter  *ratelimit.Limiter
	client   platform.Client
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	Resolver   *roles.Resolver
	Limiter    *ratelimit.Limiter
	Client     platform.Client
	Logger     *zap.Logger
	Metrics    *observability.Metrics
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:  deps.TicketRepo,
		resolver: deps.Resolver,
		limiter:  deps.Limiter,
		client:   deps.Client,
		logger:   deps.Logger,
		metrics:  deps.Metrics,
	}
}

// Open creates a ticket for the opener: cooldown gate, duplicate-open check,
// channel provisioning with the three overwrite groups, then the row insert.
// The assigned number comes from an atomic datastore increment, so concurrent
// opens in a guild never share a number.
func (s *TicketService) Open(ctx context.Context, guildID, openerID string) (*domain.Ticket, error) {
	if allowed, retryAfter := s.limiter.TryAcquire(ctx, openerID); !allowed {
		seconds := int(retryAfter.Seconds())
		if seconds < 1 {
			seconds = 1
		}
		return nil, errorutil.NewRateLimited("ticket creation cooldown active",
			map[string]any{"retry_after_seconds": seconds})
	}

	existing, err := s.tickets.FindOpenByOpener(ctx, guildID, openerID)
	if err != nil {
		return nil, errorutil.MapError(err)
	}
	if existing != nil {
		return nil, errorutil.NewConflict("opener already has an open ticket",
			map[string]any{"channel_id": existing.ChannelID})
	}

	number, err := s.tickets.AllocateNumber(ctx, guildID)
	if err != nil {
		return nil, errorutil.MapError(err)
	}

	managerRoles, err := s.resolver.RolesFor(ctx, guildID)
	if err != nil {
		return nil, errorutil.MapError(err)
	}

	name := fmt.Sprintf("ticket-%04d", number)
	channelID, err := s.client.CreateTicketChannel(ctx, guildID, name, openerID, managerRoles)
	if err != nil {
		return nil, errorutil.MapError(err)
	}

	openerName, err := s.client.MemberDisplayName(ctx, guildID, openerID)
	if err != nil || openerName == "" {
		openerName = "User"
	}

	ticket := &domain.Ticket{
		Number:     number,
		GuildID:    guildID,
		ChannelID:  channelID,
		OpenerID:   openerID,
		OpenerName: openerName,
		Status:     domain.TicketStatusOpen,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		// The channel exists but the row does not; drop the channel so the
		// opener is not left with an untracked ticket.
		if delErr := s.client.DeleteChannel(ctx, channelID); delErr != nil {
			s.logger.Warn("orphaned ticket channel cleanup failed",
				zap.String("channel_id", channelID), zap.Error(delErr))
		}
		if errors.Is(err, repository.ErrOpenTicketExists) {
			return nil, errorutil.NewConflict("opener already has an open ticket", nil)
		}
		return nil, errorutil.MapError(err)
	}

	if err := s.client.PostWelcome(ctx, channelID, openerID, ticket.Number, managerRoles); err != nil {
		s.logger.Warn("welcome message failed",
			zap.String("channel_id", channelID), zap.Error(err))
	}

	s.metrics.RecordPipeline("ticket_opened")
	s.logger.Info("ticket opened",
		zap.String("ticket_id", ticket.ID),
		zap.Int("number", ticket.Number),
		zap.String("opener_id", openerID),
	)
	return ticket, nil
}

// FindByChannel looks up the ticket bound to a channel; nil when absent.
func (s *TicketService) FindByChannel(ctx context.Context, channelID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.FindByChannel(ctx, channelID)
	if err != nil {
		return nil, errorutil.MapError(err)
	}
	return ticket, nil
}

// List returns tickets matching the administrative filter.
func (s *TicketService) List(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	tickets, err := s.tickets.List(ctx, filter)
	if err != nil {
		return nil, errorutil.MapError(err)
	}
	return tickets, nil
}

// GetTranscript fetches the stored transcript for a ticket; nil when absent.
func (s *TicketService) GetTranscript(ctx context.Context, ticketID string) (*domain.Transcript, error) {
	transcript, err := s.tickets.GetTranscript(ctx, ticketID)
	if err != nil {
		return nil, errorutil.MapError(err)
	}
	return transcript, nil
}

// GetByID fetches a ticket; nil when absent.
func (s *TicketService) GetByID(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, errorutil.MapError(err)
	}
	return ticket, nil
}
