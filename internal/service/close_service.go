package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/emberware/ticketbot/internal/archive"
	"github.com/emberware/ticketbot/internal/domain"
	"github.com/emberware/ticketbot/internal/observability"
	"github.com/emberware/ticketbot/internal/platform"
	"github.com/emberware/ticketbot/internal/repository"
	"github.com/emberware/ticketbot/internal/transcript"
	"github.com/emberware/ticketbot/pkg/util/errorutil"
)

const (
	maxTranscriptMessages = 1000
	historyPageSize       = 100
)

// Teardown actions enqueued at the close commit, executed by the post-close
// worker in this order.
const (
	ActionRevokeSend    = "revoke_send"
	ActionRenameChannel = "rename_channel"
	ActionNotice        = "notice"
	ActionDMOpener      = "dm_opener"
	ActionDMCloser      = "dm_closer"
	ActionDeleteChannel = "delete_channel"
)

var closeActions = []string{
	ActionRevokeSend,
	ActionRenameChannel,
	ActionNotice,
	ActionDMOpener,
	ActionDMCloser,
	ActionDeleteChannel,
}

// CloseService orchestrates the archival close pipeline: history retrieval,
// attachment migration, transcript rendering, and the single transactional
// commit that flips the ticket CLOSED. Everything after that commit is a
// queued best-effort teardown action.
type CloseService struct {
	tickets  repository.TicketRepository
	client   platform.Client
	archiver *archive.Archiver
	renderer *transcript.Renderer
	logger   *zap.Logger
	metrics  *observability.Metrics
	baseURL  string
	notify   func()
}

// CloseDependencies bundles collaborators for the close service.
type CloseDependencies struct {
	TicketRepo repository.TicketRepository
	Client     platform.Client
	Archiver   *archive.Archiver
	Renderer   *transcript.Renderer
	Logger     *zap.Logger
	Metrics    *observability.Metrics
	BaseURL    string
	// Notify nudges the post-close worker after a commit; optional.
	Notify func()
}

// NewCloseService constructs the service.
func NewCloseService(deps CloseDependencies) *CloseService {
	return &CloseService{
		tickets:  deps.TicketRepo,
		client:   deps.Client,
		archiver: deps.Archiver,
		renderer: deps.Renderer,
		logger:   deps.Logger,
		metrics:  deps.Metrics,
		baseURL:  deps.BaseURL,
		notify:   deps.Notify,
	}
}

// TranscriptURL returns the public page for a ticket's transcript.
func (s *CloseService) TranscriptURL(ticketID string) string {
	return fmt.Sprintf("%s/ticket/%s", s.baseURL, ticketID)
}

// Close runs the full archival pipeline for an OPEN ticket. Any failure
// before the commit aborts the attempt and leaves the ticket OPEN, so a
// retry re-runs the whole pipeline. Once the commit succeeds the ticket is
// irrevocably CLOSED regardless of what the teardown actions do.
func (s *CloseService) Close(ctx context.Context, ticket *domain.Ticket, closerID string, reason *string) error {
	if ticket == nil || ticket.Status != domain.TicketStatusOpen {
		return errorutil.NewConflict("ticket is already closed or does not exist", nil)
	}

	messages, err := s.fetchHistory(ctx, ticket.ChannelID)
	if err != nil {
		return errorutil.MapError(err)
	}

	rewrites := s.archiver.Archive(ctx, messages, ticket.ID, ticket.ChannelID)
	if n := len(rewrites); n > 0 {
		s.metrics.RecordPipeline("attachments_archived")
		s.logger.Info("attachments archived",
			zap.String("ticket_id", ticket.ID), zap.Int("count", n))
	}

	htmlBody := s.renderer.Render(messages, rewrites)

	closerName, err := s.client.MemberDisplayName(ctx, ticket.GuildID, closerID)
	if err != nil || closerName == "" {
		closerName = "Moderator"
	}

	err = s.tickets.Close(ctx, repository.CloseInput{
		TicketID:     ticket.ID,
		ClosedByID:   closerID,
		ClosedByName: closerName,
		Reason:       reason,
		HTML:         htmlBody,
		Actions:      closeActions,
	})
	if errors.Is(err, repository.ErrTicketNotOpen) {
		return errorutil.NewConflict("ticket is already closed or does not exist", nil)
	}
	if err != nil {
		return errorutil.MapError(err)
	}

	s.metrics.RecordPipeline("ticket_closed")
	s.logger.Info("ticket closed",
		zap.String("ticket_id", ticket.ID),
		zap.Int("number", ticket.Number),
		zap.String("closed_by", closerID),
	)

	if s.notify != nil {
		s.notify()
	}
	return nil
}

// ForceClose is the administrative status-only close. It routes through the
// same transactional authority as the UI path, writing a placeholder
// transcript so a CLOSED ticket always has one, but enqueues no platform
// teardown and never touches the channel.
func (s *CloseService) ForceClose(ctx context.Context, ticket *domain.Ticket, closerID string) error {
	if ticket == nil || ticket.Status != domain.TicketStatusOpen {
		return errorutil.NewConflict("ticket is already closed or does not exist", nil)
	}

	placeholder := fmt.Sprintf(
		`<div class="px-6 py-4 text-gray-500 italic">Ticket #%04d was closed administratively; no conversation was archived.</div>`,
		ticket.Number)

	err := s.tickets.Close(ctx, repository.CloseInput{
		TicketID:     ticket.ID,
		ClosedByID:   closerID,
		ClosedByName: "Administrator",
		HTML:         placeholder,
	})
	if errors.Is(err, repository.ErrTicketNotOpen) {
		return errorutil.NewConflict("ticket is already closed or does not exist", nil)
	}
	if err != nil {
		return errorutil.MapError(err)
	}

	s.metrics.RecordPipeline("ticket_force_closed")
	s.logger.Info("ticket force-closed",
		zap.String("ticket_id", ticket.ID), zap.String("closed_by", closerID))
	return nil
}

// fetchHistory pulls up to maxTranscriptMessages via paginated backward
// fetch, then re-sorts ascending by creation timestamp. Backward pagination
// returns reverse-chronological pages, so ordering is always by timestamp,
// never by retrieval order. The cap is a whole number of pages, so the loop
// stops exactly at the limit with the newest messages collected.
func (s *CloseService) fetchHistory(ctx context.Context, channelID string) ([]domain.ChannelMessage, error) {
	var all []domain.ChannelMessage
	before := ""

	for len(all) < maxTranscriptMessages {
		page, err := s.client.FetchMessagesPage(ctx, channelID, before, historyPageSize)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		all = append(all, page...)
		before = page[len(page)-1].ID
		if len(page) < historyPageSize {
			break
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})
	return all, nil
}
