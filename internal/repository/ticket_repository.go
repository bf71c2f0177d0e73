package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/emberware/ticketbot/internal/domain"
)

// ErrOpenTicketExists is returned when an opener already has an OPEN ticket
// in the guild.
var ErrOpenTicketExists = errors.New("opener already has an open ticket")

// ErrTicketNotOpen is returned by Close when the ticket is missing or
// already CLOSED. CLOSED is terminal, so this also guards double closes
// that race past the caller's precondition check.
var ErrTicketNotOpen = errors.New("ticket is not open")

// TicketFilter captures administrative listing parameters.
type TicketFilter struct {
	Status  *domain.TicketStatus
	GuildID *string
}

// TicketRepository is the authoritative data-access layer over tickets and
// transcripts. It owns numbering and status transitions.
type TicketRepository interface {
	AllocateNumber(ctx context.Context, guildID string) (int, error)
	Create(ctx context.Context, ticket *domain.Ticket) error
	FindOpenByOpener(ctx context.Context, guildID, openerID string) (*domain.Ticket, error)
	FindByChannel(ctx context.Context, channelID string) (*domain.Ticket, error)
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	Close(ctx context.Context, input CloseInput) error
	GetTranscript(ctx context.Context, ticketID string) (*domain.Transcript, error)
}

// CloseInput carries everything the OPEN→CLOSED transition persists in one
// atomic unit: the ticket mutation, the transcript upsert and the post-close
// action outbox.
type CloseInput struct {
	TicketID     string
	ClosedByID   string
	ClosedByName string
	Reason       *string
	HTML         string
	Actions      []string
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates the repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, number, guild_id, channel_id, opener_id, opener_name,
       status, created_at, closed_at, closed_by_id, closed_by_name, close_reason`

// AllocateNumber increments and returns the guild's ticket counter as a
// single atomic statement at the datastore, eliminating the read-then-write
// race of computing max(number)+1 in application code. Numbers are unique
// and monotonic; a failed open after allocation leaves a gap, which is
// accepted.
func (r *ticketRepository) AllocateNumber(ctx context.Context, guildID string) (int, error) {
	const query = `
        INSERT INTO guild_counters (guild_id, last_number) VALUES ($1, 1)
        ON CONFLICT (guild_id) DO UPDATE SET last_number = guild_counters.last_number + 1
        RETURNING last_number`
	var number int
	if err := r.pool.QueryRow(ctx, query, guildID).Scan(&number); err != nil {
		return 0, err
	}
	return number, nil
}

// Create inserts a new OPEN ticket. The partial unique index on
// (guild_id, opener_id) WHERE status='OPEN' backs the one-open-ticket
// invariant; a violation surfaces as ErrOpenTicketExists.
func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	const query = `
        INSERT INTO tickets (id, number, guild_id, channel_id, opener_id, opener_name, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING created_at`
	err := r.pool.QueryRow(ctx, query,
		ticket.ID,
		ticket.Number,
		ticket.GuildID,
		ticket.ChannelID,
		ticket.OpenerID,
		ticket.OpenerName,
		ticket.Status,
	).Scan(&ticket.CreatedAt)
	if isUniqueViolation(err) {
		return ErrOpenTicketExists
	}
	return err
}

// FindOpenByOpener returns the opener's OPEN ticket in the guild, or nil when
// there is none. Absence is a normal outcome, not an error.
func (r *ticketRepository) FindOpenByOpener(ctx context.Context, guildID, openerID string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE guild_id=$1 AND opener_id=$2 AND status='OPEN'`, ticketColumns)
	return r.fetchSingle(ctx, query, guildID, openerID)
}

// FindByChannel returns the most recent ticket bound to a channel, or nil.
func (r *ticketRepository) FindByChannel(ctx context.Context, channelID string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE channel_id=$1 ORDER BY created_at DESC LIMIT 1`, ticketColumns)
	return r.fetchSingle(ctx, query, channelID)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1`, ticketColumns)
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&ticket.ID,
		&ticket.Number,
		&ticket.GuildID,
		&ticket.ChannelID,
		&ticket.OpenerID,
		&ticket.OpenerName,
		&ticket.Status,
		&ticket.CreatedAt,
		&ticket.ClosedAt,
		&ticket.ClosedByID,
		&ticket.ClosedByName,
		&ticket.CloseReason,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.GuildID != nil {
		args = append(args, *filter.GuildID)
		clauses = append(clauses, fmt.Sprintf("guild_id=$%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC`,
		ticketColumns, strings.Join(clauses, " AND "))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.Number,
			&ticket.GuildID,
			&ticket.ChannelID,
			&ticket.OpenerID,
			&ticket.OpenerName,
			&ticket.Status,
			&ticket.CreatedAt,
			&ticket.ClosedAt,
			&ticket.ClosedByID,
			&ticket.ClosedByName,
			&ticket.CloseReason,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

// Close performs the OPEN→CLOSED transition, the transcript upsert and the
// outbox insert in one transaction. This is the durability boundary: once it
// commits the ticket is irrevocably CLOSED and the transcript retrievable.
func (r *ticketRepository) Close(ctx context.Context, input CloseInput) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const transcriptQuery = `
        INSERT INTO ticket_transcripts (ticket_id, html) VALUES ($1, $2)
        ON CONFLICT (ticket_id) DO UPDATE SET html = EXCLUDED.html`
	if _, err := tx.Exec(ctx, transcriptQuery, input.TicketID, input.HTML); err != nil {
		return err
	}

	const updateQuery = `
        UPDATE tickets SET status='CLOSED', closed_at=NOW(), closed_by_id=$1,
            closed_by_name=$2, close_reason=$3
        WHERE id=$4 AND status='OPEN'`
	cmd, err := tx.Exec(ctx, updateQuery,
		input.ClosedByID,
		input.ClosedByName,
		input.Reason,
		input.TicketID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrTicketNotOpen
	}

	for _, action := range input.Actions {
		const actionQuery = `INSERT INTO post_close_actions (ticket_id, action) VALUES ($1, $2)`
		if _, err := tx.Exec(ctx, actionQuery, input.TicketID, action); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *ticketRepository) GetTranscript(ctx context.Context, ticketID string) (*domain.Transcript, error) {
	const query = `SELECT ticket_id, html FROM ticket_transcripts WHERE ticket_id=$1`
	var transcript domain.Transcript
	err := r.pool.QueryRow(ctx, query, ticketID).Scan(&transcript.TicketID, &transcript.HTML)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &transcript, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
