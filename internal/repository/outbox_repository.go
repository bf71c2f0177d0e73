package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostCloseAction is one queued teardown step for a closed ticket. Actions
// are best-effort relative to ticket state: they run after the close commit
// and their failure never un-closes the ticket.
type PostCloseAction struct {
	ID       int64
	TicketID string
	Action   string
	Attempts int
}

// OutboxRepository drains the post-close action queue.
type OutboxRepository interface {
	ListPending(ctx context.Context, limit int) ([]PostCloseAction, error)
	MarkDone(ctx context.Context, id int64) error
	Reschedule(ctx context.Context, id int64, delay time.Duration) error
	Abandon(ctx context.Context, id int64) error
}

type outboxRepository struct {
	pool *pgxpool.Pool
}

// NewOutboxRepository instantiates the repository.
func NewOutboxRepository(pool *pgxpool.Pool) OutboxRepository {
	return &outboxRepository{pool: pool}
}

// ListPending returns due actions in insertion order, so the teardown steps
// of one ticket run in the order they were enqueued.
func (r *outboxRepository) ListPending(ctx context.Context, limit int) ([]PostCloseAction, error) {
	const query = `
        SELECT id, ticket_id, action, attempts FROM post_close_actions
        WHERE done_at IS NULL AND run_after <= NOW()
        ORDER BY id
        LIMIT $1`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actions []PostCloseAction
	for rows.Next() {
		var action PostCloseAction
		if err := rows.Scan(&action.ID, &action.TicketID, &action.Action, &action.Attempts); err != nil {
			return nil, err
		}
		actions = append(actions, action)
	}
	return actions, rows.Err()
}

func (r *outboxRepository) MarkDone(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `UPDATE post_close_actions SET done_at=NOW() WHERE id=$1`, id)
	return err
}

func (r *outboxRepository) Reschedule(ctx context.Context, id int64, delay time.Duration) error {
	const query = `UPDATE post_close_actions SET attempts=attempts+1, run_after=NOW()+$2 WHERE id=$1`
	_, err := r.pool.Exec(ctx, query, id, delay)
	return err
}

// Abandon marks an action done without success after its retries are spent.
func (r *outboxRepository) Abandon(ctx context.Context, id int64) error {
	const query = `UPDATE post_close_actions SET attempts=attempts+1, done_at=NOW() WHERE id=$1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}
