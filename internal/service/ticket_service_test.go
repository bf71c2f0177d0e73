package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/emberware/ticketbot/internal/observability"
	"github.com/emberware/ticketbot/internal/ratelimit"
	"github.com/emberware/ticketbot/internal/repository"
	"github.com/emberware/ticketbot/internal/roles"
	"github.com/emberware/ticketbot/pkg/util/errorutil"
)

func newOpenFixture(repo *fakeTicketRepo, client *fakeClient, clock func() time.Time) *TicketService {
	if clock == nil {
		clock = time.Now
	}
	return NewTicketService(TicketDependencies{
		TicketRepo: repo,
		Resolver:   roles.NewResolver(&fakeConfigRepo{roles: []string{"mgr-role"}}, nil),
		Limiter:    ratelimit.NewLimiter(ratelimit.NewMemoryStore(), 60*time.Second, clock),
		Client:     client,
		Logger:     zap.NewNop(),
		Metrics:    observability.NewMetrics(),
	})
}

func TestOpen_CreatesTicketWithSequentialNumbers(t *testing.T) {
	repo := newFakeTicketRepo()
	client := &fakeClient{displayName: "Alice"}
	svc := newOpenFixture(repo, client, nil)

	ticket, err := svc.Open(context.Background(), "guild-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, ticket.Number)
	assert.Equal(t, "Alice", ticket.OpenerName)
	assert.Equal(t, []string{"ticket-0001"}, client.createdChannels)
	assert.Equal(t, []string{ticket.ChannelID}, client.welcomes)

	ticket2, err := svc.Open(context.Background(), "guild-1", "user-2")
	require.NoError(t, err)
	assert.Equal(t, 2, ticket2.Number)
	assert.Contains(t, client.createdChannels, "ticket-0002")
}

func TestOpen_RateLimited(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := newFakeTicketRepo()
	svc := newOpenFixture(repo, &fakeClient{displayName: "Alice"}, func() time.Time { return now })

	_, err := svc.Open(context.Background(), "guild-1", "user-1")
	require.NoError(t, err)

	// Simulate the close between attempts so only the cooldown blocks.
	delete(repo.open, "guild-1/user-1")

	_, err = svc.Open(context.Background(), "guild-1", "user-1")
	require.Error(t, err)

	var de *errorutil.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "RATE_LIMITED", de.Code)
	assert.Equal(t, 60, de.Details["retry_after_seconds"])
}

func TestOpen_RejectsSecondOpenTicket(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := newFakeTicketRepo()
	clock := func() time.Time { return now }
	svc := newOpenFixture(repo, &fakeClient{displayName: "Alice"}, clock)

	first, err := svc.Open(context.Background(), "guild-1", "user-1")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = svc.Open(context.Background(), "guild-1", "user-1")
	require.Error(t, err)

	var de *errorutil.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "CONFLICT", de.Code)
	assert.Equal(t, first.ChannelID, de.Details["channel_id"],
		"the conflict should point the opener at their existing channel")
}

func TestOpen_CleansUpChannelWhenInsertFails(t *testing.T) {
	repo := newFakeTicketRepo()
	repo.createErr = repository.ErrOpenTicketExists
	client := &fakeClient{displayName: "Alice"}
	svc := newOpenFixture(repo, client, nil)

	_, err := svc.Open(context.Background(), "guild-1", "user-1")
	require.Error(t, err)

	var de *errorutil.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "CONFLICT", de.Code)
	assert.Equal(t, []string{"chan-1"}, client.deleted,
		"the provisioned channel must not be left orphaned")
}

func TestOpen_ChannelCreationFailureLeavesNoTicket(t *testing.T) {
	repo := newFakeTicketRepo()
	client := &fakeClient{createErr: errors.New("platform error")}
	svc := newOpenFixture(repo, client, nil)

	_, err := svc.Open(context.Background(), "guild-1", "user-1")
	require.Error(t, err)
	assert.Empty(t, repo.created)
}

func TestOpen_DisplayNameFallback(t *testing.T) {
	repo := newFakeTicketRepo()
	client := &fakeClient{displayNameErr: errors.New("unknown member")}
	svc := newOpenFixture(repo, client, nil)

	ticket, err := svc.Open(context.Background(), "guild-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, "User", ticket.OpenerName)
}

func TestOpen_WelcomeFailureDoesNotFailOpen(t *testing.T) {
	repo := newFakeTicketRepo()
	client := &fakeClient{displayName: "Alice", welcomeErr: errors.New("send failed")}
	svc := newOpenFixture(repo, client, nil)

	ticket, err := svc.Open(context.Background(), "guild-1", "user-1")
	require.NoError(t, err)
	assert.NotNil(t, ticket)
}
