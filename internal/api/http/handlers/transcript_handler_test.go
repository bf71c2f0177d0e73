package handlers

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/emberware/ticketbot/internal/domain"
	"github.com/emberware/ticketbot/internal/observability"
	"github.com/emberware/ticketbot/internal/repository"
	"github.com/emberware/ticketbot/internal/service"
)

type fakeTicketRepo struct {
	ticket     *domain.Ticket
	transcript *domain.Transcript
	queried    bool
}

func (f *fakeTicketRepo) AllocateNumber(context.Context, string) (int, error) { return 0, nil }

func (f *fakeTicketRepo) Create(context.Context, *domain.Ticket) error { return nil }

func (f *fakeTicketRepo) FindOpenByOpener(context.Context, string, string) (*domain.Ticket, error) {
	return nil, nil
}

func (f *fakeTicketRepo) FindByChannel(context.Context, string) (*domain.Ticket, error) {
	return nil, nil
}

func (f *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	f.queried = true
	if f.ticket != nil && f.ticket.ID == id {
		return f.ticket, nil
	}
	return nil, nil
}

func (f *fakeTicketRepo) List(context.Context, repository.TicketFilter) ([]domain.Ticket, error) {
	return nil, nil
}

func (f *fakeTicketRepo) Close(context.Context, repository.CloseInput) error { return nil }

func (f *fakeTicketRepo) GetTranscript(_ context.Context, ticketID string) (*domain.Transcript, error) {
	f.queried = true
	if f.transcript != nil && f.transcript.TicketID == ticketID {
		return f.transcript, nil
	}
	return nil, nil
}

func newTranscriptApp(repo repository.TicketRepository) *fiber.App {
	tickets := service.NewTicketService(service.TicketDependencies{
		TicketRepo: repo,
		Logger:     zap.NewNop(),
		Metrics:    observability.NewMetrics(),
	})
	app := fiber.New()
	app.Get("/ticket/:id", NewTranscriptHandler(tickets).Show)
	return app
}

func TestShow_MalformedIDIsNotFound(t *testing.T) {
	repo := &fakeTicketRepo{}
	app := newTranscriptApp(repo)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/ticket/abc", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "Transcript not found.", string(body))
	assert.False(t, repo.queried, "a malformed id must never reach the datastore")
}

func TestShow_UnknownIDIsNotFound(t *testing.T) {
	app := newTranscriptApp(&fakeTicketRepo{})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet,
		"/ticket/3f1e7c2a-9d4b-4a6f-8c1d-2e5b7a9f0c3d", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestShow_RendersStoredTranscript(t *testing.T) {
	const id = "3f1e7c2a-9d4b-4a6f-8c1d-2e5b7a9f0c3d"
	reason := "resolved"
	repo := &fakeTicketRepo{
		ticket: &domain.Ticket{
			ID:          id,
			Number:      7,
			OpenerName:  "alice",
			Status:      domain.TicketStatusClosed,
			CloseReason: &reason,
		},
		transcript: &domain.Transcript{TicketID: id, HTML: `<div class="px-6 py-4">hello</div>`},
	}
	app := newTranscriptApp(repo)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/ticket/"+id, nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "Ticket #0007")
	assert.Contains(t, string(body), "hello")
	assert.Contains(t, string(body), "Close reason: resolved")
}
