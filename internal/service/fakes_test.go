package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/emberware/ticketbot/internal/domain"
	"github.com/emberware/ticketbot/internal/repository"
)

type fakeTicketRepo struct {
	nextNumber int
	open       map[string]*domain.Ticket
	created    []*domain.Ticket
	closeCalls []repository.CloseInput
	closeErr   error
	createErr  error
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{open: make(map[string]*domain.Ticket)}
}

func (r *fakeTicketRepo) AllocateNumber(_ context.Context, _ string) (int, error) {
	r.nextNumber++
	return r.nextNumber, nil
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	if r.createErr != nil {
		return r.createErr
	}
	ticket.ID = fmt.Sprintf("ticket-%d", len(r.created)+1)
	r.created = append(r.created, ticket)
	r.open[ticket.GuildID+"/"+ticket.OpenerID] = ticket
	return nil
}

func (r *fakeTicketRepo) FindOpenByOpener(_ context.Context, guildID, openerID string) (*domain.Ticket, error) {
	return r.open[guildID+"/"+openerID], nil
}

func (r *fakeTicketRepo) FindByChannel(_ context.Context, channelID string) (*domain.Ticket, error) {
	for _, t := range r.created {
		if t.ChannelID == channelID {
			return t, nil
		}
	}
	return nil, nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	for _, t := range r.created {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, nil
}

func (r *fakeTicketRepo) List(_ context.Context, _ repository.TicketFilter) ([]domain.Ticket, error) {
	out := make([]domain.Ticket, 0, len(r.created))
	for _, t := range r.created {
		out = append(out, *t)
	}
	return out, nil
}

func (r *fakeTicketRepo) Close(_ context.Context, input repository.CloseInput) error {
	if r.closeErr != nil {
		return r.closeErr
	}
	r.closeCalls = append(r.closeCalls, input)
	return nil
}

func (r *fakeTicketRepo) GetTranscript(_ context.Context, _ string) (*domain.Transcript, error) {
	return nil, nil
}

type fakeClient struct {
	pages           [][]domain.ChannelMessage
	pageCalls       []string
	fetchErr        error
	createdChannels []string
	createErr       error
	deleted         []string
	welcomes        []string
	welcomeErr      error
	displayName     string
	displayNameErr  error
}

func (c *fakeClient) CreateTicketChannel(_ context.Context, _, name, _ string, _ []string) (string, error) {
	if c.createErr != nil {
		return "", c.createErr
	}
	c.createdChannels = append(c.createdChannels, name)
	return fmt.Sprintf("chan-%d", len(c.createdChannels)), nil
}

func (c *fakeClient) PostWelcome(_ context.Context, channelID, _ string, _ int, _ []string) error {
	if c.welcomeErr != nil {
		return c.welcomeErr
	}
	c.welcomes = append(c.welcomes, channelID)
	return nil
}

func (c *fakeClient) FetchMessagesPage(_ context.Context, _, beforeID string, _ int) ([]domain.ChannelMessage, error) {
	if c.fetchErr != nil {
		return nil, c.fetchErr
	}
	c.pageCalls = append(c.pageCalls, beforeID)
	if len(c.pages) == 0 {
		return nil, nil
	}
	page := c.pages[0]
	c.pages = c.pages[1:]
	return page, nil
}

func (c *fakeClient) MemberDisplayName(_ context.Context, _, _ string) (string, error) {
	if c.displayNameErr != nil {
		return "", c.displayNameErr
	}
	return c.displayName, nil
}

func (c *fakeClient) MemberRoles(_ context.Context, _, _ string) ([]string, error) {
	return nil, nil
}

func (c *fakeClient) RevokeSendMessages(_ context.Context, _, _ string) error { return nil }

func (c *fakeClient) RenameChannel(_ context.Context, _, _ string) error { return nil }

func (c *fakeClient) SendChannelMessage(_ context.Context, _, _ string) error { return nil }

func (c *fakeClient) SendDirectMessage(_ context.Context, _, _ string) error { return nil }

func (c *fakeClient) DeleteChannel(_ context.Context, channelID string) error {
	c.deleted = append(c.deleted, channelID)
	return nil
}

type fakeConfigRepo struct {
	roles []string
}

func (f *fakeConfigRepo) ListManagerRoles(context.Context, string) ([]string, error) {
	return f.roles, nil
}

func (f *fakeConfigRepo) AddManagerRole(context.Context, string, string) (bool, error) {
	return false, errors.New("not implemented")
}

func (f *fakeConfigRepo) RemoveManagerRole(context.Context, string, string) (bool, error) {
	return false, errors.New("not implemented")
}
