package dto

import (
	"time"

	"github.com/emberware/ticketbot/internal/domain"
)

// TicketResponse is the administrative view of a ticket.
type TicketResponse struct {
	ID           string              `json:"id"`
	Number       int                 `json:"number"`
	GuildID      string              `json:"guild_id"`
	ChannelID    string              `json:"channel_id"`
	OpenerID     string              `json:"opener_id"`
	OpenerName   string              `json:"opener_name"`
	Status       domain.TicketStatus `json:"status"`
	CreatedAt    time.Time           `json:"created_at"`
	ClosedAt     *time.Time          `json:"closed_at"`
	ClosedByID   *string             `json:"closed_by_id"`
	ClosedByName *string             `json:"closed_by_name"`
	CloseReason  *string             `json:"close_reason"`
}

// FromTicket maps a domain ticket to its response shape.
func FromTicket(ticket *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:           ticket.ID,
		Number:       ticket.Number,
		GuildID:      ticket.GuildID,
		ChannelID:    ticket.ChannelID,
		OpenerID:     ticket.OpenerID,
		OpenerName:   ticket.OpenerName,
		Status:       ticket.Status,
		CreatedAt:    ticket.CreatedAt,
		ClosedAt:     ticket.ClosedAt,
		ClosedByID:   ticket.ClosedByID,
		ClosedByName: ticket.ClosedByName,
		CloseReason:  ticket.CloseReason,
	}
}
