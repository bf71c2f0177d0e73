package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen   TicketStatus = "OPEN"
	TicketStatusClosed TicketStatus = "CLOSED"
)

// Ticket is the aggregate for one support case: one private channel, one
// lifecycle from OPEN to CLOSED. CLOSED is terminal; there is no reopen path.
type Ticket struct {
	ID           string
	Number       int
	GuildID      string
	ChannelID    string
	OpenerID     string
	OpenerName   string
	Status       TicketStatus
	CreatedAt    time.Time
	ClosedAt     *time.Time
	ClosedByID   *string
	ClosedByName *string
	CloseReason  *string
}
