package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/emberware/ticketbot/internal/api/dto"
	"github.com/emberware/ticketbot/internal/domain"
	"github.com/emberware/ticketbot/internal/repository"
	"github.com/emberware/ticketbot/internal/service"
	"github.com/emberware/ticketbot/pkg/util/errorutil"
)

// TicketsHandler serves the administrative ticket endpoints.
type TicketsHandler struct {
	tickets *service.TicketService
	closer  *service.CloseService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets *service.TicketService, closer *service.CloseService) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, closer: closer}
}

// List GET /api/tickets?status=&guildId=.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	filter := repository.TicketFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		status := domain.TicketStatus(statusStr)
		if status != domain.TicketStatusOpen && status != domain.TicketStatusClosed {
			return errorutil.NewValidationError("status must be OPEN or CLOSED", nil)
		}
		filter.Status = &status
	}
	if guildID := c.Query("guildId"); guildID != "" {
		filter.GuildID = &guildID
	}

	tickets, err := h.tickets.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.FromTicket(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// ForceClose POST /api/tickets/:channelId/close.
//
// Status-only close: flips the ticket CLOSED through the same transactional
// authority as the archival pipeline, with a placeholder transcript, without
// touching the platform channel.
func (h *TicketsHandler) ForceClose(c *fiber.Ctx) error {
	ticket, err := h.tickets.FindByChannel(c.UserContext(), c.Params("channelId"))
	if err != nil {
		return err
	}
	if ticket == nil {
		return errorutil.NewNotFound("ticket", nil)
	}
	if ticket.Status == domain.TicketStatusClosed {
		return c.JSON(fiber.Map{"data": dto.FromTicket(ticket)})
	}

	if err := h.closer.ForceClose(c.UserContext(), ticket, "api"); err != nil {
		return err
	}

	updated, err := h.tickets.GetByID(c.UserContext(), ticket.ID)
	if err != nil {
		return err
	}
	if updated == nil {
		return errorutil.NewNotFound("ticket", nil)
	}
	return c.JSON(fiber.Map{"data": dto.FromTicket(updated)})
}
