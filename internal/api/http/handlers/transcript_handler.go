package handlers

import (
	"fmt"
	"html"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/emberware/ticketbot/internal/service"
)

// TranscriptHandler serves the public transcript pages.
type TranscriptHandler struct {
	tickets *service.TicketService
}

// NewTranscriptHandler constructs handler.
func NewTranscriptHandler(tickets *service.TicketService) *TranscriptHandler {
	return &TranscriptHandler{tickets: tickets}
}

// Show GET /ticket/:id renders the stored transcript HTML as a page.
func (h *TranscriptHandler) Show(c *fiber.Ctx) error {
	ticketID := c.Params("id")
	// Ticket ids are UUIDs; anything else is a plain miss, not a query error.
	if _, err := uuid.Parse(ticketID); err != nil {
		c.Status(fiber.StatusNotFound)
		return c.SendString("Transcript not found.")
	}

	ticket, err := h.tickets.GetByID(c.UserContext(), ticketID)
	if err != nil {
		return err
	}
	transcript, err := h.tickets.GetTranscript(c.UserContext(), ticketID)
	if err != nil {
		return err
	}
	if ticket == nil || transcript == nil {
		c.Status(fiber.StatusNotFound)
		return c.SendString("Transcript not found.")
	}

	header := fmt.Sprintf("Ticket #%04d, opened by %s", ticket.Number, html.EscapeString(ticket.OpenerName))
	sub := ""
	if ticket.CloseReason != nil {
		sub = fmt.Sprintf(`<p class="text-sm text-gray-600">Close reason: %s</p>`, html.EscapeString(*ticket.CloseReason))
	}

	page := fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>Ticket #%04d</title>
  <script src="https://cdn.tailwindcss.com"></script>
</head>
<body class="bg-orange-50 text-gray-900">
  <div class="mx-auto max-w-3xl py-8">
    <div class="rounded-2xl bg-white shadow">
      <div class="border-b border-orange-100 px-6 py-4">
        <h1 class="text-lg font-semibold">%s</h1>
        %s
      </div>
      %s
    </div>
  </div>
</body>
</html>`, ticket.Number, header, sub, transcript.HTML)

	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.SendString(page)
}
