package domain

// GuildConfig holds the per-guild manager role override. When the list is
// empty the statically configured default roles apply instead; the two are
// never merged.
type GuildConfig struct {
	GuildID        string
	ManagerRoleIDs []string
}

// Transcript is the rendered, durable HTML record of a ticket's conversation.
// At most one exists per ticket.
type Transcript struct {
	TicketID string
	HTML     string
}
