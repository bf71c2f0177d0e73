package domain

import "time"

// ChannelMessage is one message retrieved from a ticket channel, reduced to
// the fields the archival pipeline needs. The platform adapter maps gateway
// payloads into this shape so the core never imports the gateway library.
type ChannelMessage struct {
	ID          string
	AuthorName  string
	Content     string
	CreatedAt   time.Time
	Attachments []MessageAttachment
}

// MessageAttachment references one file attached to a channel message.
type MessageAttachment struct {
	URL         string
	Name        string
	ContentType string
}

// ArchivedAttachment describes where an attachment ended up after migration
// to durable storage. Keyed by original source URL in the rewrite map.
type ArchivedAttachment struct {
	URL         string
	ContentType string
	Name        string
}
