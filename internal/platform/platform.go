package platform

import (
	"context"

	"github.com/emberware/ticketbot/internal/domain"
)

// Client is the slice of the chat platform the ticket system depends on: a
// component that can create and tear down a private channel, adjust a single
// permission overwrite, and deliver messages. The platform owns the channels;
// every call here may fail without corrupting ticket state.
type Client interface {
	// CreateTicketChannel provisions a private text channel with three
	// overwrite groups: deny-everyone, allow each manager role, allow the
	// opener. Returns the new channel ID.
	CreateTicketChannel(ctx context.Context, guildID, name, openerID string, managerRoleIDs []string) (string, error)

	// PostWelcome sends the in-channel greeting with the close-button row.
	PostWelcome(ctx context.Context, channelID, openerID string, number int, managerRoleIDs []string) error

	// FetchMessagesPage retrieves up to limit messages older than beforeID
	// (all newest when beforeID is empty), newest first. The caller is
	// responsible for re-sorting by creation time.
	FetchMessagesPage(ctx context.Context, channelID, beforeID string, limit int) ([]domain.ChannelMessage, error)

	// MemberDisplayName resolves a member's display name.
	MemberDisplayName(ctx context.Context, guildID, userID string) (string, error)

	// MemberRoles lists the role IDs a member holds.
	MemberRoles(ctx context.Context, guildID, userID string) ([]string, error)

	RevokeSendMessages(ctx context.Context, channelID, userID string) error
	RenameChannel(ctx context.Context, channelID, name string) error
	SendChannelMessage(ctx context.Context, channelID, content string) error
	SendDirectMessage(ctx context.Context, userID, content string) error
	DeleteChannel(ctx context.Context, channelID string) error
}
