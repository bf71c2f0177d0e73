package platform

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/emberware/ticketbot/internal/domain"
)

// Component custom IDs shared between the welcome/panel builders here and the
// interaction router.
const (
	ButtonOpenID       = "ticket_open_btn"
	ButtonCloseNopID   = "ticket_close_nop"
	ButtonCloseWithID  = "ticket_close_with"
	ModalCloseReasonID = "ticket_close_reason_modal"
)

const memberPermissions = discordgo.PermissionViewChannel |
	discordgo.PermissionSendMessages |
	discordgo.PermissionReadMessageHistory |
	discordgo.PermissionAttachFiles |
	discordgo.PermissionEmbedLinks

// Discord implements Client over a discordgo session.
type Discord struct {
	session    *discordgo.Session
	categoryID string
}

// NewDiscord wraps an open session. categoryID is the parent category ticket
// channels are created under.
func NewDiscord(session *discordgo.Session, categoryID string) *Discord {
	return &Discord{session: session, categoryID: categoryID}
}

func (d *Discord) CreateTicketChannel(_ context.Context, guildID, name, openerID string, managerRoleIDs []string) (string, error) {
	overwrites := []*discordgo.PermissionOverwrite{
		{ID: guildID, Type: discordgo.PermissionOverwriteTypeRole, Deny: discordgo.PermissionViewChannel},
	}
	for _, roleID := range managerRoleIDs {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:    roleID,
			Type:  discordgo.PermissionOverwriteTypeRole,
			Allow: memberPermissions,
		})
	}
	overwrites = append(overwrites, &discordgo.PermissionOverwrite{
		ID:    openerID,
		Type:  discordgo.PermissionOverwriteTypeMember,
		Allow: memberPermissions,
	})

	ch, err := d.session.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:                 name,
		Type:                 discordgo.ChannelTypeGuildText,
		ParentID:             d.categoryID,
		PermissionOverwrites: overwrites,
	})
	if err != nil {
		return "", err
	}
	return ch.ID, nil
}

func (d *Discord) PostWelcome(_ context.Context, channelID, openerID string, number int, managerRoleIDs []string) error {
	mentions := make([]string, 0, len(managerRoleIDs))
	for _, roleID := range managerRoleIDs {
		mentions = append(mentions, fmt.Sprintf("<@&%s>", roleID))
	}

	content := fmt.Sprintf(
		"👋 Welcome <@%s>! This is your ticket **#%d**.\nStaff handling it: %s\n\nWhen your issue is resolved, use one of the buttons below:",
		openerID, number, strings.Join(mentions, ", "))

	_, err := d.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content:    content,
		Components: []discordgo.MessageComponent{CloseButtonRow()},
	})
	return err
}

// PublishPanel posts the open-a-ticket panel message to a channel.
func (d *Discord) PublishPanel(channelID string) error {
	_, err := d.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content:    "Click to create a ticket:",
		Components: []discordgo.MessageComponent{OpenPanelRow()},
	})
	return err
}

func (d *Discord) FetchMessagesPage(_ context.Context, channelID, beforeID string, limit int) ([]domain.ChannelMessage, error) {
	msgs, err := d.session.ChannelMessages(channelID, limit, beforeID, "", "")
	if err != nil {
		return nil, err
	}

	page := make([]domain.ChannelMessage, 0, len(msgs))
	for _, m := range msgs {
		attachments := make([]domain.MessageAttachment, 0, len(m.Attachments))
		for _, a := range m.Attachments {
			attachments = append(attachments, domain.MessageAttachment{
				URL:         a.URL,
				Name:        a.Filename,
				ContentType: a.ContentType,
			})
		}
		page = append(page, domain.ChannelMessage{
			ID:          m.ID,
			AuthorName:  messageAuthorName(m),
			Content:     m.Content,
			CreatedAt:   m.Timestamp,
			Attachments: attachments,
		})
	}
	return page, nil
}

func (d *Discord) MemberDisplayName(_ context.Context, guildID, userID string) (string, error) {
	member, err := d.session.GuildMember(guildID, userID)
	if err != nil {
		return "", err
	}
	if member.Nick != "" {
		return member.Nick, nil
	}
	if member.User != nil {
		if member.User.GlobalName != "" {
			return member.User.GlobalName, nil
		}
		return member.User.Username, nil
	}
	return "", nil
}

func (d *Discord) MemberRoles(_ context.Context, guildID, userID string) ([]string, error) {
	member, err := d.session.GuildMember(guildID, userID)
	if err != nil {
		return nil, err
	}
	return member.Roles, nil
}

// RevokeSendMessages keeps the opener's read access but removes their ability
// to post in the closed channel.
func (d *Discord) RevokeSendMessages(_ context.Context, channelID, userID string) error {
	allow := discordgo.PermissionViewChannel | discordgo.PermissionReadMessageHistory
	return d.session.ChannelPermissionSet(channelID, userID,
		discordgo.PermissionOverwriteTypeMember, int64(allow), discordgo.PermissionSendMessages)
}

func (d *Discord) RenameChannel(_ context.Context, channelID, name string) error {
	_, err := d.session.ChannelEdit(channelID, &discordgo.ChannelEdit{Name: name})
	return err
}

func (d *Discord) SendChannelMessage(_ context.Context, channelID, content string) error {
	_, err := d.session.ChannelMessageSend(channelID, content)
	return err
}

func (d *Discord) SendDirectMessage(_ context.Context, userID, content string) error {
	dm, err := d.session.UserChannelCreate(userID)
	if err != nil {
		return err
	}
	_, err = d.session.ChannelMessageSend(dm.ID, content)
	return err
}

func (d *Discord) DeleteChannel(_ context.Context, channelID string) error {
	_, err := d.session.ChannelDelete(channelID)
	return err
}

// OpenPanelRow builds the panel's open button.
func OpenPanelRow() discordgo.MessageComponent {
	return discordgo.ActionsRow{
		Components: []discordgo.MessageComponent{
			discordgo.Button{
				Label:    "📨 Create ticket",
				Style:    discordgo.PrimaryButton,
				CustomID: ButtonOpenID,
			},
		},
	}
}

// CloseButtonRow builds the two close buttons shown in a ticket channel.
func CloseButtonRow() discordgo.MessageComponent {
	return discordgo.ActionsRow{
		Components: []discordgo.MessageComponent{
			discordgo.Button{
				Label:    "🔒 Close (no reason)",
				Style:    discordgo.SecondaryButton,
				CustomID: ButtonCloseNopID,
			},
			discordgo.Button{
				Label:    "📝 Close with reason",
				Style:    discordgo.DangerButton,
				CustomID: ButtonCloseWithID,
			},
		},
	}
}

func messageAuthorName(m *discordgo.Message) string {
	if m.Member != nil && m.Member.Nick != "" {
		return m.Member.Nick
	}
	if m.Author != nil {
		if m.Author.GlobalName != "" {
			return m.Author.GlobalName
		}
		return m.Author.Username
	}
	return "User"
}
