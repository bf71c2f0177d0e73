package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/emberware/ticketbot/internal/domain"
	"github.com/emberware/ticketbot/internal/platform"
	"github.com/emberware/ticketbot/internal/repository"
	"github.com/emberware/ticketbot/internal/roles"
	"github.com/emberware/ticketbot/internal/service"
	"github.com/emberware/ticketbot/pkg/util/errorutil"
)

// Bot routes Discord interactions (buttons, modal, slash commands) to the
// ticket services. Everything here is glue: the lifecycle rules live in the
// service layer.
type Bot struct {
	session        *discordgo.Session
	discord        *platform.Discord
	tickets        *service.TicketService
	closer         *service.CloseService
	resolver       *roles.Resolver
	configs        repository.GuildConfigRepository
	logger         *zap.Logger
	panelChannelID string
}

// Dependencies bundles collaborators for the bot.
type Dependencies struct {
	Session        *discordgo.Session
	Discord        *platform.Discord
	Tickets        *service.TicketService
	Closer         *service.CloseService
	Resolver       *roles.Resolver
	Configs        repository.GuildConfigRepository
	Logger         *zap.Logger
	PanelChannelID string
}

// New constructs the bot and attaches its gateway handlers.
func New(deps Dependencies) *Bot {
	b := &Bot{
		session:        deps.Session,
		discord:        deps.Discord,
		tickets:        deps.Tickets,
		closer:         deps.Closer,
		resolver:       deps.Resolver,
		configs:        deps.Configs,
		logger:         deps.Logger,
		panelChannelID: deps.PanelChannelID,
	}

	b.session.AddHandler(func(s *discordgo.Session, _ *discordgo.Ready) {
		b.logger.Info("logged in", zap.String("user", s.State.User.String()))
	})
	b.session.AddHandler(b.onInteraction)
	b.session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentMessageContent

	return b
}

// Start opens the gateway connection.
func (b *Bot) Start() error {
	return b.session.Open()
}

// Stop closes the gateway connection.
func (b *Bot) Stop() {
	_ = b.session.Close()
}

func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("interaction handler panicked", zap.Any("panic", r))
			b.respond(i, "An error occurred while processing the interaction.")
		}
	}()

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		data := i.ApplicationCommandData()
		if data.Name != "tickets" || len(data.Options) == 0 {
			return
		}
		switch data.Options[0].Name {
		case "setup-panel":
			b.handleSetupPanel(s, i)
		case "add-role":
			b.handleAddRole(s, i)
		case "remove-role":
			b.handleRemoveRole(s, i)
		case "list-roles":
			b.handleListRoles(i)
		}
	case discordgo.InteractionMessageComponent:
		switch i.MessageComponentData().CustomID {
		case platform.ButtonOpenID:
			b.handleOpenTicket(i)
		case platform.ButtonCloseNopID:
			b.handleCloseTicket(i, nil)
		case platform.ButtonCloseWithID:
			b.handleCloseReasonModal(i)
		}
	case discordgo.InteractionModalSubmit:
		if i.ModalSubmitData().CustomID == platform.ModalCloseReasonID {
			b.handleCloseWithReason(i)
		}
	}
}

func (b *Bot) handleOpenTicket(i *discordgo.InteractionCreate) {
	if i.GuildID == "" || i.Member == nil {
		b.respond(i, "Use this on a server.")
		return
	}
	b.deferReply(i)

	ticket, err := b.tickets.Open(context.Background(), i.GuildID, i.Member.User.ID)
	if err != nil {
		b.editReply(i, openFailureMessage(err))
		return
	}
	b.editReply(i, fmt.Sprintf("✅ Ticket created: <#%s>", ticket.ChannelID))
}

func openFailureMessage(err error) string {
	domainErr := errorutil.ToDomainError(err)
	switch domainErr.Code {
	case "RATE_LIMITED":
		if secs, ok := domainErr.Details["retry_after_seconds"].(int); ok {
			return fmt.Sprintf("⏳ You can create a new ticket in %ds.", secs)
		}
		return "⏳ Please wait a moment before creating another ticket."
	case "CONFLICT":
		if channelID, ok := domainErr.Details["channel_id"].(string); ok {
			return fmt.Sprintf("You already have an open ticket: <#%s>", channelID)
		}
		return "You already have an open ticket."
	default:
		return "An error occurred while creating the ticket."
	}
}

func (b *Bot) handleCloseTicket(i *discordgo.InteractionCreate, reason *string) {
	if i.GuildID == "" || i.Member == nil {
		return
	}
	b.deferReply(i)

	ctx := context.Background()
	ticket, err := b.tickets.FindByChannel(ctx, i.ChannelID)
	if err != nil {
		b.editReply(i, "An error occurred while closing the ticket.")
		return
	}
	if ticket == nil || ticket.Status != domain.TicketStatusOpen {
		b.editReply(i, "This ticket is already closed or does not exist.")
		return
	}

	if !b.isManager(ctx, i) {
		b.editReply(i, "You are not allowed to close this ticket.")
		return
	}

	if err := b.closer.Close(ctx, ticket, i.Member.User.ID, reason); err != nil {
		b.logger.Error("close pipeline failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
		b.editReply(i, closeFailureMessage(err))
		return
	}
	if reason != nil {
		b.editReply(i, "✅ Ticket closed (with reason).")
	} else {
		b.editReply(i, "✅ Ticket closed.")
	}
}

func (b *Bot) handleCloseReasonModal(i *discordgo.InteractionCreate) {
	if i.GuildID == "" || i.Member == nil {
		return
	}
	if !b.isManager(context.Background(), i) {
		b.respond(i, "You are not allowed to close this ticket.")
		return
	}

	err := b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: platform.ModalCloseReasonID,
			Title:    "Ticket close reason",
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.TextInput{
							CustomID:  "reason",
							Label:     "Reason (required)",
							Style:     discordgo.TextInputParagraph,
							Required:  true,
							MaxLength: 1000,
						},
					},
				},
			},
		},
	})
	if err != nil {
		b.logger.Warn("modal open failed", zap.Error(err))
	}
}

func (b *Bot) handleCloseWithReason(i *discordgo.InteractionCreate) {
	reason := strings.TrimSpace(modalInputValue(i.ModalSubmitData(), "reason"))
	if reason == "" {
		reason = "(no reason)"
	}
	b.handleCloseTicket(i, &reason)
}

func closeFailureMessage(err error) string {
	domainErr := errorutil.ToDomainError(err)
	if domainErr.Code == "CONFLICT" {
		return "This ticket is already closed or does not exist."
	}
	return "An error occurred while closing the ticket."
}

func (b *Bot) handleSetupPanel(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID == "" || i.Member == nil {
		b.respond(i, "Use this on a server.")
		return
	}
	b.deferReply(i)

	if !b.isManager(context.Background(), i) {
		b.editReply(i, "You are not allowed to configure the ticket system.")
		return
	}

	ch, err := s.Channel(b.panelChannelID)
	if err != nil || ch.Type != discordgo.ChannelTypeGuildText {
		b.editReply(i, "Invalid PANEL_CHANNEL_ID (not a text channel).")
		return
	}

	perms, err := s.UserChannelPermissions(s.State.User.ID, ch.ID)
	needed := int64(discordgo.PermissionViewChannel |
		discordgo.PermissionSendMessages |
		discordgo.PermissionEmbedLinks |
		discordgo.PermissionAttachFiles)
	if err != nil || perms&needed != needed {
		b.editReply(i, "The bot lacks permissions on the panel channel (needs ViewChannel, SendMessages, EmbedLinks, AttachFiles).")
		return
	}

	if err := b.discord.PublishPanel(ch.ID); err != nil {
		b.logger.Warn("panel publish failed", zap.Error(err))
		b.editReply(i, "Failed to publish the panel.")
		return
	}
	b.editReply(i, "✅ Panel published.")
}

func (b *Bot) handleAddRole(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID == "" || i.Member == nil {
		return
	}
	b.deferReply(i)

	ctx := context.Background()
	if !b.isManager(ctx, i) {
		b.editReply(i, "You are not allowed to add roles.")
		return
	}

	role := subcommandRole(s, i)
	if role == nil {
		b.editReply(i, "Role option missing.")
		return
	}

	added, err := b.configs.AddManagerRole(ctx, i.GuildID, role.ID)
	if err != nil {
		b.editReply(i, "An error occurred while adding the role.")
		return
	}
	if !added {
		b.editReply(i, fmt.Sprintf("Role <@&%s> is already on the list.", role.ID))
		return
	}
	b.editReply(i, fmt.Sprintf("✅ Added role <@&%s> to the manager list.", role.ID))
}

func (b *Bot) handleRemoveRole(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID == "" || i.Member == nil {
		return
	}
	b.deferReply(i)

	ctx := context.Background()
	if !b.isManager(ctx, i) {
		b.editReply(i, "You are not allowed to remove roles.")
		return
	}

	role := subcommandRole(s, i)
	if role == nil {
		b.editReply(i, "Role option missing.")
		return
	}

	removed, err := b.configs.RemoveManagerRole(ctx, i.GuildID, role.ID)
	if err != nil {
		b.editReply(i, "An error occurred while removing the role.")
		return
	}
	if !removed {
		b.editReply(i, "⚠️ No such role configured for this guild.")
		return
	}
	b.editReply(i, fmt.Sprintf("✅ Removed role <@&%s> from the manager list.", role.ID))
}

func (b *Bot) handleListRoles(i *discordgo.InteractionCreate) {
	if i.GuildID == "" {
		return
	}
	b.deferReply(i)

	managerRoles, err := b.resolver.RolesFor(context.Background(), i.GuildID)
	if err != nil {
		b.editReply(i, "An error occurred while listing roles.")
		return
	}
	if len(managerRoles) == 0 {
		b.editReply(i, "No manager roles configured.")
		return
	}

	mentions := make([]string, 0, len(managerRoles))
	for _, id := range managerRoles {
		mentions = append(mentions, fmt.Sprintf("<@&%s>", id))
	}
	b.editReply(i, "📋 Ticket manager roles:\n"+strings.Join(mentions, "\n"))
}

func (b *Bot) isManager(ctx context.Context, i *discordgo.InteractionCreate) bool {
	ok, err := b.resolver.IsManager(ctx, i.GuildID, i.Member.Roles)
	if err != nil {
		b.logger.Warn("manager check failed", zap.Error(err))
		return false
	}
	return ok
}

func (b *Bot) respond(i *discordgo.InteractionCreate, content string) {
	err := b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil && !errors.Is(err, discordgo.ErrUnauthorized) {
		b.logger.Warn("interaction respond failed", zap.Error(err))
	}
}

func (b *Bot) deferReply(i *discordgo.InteractionCreate) {
	err := b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
	if err != nil {
		b.logger.Warn("interaction defer failed", zap.Error(err))
	}
}

func (b *Bot) editReply(i *discordgo.InteractionCreate, content string) {
	_, err := b.session.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Content: &content,
	})
	if err != nil {
		b.logger.Warn("interaction edit failed", zap.Error(err))
	}
}

func subcommandRole(s *discordgo.Session, i *discordgo.InteractionCreate) *discordgo.Role {
	data := i.ApplicationCommandData()
	if len(data.Options) == 0 {
		return nil
	}
	for _, opt := range data.Options[0].Options {
		if opt.Name == "role" && opt.Type == discordgo.ApplicationCommandOptionRole {
			return opt.RoleValue(s, i.GuildID)
		}
	}
	return nil
}

func modalInputValue(data discordgo.ModalSubmitInteractionData, customID string) string {
	for _, row := range data.Components {
		actionsRow, ok := row.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, comp := range actionsRow.Components {
			if input, ok := comp.(*discordgo.TextInput); ok && input.CustomID == customID {
				return input.Value
			}
		}
	}
	return ""
}
