package bot

import "github.com/bwmarrin/discordgo"

// Commands defines the /tickets slash command tree.
func Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "tickets",
			Description: "Manage the ticket system",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        "setup-panel",
					Description: "Publish the ticket creation panel",
					Type:        discordgo.ApplicationCommandOptionSubCommand,
				},
				{
					Name:        "add-role",
					Description: "Add a role that handles tickets",
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Options: []*discordgo.ApplicationCommandOption{
						{Type: discordgo.ApplicationCommandOptionRole, Name: "role", Description: "Role", Required: true},
					},
				},
				{
					Name:        "remove-role",
					Description: "Remove a role that handles tickets",
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Options: []*discordgo.ApplicationCommandOption{
						{Type: discordgo.ApplicationCommandOptionRole, Name: "role", Description: "Role", Required: true},
					},
				},
				{
					Name:        "list-roles",
					Description: "List the roles that handle tickets",
					Type:        discordgo.ApplicationCommandOptionSubCommand,
				},
			},
		},
	}
}

// RegisterCommands overwrites the guild's slash commands with the current set.
func RegisterCommands(session *discordgo.Session, appID, guildID string) error {
	_, err := session.ApplicationCommandBulkOverwrite(appID, guildID, Commands())
	return err
}
