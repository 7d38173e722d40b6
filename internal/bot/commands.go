package bot

import "github.com/bwmarrin/discordgo"

const (
	cmdAlert       = "alert"
	cmdAlertPanel  = "alert_panel"
	cmdAlertReport = "alert_report"
	cmdAddGuild    = "add_guild"
	cmdDeleteGuild = "delete_guild"
	cmdListGuilds  = "list_guilds"
)

func commandDefinitions() []*discordgo.ApplicationCommand {
	admin := int64(discordgo.PermissionAdministrator)
	manage := int64(discordgo.PermissionManageMessages)

	guildOption := func(description string) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Type:         discordgo.ApplicationCommandOptionString,
			Name:         "guild",
			Description:  description,
			Required:     true,
			Autocomplete: true,
		}
	}

	return []*discordgo.ApplicationCommand{
		{
			Name:        cmdAlert,
			Description: "Send a defense alert for a guild",
			DescriptionLocalizations: &map[discordgo.Locale]string{
				discordgo.French:    "Envoyer une alerte défense pour une guilde",
				discordgo.EnglishUS: "Send a defense alert for a guild",
			},
			Options: []*discordgo.ApplicationCommandOption{guildOption("Guild under attack")},
		},
		{
			Name:        cmdAlertPanel,
			Description: "Refresh the defense panel",
			DescriptionLocalizations: &map[discordgo.Locale]string{
				discordgo.French:    "Rafraîchir le panneau de défense",
				discordgo.EnglishUS: "Refresh the defense panel",
			},
			DefaultMemberPermissions: &manage,
		},
		{
			Name:        cmdAlertReport,
			Description: "Alerts sent over the last 7 days",
			DescriptionLocalizations: &map[discordgo.Locale]string{
				discordgo.French:    "Alertes envoyées sur les 7 derniers jours",
				discordgo.EnglishUS: "Alerts sent over the last 7 days",
			},
			DefaultMemberPermissions: &manage,
		},
		{
			Name:        cmdAddGuild,
			Description: "Add or update a guild",
			DescriptionLocalizations: &map[discordgo.Locale]string{
				discordgo.French:    "Ajouter ou modifier une guilde",
				discordgo.EnglishUS: "Add or update a guild",
			},
			DefaultMemberPermissions: &admin,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "name",
					Description: "Guild name",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionRole,
					Name:        "role",
					Description: "Role pinged on alert",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "emoji",
					Description: "Emoji shown on the panel",
					Required:    false,
				},
			},
		},
		{
			Name:        cmdDeleteGuild,
			Description: "Delete a guild",
			DescriptionLocalizations: &map[discordgo.Locale]string{
				discordgo.French:    "Supprimer une guilde",
				discordgo.EnglishUS: "Delete a guild",
			},
			DefaultMemberPermissions: &admin,
			Options:                  []*discordgo.ApplicationCommandOption{guildOption("Guild to delete")},
		},
		{
			Name:        cmdListGuilds,
			Description: "List registered guilds",
			DescriptionLocalizations: &map[discordgo.Locale]string{
				discordgo.French:    "Lister les guildes enregistrées",
				discordgo.EnglishUS: "List registered guilds",
			},
		},
	}
}

// registerCommands creates or updates the bot commands and removes stale
// ones. Commands are scoped to the alert server when one is configured.
func (b *Bot) registerCommands() error {
	commands := commandDefinitions()
	appID := b.session.State.User.ID
	guildID := b.cfg.Alerts.ServerID

	existing, err := b.session.ApplicationCommands(appID, guildID)
	if err != nil {
		for _, cmd := range commands {
			if _, err := b.session.ApplicationCommandCreate(appID, guildID, cmd); err != nil {
				return err
			}
		}
		return nil
	}

	existingByName := make(map[string]*discordgo.ApplicationCommand)
	for _, cmd := range existing {
		existingByName[cmd.Name] = cmd
	}

	desired := make(map[string]struct{})
	for _, cmd := range commands {
		desired[cmd.Name] = struct{}{}
		if current, ok := existingByName[cmd.Name]; ok {
			if _, err := b.session.ApplicationCommandEdit(appID, guildID, current.ID, cmd); err != nil {
				return err
			}
			continue
		}
		if _, err := b.session.ApplicationCommandCreate(appID, guildID, cmd); err != nil {
			return err
		}
	}

	for _, cmd := range existing {
		if _, ok := desired[cmd.Name]; ok {
			continue
		}
		_ = b.session.ApplicationCommandDelete(appID, guildID, cmd.ID)
	}
	return nil
}
