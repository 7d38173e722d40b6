package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"sparta-defense/internal/alerts"
	"sparta-defense/internal/panel"
	"sparta-defense/internal/registry"
	"sparta-defense/internal/stats"
	"sparta-defense/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const maxChoices = 25

func (b *Bot) onInteractionCreate(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	ctx := b.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	switch interaction.Type {
	case discordgo.InteractionApplicationCommand:
		data := interaction.ApplicationCommandData()
		switch data.Name {
		case cmdAlert:
			b.handleAlert(ctx, session, interaction, optionString(data.Options, "guild"))
		case cmdAlertPanel:
			b.handlePanelRefresh(ctx, session, interaction)
		case cmdAlertReport:
			b.handleReport(ctx, session, interaction)
		case cmdAddGuild:
			b.handleAddGuild(ctx, session, interaction, data.Options)
		case cmdDeleteGuild:
			b.handleDeleteGuild(ctx, session, interaction, optionString(data.Options, "guild"))
		case cmdListGuilds:
			b.respond(session, interaction, formatGuildList(b.coordinator.Groups()), true)
		}
	case discordgo.InteractionApplicationCommandAutocomplete:
		b.handleAutocomplete(session, interaction)
	case discordgo.InteractionMessageComponent:
		customID := interaction.MessageComponentData().CustomID
		if name, ok := strings.CutPrefix(customID, panel.ButtonPrefix); ok {
			b.handleAlert(ctx, session, interaction, name)
		}
	}
}

func (b *Bot) handleAlert(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, guildName string) {
	initiator := interactionUserID(interaction)
	if !b.deferEphemeral(session, interaction) {
		return
	}

	out := b.coordinator.Alert(ctx, guildName, initiator)
	var fields []*discordgo.MessageEmbedField
	color := b.cfg.Notifications.EmbedColors.Alert
	switch out.Status {
	case alerts.StatusActivated:
		fields = statsFields(out.Stats)
	case alerts.StatusInternalError:
		color = b.cfg.Notifications.EmbedColors.Error
		b.logger.Error("alert failed", zap.String("guild", guildName), zap.String("initiator_id", initiator), zap.Error(out.Err))
	default:
		color = b.cfg.Notifications.EmbedColors.Error
	}
	b.logger.Info("alert requested",
		zap.String("guild", guildName),
		zap.String("initiator_id", initiator),
		zap.Stringer("outcome", out.Status),
	)
	b.editDeferred(session, interaction, b.commandEmbed(panel.Title, outcomeText(out, guildName), color, fields))
}

func (b *Bot) handlePanelRefresh(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	if !b.deferEphemeral(session, interaction) {
		return
	}
	text := "✅ Panneau mis à jour."
	if !b.coordinator.Refresh(ctx, true) {
		text = "⏳ Une mise à jour est déjà en cours."
	}
	b.editDeferred(session, interaction, b.commandEmbed(panel.Title, text, b.cfg.Notifications.EmbedColors.Panel, nil))
}

func (b *Bot) handleReport(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	if b.analytics == nil {
		b.respond(session, interaction, "❌ Rapport indisponible.", true)
		return
	}
	serverID := b.cfg.Alerts.ServerID
	if serverID == "" {
		serverID = interaction.GuildID
	}
	report, err := b.analytics.Report(ctx, serverID, time.Now().Add(-stats.Week))
	if err != nil {
		b.logger.Warn("alert report failed", zap.Error(err))
		b.respond(session, interaction, fmt.Sprintf("❌ Erreur : %v", err), true)
		return
	}
	b.respondEmbed(session, interaction, b.commandEmbed("📊 Rapport des alertes", formatReport(report), b.cfg.Notifications.EmbedColors.Panel, nil), true)
}

func (b *Bot) handleAddGuild(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	name := strings.TrimSpace(optionString(options, "name"))
	roleID := parseRoleID(optionString(options, "role"))
	emoji := strings.TrimSpace(optionString(options, "emoji"))
	if name == "" || roleID == "" {
		b.respond(session, interaction, "❌ Nom de guilde et rôle requis.", true)
		return
	}
	if b.store == nil {
		b.respond(session, interaction, "❌ Base de données indisponible.", true)
		return
	}

	err := b.store.UpsertGuildRole(ctx, storage.GuildRole{Name: name, Emoji: emoji, RoleID: roleID})
	if err != nil {
		b.logger.Warn("add guild failed", zap.String("guild", name), zap.Error(err))
		b.respond(session, interaction, fmt.Sprintf("❌ Erreur : %v", err), true)
		return
	}
	b.reloadGroups(ctx)
	b.coordinator.Refresh(ctx, false)
	b.logger.Info("guild added", zap.String("guild", name), zap.String("role_id", roleID), zap.String("by", interactionUserID(interaction)))
	b.respond(session, interaction, fmt.Sprintf("✅ Guilde '%s' ajoutée.", name), true)
}

func (b *Bot) handleDeleteGuild(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, name string) {
	name = strings.TrimSpace(name)
	if b.store == nil {
		b.respond(session, interaction, "❌ Base de données indisponible.", true)
		return
	}

	err := b.store.DeleteGuildRole(ctx, name)
	switch {
	case errors.Is(err, storage.ErrGuildRoleNotFound):
		text := fmt.Sprintf("❌ Guilde '%s' introuvable en base.", name)
		if _, ok := registry.Find(configGroups(b.cfg.Guilds), name); ok {
			text = fmt.Sprintf("❌ Guilde '%s' définie dans la configuration, elle ne peut pas être supprimée ici.", name)
		}
		b.respond(session, interaction, text, true)
		return
	case err != nil:
		b.logger.Warn("delete guild failed", zap.String("guild", name), zap.Error(err))
		b.respond(session, interaction, fmt.Sprintf("❌ Erreur : %v", err), true)
		return
	}
	b.reloadGroups(ctx)
	b.coordinator.Refresh(ctx, false)
	b.logger.Info("guild deleted", zap.String("guild", name), zap.String("by", interactionUserID(interaction)))
	b.respond(session, interaction, fmt.Sprintf("✅ Guilde '%s' supprimée.", name), true)
}

func (b *Bot) handleAutocomplete(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	typed := strings.ToLower(optionString(interaction.ApplicationCommandData().Options, "guild"))
	choices := guildChoices(b.coordinator.Groups(), typed)
	err := session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{Choices: choices},
	})
	if err != nil {
		b.logger.Debug("autocomplete respond failed", zap.Error(err))
	}
}

func guildChoices(groups []registry.Group, typed string) []*discordgo.ApplicationCommandOptionChoice {
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(groups))
	for _, group := range groups {
		if typed != "" && !strings.Contains(strings.ToLower(group.Name), typed) {
			continue
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: group.Name, Value: group.Name})
		if len(choices) == maxChoices {
			break
		}
	}
	return choices
}

func statsFields(s stats.Stats) []*discordgo.MessageEmbedField {
	return []*discordgo.MessageEmbedField{
		{Name: "Connectés", Value: fmt.Sprint(s.MemberCount), Inline: true},
		{Name: "24h", Value: fmt.Sprintf("%d pings (%d uniques)", s.Total24h, s.Unique24h), Inline: true},
		{Name: "7j", Value: fmt.Sprintf("%d pings (%d uniques)", s.Total7d, s.Unique7d), Inline: true},
		{Name: "Activité", Value: fmt.Sprintf("%d%%", s.ActivityScore), Inline: true},
	}
}

func optionString(options []*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	for _, opt := range options {
		if opt == nil || opt.Name != name {
			continue
		}
		if value, ok := opt.Value.(string); ok {
			return value
		}
		return fmt.Sprint(opt.Value)
	}
	return ""
}

func interactionUserID(interaction *discordgo.InteractionCreate) string {
	if interaction.Member != nil && interaction.Member.User != nil {
		return interaction.Member.User.ID
	}
	if interaction.User != nil {
		return interaction.User.ID
	}
	return ""
}
