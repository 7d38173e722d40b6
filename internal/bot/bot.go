package bot

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"sparta-defense/internal/alertlog"
	"sparta-defense/internal/alerts"
	"sparta-defense/internal/analytics"
	"sparta-defense/internal/config"
	"sparta-defense/internal/panel"
	"sparta-defense/internal/presence"
	"sparta-defense/internal/registry"
	"sparta-defense/internal/storage"

	"github.com/bwmarrin/discordgo"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

type Bot struct {
	cfg         config.Config
	logger      *zap.Logger
	store       *storage.Store
	analytics   *analytics.Service
	alertLog    *alertlog.Logger
	session     *discordgo.Session
	coordinator *alerts.Coordinator
	publisher   *panel.Publisher

	ctx    context.Context
	cancel context.CancelFunc
	loops  sync.WaitGroup
}

func New(cfg config.Config, logger *zap.Logger, store *storage.Store, alertLog *alertlog.Logger, analyticsService *analytics.Service) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildPresences
	session.State.TrackPresences = true

	b := &Bot{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		analytics: analyticsService,
		alertLog:  alertLog,
		session:   session,
	}

	b.publisher = panel.NewPublisher(session, b.botID, cfg.Notifications.EmbedColors.Panel, cfg.Alerts.PanelSearchLimit, logger.Named("panel"))
	deps := alerts.Deps{
		Provider:  presence.NewCounter(session, presence.PredicateFor(cfg.Alerts.PresenceMode), logger.Named("presence")),
		Publisher: b.publisher,
		Logger:    logger.Named("alerts"),
	}
	if alertLog != nil {
		deps.Emitter = alertLog
	}
	b.coordinator = alerts.New(alerts.Options{
		ServerID:         cfg.Alerts.ServerID,
		PanelChannelID:   cfg.Alerts.PanelChannelID,
		Cooldown:         time.Duration(cfg.Alerts.CooldownSeconds) * time.Second,
		RefreshInterval:  time.Duration(cfg.Alerts.RefreshSeconds) * time.Second,
		HistoryMax:       cfg.Alerts.HistoryMax,
		HistoryRetention: time.Duration(cfg.Alerts.HistoryRetentionHours) * time.Hour,
	}, deps)
	b.coordinator.SetGroups(registry.Merge(configGroups(cfg.Guilds), nil))

	if alertLog != nil {
		alertLog.SetNotifier(b.notifyAlert)
	}

	return b, nil
}

// Coordinator exposes the alert state for the HTTP API.
func (b *Bot) Coordinator() *alerts.Coordinator {
	return b.coordinator
}

func (b *Bot) Start(ctx context.Context) error {
	b.ctx, b.cancel = context.WithCancel(ctx)

	b.reloadGroups(b.ctx)

	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onInteractionCreate)

	if err := b.session.Open(); err != nil {
		return err
	}

	if err := b.registerCommands(); err != nil {
		return err
	}

	b.startCleanup()

	return nil
}

func (b *Bot) Close(ctx context.Context) {
	if b.cancel != nil {
		b.cancel()
	}
	b.coordinator.Stop()

	done := make(chan struct{})
	go func() {
		b.loops.Wait()
		if b.alertLog != nil {
			b.alertLog.Wait()
		}
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		b.logger.Warn("shutdown timed out waiting for background work")
	}

	if b.session != nil {
		_ = b.session.Close()
	}
}

func (b *Bot) onReady(session *discordgo.Session, event *discordgo.Ready) {
	b.logger.Info("discord ready", zap.String("user", event.User.Username), zap.Int("guilds", len(event.Guilds)))
	if b.cfg.Alerts.ServerID == "" || b.cfg.Alerts.PanelChannelID == "" {
		b.logger.Warn("alert server or panel channel not configured, panel loop disabled")
		return
	}
	b.coordinator.Start(b.ctx)
}

func (b *Bot) botID() string {
	if b.session == nil || b.session.State == nil || b.session.State.User == nil {
		return ""
	}
	return b.session.State.User.ID
}

// reloadGroups merges configured and stored guild roles into the coordinator.
func (b *Bot) reloadGroups(ctx context.Context) []registry.Group {
	var stored []registry.Group
	if b.store != nil {
		roles, err := b.store.ListGuildRoles(ctx)
		if err != nil {
			b.logger.Warn("load guild roles failed", zap.Error(err))
		} else {
			stored = toGroups(roles)
		}
	}
	groups := registry.Merge(configGroups(b.cfg.Guilds), stored)
	b.coordinator.SetGroups(groups)
	b.logger.Info("guild groups loaded", zap.Int("count", len(groups)))
	return groups
}

// notifyAlert posts the role mention to the alert channel.
func (b *Bot) notifyAlert(ctx context.Context, record alertlog.Record) error {
	channelID := b.cfg.Alerts.AlertChannelID
	if channelID == "" || record.RoleID == "" {
		return nil
	}
	_, err := b.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content: alertText(b.cfg.Messages, record.RoleID, nil),
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Roles: []string{record.RoleID},
		},
	}, discordgo.WithContext(ctx))
	if err != nil && isPermanent(err) {
		return backoff.Permanent(err)
	}
	return err
}

func (b *Bot) startCleanup() {
	if b.store == nil || b.cfg.RetentionDays <= 0 {
		return
	}
	b.loops.Add(1)
	go func() {
		defer b.loops.Done()
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			b.cleanupAlertLogs()
			select {
			case <-b.ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

func (b *Bot) cleanupAlertLogs() {
	removed, err := b.store.CleanupAlertLogs(b.ctx, time.Now(), b.cfg.RetentionDays)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			b.logger.Warn("alert log cleanup failed", zap.Error(err))
		}
		return
	}
	if removed > 0 {
		b.logger.Info("alert logs purged", zap.Int64("removed", removed), zap.Int("retention_days", b.cfg.RetentionDays))
	}
}

func configGroups(guilds []config.GuildConfig) []registry.Group {
	groups := make([]registry.Group, 0, len(guilds))
	for _, guild := range guilds {
		groups = append(groups, registry.Group{Name: guild.Name, Emoji: guild.Emoji, RoleID: guild.RoleID})
	}
	return groups
}

// isPermanent reports errors a retry cannot fix.
func isPermanent(err error) bool {
	if panel.IsNotFound(err) {
		return true
	}
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		switch restErr.Response.StatusCode {
		case http.StatusForbidden, http.StatusUnauthorized, http.StatusBadRequest:
			return true
		}
	}
	return false
}

func (b *Bot) respond(session *discordgo.Session, interaction *discordgo.InteractionCreate, content string, ephemeral bool) {
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	err := session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   flags,
		},
	})
	if err != nil {
		b.logger.Warn("interaction respond failed", zap.Error(err))
	}
}

func (b *Bot) respondEmbed(session *discordgo.Session, interaction *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) {
	if embed == nil {
		b.respond(session, interaction, "Aucune réponse disponible.", ephemeral)
		return
	}
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	err := session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  flags,
		},
	})
	if err != nil {
		b.logger.Warn("interaction respond failed", zap.Error(err))
	}
}

// deferEphemeral acknowledges an interaction whose answer may take longer
// than the platform's response window.
func (b *Bot) deferEphemeral(session *discordgo.Session, interaction *discordgo.InteractionCreate) bool {
	err := session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
	if err != nil {
		b.logger.Warn("interaction defer failed", zap.Error(err))
		return false
	}
	return true
}

func (b *Bot) editDeferred(session *discordgo.Session, interaction *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	embeds := []*discordgo.MessageEmbed{embed}
	if _, err := session.InteractionResponseEdit(interaction.Interaction, &discordgo.WebhookEdit{Embeds: &embeds}); err != nil {
		b.logger.Warn("interaction edit failed", zap.Error(err))
	}
}

func (b *Bot) commandEmbed(title, description string, color int, fields []*discordgo.MessageEmbedField) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   time.Now().Format(time.RFC3339),
		Fields:      fields,
	}
}
