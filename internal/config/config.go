package config

import (
	"errors"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"gopkg.in/yaml.v3"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	PresenceOnline = "online"
	PresenceActive = "active"
)

type Config struct {
	DiscordToken  string         `yaml:"discord_token"`
	LogLevel      string         `yaml:"log_level"`
	LogFile       string         `yaml:"log_file"`
	RetentionDays int            `yaml:"retention_days"`
	Database      DatabaseConfig `yaml:"database"`
	Health        HealthConfig   `yaml:"health"`
	Alerts        AlertsConfig   `yaml:"alerts"`
	Guilds        []GuildConfig  `yaml:"guilds"`
	Messages      []string       `yaml:"messages"`
	Notifications NotifyConfig   `yaml:"notifications"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type HealthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type AlertsConfig struct {
	ServerID              string `yaml:"server_id"`
	PanelChannelID        string `yaml:"panel_channel_id"`
	AlertChannelID        string `yaml:"alert_channel_id"`
	CooldownSeconds       int    `yaml:"cooldown_seconds"`
	RefreshSeconds        int    `yaml:"refresh_seconds"`
	HistoryMax            int    `yaml:"history_max"`
	HistoryRetentionHours int    `yaml:"history_retention_hours"`
	PanelSearchLimit      int    `yaml:"panel_search_limit"`
	PresenceMode          string `yaml:"presence_mode"`
	NotifyRetries         int    `yaml:"notify_retries"`
}

type GuildConfig struct {
	Name   string `yaml:"name"`
	Emoji  string `yaml:"emoji"`
	RoleID string `yaml:"role_id"`
}

type NotifyConfig struct {
	EmbedColors EmbedColors `yaml:"embed_colors"`
}

type EmbedColors struct {
	Panel int `yaml:"panel"`
	Alert int `yaml:"alert"`
	Error int `yaml:"error"`
}

func DefaultConfig() Config {
	return Config{
		LogLevel:      "info",
		RetentionDays: 30,
		Database:      DatabaseConfig{Driver: DriverSQLite, DSN: "/data/sparta.db"},
		Health:        HealthConfig{Enabled: false, Addr: ":8080"},
		Alerts: AlertsConfig{
			CooldownSeconds:       15,
			RefreshSeconds:        60,
			HistoryMax:            100,
			HistoryRetentionHours: 7 * 24,
			PanelSearchLimit:      50,
			PresenceMode:          PresenceActive,
			NotifyRetries:         3,
		},
		Messages: []string{
			"🚨 {role} go def zebi !",
			"⚔️ {role}, il est temps de défendre !",
			"🛡️ {role} Défendez votre guilde !",
			"💥 {role} est attaquée ! Rejoignez la défense !",
			"⚠️ {role}, mobilisez votre équipe pour défendre !",
			"🏹 Appel urgent pour {role} - La défense a besoin de vous !",
			"🔔 {role}, votre présence est cruciale pour la défense !",
		},
		Notifications: NotifyConfig{
			EmbedColors: EmbedColors{
				Panel: 0x3B82F6,
				Alert: 0xEF4444,
				Error: 0xF97316,
			},
		},
	}
}

// Load reads the YAML file at path (CONFIG_PATH or config.yaml when empty)
// over the defaults, then applies environment overrides.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)
	if cfg.DiscordToken == "" {
		return Config{}, errors.New("DISCORD_TOKEN is required")
	}

	cfg.Database.Driver = normalizeDriver(cfg.Database.Driver)
	cfg.Alerts.PresenceMode = normalizePresence(cfg.Alerts.PresenceMode)
	applyFloors(&cfg)

	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.DiscordToken = envString("DISCORD_TOKEN", cfg.DiscordToken)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFile = envString("LOG_FILE", cfg.LogFile)
	cfg.RetentionDays = envInt("RETENTION_DAYS", cfg.RetentionDays)
	cfg.Database.Driver = envString("DATABASE_DRIVER", cfg.Database.Driver)
	cfg.Database.DSN = envString("DATABASE_URL", cfg.Database.DSN)
	cfg.Health.Enabled = envBool("HEALTH_ENABLED", cfg.Health.Enabled)
	cfg.Health.Addr = envString("HEALTH_ADDR", cfg.Health.Addr)
	cfg.Alerts.ServerID = envString("ALERT_SERVER_ID", cfg.Alerts.ServerID)
	cfg.Alerts.PanelChannelID = envString("PING_DEF_CHANNEL_ID", cfg.Alerts.PanelChannelID)
	cfg.Alerts.AlertChannelID = envString("ALERTE_DEF_CHANNEL_ID", cfg.Alerts.AlertChannelID)
	cfg.Alerts.CooldownSeconds = envInt("ALERT_COOLDOWN_SECONDS", cfg.Alerts.CooldownSeconds)
	cfg.Alerts.RefreshSeconds = envInt("ALERT_REFRESH_SECONDS", cfg.Alerts.RefreshSeconds)
	cfg.Alerts.PresenceMode = envString("ALERT_PRESENCE_MODE", cfg.Alerts.PresenceMode)
	cfg.Notifications.EmbedColors.Panel = envInt("EMBED_COLOR_PANEL", cfg.Notifications.EmbedColors.Panel)
	cfg.Notifications.EmbedColors.Alert = envInt("EMBED_COLOR_ALERT", cfg.Notifications.EmbedColors.Alert)
	cfg.Notifications.EmbedColors.Error = envInt("EMBED_COLOR_ERROR", cfg.Notifications.EmbedColors.Error)
}

func applyFloors(cfg *Config) {
	defaults := DefaultConfig().Alerts
	if cfg.Alerts.CooldownSeconds <= 0 {
		cfg.Alerts.CooldownSeconds = defaults.CooldownSeconds
	}
	if cfg.Alerts.RefreshSeconds <= 0 {
		cfg.Alerts.RefreshSeconds = defaults.RefreshSeconds
	}
	if cfg.Alerts.HistoryMax <= 0 {
		cfg.Alerts.HistoryMax = defaults.HistoryMax
	}
	if cfg.Alerts.HistoryRetentionHours <= 0 {
		cfg.Alerts.HistoryRetentionHours = defaults.HistoryRetentionHours
	}
	if cfg.Alerts.PanelSearchLimit <= 0 || cfg.Alerts.PanelSearchLimit > 100 {
		cfg.Alerts.PanelSearchLimit = defaults.PanelSearchLimit
	}
	if cfg.Alerts.NotifyRetries < 0 {
		cfg.Alerts.NotifyRetries = 0
	}
	if len(cfg.Messages) == 0 {
		cfg.Messages = DefaultConfig().Messages
	}
}

// BuildLogger returns a JSON zap logger on stdout. When logFile is set the
// output is also written to a rotating file.
func BuildLogger(level, logFile string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	lvl := strings.ToLower(level)
	switch lvl {
	case "debug", "info", "warn", "error":
		cfg.Level = zap.NewAtomicLevelAt(parseLevel(lvl))
	default:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	if logFile == "" {
		return logger, nil
	}

	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(cfg.EncoderConfig),
		zapcore.AddSync(rotatingFile(logFile)),
		cfg.Level,
	)
	return logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, fileCore)
	})), nil
}

func rotatingFile(path string) io.Writer {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // MB
		MaxBackups: 5,
		MaxAge:     14, // days
		Compress:   true,
	}
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "1" || lower == "true" || lower == "yes"
	}
	return fallback
}

func normalizeDriver(value string) string {
	switch strings.ToLower(value) {
	case "postgres", "postgresql", "pgx":
		return DriverPostgres
	default:
		return DriverSQLite
	}
}

func normalizePresence(value string) string {
	switch strings.ToLower(value) {
	case PresenceOnline:
		return PresenceOnline
	default:
		return PresenceActive
	}
}
