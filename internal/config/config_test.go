package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresToken(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
discord_token: from-file
database:
  driver: postgresql
  dsn: postgres://localhost/sparta
alerts:
  server_id: "100"
  cooldown_seconds: 30
  presence_mode: online
guilds:
  - name: GTO
    emoji: "<:GTO:1>"
    role_id: "200"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("DISCORD_TOKEN", "")
	t.Setenv("ALERT_REFRESH_SECONDS", "90")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.DiscordToken)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, 30, cfg.Alerts.CooldownSeconds)
	assert.Equal(t, 90, cfg.Alerts.RefreshSeconds)
	assert.Equal(t, PresenceOnline, cfg.Alerts.PresenceMode)
	assert.Equal(t, 100, cfg.Alerts.HistoryMax)
	require.Len(t, cfg.Guilds, 1)
	assert.Equal(t, "200", cfg.Guilds[0].RoleID)
	assert.NotEmpty(t, cfg.Messages)
}

func TestLoadAppliesFloors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
alerts:
  cooldown_seconds: -1
  panel_search_limit: 500
  presence_mode: whatever
messages: []
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("DISCORD_TOKEN", "token")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 15, cfg.Alerts.CooldownSeconds)
	assert.Equal(t, 50, cfg.Alerts.PanelSearchLimit)
	assert.Equal(t, PresenceActive, cfg.Alerts.PresenceMode)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Len(t, cfg.Messages, len(DefaultConfig().Messages))
}

func TestBuildLoggerWithFile(t *testing.T) {
	logger, err := BuildLogger("debug", filepath.Join(t.TempDir(), "sparta.log"))
	require.NoError(t, err)
	logger.Info("hello")
	_ = logger.Sync()
}
