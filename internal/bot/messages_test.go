package bot

import (
	"testing"
	"time"

	"sparta-defense/internal/alerts"
	"sparta-defense/internal/analytics"
	"sparta-defense/internal/registry"
	"sparta-defense/internal/stats"
	"sparta-defense/internal/storage"

	"github.com/stretchr/testify/assert"
)

func TestAlertText(t *testing.T) {
	templates := []string{"🚨 {role} go def !", "no placeholder"}

	assert.Equal(t, "🚨 <@&42> go def !", alertText(templates, "42", func(int) int { return 0 }))
	assert.Equal(t, "<@&42> no placeholder", alertText(templates, "42", func(int) int { return 1 }))
	assert.Equal(t, "🚨 <@&42> défense demandée !", alertText(nil, "42", nil))
}

func TestOutcomeText(t *testing.T) {
	group := registry.Group{Name: "GTO"}

	assert.Contains(t, outcomeText(alerts.Outcome{Status: alerts.StatusActivated, Group: group, Stats: stats.Stats{MemberCount: 4}}, "gto"), "4 défenseurs")
	assert.Contains(t, outcomeText(alerts.Outcome{Status: alerts.StatusCooldown, Group: group, Remaining: 4200 * time.Millisecond}, "gto"), "5s")
	assert.Contains(t, outcomeText(alerts.Outcome{Status: alerts.StatusUnknownGuild}, "Alpha"), "Alpha")
	assert.Contains(t, outcomeText(alerts.Outcome{Status: alerts.StatusInternalError}, "gto"), "erreur interne")
}

func TestFormatRemaining(t *testing.T) {
	assert.Equal(t, "0s", formatRemaining(-time.Second))
	assert.Equal(t, "5s", formatRemaining(5*time.Second))
	assert.Equal(t, "1s", formatRemaining(time.Millisecond))
}

func TestFormatGuildList(t *testing.T) {
	assert.Equal(t, "Aucune guilde enregistrée.", formatGuildList(nil))
	assert.Equal(t, "- **GTO** (rôle <@&1>)", formatGuildList([]registry.Group{{Name: "GTO", RoleID: "1"}}))
}

func TestFormatReport(t *testing.T) {
	assert.Contains(t, formatReport(analytics.Report{}), "Aucune alerte")

	text := formatReport(analytics.Report{
		Total:       3,
		ByInitiator: map[string]int{"u1": 2, "u2": 1},
		ByGuild:     map[string]int{"GTO": 3},
	})
	assert.Contains(t, text, "Total : 3")
	assert.Contains(t, text, "<@u1> : 2")
	assert.Contains(t, text, "GTO : 3")
}

func TestToGroups(t *testing.T) {
	groups := toGroups([]storage.GuildRole{{Name: "GTO", Emoji: "e", RoleID: "1"}})
	assert.Equal(t, []registry.Group{{Name: "GTO", Emoji: "e", RoleID: "1"}}, groups)
}

func TestParseRoleID(t *testing.T) {
	assert.Equal(t, "123", parseRoleID("<@&123>"))
	assert.Equal(t, "123", parseRoleID(" 123 "))
	assert.Equal(t, "", parseRoleID("admins"))
}
