package panel

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"sparta-defense/internal/registry"
	"sparta-defense/internal/stats"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleInput(now time.Time) Input {
	return Input{
		Groups: []registry.Group{
			{Name: "Notorious", Emoji: "🔥", RoleID: "3"},
			{Name: "GTO", Emoji: "<:GTO:1307418692992237668>", RoleID: "1"},
			{Name: "crescent", RoleID: "2"},
		},
		Counts: map[string]int{"GTO": 4, "crescent": 2, "Notorious": -1},
		Stats: map[string]stats.Stats{
			"GTO": {Total24h: 3, Unique24h: 2, Total7d: 10, Unique7d: 4, ActivityScore: 6, MemberCount: 4},
		},
		Cooldowns: map[string]time.Duration{"GTO": 9 * time.Second},
		Now:       now,
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	first := Render(sampleInput(now))
	second := Render(sampleInput(now))

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))

	ea, err := json.Marshal(first.Embed(0xE74C3C))
	require.NoError(t, err)
	eb, err := json.Marshal(second.Embed(0xE74C3C))
	require.NoError(t, err)
	assert.Equal(t, string(ea), string(eb))
}

func TestRenderSortsAndAggregates(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	in := sampleInput(now)

	doc := Render(in)

	require.Len(t, doc.Blocks, 3)
	assert.Equal(t, "crescent", doc.Blocks[0].Guild)
	assert.Equal(t, "GTO", doc.Blocks[1].Guild)
	assert.Equal(t, "Notorious", doc.Blocks[2].Guild)
	assert.Equal(t, 6, doc.Connected)
	assert.Equal(t, 0, doc.Blocks[2].Connected)
	assert.Equal(t, 9*time.Second, doc.Blocks[1].Cooldown)
	assert.InDelta(t, 9.0, doc.Blocks[1].CooldownSeconds, 1e-9)
	assert.Equal(t, stats.Stats{}, doc.Blocks[0].Stats)
	assert.Contains(t, doc.Summary, "6")
	assert.Equal(t, now, doc.UpdatedAt)

	// input order untouched
	assert.Equal(t, "Notorious", in.Groups[0].Name)
}

func TestEmbedFields(t *testing.T) {
	doc := Render(sampleInput(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)))

	embed := doc.Embed(42)
	assert.Equal(t, Title, embed.Title)
	assert.Equal(t, 42, embed.Color)
	require.Len(t, embed.Fields, 3)
	assert.Equal(t, "<:GTO:1307418692992237668> GTO", embed.Fields[1].Name)
	assert.Contains(t, embed.Fields[1].Value, "24h: 3 pings (2 uniques)")
	assert.Contains(t, embed.Fields[1].Value, "⏳ 9s")
	assert.Contains(t, embed.Fields[0].Value, "✅ disponible")
	assert.Equal(t, "2025-03-01T12:00:00Z", embed.Timestamp)
}

func TestEmbedWithoutGroups(t *testing.T) {
	embed := Render(Input{Now: time.Unix(0, 0)}).Embed(0)
	require.Len(t, embed.Fields, 1)
	assert.Equal(t, "Aucune guilde configurée", embed.Fields[0].Value)
}

func TestComponentsRows(t *testing.T) {
	in := Input{Now: time.Unix(0, 0)}
	for i := 0; i < 30; i++ {
		in.Groups = append(in.Groups, registry.Group{Name: fmt.Sprintf("g%02d", i), RoleID: "r"})
	}
	in.Cooldowns = map[string]time.Duration{"g00": time.Second}

	rows := Render(in).Components()
	require.Len(t, rows, 5)

	first, ok := rows[0].(discordgo.ActionsRow)
	require.True(t, ok)
	require.Len(t, first.Components, 5)

	button, ok := first.Components[0].(discordgo.Button)
	require.True(t, ok)
	assert.Equal(t, ButtonPrefix+"g00", button.CustomID)
	assert.True(t, button.Disabled)

	other := first.Components[1].(discordgo.Button)
	assert.False(t, other.Disabled)
}

func TestParseEmoji(t *testing.T) {
	custom := parseEmoji("<:GTO:1307418692992237668>")
	require.NotNil(t, custom)
	assert.Equal(t, "GTO", custom.Name)
	assert.Equal(t, "1307418692992237668", custom.ID)
	assert.False(t, custom.Animated)

	animated := parseEmoji("<a:wave:12>")
	require.NotNil(t, animated)
	assert.True(t, animated.Animated)

	unicode := parseEmoji("🔥")
	require.NotNil(t, unicode)
	assert.Equal(t, "🔥", unicode.Name)
	assert.Empty(t, unicode.ID)

	assert.Nil(t, parseEmoji(""))
	assert.Nil(t, parseEmoji("<broken>"))
}

func TestActivityBar(t *testing.T) {
	assert.Equal(t, "░░░░░░░░░░ 0%", activityBar(-5))
	assert.Equal(t, "█████░░░░░ 50%", activityBar(50))
	assert.Equal(t, "██████████ 100%", activityBar(150))
}

func TestBlockJSONUsesSeconds(t *testing.T) {
	doc := Render(sampleInput(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)))

	raw, err := json.Marshal(doc.Blocks[1])
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, 9.0, decoded["cooldown_seconds"])
	assert.NotContains(t, decoded, "cooldown")
}
