package panel

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"sparta-defense/internal/registry"
	"sparta-defense/internal/stats"

	"github.com/bwmarrin/discordgo"
)

const (
	Title            = "🛡️ Alertes défense"
	ButtonPrefix     = "alert:"
	buttonsPerRow    = 5
	maxButtons       = 25
	activityBarWidth = 10
)

type Input struct {
	Groups    []registry.Group
	Counts    map[string]int
	Stats     map[string]stats.Stats
	Cooldowns map[string]time.Duration
	Now       time.Time
}

type Block struct {
	Guild     string        `json:"guild"`
	Emoji     string        `json:"emoji"`
	Connected int           `json:"connected"`
	Stats     stats.Stats   `json:"stats"`
	Cooldown  time.Duration `json:"-"`

	CooldownSeconds float64 `json:"cooldown_seconds"`
}

// Document is the platform-neutral content of the status panel.
type Document struct {
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	Connected int       `json:"connected"`
	Blocks    []Block   `json:"blocks"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Render builds the panel document. It performs no I/O and only reads its
// input, so identical inputs always produce identical documents.
func Render(in Input) Document {
	groups := make([]registry.Group, len(in.Groups))
	copy(groups, in.Groups)
	sort.SliceStable(groups, func(i, j int) bool {
		return strings.ToLower(groups[i].Name) < strings.ToLower(groups[j].Name)
	})

	doc := Document{
		Title:     Title,
		Blocks:    make([]Block, 0, len(groups)),
		UpdatedAt: in.Now.UTC(),
	}
	for _, group := range groups {
		connected := max(0, in.Counts[group.Name])
		remaining := max(0, in.Cooldowns[group.Name])
		doc.Connected += connected
		doc.Blocks = append(doc.Blocks, Block{
			Guild:     group.Name,
			Emoji:     group.Emoji,
			Connected: connected,
			Stats:     in.Stats[group.Name],
			Cooldown:  remaining,

			CooldownSeconds: remaining.Seconds(),
		})
	}
	doc.Summary = fmt.Sprintf("🟢 %d défenseurs connectés sur %d guildes", doc.Connected, len(doc.Blocks))
	return doc
}

func (d Document) Embed(color int) *discordgo.MessageEmbed {
	fields := make([]*discordgo.MessageEmbedField, 0, len(d.Blocks))
	for _, block := range d.Blocks {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   strings.TrimSpace(block.Emoji + " " + block.Guild),
			Value:  blockValue(block),
			Inline: true,
		})
	}
	if len(fields) == 0 {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Guildes", Value: "Aucune guilde configurée"})
	}
	return &discordgo.MessageEmbed{
		Title:       d.Title,
		Description: d.Summary,
		Color:       color,
		Fields:      fields,
		Footer:      &discordgo.MessageEmbedFooter{Text: "Dernière mise à jour"},
		Timestamp:   d.UpdatedAt.Format(time.RFC3339),
	}
}

// Components returns one alert button per guild, five per row.
func (d Document) Components() []discordgo.MessageComponent {
	var (
		rows []discordgo.MessageComponent
		row  discordgo.ActionsRow
	)
	for i, block := range d.Blocks {
		if i >= maxButtons {
			break
		}
		button := discordgo.Button{
			Label:    block.Guild,
			Style:    discordgo.DangerButton,
			CustomID: ButtonPrefix + block.Guild,
			Disabled: block.Cooldown > 0,
		}
		if emoji := parseEmoji(block.Emoji); emoji != nil {
			button.Emoji = emoji
		}
		row.Components = append(row.Components, button)
		if len(row.Components) == buttonsPerRow {
			rows = append(rows, row)
			row = discordgo.ActionsRow{}
		}
	}
	if len(row.Components) > 0 {
		rows = append(rows, row)
	}
	return rows
}

func blockValue(block Block) string {
	lines := []string{
		fmt.Sprintf("👥 %d connectés", block.Connected),
		fmt.Sprintf("24h: %d pings (%d uniques)", block.Stats.Total24h, block.Stats.Unique24h),
		fmt.Sprintf("7j: %d pings (%d uniques)", block.Stats.Total7d, block.Stats.Unique7d),
		activityBar(block.Stats.ActivityScore),
	}
	if block.Cooldown > 0 {
		lines = append(lines, fmt.Sprintf("⏳ %.0fs", block.Cooldown.Seconds()))
	} else {
		lines = append(lines, "✅ disponible")
	}
	return strings.Join(lines, "\n")
}

func activityBar(score int) string {
	score = min(100, max(0, score))
	filled := score * activityBarWidth / 100
	return strings.Repeat("█", filled) + strings.Repeat("░", activityBarWidth-filled) + fmt.Sprintf(" %d%%", score)
}

// parseEmoji reads custom emoji markup such as <:GTO:1307418692992237668>.
// Anything else is treated as a unicode emoji.
func parseEmoji(raw string) *discordgo.ComponentEmoji {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if !strings.HasPrefix(raw, "<") || !strings.HasSuffix(raw, ">") {
		return &discordgo.ComponentEmoji{Name: raw}
	}
	parts := strings.Split(strings.Trim(raw, "<>"), ":")
	if len(parts) != 3 {
		return nil
	}
	return &discordgo.ComponentEmoji{
		Name:     parts[1],
		ID:       parts[2],
		Animated: parts[0] == "a",
	}
}
