package bot

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"sparta-defense/internal/alerts"
	"sparta-defense/internal/analytics"
	"sparta-defense/internal/registry"
	"sparta-defense/internal/storage"
)

const (
	rolePlaceholder = "{role}"
	reportTopN      = 10
	fallbackMessage = "🚨 {role} défense demandée !"
)

// alertText fills a random template with the role mention.
func alertText(templates []string, roleID string, pick func(n int) int) string {
	template := fallbackMessage
	if len(templates) > 0 {
		if pick == nil {
			pick = rand.Intn
		}
		template = templates[pick(len(templates))]
	}
	mention := "<@&" + roleID + ">"
	if !strings.Contains(template, rolePlaceholder) {
		return mention + " " + template
	}
	return strings.ReplaceAll(template, rolePlaceholder, mention)
}

func outcomeText(out alerts.Outcome, requested string) string {
	switch out.Status {
	case alerts.StatusActivated:
		return fmt.Sprintf("✅ Alerte envoyée pour **%s** (%d défenseurs connectés).", out.Group.Name, out.Stats.MemberCount)
	case alerts.StatusCooldown:
		return fmt.Sprintf("⏳ **%s** est en recharge, réessaie dans %s.", out.Group.Name, formatRemaining(out.Remaining))
	case alerts.StatusUnknownGuild:
		return fmt.Sprintf("❌ Guilde inconnue : %s", requested)
	default:
		return "❌ Une erreur interne est survenue, réessaie plus tard."
	}
}

// formatRemaining rounds up so a user never sees "0s" while still blocked.
func formatRemaining(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	seconds := (d + time.Second - 1) / time.Second
	return fmt.Sprintf("%ds", seconds)
}

func formatGuildList(groups []registry.Group) string {
	if len(groups) == 0 {
		return "Aucune guilde enregistrée."
	}
	lines := make([]string, 0, len(groups))
	for _, group := range groups {
		emoji := group.Emoji
		if emoji == "" {
			emoji = "-"
		}
		lines = append(lines, fmt.Sprintf("%s **%s** (rôle <@&%s>)", emoji, group.Name, group.RoleID))
	}
	return strings.Join(lines, "\n")
}

func formatReport(report analytics.Report) string {
	if report.Total == 0 {
		return "Aucune alerte sur les 7 derniers jours."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Total : %d alertes\n\n**Par initiateur**\n", report.Total)
	for _, entry := range analytics.Top(report.ByInitiator, reportTopN) {
		fmt.Fprintf(&b, "<@%s> : %d\n", entry.Key, entry.Count)
	}
	b.WriteString("\n**Par guilde**\n")
	for _, entry := range analytics.Top(report.ByGuild, reportTopN) {
		fmt.Fprintf(&b, "%s : %d\n", entry.Key, entry.Count)
	}
	return strings.TrimRight(b.String(), "\n")
}

func toGroups(roles []storage.GuildRole) []registry.Group {
	groups := make([]registry.Group, 0, len(roles))
	for _, role := range roles {
		groups = append(groups, registry.Group{Name: role.Name, Emoji: role.Emoji, RoleID: role.RoleID})
	}
	return groups
}

// parseRoleID accepts a raw ID or a <@&id> mention.
func parseRoleID(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "<@&")
	raw = strings.TrimSuffix(raw, ">")
	for _, r := range raw {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return raw
}
