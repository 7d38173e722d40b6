package presence

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const memberPageSize = 1000

// Provider returns the eligible-member count per guild name. roles maps a
// guild name to the Discord role its members hold.
type Provider interface {
	Refresh(ctx context.Context, serverID string, roles map[string]string) (map[string]int, error)
}

// Predicate decides whether a presence status counts as connected.
type Predicate func(status discordgo.Status) bool

func OnlineOnly(status discordgo.Status) bool {
	return status == discordgo.StatusOnline
}

func NotOffline(status discordgo.Status) bool {
	switch status {
	case discordgo.StatusOnline, discordgo.StatusIdle, discordgo.StatusDoNotDisturb:
		return true
	default:
		return false
	}
}

func PredicateFor(mode string) Predicate {
	if mode == "online" {
		return OnlineOnly
	}
	return NotOffline
}

type Counter struct {
	session   *discordgo.Session
	connected Predicate
	logger    *zap.Logger
}

func NewCounter(session *discordgo.Session, connected Predicate, logger *zap.Logger) *Counter {
	if connected == nil {
		connected = NotOffline
	}
	return &Counter{session: session, connected: connected, logger: logger}
}

func (c *Counter) Refresh(ctx context.Context, serverID string, roles map[string]string) (map[string]int, error) {
	members, err := c.members(ctx, serverID)
	if err != nil {
		return nil, err
	}
	counts := CountMembers(members, func(userID string) discordgo.Status {
		return c.status(serverID, userID)
	}, c.connected, roles)
	c.logger.Debug("member counts refreshed", zap.String("server_id", serverID), zap.Int("members", len(members)))
	return counts, nil
}

func (c *Counter) members(ctx context.Context, serverID string) ([]*discordgo.Member, error) {
	var (
		all   []*discordgo.Member
		after string
	)
	for {
		page, err := c.session.GuildMembers(serverID, after, memberPageSize, discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("list members: %w", err)
		}
		all = append(all, page...)
		if len(page) < memberPageSize {
			return all, nil
		}
		last := page[len(page)-1]
		if last == nil || last.User == nil {
			return all, nil
		}
		after = last.User.ID
	}
}

func (c *Counter) status(serverID, userID string) discordgo.Status {
	if c.session.State == nil {
		return discordgo.StatusOffline
	}
	p, err := c.session.State.Presence(serverID, userID)
	if err != nil || p == nil {
		return discordgo.StatusOffline
	}
	return p.Status
}

// CountMembers counts non-bot members that hold each role and whose status
// satisfies connected. Every configured guild appears in the result.
func CountMembers(members []*discordgo.Member, status func(userID string) discordgo.Status, connected Predicate, roles map[string]string) map[string]int {
	counts := make(map[string]int, len(roles))
	byRole := make(map[string][]string, len(roles))
	for name, roleID := range roles {
		counts[name] = 0
		if roleID != "" {
			byRole[roleID] = append(byRole[roleID], name)
		}
	}

	for _, member := range members {
		if member == nil || member.User == nil || member.User.Bot {
			continue
		}
		if !connected(status(member.User.ID)) {
			continue
		}
		for _, roleID := range member.Roles {
			for _, name := range byRole[roleID] {
				counts[name]++
			}
		}
	}
	return counts
}
