package stats

import (
	"time"

	"sparta-defense/internal/history"
)

const (
	Day  = 24 * time.Hour
	Week = 7 * Day

	maxActivityScore = 100
)

type Stats struct {
	MemberCount   int `json:"member_count"`
	Total24h      int `json:"total_24h"`
	Unique24h     int `json:"unique_24h"`
	Total7d       int `json:"total_7d"`
	Unique7d      int `json:"unique_7d"`
	ActivityScore int `json:"activity_score"`
}

// MemberCounts is the live eligible-member count per guild.
type MemberCounts interface {
	MemberCount(guild string) int
}

type Calculator struct {
	history *history.History
	counts  MemberCounts
}

func New(h *history.History, counts MemberCounts) *Calculator {
	return &Calculator{history: h, counts: counts}
}

func (c *Calculator) Compute(guild string, now time.Time) Stats {
	result := Stats{}
	if c.counts != nil {
		result.MemberCount = max(0, c.counts.MemberCount(guild))
	}
	if c.history == nil {
		return result
	}

	week := c.history.Query(guild, Week, now)
	result.Total7d, result.Unique7d = countEvents(week)

	dayCutoff := now.Add(-Day)
	day := week[:0:0]
	for _, event := range week {
		if event.Timestamp.After(dayCutoff) {
			day = append(day, event)
		}
	}
	result.Total24h, result.Unique24h = countEvents(day)
	result.ActivityScore = ActivityScore(result.Total24h)
	return result
}

// ActivityScore saturates at 100 so display bars stay bounded.
func ActivityScore(total24h int) int {
	return min(maxActivityScore, max(0, total24h*2))
}

func countEvents(events []history.Event) (total, unique int) {
	seen := make(map[string]struct{}, len(events))
	for _, event := range events {
		seen[event.InitiatorID] = struct{}{}
	}
	return len(events), len(seen)
}
