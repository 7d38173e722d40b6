package stats

import (
	"fmt"
	"testing"
	"time"

	"sparta-defense/internal/history"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedCounts map[string]int

func (f fixedCounts) MemberCount(guild string) int { return f[guild] }

func TestEmptyHistoryIsZero(t *testing.T) {
	calc := New(history.New(100, Week), fixedCounts{})
	got := calc.Compute("Alpha", time.Unix(0, 0))
	assert.Equal(t, Stats{}, got)
}

func TestComputeWindows(t *testing.T) {
	h := history.New(100, Week)
	now := time.Unix(10_000_000, 0)
	h.Record("Alpha", "u1", now.Add(-3*Day))
	h.Record("Alpha", "u2", now.Add(-2*Day))
	h.Record("Alpha", "u1", now.Add(-2*time.Hour))
	h.Record("Alpha", "u1", now.Add(-time.Hour))
	h.Record("Alpha", "u3", now.Add(-time.Minute))

	calc := New(h, fixedCounts{"Alpha": 12})
	got := calc.Compute("Alpha", now)

	assert.Equal(t, Stats{
		MemberCount:   12,
		Total24h:      3,
		Unique24h:     2,
		Total7d:       5,
		Unique7d:      3,
		ActivityScore: 6,
	}, got)
}

func TestActivityScoreSaturates(t *testing.T) {
	assert.Equal(t, 0, ActivityScore(0))
	assert.Equal(t, 98, ActivityScore(49))
	assert.Equal(t, 100, ActivityScore(50))
	assert.Equal(t, 100, ActivityScore(80))
}

func TestUniqueNeverExceedsTotal(t *testing.T) {
	h := history.New(100, Week)
	now := time.Unix(0, 0)
	calc := New(h, nil)

	for i := 0; i < 150; i++ {
		now = now.Add(time.Duration(i%5) * 20 * time.Minute)
		h.Record("Alpha", fmt.Sprintf("u%d", i%7), now)

		got := calc.Compute("Alpha", now)
		require.LessOrEqual(t, got.Unique24h, got.Total24h)
		require.LessOrEqual(t, got.Unique7d, got.Total7d)
		require.Equal(t, min(100, got.Total24h*2), got.ActivityScore)
	}
}

func TestNegativeMemberCountClamped(t *testing.T) {
	calc := New(nil, fixedCounts{"Alpha": -4})
	assert.Equal(t, 0, calc.Compute("Alpha", time.Unix(0, 0)).MemberCount)
}
