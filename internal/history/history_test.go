package history

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordKeepsMostRecentHundred(t *testing.T) {
	h := New(100, 7*24*time.Hour)
	start := time.Unix(0, 0)

	for i := 0; i < 101; i++ {
		h.Record("Alpha", fmt.Sprintf("u%d", i), start.Add(time.Duration(i)*time.Second))
	}

	require.Equal(t, 100, h.Len("Alpha"))
	events := h.Query("Alpha", time.Hour, start.Add(101*time.Second))
	require.Len(t, events, 100)
	assert.Equal(t, "u1", events[0].InitiatorID)
	assert.Equal(t, "u100", events[99].InitiatorID)
}

func TestRecordEvictsOlderThanRetention(t *testing.T) {
	h := New(100, 7*24*time.Hour)
	start := time.Unix(0, 0)

	h.Record("Alpha", "old", start)
	h.Record("Alpha", "mid", start.Add(3*24*time.Hour))
	count := h.Record("Alpha", "new", start.Add(8*24*time.Hour))

	assert.Equal(t, 2, count)
	events := h.Query("Alpha", 30*24*time.Hour, start.Add(8*24*time.Hour))
	require.Len(t, events, 2)
	assert.Equal(t, "mid", events[0].InitiatorID)
}

func TestBoundsHoldForAnyInsertSequence(t *testing.T) {
	h := New(100, 7*24*time.Hour)
	now := time.Unix(0, 0)

	for i := 0; i < 500; i++ {
		now = now.Add(time.Duration(i%17) * 37 * time.Minute)
		h.Record("Alpha", fmt.Sprintf("u%d", i%9), now)

		require.LessOrEqual(t, h.Len("Alpha"), 100)
		for _, event := range h.Query("Alpha", 365*24*time.Hour, now) {
			require.True(t, event.Timestamp.After(now.Add(-7*24*time.Hour)))
		}
	}
}

func TestQueryWindow(t *testing.T) {
	h := New(100, 7*24*time.Hour)
	now := time.Unix(10_000_000, 0)

	h.Record("Alpha", "a", now.Add(-48*time.Hour))
	h.Record("Alpha", "b", now.Add(-24*time.Hour))
	h.Record("Alpha", "c", now.Add(-time.Hour))

	assert.Len(t, h.Query("Alpha", 24*time.Hour, now), 1)
	assert.Len(t, h.Query("Alpha", 7*24*time.Hour, now), 3)
	assert.Empty(t, h.Query("Beta", 24*time.Hour, now))
}

func TestQueryReturnsCopy(t *testing.T) {
	h := New(10, time.Hour)
	now := time.Unix(0, 0)
	h.Record("Alpha", "a", now)

	events := h.Query("Alpha", time.Hour, now)
	events[0].InitiatorID = "mutated"

	assert.Equal(t, "a", h.Query("Alpha", time.Hour, now)[0].InitiatorID)
}

func TestPrune(t *testing.T) {
	h := New(10, time.Hour)
	now := time.Unix(0, 0)
	h.Record("Alpha", "a", now)
	h.Record("Beta", "b", now.Add(30*time.Minute))

	h.Prune(now.Add(75 * time.Minute))

	assert.Equal(t, 0, h.Len("Alpha"))
	assert.Equal(t, 1, h.Len("Beta"))
}
