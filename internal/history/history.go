package history

import (
	"sync"
	"time"
)

type Event struct {
	InitiatorID string
	Timestamp   time.Time
}

// History keeps a bounded, time-windowed log of alert events per guild.
// Events are stored in insertion order, which is also time order.
type History struct {
	mu        sync.Mutex
	max       int
	retention time.Duration
	events    map[string][]Event
}

func New(max int, retention time.Duration) *History {
	if max <= 0 {
		max = 100
	}
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}
	return &History{
		max:       max,
		retention: retention,
		events:    make(map[string][]Event),
	}
}

func (h *History) Retention() time.Duration {
	return h.retention
}

// Record appends an event, then drops everything outside the retention
// window and keeps only the most recent max entries.
func (h *History) Record(guild, initiatorID string, now time.Time) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries := append(h.events[guild], Event{InitiatorID: initiatorID, Timestamp: now})
	entries = trimBefore(entries, now.Add(-h.retention))
	if len(entries) > h.max {
		entries = entries[len(entries)-h.max:]
	}
	h.events[guild] = entries
	return len(entries)
}

// Query returns a copy of the events newer than now-window.
func (h *History) Query(guild string, window time.Duration, now time.Time) []Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries := trimBefore(h.events[guild], now.Add(-window))
	out := make([]Event, len(entries))
	copy(out, entries)
	return out
}

func (h *History) Len(guild string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events[guild])
}

// Prune applies the retention window to every guild without inserting.
func (h *History) Prune(now time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()

	cutoff := now.Add(-h.retention)
	for guild, entries := range h.events {
		entries = trimBefore(entries, cutoff)
		if len(entries) == 0 {
			delete(h.events, guild)
			continue
		}
		h.events[guild] = entries
	}
}

func trimBefore(entries []Event, cutoff time.Time) []Event {
	idx := 0
	for _, entry := range entries {
		if entry.Timestamp.After(cutoff) {
			break
		}
		idx++
	}
	return entries[idx:]
}
