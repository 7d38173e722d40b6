package cooldown

import (
	"sync"
	"time"
)

// Manager gates alerts per guild. The key is the guild, not the initiator:
// once a guild is alerted nobody can alert it again until the cooldown ends.
type Manager struct {
	mu          sync.Mutex
	duration    time.Duration
	availableAt map[string]time.Time
}

func New(duration time.Duration) *Manager {
	if duration <= 0 {
		duration = 15 * time.Second
	}
	return &Manager{
		duration:    duration,
		availableAt: make(map[string]time.Time),
	}
}

func (m *Manager) Duration() time.Duration {
	return m.duration
}

// TryAcquire returns (0, true) and starts a new cooldown when the guild is
// free, or the exact remaining time and false otherwise.
func (m *Manager) TryAcquire(guild string, now time.Time) (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if until, ok := m.availableAt[guild]; ok && now.Before(until) {
		return until.Sub(now), false
	}
	m.availableAt[guild] = now.Add(m.duration)
	return 0, true
}

func (m *Manager) Remaining(guild string, now time.Time) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	until, ok := m.availableAt[guild]
	if !ok || !now.Before(until) {
		return 0
	}
	return until.Sub(now)
}

// Sweep drops expired entries and returns how many were removed.
func (m *Manager) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for guild, until := range m.availableAt {
		if !now.Before(until) {
			delete(m.availableAt, guild)
			removed++
		}
	}
	return removed
}

func (m *Manager) Reset(guild string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.availableAt, guild)
}
