package alerts

import (
	"time"

	"sparta-defense/internal/alertlog"
	"sparta-defense/internal/registry"
	"sparta-defense/internal/stats"
)

type Status int

const (
	StatusActivated Status = iota
	StatusCooldown
	StatusUnknownGuild
	StatusInternalError
)

func (s Status) String() string {
	switch s {
	case StatusActivated:
		return "activated"
	case StatusCooldown:
		return "cooldown"
	case StatusUnknownGuild:
		return "unknown_guild"
	case StatusInternalError:
		return "internal_error"
	default:
		return "unknown"
	}
}

// Outcome is the result of one alert request. Remaining is set for
// StatusCooldown, Stats and Record for StatusActivated.
type Outcome struct {
	Status    Status
	Group     registry.Group
	Remaining time.Duration
	Stats     stats.Stats
	Record    alertlog.Record
	Err       error
}
