package analytics

import (
	"context"
	"sort"
	"time"

	"sparta-defense/internal/storage"
)

type Source interface {
	ListAlertLogs(ctx context.Context, serverID string, since time.Time) ([]storage.AlertLog, error)
}

type Service struct {
	store Source
}

func New(store Source) *Service {
	return &Service{store: store}
}

type Count struct {
	Key   string
	Count int
}

type Report struct {
	Since       time.Time
	Total       int
	ByInitiator map[string]int
	ByGuild     map[string]int
}

func (s *Service) Report(ctx context.Context, serverID string, since time.Time) (Report, error) {
	logs, err := s.store.ListAlertLogs(ctx, serverID, since)
	if err != nil {
		return Report{}, err
	}

	report := Report{
		Since:       since,
		ByInitiator: make(map[string]int),
		ByGuild:     make(map[string]int),
	}
	for _, log := range logs {
		report.Total++
		report.ByInitiator[log.InitiatorID]++
		report.ByGuild[log.GuildName]++
	}
	return report, nil
}

// Top returns the n largest entries, ties broken by key.
func Top(counts map[string]int, n int) []Count {
	out := make([]Count, 0, len(counts))
	for key, count := range counts {
		out = append(out, Count{Key: key, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
