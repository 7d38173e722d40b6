package storage

import (
	"context"
	"time"
)

type AlertLog struct {
	ID          string
	ServerID    string
	GuildName   string
	InitiatorID string
	MemberCount int
	CreatedAt   time.Time
}

func (s *Store) AddAlertLog(ctx context.Context, log AlertLog) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO alert_logs (id, server_id, guild_name, initiator_id, member_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`), log.ID, log.ServerID, log.GuildName, log.InitiatorID, log.MemberCount, log.CreatedAt.Unix())
	return err
}

func (s *Store) ListAlertLogs(ctx context.Context, serverID string, since time.Time) ([]AlertLog, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, server_id, guild_name, initiator_id, member_count, created_at
		FROM alert_logs
		WHERE server_id = ? AND created_at >= ?
		ORDER BY created_at DESC, id
	`), serverID, since.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []AlertLog
	for rows.Next() {
		var log AlertLog
		var created int64
		if err := rows.Scan(&log.ID, &log.ServerID, &log.GuildName, &log.InitiatorID, &log.MemberCount, &created); err != nil {
			return nil, err
		}
		log.CreatedAt = time.Unix(created, 0)
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

// CleanupAlertLogs deletes logs older than retentionDays and returns how many
// were removed.
func (s *Store) CleanupAlertLogs(ctx context.Context, now time.Time, retentionDays int) (int64, error) {
	cutoff := now.AddDate(0, 0, -retentionDays)
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM alert_logs WHERE created_at < ?`), cutoff.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
