package storage

import (
	"context"
	"errors"
	"strings"
	"time"
)

var ErrGuildRoleNotFound = errors.New("guild role not found")

type GuildRole struct {
	Name      string
	Emoji     string
	RoleID    string
	UpdatedAt time.Time
}

func (s *Store) ListGuildRoles(ctx context.Context) ([]GuildRole, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT guild_name, emoji, role_id, updated_at
		FROM guild_roles
		ORDER BY guild_key
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []GuildRole
	for rows.Next() {
		var role GuildRole
		var updated int64
		if err := rows.Scan(&role.Name, &role.Emoji, &role.RoleID, &updated); err != nil {
			return nil, err
		}
		role.UpdatedAt = time.Unix(updated, 0)
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// UpsertGuildRole inserts or replaces the mapping for a guild name
// (case-insensitive).
func (s *Store) UpsertGuildRole(ctx context.Context, role GuildRole) error {
	name := strings.TrimSpace(role.Name)
	if name == "" || role.RoleID == "" {
		return errors.New("guild name and role are required")
	}
	if role.UpdatedAt.IsZero() {
		role.UpdatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO guild_roles (guild_key, guild_name, emoji, role_id, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(guild_key) DO UPDATE SET
			guild_name = excluded.guild_name,
			emoji = excluded.emoji,
			role_id = excluded.role_id,
			updated_at = excluded.updated_at
	`), strings.ToLower(name), name, role.Emoji, role.RoleID, role.UpdatedAt.Unix())
	return err
}

func (s *Store) DeleteGuildRole(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM guild_roles WHERE guild_key = ?`), strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrGuildRoleNotFound
	}
	return nil
}
