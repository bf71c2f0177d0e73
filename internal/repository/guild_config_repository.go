package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// GuildConfigRepository stores the per-guild manager role override as a
// normalized one-to-many relation.
type GuildConfigRepository interface {
	ListManagerRoles(ctx context.Context, guildID string) ([]string, error)
	AddManagerRole(ctx context.Context, guildID, roleID string) (bool, error)
	RemoveManagerRole(ctx context.Context, guildID, roleID string) (bool, error)
}

type guildConfigRepository struct {
	pool *pgxpool.Pool
}

// NewGuildConfigRepository instantiates the repository.
func NewGuildConfigRepository(pool *pgxpool.Pool) GuildConfigRepository {
	return &guildConfigRepository{pool: pool}
}

func (r *guildConfigRepository) ListManagerRoles(ctx context.Context, guildID string) ([]string, error) {
	const query = `SELECT role_id FROM guild_manager_roles WHERE guild_id=$1 ORDER BY position, role_id`
	rows, err := r.pool.Query(ctx, query, guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []string
	for rows.Next() {
		var roleID string
		if err := rows.Scan(&roleID); err != nil {
			return nil, err
		}
		roles = append(roles, roleID)
	}
	return roles, rows.Err()
}

// AddManagerRole appends a role to the guild's list. Returns false when the
// role was already present.
func (r *guildConfigRepository) AddManagerRole(ctx context.Context, guildID, roleID string) (bool, error) {
	const query = `
        INSERT INTO guild_manager_roles (guild_id, role_id, position)
        SELECT $1, $2, COALESCE(MAX(position), 0) + 1 FROM guild_manager_roles WHERE guild_id=$1
        ON CONFLICT (guild_id, role_id) DO NOTHING`
	cmd, err := r.pool.Exec(ctx, query, guildID, roleID)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

// RemoveManagerRole deletes a role from the guild's list. Returns false when
// the role was not configured.
func (r *guildConfigRepository) RemoveManagerRole(ctx context.Context, guildID, roleID string) (bool, error) {
	const query = `DELETE FROM guild_manager_roles WHERE guild_id=$1 AND role_id=$2`
	cmd, err := r.pool.Exec(ctx, query, guildID, roleID)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}
