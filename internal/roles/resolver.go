package roles

import (
	"context"

	"github.com/emberware/ticketbot/internal/repository"
)

// Resolver decides which role identifiers may act as ticket staff in a guild.
// A non-empty per-guild configured list wins; otherwise the static default
// list supplied at process start applies. The two are never merged.
type Resolver struct {
	configs      repository.GuildConfigRepository
	defaultRoles []string
}

// NewResolver constructs a resolver.
func NewResolver(configs repository.GuildConfigRepository, defaultRoles []string) *Resolver {
	return &Resolver{configs: configs, defaultRoles: defaultRoles}
}

// RolesFor returns the manager role IDs for a guild. No caching: the latest
// persisted configuration always wins.
func (r *Resolver) RolesFor(ctx context.Context, guildID string) ([]string, error) {
	configured, err := r.configs.ListManagerRoles(ctx, guildID)
	if err != nil {
		return nil, err
	}
	if len(configured) > 0 {
		return configured, nil
	}
	return r.defaultRoles, nil
}

// IsManager reports whether a member holding memberRoles is ticket staff in
// the guild, by set intersection.
func (r *Resolver) IsManager(ctx context.Context, guildID string, memberRoles []string) (bool, error) {
	managerRoles, err := r.RolesFor(ctx, guildID)
	if err != nil {
		return false, err
	}
	held := make(map[string]struct{}, len(memberRoles))
	for _, id := range memberRoles {
		held[id] = struct{}{}
	}
	for _, id := range managerRoles {
		if _, ok := held[id]; ok {
			return true, nil
		}
	}
	return false, nil
}
