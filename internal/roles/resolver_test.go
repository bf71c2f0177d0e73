package roles

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConfigRepo struct {
	roles map[string][]string
	err   error
}

func (f *fakeConfigRepo) ListManagerRoles(_ context.Context, guildID string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.roles[guildID], nil
}

func (f *fakeConfigRepo) AddManagerRole(context.Context, string, string) (bool, error) {
	return false, nil
}

func (f *fakeConfigRepo) RemoveManagerRole(context.Context, string, string) (bool, error) {
	return false, nil
}

func TestResolver_ConfiguredRolesWin(t *testing.T) {
	repo := &fakeConfigRepo{roles: map[string][]string{
		"guild-1": {"role-a", "role-b"},
	}}
	resolver := NewResolver(repo, []string{"default-role"})

	got, err := resolver.RolesFor(context.Background(), "guild-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"role-a", "role-b"}, got,
		"configured list replaces the default, never merges with it")
}

func TestResolver_FallbackWhenUnconfigured(t *testing.T) {
	resolver := NewResolver(&fakeConfigRepo{}, []string{"default-role"})

	got, err := resolver.RolesFor(context.Background(), "guild-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"default-role"}, got)
}

func TestResolver_PropagatesRepoError(t *testing.T) {
	resolver := NewResolver(&fakeConfigRepo{err: errors.New("db down")}, []string{"default-role"})

	_, err := resolver.RolesFor(context.Background(), "guild-1")
	assert.Error(t, err, "must not silently fall back to defaults on a lookup failure")
}

func TestResolver_IsManager(t *testing.T) {
	repo := &fakeConfigRepo{roles: map[string][]string{
		"guild-1": {"role-a", "role-b"},
	}}
	resolver := NewResolver(repo, nil)

	tests := []struct {
		name        string
		memberRoles []string
		want        bool
	}{
		{"holds a manager role", []string{"role-x", "role-b"}, true},
		{"holds no manager role", []string{"role-x", "role-y"}, false},
		{"no roles at all", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolver.IsManager(context.Background(), "guild-1", tt.memberRoles)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
