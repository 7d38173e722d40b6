package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeOverridesAndSorts(t *testing.T) {
	configured := []Group{
		{Name: "Notorious", RoleID: "1"},
		{Name: "GTO", Emoji: "<:GTO:1>", RoleID: "2"},
		{Name: "  ", RoleID: "3"},
		{Name: "NoRole"},
	}
	stored := []Group{
		{Name: "gto", Emoji: "<:GTO:9>", RoleID: "20"},
		{Name: "Crescent", RoleID: "4"},
	}

	merged := Merge(configured, stored)
	require.Len(t, merged, 3)
	assert.Equal(t, "Crescent", merged[0].Name)
	assert.Equal(t, "gto", merged[1].Name)
	assert.Equal(t, "20", merged[1].RoleID)
	assert.Equal(t, "Notorious", merged[2].Name)
}

func TestFind(t *testing.T) {
	groups := []Group{{Name: "GTO", RoleID: "1"}}

	group, ok := Find(groups, " gto ")
	require.True(t, ok)
	assert.Equal(t, "GTO", group.Name)

	_, ok = Find(groups, "Alpha")
	assert.False(t, ok)
}

func TestRoles(t *testing.T) {
	roles := Roles([]Group{{Name: "GTO", RoleID: "1"}, {Name: "Crescent", RoleID: "2"}})
	assert.Equal(t, map[string]string{"GTO": "1", "Crescent": "2"}, roles)
}
