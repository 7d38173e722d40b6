package registry

import (
	"sort"
	"strings"
)

// Group is a guild that can raise a defense alert.
type Group struct {
	Name   string `json:"name"`
	Emoji  string `json:"emoji"`
	RoleID string `json:"role_id"`
}

// Merge combines statically configured groups with stored ones. Stored
// entries override configured entries of the same name (case-insensitive).
// The result is sorted by name.
func Merge(configured, stored []Group) []Group {
	byKey := make(map[string]Group, len(configured)+len(stored))
	for _, list := range [][]Group{configured, stored} {
		for _, group := range list {
			group.Name = strings.TrimSpace(group.Name)
			if group.Name == "" || group.RoleID == "" {
				continue
			}
			byKey[strings.ToLower(group.Name)] = group
		}
	}

	out := make([]Group, 0, len(byKey))
	for _, group := range byKey {
		out = append(out, group)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

// Find looks a group up by name, ignoring case.
func Find(groups []Group, name string) (Group, bool) {
	name = strings.TrimSpace(name)
	for _, group := range groups {
		if strings.EqualFold(group.Name, name) {
			return group, true
		}
	}
	return Group{}, false
}

// Roles maps each group name to its role ID.
func Roles(groups []Group) map[string]string {
	roles := make(map[string]string, len(groups))
	for _, group := range groups {
		roles[group.Name] = group.RoleID
	}
	return roles
}
