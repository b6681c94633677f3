package models

import "sort"

// RoleBinding maps levels to external role identities. Not every level
// needs a bound role. Immutable after construction.
type RoleBinding struct {
	byLevel map[int]string
	byRole  map[string]int
	levels  []int
}

func NewRoleBinding(roles map[int]string) *RoleBinding {
	b := &RoleBinding{
		byLevel: make(map[int]string, len(roles)),
		byRole:  make(map[string]int, len(roles)),
	}
	for level, roleID := range roles {
		if roleID == "" {
			continue
		}
		b.byLevel[level] = roleID
		b.byRole[roleID] = level
		b.levels = append(b.levels, level)
	}
	sort.Ints(b.levels)
	return b
}

// RoleFor returns the role bound to a level.
func (b *RoleBinding) RoleFor(level int) (string, bool) {
	roleID, ok := b.byLevel[level]
	return roleID, ok
}

// LevelFor returns the level a role is bound to.
func (b *RoleBinding) LevelFor(roleID string) (int, bool) {
	level, ok := b.byRole[roleID]
	return level, ok
}

// Levels returns the bound levels in ascending order.
func (b *RoleBinding) Levels() []int {
	out := make([]int, len(b.levels))
	copy(out, b.levels)
	return out
}
