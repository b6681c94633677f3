package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleBinding(t *testing.T) {
	binding := NewRoleBinding(map[int]string{
		3: "role-3",
		1: "role-1",
		2: "",
		5: "role-5",
	})

	roleID, ok := binding.RoleFor(1)
	assert.True(t, ok)
	assert.Equal(t, "role-1", roleID)

	_, ok = binding.RoleFor(2)
	assert.False(t, ok, "empty role IDs are dropped")

	_, ok = binding.RoleFor(4)
	assert.False(t, ok, "unbound level")

	level, ok := binding.LevelFor("role-5")
	assert.True(t, ok)
	assert.Equal(t, 5, level)

	_, ok = binding.LevelFor("unknown")
	assert.False(t, ok)

	assert.Equal(t, []int{1, 3, 5}, binding.Levels())
}
