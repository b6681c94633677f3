package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forum-xp-backend/internal/features/audit"
	"forum-xp-backend/internal/features/progression/models"
	"forum-xp-backend/internal/features/progression/repository/memory"
	progression "forum-xp-backend/internal/features/progression/service"
	"forum-xp-backend/internal/platform/chat"
)

const guildID = "guild-1"

var levelRoles = map[int]string{
	1: "11111111111111111",
	2: "22222222222222222",
	3: "33333333333333333",
	4: "44444444444444444",
	5: "55555555555555555",
}

type fixture struct {
	adapter    *chat.MemoryAdapter
	ledger     *progression.Ledger
	reconciler *Reconciler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	table, err := models.NewThresholdTable(map[int]int64{1: 5, 2: 15, 3: 35, 4: 80, 5: 140})
	require.NoError(t, err)

	adapter := chat.NewMemoryAdapter()
	ledger := progression.NewLedger(memory.New(), table)
	binding := models.NewRoleBinding(levelRoles)
	reconciler := NewReconciler(adapter, ledger, binding, audit.New(adapter, ""))
	return &fixture{adapter: adapter, ledger: ledger, reconciler: reconciler}
}

func (f *fixture) member(t *testing.T, userID string, roleIDs ...string) *chat.Member {
	t.Helper()
	m := &chat.Member{UserID: userID, Name: userID, RoleIDs: roleIDs}
	f.adapter.AddMember(m)
	return m
}

func memberRoles(t *testing.T, f *fixture, userID string) []string {
	t.Helper()
	m, err := f.adapter.FetchMember(context.Background(), guildID, userID)
	require.NoError(t, err)
	return m.RoleIDs
}

func TestHandleLevelUpSwapsRoles(t *testing.T) {
	f := newFixture(t)
	f.member(t, "u1", levelRoles[1])

	err := f.reconciler.HandleLevelUp(context.Background(), guildID, "u1", 1, 2)
	require.NoError(t, err)

	roles := memberRoles(t, f, "u1")
	assert.NotContains(t, roles, levelRoles[1])
	assert.Contains(t, roles, levelRoles[2])
}

func TestHandleLevelUpNoBoundRole(t *testing.T) {
	table, err := models.NewThresholdTable(map[int]int64{1: 5, 2: 15})
	require.NoError(t, err)
	adapter := chat.NewMemoryAdapter()
	ledger := progression.NewLedger(memory.New(), table)
	// Only level 1 has a bound role.
	reconciler := NewReconciler(adapter, ledger, models.NewRoleBinding(map[int]string{1: levelRoles[1]}), audit.New(adapter, ""))
	adapter.AddMember(&chat.Member{UserID: "u1", RoleIDs: []string{levelRoles[1]}})

	require.NoError(t, reconciler.HandleLevelUp(context.Background(), guildID, "u1", 1, 2))

	m, err := adapter.FetchMember(context.Background(), guildID, "u1")
	require.NoError(t, err)
	assert.Contains(t, m.RoleIDs, levelRoles[1], "old role kept when the new level has no binding")
}

func TestHandleLevelUpPlatformFailureDoesNotTouchLedger(t *testing.T) {
	f := newFixture(t)
	f.member(t, "u1")
	f.adapter.Fail = errors.New("missing permissions")

	_, err := f.ledger.AddXP(context.Background(), "u1", 5)
	require.NoError(t, err)

	err = f.reconciler.HandleLevelUp(context.Background(), guildID, "u1", 0, 1)
	assert.Error(t, err)

	info, err := f.ledger.GetLevel(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.XP, "committed XP survives role failure")
	assert.Equal(t, 1, info.Level)
}

func TestSelfAssignmentSuppressed(t *testing.T) {
	f := newFixture(t)
	f.member(t, "u1")
	ctx := context.Background()

	require.NoError(t, f.reconciler.HandleLevelUp(ctx, guildID, "u1", 0, 1))

	// The grant echoes back as a member-update notification.
	err := f.reconciler.HandleManualRoleChange(ctx, guildID, "u1", "u1",
		nil, []string{levelRoles[1]})
	require.NoError(t, err)

	info, err := f.ledger.GetLevel(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), info.XP, "echo caused no ledger mutation")
	assert.Equal(t, 0, info.Level)
	assert.Equal(t, 0, f.reconciler.Pending().Len(), "entry consumed")
}

func TestManualRoleChangePinsLevel(t *testing.T) {
	f := newFixture(t)
	f.member(t, "u1", levelRoles[1], levelRoles[3])
	ctx := context.Background()

	err := f.reconciler.HandleManualRoleChange(ctx, guildID, "u1", "u1",
		[]string{levelRoles[1]}, []string{levelRoles[1], levelRoles[3]})
	require.NoError(t, err)

	info, err := f.ledger.GetLevel(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, info.Level)
	assert.Equal(t, int64(35), info.XP, "xp pinned to threshold")

	roles := memberRoles(t, f, "u1")
	assert.NotContains(t, roles, levelRoles[1], "lower role stripped")
	assert.Contains(t, roles, levelRoles[3])
}

func TestManualRoleChangeFirstMatchWins(t *testing.T) {
	f := newFixture(t)
	f.member(t, "u1", levelRoles[2], levelRoles[4])
	ctx := context.Background()

	// Two level roles added in one batch: the first in notification
	// order is authoritative, the second is ignored.
	err := f.reconciler.HandleManualRoleChange(ctx, guildID, "u1", "u1",
		nil, []string{levelRoles[2], levelRoles[4]})
	require.NoError(t, err)

	info, err := f.ledger.GetLevel(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, info.Level)
}

func TestManualRoleChangeUnboundRolesIgnored(t *testing.T) {
	f := newFixture(t)
	f.member(t, "u1")

	err := f.reconciler.HandleManualRoleChange(context.Background(), guildID, "u1", "u1",
		nil, []string{"99999999999999999"})
	require.NoError(t, err)

	info, err := f.ledger.GetLevel(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, info.Level)
}

func TestManualLevelZeroOnUnseenUserCreatesNothing(t *testing.T) {
	table, err := models.NewThresholdTable(map[int]int64{1: 5})
	require.NoError(t, err)
	adapter := chat.NewMemoryAdapter()
	store := memory.New()
	ledger := progression.NewLedger(store, table)
	reconciler := NewReconciler(adapter, ledger, models.NewRoleBinding(map[int]string{0: "00000000000000000"}), audit.New(adapter, ""))
	adapter.AddMember(&chat.Member{UserID: "u1", RoleIDs: []string{"00000000000000000"}})

	err = reconciler.HandleManualRoleChange(context.Background(), guildID, "u1", "u1",
		nil, []string{"00000000000000000"})
	require.NoError(t, err)
	assert.Equal(t, 0, store.Len())
}

func TestApplyAdminSetXP(t *testing.T) {
	f := newFixture(t)
	f.member(t, "u1", levelRoles[1], levelRoles[5])
	ctx := context.Background()

	result, err := f.reconciler.ApplyAdminSetXP(ctx, guildID, "u1", 20)
	require.NoError(t, err)
	assert.Equal(t, int64(20), result.NewXP)
	assert.Equal(t, 2, result.NewLevel)

	roles := memberRoles(t, f, "u1")
	assert.Equal(t, []string{levelRoles[2]}, roles, "all level roles stripped, correct one granted")

	// The grant was tracked, so its echo is suppressed.
	require.NoError(t, f.reconciler.HandleManualRoleChange(ctx, guildID, "u1", "u1",
		[]string{}, []string{levelRoles[2]}))
	info, err := f.ledger.GetLevel(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(20), info.XP, "echo left admin-set XP untouched")
}

func TestApplyAdminSetXPNegative(t *testing.T) {
	f := newFixture(t)
	f.member(t, "u1")

	_, err := f.reconciler.ApplyAdminSetXP(context.Background(), guildID, "u1", -5)
	assert.ErrorIs(t, err, progression.ErrNegativeAmount)
}

func TestApplyAdminSetXPRoleFailureKeepsResult(t *testing.T) {
	f := newFixture(t)
	f.member(t, "u1", levelRoles[1])
	f.adapter.Fail = errors.New("missing permissions")

	result, err := f.reconciler.ApplyAdminSetXP(context.Background(), guildID, "u1", 40)
	require.NoError(t, err, "role sync failures do not fail the request")
	assert.Equal(t, 3, result.NewLevel)
}
