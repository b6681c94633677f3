package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishStampsNotificationID(t *testing.T) {
	adapter := NewMemoryAdapter()

	adapter.Publish(ReactionAdded{UserID: "u1"})
	adapter.Publish(ThreadCreated{ID: "preset"})
	adapter.Close()

	first := <-adapter.Notifications()
	assert.NotEmpty(t, first.NotificationID())

	second := <-adapter.Notifications()
	assert.Equal(t, "preset", second.NotificationID())
}

func TestFetchMemberCopies(t *testing.T) {
	adapter := NewMemoryAdapter()
	adapter.AddMember(&Member{UserID: "u1", RoleIDs: []string{"a"}})
	ctx := context.Background()

	m, err := adapter.FetchMember(ctx, "g", "u1")
	require.NoError(t, err)
	m.RoleIDs[0] = "mutated"

	again, err := adapter.FetchMember(ctx, "g", "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, again.RoleIDs)
}

func TestFetchMemberNotFound(t *testing.T) {
	adapter := NewMemoryAdapter()

	_, err := adapter.FetchMember(context.Background(), "g", "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearchMemberByName(t *testing.T) {
	adapter := NewMemoryAdapter()
	adapter.AddMember(&Member{UserID: "u1", Name: "alice"})

	m, err := adapter.SearchMember(context.Background(), "g", "alice")
	require.NoError(t, err)
	assert.Equal(t, "u1", m.UserID)

	_, err = adapter.SearchMember(context.Background(), "g", "bob")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGrantAndRevokeRole(t *testing.T) {
	adapter := NewMemoryAdapter()
	adapter.AddMember(&Member{UserID: "u1"})
	ctx := context.Background()

	require.NoError(t, adapter.GrantRole(ctx, "g", "u1", "r1"))
	require.NoError(t, adapter.GrantRole(ctx, "g", "u1", "r1"), "granting a held role is idempotent")

	m, err := adapter.FetchMember(ctx, "g", "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"r1"}, m.RoleIDs)

	require.NoError(t, adapter.RevokeRole(ctx, "g", "u1", "r1"))
	m, err = adapter.FetchMember(ctx, "g", "u1")
	require.NoError(t, err)
	assert.Empty(t, m.RoleIDs)
}

func TestFetchActiveThreadsFiltersArchived(t *testing.T) {
	adapter := NewMemoryAdapter()
	adapter.AddThread(&Thread{ID: "a", ParentID: "forum"})
	adapter.AddThread(&Thread{ID: "b", ParentID: "forum", Archived: true})
	adapter.AddThread(&Thread{ID: "c", ParentID: "other"})

	threads, err := adapter.FetchActiveThreads(context.Background(), "forum")
	require.NoError(t, err)
	require.Len(t, threads, 1)
	assert.Equal(t, "a", threads[0].ID)
}
