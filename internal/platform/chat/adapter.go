// Package chat defines the boundary to the chat platform: a stream of
// typed notifications in, role/message/thread commands out. The gateway
// connection itself lives behind this interface.
package chat

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound reports a missing member, role, channel or thread. It is
// a normal negative result for lookups.
var ErrNotFound = errors.New("chat: not found")

// Member is a guild member snapshot.
type Member struct {
	UserID  string
	Name    string
	Bot     bool
	RoleIDs []string
}

// HasRole reports whether the member currently holds the role.
func (m *Member) HasRole(roleID string) bool {
	for _, id := range m.RoleIDs {
		if id == roleID {
			return true
		}
	}
	return false
}

// Role is a guild role snapshot.
type Role struct {
	ID   string
	Name string
}

// Thread is a forum thread snapshot.
type Thread struct {
	ID        string
	ParentID  string
	Name      string
	OwnerID   string
	CreatedAt time.Time
	Locked    bool
	Archived  bool
}

// Adapter is the platform connection consumed by the engine. Every call
// may fail with a typed error; callers treat failures per their own
// policy, the adapter does not retry.
type Adapter interface {
	// Notifications delivers gateway events. The channel is closed when
	// the connection shuts down.
	Notifications() <-chan Notification

	FetchMember(ctx context.Context, guildID, userID string) (*Member, error)
	SearchMember(ctx context.Context, guildID, name string) (*Member, error)
	FetchRole(ctx context.Context, guildID, roleID string) (*Role, error)
	GrantRole(ctx context.Context, guildID, userID, roleID string) error
	RevokeRole(ctx context.Context, guildID, userID, roleID string) error

	SendMessage(ctx context.Context, channelID, text string) error
	Respond(ctx context.Context, interactionID, text string, ephemeral bool) error

	FetchActiveThreads(ctx context.Context, containerID string) ([]*Thread, error)
	SetThreadLocked(ctx context.Context, threadID string, locked bool) error
	SetThreadArchived(ctx context.Context, threadID string, archived bool) error
}
