package chat

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryAdapter is an in-process Adapter implementation. It backs tests
// and dry runs, and doubles as the reference for what a real gateway
// adapter must provide.
type MemoryAdapter struct {
	mu      sync.Mutex
	members map[string]*Member // keyed by userID
	roles   map[string]*Role
	threads map[string]*Thread

	notifications chan Notification

	// SentMessages records SendMessage calls as channelID -> texts.
	SentMessages map[string][]string
	// Responses records Respond calls as interactionID -> texts.
	Responses map[string][]string

	// Fail, when set, is returned from every outbound command. Lookup
	// calls are unaffected.
	Fail error
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		members:       make(map[string]*Member),
		roles:         make(map[string]*Role),
		threads:       make(map[string]*Thread),
		notifications: make(chan Notification, 64),
		SentMessages:  make(map[string][]string),
		Responses:     make(map[string][]string),
	}
}

// Publish feeds a notification into the stream, stamping an ID if the
// caller left it empty.
func (a *MemoryAdapter) Publish(n Notification) {
	if n.NotificationID() == "" {
		id := uuid.NewString()
		switch v := n.(type) {
		case ReactionAdded:
			v.ID = id
			n = v
		case ReactionRemoved:
			v.ID = id
			n = v
		case ThreadCreated:
			v.ID = id
			n = v
		case MemberRolesChanged:
			v.ID = id
			n = v
		case MessageCreated:
			v.ID = id
			n = v
		case CommandInvoked:
			v.ID = id
			n = v
		}
	}
	a.notifications <- n
}

// Close ends the notification stream.
func (a *MemoryAdapter) Close() {
	close(a.notifications)
}

func (a *MemoryAdapter) Notifications() <-chan Notification {
	return a.notifications
}

// AddMember seeds a member.
func (a *MemoryAdapter) AddMember(m *Member) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.members[m.UserID] = m
}

// AddRole seeds a role.
func (a *MemoryAdapter) AddRole(r *Role) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.roles[r.ID] = r
}

// AddThread seeds a thread.
func (a *MemoryAdapter) AddThread(t *Thread) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.threads[t.ID] = t
}

// GetThread returns a seeded thread for inspection.
func (a *MemoryAdapter) GetThread(id string) (*Thread, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	t, ok := a.threads[id]
	if !ok {
		return nil, false
	}
	copied := *t
	return &copied, true
}

func (a *MemoryAdapter) FetchMember(_ context.Context, _, userID string) (*Member, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	m, ok := a.members[userID]
	if !ok {
		return nil, ErrNotFound
	}
	out := *m
	out.RoleIDs = append([]string(nil), m.RoleIDs...)
	return &out, nil
}

func (a *MemoryAdapter) SearchMember(_ context.Context, _, name string) (*Member, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, m := range a.members {
		if m.Name == name {
			out := *m
			out.RoleIDs = append([]string(nil), m.RoleIDs...)
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (a *MemoryAdapter) FetchRole(_ context.Context, _, roleID string) (*Role, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	r, ok := a.roles[roleID]
	if !ok {
		return nil, ErrNotFound
	}
	out := *r
	return &out, nil
}

func (a *MemoryAdapter) GrantRole(_ context.Context, _, userID, roleID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Fail != nil {
		return a.Fail
	}
	m, ok := a.members[userID]
	if !ok {
		return ErrNotFound
	}
	if !m.HasRole(roleID) {
		m.RoleIDs = append(m.RoleIDs, roleID)
	}
	return nil
}

func (a *MemoryAdapter) RevokeRole(_ context.Context, _, userID, roleID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Fail != nil {
		return a.Fail
	}
	m, ok := a.members[userID]
	if !ok {
		return ErrNotFound
	}
	kept := m.RoleIDs[:0]
	for _, id := range m.RoleIDs {
		if id != roleID {
			kept = append(kept, id)
		}
	}
	m.RoleIDs = kept
	return nil
}

func (a *MemoryAdapter) SendMessage(_ context.Context, channelID, text string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Fail != nil {
		return a.Fail
	}
	a.SentMessages[channelID] = append(a.SentMessages[channelID], text)
	return nil
}

func (a *MemoryAdapter) Respond(_ context.Context, interactionID, text string, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Fail != nil {
		return a.Fail
	}
	a.Responses[interactionID] = append(a.Responses[interactionID], text)
	return nil
}

// Messages returns a snapshot of the texts sent to a channel.
func (a *MemoryAdapter) Messages(channelID string) []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.SentMessages[channelID]...)
}

// InteractionResponses returns a snapshot of the responses sent for an
// interaction.
func (a *MemoryAdapter) InteractionResponses(interactionID string) []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.Responses[interactionID]...)
}

func (a *MemoryAdapter) FetchActiveThreads(_ context.Context, containerID string) ([]*Thread, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []*Thread
	for _, t := range a.threads {
		if t.ParentID == containerID && !t.Archived {
			copied := *t
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (a *MemoryAdapter) SetThreadLocked(_ context.Context, threadID string, locked bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Fail != nil {
		return a.Fail
	}
	t, ok := a.threads[threadID]
	if !ok {
		return ErrNotFound
	}
	t.Locked = locked
	return nil
}

func (a *MemoryAdapter) SetThreadArchived(_ context.Context, threadID string, archived bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Fail != nil {
		return a.Fail
	}
	t, ok := a.threads[threadID]
	if !ok {
		return ErrNotFound
	}
	t.Archived = archived
	return nil
}
