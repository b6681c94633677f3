package service

import (
	"fmt"
	"sync"
	"time"
)

const defaultEvictionHorizon = 5 * time.Minute

// PendingSelfAssignments tracks (user, role) grants the engine itself
// has issued but not yet seen echoed back as a member-update
// notification. Entries are inserted immediately before the grant and
// consumed by the first matching notification; anything older than the
// eviction horizon is pruned on insert, so a grant whose echo never
// arrives cannot grow the set without bound.
//
// A stale entry only suppresses one false manual-override; it never
// blocks XP logic. Accesses never touch I/O.
type PendingSelfAssignments struct {
	mu      sync.Mutex
	entries map[string]time.Time
	horizon time.Duration
	now     func() time.Time
}

func NewPendingSelfAssignments() *PendingSelfAssignments {
	return &PendingSelfAssignments{
		entries: make(map[string]time.Time),
		horizon: defaultEvictionHorizon,
		now:     time.Now,
	}
}

func pendingKey(userID, roleID string) string {
	return fmt.Sprintf("%s-%s", userID, roleID)
}

// Add records an imminent self-grant.
func (p *PendingSelfAssignments) Add(userID, roleID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	for key, at := range p.entries {
		if now.Sub(at) > p.horizon {
			delete(p.entries, key)
		}
	}
	p.entries[pendingKey(userID, roleID)] = now
}

// Consume reports whether the (user, role) pair was self-granted, and
// removes the entry if so.
func (p *PendingSelfAssignments) Consume(userID, roleID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := pendingKey(userID, roleID)
	at, ok := p.entries[key]
	if !ok {
		return false
	}
	delete(p.entries, key)
	return p.now().Sub(at) <= p.horizon
}

// Len reports the number of tracked entries.
func (p *PendingSelfAssignments) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}
