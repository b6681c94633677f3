// Package service implements the XP ledger: every durable mutation of
// per-user XP and level state goes through here.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"forum-xp-backend/internal/features/progression/models"
	"forum-xp-backend/internal/features/progression/repository"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrNegativeAmount = errors.New("xp amount cannot be negative")
	ErrNegativeLevel  = errors.New("level cannot be negative")
)

// Ledger performs atomic read-modify-write operations against the
// record store. Each operation holds a per-user lock for its whole
// read-compute-write span, so concurrent notifications for the same
// user serialize and no update is lost, regardless of which store
// backend is configured.
type Ledger struct {
	store      repository.RecordStore
	thresholds *models.ThresholdTable

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewLedger(store repository.RecordStore, thresholds *models.ThresholdTable) *Ledger {
	return &Ledger{
		store:      store,
		thresholds: thresholds,
		locks:      make(map[string]*sync.Mutex),
	}
}

// userLock returns the mutex guarding a single user's record. Locks are
// never removed; the map grows with the active user population, which
// is bounded by community size.
func (l *Ledger) userLock(userID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[userID] = lock
	}
	return lock
}

// AddXP credits amount to the user, creating the record on first
// contact, and recomputes the level. XP never decreases here.
func (l *Ledger) AddXP(ctx context.Context, userID string, amount int64) (*models.AddResult, error) {
	if amount < 0 {
		return nil, ErrNegativeAmount
	}

	lock := l.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	record, err := l.store.Get(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		record = &models.UserRecord{UserID: userID}
	} else if err != nil {
		return nil, fmt.Errorf("add xp: %w", err)
	}

	oldLevel := record.Level
	record.XP += amount
	record.Level = l.thresholds.LevelOf(record.XP)
	if record.Level < oldLevel {
		// Level is a ratchet: earning XP never demotes, even if the
		// stored level exceeds what the XP alone would derive.
		record.Level = oldLevel
	}

	if err := l.store.Put(ctx, record); err != nil {
		return nil, fmt.Errorf("add xp: %w", err)
	}

	return &models.AddResult{
		NewXP:     record.XP,
		Level:     record.Level,
		OldLevel:  oldLevel,
		LeveledUp: record.Level > oldLevel,
	}, nil
}

// RemoveXP debits amount, clamped at zero. The level is deliberately
// left untouched: un-pinning does not demote a user. Returns
// ErrUserNotFound for never-seen users; no record is created.
func (l *Ledger) RemoveXP(ctx context.Context, userID string, amount int64) (*models.RemoveResult, error) {
	if amount < 0 {
		return nil, ErrNegativeAmount
	}

	lock := l.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	record, err := l.store.Get(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("remove xp: %w", err)
	}

	record.XP -= amount
	if record.XP < 0 {
		record.XP = 0
	}

	if err := l.store.Put(ctx, record); err != nil {
		return nil, fmt.Errorf("remove xp: %w", err)
	}

	return &models.RemoveResult{NewXP: record.XP, Level: record.Level}, nil
}

// SetXP overwrites the user's XP and derives the level from scratch.
// This is the one operation that can lower a level; it is reserved for
// administrative correction.
func (l *Ledger) SetXP(ctx context.Context, userID string, amount int64) (*models.SetResult, error) {
	if amount < 0 {
		return nil, ErrNegativeAmount
	}

	lock := l.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	record, err := l.store.Get(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		record = &models.UserRecord{UserID: userID}
	} else if err != nil {
		return nil, fmt.Errorf("set xp: %w", err)
	}

	record.XP = amount
	record.Level = l.thresholds.LevelOf(amount)

	if err := l.store.Put(ctx, record); err != nil {
		return nil, fmt.Errorf("set xp: %w", err)
	}

	return &models.SetResult{NewXP: record.XP, NewLevel: record.Level}, nil
}

// SetLevel pins a user to a level, setting XP to that level's threshold
// so the record stays internally consistent. A level-0 grant to a
// never-seen user is not worth persisting: it returns (nil, nil) and
// creates no record.
func (l *Ledger) SetLevel(ctx context.Context, userID string, level int) (*models.LevelGrant, error) {
	if level < 0 {
		return nil, ErrNegativeLevel
	}

	lock := l.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	record, err := l.store.Get(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		if level == 0 {
			return nil, nil
		}
		record = &models.UserRecord{UserID: userID}
	} else if err != nil {
		return nil, fmt.Errorf("set level: %w", err)
	}

	record.XP = l.thresholds.MinXP(level)
	record.Level = level

	if err := l.store.Put(ctx, record); err != nil {
		return nil, fmt.Errorf("set level: %w", err)
	}

	return &models.LevelGrant{Level: record.Level, XP: record.XP}, nil
}

// GetLevel is a pure read; unknown users report zero XP at level 0.
func (l *Ledger) GetLevel(ctx context.Context, userID string) (*models.LevelInfo, error) {
	record, err := l.store.Get(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return &models.LevelInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get level: %w", err)
	}
	return &models.LevelInfo{XP: record.XP, Level: record.Level}, nil
}

// NextThreshold exposes the threshold table's progress lookup.
func (l *Ledger) NextThreshold(level int) (int64, bool) {
	return l.thresholds.NextThreshold(level)
}
