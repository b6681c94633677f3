package models

// UserRecord is the durable per-user XP state. Level is a cached
// projection of the threshold table applied to XP; every mutation
// rewrites both fields together so they can never drift.
type UserRecord struct {
	UserID string `json:"user_id"`
	XP     int64  `json:"current_xp"`
	Level  int    `json:"current_level"`
}

// AddResult is returned by Ledger.AddXP. OldLevel is the level held
// before the credit, so callers can compute the role delta after a
// level-up.
type AddResult struct {
	NewXP     int64 `json:"new_xp"`
	Level     int   `json:"level"`
	OldLevel  int   `json:"old_level"`
	LeveledUp bool  `json:"leveled_up"`
}

// RemoveResult is returned by Ledger.RemoveXP. Level is the retained
// level; removal never demotes.
type RemoveResult struct {
	NewXP int64 `json:"new_xp"`
	Level int   `json:"level"`
}

// SetResult is returned by Ledger.SetXP.
type SetResult struct {
	NewXP    int64 `json:"new_xp"`
	NewLevel int   `json:"new_level"`
}

// LevelGrant is returned by Ledger.SetLevel.
type LevelGrant struct {
	Level int   `json:"level"`
	XP    int64 `json:"xp"`
}

// LevelInfo is the read-only view returned by Ledger.GetLevel.
type LevelInfo struct {
	XP    int64 `json:"xp"`
	Level int   `json:"level"`
}
