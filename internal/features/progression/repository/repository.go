package repository

import (
	"context"
	"errors"

	"forum-xp-backend/internal/features/progression/models"
)

// ErrNotFound is returned by Get when no record exists for the user.
// Callers branch on it; it is a normal negative result, not a failure.
var ErrNotFound = errors.New("user record not found")

// RecordStore is the durability boundary for user XP state. Put must
// not return until the record is durable; a failed Put means the
// mutation did not happen.
type RecordStore interface {
	Get(ctx context.Context, userID string) (*models.UserRecord, error)
	Put(ctx context.Context, record *models.UserRecord) error
	Ping(ctx context.Context) error
	Close() error
}
