// Package redis provides a record store backed by an out-of-process
// Redis instance, for deployments where the database file cannot live
// next to the bot.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	apperrors "forum-xp-backend/internal/common/errors"
	"forum-xp-backend/internal/features/progression/models"
	"forum-xp-backend/internal/features/progression/repository"

	"github.com/redis/go-redis/v9"
)

type Store struct {
	client *redis.Client
}

func New(client *redis.Client) *Store {
	return &Store{client: client}
}

func key(userID string) string {
	return fmt.Sprintf("xp:user:%s", userID)
}

func (s *Store) Get(ctx context.Context, userID string) (*models.UserRecord, error) {
	data, err := s.client.Get(ctx, key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError(fmt.Sprintf("get user %s", userID), err)
	}

	var record models.UserRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("decode user %s: %w", userID, err)
	}
	return &record, nil
}

func (s *Store) Put(ctx context.Context, record *models.UserRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode user %s: %w", record.UserID, err)
	}
	if err := s.client.Set(ctx, key(record.UserID), data, 0).Err(); err != nil {
		return apperrors.NewDatabaseError(fmt.Sprintf("put user %s", record.UserID), err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}
