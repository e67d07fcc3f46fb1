package redisdb

import (
	"context"
	"strconv"
	"time"

	"github.com/kitty-items/flow-event-publisher/entities"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Store keeps the processed height in redis, for deployments without a persistent volume.
type Store struct {
	client  redis.UniversalClient
	key     string
	timeout time.Duration
}

func NewStore(client redis.UniversalClient, keyPrefix string, timeout time.Duration) *Store {
	return &Store{
		client:  client,
		key:     keyPrefix + ":last-processed-height",
		timeout: timeout,
	}
}

func (s *Store) SetLastProcessedHeight(height uint64) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	err := s.client.Set(ctx, s.key, strconv.FormatUint(height, 10), 0).Err()
	if err != nil {
		return errors.Wrapf(err, "setting key [%s] to [%d]", s.key, height)
	}
	return nil
}

func (s *Store) GetLastProcessedHeight() (uint64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	value, err := s.client.Get(ctx, s.key).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, entities.ErrStoreEntityNotFound
	}
	if err != nil {
		return 0, errors.Wrapf(err, "getting value for key [%s]", s.key)
	}
	return value, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
