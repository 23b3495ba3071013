package repository

import (
	"context"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const defaultRedisKeyPrefix = "pdfhistory:kv:" // pdfhistory:kv:{key}

// RedisKeyValueStore KeyValueStore поверх Redis
type RedisKeyValueStore struct {
	client *redis.Client
	prefix string
}

var _ KeyValueStore = &RedisKeyValueStore{}

func NewRedisKeyValueStore(client *redis.Client, prefix string) *RedisKeyValueStore {
	if prefix == "" {
		prefix = defaultRedisKeyPrefix
	}
	return &RedisKeyValueStore{client: client, prefix: prefix}
}

func (s *RedisKeyValueStore) GetItem(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, s.prefix+key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "redis kv store: get item")
	}
	return value, true, nil
}

func (s *RedisKeyValueStore) SetItem(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		return errors.Wrap(err, "redis kv store: set item")
	}
	return nil
}

func (s *RedisKeyValueStore) RemoveItem(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return errors.Wrap(err, "redis kv store: remove item")
	}
	return nil
}
