package saga

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps saga logs in redis with a TTL so failed runs can be
// inspected after the fact without growing unbounded.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "saga"
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) key(id string) string {
	return fmt.Sprintf("%s:log:%s", s.prefix, id)
}

func (s *RedisStore) Save(ctx context.Context, log *Log) error {
	data, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("marshal saga log: %w", err)
	}
	return s.client.Set(ctx, s.key(log.ID), data, s.ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Log, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrLogNotFound
	}
	if err != nil {
		return nil, err
	}
	var log Log
	if err := json.Unmarshal(data, &log); err != nil {
		return nil, fmt.Errorf("unmarshal saga log: %w", err)
	}
	return &log, nil
}

func (s *RedisStore) Update(ctx context.Context, log *Log) error {
	return s.Save(ctx, log)
}
