package storage

import (
	"context"
	"errors"
	"time"

	pkgredis "github.com/openbiocard/openbiocard-backend/pkg/redis"
)

// redisKV is the slice of pkg/redis the shard store needs.
type redisKV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	ShardKey(namespace, key string) string
	Ping(ctx context.Context) error
	Close() error
}

// Redis stores each shard entry under its own key without expiry.
type Redis struct {
	client redisKV
}

func NewRedis(client redisKV) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Shard(namespace string) Shard {
	return &redisShard{client: r.client, namespace: namespace}
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx)
}

// Close is a no-op; the redis client is shared and closed by its owner.
func (r *Redis) Close() error {
	return nil
}

type redisShard struct {
	client    redisKV
	namespace string
}

func (s *redisShard) Get(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := s.client.Get(ctx, s.client.ShardKey(s.namespace, key))
	if errors.Is(err, pkgredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, unavailable(err, "redis get")
	}
	if err := decode([]byte(raw), dest); err != nil {
		return false, err
	}
	return true, nil
}

func (s *redisShard) Put(ctx context.Context, key string, value any) error {
	raw, err := encode(value)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.client.ShardKey(s.namespace, key), string(raw), 0); err != nil {
		return unavailable(err, "redis put")
	}
	return nil
}

func (s *redisShard) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, key := range keys {
		full[i] = s.client.ShardKey(s.namespace, key)
	}
	if err := s.client.Del(ctx, full...); err != nil {
		return unavailable(err, "redis delete")
	}
	return nil
}
