package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// Redis stores values as plain Redis strings without expiry.
type Redis struct {
	inner *redis.Client
}

func NewRedis(ctx context.Context, addr, password string) (*Redis, error) {
	if addr == "" {
		return nil, errors.New("no Redis address supplied")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0, // use default DB
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Redis{inner: client}, nil
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.inner.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, ioError("get "+key, err)
	}
	return v, true, nil
}

func (r *Redis) Set(ctx context.Context, key, value string) error {
	if err := r.inner.Set(ctx, key, value, 0).Err(); err != nil {
		return ioError("set "+key, err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.inner.Close()
}
