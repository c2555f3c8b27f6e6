package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "quickcommerce:credentials:"

// Redis stores credentials as fields of one hash per namespace.
type Redis struct {
	client *redis.Client
	key    string
}

// NewRedis returns a store writing to the hash of the given namespace.
func NewRedis(client *redis.Client, namespace string) *Redis {
	return &Redis{client: client, key: redisKeyPrefix + namespace}
}

// DialRedis parses url, checks connectivity and returns the client.
func DialRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

func (r *Redis) Load(ctx context.Context) (Values, error) {
	fields, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("load credentials: %w", err)
	}
	values := Values{}
	for field, value := range fields {
		if validKey(Key(field)) == nil {
			values[Key(field)] = value
		}
	}
	return values, nil
}

func (r *Redis) Set(ctx context.Context, key Key, value string) error {
	if err := validKey(key); err != nil {
		return err
	}
	if err := r.client.HSet(ctx, r.key, string(key), value).Err(); err != nil {
		return fmt.Errorf("store credential %s: %w", key, err)
	}
	return nil
}

func (r *Redis) SetAll(ctx context.Context, values Values) error {
	if err := validValues(values); err != nil {
		return err
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.key)
		if len(values) == 0 {
			return nil
		}
		fields := make(map[string]any, len(values))
		for key, value := range values {
			fields[string(key)] = value
		}
		pipe.HSet(ctx, r.key, fields)
		return nil
	})
	if err != nil {
		return fmt.Errorf("store credentials: %w", err)
	}
	return nil
}

func (r *Redis) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}
