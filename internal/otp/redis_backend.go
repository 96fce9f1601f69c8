package otp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix         = "otp:"
	maxUpdateAttempts = 5
)

// RedisBackend stores each entry as JSON with a TTL matching its expiry.
type RedisBackend struct {
	rdb *redis.Client
	now func() time.Time
}

// NewRedisBackend connects to redisURL and pings it.
func NewRedisBackend(ctx context.Context, redisURL string) (*RedisBackend, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 2 * time.Second
	opts.WriteTimeout = 2 * time.Second
	opts.MaxRetries = 3

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return NewRedisBackendWithClient(rdb), nil
}

func NewRedisBackendWithClient(rdb *redis.Client) *RedisBackend {
	return &RedisBackend{rdb: rdb, now: time.Now}
}

func (r *RedisBackend) Close() error {
	return r.rdb.Close()
}

func (r *RedisBackend) Put(ctx context.Context, e Entry) error {
	ttl := e.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return r.Delete(ctx, e.Identifier)
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode otp entry: %w", err)
	}
	if err := r.rdb.Set(ctx, keyPrefix+e.Identifier, data, ttl).Err(); err != nil {
		return fmt.Errorf("store otp entry: %w", err)
	}
	return nil
}

func (r *RedisBackend) Get(ctx context.Context, id string) (*Entry, error) {
	data, err := r.rdb.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load otp entry: %w", err)
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode otp entry: %w", err)
	}
	return &e, nil
}

// Update runs fn inside a WATCH transaction and retries when another client
// changed the key first.
func (r *RedisBackend) Update(ctx context.Context, id string, fn func(e *Entry) Mutation) (bool, error) {
	key := keyPrefix + id
	var found bool

	txf := func(tx *redis.Tx) error {
		found = false
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		var e Entry
		if err := json.Unmarshal(data, &e); err != nil {
			return fmt.Errorf("decode otp entry: %w", err)
		}
		found = true

		mutation := fn(&e)
		ttl := e.ExpiresAt.Sub(r.now())
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if mutation == Remove || ttl <= 0 {
				pipe.Del(ctx, key)
				return nil
			}
			updated, err := json.Marshal(e)
			if err != nil {
				return fmt.Errorf("encode otp entry: %w", err)
			}
			pipe.Set(ctx, key, updated, ttl)
			return nil
		})
		return err
	}

	for i := 0; i < maxUpdateAttempts; i++ {
		err := r.rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("update otp entry: %w", err)
		}
		return found, nil
	}
	return false, fmt.Errorf("update otp entry %s: too much contention", id)
}

func (r *RedisBackend) Delete(ctx context.Context, id string) error {
	if err := r.rdb.Del(ctx, keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("delete otp entry: %w", err)
	}
	return nil
}
