package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces every key written by RedisStore.
const DefaultRedisPrefix = "kycaml:tm:"

const maxTxRetries = 16

// RedisConfig configures the Redis backend.
type RedisConfig struct {
	// Prefix is prepended to every key. Default: DefaultRedisPrefix.
	Prefix string

	// Clock stamps CreatedAt. Expiry is tracked by Redis itself.
	Clock Clock
}

// RedisStore keeps entries in Redis so several engine instances share one
// dedup and alert-group view. Expiry uses native key TTLs, so Purge has
// nothing to remove.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	now    Clock
}

type redisEnvelope struct {
	Value     []byte `json:"v"`
	CreatedAt int64  `json:"c"`
	ExpiresAt int64  `json:"e,omitempty"`
}

// NewRedisStore wraps an existing client. The caller owns the client unless
// Close is called.
func NewRedisStore(client redis.UniversalClient, cfg RedisConfig) *RedisStore {
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultRedisPrefix
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &RedisStore{client: client, prefix: cfg.Prefix, now: cfg.Clock}
}

// CheckAndInsert implements Store using SET NX.
func (r *RedisStore) CheckAndInsert(ctx context.Context, key string, value []byte, ttl time.Duration) (*Entry, bool, error) {
	now := r.now()
	e := &Entry{Key: key, Value: value, CreatedAt: now, ExpiresAt: expiry(now, ttl)}
	payload, err := encodeEnvelope(e)
	if err != nil {
		return nil, false, newBackendError("redis", "encode", err)
	}

	ok, err := r.client.SetNX(ctx, r.prefix+key, payload, ttlFor(e, now)).Result()
	if err != nil {
		return nil, false, newBackendError("redis", "setnx", err)
	}
	if ok {
		return nil, true, nil
	}

	existing, err := r.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// Update implements Store with WATCH/MULTI, retrying on contention.
func (r *RedisStore) Update(ctx context.Context, key string, fn UpdateFunc) (*Entry, error) {
	full := r.prefix + key
	var result *Entry

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, full).Bytes()
		var cur *Entry
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			if cur, err = decodeEnvelope(key, raw); err != nil {
				return err
			}
		}

		next, err := fn(cur)
		if err != nil {
			return err
		}
		if next == nil {
			result = cur
			return nil
		}
		next = copyEntry(next)
		next.Key = key
		now := r.now()
		if next.CreatedAt.IsZero() {
			next.CreatedAt = now
		}
		payload, err := encodeEnvelope(next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, full, payload, ttlFor(next, now))
			return nil
		})
		if err == nil {
			result = next
		}
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := r.client.Watch(ctx, txf, full)
		if err == nil {
			return copyEntry(result), nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			var be *BackendError
			if errors.As(err, &be) {
				return nil, err
			}
			return nil, newBackendError("redis", "update", err)
		}
	}
	return nil, newBackendError("redis", "update", errors.New("too much contention"))
}

// Get implements Store.
func (r *RedisStore) Get(ctx context.Context, key string) (*Entry, error) {
	raw, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, newBackendError("redis", "get", err)
	}
	e, err := decodeEnvelope(key, raw)
	if err != nil {
		return nil, newBackendError("redis", "decode", err)
	}
	return e, nil
}

// Purge implements Store. Redis expires keys itself.
func (r *RedisStore) Purge(ctx context.Context) (int64, error) {
	return 0, nil
}

// Close closes the underlying client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

func ttlFor(e *Entry, now time.Time) time.Duration {
	if e.ExpiresAt.IsZero() {
		return 0
	}
	ttl := e.ExpiresAt.Sub(now)
	if ttl < time.Millisecond {
		ttl = time.Millisecond
	}
	return ttl
}

func encodeEnvelope(e *Entry) ([]byte, error) {
	return json.Marshal(redisEnvelope{
		Value:     e.Value,
		CreatedAt: e.CreatedAt.UnixNano(),
		ExpiresAt: unixNano(e.ExpiresAt),
	})
}

func decodeEnvelope(key string, raw []byte) (*Entry, error) {
	var env redisEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	e := &Entry{Key: key, Value: env.Value, CreatedAt: time.Unix(0, env.CreatedAt)}
	if env.ExpiresAt > 0 {
		e.ExpiresAt = time.Unix(0, env.ExpiresAt)
	}
	return e, nil
}
