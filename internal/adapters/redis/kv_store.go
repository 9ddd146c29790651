package redis

// Package redis provides the Redis-backed key/value store for console sessions.

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ohsansi/olympiad-console/internal/ports"
)

// DefaultPrefix namespaces every key written by KVStore.
const DefaultPrefix = "olympiad:"

var (
	_ ports.KeyValueStore = (*KVStore)(nil)
	_ ports.BatchWriter   = (*KVStore)(nil)
)

// KVStore is a Redis-based key/value store for the session triple.
// When ttl is positive every write refreshes the key expiry.
type KVStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// KVStoreOptions configures a KVStore.
type KVStoreOptions struct {
	Prefix string
	TTL    time.Duration
}

// NewKVStore creates a Redis key/value store with the default prefix and no expiry.
func NewKVStore(client redis.UniversalClient) *KVStore {
	return NewKVStoreWithOptions(client, KVStoreOptions{})
}

// NewKVStoreWithOptions creates a Redis key/value store with a custom prefix and TTL.
func NewKVStoreWithOptions(client redis.UniversalClient, opts KVStoreOptions) *KVStore {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	ttl := opts.TTL
	if ttl < 0 {
		ttl = 0
	}
	return &KVStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *KVStore) key(k string) string { return s.prefix + k }

func (s *KVStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	return val, true, nil
}

func (s *KVStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.key(key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *KVStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, s.prefixed(keys)...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// WriteBatch applies deletes and sets inside one MULTI/EXEC transaction.
func (s *KVStore) WriteBatch(ctx context.Context, sets map[string]string, deletes []string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(deletes) > 0 {
			pipe.Del(ctx, s.prefixed(deletes)...)
		}
		for k, v := range sets {
			pipe.Set(ctx, s.key(k), v, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis batch write: %w", err)
	}
	return nil
}

func (s *KVStore) prefixed(keys []string) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = s.key(k)
	}
	return out
}
