package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goran-ethernal/ChainReplay/pkg/config"
	"github.com/goran-ethernal/ChainReplay/pkg/events"
	"github.com/redis/go-redis/v9"
)

const (
	keyEvent    = "event:"
	keyEventIDs = "events"

	redisScanBatch = 500
)

var _ events.Storage = (*RedisStorage)(nil)

// RedisStorage keeps each event as a JSON string plus a set of all ids.
type RedisStorage struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStorage connects using a redis:// URL and verifies the connection.
func NewRedisStorage(ctx context.Context, cfg *config.RedisConfig) (*RedisStorage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second) //nolint:mnd
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewRedisStorageWithClient(client, cfg.KeyPrefix), nil
}

// NewRedisStorageWithClient wraps an existing client.
func NewRedisStorageWithClient(client *redis.Client, keyPrefix string) *RedisStorage {
	return &RedisStorage{client: client, keyPrefix: keyPrefix}
}

func (r *RedisStorage) key(parts ...string) string {
	k := r.keyPrefix
	for _, p := range parts {
		k += p
	}
	return k
}

func (r *RedisStorage) Put(ctx context.Context, evs ...*events.IndexedEvent) error {
	if len(evs) == 0 {
		return nil
	}

	pipe := r.client.TxPipeline()
	for _, ev := range evs {
		data, err := encodeEvent(ev)
		if err != nil {
			return err
		}
		pipe.Set(ctx, r.key(keyEvent, ev.ID), data, 0)
		pipe.SAdd(ctx, r.key(keyEventIDs), ev.ID)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis put pipeline: %w", err)
	}

	storeWritesAdd("redis", len(evs))
	return nil
}

func (r *RedisStorage) Get(ctx context.Context, id string) (*events.IndexedEvent, error) {
	data, err := r.client.Get(ctx, r.key(keyEvent, id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, events.ErrEventNotFound
		}
		return nil, fmt.Errorf("redis get %s: %w", id, err)
	}
	return decodeEvent(data)
}

func (r *RedisStorage) Scan(ctx context.Context, fn func(*events.IndexedEvent) error) error {
	var cursor uint64
	for {
		ids, next, err := r.client.SScan(ctx, r.key(keyEventIDs), cursor, "", redisScanBatch).Result()
		if err != nil {
			return fmt.Errorf("redis scan ids: %w", err)
		}

		if len(ids) > 0 {
			keys := make([]string, len(ids))
			for i, id := range ids {
				keys[i] = r.key(keyEvent, id)
			}

			values, err := r.client.MGet(ctx, keys...).Result()
			if err != nil {
				return fmt.Errorf("redis mget: %w", err)
			}

			for _, v := range values {
				s, ok := v.(string)
				if !ok {
					// id in the set without a document; removed concurrently
					continue
				}
				ev, err := decodeEvent([]byte(s))
				if err != nil {
					return err
				}
				if err := fn(ev); err != nil {
					return err
				}
			}
		}

		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

func (r *RedisStorage) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}

	keys := make([]string, len(ids))
	members := make([]any, len(ids))
	for i, id := range ids {
		keys[i] = r.key(keyEvent, id)
		members[i] = id
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, keys...)
	pipe.SRem(ctx, r.key(keyEventIDs), members...)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis delete pipeline: %w", err)
	}

	storeDeletesAdd("redis", len(ids))
	return nil
}

func (r *RedisStorage) Close() error {
	return r.client.Close()
}
