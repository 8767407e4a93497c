package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"FinCollect/internal/domain/models"
	"FinCollect/internal/domain/repository"
	"FinCollect/pkg/cache"
)

// RedisLedgerBackend mirrors each ledger into a Redis list. Ledger keys are
// hashed for the list name; an index hash maps the hash back to the typed key.
type RedisLedgerBackend struct {
	rc *cache.RedisClient
}

// NewRedisLedgerBackend creates the Redis-backed ledger mirror.
func NewRedisLedgerBackend(rc *cache.RedisClient) repository.LedgerBackend {
	return &RedisLedgerBackend{rc: rc}
}

func (b *RedisLedgerBackend) listKey(key models.LedgerKey) string {
	return b.rc.Key("ledger", cache.HashKey(key.String()))
}

func (b *RedisLedgerBackend) indexKey() string {
	return b.rc.Key("ledgers")
}

// Append pushes rec and trims evict records from the head in one transaction.
func (b *RedisLedgerBackend) Append(ctx context.Context, key models.LedgerKey, rec models.CollectedRecord, evict int) error {
	data, err := json.Marshal(&rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	keyJSON, err := json.Marshal(key)
	if err != nil {
		return fmt.Errorf("marshal ledger key: %w", err)
	}

	list := b.listKey(key)
	pipe := b.rc.Client().TxPipeline()
	pipe.RPush(ctx, list, string(data))
	if evict > 0 {
		pipe.LTrim(ctx, list, int64(evict), -1)
	}
	pipe.HSet(ctx, b.indexKey(), cache.HashKey(key.String()), string(keyJSON))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis append: %w", err)
	}
	return nil
}

// Load returns the ledger oldest first.
func (b *RedisLedgerBackend) Load(ctx context.Context, key models.LedgerKey) ([]models.CollectedRecord, error) {
	raw, err := b.rc.Client().LRange(ctx, b.listKey(key), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis load: %w", err)
	}
	out := make([]models.CollectedRecord, 0, len(raw))
	for i, s := range raw {
		var rec models.CollectedRecord
		if err := json.Unmarshal([]byte(s), &rec); err != nil {
			return nil, fmt.Errorf("decode record %d of %s: %w", i, key, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (b *RedisLedgerBackend) Delete(ctx context.Context, key models.LedgerKey) error {
	pipe := b.rc.Client().TxPipeline()
	pipe.Del(ctx, b.listKey(key))
	pipe.HDel(ctx, b.indexKey(), cache.HashKey(key.String()))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}

// Keys lists mirrored ledgers from the index hash.
func (b *RedisLedgerBackend) Keys(ctx context.Context) ([]models.LedgerKey, error) {
	index, err := b.rc.Client().HGetAll(ctx, b.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis keys: %w", err)
	}
	keys := make([]models.LedgerKey, 0, len(index))
	for field, v := range index {
		var key models.LedgerKey
		if err := json.Unmarshal([]byte(v), &key); err != nil {
			return nil, fmt.Errorf("decode ledger index %s: %w", field, err)
		}
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys, nil
}

// Close is a no-op; the Redis client is shared and closed by its owner.
func (b *RedisLedgerBackend) Close() error {
	return nil
}
