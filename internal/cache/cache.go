// Package cache はテナント分離を意識したRedisキャッシュの薄いラッパーです。
// キーは "prefix:company_id:arg1:arg2:..." の形式で、会社単位の一括無効化ができます。
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cache struct {
	rdb    *redis.Client
	logger *slog.Logger
}

func New(addr, password string, db int, logger *slog.Logger) (*Cache, error) {
	if logger == nil {
		logger = slog.Default()
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Error("Failed to connect to redis", slog.String("addr", addr), slog.Any("error", err))
		return nil, err
	}

	logger.Info("Redis connection established", slog.String("addr", addr))
	return &Cache{rdb: rdb, logger: logger}, nil
}

func (c *Cache) Close() error {
	return c.rdb.Close()
}

// Key はキャッシュキーを組み立てます。companyID が空ならグローバルキーになります。
func Key(prefix, companyID string, args ...string) string {
	parts := make([]string, 0, len(args)+2)
	parts = append(parts, prefix)
	if companyID != "" {
		parts = append(parts, companyID)
	}
	parts = append(parts, args...)
	return strings.Join(parts, ":")
}

// GetOrSetJSON はキャッシュヒットなら dst にデコードし、ミスなら fetch の結果を
// JSONで保存してから dst に入れます。Redis障害時はキャッシュを素通りして fetch に
// フォールバックします（キャッシュは可用性を落とさない）。
func (c *Cache) GetOrSetJSON(ctx context.Context, key string, ttl time.Duration, dst any, fetch func() (any, error)) error {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err == nil {
		if jsonErr := json.Unmarshal(raw, dst); jsonErr == nil {
			return nil
		}
		// 壊れたエントリは消して再取得
		c.logger.Warn("Corrupted cache entry, refetching", slog.String("key", key))
		_ = c.rdb.Del(ctx, key).Err()
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("Redis GET failed, falling through to fetch", slog.String("key", key), slog.Any("error", err))
	}

	value, err := fetch()
	if err != nil {
		return err
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := c.rdb.Set(ctx, key, encoded, ttl).Err(); err != nil {
		c.logger.Warn("Redis SET failed", slog.String("key", key), slog.Any("error", err))
	}

	return json.Unmarshal(encoded, dst)
}

// Incr はキーのカウンタを1増やして現在値を返します。カウンタが新規作成
// されたとき（値が1のとき）だけTTLを設定するので、固定ウィンドウの
// レートリミットにそのまま使えます。
func (c *Cache) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := c.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := c.rdb.Expire(ctx, key, ttl).Err(); err != nil {
			c.logger.Warn("Redis EXPIRE failed", slog.String("key", key), slog.Any("error", err))
		}
	}
	return count, nil
}

// Invalidate は指定キーを削除します。
func (c *Cache) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// InvalidatePattern はパターンに一致するキーをSCANで集めて削除し、件数を返します。
func (c *Cache) InvalidatePattern(ctx context.Context, pattern string) (int, error) {
	var deleted int
	iter := c.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	batch := make([]string, 0, 100)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := c.rdb.Del(ctx, batch...).Err(); err != nil {
				return deleted, err
			}
			deleted += len(batch)
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, err
	}
	if len(batch) > 0 {
		if err := c.rdb.Del(ctx, batch...).Err(); err != nil {
			return deleted, err
		}
		deleted += len(batch)
	}
	return deleted, nil
}

// InvalidateCompany は会社単位でキャッシュを無効化します。
// prefix を指定するとそのプレフィックス配下だけを対象にします。
func (c *Cache) InvalidateCompany(ctx context.Context, companyID string, prefix string) (int, error) {
	pattern := "*:" + companyID + "*"
	if prefix != "" {
		pattern = prefix + ":" + companyID + "*"
	}
	return c.InvalidatePattern(ctx, pattern)
}
