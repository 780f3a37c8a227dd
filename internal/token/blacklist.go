package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bucketlist/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RedisBlacklist keeps revoked token IDs under blacklist:<jti> with a TTL
// matching the token's remaining lifetime.
type RedisBlacklist struct {
	client *redis.Client
}

// NewRedisBlacklist returns a Redis-backed Blacklist.
func NewRedisBlacklist(client *redis.Client) *RedisBlacklist {
	return &RedisBlacklist{client: client}
}

func blacklistKey(jti string) string {
	return "blacklist:" + jti
}

func (b *RedisBlacklist) Add(ctx context.Context, jti string, expiresAt time.Time) (bool, error) {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		ttl = time.Second
	}
	added, err := b.client.SetNX(ctx, blacklistKey(jti), "1", ttl).Result()
	if err != nil {
		return false, err
	}
	return added, nil
}

func (b *RedisBlacklist) Contains(ctx context.Context, jti string) (bool, error) {
	n, err := b.client.Exists(ctx, blacklistKey(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DBBlacklist stores revoked token IDs in the blacklisted_tokens table. It is
// the durable record of every revocation.
type DBBlacklist struct {
	db *gorm.DB
}

// NewDBBlacklist returns a database-backed Blacklist.
func NewDBBlacklist(db *gorm.DB) *DBBlacklist {
	return &DBBlacklist{db: db}
}

func (b *DBBlacklist) Add(ctx context.Context, jti string, expiresAt time.Time) (bool, error) {
	res := b.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.BlacklistedToken{JTI: jti, ExpiresAt: expiresAt})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (b *DBBlacklist) Contains(ctx context.Context, jti string) (bool, error) {
	var row models.BlacklistedToken
	err := b.db.WithContext(ctx).Where("jti = ?", jti).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// PurgeExpired deletes rows whose tokens can no longer be presented.
func (b *DBBlacklist) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res := b.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&models.BlacklistedToken{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge blacklist: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// CachedBlacklist writes revocations to the database and mirrors them into
// Redis. Lookups hit Redis first and fall through to the database on a miss
// or a Redis error, so revocations survive a restart without Redis.
type CachedBlacklist struct {
	durable *DBBlacklist
	cache   *RedisBlacklist
}

// NewBlacklist returns the database blacklist, fronted by Redis when
// rdb is not nil.
func NewBlacklist(db *gorm.DB, rdb *redis.Client) Blacklist {
	durable := NewDBBlacklist(db)
	if rdb == nil {
		return durable
	}
	return &CachedBlacklist{durable: durable, cache: NewRedisBlacklist(rdb)}
}

// Add reports whether jti was new to the database. The Redis copy is best
// effort.
func (b *CachedBlacklist) Add(ctx context.Context, jti string, expiresAt time.Time) (bool, error) {
	added, err := b.durable.Add(ctx, jti, expiresAt)
	if err != nil {
		return false, err
	}
	_, _ = b.cache.Add(ctx, jti, expiresAt)
	return added, nil
}

func (b *CachedBlacklist) Contains(ctx context.Context, jti string) (bool, error) {
	if found, err := b.cache.Contains(ctx, jti); err == nil && found {
		return true, nil
	}
	return b.durable.Contains(ctx, jti)
}
