package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bucketlist/internal/middleware"
	"bucketlist/internal/observability"

	"github.com/redis/go-redis/v9"
)

const (
	bucketKeyPattern = "bucket:%d"
	// BucketTTL bounds how stale an anonymous bucket read can be if an
	// invalidation is lost.
	BucketTTL = 5 * time.Minute
	// generationTTL outlives any fetch a generation has to guard.
	generationTTL = 24 * time.Hour
)

var (
	errNoClient = errors.New("cache: no redis client")
	errStale    = errors.New("cache: value invalidated during fetch")
)

// BucketKey is the cache key of a bucket's anonymous representation.
func BucketKey(bucketID uint) string {
	return fmt.Sprintf(bucketKeyPattern, bucketID)
}

// Store is a JSON cache over Redis. A Store with a nil client is a no-op,
// so callers need not care whether Redis is configured.
type Store struct {
	client *redis.Client
}

// NewStore wraps client, which may be nil.
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// GetJSON reads key into dest. It reports false on a miss.
func (s *Store) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if s == nil || s.client == nil {
		return false, nil
	}
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON stores v under key for ttl.
func (s *Store) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if s == nil || s.client == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, b, ttl).Err()
}

// Aside returns the cached value for key, or calls fetch to fill dest and
// caches it. Cache failures degrade to a plain fetch; fetch errors are
// returned unchanged and nothing is cached. The result is only written back
// if no Invalidate of key ran while fetch was in flight.
func (s *Store) Aside(ctx context.Context, family, key string, dest any, ttl time.Duration, fetch func() error) error {
	found, err := s.GetJSON(ctx, key, dest)
	switch {
	case err != nil:
		observability.CacheLookups.WithLabelValues(family, "error").Inc()
		middleware.Logger.WarnContext(ctx, "cache read failed", "key", key, "error", err)
	case found:
		observability.CacheLookups.WithLabelValues(family, "hit").Inc()
		return nil
	default:
		observability.CacheLookups.WithLabelValues(family, "miss").Inc()
	}

	gen, genErr := s.generation(ctx, s.client, key)

	if err := fetch(); err != nil {
		return err
	}

	if genErr != nil {
		return nil
	}
	switch err := s.setIfGeneration(ctx, key, gen, dest, ttl); {
	case errors.Is(err, errStale):
		observability.CacheLookups.WithLabelValues(family, "stale").Inc()
	case err != nil:
		middleware.Logger.WarnContext(ctx, "cache write failed", "key", key, "error", err)
	}
	return nil
}

func generationKey(key string) string {
	return key + ":gen"
}

func (s *Store) generation(ctx context.Context, c redis.Cmdable, key string) (int64, error) {
	if s == nil || s.client == nil {
		return 0, errNoClient
	}
	gen, err := c.Get(ctx, generationKey(key)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// setIfGeneration stores v under key unless the key's generation moved
// away from gen. WATCH aborts the write if an invalidation lands between
// the comparison and EXEC.
func (s *Store) setIfGeneration(ctx context.Context, key string, gen int64, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := s.generation(ctx, tx, key)
		if err != nil {
			return err
		}
		if current != gen {
			return errStale
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, b, ttl)
			return nil
		})
		return err
	}, generationKey(key))
	if errors.Is(err, redis.TxFailedErr) {
		return errStale
	}
	return err
}

// Invalidate deletes keys and bumps their generations so in-flight reads
// do not write old values back. Failures are logged rather than returned.
func (s *Store) Invalidate(ctx context.Context, keys ...string) {
	if s == nil || s.client == nil || len(keys) == 0 {
		return
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range keys {
			pipe.Incr(ctx, generationKey(key))
			pipe.Expire(ctx, generationKey(key), generationTTL)
		}
		pipe.Del(ctx, keys...)
		return nil
	})
	if err != nil {
		middleware.Logger.WarnContext(ctx, "cache invalidation failed", "keys", keys, "error", err)
	}
}
