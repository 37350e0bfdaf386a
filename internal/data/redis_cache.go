package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quocan1101-cloud/acp-hackathon/internal/core"
)

var errEmptyKey = errors.New("key cannot be empty")

var _ core.CacheRepository = (*RedisCache)(nil)

// RedisCache implements core.CacheRepository on Redis. Every key is stored
// under the configured namespace so several agents can share one instance.
type RedisCache struct {
	client    redis.UniversalClient
	namespace string
}

// NewRedisCache creates a cache. namespace may be empty.
func NewRedisCache(client redis.UniversalClient, namespace string) *RedisCache {
	ns := strings.TrimSuffix(strings.TrimSpace(namespace), ":")
	return &RedisCache{client: client, namespace: ns}
}

func (r *RedisCache) key(k string) string {
	if r.namespace == "" {
		return k
	}
	return r.namespace + ":" + k
}

// Set stores value with ttl. A zero ttl never expires.
func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return errEmptyKey
	}
	if err := r.client.Set(ctx, r.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Get returns nil, nil on a miss.
func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, errEmptyKey
	}
	b, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return b, nil
}

func (r *RedisCache) Delete(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, errEmptyKey
	}
	n, err := r.client.Del(ctx, r.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("redis del: %w", err)
	}
	return n > 0, nil
}

func (r *RedisCache) Exists(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, errEmptyKey
	}
	n, err := r.client.Exists(ctx, r.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}

func (r *RedisCache) SetTTL(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if key == "" {
		return false, errEmptyKey
	}
	ok, err := r.client.Expire(ctx, r.key(key), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis expire: %w", err)
	}
	return ok, nil
}

// SetIfNotExists runs SET NX with the TTL in one command. A ttl below one
// second is raised to one second so dedupe keys always expire.
func (r *RedisCache) SetIfNotExists(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if key == "" {
		return false, errEmptyKey
	}
	if ttl < time.Second {
		ttl = time.Second
	}
	status, err := r.client.SetArgs(ctx, r.key(key), value, redis.SetArgs{Mode: "NX", TTL: ttl}).Result()
	if err != nil {
		// NX not met comes back as a nil reply.
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis set nx: %w", err)
	}
	return status == "OK", nil
}

func (r *RedisCache) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// SetJSON marshals v and stores it under key.
func (r *RedisCache) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return r.Set(ctx, key, b, ttl)
}

// GetJSON loads key into dst. It reports false on a miss.
func (r *RedisCache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	b, err := r.Get(ctx, key)
	if err != nil || b == nil {
		return false, err
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return false, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return true, nil
}

// RedisConfig holds the connection settings.
type RedisConfig struct {
	URI       string `json:"uri"`
	Password  string `json:"password"`
	Namespace string `json:"namespace"`
}

// NewRedisClient parses cfg.URI (redis:// or rediss://, or a bare host:port)
// and returns a client. Password overrides the one in the URI.
func NewRedisClient(cfg RedisConfig) (*redis.Client, error) {
	uri := strings.TrimSpace(cfg.URI)
	if uri == "" {
		return nil, errors.New("redis uri is required")
	}
	var opts *redis.Options
	if strings.Contains(uri, "://") {
		parsed, err := redis.ParseURL(uri)
		if err != nil {
			return nil, fmt.Errorf("parse redis uri: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: uri}
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	return redis.NewClient(opts), nil
}
