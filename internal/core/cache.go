// Package core defines the ports of the ACP engine and the small services
// that sit directly on top of them.
package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/quocan1101-cloud/acp-hackathon/internal/domain/model"
)

// CacheRepository defines the interface for caching operations.
// The core defines the interface and the data layer provides implementations.
type CacheRepository interface {
	// Set stores a value in the cache with the given key and TTL.
	// If TTL is 0, the key will not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get retrieves a value from the cache by key.
	// Returns nil if the key doesn't exist or has expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes a key from the cache.
	// Returns true if the key was deleted, false if it didn't exist.
	Delete(ctx context.Context, key string) (bool, error)

	// Exists checks if a key exists in the cache.
	Exists(ctx context.Context, key string) (bool, error)

	// SetTTL updates the TTL for an existing key.
	// Returns true if the key exists and TTL was updated.
	SetTTL(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// SetIfNotExists atomically sets a key only if it doesn't already exist.
	// Returns true if the key was set, false if it already existed.
	SetIfNotExists(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// Health checks the health of the cache connection.
	Health(ctx context.Context) error
}

// AgentCacheService caches agent directory lookups by wallet address.
type AgentCacheService struct {
	cache CacheRepository
	ttl   time.Duration
}

// AgentCacheConfig holds configuration for agent caching.
type AgentCacheConfig struct {
	TTL time.Duration `json:"ttl"`
}

// DefaultAgentCacheConfig returns an AgentCacheConfig with sensible defaults.
func DefaultAgentCacheConfig() AgentCacheConfig {
	return AgentCacheConfig{TTL: 10 * time.Minute}
}

// NewAgentCacheService creates a new AgentCacheService.
func NewAgentCacheService(cache CacheRepository, cfg AgentCacheConfig) *AgentCacheService {
	if cfg.TTL <= 0 {
		cfg = DefaultAgentCacheConfig()
	}
	return &AgentCacheService{cache: cache, ttl: cfg.TTL}
}

// Get returns the cached agent for wallet, or nil on a miss.
func (s *AgentCacheService) Get(ctx context.Context, wallet string) (*model.Agent, error) {
	if wallet == "" {
		return nil, nil
	}
	raw, err := s.cache.Get(ctx, agentKey(wallet))
	if err != nil || len(raw) == 0 {
		return nil, err
	}
	var agent model.Agent
	if err := json.Unmarshal(raw, &agent); err != nil {
		// A corrupt entry is treated as a miss and overwritten on the next Put.
		return nil, nil //nolint:nilerr // corrupt cache entries are misses
	}
	return &agent, nil
}

// Put caches agent under its wallet address.
func (s *AgentCacheService) Put(ctx context.Context, agent *model.Agent) error {
	if agent == nil || agent.WalletAddress == "" {
		return nil
	}
	raw, err := json.Marshal(agent)
	if err != nil {
		return fmt.Errorf("encode agent %s: %w", agent.WalletAddress, err)
	}
	return s.cache.Set(ctx, agentKey(agent.WalletAddress), raw, s.ttl)
}

// Invalidate drops the cached entry for wallet.
func (s *AgentCacheService) Invalidate(ctx context.Context, wallet string) error {
	if wallet == "" {
		return nil
	}
	_, err := s.cache.Delete(ctx, agentKey(wallet))
	return err
}

func agentKey(wallet string) string {
	return "acp:agent:" + strings.ToLower(wallet)
}

// EventDeduper drops events that were already seen within a TTL window.
type EventDeduper struct {
	cache CacheRepository
	ttl   time.Duration
}

// NewEventDeduper creates an EventDeduper. A zero ttl defaults to one hour.
func NewEventDeduper(cache CacheRepository, ttl time.Duration) *EventDeduper {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &EventDeduper{cache: cache, ttl: ttl}
}

// FirstSeen reports whether this is the first delivery of the event keyed by
// job, memo and kind. It marks the event as seen.
func (d *EventDeduper) FirstSeen(ctx context.Context, jobID, memoID int64, kind string) (bool, error) {
	key := fmt.Sprintf("acp:event:%d:%d:%s", jobID, memoID, kind)
	return d.cache.SetIfNotExists(ctx, key, []byte("1"), d.ttl)
}
