package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/huangang/llmrouter/internal/config"
	"github.com/huangang/llmrouter/internal/models"
	"github.com/huangang/llmrouter/internal/services/providers"
	"github.com/huangang/llmrouter/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "llm_cache:"

// TTL tiers by price class. Expensive model responses are worth keeping
// longer; cheap ones are barely worth the memory.
const (
	cacheTTLExpensive = 24 * time.Hour
	cacheTTLMid       = time.Hour
	cacheTTLCheap     = 30 * time.Minute

	expensiveTierPricePer1M = 10.0
	midTierPricePer1M       = 1.0
)

// CachedResponse is the stored form of one completed model response.
type CachedResponse struct {
	Content      string    `json:"content"`
	FinishReason string    `json:"finish_reason"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	TotalTokens  int       `json:"total_tokens"`
	Model        string    `json:"model"`
	Provider     string    `json:"provider"`
	CreatedAt    time.Time `json:"created_at"`
}

// ResponseCache is a Redis-backed cache for identical repeated requests.
// It fails open on every path: a dead Redis turns caching off, it never
// turns requests away.
type ResponseCache struct {
	client  *redis.Client
	enabled bool
}

func NewResponseCache(cfg *config.RedisConfig) *ResponseCache {
	if cfg == nil || !cfg.Enabled {
		return &ResponseCache{}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warnf("[Cache] redis unreachable, caching disabled: %v", err)
		return &ResponseCache{}
	}

	logger.Infof("[Cache] connected to redis at %s", cfg.Addr)
	return &ResponseCache{client: client, enabled: true}
}

// Enabled reports whether the cache is live.
func (c *ResponseCache) Enabled() bool { return c.enabled }

// Fingerprint derives the deterministic cache key for a request. Any change
// to model, message content, temperature, or max tokens produces a new key.
func Fingerprint(modelID string, messages []providers.Message, params providers.Params) string {
	payload := struct {
		Model       string              `json:"model"`
		Messages    []providers.Message `json:"messages"`
		Temperature *float64            `json:"temperature"`
		MaxTokens   int                 `json:"max_tokens"`
	}{
		Model:       modelID,
		Messages:    messages,
		Temperature: params.Temperature,
		MaxTokens:   params.MaxTokens,
	}
	data, _ := json.Marshal(payload)
	sum := sha256.Sum256(data)
	return cacheKeyPrefix + modelID + ":" + hex.EncodeToString(sum[:])
}

// TTLFor picks the retention tier for a catalog entry by its combined price.
func TTLFor(entry *models.CatalogEntry) time.Duration {
	combined := entry.InputPricePer1M + entry.OutputPricePer1M
	switch {
	case combined >= expensiveTierPricePer1M:
		return cacheTTLExpensive
	case combined >= midTierPricePer1M:
		return cacheTTLMid
	default:
		return cacheTTLCheap
	}
}

// Get looks up a cached response. Any Redis or decode error is a miss.
func (c *ResponseCache) Get(ctx context.Context, key string) (*CachedResponse, bool) {
	if !c.enabled {
		return nil, false
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Debug().Err(err).Msg("cache get failed")
		}
		return nil, false
	}
	var cached CachedResponse
	if err := json.Unmarshal(data, &cached); err != nil {
		logger.Debug().Err(err).Msg("cache entry corrupt")
		return nil, false
	}
	return &cached, true
}

// Put stores a response under its fingerprint. Failures are logged and
// swallowed.
func (c *ResponseCache) Put(ctx context.Context, key string, resp *CachedResponse, ttl time.Duration) {
	if !c.enabled {
		return
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		logger.Debug().Err(err).Msg("cache put failed")
	}
}

// CacheStats is the admin view of the cache.
type CacheStats struct {
	Enabled bool  `json:"enabled"`
	Entries int64 `json:"entries"`
}

// Stats counts the live cache entries.
func (c *ResponseCache) Stats(ctx context.Context) (*CacheStats, error) {
	if !c.enabled {
		return &CacheStats{}, nil
	}
	var entries int64
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, cacheKeyPrefix+"*", 500).Result()
		if err != nil {
			return nil, err
		}
		entries += int64(len(keys))
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return &CacheStats{Enabled: true, Entries: entries}, nil
}

// Clear removes every cached response. Returns the number removed.
func (c *ResponseCache) Clear(ctx context.Context) (int64, error) {
	if !c.enabled {
		return 0, nil
	}
	var removed int64
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, cacheKeyPrefix+"*", 500).Result()
		if err != nil {
			return removed, err
		}
		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			removed += n
			if err != nil {
				return removed, err
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return removed, nil
}
