package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/huangang/llmrouter/internal/config"
	"github.com/huangang/llmrouter/internal/services/providers"
)

// newLiveCache backs a ResponseCache with an in-process redis so the enabled
// read/write paths run for real.
func newLiveCache(t *testing.T) (*ResponseCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	cache := NewResponseCache(&config.RedisConfig{Enabled: true, Addr: mr.Addr()})
	if !cache.Enabled() {
		t.Fatal("cache should come up enabled against a live backend")
	}
	return cache, mr
}

func TestFingerprint_Deterministic(t *testing.T) {
	messages := []providers.Message{{Role: "user", Content: "hello"}}
	params := providers.Params{MaxTokens: 100}

	key1 := Fingerprint("gpt-4o", messages, params)
	key2 := Fingerprint("gpt-4o", messages, params)

	if key1 != key2 {
		t.Errorf("identical requests should produce identical keys: %q vs %q", key1, key2)
	}
	if !strings.HasPrefix(key1, "llm_cache:gpt-4o:") {
		t.Errorf("key should carry the prefix and model id, got %q", key1)
	}
}

func TestFingerprint_SensitiveToEveryInput(t *testing.T) {
	base := Fingerprint("gpt-4o", []providers.Message{{Role: "user", Content: "hello"}}, providers.Params{MaxTokens: 100})

	temp := 0.7
	variants := map[string]string{
		"different model":      Fingerprint("gpt-4o-mini", []providers.Message{{Role: "user", Content: "hello"}}, providers.Params{MaxTokens: 100}),
		"different content":    Fingerprint("gpt-4o", []providers.Message{{Role: "user", Content: "hello!"}}, providers.Params{MaxTokens: 100}),
		"different role":       Fingerprint("gpt-4o", []providers.Message{{Role: "system", Content: "hello"}}, providers.Params{MaxTokens: 100}),
		"different max tokens": Fingerprint("gpt-4o", []providers.Message{{Role: "user", Content: "hello"}}, providers.Params{MaxTokens: 200}),
		"temperature set":      Fingerprint("gpt-4o", []providers.Message{{Role: "user", Content: "hello"}}, providers.Params{Temperature: &temp, MaxTokens: 100}),
		"extra message":        Fingerprint("gpt-4o", []providers.Message{{Role: "user", Content: "hello"}, {Role: "user", Content: "again"}}, providers.Params{MaxTokens: 100}),
	}

	for name, key := range variants {
		if key == base {
			t.Errorf("%s should change the fingerprint", name)
		}
	}
}

func TestTTLFor_Tiers(t *testing.T) {
	tests := []struct {
		name     string
		inPrice  float64
		outPrice float64
		expected time.Duration
	}{
		{"expensive model", 2.50, 10.00, cacheTTLExpensive},
		{"mid tier model", 0.30, 2.50, cacheTTLMid},
		{"cheap model", 0.15, 0.60, cacheTTLCheap},
		{"free model", 0, 0, cacheTTLCheap},
		{"expensive boundary", 3.00, 7.00, cacheTTLExpensive},
		{"mid boundary", 0.50, 0.50, cacheTTLMid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := testEntry("m", tt.inPrice, tt.outPrice)
			if ttl := TTLFor(entry); ttl != tt.expected {
				t.Errorf("TTLFor() = %v, expected %v", ttl, tt.expected)
			}
		})
	}
}

func TestResponseCache_RoundTrip(t *testing.T) {
	cache, mr := newLiveCache(t)
	ctx := context.Background()

	key := Fingerprint("gpt-4o", []providers.Message{{Role: "user", Content: "hello"}}, providers.Params{MaxTokens: 100})
	stored := &CachedResponse{
		Content:      "cached answer",
		FinishReason: "stop",
		InputTokens:  100,
		OutputTokens: 50,
		TotalTokens:  150,
		Model:        "gpt-4o",
		Provider:     "openai",
		CreatedAt:    time.Now().UTC(),
	}
	cache.Put(ctx, key, stored, cacheTTLMid)

	got, ok := cache.Get(ctx, key)
	if !ok {
		t.Fatal("Get() should hit after Put() under the same key")
	}
	if got.Content != stored.Content || got.FinishReason != stored.FinishReason {
		t.Errorf("content round-trip mismatch: %+v", got)
	}
	if got.InputTokens != 100 || got.OutputTokens != 50 || got.TotalTokens != 150 {
		t.Errorf("usage round-trip mismatch: %+v", got)
	}
	if got.Model != "gpt-4o" || got.Provider != "openai" {
		t.Errorf("origin round-trip mismatch: %+v", got)
	}
	if ttl := mr.TTL(key); ttl != cacheTTLMid {
		t.Errorf("stored TTL = %v, expected %v", ttl, cacheTTLMid)
	}

	if _, ok := cache.Get(ctx, cacheKeyPrefix+"gpt-4o:unknown"); ok {
		t.Error("a key never written should miss")
	}
}

func TestResponseCache_ExpiredEntryMisses(t *testing.T) {
	cache, mr := newLiveCache(t)
	ctx := context.Background()

	cache.Put(ctx, cacheKeyPrefix+"m:abc", &CachedResponse{Content: "x"}, cacheTTLCheap)
	mr.FastForward(cacheTTLCheap + time.Second)

	if _, ok := cache.Get(ctx, cacheKeyPrefix+"m:abc"); ok {
		t.Error("entry past its TTL should miss")
	}
}

func TestResponseCache_CorruptEntryMisses(t *testing.T) {
	cache, mr := newLiveCache(t)

	if err := mr.Set(cacheKeyPrefix+"m:abc", "not json"); err != nil {
		t.Fatalf("seed corrupt entry: %v", err)
	}
	if _, ok := cache.Get(context.Background(), cacheKeyPrefix+"m:abc"); ok {
		t.Error("an undecodable entry should miss, not error")
	}
}

func TestResponseCache_StatsAndClear(t *testing.T) {
	cache, _ := newLiveCache(t)
	ctx := context.Background()

	cache.Put(ctx, cacheKeyPrefix+"m:1", &CachedResponse{Content: "a"}, time.Hour)
	cache.Put(ctx, cacheKeyPrefix+"m:2", &CachedResponse{Content: "b"}, time.Hour)

	stats, err := cache.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if !stats.Enabled || stats.Entries != 2 {
		t.Errorf("stats = %+v, expected enabled with 2 entries", stats)
	}

	removed, err := cache.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if removed != 2 {
		t.Errorf("Clear() removed %d, expected 2", removed)
	}

	stats, err = cache.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() after clear error = %v", err)
	}
	if stats.Entries != 0 {
		t.Errorf("entries after clear = %d, expected 0", stats.Entries)
	}
}

func TestResponseCache_DisabledFailsOpen(t *testing.T) {
	cache := NewResponseCache(&config.RedisConfig{Enabled: false})
	ctx := context.Background()

	if cache.Enabled() {
		t.Error("cache should be disabled")
	}

	if _, ok := cache.Get(ctx, "llm_cache:gpt-4o:abc"); ok {
		t.Error("disabled cache should always miss")
	}

	// Put must be a no-op, not a panic or error.
	cache.Put(ctx, "llm_cache:gpt-4o:abc", &CachedResponse{Content: "hi"}, time.Hour)

	stats, err := cache.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.Enabled || stats.Entries != 0 {
		t.Errorf("disabled cache stats = %+v, expected zero values", stats)
	}

	removed, err := cache.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if removed != 0 {
		t.Errorf("Clear() on disabled cache removed %d", removed)
	}
}

func TestResponseCache_UnreachableRedisFailsOpen(t *testing.T) {
	// Nothing listens on this port; construction must degrade, not fail.
	cache := NewResponseCache(&config.RedisConfig{Enabled: true, Addr: "127.0.0.1:1"})
	if cache.Enabled() {
		t.Error("cache should disable itself when redis is unreachable")
	}
}

func TestResponseCache_NilConfig(t *testing.T) {
	cache := NewResponseCache(nil)
	if cache.Enabled() {
		t.Error("nil config should yield a disabled cache")
	}
}
