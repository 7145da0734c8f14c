package workflow

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/huhu-tiger/reportgen/config"
	"github.com/huhu-tiger/reportgen/models"
)

const cacheKeyPrefix = "reportgen:report:"

// cachedReport is the cache value: the finished report plus the corpus it
// was written from, so a cache hit can replay a full ReportReady event.
type cachedReport struct {
	Report string            `json:"report"`
	Corpus *models.RunCorpus `json:"corpus"`
}

// reportCache is keyed by normalized topic. A lookup failure is a miss, never
// an error; the pipeline just runs.
type reportCache interface {
	Get(ctx context.Context, topic string) (cachedReport, bool)
	Put(ctx context.Context, topic string, entry cachedReport)
}

// newCache picks the backend: redis when an address is configured, otherwise
// process memory.
func newCache(cfg config.CacheConfig, logger *log.Logger) reportCache {
	if cfg.RedisAddr == "" {
		return newMemoryCache(cfg.TTL)
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return &redisCache{client: client, ttl: cfg.TTL, logger: logger}
}

// cacheKey hashes the trimmed topic so arbitrary topics make safe keys.
// Topics that differ beyond surrounding whitespace are distinct entries.
func cacheKey(topic string) string {
	return fmt.Sprintf("%s%x", cacheKeyPrefix, sha256.Sum256([]byte(strings.TrimSpace(topic))))
}

type memoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
}

type memoryEntry struct {
	value   cachedReport
	expires time.Time
}

func newMemoryCache(ttl time.Duration) *memoryCache {
	return &memoryCache{entries: make(map[string]memoryEntry), ttl: ttl}
}

func (c *memoryCache) Get(_ context.Context, topic string) (cachedReport, bool) {
	c.mu.RLock()
	e, ok := c.entries[cacheKey(topic)]
	c.mu.RUnlock()
	if !ok {
		return cachedReport{}, false
	}
	if !e.expires.IsZero() && time.Now().After(e.expires) {
		return cachedReport{}, false
	}
	return e.value, true
}

func (c *memoryCache) Put(_ context.Context, topic string, entry cachedReport) {
	e := memoryEntry{value: entry}
	if c.ttl > 0 {
		e.expires = time.Now().Add(c.ttl)
	}
	c.mu.Lock()
	c.entries[cacheKey(topic)] = e
	c.mu.Unlock()
}

type redisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *log.Logger
}

func (c *redisCache) Get(ctx context.Context, topic string) (cachedReport, bool) {
	raw, err := c.client.Get(ctx, cacheKey(topic)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Printf("cache get failed: %v", err)
		}
		return cachedReport{}, false
	}
	var entry cachedReport
	if err := json.Unmarshal(raw, &entry); err != nil {
		c.logger.Printf("cache entry corrupt, ignoring: %v", err)
		return cachedReport{}, false
	}
	return entry, true
}

func (c *redisCache) Put(ctx context.Context, topic string, entry cachedReport) {
	raw, err := json.Marshal(entry)
	if err != nil {
		c.logger.Printf("cache marshal failed: %v", err)
		return
	}
	if err := c.client.Set(ctx, cacheKey(topic), raw, c.ttl).Err(); err != nil {
		c.logger.Printf("cache put failed: %v", err)
	}
}
