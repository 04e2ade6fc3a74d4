package services

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/veritaslearn/contributor-engine/pkg/models"
)

// SuggestionCache is a process-local cache for assistance lookups. Entries
// are best effort: eviction or loss only costs a repeat upstream call.
type SuggestionCache interface {
	Get(key string) (*models.AssistanceResult, bool)
	Set(key string, result *models.AssistanceResult)
}

type cacheEntry struct {
	result    *models.AssistanceResult
	expiresAt time.Time
}

type ttlSuggestionCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewSuggestionCache creates a TTL cache for assistance results.
func NewSuggestionCache(ttl time.Duration) SuggestionCache {
	return &ttlSuggestionCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

var _ SuggestionCache = (*ttlSuggestionCache)(nil)

func (c *ttlSuggestionCache) Get(key string) (*models.AssistanceResult, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return entry.result, true
}

func (c *ttlSuggestionCache) Set(key string, result *models.AssistanceResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Concurrent writers for the same key race; last write wins and that
	// is acceptable for a suggestion cache.
	c.entries[key] = cacheEntry{result: result, expiresAt: c.now().Add(c.ttl)}

	// Opportunistically drop expired entries so the map does not grow
	// without bound between restarts.
	if len(c.entries) > 1024 {
		now := c.now()
		for k, e := range c.entries {
			if now.After(e.expiresAt) {
				delete(c.entries, k)
			}
		}
	}
}

// assistanceCacheKey derives the cache key from the full request tuple.
// Including the user keeps one user's quota-funded results from leaking into
// another user's session.
func assistanceCacheKey(userID, query string, assistanceType models.AssistanceType, actx models.AssistanceContext, language string) string {
	h := sha256.Sum256(fmt.Appendf(nil, "%s|%s|%s|%s|%s|%s", userID, query, assistanceType, actx.Topic, actx.Thesis, language))
	return hex.EncodeToString(h[:])
}
