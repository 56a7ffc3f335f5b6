package cache

import (
	"log"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"talksphere/internal/model"
)

const (
	// DefaultAuthorCacheSize bounds the number of cached display identities.
	DefaultAuthorCacheSize = 1000

	// DefaultAuthorCacheTTL limits how stale a cached name or avatar can get.
	DefaultAuthorCacheTTL = 5 * time.Minute
)

// AuthorCache keeps recently resolved comment authors in process memory so
// busy threads do not hit the user store on every read.
type AuthorCache interface {
	// GetMany returns the cached summaries and the ids that were not cached.
	GetMany(ids []string) (found map[string]model.UserSummary, missing []string)
	Set(summary model.UserSummary)
	// Invalidate drops a user after a profile change.
	Invalidate(id string)
}

// LRUAuthorCache implements AuthorCache with an expiring LRU.
type LRUAuthorCache struct {
	lru *expirable.LRU[string, model.UserSummary]
}

// NewAuthorCache creates a cache. Non-positive arguments fall back to defaults.
func NewAuthorCache(size int, ttl time.Duration) AuthorCache {
	if size <= 0 {
		size = DefaultAuthorCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultAuthorCacheTTL
	}
	log.Printf("[AuthorCache] size=%d ttl=%v", size, ttl)
	return &LRUAuthorCache{lru: expirable.NewLRU[string, model.UserSummary](size, nil, ttl)}
}

func (c *LRUAuthorCache) GetMany(ids []string) (map[string]model.UserSummary, []string) {
	found := make(map[string]model.UserSummary, len(ids))
	var missing []string
	for _, id := range ids {
		if _, seen := found[id]; seen {
			continue
		}
		if s, ok := c.lru.Get(id); ok {
			found[id] = s
			continue
		}
		missing = append(missing, id)
	}
	return found, dedupe(missing)
}

func (c *LRUAuthorCache) Set(summary model.UserSummary) {
	c.lru.Add(summary.ID, summary)
}

func (c *LRUAuthorCache) Invalidate(id string) {
	c.lru.Remove(id)
}

func dedupe(ids []string) []string {
	if len(ids) < 2 {
		return ids
	}
	seen := make(map[string]struct{}, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
