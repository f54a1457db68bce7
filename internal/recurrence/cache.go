package recurrence

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/nextlevelbuilder/tinystep/internal/store"
)

const cacheKeyPrefix = "rrule:"

// Cache maps normalized goal text to a validated rule string. It is
// shared across all documents and users: identical phrasing implies
// identical recurrence semantics regardless of owner. A process-local
// LRU fronts the durable store so repeated resolutions of the same
// phrasing skip the round-trip.
type Cache struct {
	kv    store.KV
	local *lru.Cache[string, string]
}

// NewCache wraps a durable KV with an in-process LRU of localSize entries.
func NewCache(kv store.KV, localSize int) (*Cache, error) {
	if localSize <= 0 {
		localSize = 1024
	}
	local, err := lru.New[string, string](localSize)
	if err != nil {
		return nil, fmt.Errorf("create rule cache: %w", err)
	}
	return &Cache{kv: kv, local: local}, nil
}

// Get looks up the rule for a goal text. The text is normalized before
// lookup; a miss is (ok=false, err=nil).
func (c *Cache) Get(ctx context.Context, text string) (string, bool, error) {
	norm := Normalize(text)
	if rule, ok := c.local.Get(norm); ok {
		return rule, true, nil
	}
	rule, ok, err := c.kv.Get(ctx, cacheKeyPrefix+norm)
	if err != nil || !ok {
		return "", false, err
	}
	c.local.Add(norm, rule)
	return rule, true, nil
}

// Set stores a validated rule for a goal text. Concurrent writers for
// the same normalized text race benignly; last write wins.
func (c *Cache) Set(ctx context.Context, text, rule string) error {
	norm := Normalize(text)
	c.local.Add(norm, rule)
	return c.kv.Set(ctx, cacheKeyPrefix+norm, rule)
}
