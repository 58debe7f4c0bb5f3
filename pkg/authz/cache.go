package authz

import (
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of filtered trees an Authorizer keeps.
// Filtering is cheap enough that a small working set wins over memory.
const DefaultCacheSize = 8

// treeKey identifies one filtered tree. Both parts compare case sensitive;
// an empty user is the anonymous principal and an empty repository the
// any-repository sentinel.
type treeKey struct {
	user       string
	repository string
}

// userRules bundles a filtered tree with its reusable lookup state. Both
// are owned by exactly one cache entry and die with it.
type userRules struct {
	root  *node
	state *lookupState
}

// treeCache is a fixed-size LRU of filtered trees keyed by (user,
// repository). Hits promote the entry, misses evict the oldest one once the
// cache is full.
type treeCache struct {
	entries *lru.Cache[treeKey, *userRules]
}

func newTreeCache(size int) (*treeCache, error) {
	entries, err := lru.NewWithEvict(size, func(key treeKey, _ *userRules) {
		slog.Debug("filtered tree evicted", "user", key.user, "repository", key.repository)
	})
	if err != nil {
		return nil, err
	}
	return &treeCache{entries: entries}, nil
}

func (c *treeCache) get(key treeKey) (*userRules, bool) {
	return c.entries.Get(key)
}

func (c *treeCache) add(key treeKey, rules *userRules) {
	c.entries.Add(key, rules)
}

func (c *treeCache) len() int {
	return c.entries.Len()
}
