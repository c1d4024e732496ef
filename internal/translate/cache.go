package translate

import (
	"container/list"
	"context"
	"strings"
	"sync"
)

// DefaultCacheSize is the translation memoization capacity.
const DefaultCacheSize = 1024

// Cached memoizes a Translator with a bounded LRU cache keyed by
// (text, sourceLang, targetLang). It is owned by whoever constructs it and
// injected where needed; there is no package-global cache.
type Cached struct {
	backend  Translator
	capacity int

	mu    sync.Mutex
	cache map[string]*list.Element
	lru   *list.List
}

type cacheEntry struct {
	key   string
	value string
}

// NewCached wraps backend with an LRU of the given capacity.
// capacity <= 0 uses DefaultCacheSize.
func NewCached(backend Translator, capacity int) *Cached {
	if capacity <= 0 {
		capacity = DefaultCacheSize
	}
	return &Cached{
		backend:  backend,
		capacity: capacity,
		cache:    make(map[string]*list.Element),
		lru:      list.New(),
	}
}

// Translate returns the cached translation when present, calling the backend
// otherwise. Failed calls are not cached.
func (c *Cached) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	key := cacheKey(text, sourceLang, targetLang)

	c.mu.Lock()
	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		value := elem.Value.(*cacheEntry).value
		c.mu.Unlock()
		return value, nil
	}
	c.mu.Unlock()

	translated, err := c.backend.Translate(ctx, text, sourceLang, targetLang)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*cacheEntry).value = translated
		return translated, nil
	}
	elem := c.lru.PushFront(&cacheEntry{key: key, value: translated})
	c.cache[key] = elem
	if c.lru.Len() > c.capacity {
		oldest := c.lru.Back()
		if oldest != nil {
			c.lru.Remove(oldest)
			delete(c.cache, oldest.Value.(*cacheEntry).key)
		}
	}
	return translated, nil
}

// Len returns the number of cached translations.
func (c *Cached) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

func cacheKey(text, sourceLang, targetLang string) string {
	return strings.Join([]string{text, sourceLang, targetLang}, "\x00")
}
