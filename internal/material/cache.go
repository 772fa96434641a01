package material

import (
	"sort"
	"strings"
	"sync"
)

// Cache — общий на процесс кэш нормализации (category, lower(input)) → подтип.
// Записи не истекают; очищается только явно.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]string
}

func NewCache() *Cache {
	return &Cache{entries: make(map[string]string)}
}

type CacheStats struct {
	CacheSize   int      `json:"cache_size"`
	CachedItems []string `json:"cached_items"`
}

func cacheKey(category Category, input string) string {
	return string(category) + ":" + strings.ToLower(input)
}

func (c *Cache) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *Cache) Put(key, value string) {
	c.mu.Lock()
	c.entries[key] = value
	c.mu.Unlock()
}

func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]string)
	c.mu.Unlock()
}

func (c *Cache) Stats() CacheStats {
	c.mu.RLock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	c.mu.RUnlock()

	sort.Strings(keys)
	return CacheStats{CacheSize: len(keys), CachedItems: keys}
}
