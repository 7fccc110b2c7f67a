package similarity

import (
	"sync"
	"sync/atomic"
)

// Pair is an unordered pair of entity indexes stored with the smaller index
// first.
type Pair struct {
	Lo int
	Hi int
}

func Key(i, j int) Pair {
	if i > j {
		i, j = j, i
	}
	return Pair{Lo: i, Hi: j}
}

type CacheStats struct {
	Entries int    `json:"entries"`
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
}

// Cache memoizes pairwise similarities for the lifetime of one clustering
// run. Entries are never invalidated. Concurrent inserts for the same pair
// keep the first stored value.
type Cache struct {
	mu    sync.RWMutex
	items map[Pair]float64

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewCache sizes the map for n entities when n is small enough that the full
// triangle is a reasonable hint.
func NewCache(n int) *Cache {
	hint := 0
	if n > 0 && n <= 4096 {
		hint = n * (n - 1) / 2
	}
	return &Cache{items: make(map[Pair]float64, hint)}
}

func (c *Cache) Get(i, j int) (float64, bool) {
	c.mu.RLock()
	v, ok := c.items[Key(i, j)]
	c.mu.RUnlock()

	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return v, ok
}

// Put stores v for the pair unless a value is already present and returns the
// value held by the cache afterwards.
func (c *Cache) Put(i, j int, v float64) float64 {
	key := Key(i, j)

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.items[key]; ok {
		return existing
	}
	c.items[key] = v
	return v
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Cache) Stats() CacheStats {
	return CacheStats{
		Entries: c.Len(),
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}
}
