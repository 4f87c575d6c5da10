package config

import (
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
)

// Caches holds one list-response cache per collection so a write only
// invalidates the listings it can change.
type Caches struct {
	States    *cache.Cache
	Districts *cache.Cache
	Towns     *cache.Cache
}

func NewCaches(ttl time.Duration) *Caches {
	cleanup := 2 * ttl
	return &Caches{
		States:    cache.New(ttl, cleanup),
		Districts: cache.New(ttl, cleanup),
		Towns:     cache.New(ttl, cleanup),
	}
}

func (c *Caches) FlushAll() {
	c.States.Flush()
	c.Districts.Flush()
	c.Towns.Flush()
}

func GetCacheKey(prefix string, params ...interface{}) string {
	key := prefix
	for _, param := range params {
		key += ":" + fmt.Sprintf("%v", param)
	}
	return key
}
