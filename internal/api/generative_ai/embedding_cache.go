package generativeAI

import (
	"context"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

var _ Embedder = (*CachedEmbedder)(nil)

// CachedEmbedder memoises embeddings per normalised text. Only successful results
// are cached.
type CachedEmbedder struct {
	next  Embedder
	cache *cache.Cache
}

func NewCachedEmbedder(next Embedder, ttl time.Duration) *CachedEmbedder {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CachedEmbedder{
		next:  next,
		cache: cache.New(ttl, 2*ttl),
	}
}

func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := strings.ToLower(strings.Join(strings.Fields(text), " "))
	if cached, found := c.cache.Get(key); found {
		return cached.([]float32), nil
	}
	vec, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, vec, cache.DefaultExpiration)
	return vec, nil
}
