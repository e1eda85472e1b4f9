package sources

import (
	"context"
	"errors"

	"github.com/anatolykoptev/go_reels/internal/engine"
	"github.com/anatolykoptev/go_reels/internal/toolutil"
)

// ErrNoTranscript is returned when a strategy produced no usable text.
var ErrNoTranscript = errors.New("no transcript")

// Acquirer turns one video ID into transcript text.
type Acquirer interface {
	Name() string
	Acquire(ctx context.Context, videoID string) (engine.Transcript, error)
}

// CachedAcquirer serves transcripts from cache before delegating.
type CachedAcquirer struct {
	next  Acquirer
	cache *engine.Cache
}

// WithCache wraps a with cache. A nil cache returns a unchanged.
func WithCache(a Acquirer, cache *engine.Cache) Acquirer {
	if cache == nil {
		return a
	}
	return &CachedAcquirer{next: a, cache: cache}
}

func (c *CachedAcquirer) Name() string { return c.next.Name() }

func (c *CachedAcquirer) Acquire(ctx context.Context, videoID string) (engine.Transcript, error) {
	key := engine.CacheKey("transcript", c.next.Name(), videoID)
	if tr, ok := toolutil.CacheLoadJSON[engine.Transcript](ctx, c.cache, key); ok {
		return tr, nil
	}

	tr, err := c.next.Acquire(ctx, videoID)
	if err != nil {
		return tr, err
	}
	toolutil.CacheStoreJSON(ctx, c.cache, key, tr)
	return tr, nil
}
