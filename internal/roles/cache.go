package roles

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/bizhub-io/bizhub/internal/platform/cache"
	"github.com/bizhub-io/bizhub/internal/shared"
)

// loadTimeout bounds a shared load once it no longer follows any caller's
// context.
const loadTimeout = 10 * time.Second

// Cache is a read-through role cache. Concurrent misses for one key share a
// single load. Cache failures degrade to direct loads.
type Cache struct {
	store  *cache.JSON
	group  singleflight.Group
	logger *slog.Logger

	mu  sync.Mutex
	gen uint64
}

// NewCache wraps store. A nil store disables caching.
func NewCache(store *cache.JSON, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Cache{store: store, logger: logger}
}

func idKey(id uuid.UUID) string       { return "id:" + id.String() }
func nameKey(name Name) string        { return "name:" + string(name) }
func listKey(page shared.Page) string { return fmt.Sprintf("all:%d:%d", page.Page, page.Limit) }

func (c *Cache) generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// storeIfCurrent writes value unless an invalidation happened since gen was
// read.
func (c *Cache) storeIfCurrent(ctx context.Context, gen uint64, key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return
	}
	if err := c.store.Set(ctx, key, value); err != nil {
		c.logger.Warn("role cache write", slog.String("key", key), slog.Any("error", err))
	}
}

// fetch serves key from the cache or loads it. The shared load is detached
// from the caller that started it; each caller still stops waiting when its
// own context ends.
func fetch[T any](ctx context.Context, c *Cache, key string, load func(context.Context) (T, error)) (T, error) {
	var cached T
	if c == nil {
		return load(ctx)
	}
	err := c.store.Get(ctx, key, &cached)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		c.logger.Warn("role cache read", slog.String("key", key), slog.Any("error", err))
	}
	ch := c.group.DoChan(key, func() (any, error) {
		gen := c.generation()
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		value, err := load(loadCtx)
		if err != nil {
			return value, err
		}
		c.storeIfCurrent(loadCtx, gen, key, value)
		return value, nil
	})
	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			var zero T
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

// InvalidateRole drops the id and name entries of every given role along with
// all cached list pages. Loads already in flight do not write their result
// back.
func (c *Cache) InvalidateRole(ctx context.Context, roles ...Role) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.gen++
	c.mu.Unlock()

	keys := make([]string, 0, len(roles)*2)
	for _, r := range roles {
		keys = append(keys, idKey(r.ID), nameKey(r.Name))
	}
	for _, k := range keys {
		c.group.Forget(k)
	}
	if err := c.store.Delete(ctx, keys...); err != nil {
		c.logger.Warn("role cache invalidate", slog.Any("error", err))
	}
	if err := c.store.DeletePattern(ctx, "all:*"); err != nil {
		c.logger.Warn("role cache invalidate lists", slog.Any("error", err))
	}
}
