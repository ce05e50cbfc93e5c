package store

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/Skufu/skinscreen/internal/prediction"
)

// Cached keeps each user's full record list for a short TTL. The history
// page issues several reads per view (list, chart, export) and they all hit
// the same list. Writes invalidate the affected entries.
type Cached struct {
	inner Store
	lists *cache.Cache

	// gen is bumped by every write. A list read from inner is only cached
	// when no write happened while it was in flight.
	mu  sync.Mutex
	gen uint64
}

// NewCached wraps inner. ttl must be positive; go-cache treats zero as
// "never expire".
func NewCached(inner Store, ttl time.Duration) (*Cached, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("cache ttl must be positive, got %s", ttl)
	}
	return &Cached{
		inner: inner,
		lists: cache.New(ttl, 2*ttl),
	}, nil
}

func (c *Cached) Save(ctx context.Context, rec prediction.Record) error {
	if err := c.inner.Save(ctx, rec); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.lists.Delete(rec.UserID)
	// A re-saved id may belong to a different user's list.
	c.dropListsWith(rec.PredictionID)
	return nil
}

func (c *Cached) ListByUser(ctx context.Context, userID string, limit int) ([]prediction.Record, error) {
	if cached, ok := c.lists.Get(userID); ok {
		records := cached.([]prediction.Record)
		return slices.Clone(truncate(records, limit)), nil
	}

	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()

	records, err := c.inner.ListByUser(ctx, userID, 0)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.gen == gen {
		c.lists.SetDefault(userID, records)
	}
	c.mu.Unlock()
	return slices.Clone(truncate(records, limit)), nil
}

func (c *Cached) UpdateGradcamURI(ctx context.Context, predictionID, uri string) error {
	if err := c.inner.UpdateGradcamURI(ctx, predictionID, uri); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.dropListsWith(predictionID)
	return nil
}

func (c *Cached) Ping(ctx context.Context) error { return c.inner.Ping(ctx) }

func (c *Cached) Close() {
	c.lists.Flush()
	c.inner.Close()
}

// dropListsWith must be called with mu held.
func (c *Cached) dropListsWith(predictionID string) {
	for userID, item := range c.lists.Items() {
		records := item.Object.([]prediction.Record)
		if slices.ContainsFunc(records, func(r prediction.Record) bool { return r.PredictionID == predictionID }) {
			c.lists.Delete(userID)
		}
	}
}
