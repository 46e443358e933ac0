package provider

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/okian/fleetpower/internal/adapters/cache"
	"github.com/okian/fleetpower/internal/domain/fleet"
	"github.com/okian/fleetpower/pkg/logger"
)

// Cached serves snapshots from a cache before asking the wrapped provider.
// Holders is never cached.
type Cached struct {
	next  Provider
	cache cache.Cache
	ttl   time.Duration
	log   logger.Logger
}

// NewCached decorates next with c.
func NewCached(next Provider, c cache.Cache, ttl time.Duration) *Cached {
	return &Cached{next: next, cache: c, ttl: ttl, log: logger.Get().Named("provider.cache")}
}

func (c *Cached) Name() string { return c.next.Name() }

func (c *Cached) Holders(ctx context.Context) ([]string, error) { return c.next.Holders(ctx) }

func (c *Cached) Snapshot(ctx context.Context, address string) (fleet.Snapshot, error) {
	key := "snapshot:" + c.next.Name() + ":" + normalize(address)

	raw, err := c.cache.Get(ctx, key)
	switch {
	case err == nil:
		var snap fleet.Snapshot
		if jerr := json.Unmarshal(raw, &snap); jerr == nil {
			return snap, nil
		}
		_ = c.cache.Delete(ctx, key)
	case !errors.Is(err, cache.ErrMiss):
		c.log.Warn(ctx, "cache read failed", logger.Address(address), logger.Error(err))
	}

	snap, err := c.next.Snapshot(ctx, address)
	if err != nil {
		return fleet.Snapshot{}, err
	}
	if raw, err := json.Marshal(snap); err == nil {
		if err := c.cache.Set(ctx, key, raw, c.ttl); err != nil {
			c.log.Warn(ctx, "cache write failed", logger.Address(address), logger.Error(err))
		}
	}
	return snap, nil
}

// Invalidate drops the cached snapshot of address so the next read is fresh.
func (c *Cached) Invalidate(ctx context.Context, address string) error {
	return c.cache.Delete(ctx, "snapshot:"+c.next.Name()+":"+normalize(address))
}
