package dataset

import (
	"context"
	"time"

	"github.com/raceiq/raceiq-console-go/log"
	"github.com/raceiq/raceiq-console-go/pkg/utils/cache"
	"github.com/raceiq/raceiq-console-go/pkg/utils/cache/loadercache"
)

type (
	// Cache is the per race read-through cache over a Loader. The
	// first request for a race id reads the sources, every later
	// request returns the same immutable RaceData until the entry is
	// invalidated (explicitly or by the source watcher).
	Cache struct {
		entries cache.Cache[string, RaceData]
		l       *log.Logger
	}
	CacheOption func(*cacheConfig)
	cacheConfig struct {
		ttl time.Duration
		l   *log.Logger
	}
)

// WithTTL adds an expiration to cached races. Zero (the default) keeps
// entries until they are invalidated.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *cacheConfig) {
		c.ttl = ttl
	}
}

func WithCacheLogger(l *log.Logger) CacheOption {
	return func(c *cacheConfig) {
		c.l = l
	}
}

func NewCache(loader *Loader, opts ...CacheOption) *Cache {
	cfg := &cacheConfig{l: log.Default().Named("dataset.cache")}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Cache{
		entries: loadercache.New(
			loadercache.WithLoader(loader.Load),
			loadercache.WithExpiration[string, RaceData](cfg.ttl),
			loadercache.WithLogger[string, RaceData](cfg.l),
		),
		l: cfg.l,
	}
}

// Get returns the race data, loading it on first use.
func (c *Cache) Get(ctx context.Context, raceID string) (*RaceData, error) {
	return c.entries.Get(ctx, raceID)
}

// MaxLap reports the max known lap for the race and vehicle filter,
// loading the race on first use. The session manager clamps its lap
// filter through this.
func (c *Cache) MaxLap(ctx context.Context, raceID, vehicle string) (int, error) {
	data, err := c.Get(ctx, raceID)
	if err != nil {
		return 0, err
	}
	return data.MaxLap(vehicle), nil
}

// Invalidate drops the cached entry so the next Get re-reads the
// sources.
func (c *Cache) Invalidate(ctx context.Context, raceID string) {
	c.l.Info("invalidating cached race", log.String("race", raceID))
	c.entries.Invalidate(ctx, raceID)
}
