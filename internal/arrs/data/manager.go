// Package data caches short-lived queue snapshots so one hunting cycle and the
// reconciler do not fetch the same instance's queue repeatedly.
package data

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/javi11/huntarr/internal/arrs/model"
	"golang.org/x/sync/singleflight"
)

const defaultTTL = 10 * time.Second

// FetchFunc loads a fresh queue snapshot.
type FetchFunc func(ctx context.Context) ([]model.QueueRecord, error)

type snapshot struct {
	records []model.QueueRecord
	expiry  time.Time
}

// QueueCache holds one snapshot per app and instance.
type QueueCache struct {
	cacheMu      sync.RWMutex
	snapshots    map[string]snapshot
	ttl          time.Duration
	now          func() time.Time
	requestGroup singleflight.Group
}

// NewQueueCache creates a cache. A zero ttl uses 10s.
func NewQueueCache(ttl time.Duration) *QueueCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}

	return &QueueCache{
		snapshots: make(map[string]snapshot),
		ttl:       ttl,
		now:       time.Now,
	}
}

func cacheKey(app model.AppType, instance string) string {
	return string(app) + "|" + instance
}

func (c *QueueCache) lookup(key string) ([]model.QueueRecord, bool) {
	c.cacheMu.RLock()
	defer c.cacheMu.RUnlock()

	snap, ok := c.snapshots[key]
	if !ok || !c.now().Before(snap.expiry) {
		return nil, false
	}
	return snap.records, true
}

// Get returns the cached queue or fetches it, deduplicating concurrent fetches.
func (c *QueueCache) Get(ctx context.Context, app model.AppType, instance string, fetch FetchFunc) ([]model.QueueRecord, error) {
	key := cacheKey(app, instance)

	if records, ok := c.lookup(key); ok {
		slog.DebugContext(ctx, "Using cached queue", "app_type", app, "instance", instance, "count", len(records))
		return records, nil
	}

	v, err, _ := c.requestGroup.Do(key, func() (interface{}, error) {
		if records, ok := c.lookup(key); ok {
			return records, nil
		}

		slog.DebugContext(ctx, "Fetching fresh queue", "app_type", app, "instance", instance)
		records, err := fetch(ctx)
		if err != nil {
			return nil, err
		}

		c.cacheMu.Lock()
		c.snapshots[key] = snapshot{records: records, expiry: c.now().Add(c.ttl)}
		c.cacheMu.Unlock()

		return records, nil
	})
	if err != nil {
		return nil, err
	}

	return v.([]model.QueueRecord), nil
}

// Invalidate drops the snapshot of one instance, or all snapshots when app is empty.
func (c *QueueCache) Invalidate(app model.AppType, instance string) {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()

	if app == "" {
		c.snapshots = make(map[string]snapshot)
		return
	}

	delete(c.snapshots, cacheKey(app, instance))
}
