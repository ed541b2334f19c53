package store

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/singleflight"

	"sigmine-dashboard/internal/logger"
	"sigmine-dashboard/internal/types"
)

// RefreshTimeout bounds a shared refresh, which outlives the caller that
// started it.
const RefreshTimeout = 2 * time.Minute

// Cache serves a Source's records for ttl and refetches, with retries, when
// they expire. Concurrent refreshes share one fetch. If a refresh fails and an
// older snapshot exists, the old snapshot is served.
type Cache struct {
	src        Source
	ttl        time.Duration
	maxElapsed time.Duration
	timeout    time.Duration
	log        *logger.Logger

	now        func() time.Time
	newBackOff func() backoff.BackOff

	group   singleflight.Group
	mu      sync.RWMutex
	records []types.Record
	loaded  bool
	fetched time.Time
}

func NewCache(src Source, ttl, maxElapsed time.Duration, log *logger.Logger) *Cache {
	c := &Cache{
		src:        src,
		ttl:        ttl,
		maxElapsed: maxElapsed,
		timeout:    RefreshTimeout,
		log:        log.Component("store.cache"),
		now:        time.Now,
	}
	c.newBackOff = func() backoff.BackOff {
		b := backoff.NewExponentialBackOff()
		b.MaxElapsedTime = c.maxElapsed
		return b
	}
	return c
}

func (c *Cache) Records(ctx context.Context) ([]types.Record, error) {
	if recs, ok := c.fresh(); ok {
		return recs, nil
	}
	// The fetch is shared, so it must not die with whichever caller started
	// it. Each caller still stops waiting when its own ctx is done.
	ch := c.group.DoChan("records", func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		return c.refresh(rctx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			c.log.Debug("joined in-flight refresh")
		}
		return res.Val.([]types.Record), nil
	}
}

// Invalidate forces the next call to refetch.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.fetched = time.Time{}
	c.mu.Unlock()
}

func (c *Cache) fresh() ([]types.Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.fetched.IsZero() || c.now().Sub(c.fetched) >= c.ttl {
		return nil, false
	}
	return c.records, true
}

func (c *Cache) refresh(ctx context.Context) ([]types.Record, error) {
	start := c.now()
	var (
		out     []types.Record
		lastErr error
		tries   int
	)
	op := func() error {
		tries++
		recs, err := c.src.Records(ctx)
		if err != nil {
			lastErr = err
			c.log.WithError(err).WithField("attempt", tries).Warn("record fetch failed")
			if ctx.Err() != nil || permanent(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		out = recs
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(c.newBackOff(), ctx)); err != nil {
		c.mu.RLock()
		stale, have := c.records, c.loaded
		c.mu.RUnlock()
		if have {
			c.log.WithError(lastErr).Warn("serving stale records")
			return stale, nil
		}
		return nil, lastErr
	}

	c.mu.Lock()
	c.records = out
	c.loaded = true
	c.fetched = c.now()
	c.mu.Unlock()

	c.log.WithField("records", len(out)).
		WithField("attempts", tries).
		WithField("duration_ms", c.now().Sub(start).Milliseconds()).
		Info("records refreshed")
	return out, nil
}
