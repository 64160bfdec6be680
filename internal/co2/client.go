package co2

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/greencoach/greencoach-service/internal/cache"
	"github.com/greencoach/greencoach-service/internal/config"
	"github.com/greencoach/greencoach-service/internal/logging"
)

// ErrUpstream wraps failures fetching the CSV
var ErrUpstream = errors.New("co2 upstream error")

// Client fetches and caches snapshots
type Client struct {
	url        string
	yearsLimit int
	httpClient *http.Client
	cache      cache.Cache
	cacheTTL   time.Duration
	group      singleflight.Group
}

// NewClient creates a client for the configured CSV. A nil cache disables caching.
func NewClient(cfg config.CO2Config, c cache.Cache, cacheTTL time.Duration) *Client {
	if c == nil {
		c = cache.Noop{}
	}
	return &Client{
		url:        strings.TrimRight(cfg.BaseURL, "/") + "/" + strings.TrimLeft(cfg.CSVPath, "/"),
		yearsLimit: cfg.YearsLimit,
		httpClient: &http.Client{Timeout: cfg.ClientTimeout},
		cache:      c,
		cacheTTL:   cacheTTL,
	}
}

// Snapshot returns the region's snapshot, from cache when possible.
// Concurrent misses for the same region share one download, which runs
// detached from any single caller so one disconnect does not fail the rest.
func (c *Client) Snapshot(ctx context.Context, region Region) (*Snapshot, error) {
	key := "co2:" + strings.ToLower(region.Code)
	logger := logging.FromStdContext(ctx)

	var cached Snapshot
	err := c.cache.Get(ctx, key, &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		logger.Warn("co2 cache read failed", zap.String("key", key), zap.Error(err))
	}

	ch := c.group.DoChan(key, func() (any, error) {
		shared := context.WithoutCancel(ctx)
		snap, err := c.fetch(shared, region)
		if err != nil {
			return nil, err
		}
		return fetched{snap: snap, cacheErr: c.cache.Set(shared, key, snap, c.cacheTTL)}, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		f := res.Val.(fetched)
		if f.cacheErr != nil {
			logger.Warn("co2 cache write failed",
				zap.String("key", key),
				zap.Bool("shared", res.Shared),
				zap.Error(f.cacheErr),
			)
		}
		return f.snap, nil
	}
}

type fetched struct {
	snap     *Snapshot
	cacheErr error
}

func (c *Client) fetch(ctx context.Context, region Region) (*Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrUpstream, resp.StatusCode)
	}

	snap, err := ParseSnapshot(resp.Body, region, c.yearsLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return snap, nil
}
