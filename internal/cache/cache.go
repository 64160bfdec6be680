// Package cache stores JSON encoded values with a TTL. Redis backs it when
// REDIS_URL is set; otherwise callers get a Noop cache and always miss.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired
var ErrMiss = errors.New("cache miss")

// Cache is a JSON value cache
type Cache interface {
	// Get decodes the value stored under key into dst
	Get(ctx context.Context, key string, dst any) error

	// Set stores value under key for ttl
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// Noop never stores anything
type Noop struct{}

// Get always reports a miss
func (Noop) Get(context.Context, string, any) error { return ErrMiss }

// Set discards the value
func (Noop) Set(context.Context, string, any, time.Duration) error { return nil }
