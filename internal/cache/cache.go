// Package cache persists aggregated resource collections per profile so
// dashboard reads do not re-scan AWS on every request.
package cache

import (
	"context"
	"strconv"

	"github.com/cloudscope/cloudscope/types"
)

// keyPrefix namespaces cache entries; the numeric profile id completes
// the key.
const keyPrefix = "cloudscope:resources:"

// ResourceCache stores one resource collection per profile.
//
// Get never fails: a broken backend, a missing entry and an expired
// entry all read as a miss, so callers fall through to a live scan.
// Set and Invalidate report their errors for observability, but callers
// treat them as non-fatal.
type ResourceCache interface {
	Get(ctx context.Context, profileID int64) (types.ResourceCollection, bool)
	Set(ctx context.Context, profileID int64, collection types.ResourceCollection) error
	Invalidate(ctx context.Context, profileID int64) error
	Close() error
}

func cacheKey(profileID int64) []byte {
	return []byte(keyPrefix + strconv.FormatInt(profileID, 10))
}

// disabled is the no-op backend used when caching is turned off or the
// file store cannot be opened. Every read is a miss.
type disabled struct{}

// Disabled returns a cache that stores nothing.
func Disabled() ResourceCache {
	return disabled{}
}

func (disabled) Get(context.Context, int64) (types.ResourceCollection, bool) {
	return nil, false
}

func (disabled) Set(context.Context, int64, types.ResourceCollection) error { return nil }

func (disabled) Invalidate(context.Context, int64) error { return nil }

func (disabled) Close() error { return nil }
