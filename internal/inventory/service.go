// Package inventory serves resource collections for the active
// profile, caching full aggregations and collapsing concurrent
// identical requests.
package inventory

import (
	"context"
	"strconv"

	"golang.org/x/sync/singleflight"

	"github.com/cloudscope/cloudscope/internal/cache"
	apperrors "github.com/cloudscope/cloudscope/internal/errors"
	"github.com/cloudscope/cloudscope/types"
)

// Aggregator runs describers for one resolved profile.
// *aws.Provider is the production implementation.
type Aggregator interface {
	Aggregate(ctx context.Context) (types.ResourceCollection, error)
	AggregateCategory(ctx context.Context, category types.Category) (types.ResourceCollection, error)
}

// ProviderFactory resolves a profile's credentials into an Aggregator.
// It runs on every live fetch so credential changes take effect without
// a restart.
type ProviderFactory func(ctx context.Context, profile *types.Profile) (Aggregator, error)

// Service is the read path of the dashboard: cache-first full
// collections, live partial views, explicit refresh.
type Service struct {
	cache    cache.ResourceCache
	provider ProviderFactory
	group    singleflight.Group
}

// NewService wires the inventory read path.
func NewService(resourceCache cache.ResourceCache, provider ProviderFactory) *Service {
	return &Service{cache: resourceCache, provider: provider}
}

// GetAllResources returns the profile's full collection, from cache
// when present. Concurrent calls for the same profile share one fetch.
func (s *Service) GetAllResources(ctx context.Context, profile *types.Profile) (types.ResourceCollection, error) {
	if profile == nil {
		return nil, apperrors.New(apperrors.CodeConfiguration, "no active profile")
	}

	key := "all:" + strconv.FormatInt(profile.ID, 10)
	v, err, _ := s.group.Do(key, func() (any, error) {
		if collection, ok := s.cache.Get(ctx, profile.ID); ok {
			return collection, nil
		}
		return s.fetchAndCache(ctx, profile)
	})
	if err != nil {
		return nil, err
	}
	return v.(types.ResourceCollection), nil
}

// RefreshResources drops the profile's cache entry and scans live. The
// fresh collection is cached for subsequent reads.
func (s *Service) RefreshResources(ctx context.Context, profile *types.Profile) (types.ResourceCollection, error) {
	if profile == nil {
		return nil, apperrors.New(apperrors.CodeConfiguration, "no active profile")
	}

	key := "refresh:" + strconv.FormatInt(profile.ID, 10)
	v, err, _ := s.group.Do(key, func() (any, error) {
		// The cache logs its own failures; a surviving stale entry is
		// overwritten by the Set below anyway.
		_ = s.cache.Invalidate(ctx, profile.ID)
		return s.fetchAndCache(ctx, profile)
	})
	if err != nil {
		return nil, err
	}
	return v.(types.ResourceCollection), nil
}

// GetResourcesByCategory returns one category view. A cached full
// collection serves it by filtering; otherwise the category's
// describers run live. Partial results are never written back to the
// cache.
func (s *Service) GetResourcesByCategory(ctx context.Context, profile *types.Profile, category types.Category) (types.ResourceCollection, error) {
	if profile == nil {
		return nil, apperrors.New(apperrors.CodeConfiguration, "no active profile")
	}
	labels := types.CategoryLabels(category)
	if labels == nil {
		return nil, apperrors.Newf(apperrors.CodeValidation, "unknown category %q", category)
	}

	key := "category:" + strconv.FormatInt(profile.ID, 10) + ":" + string(category)
	v, err, _ := s.group.Do(key, func() (any, error) {
		if collection, ok := s.cache.Get(ctx, profile.ID); ok {
			return collection.Filter(labels), nil
		}

		provider, err := s.provider(ctx, profile)
		if err != nil {
			return nil, err
		}
		return provider.AggregateCategory(ctx, category)
	})
	if err != nil {
		return nil, err
	}
	return v.(types.ResourceCollection), nil
}

// InvalidateProfile drops a profile's cache entry, used when the
// profile is deleted or its credentials replaced.
func (s *Service) InvalidateProfile(ctx context.Context, profileID int64) {
	_ = s.cache.Invalidate(ctx, profileID)
}

func (s *Service) fetchAndCache(ctx context.Context, profile *types.Profile) (types.ResourceCollection, error) {
	provider, err := s.provider(ctx, profile)
	if err != nil {
		return nil, err
	}

	collection, err := provider.Aggregate(ctx)
	if err != nil {
		return nil, err
	}

	// Set failures already log; a cold cache only costs the next read.
	_ = s.cache.Set(ctx, profile.ID, collection)
	return collection, nil
}
