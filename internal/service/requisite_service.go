package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/noah-isme/planner-api/internal/conflict"
	"github.com/noah-isme/planner-api/internal/models"
)

const (
	requisiteCachePattern = "requisites:*"
	prereqKeyPrefix       = "requisites:prereq:"
	coreqKeyPrefix        = "requisites:coreq:"

	defaultRequisiteFreshness = 5 * time.Minute
	defaultRequisiteRetention = 10 * time.Minute
	defaultRequisiteFetchWait = 15 * time.Second
)

type cachedRequisites[T any] struct {
	Value     T         `json:"value"`
	FetchedAt time.Time `json:"fetched_at"`
}

// RequisiteServiceParams groups dependencies for the cached requisite provider.
type RequisiteServiceParams struct {
	Provider  conflict.RequisiteProvider
	Cache     *CacheService
	Freshness time.Duration
	Retention time.Duration
	// FetchTimeout bounds a shared upstream fetch, which outlives the caller that started it.
	FetchTimeout time.Duration
	Logger       *zap.Logger
	Now          func() time.Time
}

// RequisiteService serves requisite lookups from cache. Entries younger than Freshness are served
// directly; older entries are refetched, and kept until Retention so a failed refetch can fall back on them.
// Concurrent lookups of the same key share one upstream call. The shared call does not inherit any
// caller's cancellation; a caller that gives up only stops waiting for it.
type RequisiteService struct {
	provider     conflict.RequisiteProvider
	cache        *CacheService
	freshness    time.Duration
	retention    time.Duration
	fetchTimeout time.Duration
	logger       *zap.Logger
	now          func() time.Time
	group        singleflight.Group
}

// NewRequisiteService constructs the service.
func NewRequisiteService(params RequisiteServiceParams) *RequisiteService {
	if params.Freshness <= 0 {
		params.Freshness = defaultRequisiteFreshness
	}
	if params.Retention < params.Freshness {
		params.Retention = defaultRequisiteRetention
		if params.Retention < params.Freshness {
			params.Retention = params.Freshness
		}
	}
	if params.FetchTimeout <= 0 {
		params.FetchTimeout = defaultRequisiteFetchWait
	}
	if params.Logger == nil {
		params.Logger = zap.NewNop()
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &RequisiteService{
		provider:     params.Provider,
		cache:        params.Cache,
		freshness:    params.Freshness,
		retention:    params.Retention,
		fetchTimeout: params.FetchTimeout,
		logger:       params.Logger,
		now:          params.Now,
	}
}

// Prerequisites returns the prerequisite groups of courseID.
func (s *RequisiteService) Prerequisites(ctx context.Context, courseID string) ([]models.RequisiteGroup, error) {
	return lookupRequisites(ctx, s, prereqKeyPrefix+courseID, func(ctx context.Context) ([]models.RequisiteGroup, error) {
		return s.provider.Prerequisites(ctx, courseID)
	})
}

// Corequisites returns the corequisites of courseID.
func (s *RequisiteService) Corequisites(ctx context.Context, courseID string) ([]models.RequisiteCourse, error) {
	return lookupRequisites(ctx, s, coreqKeyPrefix+courseID, func(ctx context.Context) ([]models.RequisiteCourse, error) {
		return s.provider.Corequisites(ctx, courseID)
	})
}

// Invalidate drops every cached requisite entry.
func (s *RequisiteService) Invalidate(ctx context.Context) error {
	return s.cache.Invalidate(ctx, requisiteCachePattern)
}

func lookupRequisites[T any](ctx context.Context, s *RequisiteService, key string, fetch func(context.Context) (T, error)) (T, error) {
	if !s.cache.Enabled() {
		return fetch(ctx)
	}

	var entry cachedRequisites[T]
	hit := s.cache.Get(ctx, key, &entry)
	if hit && s.now().Sub(entry.FetchedAt) < s.freshness {
		return entry.Value, nil
	}

	ch := s.group.DoChan(key, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fetchTimeout)
		defer cancel()
		value, err := fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		_ = s.cache.Set(fetchCtx, key, cachedRequisites[T]{Value: value, FetchedAt: s.now().UTC()}, s.retention)
		return value, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		if hit {
			s.logger.Warn("serving stale requisites after refetch failure", zap.String("key", key), zap.Error(res.Err))
			return entry.Value, nil
		}
		var zero T
		return zero, res.Err
	}
	return res.Val.(T), nil
}
