package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/wellness-agents/internal/core/domain"
	"github.com/kirillkom/wellness-agents/internal/core/ports"
)

const DefaultTrendsTTL = 10 * time.Minute

// AnalysisStore caches trend aggregates in front of a persistent store.
// Any write for an owner drops that owner's cached trends. Cache errors
// never fail the underlying call.
type AnalysisStore struct {
	ports.AnalysisStore
	cache ports.Cache
	ttl   time.Duration
}

func NewAnalysisStore(store ports.AnalysisStore, cache ports.Cache, ttl time.Duration) *AnalysisStore {
	if ttl <= 0 {
		ttl = DefaultTrendsTTL
	}
	return &AnalysisStore{AnalysisStore: store, cache: cache, ttl: ttl}
}

func (s *AnalysisStore) AggregateTrends(ctx context.Context, ownerID string, kind domain.AnalysisKind, windowDays int) ([]domain.TrendPoint, error) {
	key := fmt.Sprintf("%s%s:%d", trendsPrefix(ownerID), kind, windowDays)

	var cached []domain.TrendPoint
	hit, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		slog.Warn("trends_cache_get_failed", "owner_id", ownerID, "error", err)
	}
	if hit {
		return cached, nil
	}

	points, err := s.AnalysisStore.AggregateTrends(ctx, ownerID, kind, windowDays)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, points, s.ttl); err != nil {
		slog.Warn("trends_cache_set_failed", "owner_id", ownerID, "error", err)
	}
	return points, nil
}

func (s *AnalysisStore) Create(ctx context.Context, result *domain.AnalysisResult) (string, error) {
	id, err := s.AnalysisStore.Create(ctx, result)
	if err == nil {
		s.invalidate(ctx, result.OwnerID)
	}
	return id, err
}

func (s *AnalysisStore) Update(ctx context.Context, result *domain.AnalysisResult) error {
	err := s.AnalysisStore.Update(ctx, result)
	if err == nil {
		s.invalidate(ctx, result.OwnerID)
	}
	return err
}

func (s *AnalysisStore) Delete(ctx context.Context, ownerID, id string) error {
	err := s.AnalysisStore.Delete(ctx, ownerID, id)
	if err == nil {
		s.invalidate(ctx, ownerID)
	}
	return err
}

func (s *AnalysisStore) invalidate(ctx context.Context, ownerID string) {
	if err := s.cache.DeletePrefix(ctx, trendsPrefix(ownerID)); err != nil {
		slog.Warn("trends_cache_invalidate_failed", "owner_id", ownerID, "error", err)
	}
}

func trendsPrefix(ownerID string) string {
	return "trends:" + ownerID + ":"
}
