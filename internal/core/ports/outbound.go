package ports

import (
	"context"
	"io"
	"time"

	"github.com/kirillkom/wellness-agents/internal/core/domain"
)

// LLMClient performs one completion against a primary or curator model.
type LLMClient interface {
	Complete(ctx context.Context, prompt domain.Prompt) (domain.Completion, error)
}

// ChannelAgent is a secondary recommendation agent for one content channel.
// Each Search call performs at most one external catalog search.
type ChannelAgent interface {
	Channel() domain.Channel
	Search(ctx context.Context, query domain.ChannelQuery) (domain.AgentReply, error)
}

// AnalysisStore persists analyses. Every read is scoped by owner.
type AnalysisStore interface {
	Create(ctx context.Context, result *domain.AnalysisResult) (string, error)
	GetByID(ctx context.Context, ownerID, id string) (*domain.AnalysisResult, error)
	ListByOwner(ctx context.Context, ownerID string, kind domain.AnalysisKind, limit int) ([]domain.AnalysisResult, error)
	Query(ctx context.Context, filter domain.AnalysisFilter) ([]domain.AnalysisResult, error)
	AggregateTrends(ctx context.Context, ownerID string, kind domain.AnalysisKind, windowDays int) ([]domain.TrendPoint, error)
	Update(ctx context.Context, result *domain.AnalysisResult) error
	Delete(ctx context.Context, ownerID, id string) error
}

// ObjectStorage stores opaque blobs such as archived model completions.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
}

// RiskPublisher hands elevated-risk results to the notification subsystem.
type RiskPublisher interface {
	PublishRisk(ctx context.Context, event domain.RiskEvent) error
}

// RiskSubscriber consumes risk events published by the api.
type RiskSubscriber interface {
	SubscribeRisk(ctx context.Context, handler func(context.Context, domain.RiskEvent) error) error
}

// Cache stores small JSON-encoded values with a TTL.
type Cache interface {
	Get(ctx context.Context, key string, out any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// AnalysisObserver receives per-run telemetry.
type AnalysisObserver interface {
	ObserveAnalysis(kind domain.AnalysisKind, status string, duration time.Duration)
	ObserveChannel(channel domain.Channel, status string, duration time.Duration)
	ObserveCompletion(endpoint string, completion domain.Completion)
}
