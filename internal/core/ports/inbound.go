package ports

import (
	"context"

	"github.com/kirillkom/wellness-agents/internal/core/domain"
)

// Analyzer runs one analysis agent end to end.
type Analyzer interface {
	Run(ctx context.Context, input domain.AnalysisInput, owner domain.Owner) (*domain.AnalysisOutcome, error)
}

// AnalysisReader is the owner-scoped read model over stored analyses.
type AnalysisReader interface {
	Get(ctx context.Context, owner domain.Owner, kind domain.AnalysisKind, id string) (*domain.AnalysisResult, error)
	List(ctx context.Context, filter domain.AnalysisFilter) ([]domain.AnalysisResult, error)
	Trends(ctx context.Context, owner domain.Owner, kind domain.AnalysisKind, windowDays int) ([]domain.TrendPoint, error)
}

// AnalysisEditor applies explicit user-facing mutations.
type AnalysisEditor interface {
	UpdateFollowUp(ctx context.Context, owner domain.Owner, kind domain.AnalysisKind, id string, followUp domain.FollowUp) (*domain.AnalysisResult, error)
	Delete(ctx context.Context, owner domain.Owner, kind domain.AnalysisKind, id string) error
}
