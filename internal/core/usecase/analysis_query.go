package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kirillkom/wellness-agents/internal/core/domain"
	"github.com/kirillkom/wellness-agents/internal/core/ports"
)

const (
	defaultListLimit   = 20
	maxListLimit       = 100
	defaultTrendWindow = 30
	maxTrendWindow     = 365
)

// AnalysisQueryUseCase serves stored analyses back to their owner.
type AnalysisQueryUseCase struct {
	store ports.AnalysisStore
	now   func() time.Time
}

func NewAnalysisQueryUseCase(store ports.AnalysisStore) *AnalysisQueryUseCase {
	return &AnalysisQueryUseCase{store: store, now: time.Now}
}

func (uc *AnalysisQueryUseCase) Get(ctx context.Context, owner domain.Owner, kind domain.AnalysisKind, id string) (*domain.AnalysisResult, error) {
	if err := validateScope(owner, kind); err != nil {
		return nil, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "get analysis", errors.New("id is required"))
	}
	result, err := uc.store.GetByID(ctx, owner.ID, id)
	if err != nil {
		return nil, fmt.Errorf("get analysis: %w", err)
	}
	if result.Kind != kind {
		return nil, domain.WrapError(domain.ErrAnalysisNotFound, "get analysis", fmt.Errorf("id=%s kind=%s", id, kind))
	}
	return result, nil
}

// List returns the owner's analyses newest first. A filter with nothing
// beyond owner, kind and limit takes the plain listing path.
func (uc *AnalysisQueryUseCase) List(ctx context.Context, filter domain.AnalysisFilter) ([]domain.AnalysisResult, error) {
	if err := validateScope(domain.Owner{ID: filter.OwnerID}, filter.Kind); err != nil {
		return nil, err
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.From.After(filter.To) {
		return nil, domain.WrapError(domain.ErrInvalidInput, "list analyses", errors.New("from must not be after to"))
	}
	switch {
	case filter.Limit <= 0:
		filter.Limit = defaultListLimit
	case filter.Limit > maxListLimit:
		filter.Limit = maxListLimit
	}

	var (
		results []domain.AnalysisResult
		err     error
	)
	if isPlainListing(filter) {
		results, err = uc.store.ListByOwner(ctx, filter.OwnerID, filter.Kind, filter.Limit)
	} else {
		results, err = uc.store.Query(ctx, filter)
	}
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	if results == nil {
		results = []domain.AnalysisResult{}
	}
	return results, nil
}

func (uc *AnalysisQueryUseCase) Trends(ctx context.Context, owner domain.Owner, kind domain.AnalysisKind, windowDays int) ([]domain.TrendPoint, error) {
	if err := validateScope(owner, kind); err != nil {
		return nil, err
	}
	if windowDays == 0 {
		windowDays = defaultTrendWindow
	}
	if windowDays < 1 || windowDays > maxTrendWindow {
		return nil, domain.WrapError(domain.ErrInvalidInput, "aggregate trends", fmt.Errorf("window must be between 1 and %d days", maxTrendWindow))
	}
	points, err := uc.store.AggregateTrends(ctx, owner.ID, kind, windowDays)
	if err != nil {
		return nil, fmt.Errorf("aggregate trends: %w", err)
	}
	if points == nil {
		points = []domain.TrendPoint{}
	}
	return points, nil
}

// UpdateFollowUp replaces the follow-up plan. An empty check-in keeps the
// stored one.
func (uc *AnalysisQueryUseCase) UpdateFollowUp(
	ctx context.Context,
	owner domain.Owner,
	kind domain.AnalysisKind,
	id string,
	followUp domain.FollowUp,
) (*domain.AnalysisResult, error) {
	result, err := uc.Get(ctx, owner, kind, id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(followUp.CheckIn) == "" {
		followUp.CheckIn = result.FollowUp.CheckIn
	}
	result.FollowUp = domain.FollowUp{
		CheckIn:      strings.TrimSpace(followUp.CheckIn),
		Questions:    nonNil(followUp.Questions),
		Goals:        nonNil(followUp.Goals),
		TrackMetrics: nonNil(followUp.TrackMetrics),
	}
	result.UpdatedAt = uc.now().UTC()
	if err := uc.store.Update(ctx, result); err != nil {
		return nil, fmt.Errorf("update follow-up: %w", err)
	}
	return result, nil
}

func (uc *AnalysisQueryUseCase) Delete(ctx context.Context, owner domain.Owner, kind domain.AnalysisKind, id string) error {
	if _, err := uc.Get(ctx, owner, kind, id); err != nil {
		return err
	}
	if err := uc.store.Delete(ctx, owner.ID, id); err != nil {
		return fmt.Errorf("delete analysis: %w", err)
	}
	return nil
}

func validateScope(owner domain.Owner, kind domain.AnalysisKind) error {
	if strings.TrimSpace(owner.ID) == "" {
		return domain.WrapError(domain.ErrUnauthorized, "analysis scope", errors.New("owner is required"))
	}
	if !kind.Valid() {
		return domain.WrapError(domain.ErrInvalidInput, "analysis scope", fmt.Errorf("unknown analysis kind %q", kind))
	}
	return nil
}

func isPlainListing(f domain.AnalysisFilter) bool {
	return f.Label == "" && f.From.IsZero() && f.To.IsZero() &&
		len(f.RiskLevels) == 0 && f.TimeOfDay == "" && f.ContextTag == ""
}

func nonNil(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
