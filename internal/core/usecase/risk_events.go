package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/kirillkom/wellness-agents/internal/core/domain"
)

// RiskEventMetrics is the worker-side telemetry hook.
type RiskEventMetrics interface {
	StartEvent(event domain.RiskEvent, now time.Time)
	FinishEvent(event domain.RiskEvent, duration time.Duration, err error)
}

// RiskEventUseCase receives elevated-risk events. Dispatching notifications
// belongs to a separate subsystem; here events are validated, logged and
// counted.
type RiskEventUseCase struct {
	metrics RiskEventMetrics
	now     func() time.Time
}

func NewRiskEventUseCase(metrics RiskEventMetrics) *RiskEventUseCase {
	return &RiskEventUseCase{metrics: metrics, now: time.Now}
}

func (uc *RiskEventUseCase) Handle(ctx context.Context, event domain.RiskEvent) error {
	started := uc.now()
	if uc.metrics != nil {
		uc.metrics.StartEvent(event, started)
	}
	err := uc.handle(ctx, event)
	if uc.metrics != nil {
		uc.metrics.FinishEvent(event, uc.now().Sub(started), err)
	}
	return err
}

func (uc *RiskEventUseCase) handle(ctx context.Context, event domain.RiskEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(event.OwnerID) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "handle risk event", errors.New("owner id is required"))
	}
	if event.Persisted && strings.TrimSpace(event.AnalysisID) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "handle risk event", errors.New("persisted event without analysis id"))
	}
	if event.Level != domain.LevelMedium && event.Level != domain.LevelHigh {
		return domain.WrapError(domain.ErrInvalidInput, "handle risk event", errors.New("level is not elevated"))
	}

	attrs := []any{
		"analysis_id", event.AnalysisID,
		"persisted", event.Persisted,
		"owner_id", event.OwnerID,
		"kind", event.Kind,
		"level", event.Level,
		"urgency", event.Urgency,
		"indicators", len(event.Indicators),
	}
	if event.Urgency == domain.UrgencyImmediate {
		slog.Warn("risk_event_immediate", attrs...)
		return nil
	}
	slog.Info("risk_event_received", attrs...)
	return nil
}
