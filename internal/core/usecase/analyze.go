package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/wellness-agents/internal/core/coercion"
	"github.com/kirillkom/wellness-agents/internal/core/domain"
	"github.com/kirillkom/wellness-agents/internal/core/extraction"
	"github.com/kirillkom/wellness-agents/internal/core/ports"
	"github.com/kirillkom/wellness-agents/internal/core/prompts"
)

// AnalysisDeps are the optional collaborators of an analyzer. Nil members
// switch the corresponding side effect off.
type AnalysisDeps struct {
	Archive  ports.ObjectStorage
	Risk     ports.RiskPublisher
	Observer ports.AnalysisObserver
}

// AnalysisUseCase is one primary analyzer: prompt, model, extraction,
// coercion, recommendation fan-out and a non-fatal save.
type AnalysisUseCase struct {
	kind      domain.AnalysisKind
	llm       ports.LLMClient
	extractor *extraction.Extractor
	fanOut    *FanOut
	store     ports.AnalysisStore
	archive   ports.ObjectStorage
	risk      ports.RiskPublisher
	observer  ports.AnalysisObserver
	now       func() time.Time
}

func NewAnalysisUseCase(
	kind domain.AnalysisKind,
	llm ports.LLMClient,
	extractor *extraction.Extractor,
	fanOut *FanOut,
	store ports.AnalysisStore,
	deps AnalysisDeps,
) *AnalysisUseCase {
	if extractor == nil {
		extractor = extraction.New()
	}
	observer := deps.Observer
	if observer == nil {
		observer = noopObserver{}
	}
	return &AnalysisUseCase{
		kind:      kind,
		llm:       llm,
		extractor: extractor,
		fanOut:    fanOut,
		store:     store,
		archive:   deps.Archive,
		risk:      deps.Risk,
		observer:  observer,
		now:       time.Now,
	}
}

func (uc *AnalysisUseCase) Kind() domain.AnalysisKind { return uc.kind }

func (uc *AnalysisUseCase) Run(ctx context.Context, input domain.AnalysisInput, owner domain.Owner) (*domain.AnalysisOutcome, error) {
	started := uc.now()
	outcome, err := uc.run(ctx, input, owner)
	status := "succeeded"
	if err != nil {
		status = "failed"
	}
	uc.observer.ObserveAnalysis(uc.kind, status, uc.now().Sub(started))
	return outcome, err
}

func (uc *AnalysisUseCase) run(ctx context.Context, input domain.AnalysisInput, owner domain.Owner) (*domain.AnalysisOutcome, error) {
	if strings.TrimSpace(owner.ID) == "" {
		return nil, domain.WrapError(domain.ErrUnauthorized, "run analysis", errors.New("owner is required"))
	}
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "run analysis", errors.New("input text is required"))
	}

	prompt, err := prompts.Render(prompts.ForKind(uc.kind), prompts.Vars{Input: text, Context: input.Context})
	if err != nil {
		return nil, err
	}
	completion, err := uc.llm.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("complete %s analysis: %w", uc.kind, err)
	}
	uc.observer.ObserveCompletion(prompt.Name, completion)

	obj, err := uc.extractor.ExtractObject(completion.Text)
	if err != nil {
		uc.archiveMalformed(ctx, completion.Text)
		return nil, fmt.Errorf("extract %s analysis: %w", uc.kind, err)
	}
	result, err := coercion.Coerce(obj, uc.kind, text)
	if err != nil {
		uc.archiveMalformed(ctx, completion.Text)
		return nil, fmt.Errorf("coerce %s analysis: %w", uc.kind, err)
	}
	result.OwnerID = owner.ID

	if uc.fanOut != nil {
		if _, err := uc.fanOut.Run(ctx, result); err != nil {
			return nil, fmt.Errorf("recommendation fan-out: %w", err)
		}
	}

	outcome := &domain.AnalysisOutcome{Analysis: result, Persistence: uc.persist(ctx, result)}
	// Elevated risk is reported even when the save failed.
	uc.publishRisk(ctx, result, outcome.Persistence.Saved)

	slog.Info("analysis_completed",
		"kind", uc.kind,
		"owner_id", owner.ID,
		"analysis_id", result.ID,
		"label", result.Assessment.Label,
		"risk_level", result.Risk.Level,
		"saved", outcome.Persistence.Saved,
	)
	return outcome, nil
}

// persist never fails the run; the caller already has a usable analysis.
func (uc *AnalysisUseCase) persist(ctx context.Context, result *domain.AnalysisResult) domain.PersistenceInfo {
	if uc.store == nil {
		return domain.PersistenceInfo{Saved: false, Error: "persistence is not configured"}
	}
	id, err := uc.store.Create(ctx, result)
	if err != nil {
		slog.Warn("analysis_save_failed", "kind", uc.kind, "owner_id", result.OwnerID, "error", err)
		return domain.PersistenceInfo{Saved: false, Error: err.Error()}
	}
	result.ID = id
	return domain.PersistenceInfo{Saved: true, ID: id}
}

func (uc *AnalysisUseCase) publishRisk(ctx context.Context, result *domain.AnalysisResult, saved bool) {
	if uc.risk == nil || !result.Risk.Elevated() {
		return
	}
	event := domain.RiskEvent{
		AnalysisID: result.ID,
		Persisted:  saved,
		OwnerID:    result.OwnerID,
		Kind:       result.Kind,
		Level:      result.Risk.Level,
		Urgency:    result.Risk.Urgency,
		Indicators: result.Risk.Indicators,
		CreatedAt:  uc.now().UTC(),
	}
	if err := uc.risk.PublishRisk(ctx, event); err != nil {
		slog.Warn("risk_publish_failed", "kind", uc.kind, "analysis_id", result.ID, "error", err)
	}
}

func (uc *AnalysisUseCase) archiveMalformed(ctx context.Context, raw string) {
	if uc.archive == nil {
		return
	}
	key := fmt.Sprintf("malformed/%s/%s/%s.txt", uc.kind, uc.now().UTC().Format("2006-01-02"), uuid.NewString())
	if err := uc.archive.Save(ctx, key, strings.NewReader(raw)); err != nil {
		slog.Warn("completion_archive_failed", "kind", uc.kind, "key", key, "error", err)
		return
	}
	slog.Info("completion_archived", "kind", uc.kind, "key", key)
}
