package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kirillkom/wellness-agents/internal/core/domain"
	"github.com/kirillkom/wellness-agents/internal/core/ports"
)

const moodCompletion = "Sure! Here is the analysis:\n```json\n" + `{
  "analysis": {"primaryMood": "Anxious", "moodCategory": "negative", "confidence": "85", "intensity": 7},
  "insights": {"summary": "Deadline pressure."},
  "recommendations": {
    "immediate": ["Take a walk"],
    "content": {"youtube": {"keywords": ["breathing"], "duration": "short"}}
  },
  "riskAssessment": {"level": "medium", "indicators": ["poor sleep"]}
}` + "\n```\nLet me know if you need anything else."

func newMoodUseCase(llm *llmFake, store *storeFake, deps AnalysisDeps, agents ...ports.ChannelAgent) *AnalysisUseCase {
	fan := NewFanOut(agents, nil, DefaultChannelCounts(), deps.Observer)
	var s ports.AnalysisStore
	if store != nil {
		s = store
	}
	return NewAnalysisUseCase(domain.KindMood, llm, nil, fan, s, deps)
}

func TestAnalysisRunEndToEnd(t *testing.T) {
	llm := &llmFake{text: moodCompletion}
	store := newStoreFake()
	risk := &riskFake{}
	observer := &observerFake{}
	video := &agentFake{channel: domain.ChannelVideo, raw: videoReply}
	uc := newMoodUseCase(llm, store, AnalysisDeps{Risk: risk, Observer: observer}, video)

	outcome, err := uc.Run(context.Background(), domain.AnalysisInput{Text: "  deadline tomorrow and I can't sleep  "}, domain.Owner{ID: "user-1"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(llm.prompts) != 1 || !llm.prompts[0].StrictJSON {
		t.Fatalf("expected one strict-json prompt, got %+v", llm.prompts)
	}
	if !strings.Contains(llm.prompts[0].User, "deadline tomorrow and I can't sleep") {
		t.Fatalf("prompt missing input: %q", llm.prompts[0].User)
	}

	a := outcome.Analysis
	if a.Assessment.Label != "Anxious" || a.Assessment.Confidence != 85 || a.OwnerID != "user-1" {
		t.Fatalf("unexpected analysis: %+v", a.Assessment)
	}
	if a.RawInput != "deadline tomorrow and I can't sleep" {
		t.Fatalf("unexpected raw input: %q", a.RawInput)
	}
	if a.Recommendations.Content.Video.Results.Status != domain.ChannelSucceeded {
		t.Fatalf("expected video fan-out, got %+v", a.Recommendations.Content.Video.Results)
	}
	if !outcome.Persistence.Saved || outcome.Persistence.ID != "analysis-1" || a.ID != "analysis-1" {
		t.Fatalf("unexpected persistence: %+v", outcome.Persistence)
	}
	stored := store.items["analysis-1"]
	if stored.Recommendations.Content.Video.Results == nil {
		t.Fatalf("stored analysis must include channel results")
	}
	if len(risk.events) != 1 || risk.events[0].AnalysisID != "analysis-1" || !risk.events[0].Persisted || risk.events[0].Urgency != domain.UrgencyMonitor {
		t.Fatalf("unexpected risk events: %+v", risk.events)
	}
	if len(observer.analyses) != 1 || observer.analyses[0] != "mood:succeeded" || observer.completions != 1 {
		t.Fatalf("unexpected observations: %+v", observer)
	}
}

func TestAnalysisRunPersistenceFailureIsNotFatal(t *testing.T) {
	store := newStoreFake()
	store.createErr = domain.WrapError(domain.ErrPersistence, "insert analysis", errors.New("connection refused"))
	uc := newMoodUseCase(&llmFake{text: moodCompletion}, store, AnalysisDeps{})

	outcome, err := uc.Run(context.Background(), domain.AnalysisInput{Text: "hello"}, domain.Owner{ID: "user-1"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if outcome.Analysis == nil || outcome.Analysis.Assessment.Label != "Anxious" {
		t.Fatalf("analysis must still be returned")
	}
	if outcome.Persistence.Saved || !strings.Contains(outcome.Persistence.Error, "connection refused") {
		t.Fatalf("unexpected persistence: %+v", outcome.Persistence)
	}
	if outcome.Analysis.ID != "" {
		t.Fatalf("unsaved analysis must not carry an id")
	}
}

func TestAnalysisRunPublishesRiskWhenSaveFails(t *testing.T) {
	store := newStoreFake()
	store.createErr = domain.WrapError(domain.ErrPersistence, "insert analysis", errors.New("connection refused"))
	risk := &riskFake{}
	uc := newMoodUseCase(&llmFake{text: moodCompletion}, store, AnalysisDeps{Risk: risk})

	if _, err := uc.Run(context.Background(), domain.AnalysisInput{Text: "hello"}, domain.Owner{ID: "user-1"}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(risk.events) != 1 {
		t.Fatalf("elevated risk must be published, got %+v", risk.events)
	}
	event := risk.events[0]
	if event.Persisted || event.AnalysisID != "" || event.OwnerID != "user-1" {
		t.Fatalf("unexpected event: %+v", event)
	}
	if err := NewRiskEventUseCase(nil).Handle(context.Background(), event); err != nil {
		t.Fatalf("worker rejected the event: %v", err)
	}
}

func TestAnalysisRunMalformedCompletionIsFatalAndArchived(t *testing.T) {
	store := newStoreFake()
	archive := &archiveFake{}
	video := &agentFake{channel: domain.ChannelVideo, raw: videoReply}
	uc := newMoodUseCase(&llmFake{text: "I'm sorry, I can't help with that."}, store, AnalysisDeps{Archive: archive}, video)

	_, err := uc.Run(context.Background(), domain.AnalysisInput{Text: "hello"}, domain.Owner{ID: "user-1"})
	if !domain.IsKind(err, domain.ErrMalformedResponse) {
		t.Fatalf("expected malformed response, got %v", err)
	}
	var malformed *domain.MalformedResponseError
	if !errors.As(err, &malformed) || !strings.Contains(malformed.Raw, "I'm sorry") {
		t.Fatalf("expected raw text on error, got %v", err)
	}
	if len(archive.keys) != 1 || !strings.HasPrefix(archive.keys[0], "malformed/mood/") {
		t.Fatalf("unexpected archive keys: %+v", archive.keys)
	}
	if len(store.items) != 0 || video.calls.Load() != 0 {
		t.Fatalf("nothing downstream may run after a malformed completion")
	}
}

func TestAnalysisRunCoercionErrorIsFatal(t *testing.T) {
	uc := newMoodUseCase(&llmFake{text: `{"analysis": ["not", "an", "object"]}`}, newStoreFake(), AnalysisDeps{})

	_, err := uc.Run(context.Background(), domain.AnalysisInput{Text: "hello"}, domain.Owner{ID: "user-1"})
	if !domain.IsKind(err, domain.ErrCoercion) {
		t.Fatalf("expected coercion error, got %v", err)
	}
}

func TestAnalysisRunValidatesInputBeforeCallingModel(t *testing.T) {
	llm := &llmFake{text: moodCompletion}
	uc := newMoodUseCase(llm, newStoreFake(), AnalysisDeps{})

	_, err := uc.Run(context.Background(), domain.AnalysisInput{Text: "   "}, domain.Owner{ID: "user-1"})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	_, err = uc.Run(context.Background(), domain.AnalysisInput{Text: "hi"}, domain.Owner{})
	if !domain.IsKind(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if len(llm.prompts) != 0 {
		t.Fatalf("model must not be called")
	}
}

func TestAnalysisRunPropagatesModelError(t *testing.T) {
	observer := &observerFake{}
	modelErr := domain.WrapError(domain.ErrTemporary, "llm complete", errors.New("503"))
	uc := newMoodUseCase(&llmFake{err: modelErr}, newStoreFake(), AnalysisDeps{Observer: observer})

	_, err := uc.Run(context.Background(), domain.AnalysisInput{Text: "hello"}, domain.Owner{ID: "user-1"})
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
	if len(observer.analyses) != 1 || observer.analyses[0] != "mood:failed" {
		t.Fatalf("unexpected observations: %+v", observer.analyses)
	}
}

func TestAnalysisRunLowRiskIsNotPublished(t *testing.T) {
	risk := &riskFake{}
	uc := newMoodUseCase(&llmFake{text: `{"analysis": {"primaryMood": "Calm"}}`}, newStoreFake(), AnalysisDeps{Risk: risk})

	if _, err := uc.Run(context.Background(), domain.AnalysisInput{Text: "fine"}, domain.Owner{ID: "user-1"}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(risk.events) != 0 {
		t.Fatalf("low risk must not be published: %+v", risk.events)
	}
}

func TestSleepAnalysisRun(t *testing.T) {
	llm := &llmFake{text: `{"sleepAssessment": {"issue": "insomnia", "confidence": 0.9, "severity": "medium"},
		"recommendations": {"content": {"spotify": {"keywords": ["sleep"], "mood": "calm"}}}}`}
	playlist := &agentFake{channel: domain.ChannelPlaylist, raw: playlistReply}
	fan := NewFanOut([]ports.ChannelAgent{playlist}, nil, DefaultChannelCounts(), nil)
	uc := NewAnalysisUseCase(domain.KindSleep, llm, nil, fan, newStoreFake(), AnalysisDeps{})

	outcome, err := uc.Run(context.Background(), domain.AnalysisInput{Text: "I wake up at 4am"}, domain.Owner{ID: "user-2"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if llm.prompts[0].Name != "sleep_coach" {
		t.Fatalf("unexpected prompt %q", llm.prompts[0].Name)
	}
	a := outcome.Analysis
	if a.Kind != domain.KindSleep || a.Assessment.Confidence != 90 || a.Assessment.Intensity != 6 {
		t.Fatalf("unexpected sleep analysis: %+v", a.Assessment)
	}
	if a.Recommendations.Content.Playlist.Results.Status != domain.ChannelSucceeded {
		t.Fatalf("expected playlist results")
	}
}
