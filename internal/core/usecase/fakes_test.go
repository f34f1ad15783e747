package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kirillkom/wellness-agents/internal/core/domain"
)

type llmFake struct {
	text    string
	err     error
	prompts []domain.Prompt
}

func (f *llmFake) Complete(_ context.Context, prompt domain.Prompt) (domain.Completion, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return domain.Completion{}, f.err
	}
	return domain.Completion{Text: f.text, Model: "fake", PromptTokens: 10, CompletionTokens: 20}, nil
}

type agentFake struct {
	channel     domain.Channel
	raw         string
	contentType string
	err         error
	delay       time.Duration
	block       bool
	calls       atomic.Int32
	lastQuery   atomic.Pointer[domain.ChannelQuery]
}

func (f *agentFake) Channel() domain.Channel { return f.channel }

func (f *agentFake) Search(ctx context.Context, query domain.ChannelQuery) (domain.AgentReply, error) {
	f.calls.Add(1)
	f.lastQuery.Store(&query)
	if f.block {
		<-ctx.Done()
		return domain.AgentReply{}, ctx.Err()
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return domain.AgentReply{}, ctx.Err()
		}
	}
	if f.err != nil {
		return domain.AgentReply{}, f.err
	}
	contentType := f.contentType
	if contentType == "" {
		contentType = "application/json"
	}
	return domain.AgentReply{Raw: f.raw, ContentType: contentType}, nil
}

type storeFake struct {
	mu        sync.Mutex
	items     map[string]domain.AnalysisResult
	createErr error
	nextID    int
	listCalls int
	queries   []domain.AnalysisFilter
	trendArgs []int
	updated   []domain.AnalysisResult
	deleted   []string
}

func newStoreFake() *storeFake {
	return &storeFake{items: make(map[string]domain.AnalysisResult)}
}

func (f *storeFake) Create(_ context.Context, result *domain.AnalysisResult) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	f.nextID++
	id := fmt.Sprintf("analysis-%d", f.nextID)
	stored := *result
	stored.ID = id
	f.items[id] = stored
	return id, nil
}

func (f *storeFake) GetByID(_ context.Context, ownerID, id string) (*domain.AnalysisResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok || item.OwnerID != ownerID {
		return nil, domain.WrapError(domain.ErrAnalysisNotFound, "get analysis", errors.New(id))
	}
	return &item, nil
}

func (f *storeFake) ListByOwner(_ context.Context, ownerID string, kind domain.AnalysisKind, limit int) ([]domain.AnalysisResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	out := make([]domain.AnalysisResult, 0)
	for _, item := range f.items {
		if item.OwnerID == ownerID && item.Kind == kind && len(out) < limit {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *storeFake) Query(_ context.Context, filter domain.AnalysisFilter) ([]domain.AnalysisResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, filter)
	return nil, nil
}

func (f *storeFake) AggregateTrends(_ context.Context, _ string, _ domain.AnalysisKind, windowDays int) ([]domain.TrendPoint, error) {
	f.trendArgs = append(f.trendArgs, windowDays)
	return []domain.TrendPoint{{Label: "Anxious", Count: 2, AvgConfidence: 70, AvgIntensity: 6}}, nil
}

func (f *storeFake) Update(_ context.Context, result *domain.AnalysisResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[result.ID] = *result
	f.updated = append(f.updated, *result)
	return nil
}

func (f *storeFake) Delete(_ context.Context, ownerID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, id)
	f.deleted = append(f.deleted, ownerID+"/"+id)
	return nil
}

type archiveFake struct {
	keys []string
	data []string
}

func (f *archiveFake) Save(_ context.Context, key string, data io.Reader) error {
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.keys = append(f.keys, key)
	f.data = append(f.data, string(raw))
	return nil
}

type riskFake struct {
	events []domain.RiskEvent
	err    error
}

func (f *riskFake) PublishRisk(_ context.Context, event domain.RiskEvent) error {
	f.events = append(f.events, event)
	return f.err
}

type observerFake struct {
	mu          sync.Mutex
	analyses    []string
	channels    map[domain.Channel]string
	completions int
}

func (f *observerFake) ObserveAnalysis(kind domain.AnalysisKind, status string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.analyses = append(f.analyses, string(kind)+":"+status)
}

func (f *observerFake) ObserveChannel(channel domain.Channel, status string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.channels == nil {
		f.channels = make(map[domain.Channel]string)
	}
	f.channels[channel] = status
}

func (f *observerFake) ObserveCompletion(string, domain.Completion) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completions++
}
