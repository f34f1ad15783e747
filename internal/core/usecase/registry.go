package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/kirillkom/wellness-agents/internal/core/domain"
	"github.com/kirillkom/wellness-agents/internal/core/ports"
)

const (
	AgentMoodAnalyzer = "mood_analyzer"
	AgentSleepCoach   = "sleep_coach"
)

// Registry dispatches analysis requests to named agents. It is built once
// at startup and read-only afterwards.
type Registry struct {
	agents map[string]ports.Analyzer
}

func NewRegistry(agents map[string]ports.Analyzer) *Registry {
	copied := make(map[string]ports.Analyzer, len(agents))
	for name, agent := range agents {
		if agent != nil {
			copied[name] = agent
		}
	}
	return &Registry{agents: copied}
}

func (r *Registry) Run(ctx context.Context, input domain.AnalysisInput, owner domain.Owner) (*domain.AnalysisOutcome, error) {
	agent, ok := r.agents[input.Agent]
	if !ok {
		return nil, domain.WrapError(domain.ErrAgentNotFound, "dispatch analysis", fmt.Errorf("agent %q is not registered", input.Agent))
	}
	return agent.Run(ctx, input, owner)
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.agents))
	for name := range r.agents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
