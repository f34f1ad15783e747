// Package prompts renders the fixed instruction templates sent to the
// primary analyzers and the catalog curators.
package prompts

import (
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/kirillkom/wellness-agents/internal/core/domain"
)

type Name string

const (
	MoodAnalysis Name = "mood_analysis"
	SleepCoach   Name = "sleep_coach"
	Curator      Name = "catalog_curator"
)

const maxInputChars = 4000

// Vars are the substitutions a template may reference.
type Vars struct {
	Input   string
	Context map[string]string

	// Curator only.
	Channel domain.Channel
	Brief   string
	Count   int
	Catalog string
	CSV     bool
}

type entry struct {
	system     string
	user       *template.Template
	strictJSON bool
}

var registry = map[Name]entry{
	MoodAnalysis: {system: moodSystem, user: template.Must(template.New("mood").Funcs(funcs).Parse(moodUser)), strictJSON: true},
	SleepCoach:   {system: sleepSystem, user: template.Must(template.New("sleep").Funcs(funcs).Parse(sleepUser)), strictJSON: true},
	Curator:      {system: curatorSystem, user: template.Must(template.New("curator").Funcs(funcs).Parse(curatorUser))},
}

var funcs = template.FuncMap{
	"contextLines": contextLines,
}

// ForKind returns the analyzer template for an analysis kind.
func ForKind(kind domain.AnalysisKind) Name {
	if kind == domain.KindSleep {
		return SleepCoach
	}
	return MoodAnalysis
}

// Render fills the named template. Curator prompts ask for strict JSON
// unless vars.CSV selects the marker-delimited CSV reply.
func Render(name Name, vars Vars) (domain.Prompt, error) {
	s, ok := registry[name]
	if !ok {
		return domain.Prompt{}, domain.WrapError(domain.ErrInvalidInput, "render prompt", fmt.Errorf("unknown template %q", name))
	}
	vars.Input = truncate(strings.TrimSpace(vars.Input), maxInputChars)

	var b strings.Builder
	if err := s.user.Execute(&b, vars); err != nil {
		return domain.Prompt{}, fmt.Errorf("render prompt %s: %w", name, err)
	}
	return domain.Prompt{
		Name:       string(name),
		System:     s.system,
		User:       b.String(),
		StrictJSON: s.strictJSON || (name == Curator && !vars.CSV),
	}, nil
}

func contextLines(ctx map[string]string) string {
	if len(ctx) == 0 {
		return ""
	}
	keys := make([]string, 0, len(ctx))
	for k := range ctx {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "- %s: %s\n", k, ctx[k])
	}
	return b.String()
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
