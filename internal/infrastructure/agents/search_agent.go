// Package agents implements the secondary recommendation agents: one
// catalog search per request, optionally curated by a model.
package agents

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kirillkom/wellness-agents/internal/core/domain"
	"github.com/kirillkom/wellness-agents/internal/core/extraction"
	"github.com/kirillkom/wellness-agents/internal/core/ports"
	"github.com/kirillkom/wellness-agents/internal/core/prompts"
)

// Catalog is an external content search returning typed items.
type Catalog[T any] interface {
	Search(ctx context.Context, query domain.ChannelQuery) ([]T, error)
}

type ReplyFormat string

const (
	ReplyJSON ReplyFormat = "json"
	ReplyCSV  ReplyFormat = "csv"
)

type Options struct {
	// Curator, when set, selects and orders catalog hits before they are returned.
	Curator  ports.LLMClient
	Format   ReplyFormat
	Cache    ports.Cache
	CacheTTL time.Duration
	Observer ports.AnalysisObserver
}

type SearchAgent[T any] struct {
	channel  domain.Channel
	catalog  Catalog[T]
	curator  ports.LLMClient
	format   ReplyFormat
	cache    ports.Cache
	cacheTTL time.Duration
	observer ports.AnalysisObserver
}

func New[T any](channel domain.Channel, catalog Catalog[T], opts Options) *SearchAgent[T] {
	format := opts.Format
	if format != ReplyCSV {
		format = ReplyJSON
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &SearchAgent[T]{
		channel:  channel,
		catalog:  catalog,
		curator:  opts.Curator,
		format:   format,
		cache:    opts.Cache,
		cacheTTL: ttl,
		observer: opts.Observer,
	}
}

func (a *SearchAgent[T]) Channel() domain.Channel { return a.channel }

func (a *SearchAgent[T]) Search(ctx context.Context, query domain.ChannelQuery) (domain.AgentReply, error) {
	items, err := a.lookup(ctx, query)
	if err != nil {
		return domain.AgentReply{}, err
	}
	catalogJSON, err := json.Marshal(map[string]any{"items": items})
	if err != nil {
		return domain.AgentReply{}, fmt.Errorf("marshal %s catalog items: %w", a.channel, err)
	}
	plain := domain.AgentReply{Raw: string(catalogJSON), ContentType: extraction.ContentTypeJSON}
	if a.curator == nil || len(items) == 0 {
		return plain, nil
	}

	reply, err := a.curate(ctx, query, string(catalogJSON))
	if err != nil {
		if ctx.Err() != nil {
			return domain.AgentReply{}, ctx.Err()
		}
		slog.Warn("curator_failed", "channel", a.channel, "error", err)
		return plain, nil
	}
	return reply, nil
}

// lookup serves repeated queries from the cache; a miss costs exactly one
// catalog call.
func (a *SearchAgent[T]) lookup(ctx context.Context, query domain.ChannelQuery) ([]T, error) {
	key := a.cacheKey(query)
	if a.cache != nil {
		var cached []T
		hit, err := a.cache.Get(ctx, key, &cached)
		if err != nil {
			slog.Warn("catalog_cache_get_failed", "channel", a.channel, "error", err)
		} else if hit {
			return cached, nil
		}
	}

	items, err := a.catalog.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s catalog search: %w", a.channel, err)
	}
	if a.cache != nil && len(items) > 0 {
		if err := a.cache.Set(ctx, key, items, a.cacheTTL); err != nil {
			slog.Warn("catalog_cache_set_failed", "channel", a.channel, "error", err)
		}
	}
	return items, nil
}

func (a *SearchAgent[T]) curate(ctx context.Context, query domain.ChannelQuery, catalogJSON string) (domain.AgentReply, error) {
	prompt, err := prompts.Render(prompts.Curator, prompts.Vars{
		Channel: a.channel,
		Brief:   query.Criteria.Describe(a.channel),
		Count:   query.Count,
		Catalog: catalogJSON,
		CSV:     a.format == ReplyCSV,
	})
	if err != nil {
		return domain.AgentReply{}, err
	}
	completion, err := a.curator.Complete(ctx, prompt)
	if err != nil {
		return domain.AgentReply{}, err
	}
	if a.observer != nil {
		a.observer.ObserveCompletion(prompt.Name, completion)
	}
	contentType := extraction.ContentTypeJSON
	if a.format == ReplyCSV {
		contentType = extraction.ContentTypeCSV
	}
	return domain.AgentReply{Raw: completion.Text, ContentType: contentType}, nil
}

func (a *SearchAgent[T]) cacheKey(query domain.ChannelQuery) string {
	sum := sha256.Sum256([]byte(strings.Join([]string{
		strings.ToLower(strings.TrimSpace(query.Text)),
		query.Criteria.Duration,
		fmt.Sprint(query.Count),
	}, "|")))
	return "catalog:" + string(a.channel) + ":" + hex.EncodeToString(sum[:12])
}
