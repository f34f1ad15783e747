package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/wellness-agents/internal/core/coercion"
	"github.com/kirillkom/wellness-agents/internal/core/domain"
	"github.com/kirillkom/wellness-agents/internal/core/extraction"
	"github.com/kirillkom/wellness-agents/internal/core/ports"
)

// ChannelCounts is how many items each secondary agent is asked for.
type ChannelCounts struct {
	Video    int
	Playlist int
	Articles int
}

func DefaultChannelCounts() ChannelCounts {
	return ChannelCounts{Video: 6, Playlist: 5, Articles: 3}
}

func (c ChannelCounts) of(channel domain.Channel) int {
	defaults := DefaultChannelCounts()
	switch channel {
	case domain.ChannelVideo:
		return positiveOr(c.Video, defaults.Video)
	case domain.ChannelPlaylist:
		return positiveOr(c.Playlist, defaults.Playlist)
	default:
		return positiveOr(c.Articles, defaults.Articles)
	}
}

// FanOut runs the secondary channel agents requested by a primary analysis
// concurrently and attaches their results to it.
type FanOut struct {
	agents    map[domain.Channel]ports.ChannelAgent
	extractor *extraction.Extractor
	counts    ChannelCounts
	observer  ports.AnalysisObserver
}

func NewFanOut(
	agents []ports.ChannelAgent,
	extractor *extraction.Extractor,
	counts ChannelCounts,
	observer ports.AnalysisObserver,
) *FanOut {
	byChannel := make(map[domain.Channel]ports.ChannelAgent, len(agents))
	for _, agent := range agents {
		if agent != nil {
			byChannel[agent.Channel()] = agent
		}
	}
	if extractor == nil {
		extractor = extraction.New()
	}
	if observer == nil {
		observer = noopObserver{}
	}
	return &FanOut{agents: byChannel, extractor: extractor, counts: counts, observer: observer}
}

// Run fills the Results slot of every requested channel that has a
// registered agent. A slot is filled at most once; channels that already
// carry results are not searched again. A failing channel is recorded as failed and never
// affects its siblings. If ctx is cancelled nothing is attached and the
// context error is returned.
func (f *FanOut) Run(ctx context.Context, result *domain.AnalysisResult) (*domain.AnalysisResult, error) {
	if result == nil {
		return nil, nil
	}
	content := &result.Recommendations.Content

	var (
		videos    *domain.ChannelResult[domain.VideoItem]
		playlists *domain.ChannelResult[domain.PlaylistItem]
		articles  *domain.ChannelResult[domain.ArticleItem]
	)

	g, gctx := errgroup.WithContext(ctx)
	if req := content.Video; req != nil && req.Results == nil && f.wants(domain.ChannelVideo, req.Criteria()) {
		g.Go(func() error {
			res, err := runChannel(gctx, f, domain.ChannelVideo, req.Criteria(), coercion.VideoItems)
			videos = res
			return err
		})
	}
	if req := content.Playlist; req != nil && req.Results == nil && f.wants(domain.ChannelPlaylist, req.Criteria()) {
		g.Go(func() error {
			res, err := runChannel(gctx, f, domain.ChannelPlaylist, req.Criteria(), coercion.PlaylistItems)
			playlists = res
			return err
		})
	}
	if req := content.Articles; req != nil && req.Results == nil && f.wants(domain.ChannelArticles, req.Criteria()) {
		g.Go(func() error {
			res, err := runChannel(gctx, f, domain.ChannelArticles, req.Criteria(), coercion.ArticleItems)
			articles = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if videos != nil {
		content.Video.Results = videos
	}
	if playlists != nil {
		content.Playlist.Results = playlists
	}
	if articles != nil {
		content.Articles.Results = articles
	}
	return result, nil
}

func (f *FanOut) wants(channel domain.Channel, criteria domain.SearchCriteria) bool {
	if criteria.Empty() {
		return false
	}
	_, ok := f.agents[channel]
	return ok
}

// runChannel performs one agent search. Only cancellation of the parent
// context is returned as an error; every other failure becomes a failed result.
func runChannel[T any](
	ctx context.Context,
	f *FanOut,
	channel domain.Channel,
	criteria domain.SearchCriteria,
	convert func([]any) []T,
) (*domain.ChannelResult[T], error) {
	started := time.Now()
	items, err := f.search(ctx, channel, criteria)
	if err == nil {
		f.observer.ObserveChannel(channel, string(domain.ChannelSucceeded), time.Since(started))
		return domain.SucceededResult(convert(items)), nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	searchErr := &domain.ChannelSearchError{Channel: channel, Err: err}
	f.observer.ObserveChannel(channel, string(domain.ChannelFailed), time.Since(started))
	slog.Warn("channel_search_failed", "channel", channel, "error", err)
	return domain.FailedResult[T](searchErr), nil
}

func (f *FanOut) search(ctx context.Context, channel domain.Channel, criteria domain.SearchCriteria) ([]any, error) {
	agent := f.agents[channel]
	reply, err := agent.Search(ctx, domain.ChannelQuery{
		Channel:  channel,
		Criteria: criteria,
		Text:     strings.Join(criteria.Terms(), " "),
		Count:    f.counts.of(channel),
	})
	if err != nil {
		return nil, err
	}
	return f.extractor.ExtractList(reply.Raw, reply.ContentType)
}

func positiveOr(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

type noopObserver struct{}

func (noopObserver) ObserveAnalysis(domain.AnalysisKind, string, time.Duration) {}
func (noopObserver) ObserveChannel(domain.Channel, string, time.Duration)       {}
func (noopObserver) ObserveCompletion(string, domain.Completion)                {}
