package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/wellness-agents/internal/config"
	"github.com/kirillkom/wellness-agents/internal/core/domain"
	"github.com/kirillkom/wellness-agents/internal/core/extraction"
	"github.com/kirillkom/wellness-agents/internal/core/ports"
	"github.com/kirillkom/wellness-agents/internal/core/usecase"
	"github.com/kirillkom/wellness-agents/internal/infrastructure/agents"
	"github.com/kirillkom/wellness-agents/internal/infrastructure/cache"
	rediscache "github.com/kirillkom/wellness-agents/internal/infrastructure/cache/redis"
	"github.com/kirillkom/wellness-agents/internal/infrastructure/catalog/gnews"
	"github.com/kirillkom/wellness-agents/internal/infrastructure/catalog/spotify"
	"github.com/kirillkom/wellness-agents/internal/infrastructure/catalog/youtube"
	"github.com/kirillkom/wellness-agents/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/wellness-agents/internal/infrastructure/llm/openai"
	"github.com/kirillkom/wellness-agents/internal/infrastructure/queue/nats"
	"github.com/kirillkom/wellness-agents/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/wellness-agents/internal/infrastructure/resilience"
	"github.com/kirillkom/wellness-agents/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/wellness-agents/internal/infrastructure/storage/minio"
)

// App is the api's object graph.
type App struct {
	Config config.Config

	Agents  *usecase.Registry
	Queries *usecase.AnalysisQueryUseCase

	closers []func()
}

// New wires every analyzer, channel agent and store. observer receives
// analysis telemetry; nil disables it.
func New(ctx context.Context, cfg config.Config, observer ports.AnalysisObserver) (*App, error) {
	app := &App{Config: cfg}
	ok := false
	defer func() {
		if !ok {
			app.Close()
		}
	}()

	executor := resilience.NewExecutor(ResilienceConfig(cfg))

	db, err := postgres.OpenDB(ctx, cfg.PostgresDSN, postgres.PoolOptions{MaxOpenConns: cfg.PostgresMaxConns})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	app.closers = append(app.closers, func() { _ = db.Close() })

	repo := postgres.NewAnalysisRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	var store ports.AnalysisStore = repo
	var cacheBackend ports.Cache
	if cfg.RedisAddr != "" {
		redisCache, err := rediscache.Open(ctx, rediscache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err != nil {
			slog.Warn("redis_unavailable", "addr", cfg.RedisAddr, "error", err)
		} else {
			app.closers = append(app.closers, func() { _ = redisCache.Close() })
			cacheBackend = redisCache
			store = cache.NewAnalysisStore(repo, redisCache, cfg.TrendsCacheTTL)
		}
	}

	archive, err := newArchive(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init archive: %w", err)
	}

	var riskPublisher ports.RiskPublisher
	if cfg.RiskEventsEnabled {
		queue, err := nats.New(cfg.NATSURL, cfg.NATSSubject, nats.Options{ResilienceExecutor: executor})
		if err != nil {
			return nil, fmt.Errorf("init risk queue: %w", err)
		}
		app.closers = append(app.closers, queue.Close)
		riskPublisher = queue
	}

	llm, err := NewLLMClient(cfg, executor)
	if err != nil {
		return nil, err
	}

	extractor := extraction.New()
	agentOpts := agents.Options{
		Format:   agents.ReplyFormat(cfg.CuratorFormat),
		Cache:    cacheBackend,
		CacheTTL: cfg.CatalogCacheTTL,
		Observer: observer,
	}
	if cfg.CuratorEnabled {
		agentOpts.Curator = llm
	}
	fanOut := usecase.NewFanOut(channelAgents(cfg, executor, agentOpts), extractor, usecase.ChannelCounts{
		Video:    cfg.VideoCount,
		Playlist: cfg.PlaylistCount,
		Articles: cfg.ArticlesCount,
	}, observer)

	deps := usecase.AnalysisDeps{Archive: archive, Risk: riskPublisher, Observer: observer}
	app.Agents = usecase.NewRegistry(map[string]ports.Analyzer{
		usecase.AgentMoodAnalyzer: usecase.NewAnalysisUseCase(domain.KindMood, llm, extractor, fanOut, store, deps),
		usecase.AgentSleepCoach:   usecase.NewAnalysisUseCase(domain.KindSleep, llm, extractor, fanOut, store, deps),
	})
	app.Queries = usecase.NewAnalysisQueryUseCase(store)

	ok = true
	return app, nil
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// Worker is the risk event consumer's object graph.
type Worker struct {
	Config config.Config
	Queue  ports.RiskSubscriber

	close func()
}

func NewWorker(cfg config.Config) (*Worker, error) {
	executor := resilience.NewExecutor(ResilienceConfig(cfg))
	queue, err := nats.New(cfg.NATSURL, cfg.NATSSubject, nats.Options{ResilienceExecutor: executor})
	if err != nil {
		return nil, fmt.Errorf("init risk queue: %w", err)
	}
	return &Worker{Config: cfg, Queue: queue, close: queue.Close}, nil
}

func (w *Worker) Close() {
	if w.close != nil {
		w.close()
	}
}

func ResilienceConfig(cfg config.Config) resilience.Config {
	return resilience.Config{
		RetryMaxAttempts:    cfg.ResilienceRetryMaxAttempts,
		RetryInitialBackoff: cfg.ResilienceRetryInitialBackoff,
		RetryMaxBackoff:     cfg.ResilienceRetryMaxBackoff,
		RetryMultiplier:     2,
		BreakerEnabled:      cfg.ResilienceBreakerEnabled,
		BreakerMinRequests:  uint32(max(cfg.ResilienceBreakerMinRequests, 0)),
		BreakerFailureRatio: cfg.ResilienceBreakerFailureRatio,
		BreakerOpenTimeout:  cfg.ResilienceBreakerOpenTimeout,
	}
}

// NewLLMClient picks the model provider named by LLM_PROVIDER.
func NewLLMClient(cfg config.Config, executor *resilience.Executor) (ports.LLMClient, error) {
	switch cfg.LLMProvider {
	case "openai":
		return openai.New(cfg.OpenAIAPIKey, cfg.OpenAIModel, openai.Options{
			BaseURL:     cfg.OpenAIBaseURL,
			MaxTokens:   cfg.LLMMaxTokens,
			Temperature: float32(cfg.LLMTemperature),
			Timeout:     cfg.LLMTimeout,
			Executor:    executor,
		}), nil
	case "ollama":
		return ollama.New(cfg.OllamaURL, cfg.OllamaModel, executor), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLMProvider)
	}
}

func newArchive(ctx context.Context, cfg config.Config) (ports.ObjectStorage, error) {
	switch cfg.ArchiveBackend {
	case "minio":
		return minio.New(ctx, minio.Config{
			Endpoint:  cfg.MinIOEndpoint,
			Region:    cfg.MinIORegion,
			Bucket:    cfg.MinIOBucket,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			UseSSL:    cfg.MinIOUseSSL,
		})
	case "none":
		return nil, nil
	default:
		return localfs.New(cfg.StoragePath)
	}
}

// channelAgents builds one agent per catalog that has credentials. A
// channel without an agent is simply never searched.
func channelAgents(cfg config.Config, executor *resilience.Executor, opts agents.Options) []ports.ChannelAgent {
	out := make([]ports.ChannelAgent, 0, 3)

	if cfg.RapidAPIKey != "" {
		yt := youtube.New(youtube.Config{
			BaseURL:  cfg.YouTubeBaseURL,
			Host:     cfg.YouTubeHost,
			APIKey:   cfg.RapidAPIKey,
			Language: cfg.YouTubeLanguage,
			Region:   cfg.YouTubeRegion,
			Timeout:  cfg.CatalogTimeout,
		}, executor)
		out = append(out, agents.New[youtube.Video](domain.ChannelVideo, yt, opts))
	} else {
		slog.Warn("channel_disabled", "channel", domain.ChannelVideo, "reason", "RAPIDAPI_KEY not set")
	}

	if cfg.SpotifyClientID != "" && cfg.SpotifyClientSecret != "" {
		sp := spotify.New(spotify.Config{
			ClientID:     cfg.SpotifyClientID,
			ClientSecret: cfg.SpotifyClientSecret,
			Market:       cfg.SpotifyMarket,
			Timeout:      cfg.CatalogTimeout,
		}, executor)
		out = append(out, agents.New[spotify.Playlist](domain.ChannelPlaylist, sp, opts))
	} else {
		slog.Warn("channel_disabled", "channel", domain.ChannelPlaylist, "reason", "spotify credentials not set")
	}

	if cfg.GNewsAPIKey != "" {
		gn := gnews.New(gnews.Config{
			APIKey:   cfg.GNewsAPIKey,
			Language: cfg.GNewsLanguage,
			Country:  cfg.GNewsCountry,
			Timeout:  cfg.CatalogTimeout,
		}, executor)
		out = append(out, agents.New[gnews.Article](domain.ChannelArticles, gn, opts))
	} else {
		slog.Warn("channel_disabled", "channel", domain.ChannelArticles, "reason", "GNEWS_API_KEY not set")
	}
	return out
}
