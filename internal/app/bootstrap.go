package app

import (
	"context"
	"io"
	"log/slog"

	"github.com/raunaksarawgi/dexflow-realtime/config"
	"github.com/raunaksarawgi/dexflow-realtime/internal/app/dto"
	"github.com/raunaksarawgi/dexflow-realtime/internal/domain/model"
	"github.com/raunaksarawgi/dexflow-realtime/internal/domain/repository"
	"github.com/raunaksarawgi/dexflow-realtime/internal/domain/service"
	"github.com/raunaksarawgi/dexflow-realtime/internal/domain/useCases"
	ws "github.com/raunaksarawgi/dexflow-realtime/internal/handlers/websocket"
	"github.com/raunaksarawgi/dexflow-realtime/internal/infrastructure/cache"
	"github.com/raunaksarawgi/dexflow-realtime/internal/infrastructure/providers"
	"github.com/raunaksarawgi/dexflow-realtime/internal/infrastructure/queue"
	"github.com/raunaksarawgi/dexflow-realtime/internal/infrastructure/ratelimit"
)

const initialSnapshotSize = 30

// AppContext holds all app dependencies. Every component is constructed
// here and passed by reference; nothing is a module-level singleton.
type AppContext struct {
	Config      *config.Config
	Cache       repository.CacheStore
	Aggregator  useCases.TokenAggregator
	Detector    *service.ChangeDetector
	Broadcaster *ws.Hub
	Processor   *ChangeProcessor
	Publisher   *queue.EventPublisher

	log      *slog.Logger
	limiters []*ratelimit.FixedWindow
	closers  []io.Closer
}

// NewApp initializes the app context with all dependencies.
func NewApp(ctx context.Context, log *slog.Logger, cfg *config.Config) (*AppContext, error) {
	app := &AppContext{Config: cfg, log: log}

	// Cache store: Redis when an address is configured, in-memory otherwise.
	// A Redis that is down at boot is kept: operations degrade to miss and
	// recover when it comes back.
	if cfg.RedisAddr != "" {
		store := cache.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, log)
		app.Cache = store
		app.closers = append(app.closers, store)
		log.Info("redis cache initialized", "addr", cfg.RedisAddr, "connected", store.Connected())
	} else {
		store := cache.NewMemoryStore(log)
		app.Cache = store
		app.closers = append(app.closers, store)
		log.Info("in-memory cache initialized")
	}

	// Source clients, each with its own rate limiter.
	var sources []useCases.SourceClient
	if cfg.UseMockSource {
		sources = append(sources, providers.NewMockClient(cfg.MockTokenCount))
		log.Info("mock source enabled", "tokens", cfg.MockTokenCount)
	} else {
		dexLimiter := ratelimit.NewFixedWindow(cfg.SourceMaxRequests, cfg.SourceWindow, log)
		geckoLimiter := ratelimit.NewFixedWindow(cfg.SourceMaxRequests, cfg.SourceWindow, log)
		app.limiters = append(app.limiters, dexLimiter, geckoLimiter)
		sources = append(sources,
			providers.NewDexScreenerClient(cfg.DexScreenerBaseURL, app.Cache, dexLimiter, cfg.DexScreenerTTL, cfg.HTTPClientTimeout, log),
			providers.NewGeckoTerminalClient(cfg.GeckoTerminalBaseURL, app.Cache, geckoLimiter, cfg.GeckoTerminalTTL, cfg.HTTPClientTimeout, log),
		)
	}

	app.Aggregator = service.NewAggregatorService(sources, app.Cache, cfg.CacheTTL, cfg.DefaultQuery, log)
	app.Detector = service.NewChangeDetector(log)

	// New clients get a one-time top-by-volume snapshot on connect.
	app.Broadcaster = ws.NewHub(func(ctx context.Context) (any, error) {
		res, err := app.Aggregator.ListFiltered(ctx, model.ListQuery{
			Limit:  initialSnapshotSize,
			SortBy: model.SortByVolume,
			Order:  model.OrderDesc,
		})
		if err != nil {
			return nil, err
		}
		return dto.FromTokens(res.Tokens), nil
	}, log)

	var sink EventSink
	if app.Publisher = queue.NewEventPublisher(queue.KafkaConfig{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic}); app.Publisher != nil {
		sink = app.Publisher
		log.Info("kafka event feed enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	app.Processor = NewChangeProcessor(app.Aggregator, app.Detector, app.Broadcaster, sink, cfg.BroadcastInterval, cfg.TopTokens, log)

	return app, nil
}

// Cleanup performs graceful shutdown of all components.
func (a *AppContext) Cleanup(ctx context.Context) {
	a.Broadcaster.Close()

	for _, l := range a.limiters {
		l.Stop()
	}

	if a.Publisher != nil {
		if err := a.Publisher.Close(); err != nil {
			a.log.Warn("error closing event publisher", "error", err)
		}
	}

	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.log.Warn("error closing resource", "error", err)
		}
	}

	a.log.Info("all resources cleaned up")
}
