package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/aretw0/canvas"
	"github.com/aretw0/canvas/internal/adapters/exa"
	"github.com/aretw0/canvas/internal/adapters/file"
	"github.com/aretw0/canvas/internal/adapters/s3"
	"github.com/aretw0/canvas/internal/config"
	"github.com/aretw0/canvas/internal/llm"
	httpadapter "github.com/aretw0/canvas/pkg/adapters/http"
	memadapter "github.com/aretw0/canvas/pkg/adapters/memory"
	redisadapter "github.com/aretw0/canvas/pkg/adapters/redis"
	"github.com/aretw0/canvas/pkg/domain"
	"github.com/aretw0/canvas/pkg/observability"
	"github.com/aretw0/canvas/pkg/persistence/middleware"
	"github.com/aretw0/canvas/pkg/ports"
	goredis "github.com/redis/go-redis/v9"
)

// App bundles an engine with the infrastructure built for it.
type App struct {
	Engine  *canvas.Engine
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *observability.Metrics
	Streams *httpadapter.StreamManager

	closers []func() error
}

// Close releases connections opened by Build, last opened first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

type buildSettings struct {
	model ports.ModelInvoker
	redis *goredis.Client
}

// BuildOption overrides what Build would construct from the configuration.
type BuildOption func(*buildSettings)

// WithModel serves every model role with m instead of the configured provider.
func WithModel(m ports.ModelInvoker) BuildOption {
	return func(s *buildSettings) { s.model = m }
}

// WithRedisClient reuses client for the redis backend. Build does not close it.
func WithRedisClient(client *goredis.Client) BuildOption {
	return func(s *buildSettings) { s.redis = client }
}

// Build wires an engine from cfg: models, thread and memory stores with
// their middleware, audit sink, web search, call log and observability hooks.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...BuildOption) (*App, error) {
	bs := &buildSettings{}
	for _, opt := range opts {
		opt(bs)
	}
	app := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: observability.NewMetrics(nil),
		Streams: httpadapter.NewStreamManager(logger),
	}

	primary, small, scoring, err := buildModels(ctx, cfg.Model, bs.model)
	if err != nil {
		return nil, err
	}

	engineOpts := []canvas.Option{
		canvas.WithLogger(logger),
		canvas.WithAssistantID(cfg.AssistantID),
		canvas.WithSmallModel(small),
		canvas.WithScoringModel(scoring),
		canvas.WithRefineLimits(cfg.Refine.MaxIterations, cfg.Refine.MinScore),
		canvas.WithLifecycleHooks(domain.CombineHooks(
			observability.LoggingHooks(logger),
			app.Metrics.Hooks(),
			app.Streams.Hooks(),
		)),
	}

	threads, mem, locker, err := app.buildStores(ctx, cfg.Store, bs.redis)
	if err != nil {
		app.Close()
		return nil, err
	}
	engineOpts = append(engineOpts, canvas.WithThreadStore(threads))
	if locker != nil {
		engineOpts = append(engineOpts, canvas.WithLocker(locker))
	}

	audit, err := buildAudit(cfg.Audit)
	if err != nil {
		app.Close()
		return nil, err
	}
	if audit != nil {
		engineOpts = append(engineOpts, canvas.WithAuditStore(audit))
	}

	if cfg.Search.ExaAPIKey != "" {
		searcher, err := exa.New(cfg.Search.ExaAPIKey, exa.WithBaseURL(cfg.Search.BaseURL))
		if err != nil {
			app.Close()
			return nil, err
		}
		engineOpts = append(engineOpts, canvas.WithSearcher(searcher))
	} else {
		logger.Debug("web search disabled: no exa api key")
	}

	if cfg.LLMLogDir != "" {
		engineOpts = append(engineOpts, canvas.WithCallLogger(file.NewCallLog(cfg.LLMLogDir, logger)))
	}

	engine, err := canvas.New(primary, mem, engineOpts...)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Engine = engine
	return app, nil
}

func buildModels(ctx context.Context, mc config.ModelConfig, override ports.ModelInvoker) (primary, small, scoring ports.ModelInvoker, err error) {
	timeout := llm.WithTimeout(mc.Timeout)
	if override != nil {
		m := llm.Wrap(override, timeout)
		return m, m, m, nil
	}

	built := make(map[string]ports.ModelInvoker)
	get := func(name string) (ports.ModelInvoker, error) {
		if m, ok := built[name]; ok {
			return m, nil
		}
		m, err := newModel(ctx, mc, name)
		if err != nil {
			return nil, err
		}
		built[name] = llm.Wrap(m, timeout)
		return built[name], nil
	}

	if primary, err = get(mc.Name); err != nil {
		return nil, nil, nil, err
	}
	if small, err = get(mc.SmallModel()); err != nil {
		return nil, nil, nil, err
	}
	if scoring, err = get(mc.ScoringModel()); err != nil {
		return nil, nil, nil, err
	}
	return primary, small, scoring, nil
}

func newModel(ctx context.Context, mc config.ModelConfig, name string) (ports.ModelInvoker, error) {
	switch mc.Provider {
	case config.ProviderGemini:
		m, err := llm.NewGemini(ctx, mc.GeminiAPIKey, name)
		if err != nil {
			return nil, fmt.Errorf("gemini %s: %w", name, err)
		}
		return m, nil
	case config.ProviderOpenAI:
		m, err := llm.NewOpenAI(mc.OpenAIAPIKey, mc.BaseURL, name)
		if err != nil {
			return nil, fmt.Errorf("openai %s: %w", name, err)
		}
		return m, nil
	}
	return nil, fmt.Errorf("unknown model provider %q", mc.Provider)
}

func (a *App) buildStores(ctx context.Context, sc config.StoreConfig, client *goredis.Client) (ports.ThreadStore, ports.MemoryStore, ports.DistributedLocker, error) {
	var (
		threads ports.ThreadStore
		mem     ports.MemoryStore
		locker  ports.DistributedLocker
	)
	switch sc.Backend {
	case config.StoreMemory:
		threads, mem = memadapter.NewStore(), memadapter.NewMemory()
	case config.StoreFile:
		threads = file.New(sc.Dir)
		mem = file.NewMemory(filepath.Join(filepath.Dir(sc.Dir), "memory"))
	case config.StoreRedis:
		if client == nil {
			client = goredis.NewClient(&goredis.Options{
				Addr:     sc.RedisAddr,
				Password: sc.RedisPassword,
				DB:       sc.RedisDB,
			})
			a.closers = append(a.closers, client.Close)
		}
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, nil, nil, fmt.Errorf("redis %s: %w", sc.RedisAddr, err)
		}
		threads = redisadapter.NewFromClient(client, redisadapter.WithTTL(sc.TTL))
		mem = redisadapter.NewMemory(client, "")
		locker = redisadapter.NewLocker(client, "")
	default:
		return nil, nil, nil, fmt.Errorf("unknown store backend %q", sc.Backend)
	}

	var mws []middleware.Middleware
	if sc.MaskPII {
		mws = append(mws, middleware.NewPIIMiddleware(middleware.DefaultPIIPatterns))
	}
	active, fallback, err := sc.Keys()
	if err != nil {
		return nil, nil, nil, err
	}
	if active != nil {
		mws = append(mws, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    active,
			FallbackKeys: fallback,
		}))
	}
	return middleware.Chain(threads, mws...), mem, locker, nil
}

func buildAudit(ac config.AuditConfig) (ports.AuditStore, error) {
	switch ac.Backend {
	case config.AuditNone, "":
		return nil, nil
	case config.AuditFile:
		return file.NewAudit(ac.Dir), nil
	case config.AuditS3:
		a, err := s3.NewAudit(s3.Config{
			Endpoint:  ac.Endpoint,
			Region:    ac.Region,
			AccessKey: ac.AccessKey,
			SecretKey: ac.SecretKey,
			Bucket:    ac.Bucket,
			UseSSL:    ac.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 audit: %w", err)
		}
		return a, nil
	}
	return nil, fmt.Errorf("unknown audit backend %q", ac.Backend)
}
