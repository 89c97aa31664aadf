package cli

import (
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/config"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/adapters/redis"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/observability"
	"github.com/aretw0/arbor/pkg/persistence/middleware"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
)

// Services bundles the engine with the infrastructure built around it.
type Services struct {
	Engine   *arbor.Engine
	Loader   ports.ModelLoader
	Cache    ports.ResultCache
	Registry *prometheus.Registry
}

// NewServices wires an engine from the configuration: model library, result
// cache, logging hooks and, when withMetrics is set, a private Prometheus registry.
func NewServices(cfg config.Config, logger *slog.Logger, withMetrics bool) (*Services, error) {
	svc := &Services{}

	if cfg.Library.Dir != "" {
		loader, err := arbor.OpenLibrary(cfg.Library.Dir, cfg.Library.Loader)
		if err != nil {
			return nil, fmt.Errorf("error opening library: %w", err)
		}
		svc.Loader = loader
	}

	cache, err := createCache(cfg.Cache)
	if err != nil {
		return nil, err
	}
	svc.Cache = cache

	hooks := []domain.LifecycleHooks{observability.LogHooks(logger)}
	if withMetrics {
		svc.Registry = prometheus.NewRegistry()
		metrics, err := observability.NewMetrics(svc.Registry)
		if err != nil {
			return nil, fmt.Errorf("error registering metrics: %w", err)
		}
		hooks = append(hooks, metrics.Hooks())
	}

	opts := []arbor.Option{
		arbor.WithLogger(logger),
		arbor.WithLifecycleHooks(observability.ChainHooks(hooks...)),
		arbor.WithMaxDepth(cfg.Engine.MaxDepth),
		arbor.WithParallelism(cfg.Engine.Parallelism),
		arbor.WithStrictRoot(cfg.Engine.StrictRoot),
		arbor.WithStrictValidation(cfg.Engine.StrictValidation),
		arbor.WithUnifiedSensitivity(cfg.Engine.UnifiedSensitivity),
	}
	if svc.Loader != nil {
		opts = append(opts, arbor.WithLoader(svc.Loader), arbor.WithName(cfg.Library.Dir))
	}
	if svc.Cache != nil {
		opts = append(opts, arbor.WithCache(svc.Cache))
	}

	svc.Engine = arbor.New(opts...)
	return svc, nil
}

func createCache(cfg config.CacheConfig) (ports.ResultCache, error) {
	cache, err := createBackend(cfg)
	if err != nil || cache == nil || cfg.EncryptionKey == "" {
		return cache, err
	}

	enc := middleware.EncryptionConfig{}
	if enc.ActiveKey, err = base64.StdEncoding.DecodeString(cfg.EncryptionKey); err != nil {
		return nil, fmt.Errorf("cache.encryption_key: %w", err)
	}
	for i, raw := range cfg.FallbackKeys {
		key, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("cache.fallback_keys[%d]: %w", i, err)
		}
		enc.FallbackKeys = append(enc.FallbackKeys, key)
	}
	mw, err := middleware.NewEncryptionMiddleware(enc)
	if err != nil {
		return nil, err
	}
	return middleware.Chain(cache, mw), nil
}

func createBackend(cfg config.CacheConfig) (ports.ResultCache, error) {
	switch cfg.Backend {
	case config.CacheNone, "":
		return nil, nil
	case config.CacheMemory:
		return memory.NewCache(memory.WithTTL(cfg.TTL)), nil
	case config.CacheRedis:
		opts := []redis.Option{redis.WithTTL(cfg.TTL)}
		if cfg.Redis.Prefix != "" {
			opts = append(opts, redis.WithPrefix(cfg.Redis.Prefix))
		}
		return redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, opts...), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
