package arbor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/arbor/internal/compiler"
	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/internal/runtime"
	"github.com/aretw0/arbor/pkg/adapters/file"
	loamAdapter "github.com/aretw0/arbor/pkg/adapters/loam"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/schema"
)

// Model is a compiled model together with the variables stored alongside it.
type Model = compiler.Document

// MarkovTrace is the per-cycle cohort history of a Markov simulation.
type MarkovTrace = runtime.MarkovTrace

// Engine is the high-level entry point for the arbor library.
// It wraps the internal runtime and adds model loading, optional strict
// validation and result caching.
type Engine struct {
	runtime          *runtime.Engine
	parser           *compiler.Parser
	loader           ports.ModelLoader
	cache            ports.ResultCache
	strictValidation bool
	runtimeOpts      []runtime.EngineOption
	hooks            domain.LifecycleHooks
	logger           *slog.Logger
	Name             string
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLoader injects a model library.
func WithLoader(l ports.ModelLoader) Option {
	return func(e *Engine) {
		e.loader = l
	}
}

// WithCache stores analysis results in c, keyed by a digest of the request.
func WithCache(c ports.ResultCache) Option {
	return func(e *Engine) {
		e.cache = c
	}
}

// WithStrictValidation rejects models that fail schema.Validate before any
// analysis runs.
func WithStrictValidation(strict bool) Option {
	return func(e *Engine) {
		e.strictValidation = strict
	}
}

// WithMaxDepth bounds tree recursion (default runtime.DefaultMaxDepth).
func WithMaxDepth(depth int) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithMaxDepth(depth))
	}
}

// WithParallelism lets up to n sensitivity evaluations run at once.
func WithParallelism(n int) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithParallelism(n))
	}
}

// WithStrictRoot fails with domain.ErrAmbiguousRoot when several nodes lack
// incoming edges, instead of using the first one.
func WithStrictRoot(strict bool) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithStrictRoot(strict))
	}
}

// WithUnifiedSensitivity makes sensitivity analysis simulate Markov roots
// instead of rolling them back.
func WithUnifiedSensitivity(unified bool) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithUnifiedSensitivity(unified))
	}
}

// WithName labels the engine; the name is attached to every log record.
func WithName(name string) Option {
	return func(e *Engine) {
		e.Name = name
	}
}

// New initializes a new arbor Engine.
func New(opts ...Option) *Engine {
	eng := &Engine{
		parser: compiler.NewParser(),
	}
	for _, opt := range opts {
		opt(eng)
	}

	// Ensure logger is initialized (so we don't pass nil to runtime, which would overwrite its default)
	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if eng.Name != "" {
		eng.logger = eng.logger.With("library", eng.Name)
	}

	runtimeOpts := []runtime.EngineOption{
		runtime.WithLifecycleHooks(eng.hooks),
		runtime.WithLogger(eng.logger),
	}
	runtimeOpts = append(runtimeOpts, eng.runtimeOpts...)
	eng.runtime = runtime.NewEngine(runtimeOpts...)

	return eng
}

// OpenLibrary creates a model loader for path. kind is "loam" or "file";
// an empty kind picks loam.
func OpenLibrary(path, kind string) (ports.ModelLoader, error) {
	if path == "" {
		return nil, fmt.Errorf("library path is required")
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("invalid library path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("library path %s is not a directory", path)
	}

	switch kind {
	case "", "loam":
		return loamAdapter.Open(path)
	case "file":
		return file.NewLoader(path), nil
	default:
		return nil, fmt.Errorf("unknown loader kind %q", kind)
	}
}

var _ ports.Analyzer = (*Engine)(nil)

// Rollback evaluates the model root. Markov roots run the cohort simulation,
// every other root is rolled back.
func (e *Engine) Rollback(ctx context.Context, g *domain.Graph, vars domain.Variables) (domain.Outcome, error) {
	if err := e.validate(g, vars); err != nil {
		return domain.Outcome{}, err
	}
	return cached(ctx, e, "rollback", g, vars, nil, func() (domain.Outcome, error) {
		return e.runtime.Analyze(ctx, g, vars)
	})
}

// SensitivityOneWay perturbs every variable to ±20% of its value.
func (e *Engine) SensitivityOneWay(ctx context.Context, g *domain.Graph, vars domain.Variables) (domain.TornadoResult, error) {
	return e.Sensitivity(ctx, g, vars, runtime.DefaultParams(vars))
}

// Sensitivity runs a one-way analysis with explicit parameter bounds.
func (e *Engine) Sensitivity(ctx context.Context, g *domain.Graph, vars domain.Variables, params []domain.SensitivityParam) (domain.TornadoResult, error) {
	if err := e.validate(g, vars); err != nil {
		return domain.TornadoResult{}, err
	}
	return cached(ctx, e, "sensitivity", g, vars, params, func() (domain.TornadoResult, error) {
		return e.runtime.AnalyzeSensitivity(ctx, g, vars, params)
	})
}

// Trace simulates a Markov-rooted model and returns the cohort of every cycle.
func (e *Engine) Trace(ctx context.Context, g *domain.Graph, vars domain.Variables) (domain.Outcome, *MarkovTrace, error) {
	if err := e.validate(g, vars); err != nil {
		return domain.Outcome{}, nil, err
	}
	return e.runtime.AnalyzeTrace(ctx, g, vars)
}

// ParseModel compiles a JSON model.
func (e *Engine) ParseModel(data []byte) (*Model, error) {
	return e.parser.Parse(data)
}

// ParseModelYAML compiles a YAML model.
func (e *Engine) ParseModelYAML(data []byte) (*Model, error) {
	return e.parser.ParseYAML(data)
}

// LoadModel fetches a model from the library and compiles it.
func (e *Engine) LoadModel(ctx context.Context, id string) (*Model, error) {
	if e.loader == nil {
		return nil, fmt.Errorf("%w: no model library configured", domain.ErrModelNotFound)
	}
	raw, err := e.loader.GetModel(ctx, id)
	if err != nil {
		return nil, err
	}
	doc, err := e.parser.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", id, err)
	}
	if doc.ID == "" {
		doc.ID = id
	}
	return doc, nil
}

// ListModels returns the ids of the models in the library.
func (e *Engine) ListModels(ctx context.Context) ([]string, error) {
	if e.loader == nil {
		return []string{}, nil
	}
	return e.loader.ListModels(ctx)
}

// Validate runs strict validation regardless of WithStrictValidation.
func (e *Engine) Validate(g *domain.Graph, vars domain.Variables) error {
	return schema.Validate(g, vars)
}

// Loader returns the model library, or nil.
func (e *Engine) Loader() ports.ModelLoader {
	return e.loader
}

func (e *Engine) validate(g *domain.Graph, vars domain.Variables) error {
	if !e.strictValidation {
		return nil
	}
	return schema.Validate(g, vars)
}

// cached serves the result from the result cache when possible, otherwise
// computes it with fn and stores it. Cache failures are logged and never fail
// the call.
func cached[T any](ctx context.Context, e *Engine, op string, g *domain.Graph, vars domain.Variables, params []domain.SensitivityParam, fn func() (T, error)) (T, error) {
	if e.cache == nil {
		return fn()
	}

	key, err := CacheKey(op, e.runtime.Fingerprint(), g, vars, params)
	if err != nil {
		e.logger.Warn("cache key failed", "op", op, "error", err)
		return fn()
	}

	raw, err := e.cache.Get(ctx, key)
	switch {
	case err == nil:
		var hit T
		if err := json.Unmarshal(raw, &hit); err == nil {
			e.logger.Debug("cache hit", "op", op, "key", key)
			return hit, nil
		}
		e.logger.Warn("cache entry unreadable", "op", op, "key", key)
	case !errors.Is(err, domain.ErrCacheMiss):
		e.logger.Warn("cache get failed", "op", op, "error", err)
	}

	v, err := fn()
	if err != nil {
		return v, err
	}

	// Non-finite results cannot be encoded; they are simply not cached.
	if raw, err := json.Marshal(v); err == nil {
		if err := e.cache.Set(ctx, key, raw); err != nil {
			e.logger.Warn("cache set failed", "op", op, "error", err)
		}
	}
	return v, nil
}

// CacheKey digests an analysis request. encoding/json sorts map keys, so the
// same model and variables always produce the same key. settings identifies
// the engine options that change results, so differently configured engines
// sharing one cache never see each other's entries.
func CacheKey(op, settings string, g *domain.Graph, vars domain.Variables, params []domain.SensitivityParam) (string, error) {
	payload := struct {
		Op        string                    `json:"op"`
		Settings  string                    `json:"settings"`
		Graph     *domain.Graph             `json:"graph"`
		Variables domain.Variables          `json:"variables"`
		Params    []domain.SensitivityParam `json:"params,omitempty"`
	}{op, settings, g, vars, params}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return op + ":" + hex.EncodeToString(sum[:]), nil
}
