// Package config loads the arbor.yaml file used by the CLI and the servers.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the configuration file looked up when --config is not given.
const DefaultPath = "arbor.yaml"

// Cache backends.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Library loader kinds.
const (
	LoaderFile = "file"
	LoaderLoam = "loam"
)

// ServerConfig configures the HTTP and MCP servers.
type ServerConfig struct {
	Addr         string `yaml:"addr"`
	MCPPort      int    `yaml:"mcp_port"`
	MaxBodyBytes int64  `yaml:"max_body_bytes"`
	Metrics      bool   `yaml:"metrics"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text | json
}

// EngineConfig mirrors the engine options.
type EngineConfig struct {
	MaxDepth           int  `yaml:"max_depth"`
	Parallelism        int  `yaml:"parallelism"`
	StrictRoot         bool `yaml:"strict_root"`
	StrictValidation   bool `yaml:"strict_validation"`
	UnifiedSensitivity bool `yaml:"unified_sensitivity"`
}

// RedisConfig holds the redis cache connection.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// CacheConfig selects the result cache backend.
type CacheConfig struct {
	Backend string        `yaml:"backend"`
	TTL     time.Duration `yaml:"ttl"`
	Redis   RedisConfig   `yaml:"redis"`

	// EncryptionKey is a base64 AES-256 key sealing cached results.
	// FallbackKeys keep entries written before a key rotation readable.
	EncryptionKey string   `yaml:"encryption_key"`
	FallbackKeys  []string `yaml:"fallback_keys"`
}

// LibraryConfig points at a directory of models.
type LibraryConfig struct {
	Dir    string `yaml:"dir"`
	Loader string `yaml:"loader"`
}

// Config models arbor.yaml.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	Engine  EngineConfig  `yaml:"engine"`
	Cache   CacheConfig   `yaml:"cache"`
	Library LibraryConfig `yaml:"library"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:         ":8080",
			MCPPort:      8081,
			MaxBodyBytes: 4 << 20,
			Metrics:      true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Engine: EngineConfig{
			MaxDepth:    512,
			Parallelism: 1,
		},
		Cache: CacheConfig{
			Backend: CacheMemory,
			TTL:     10 * time.Minute,
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "arbor:result:",
			},
		},
		Library: LibraryConfig{
			Loader: LoaderFile,
		},
	}
}

// Load reads path over the defaults. A missing file is only an error when
// required is set, so the default path can be probed silently.
func Load(path string, required bool) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values the engine and adapters cannot honour.
func (c Config) Validate() error {
	var errs []error
	switch c.Cache.Backend {
	case CacheNone, CacheMemory, CacheRedis:
	default:
		errs = append(errs, fmt.Errorf("cache.backend: unknown backend %q", c.Cache.Backend))
	}
	switch c.Library.Loader {
	case LoaderFile, LoaderLoam:
	default:
		errs = append(errs, fmt.Errorf("library.loader: unknown loader %q", c.Library.Loader))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}
	if c.Engine.MaxDepth < 0 {
		errs = append(errs, errors.New("engine.max_depth: must not be negative"))
	}
	if c.Engine.Parallelism < 0 {
		errs = append(errs, errors.New("engine.parallelism: must not be negative"))
	}
	if c.Cache.TTL < 0 {
		errs = append(errs, errors.New("cache.ttl: must not be negative"))
	}
	return errors.Join(errs...)
}
