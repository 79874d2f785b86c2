package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/shadewalk/shadewalk/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Sampling  SamplingConfig  `yaml:"sampling" mapstructure:"sampling"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Features  FeaturesConfig  `yaml:"features" mapstructure:"features"`
	Debounce  DebounceConfig  `yaml:"debounce" mapstructure:"debounce"`
	Solver    SolverConfig    `yaml:"solver" mapstructure:"solver"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the run-history database backend.
type StoreConfig struct {
	Driver      string            `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string            `yaml:"database_url" mapstructure:"database_url"`
	Pool        *store.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// SamplingConfig tunes the edge classification probes.
type SamplingConfig struct {
	StepMeters      float64 `yaml:"step_meters" mapstructure:"step_meters"`
	MaxSteps        int     `yaml:"max_steps" mapstructure:"max_steps"`
	SamplesPerPoint int     `yaml:"samples_per_point" mapstructure:"samples_per_point"`
	JitterRadiusM   float64 `yaml:"jitter_radius_m" mapstructure:"jitter_radius_m"`
	AlphaThreshold  int     `yaml:"alpha_threshold" mapstructure:"alpha_threshold"`
	EarlyExit       bool    `yaml:"early_exit" mapstructure:"early_exit"`
}

// BatchConfig configures the classification scheduler.
type BatchConfig struct {
	BulkSize int `yaml:"bulk_size" mapstructure:"bulk_size"`
	FineSize int `yaml:"fine_size" mapstructure:"fine_size"`
}

// FeaturesConfig configures the building-footprint source and cache.
type FeaturesConfig struct {
	BaseURL       string  `yaml:"base_url" mapstructure:"base_url"`
	RatePerSec    float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	TimeoutSecs   int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	FailOpen      bool    `yaml:"fail_open" mapstructure:"fail_open"`
	ShapefilePath string  `yaml:"shapefile_path" mapstructure:"shapefile_path"`
}

// DebounceConfig sets the recompute delays.
type DebounceConfig struct {
	SurfaceDelayMs int `yaml:"surface_delay_ms" mapstructure:"surface_delay_ms"`
	WeightDelayMs  int `yaml:"weight_delay_ms" mapstructure:"weight_delay_ms"`
}

// SolverConfig points at the path-solver backend.
type SolverConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// AnthropicConfig holds Anthropic API settings for the weights refiner.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SHADEWALK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "shadewalk.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("sampling.step_meters", 15)
	v.SetDefault("sampling.max_steps", 20)
	v.SetDefault("sampling.samples_per_point", 3)
	v.SetDefault("sampling.jitter_radius_m", 1.5)
	v.SetDefault("sampling.alpha_threshold", 16)
	v.SetDefault("sampling.early_exit", true)
	v.SetDefault("batch.bulk_size", 300)
	v.SetDefault("batch.fine_size", 50)
	v.SetDefault("features.rate_per_sec", 2)
	v.SetDefault("features.timeout_secs", 30)
	v.SetDefault("features.fail_open", true)
	v.SetDefault("debounce.surface_delay_ms", 800)
	v.SetDefault("debounce.weight_delay_ms", 150)
	v.SetDefault("solver.base_url", "http://localhost:8000")
	v.SetDefault("solver.timeout_secs", 30)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the configuration for the given run mode. Problems are
// collected so one pass reports everything wrong.
func (c *Config) Validate(mode string) error {
	var problems []string

	check := func(ok bool, msg string) {
		if !ok {
			problems = append(problems, msg)
		}
	}

	check(c.Sampling.StepMeters > 0, "sampling.step_meters must be > 0")
	check(c.Sampling.MaxSteps >= 1, "sampling.max_steps must be >= 1")
	check(c.Sampling.SamplesPerPoint >= 1 && c.Sampling.SamplesPerPoint <= 10,
		"sampling.samples_per_point must be between 1 and 10")
	check(c.Sampling.AlphaThreshold >= 0 && c.Sampling.AlphaThreshold <= 255,
		"sampling.alpha_threshold must be between 0 and 255")
	check(c.Batch.BulkSize >= 1 && c.Batch.BulkSize <= 1000,
		"batch.bulk_size must be between 1 and 1000")
	check(c.Batch.FineSize >= 1 && c.Batch.FineSize <= 1000,
		"batch.fine_size must be between 1 and 1000")
	check(c.Debounce.SurfaceDelayMs >= 0, "debounce.surface_delay_ms must be >= 0")
	check(c.Debounce.WeightDelayMs >= 0, "debounce.weight_delay_ms must be >= 0")

	switch mode {
	case "serve":
		check(c.Server.Port > 0, "server.port must be > 0")
		check(c.Store.DatabaseURL != "", "store.database_url is required")
		check(c.Solver.BaseURL != "", "solver.base_url is required")
	case "route":
		check(c.Solver.BaseURL != "", "solver.base_url is required")
	case "features":
		check(c.Features.BaseURL != "" || c.Features.ShapefilePath != "",
			"features.base_url or features.shapefile_path is required")
	case "analyze", "enhance":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
