package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Extract    ExtractConfig    `yaml:"extract" mapstructure:"extract"`
	Classify   ClassifyConfig   `yaml:"classify" mapstructure:"classify"`
	Content    ContentConfig    `yaml:"content" mapstructure:"content"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
	Resilience ResilienceConfig `yaml:"resilience" mapstructure:"resilience"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key               string `yaml:"key" mapstructure:"key"`
	BaseURL           string `yaml:"base_url" mapstructure:"base_url"`
	Model             string `yaml:"model" mapstructure:"model"`
	VisionModel       string `yaml:"vision_model" mapstructure:"vision_model"`
	MaxTokens         int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	RequestsPerMinute int    `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
}

// ExtractConfig configures contact field extraction.
type ExtractConfig struct {
	Fields                  []string `yaml:"fields" mapstructure:"fields"`
	MaxAttempts             int      `yaml:"max_attempts" mapstructure:"max_attempts"`
	AttemptTimeoutSecs      int      `yaml:"attempt_timeout_secs" mapstructure:"attempt_timeout_secs"`
	Vocabulary              []string `yaml:"vocabulary" mapstructure:"vocabulary"`
	VocabularyFile          string   `yaml:"vocabulary_file" mapstructure:"vocabulary_file"`
	VocabularyFromCampaigns bool     `yaml:"vocabulary_from_campaigns" mapstructure:"vocabulary_from_campaigns"`
}

// AttemptTimeout returns the per-attempt deadline.
func (c ExtractConfig) AttemptTimeout() time.Duration {
	return time.Duration(c.AttemptTimeoutSecs) * time.Second
}

// ClassifyConfig configures screenshot classification.
type ClassifyConfig struct {
	MaxAttempts        int `yaml:"max_attempts" mapstructure:"max_attempts"`
	AttemptTimeoutSecs int `yaml:"attempt_timeout_secs" mapstructure:"attempt_timeout_secs"`
	Threshold          int `yaml:"threshold" mapstructure:"threshold"`
	MaxTokens          int `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// AttemptTimeout returns the per-attempt deadline.
func (c ClassifyConfig) AttemptTimeout() time.Duration {
	return time.Duration(c.AttemptTimeoutSecs) * time.Second
}

// ContentConfig locates files captured by the scraper.
type ContentConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// BatchConfig configures the batch runner.
type BatchConfig struct {
	Mode        string `yaml:"mode" mapstructure:"mode"`
	Concurrency int    `yaml:"concurrency" mapstructure:"concurrency"`
	Limit       int    `yaml:"limit" mapstructure:"limit"`
	LeaseSecs   int    `yaml:"lease_secs" mapstructure:"lease_secs"`
}

// Lease returns how long a record claim is held.
func (c BatchConfig) Lease() time.Duration {
	return time.Duration(c.LeaseSecs) * time.Second
}

// ResilienceConfig configures the circuit breaker around model calls.
type ResilienceConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
	File   string `yaml:"file" mapstructure:"file"`
}

// Batch modes.
const (
	ModeClassify = "classify"
	ModeExtract  = "extract"
)

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADTOOL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "leads.db")
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.base_url", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.vision_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("anthropic.requests_per_minute", 50)
	v.SetDefault("extract.fields", []string{"email", "contact_name", "industry", "city", "area"})
	v.SetDefault("extract.max_attempts", 2)
	v.SetDefault("extract.attempt_timeout_secs", 20)
	v.SetDefault("extract.vocabulary_file", "")
	v.SetDefault("extract.vocabulary_from_campaigns", false)
	v.SetDefault("classify.max_attempts", 1)
	v.SetDefault("classify.attempt_timeout_secs", 20)
	v.SetDefault("classify.threshold", 6)
	v.SetDefault("classify.max_tokens", 500)
	v.SetDefault("content.dir", "out")
	v.SetDefault("batch.mode", ModeExtract)
	v.SetDefault("batch.concurrency", 1)
	v.SetDefault("batch.limit", 0)
	v.SetDefault("batch.lease_secs", 300)
	v.SetDefault("resilience.failure_threshold", 5)
	v.SetDefault("resilience.reset_timeout_secs", 30)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file", "leadtool.log")

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

// Validate checks the settings required by the named command.
func (c *Config) Validate(command string) error {
	var errs []error

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("store.driver %q must be sqlite or postgres", c.Store.Driver))
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, errors.New("store.database_url is required"))
	}

	switch command {
	case "run":
		if c.Anthropic.Key == "" {
			errs = append(errs, errors.New("anthropic.key is required"))
		}
		if c.Batch.Mode != ModeClassify && c.Batch.Mode != ModeExtract {
			errs = append(errs, fmt.Errorf("batch.mode %q must be classify or extract", c.Batch.Mode))
		}
		if c.Batch.Concurrency < 1 || c.Batch.Concurrency > 20 {
			errs = append(errs, errors.New("batch.concurrency must be between 1 and 20"))
		}
		if len(c.Extract.Fields) == 0 {
			errs = append(errs, errors.New("extract.fields must not be empty"))
		}
		if c.Extract.MaxAttempts < 1 {
			errs = append(errs, errors.New("extract.max_attempts must be >= 1"))
		}
		if c.Classify.MaxAttempts < 1 {
			errs = append(errs, errors.New("classify.max_attempts must be >= 1"))
		}
		if c.Extract.AttemptTimeoutSecs < 1 || c.Classify.AttemptTimeoutSecs < 1 {
			errs = append(errs, errors.New("attempt_timeout_secs must be >= 1"))
		}
		if c.Classify.Threshold < 0 || c.Classify.Threshold > 10 {
			errs = append(errs, errors.New("classify.threshold must be between 0 and 10"))
		}
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, errors.New("server.port must be > 0"))
		}
	case "store":
	default:
		return eris.Errorf("config: unknown mode %q", command)
	}

	if len(errs) > 0 {
		return eris.Wrap(errors.Join(errs...), "config: validate "+command)
	}
	return nil
}

// InitLogger initializes the global zap logger. A configured file is opened
// in append mode alongside stderr.
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

	if cfg.File != "" {
		zapCfg.OutputPaths = append(zapCfg.OutputPaths, cfg.File)
		zapCfg.ErrorOutputPaths = append(zapCfg.ErrorOutputPaths, cfg.File)
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
