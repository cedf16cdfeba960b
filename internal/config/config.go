package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/polyclass/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	Sampler  SamplerConfig  `yaml:"sampler" mapstructure:"sampler"`
	Session  SessionConfig  `yaml:"session" mapstructure:"session"`
	Classify ClassifyConfig `yaml:"classify" mapstructure:"classify"`
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
}

// SamplerConfig configures the forecast client and the sampling fallbacks.
type SamplerConfig struct {
	BaseURL                 string  `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs             int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimit               float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	MaxAttempts             int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	Fallback                string  `yaml:"fallback" mapstructure:"fallback"` // random or fixed
	FallbackMax             int     `yaml:"fallback_max" mapstructure:"fallback_max"`
	FallbackValue           float64 `yaml:"fallback_value" mapstructure:"fallback_value"`
	CacheTTLSecs            int     `yaml:"cache_ttl_secs" mapstructure:"cache_ttl_secs"`
	CacheMaxEntries         int     `yaml:"cache_max_entries" mapstructure:"cache_max_entries"`
	CircuitFailureThreshold int     `yaml:"circuit_failure_threshold" mapstructure:"circuit_failure_threshold"`
	CircuitResetSecs        int     `yaml:"circuit_reset_secs" mapstructure:"circuit_reset_secs"`
}

// SessionConfig sets the state a new session starts from.
type SessionConfig struct {
	Field   string                `yaml:"field" mapstructure:"field"`
	TimeMin int                   `yaml:"time_min" mapstructure:"time_min"`
	TimeMax int                   `yaml:"time_max" mapstructure:"time_max"`
	Rules   []model.ThresholdRule `yaml:"rules" mapstructure:"rules"`
}

// TimeRange returns the configured timeline window.
func (s SessionConfig) TimeRange() model.TimeRange {
	return model.TimeRange{Min: s.TimeMin, Max: s.TimeMax}
}

// ClassifyConfig configures batch classification.
type ClassifyConfig struct {
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// Fallback strategies accepted in sampler.fallback.
const (
	FallbackRandom = "random"
	FallbackFixed  = "fixed"
)

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("POLYCLASS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"http://localhost:5173"})
	v.SetDefault("sampler.base_url", "https://api.open-meteo.com")
	v.SetDefault("sampler.timeout_secs", 10)
	v.SetDefault("sampler.rate_limit", 10)
	v.SetDefault("sampler.max_attempts", 3)
	v.SetDefault("sampler.fallback", FallbackRandom)
	v.SetDefault("sampler.fallback_max", 40)
	v.SetDefault("sampler.fallback_value", 0)
	v.SetDefault("sampler.cache_ttl_secs", 900)
	v.SetDefault("sampler.cache_max_entries", 1024)
	v.SetDefault("sampler.circuit_failure_threshold", 5)
	v.SetDefault("sampler.circuit_reset_secs", 30)
	v.SetDefault("session.field", "temperature_2m")
	v.SetDefault("session.time_min", -24)
	v.SetDefault("session.time_max", 24)
	v.SetDefault("classify.max_concurrent", 4)

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

// Validate checks the settings a command mode depends on. All problems are
// reported together.
func (c *Config) Validate(mode string) error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	switch mode {
	case "serve":
		if c.Server.Port <= 0 {
			add("server.port must be > 0")
		}
	case "classify":
		if c.Classify.MaxConcurrent < 1 || c.Classify.MaxConcurrent > 64 {
			add("classify.max_concurrent must be between 1 and 64")
		}
	case "sample":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	s := c.Sampler
	if s.BaseURL == "" {
		add("sampler.base_url is required")
	}
	if s.TimeoutSecs <= 0 {
		add("sampler.timeout_secs must be > 0")
	}
	if s.RateLimit <= 0 {
		add("sampler.rate_limit must be > 0")
	}
	if s.MaxAttempts < 1 || s.MaxAttempts > 10 {
		add("sampler.max_attempts must be between 1 and 10")
	}
	switch s.Fallback {
	case FallbackRandom:
		if s.FallbackMax <= 0 {
			add("sampler.fallback_max must be > 0")
		}
	case FallbackFixed:
	default:
		add("sampler.fallback must be %q or %q", FallbackRandom, FallbackFixed)
	}
	if s.CacheTTLSecs < 0 || s.CacheMaxEntries < 0 {
		add("sampler cache settings must be >= 0")
	}
	if s.CircuitFailureThreshold < 1 {
		add("sampler.circuit_failure_threshold must be >= 1")
	}
	if s.CircuitResetSecs < 1 {
		add("sampler.circuit_reset_secs must be >= 1")
	}

	if strings.TrimSpace(c.Session.Field) == "" {
		add("session.field is required")
	}
	if err := c.Session.TimeRange().Validate(); err != nil {
		add("session time range: %v", err)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
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
