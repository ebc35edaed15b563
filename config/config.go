package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/spf13/viper"

	"github.com/angeloszaimis/advisor-gateway/internal/httpserver"
	"github.com/angeloszaimis/advisor-gateway/internal/staticanswer"
	"github.com/angeloszaimis/advisor-gateway/internal/strategy"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

type ServerConfig struct {
	Address      string `mapstructure:"address"`
	Environment  string `mapstructure:"environment"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
}

type LoggingConfig struct {
	Level     string `mapstructure:"level"`
	File      string `mapstructure:"file"`
	AddSource bool   `mapstructure:"add_source"`
}

type UpstreamConfig struct {
	Endpoints    []string `mapstructure:"endpoints"`
	Timeout      string   `mapstructure:"timeout"`
	Strategy     string   `mapstructure:"strategy"`
	VirtualNodes int      `mapstructure:"virtual_nodes"`
}

type HealthCheckConfig struct {
	Interval string `mapstructure:"interval"`
	Path     string `mapstructure:"path"`
}

type BreakerConfig struct {
	Threshold int    `mapstructure:"threshold"`
	CoolDown  string `mapstructure:"cool_down"`
}

type CacheConfig struct {
	TTL      string `mapstructure:"ttl"`
	Capacity int    `mapstructure:"capacity"`
}

type BacklogConfig struct {
	Capacity int `mapstructure:"capacity"`
}

type MetricsConfig struct {
	BufferSize           int    `mapstructure:"buffer_size"`
	StatusReportInterval string `mapstructure:"status_report_interval"`
}

type Config struct {
	Server      ServerConfig        `mapstructure:"server"`
	Logging     LoggingConfig       `mapstructure:"logging"`
	Upstream    UpstreamConfig      `mapstructure:"upstream"`
	HealthCheck HealthCheckConfig   `mapstructure:"health_check"`
	Breaker     BreakerConfig       `mapstructure:"breaker"`
	Cache       CacheConfig         `mapstructure:"cache"`
	Backlog     BacklogConfig       `mapstructure:"backlog"`
	Metrics     MetricsConfig       `mapstructure:"metrics"`
	StaticRules []staticanswer.Rule `mapstructure:"static_rules"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.environment", EnvDev)
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("logging.level", LogLevelInfo)
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("upstream.endpoints", []string{"http://localhost:5001"})
	v.SetDefault("upstream.timeout", "10s")
	v.SetDefault("upstream.strategy", strategy.RoundRobin)
	v.SetDefault("upstream.virtual_nodes", 100)
	v.SetDefault("health_check.interval", "10s")
	v.SetDefault("health_check.path", "ready")
	v.SetDefault("breaker.threshold", 5)
	v.SetDefault("breaker.cool_down", "30s")
	v.SetDefault("cache.ttl", "1h")
	v.SetDefault("cache.capacity", 500)
	v.SetDefault("backlog.capacity", 1000)
	v.SetDefault("metrics.buffer_size", 1000)
	v.SetDefault("metrics.status_report_interval", "1m")
}

// Load reads config.yaml from ./config or the working directory, then
// applies environment overrides (UPSTREAM_TIMEOUT for upstream.timeout).
func Load() (*Config, error) {
	return LoadFrom("./config", ".")
}

// LoadFrom is Load with explicit search paths.
func LoadFrom(paths ...string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, fmt.Errorf("read config: %w", err)
		}
		slog.Warn("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server,
			validation.Required,
			validation.By(func(value any) error {
				sc, ok := value.(ServerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ServerConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.Environment,
						validation.Required,
						validation.In(EnvDev, EnvStaging, EnvProd),
					),
					validation.Field(&sc.Address,
						validation.Required,
						validation.By(httpserver.ValidateAddress),
					),
					validation.Field(&sc.ReadTimeout, validation.Required, validation.By(validatePositiveDuration)),
					validation.Field(&sc.WriteTimeout, validation.Required, validation.By(validatePositiveDuration)),
				)
			}),
		),
		validation.Field(&c.Logging,
			validation.Required,
			validation.By(func(value any) error {
				lc, ok := value.(LoggingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.Level,
						validation.Required,
						validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
					),
				)
			}),
		),
		validation.Field(&c.Upstream,
			validation.Required,
			validation.By(func(value any) error {
				uc, ok := value.(UpstreamConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be an UpstreamConfig")
				}
				return validation.ValidateStruct(&uc,
					validation.Field(&uc.Endpoints,
						validation.Required,
						validation.Length(1, 0),
						validation.Each(validation.By(validateEndpointURL)),
					),
					validation.Field(&uc.Timeout, validation.Required, validation.By(validatePositiveDuration)),
					validation.Field(&uc.Strategy,
						validation.Required,
						validation.In(strategyNames()...),
					),
					validation.Field(&uc.VirtualNodes, validation.Required, validation.Min(1)),
				)
			}),
		),
		validation.Field(&c.HealthCheck,
			validation.Required,
			validation.By(func(value any) error {
				hc, ok := value.(HealthCheckConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a HealthCheckConfig")
				}
				return validation.ValidateStruct(&hc,
					validation.Field(&hc.Interval,
						validation.Required,
						validation.By(validateScheduleInterval),
					),
					validation.Field(&hc.Path, validation.Required),
				)
			}),
		),
		validation.Field(&c.Breaker,
			validation.Required,
			validation.By(func(value any) error {
				bc, ok := value.(BreakerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a BreakerConfig")
				}
				return validation.ValidateStruct(&bc,
					validation.Field(&bc.Threshold, validation.Required, validation.Min(1)),
					validation.Field(&bc.CoolDown, validation.Required, validation.By(validatePositiveDuration)),
				)
			}),
		),
		validation.Field(&c.Cache,
			validation.Required,
			validation.By(func(value any) error {
				cc, ok := value.(CacheConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a CacheConfig")
				}
				return validation.ValidateStruct(&cc,
					validation.Field(&cc.TTL, validation.Required, validation.By(validatePositiveDuration)),
					validation.Field(&cc.Capacity, validation.Required, validation.Min(1)),
				)
			}),
		),
		validation.Field(&c.Backlog,
			validation.Required,
			validation.By(func(value any) error {
				bc, ok := value.(BacklogConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a BacklogConfig")
				}
				return validation.ValidateStruct(&bc,
					validation.Field(&bc.Capacity, validation.Required, validation.Min(1)),
				)
			}),
		),
		validation.Field(&c.Metrics,
			validation.Required,
			validation.By(func(value any) error {
				mc, ok := value.(MetricsConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a MetricsConfig")
				}
				return validation.ValidateStruct(&mc,
					validation.Field(&mc.BufferSize, validation.Required, validation.Min(1)),
					validation.Field(&mc.StatusReportInterval, validation.Required, validation.By(validateScheduleInterval)),
				)
			}),
		),
		validation.Field(&c.StaticRules,
			validation.By(func(value any) error {
				rules, _ := value.([]staticanswer.Rule)
				if len(rules) == 0 {
					return nil
				}
				if _, err := staticanswer.New(rules); err != nil {
					return validation.NewError("validation_invalid_rules", err.Error())
				}
				return nil
			}),
		),
	)
}

// Rules returns the configured static rules, or the built-in set when none
// are configured.
func (c *Config) Rules() []staticanswer.Rule {
	if len(c.StaticRules) == 0 {
		return staticanswer.DefaultRules()
	}
	return c.StaticRules
}

func (c ServerConfig) ReadTimeoutDuration() time.Duration  { return mustDuration(c.ReadTimeout) }
func (c ServerConfig) WriteTimeoutDuration() time.Duration { return mustDuration(c.WriteTimeout) }
func (c UpstreamConfig) TimeoutDuration() time.Duration    { return mustDuration(c.Timeout) }
func (c HealthCheckConfig) IntervalDuration() time.Duration {
	return mustDuration(c.Interval)
}
func (c BreakerConfig) CoolDownDuration() time.Duration { return mustDuration(c.CoolDown) }
func (c CacheConfig) TTLDuration() time.Duration        { return mustDuration(c.TTL) }
func (c MetricsConfig) StatusReportDuration() time.Duration {
	return mustDuration(c.StatusReportInterval)
}

// mustDuration parses a duration that Validate has already checked; an
// unvalidated bad value reads as zero so callers fall back to defaults.
func mustDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}

func strategyNames() []any {
	names := make([]any, 0, len(strategy.Names))
	for _, n := range strategy.Names {
		names = append(names, n)
	}
	return names
}

func validatePositiveDuration(value any) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	d, err := time.ParseDuration(durationStr)
	if err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 2s, 5m, 1h)")
	}
	if d <= 0 {
		return validation.NewError("validation_non_positive_duration", "must be greater than zero")
	}

	return nil
}

// validateScheduleInterval also enforces the cron scheduler's one second
// resolution.
func validateScheduleInterval(value any) error {
	if err := validatePositiveDuration(value); err != nil {
		return err
	}

	if d, _ := time.ParseDuration(value.(string)); d < time.Second {
		return validation.NewError("validation_interval_too_short", "must be at least 1s")
	}

	return nil
}

func validateEndpointURL(value any) error {
	endpointURL, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if endpointURL == "" {
		return validation.NewError("validation_empty_url", "endpoint URL cannot be empty")
	}

	parsedURL, err := url.Parse(endpointURL)
	if err != nil {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return validation.NewError("validation_invalid_scheme", "URL must use http or https scheme")
	}

	if parsedURL.Host == "" {
		return validation.NewError("validation_missing_host", "URL must have a host")
	}

	return nil
}
