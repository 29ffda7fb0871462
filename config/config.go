package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"

	"github.com/angeloszaimis/multilink-proxy/internal/metrics"
	"github.com/angeloszaimis/multilink-proxy/internal/strategy"
	"github.com/angeloszaimis/multilink-proxy/internal/tracing"
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
	Address     string `mapstructure:"address"`
	Environment string `mapstructure:"environment"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type HealthCheckConfig struct {
	Interval     string `mapstructure:"interval"`
	ProbeTimeout string `mapstructure:"probe_timeout"`
	QueueSize    int    `mapstructure:"queue_size"`
}

type CircuitBreakerConfig struct {
	Threshold    int    `mapstructure:"threshold"`
	ResetTimeout string `mapstructure:"reset_timeout"`
}

type TelemetryConfig struct {
	Exporter string `mapstructure:"exporter"`
	Tracing  string `mapstructure:"tracing"`
}

type TargetServerConfig struct {
	Alias string `mapstructure:"alias"`
	URL   string `mapstructure:"url"`
}

type LinkConfig struct {
	Name      string               `mapstructure:"name"`
	ProxyPort int                  `mapstructure:"proxy_port"`
	Enabled   bool                 `mapstructure:"enabled"`
	Strategy  string               `mapstructure:"strategy"`
	Servers   []TargetServerConfig `mapstructure:"servers"`
}

type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Logging        LoggingConfig        `mapstructure:"logging"`
	HealthCheck    HealthCheckConfig    `mapstructure:"health_check"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	Telemetry      TelemetryConfig      `mapstructure:"telemetry"`
	Links          []LinkConfig         `mapstructure:"links"`
}

// Load reads config.yaml from ./config or the working directory, applies
// environment overrides (health_check.interval -> HEALTH_CHECK_INTERVAL) and
// validates the result.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	return load(v)
}

// LoadFile is Load with an explicit config file path.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)

	return load(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.environment", EnvDev)
	v.SetDefault("server.address", "127.0.0.1:44399")
	v.SetDefault("logging.level", LogLevelInfo)
	v.SetDefault("health_check.interval", "2s")
	v.SetDefault("health_check.probe_timeout", "5s")
	v.SetDefault("health_check.queue_size", 64)
	v.SetDefault("circuit_breaker.threshold", 5)
	v.SetDefault("circuit_breaker.reset_timeout", "30s")
	v.SetDefault("telemetry.exporter", metrics.ExporterPrometheus)
	v.SetDefault("telemetry.tracing", tracing.ExporterNone)
}

func load(v *viper.Viper) (*Config, error) {
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		slog.Warn("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server),
		validation.Field(&c.Logging),
		validation.Field(&c.HealthCheck),
		validation.Field(&c.CircuitBreaker),
		validation.Field(&c.Telemetry),
		validation.Field(&c.Links,
			validation.By(uniqueLinks),
		),
	)
}

func (sc ServerConfig) Validate() error {
	return validation.ValidateStruct(&sc,
		validation.Field(&sc.Environment,
			validation.Required,
			validation.In(EnvDev, EnvStaging, EnvProd),
		),
		validation.Field(&sc.Address,
			validation.Required,
			validation.By(validateHostPort),
		),
	)
}

func (lc LoggingConfig) Validate() error {
	return validation.ValidateStruct(&lc,
		validation.Field(&lc.Level,
			validation.Required,
			validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
		),
	)
}

func (hc HealthCheckConfig) Validate() error {
	return validation.ValidateStruct(&hc,
		validation.Field(&hc.Interval,
			validation.Required,
			validation.By(validateDuration),
		),
		validation.Field(&hc.ProbeTimeout,
			validation.Required,
			validation.By(validateDuration),
		),
		validation.Field(&hc.QueueSize,
			validation.Required,
			validation.Min(1),
		),
	)
}

func (cc CircuitBreakerConfig) Validate() error {
	return validation.ValidateStruct(&cc,
		validation.Field(&cc.Threshold,
			validation.Required,
			validation.Min(1),
		),
		validation.Field(&cc.ResetTimeout,
			validation.Required,
			validation.By(validateDuration),
		),
	)
}

func (tc TelemetryConfig) Validate() error {
	return validation.ValidateStruct(&tc,
		validation.Field(&tc.Exporter,
			validation.Required,
			validation.In(metrics.ExporterPrometheus, metrics.ExporterStdout, metrics.ExporterNone),
		),
		validation.Field(&tc.Tracing,
			validation.Required,
			validation.In(tracing.ExporterStdout, tracing.ExporterNone),
		),
	)
}

func (lc LinkConfig) Validate() error {
	strategies := make([]interface{}, 0, len(strategy.Names))
	for _, name := range strategy.Names {
		strategies = append(strategies, name)
	}

	return validation.ValidateStruct(&lc,
		validation.Field(&lc.Name, validation.Required),
		validation.Field(&lc.ProxyPort,
			validation.Required,
			validation.Min(1),
			validation.Max(65535),
		),
		validation.Field(&lc.Strategy, validation.In(strategies...)),
		validation.Field(&lc.Servers),
	)
}

func (tc TargetServerConfig) Validate() error {
	return validation.ValidateStruct(&tc,
		validation.Field(&tc.Alias, validation.Required),
		validation.Field(&tc.URL,
			validation.Required,
			validation.By(validateServerURL),
		),
	)
}

// IntervalDuration returns the parsed health check interval.
func (hc HealthCheckConfig) IntervalDuration() time.Duration {
	d, _ := time.ParseDuration(hc.Interval)
	return d
}

// ProbeTimeoutDuration returns the parsed probe timeout.
func (hc HealthCheckConfig) ProbeTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(hc.ProbeTimeout)
	return d
}

// ResetTimeoutDuration returns the parsed breaker reset timeout.
func (cc CircuitBreakerConfig) ResetTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(cc.ResetTimeout)
	return d
}

func uniqueLinks(value interface{}) error {
	links, ok := value.([]LinkConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a list of links")
	}

	names := make(map[string]bool, len(links))
	ports := make(map[int]bool, len(links))
	for _, link := range links {
		if names[link.Name] {
			return validation.NewError("validation_duplicate_link", fmt.Sprintf("duplicate link name %q", link.Name))
		}
		if ports[link.ProxyPort] {
			return validation.NewError("validation_duplicate_port", fmt.Sprintf("duplicate proxy port %d", link.ProxyPort))
		}
		names[link.Name] = true
		ports[link.ProxyPort] = true
	}

	return nil
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}

func validateDuration(value interface{}) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	d, err := time.ParseDuration(durationStr)
	if err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 2s, 5m, 1h)")
	}
	if d <= 0 {
		return validation.NewError("validation_non_positive_duration", "must be positive")
	}

	return nil
}

func validateServerURL(value interface{}) error {
	serverURL, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	parsedURL, err := url.Parse(serverURL)
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
