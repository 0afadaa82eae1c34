package config

import (
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/vango-dev/nested/internal/errors"
	"github.com/vango-dev/nested/internal/logging"
	"github.com/vango-dev/nested/pkg/nested"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "nested.json"

	// DefaultPort is the default server port.
	DefaultPort = 7070

	// DefaultHost is the default server host.
	DefaultHost = "localhost"

	// DefaultSessionTTL is how long an idle session lives.
	DefaultSessionTTL = "30m"

	// DefaultMetricsNamespace prefixes every Prometheus metric.
	DefaultMetricsNamespace = "nested"

	// DefaultTracerName names the OpenTelemetry tracer.
	DefaultTracerName = "github.com/vango-dev/nested"

	// DefaultRedisChannel is the pub/sub channel for change fan-out.
	DefaultRedisChannel = "nested:changes"
)

// Config represents the complete nested.json configuration.
type Config struct {
	// Server contains HTTP server configuration.
	Server ServerConfig `json:"server,omitempty"`

	// Strategies sets the default strategies for new sessions.
	Strategies StrategiesConfig `json:"strategies,omitempty"`

	// Metrics contains Prometheus configuration.
	Metrics MetricsConfig `json:"metrics,omitempty"`

	// Tracing contains OpenTelemetry configuration.
	Tracing TracingConfig `json:"tracing,omitempty"`

	// Log contains logger configuration.
	Log LogConfig `json:"log,omitempty"`

	// Redis enables change fan-out when Addr is set.
	Redis RedisConfig `json:"redis,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `json:"host,omitempty"`
	Port int    `json:"port,omitempty"`

	// SessionTTL is an idle timeout such as "30m". "0" disables expiry.
	SessionTTL string `json:"sessionTTL,omitempty"`
}

// StrategiesConfig names the built-in strategies new sessions start with.
type StrategiesConfig struct {
	Open   string `json:"open,omitempty"`
	Select string `json:"select,omitempty"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	Namespace string `json:"namespace,omitempty"`

	// Enabled is a pointer so an explicit false survives defaulting.
	Enabled *bool `json:"enabled,omitempty"`
}

// TracingConfig contains OpenTelemetry settings.
type TracingConfig struct {
	TracerName string `json:"tracerName,omitempty"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level  string `json:"level,omitempty"`
	Format string `json:"format,omitempty"`
}

// RedisConfig contains change fan-out settings.
type RedisConfig struct {
	Addr    string `json:"addr,omitempty"`
	Channel string `json:"channel,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads nested.json from the specified directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("N101").
				WithDetail("No " + ConfigFileName + " found in " + filepath.Dir(path)).
				WithSuggestion("Create " + ConfigFileName + " or run without --config to use defaults")
		}
		return nil, errors.New("N100").Wrap(err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("N100").
			WithDetail("Failed to parse " + path + ": " + err.Error()).
			WithSuggestion("Check that " + ConfigFileName + " is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.SessionTTL == "" {
		c.Server.SessionTTL = DefaultSessionTTL
	}

	if c.Strategies.Open == "" {
		c.Strategies.Open = nested.OpenMultiple
	}
	if c.Strategies.Select == "" {
		c.Strategies.Select = nested.SelectClassic
	}

	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultMetricsNamespace
	}
	if c.Metrics.Enabled == nil {
		enabled := true
		c.Metrics.Enabled = &enabled
	}

	if c.Tracing.TracerName == "" {
		c.Tracing.TracerName = DefaultTracerName
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = logging.FormatText
	}

	if c.Redis.Channel == "" {
		c.Redis.Channel = DefaultRedisChannel
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return errors.New("N102").
			WithDetail("server.port must be between 1 and 65535, got " + strconv.Itoa(c.Server.Port))
	}
	if _, err := c.SessionTTLDuration(); err != nil {
		return errors.New("N100").
			WithDetail("server.sessionTTL is not a duration: " + c.Server.SessionTTL).
			WithSuggestion(`Use a Go duration such as "30m" or "1h"`)
	}
	if _, err := nested.ParseOpenStrategy(c.Strategies.Open); err != nil {
		return errors.New("N103").
			WithDetail(err.Error()).
			WithSuggestion(errors.SuggestName(c.Strategies.Open, nested.OpenStrategyNames()))
	}
	if _, err := nested.ParseSelectStrategy(c.Strategies.Select); err != nil {
		return errors.New("N103").
			WithDetail(err.Error()).
			WithSuggestion(errors.SuggestName(c.Strategies.Select, nested.SelectStrategyNames()))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return errors.New("N104").
			WithDetail(err.Error()).
			WithSuggestion(errors.SuggestName(c.Log.Level, []string{"debug", "info", "warn", "error"}))
	}
	if c.Log.Format != logging.FormatText && c.Log.Format != logging.FormatJSON {
		return errors.New("N100").
			WithDetail(`log.format must be "text" or "json", got ` + strconv.Quote(c.Log.Format))
	}
	return nil
}

// Address returns the host:port the server listens on.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// SessionTTLDuration parses Server.SessionTTL. Zero means sessions never
// expire.
func (c *Config) SessionTTLDuration() (time.Duration, error) {
	if c.Server.SessionTTL == "0" {
		return 0, nil
	}
	return time.ParseDuration(c.Server.SessionTTL)
}

// MetricsEnabled reports whether Prometheus metrics are exposed.
func (c *Config) MetricsEnabled() bool {
	return c.Metrics.Enabled == nil || *c.Metrics.Enabled
}

// OpenStrategy resolves the configured open strategy.
func (c *Config) OpenStrategy() (nested.OpenStrategy, error) {
	return nested.ParseOpenStrategy(c.Strategies.Open)
}

// SelectStrategy resolves the configured select strategy.
func (c *Config) SelectStrategy() (nested.SelectStrategy, error) {
	return nested.ParseSelectStrategy(c.Strategies.Select)
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindProjectRoot walks up directories to find the one holding nested.json.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("N101").
				WithDetail("No " + ConfigFileName + " found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}

// LoadOrDefault loads nested.json from dir or one of its parents. When none
// exists it returns the defaults.
func LoadOrDefault(dir string) (*Config, error) {
	root, err := FindProjectRoot(dir)
	if err != nil {
		if errors.CodeOf(err) == "N101" {
			return New(), nil
		}
		return nil, err
	}
	return Load(root)
}
