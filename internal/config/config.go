package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultHost           = "127.0.0.1"
	DefaultPort           = 8765
	DefaultCatalogPath    = "resources/llm-info.json"
	DefaultLogDir         = "logs"
	DefaultLogLevel       = "info"
	DefaultLogMaxSizeMB   = 50
	DefaultRequestTimeout = 120 * time.Second
	DefaultDialTimeout    = 10 * time.Second

	// HTTPClientTarget tags records emitted on behalf of the HTTP stack.
	HTTPClientTarget = "net/http"
)

// Config represents the application configuration parsed from YAML.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Catalog CatalogConfig `yaml:"catalog"`
	Log     LogConfig     `yaml:"log"`
	HTTP    HTTPConfig    `yaml:"http"`
}

// ServerConfig defines listener configuration.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// AllowOrigins lists webview origins permitted to invoke commands.
	AllowOrigins []string `yaml:"allow_origins"`
}

// CatalogConfig points at the static model catalog.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// LogConfig controls the log sinks.
type LogConfig struct {
	Dir            string   `yaml:"dir"`
	Level          string   `yaml:"level"`
	MaxSizeMB      int      `yaml:"max_size_mb"`
	ExcludeTargets []string `yaml:"exclude_targets"`
}

// HTTPConfig tunes the outbound provider client.
type HTTPConfig struct {
	RequestTimeout Duration `yaml:"request_timeout"`
	DialTimeout    Duration `yaml:"dial_timeout"`
}

// Duration decodes Go duration strings such as "90s" from YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: DefaultHost,
			Port: DefaultPort,
		},
		Catalog: CatalogConfig{
			Path: DefaultCatalogPath,
		},
		Log: LogConfig{
			Dir:            DefaultLogDir,
			Level:          DefaultLogLevel,
			MaxSizeMB:      DefaultLogMaxSizeMB,
			ExcludeTargets: []string{HTTPClientTarget},
		},
		HTTP: HTTPConfig{
			RequestTimeout: Duration(DefaultRequestTimeout),
			DialTimeout:    Duration(DefaultDialTimeout),
		},
	}
}

// Load reads YAML configuration from disk on top of the defaults and validates the result.
func Load(path string) (Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return Config{}, fmt.Errorf("resolve config path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return Config{}, fmt.Errorf("read config file %q: %w", absPath, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file %q: %w", absPath, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate performs strict sanity checks on the configuration.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be a valid TCP port, got %d", c.Server.Port)
	}
	if strings.TrimSpace(c.Server.Host) == "" {
		return errors.New("server.host must not be empty")
	}
	if strings.TrimSpace(c.Catalog.Path) == "" {
		return errors.New("catalog.path must not be empty")
	}
	if err := validateLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Log.MaxSizeMB <= 0 {
		return fmt.Errorf("log.max_size_mb must be positive, got %d", c.Log.MaxSizeMB)
	}
	if c.HTTP.RequestTimeout < 0 {
		return errors.New("http.request_timeout must not be negative")
	}
	if c.HTTP.DialTimeout <= 0 {
		return errors.New("http.dial_timeout must be positive")
	}
	return nil
}

// Address returns the listen address for the command server.
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func validateLevel(level string) error {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("log.level %q must be one of debug, info, warn or error", level)
	}
}
