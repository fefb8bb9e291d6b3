package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/xompass/remote-association/resource"
	"go.uber.org/zap"
)

// Config can come from a YAML file or environment variables. Environment
// variables override YAML values.
type Config struct {
	Mongo  MongoConfig  `yaml:"mongo"`
	Remote RemoteConfig `yaml:"remote"`
	Log    LogConfig    `yaml:"log"`
}

type MongoConfig struct {
	URI string `yaml:"uri" env:"MONGO_URI" env-default:"mongodb://localhost:27017"`
	// Database defaults to the database of the URI, or "test".
	Database string `yaml:"database" env:"MONGO_DATABASE" env-default:""`
	// Name is the connector name models refer to.
	Name string `yaml:"name" env:"MONGO_CONNECTOR_NAME" env-default:"mongodb"`
}

// RemoteConfig describes the remote resource API.
type RemoteConfig struct {
	Site    string        `yaml:"site" env:"REMOTE_SITE" env-default:"http://127.0.0.1:3000"`
	Timeout time.Duration `yaml:"timeout" env:"REMOTE_TIMEOUT" env-default:"30s"`

	// HeadersStr is a comma-separated list of name=value pairs sent with
	// every remote request.
	HeadersStr string `yaml:"headers" env:"REMOTE_HEADERS" env-default:""`

	// Headers is parsed from HeadersStr.
	Headers map[string]string `yaml:"-"`
}

type LogConfig struct {
	Level       string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Development bool   `yaml:"development" env:"LOG_DEVELOPMENT" env-default:"false"`
}

// Load reads path with environment variable overrides. An empty path reads
// the environment only.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path == "" {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	cfg.Remote.Headers = parseHeaders(cfg.Remote.HeadersStr)
	return cfg, nil
}

// ResourceOptions returns the options of a remote resource served by the
// configured site.
func (c RemoteConfig) ResourceOptions(elementName string, logger *zap.Logger) resource.Options {
	return resource.Options{
		Site:        c.Site,
		ElementName: elementName,
		Headers:     c.Headers,
		Timeout:     c.Timeout,
		Logger:      logger,
	}
}

// NewLogger builds the zap logger described by cfg.
func NewLogger(cfg LogConfig) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	zapConfig := zap.NewProductionConfig()
	if cfg.Development {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.Level = level

	return zapConfig.Build()
}

// parseHeaders parses "name1=value1,name2=value2".
func parseHeaders(value string) map[string]string {
	headers := make(map[string]string)
	if value == "" {
		return headers
	}

	for _, pair := range strings.Split(value, ",") {
		name, val, found := strings.Cut(pair, "=")
		if found && strings.TrimSpace(name) != "" {
			headers[strings.TrimSpace(name)] = strings.TrimSpace(val)
		}
	}
	return headers
}
