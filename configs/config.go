package configs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/capbridge/capbridge/internal/adapter/outbound/github"
)

// Source is a single API description source with optional fetch headers.
type Source struct {
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers,omitempty"`
}

// RouteMapRule is one user-supplied classification rule, evaluated before the
// built-in defaults in file order.
type RouteMapRule struct {
	Methods    []string `yaml:"methods,omitempty"`
	Pattern    string   `yaml:"pattern"`
	PathParams *bool    `yaml:"path_params,omitempty"`
	Kind       string   `yaml:"kind"`
}

// FileConfig defines the structure loaded from the YAML configuration file.
type FileConfig struct {
	Sources          []interface{}  `yaml:"sources"`
	RouteMaps        []RouteMapRule `yaml:"route_maps,omitempty"`
	DuplicatePolicy  string         `yaml:"duplicate_policy,omitempty"`
	CoerceStringArgs string         `yaml:"coerce_string_args,omitempty"`
}

// Config holds the final application configuration, merged from the YAML file
// and environment variables. Environment variables use the "CAPBRIDGE_"
// prefix and override file settings.
type Config struct {
	// Config file path, loaded first from env.
	ConfigFilePath string `envconfig:"CONFIG_FILE" default:"configs/capbridge.yaml"`

	// File-loaded fields.
	Sources          []Source
	RouteMaps        []RouteMapRule
	DuplicatePolicy  string `envconfig:"DUPLICATE_POLICY"`
	CoerceStringArgs string `envconfig:"COERCE_STRING_ARGS"`

	// Environment-overridable fields.
	ListenAddr               string        `envconfig:"LISTEN_ADDR" default:":8080"`
	AdminListenAddr          string        `envconfig:"ADMIN_LISTEN_ADDR" default:":8081"`
	HTTPClientTimeout        time.Duration `envconfig:"HTTP_CLIENT_TIMEOUT" default:"30s"`
	ShutdownTimeout          time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"5s"`
	OtelExporterOtlpEndpoint string        `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OtelExporterOtlpInsecure bool          `envconfig:"OTEL_EXPORTER_OTLP_INSECURE" default:"true"`
	LogLevel                 string        `envconfig:"LOG_LEVEL" default:"info"`
}

// ParsedLogLevel returns the slog.Level for the configured LogLevel string.
func (c *Config) ParsedLogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "info":
		fallthrough
	default:
		return slog.LevelInfo
	}
}

// Load loads configuration first from environment variables (to get the file
// path), then from the YAML file, and finally reapplies environment variables
// so they override file settings.
func Load() (*Config, error) {
	var initialCfg Config
	if err := envconfig.Process("capbridge", &initialCfg); err != nil {
		return nil, fmt.Errorf("failed to process initial environment variables: %w", err)
	}

	fileCfg := FileConfig{}
	if initialCfg.ConfigFilePath != "" {
		if github.IsGitHubURL(initialCfg.ConfigFilePath) {
			yamlFile, err := github.NewLoader().LoadFile(context.Background(), initialCfg.ConfigFilePath)
			if err != nil {
				return nil, fmt.Errorf("failed to load config from GitHub '%s': %w", initialCfg.ConfigFilePath, err)
			}
			if err := yaml.Unmarshal(yamlFile, &fileCfg); err != nil {
				return nil, fmt.Errorf("failed to unmarshal config file '%s': %w", initialCfg.ConfigFilePath, err)
			}
			slog.Info("Loaded configuration from GitHub.", "url", initialCfg.ConfigFilePath)
		} else if yamlFile, err := os.ReadFile(initialCfg.ConfigFilePath); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file '%s': %w", initialCfg.ConfigFilePath, err)
			}
			slog.Info("Config file not found, using defaults and env vars only.", "path", initialCfg.ConfigFilePath)
		} else {
			if err := yaml.Unmarshal(yamlFile, &fileCfg); err != nil {
				return nil, fmt.Errorf("failed to unmarshal config file '%s': %w", initialCfg.ConfigFilePath, err)
			}
			slog.Info("Loaded configuration from file.", "path", initialCfg.ConfigFilePath)
		}
	}

	finalCfg := initialCfg
	finalCfg.RouteMaps = fileCfg.RouteMaps
	finalCfg.DuplicatePolicy = fileCfg.DuplicatePolicy
	finalCfg.CoerceStringArgs = fileCfg.CoerceStringArgs

	// Sources accept both a bare URL string and an object with headers.
	finalCfg.Sources = make([]Source, 0, len(fileCfg.Sources))
	for _, source := range fileCfg.Sources {
		switch v := source.(type) {
		case string:
			finalCfg.Sources = append(finalCfg.Sources, Source{URL: v})
		case map[string]interface{}:
			s := Source{}
			if url, ok := v["url"].(string); ok {
				s.URL = url
			}
			if headers, ok := v["headers"].(map[string]interface{}); ok {
				s.Headers = make(map[string]string)
				for key, val := range headers {
					if strVal, ok := val.(string); ok {
						s.Headers[key] = strVal
					}
				}
			}
			if s.URL != "" {
				finalCfg.Sources = append(finalCfg.Sources, s)
			}
		default:
			slog.Warn("Ignoring invalid source format.", "source", source)
		}
	}

	// Process environment variables again so they win over file settings.
	if err := envconfig.Process("capbridge", &finalCfg); err != nil {
		return nil, fmt.Errorf("failed to process overriding environment variables: %w", err)
	}

	return &finalCfg, nil
}
