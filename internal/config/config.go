// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/tombee/postgen/internal/secrets"
	"github.com/tombee/postgen/internal/tracing"
	pgerrors "github.com/tombee/postgen/pkg/errors"
)

// Flag names that ApplyFlags reads when they were set on the command line.
const (
	FlagModel           = "model"
	FlagPhoenixEndpoint = "phoenix-endpoint"
	FlagProject         = "project"
	FlagAddr            = "addr"
)

// Config represents the complete postgen configuration.
type Config struct {
	LLM     LLMConfig     `yaml:"llm"`
	Phoenix PhoenixConfig `yaml:"phoenix"`
	Tracing TracingConfig `yaml:"tracing"`
	History HistoryConfig `yaml:"history"`
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
}

// LLMConfig configures the completion provider.
type LLMConfig struct {
	// Provider is the completion backend. Only "openai" is supported.
	Provider string `yaml:"provider"`

	// Model is the model ID sent with every request.
	// Environment: POSTGEN_MODEL
	Model string `yaml:"model"`

	// BaseURL overrides the OpenAI API base URL (Azure, proxies, local servers).
	// Environment: OPENAI_BASE_URL
	BaseURL string `yaml:"base_url,omitempty"`

	// APIKey is the OpenAI API key. Prefer the keychain or OPENAI_API_KEY.
	APIKey string `yaml:"api_key,omitempty"`

	// Temperature is optional; nil leaves the provider default.
	Temperature *float64 `yaml:"temperature,omitempty"`

	// MaxTokens caps the completion length. Zero leaves the provider default.
	MaxTokens int `yaml:"max_tokens,omitempty"`

	// RequestTimeout bounds a single completion call.
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// PhoenixConfig configures the Phoenix collector used for traces and annotations.
type PhoenixConfig struct {
	// Endpoint is the Phoenix base URL.
	// Environment: PHOENIX_COLLECTOR_ENDPOINT
	Endpoint string `yaml:"endpoint"`

	// APIKey authenticates against Phoenix Cloud.
	// Environment: PHOENIX_API_KEY
	APIKey string `yaml:"api_key,omitempty"`

	// ProjectName groups traces in the Phoenix UI.
	// Environment: PHOENIX_PROJECT_NAME
	ProjectName string `yaml:"project_name"`

	// Sync asks Phoenix to write annotations before responding.
	Sync bool `yaml:"sync"`

	// Timeout bounds a single annotation request.
	Timeout time.Duration `yaml:"timeout"`
}

// TracingConfig configures span export.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`

	// Exporter is one of otlp-http, otlp, console or none.
	Exporter string `yaml:"exporter"`

	// Endpoint overrides the exporter endpoint. Empty derives it from the
	// Phoenix endpoint.
	Endpoint string `yaml:"endpoint,omitempty"`

	// SampleRate is the fraction of traces kept, in [0, 1].
	SampleRate float64 `yaml:"sample_rate"`

	// BatchInterval batches exports with this flush interval. Zero exports
	// each span as it ends, so Phoenix has it before any feedback refers to it.
	BatchInterval time.Duration `yaml:"batch_interval,omitempty"`
}

// HistoryConfig configures the local span store behind `postgen history`.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	// Addr is the listen address.
	// Environment: POSTGEN_SERVER_ADDR
	Addr string `yaml:"addr"`

	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`

	// RateLimit is the sustained generation rate in requests per second.
	// Zero disables rate limiting.
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	AddSource bool   `yaml:"add_source"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:       "openai",
			Model:          "gpt-4o",
			RequestTimeout: 60 * time.Second,
		},
		Phoenix: PhoenixConfig{
			Endpoint:    "http://localhost:6006",
			ProjectName: tracing.DefaultProjectName,
			Timeout:     10 * time.Second,
		},
		Tracing: TracingConfig{
			Enabled:    true,
			Exporter:   "otlp-http",
			SampleRate: 1.0,
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    filepath.Join(DataDir(), "history.db"),
		},
		Server: ServerConfig{
			Addr:            "127.0.0.1:8080",
			ShutdownTimeout: 10 * time.Second,
			RequestTimeout:  90 * time.Second,
			RateLimit:       1,
			RateBurst:       5,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration from defaults, the YAML file and the
// environment, in that order of increasing precedence.
// An empty configPath reads the default XDG path when that file exists.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	path := configPath
	if path == "" {
		if p, err := ConfigPath(); err == nil {
			if _, statErr := os.Stat(p); statErr == nil {
				path = p
			}
		}
	}

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, &pgerrors.ConfigError{
				Key:    "config_file",
				Reason: fmt.Sprintf("failed to load from %s", path),
				Cause:  err,
			}
		}
	}

	cfg.applyDefaults()
	cfg.loadFromEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromFile loads configuration from a YAML file.
func (c *Config) loadFromFile(path string) error {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	return nil
}

// applyDefaults fills in zero values left by a partial config file.
func (c *Config) applyDefaults() {
	defaults := Default()

	if c.LLM.Provider == "" {
		c.LLM.Provider = defaults.LLM.Provider
	}
	if c.LLM.Model == "" {
		c.LLM.Model = defaults.LLM.Model
	}
	if c.LLM.RequestTimeout == 0 {
		c.LLM.RequestTimeout = defaults.LLM.RequestTimeout
	}
	if c.Phoenix.Endpoint == "" {
		c.Phoenix.Endpoint = defaults.Phoenix.Endpoint
	}
	if c.Phoenix.ProjectName == "" {
		c.Phoenix.ProjectName = defaults.Phoenix.ProjectName
	}
	if c.Phoenix.Timeout == 0 {
		c.Phoenix.Timeout = defaults.Phoenix.Timeout
	}
	if c.Tracing.Exporter == "" {
		c.Tracing.Exporter = defaults.Tracing.Exporter
	}
	if c.History.Path == "" {
		c.History.Path = defaults.History.Path
	}
	if c.Server.Addr == "" {
		c.Server.Addr = defaults.Server.Addr
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = defaults.Server.ShutdownTimeout
	}
	if c.Server.RequestTimeout == 0 {
		c.Server.RequestTimeout = defaults.Server.RequestTimeout
	}
	if c.Server.RateBurst == 0 {
		c.Server.RateBurst = defaults.Server.RateBurst
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = defaults.Log.Format
	}
}

// loadFromEnv overrides fields from environment variables.
func (c *Config) loadFromEnv(getenv func(string) string) {
	if val := getenv("OPENAI_API_KEY"); val != "" {
		c.LLM.APIKey = val
	}
	if val := getenv("OPENAI_BASE_URL"); val != "" {
		c.LLM.BaseURL = val
	}
	if val := getenv("POSTGEN_MODEL"); val != "" {
		c.LLM.Model = val
	}

	if val := getenv("PHOENIX_COLLECTOR_ENDPOINT"); val != "" {
		c.Phoenix.Endpoint = baseEndpoint(val)
	}
	if val := getenv("PHOENIX_API_KEY"); val != "" {
		c.Phoenix.APIKey = val
	}
	if val := getenv("PHOENIX_PROJECT_NAME"); val != "" {
		c.Phoenix.ProjectName = val
	}

	if val := getenv("POSTGEN_TRACING_ENABLED"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.Tracing.Enabled = enabled
		}
	}
	if val := getenv("POSTGEN_SERVER_ADDR"); val != "" {
		c.Server.Addr = val
	}

	if val := getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = strings.ToLower(val)
	}
	if val := getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = strings.ToLower(val)
	}
}

// ApplyFlags overrides fields from command-line flags that were explicitly set.
// Flags that are not registered on fs are ignored.
func (c *Config) ApplyFlags(fs *pflag.FlagSet) error {
	changed := func(name string) (string, bool) {
		f := fs.Lookup(name)
		if f == nil || !f.Changed {
			return "", false
		}
		return f.Value.String(), true
	}

	if v, ok := changed(FlagModel); ok {
		c.LLM.Model = v
	}
	if v, ok := changed(FlagPhoenixEndpoint); ok {
		c.Phoenix.Endpoint = baseEndpoint(v)
	}
	if v, ok := changed(FlagProject); ok {
		c.Phoenix.ProjectName = v
	}
	if v, ok := changed(FlagAddr); ok {
		c.Server.Addr = v
	}

	return c.Validate()
}

// Validate checks that the configuration is usable and reports the first
// problem as a *errors.ConfigError.
func (c *Config) Validate() error {
	invalid := func(key, reason string) error {
		return &pgerrors.ConfigError{Key: key, Reason: reason}
	}

	if c.LLM.Provider != "openai" {
		return invalid("llm.provider", fmt.Sprintf("unsupported provider %q, only \"openai\" is available", c.LLM.Provider))
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		return invalid("llm.model", "must not be empty")
	}
	if c.LLM.Temperature != nil && (*c.LLM.Temperature < 0 || *c.LLM.Temperature > 2) {
		return invalid("llm.temperature", fmt.Sprintf("must be between 0 and 2, got %v", *c.LLM.Temperature))
	}
	if c.LLM.MaxTokens < 0 {
		return invalid("llm.max_tokens", "must not be negative")
	}
	if c.LLM.BaseURL != "" {
		if err := validateHTTPURL(c.LLM.BaseURL); err != nil {
			return &pgerrors.ConfigError{Key: "llm.base_url", Reason: err.Error(), Cause: err}
		}
	}

	if err := validateHTTPURL(c.Phoenix.Endpoint); err != nil {
		return &pgerrors.ConfigError{Key: "phoenix.endpoint", Reason: err.Error(), Cause: err}
	}
	if strings.TrimSpace(c.Phoenix.ProjectName) == "" {
		return invalid("phoenix.project_name", "must not be empty")
	}

	switch c.Tracing.Exporter {
	case "otlp-http", "otlp_http", "otlp", "console", "none":
	default:
		return invalid("tracing.exporter", fmt.Sprintf("must be one of [otlp-http, otlp, console, none], got %q", c.Tracing.Exporter))
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return invalid("tracing.sample_rate", fmt.Sprintf("must be between 0 and 1, got %v", c.Tracing.SampleRate))
	}

	if c.History.Enabled && c.History.Path == "" {
		return invalid("history.path", "required when history is enabled")
	}

	if c.Server.Addr == "" {
		return invalid("server.addr", "must not be empty")
	}
	if _, _, err := net.SplitHostPort(c.Server.Addr); err != nil {
		return invalid("server.addr", "must be host:port")
	}
	if c.Server.RateLimit < 0 {
		return invalid("server.rate_limit", "must not be negative")
	}

	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[c.Log.Level] {
		return invalid("log.level", fmt.Sprintf("must be one of [trace, debug, info, warn, error], got %q", c.Log.Level))
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return invalid("log.format", fmt.Sprintf("must be one of [json, text], got %q", c.Log.Format))
	}

	return nil
}

// TracesEndpoint returns the OTLP traces URL for the configured exporter.
func (c *Config) TracesEndpoint() string {
	if c.Tracing.Endpoint != "" {
		return c.Tracing.Endpoint
	}
	if c.Tracing.Exporter == "otlp" {
		u, err := url.Parse(c.Phoenix.Endpoint)
		if err == nil && u.Host != "" {
			return u.Hostname() + ":4317"
		}
	}
	return strings.TrimRight(c.Phoenix.Endpoint, "/") + "/v1/traces"
}

// TracingConfig converts the settings into a tracing provider configuration.
func (c *Config) TracingConfig(version string) tracing.Config {
	exporter := tracing.ExporterConfig{
		Type:     c.Tracing.Exporter,
		Endpoint: c.TracesEndpoint(),
	}
	if strings.HasPrefix(exporter.Endpoint, "https://") {
		exporter.TLS = tracing.TLSConfig{Enabled: true, VerifyCertificate: true}
	}
	if c.Phoenix.APIKey != "" {
		exporter.Headers = map[string]string{"Authorization": "Bearer " + c.Phoenix.APIKey}
	}

	return tracing.Config{
		Enabled:        c.Tracing.Enabled,
		ServiceName:    "postgen",
		ServiceVersion: version,
		ProjectName:    c.Phoenix.ProjectName,
		SampleRate:     c.Tracing.SampleRate,
		Exporters:      []tracing.ExporterConfig{exporter},
		Storage: tracing.StorageConfig{
			Enabled: c.History.Enabled,
			Path:    c.History.Path,
		},
		BatchInterval: c.Tracing.BatchInterval,
	}
}

// SecretGetter looks up a named secret.
type SecretGetter interface {
	Get(ctx context.Context, key string) (string, error)
}

// ResolveSecrets fills API keys that neither the file nor the environment
// provided from the given secret store.
func (c *Config) ResolveSecrets(ctx context.Context, store SecretGetter) error {
	resolve := func(dst *string, key string) error {
		if *dst != "" {
			return nil
		}
		value, err := store.Get(ctx, key)
		if err != nil {
			if errors.Is(err, secrets.ErrSecretNotFound) || errors.Is(err, secrets.ErrBackendUnavailable) {
				return nil
			}
			return fmt.Errorf("failed to resolve %s: %w", key, err)
		}
		*dst = value
		return nil
	}

	if err := resolve(&c.LLM.APIKey, secrets.KeyOpenAIAPIKey); err != nil {
		return err
	}
	return resolve(&c.Phoenix.APIKey, secrets.KeyPhoenixAPIKey)
}

// Save writes the configuration as YAML, omitting API keys.
func (c *Config) Save(path string) error {
	out := *c
	out.LLM.APIKey = ""
	out.Phoenix.APIKey = ""

	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, fs.FileMode(0600)); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// baseEndpoint strips a trailing /v1/traces so a collector URL copied from
// tracing docs still works as the Phoenix base URL.
func baseEndpoint(endpoint string) string {
	endpoint = strings.TrimRight(endpoint, "/")
	return strings.TrimSuffix(endpoint, "/v1/traces")
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL %q must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("URL %q has no host", raw)
	}
	return nil
}
