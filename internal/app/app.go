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

// Package app wires configuration into the tracer provider, the post
// generator and the feedback relay shared by the CLI and the HTTP API.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/tombee/postgen/internal/config"
	"github.com/tombee/postgen/internal/feedback"
	"github.com/tombee/postgen/internal/generator"
	"github.com/tombee/postgen/internal/log"
	"github.com/tombee/postgen/internal/tracing"
	"github.com/tombee/postgen/pkg/httpclient"
	"github.com/tombee/postgen/pkg/llm"
	"github.com/tombee/postgen/pkg/llm/providers"
	"github.com/tombee/postgen/pkg/phoenix"
)

// InstrumentationName is the tracer name used for every span postgen opens.
const InstrumentationName = "github.com/tombee/postgen"

// Options adjust how the App is built.
type Options struct {
	// Version is reported as the service version on the trace resource.
	Version string

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Provider replaces the OpenAI provider built from configuration.
	Provider llm.Provider

	// TracerOptions are added after the exporters built from configuration.
	TracerOptions []sdktrace.TracerProviderOption
}

// App holds the long-lived components. It is safe for concurrent use.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Tracing *tracing.OTelProvider
	Relay   *feedback.Relay

	provider llm.Provider

	genOnce sync.Once
	gen     *generator.Generator
	genErr  error
}

// New builds the tracer provider and the feedback relay. The generator is
// built on first use so commands that never call the model do not need an
// OpenAI key.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tcfg := cfg.TracingConfig(opts.Version)
	var tpOpts []sdktrace.TracerProviderOption
	for _, p := range tracing.CreateExportersFromConfig(ctx, tcfg, log.WithComponent(logger, "tracing")) {
		tpOpts = append(tpOpts, sdktrace.WithSpanProcessor(p))
	}
	tpOpts = append(tpOpts, opts.TracerOptions...)

	tp, err := tracing.NewOTelProvider(tcfg, tpOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer provider: %w", err)
	}

	client, err := phoenix.New(phoenix.Config{
		BaseURL: cfg.Phoenix.Endpoint,
		APIKey:  cfg.Phoenix.APIKey,
		Sync:    cfg.Phoenix.Sync,
		Timeout: cfg.Phoenix.Timeout,
		Logger:  logger,
	})
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create Phoenix client: %w", err)
	}

	relay := feedback.NewRelay(client,
		feedback.WithLogger(log.WithComponent(logger, "feedback")),
		feedback.WithMetrics(tp.Metrics()),
	)

	return &App{
		Config:   cfg,
		Logger:   logger,
		Tracing:  tp,
		Relay:    relay,
		provider: opts.Provider,
	}, nil
}

// Generator returns the post generator, building the LLM provider on first call.
func (a *App) Generator() (*generator.Generator, error) {
	a.genOnce.Do(func() {
		provider := a.provider
		if provider == nil {
			provider, a.genErr = a.newOpenAIProvider()
			if a.genErr != nil {
				return
			}
		}

		tracer := a.Tracing.Tracer(InstrumentationName)
		metrics := a.Tracing.Metrics()

		var maxTokens *int
		if a.Config.LLM.MaxTokens > 0 {
			n := a.Config.LLM.MaxTokens
			maxTokens = &n
		}

		a.gen = generator.New(
			tracing.WrapProviderWithMetrics(provider, tracer, metrics),
			tracer,
			generator.Config{
				Model:       a.Config.LLM.Model,
				Temperature: a.Config.LLM.Temperature,
				MaxTokens:   maxTokens,
				Logger:      log.WithComponent(a.Logger, "generator"),
				Metrics:     metrics,
			},
		)
	})
	return a.gen, a.genErr
}

func (a *App) newOpenAIProvider() (llm.Provider, error) {
	httpCfg := httpclient.DefaultConfig()
	httpCfg.UserAgent = "postgen-openai-client/1.0"
	httpCfg.Timeout = a.Config.LLM.RequestTimeout
	httpCfg.Logger = a.Logger

	client, err := httpclient.New(httpCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	return providers.NewOpenAIProvider(providers.OpenAIConfig{
		APIKey:     a.Config.LLM.APIKey,
		BaseURL:    a.Config.LLM.BaseURL,
		HTTPClient: client,
	})
}

// Close flushes pending spans and shuts the tracer provider down.
func (a *App) Close(ctx context.Context) error {
	return errors.Join(
		a.Tracing.ForceFlush(ctx),
		a.Tracing.Shutdown(ctx),
	)
}
