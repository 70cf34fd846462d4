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

// Package generator turns product descriptions into social media posts.
// Each generation is one completion request wrapped in a CHAIN span; the
// span ID is returned so feedback can later be attached to it.
package generator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/tombee/postgen/internal/log"
	"github.com/tombee/postgen/pkg/llm"
	"github.com/tombee/postgen/pkg/observability"
)

// SpanName is the name of the span opened around each generation.
const SpanName = "Social media post"

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "gpt-4o"

// Metrics records generation outcomes.
type Metrics interface {
	RecordGeneration(ctx context.Context, status string, duration time.Duration)
}

// Config configures a Generator.
type Config struct {
	// Model is the completion model ID (default: gpt-4o).
	Model string

	// Temperature and MaxTokens are passed through when set.
	Temperature *float64
	MaxTokens   *int

	// Logger receives one line per generation. Nil discards.
	Logger *slog.Logger

	// Metrics is optional.
	Metrics Metrics
}

// Generator produces posts. It holds no mutable state and is safe for
// concurrent use.
type Generator struct {
	provider    llm.Provider
	tracer      observability.Tracer
	model       string
	temperature *float64
	maxTokens   *int
	logger      *slog.Logger
	metrics     Metrics
}

// New creates a Generator that sends completions through provider and
// records spans on tracer.
func New(provider llm.Provider, tracer observability.Tracer, cfg Config) *Generator {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Discard()
	}

	return &Generator{
		provider:    provider,
		tracer:      tracer,
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      log.WithComponent(logger, "generator"),
		metrics:     cfg.Metrics,
	}
}

// Model returns the completion model this generator requests.
func (g *Generator) Model() string {
	return g.model
}

// Generate writes a post for description. It issues exactly one completion
// request and never returns a Go error: failures are reported in Result.Err,
// with Result.Text set to a readable message and no span ID.
func (g *Generator) Generate(ctx context.Context, description string) Result {
	start := time.Now()

	ctx, span := g.tracer.Start(ctx, SpanName,
		observability.WithAttributes(map[string]any{
			observability.AttrSpanKind:   observability.KindChain,
			observability.AttrInputValue: description,
		}),
	)
	defer span.End()

	text, err := g.complete(ctx, description)
	duration := time.Since(start)

	if err != nil {
		span.RecordError(err)
		genErr := &Error{Cause: err}

		g.logger.Warn("post generation failed",
			log.ModelKey, g.model,
			log.DurationKey, duration.Milliseconds(),
			"error", err)
		g.record(ctx, "error", duration)

		return Result{Text: genErr.Error(), Err: genErr}
	}

	span.SetAttributes(map[string]any{observability.AttrOutputValue: text})
	span.SetStatus(observability.StatusCodeOK, "")

	var spanID string
	if sc := span.SpanContext(); sc.HasSpanID() {
		spanID = sc.SpanID
	}

	g.logger.Debug("post generated",
		log.SpanIDKey, spanID,
		log.ModelKey, g.model,
		log.DurationKey, duration.Milliseconds(),
		"chars", len(text))
	g.record(ctx, "success", duration)

	return Result{Text: text, SpanID: spanID}
}

func (g *Generator) complete(ctx context.Context, description string) (string, error) {
	prompt, err := BuildPrompt(description)
	if err != nil {
		return "", err
	}

	log.Trace(ctx, g.logger, "sending prompt", slog.String("prompt", prompt))

	resp, err := g.provider.Complete(ctx, llm.CompletionRequest{
		Model: g.model,
		Messages: []llm.Message{
			{Role: llm.MessageRoleSystem, Content: SystemMessage},
			{Role: llm.MessageRoleUser, Content: prompt},
		},
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
	})
	if err != nil {
		return "", err
	}
	if resp == nil || resp.Content == "" {
		return "", errors.New("completion returned no content")
	}

	return resp.Content, nil
}

func (g *Generator) record(ctx context.Context, status string, d time.Duration) {
	if g.metrics != nil {
		g.metrics.RecordGeneration(ctx, status, d)
	}
}
