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

// Package observability defines the tracing surface the post generator and the
// feedback relay depend on. Components receive a Tracer at construction time so
// tests can substitute a fake without touching process-wide OpenTelemetry state.
package observability

import (
	"context"
)

// TracerProvider creates tracers and owns span export.
type TracerProvider interface {
	// Tracer returns a tracer for the given instrumentation scope.
	Tracer(name string) Tracer

	// Shutdown flushes any pending spans and releases resources.
	Shutdown(ctx context.Context) error

	// ForceFlush exports all pending spans synchronously.
	ForceFlush(ctx context.Context) error
}

// Tracer creates spans within a specific instrumentation scope.
type Tracer interface {
	// Start begins a new span as a child of the context's current span.
	// The returned context carries the new span.
	Start(ctx context.Context, name string, opts ...SpanOption) (context.Context, SpanHandle)
}

// SpanHandle is a handle to an in-flight span.
type SpanHandle interface {
	// End marks the span as complete. Subsequent calls are no-ops.
	End()

	// SetStatus sets the span's final status.
	SetStatus(code StatusCode, message string)

	// SetAttributes adds key-value metadata to the span.
	// Later calls with the same key overwrite earlier values.
	SetAttributes(attrs map[string]any)

	// SpanContext returns the span's identifiers.
	SpanContext() TraceContext

	// RecordError records err on the span and marks it failed.
	RecordError(err error)
}

// SpanOption configures span creation.
type SpanOption interface {
	// ApplySpanOption applies this option to a span configuration.
	ApplySpanOption(*SpanConfig)
}

// SpanConfig holds span creation options.
type SpanConfig struct {
	SpanKind   SpanKind
	Attributes map[string]any
}

// NewSpanConfig applies opts to an empty SpanConfig.
func NewSpanConfig(opts ...SpanOption) SpanConfig {
	var cfg SpanConfig
	for _, opt := range opts {
		opt.ApplySpanOption(&cfg)
	}
	return cfg
}

// WithSpanKind sets the span kind.
func WithSpanKind(kind SpanKind) SpanOption {
	return spanKindOption(kind)
}

type spanKindOption SpanKind

func (o spanKindOption) ApplySpanOption(c *SpanConfig) {
	c.SpanKind = SpanKind(o)
}

// WithAttributes sets initial span attributes.
func WithAttributes(attrs map[string]any) SpanOption {
	return spanAttributesOption(attrs)
}

type spanAttributesOption map[string]any

func (o spanAttributesOption) ApplySpanOption(c *SpanConfig) {
	if c.Attributes == nil {
		c.Attributes = make(map[string]any)
	}
	for k, v := range o {
		c.Attributes[k] = v
	}
}
