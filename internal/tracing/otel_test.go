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

package tracing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tombee/postgen/pkg/observability"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTestProvider(t *testing.T) (*OTelProvider, *tracetest.InMemoryExporter) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()

	cfg := DefaultConfig()
	cfg.ServiceName = "test-service"
	cfg.ServiceVersion = "1.0.0"

	provider, err := NewOTelProvider(cfg, sdktrace.WithSyncer(exporter))
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return provider, exporter
}

func TestOTelProvider_BasicSpan(t *testing.T) {
	provider, exporter := newTestProvider(t)
	tracer := provider.Tracer("test")

	_, span := tracer.Start(context.Background(), "test-operation",
		observability.WithSpanKind(observability.SpanKindInternal),
		observability.WithAttributes(map[string]any{
			"test.key": "test-value",
			"test.num": 42,
		}),
	)
	span.SetAttributes(map[string]any{observability.AttrOutputValue: "done"})
	span.SetStatus(observability.StatusCodeOK, "")
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)

	captured := spans[0]
	assert.Equal(t, "test-operation", captured.Name)
	assert.Len(t, captured.Attributes, 3)
	assert.Contains(t, captured.Attributes, attribute.String("test.key", "test-value"))
	assert.Contains(t, captured.Attributes, attribute.Int("test.num", 42))
	assert.Contains(t, captured.Attributes, attribute.String(observability.AttrOutputValue, "done"))
	assert.Equal(t, "Ok", captured.Status.Code.String())
}

func TestOTelProvider_ResourceCarriesProjectName(t *testing.T) {
	provider, exporter := newTestProvider(t)

	_, span := provider.Tracer("test").Start(context.Background(), "op")
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)

	var project, service string
	for _, kv := range spans[0].Resource.Attributes() {
		switch kv.Key {
		case observability.AttrProjectName:
			project = kv.Value.AsString()
		case "service.name":
			service = kv.Value.AsString()
		}
	}
	assert.Equal(t, DefaultProjectName, project)
	assert.Equal(t, "test-service", service)
}

func TestOTelProvider_SpanContext(t *testing.T) {
	provider, _ := newTestProvider(t)

	_, span := provider.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	sc := span.SpanContext()
	assert.Len(t, sc.SpanID, 16)
	assert.Len(t, sc.TraceID, 32)
	assert.True(t, sc.HasSpanID())
	assert.Regexp(t, "^[0-9a-f]{16}$", sc.SpanID)
}

func TestOTelProvider_UnsampledSpanHasNoID(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	provider, err := NewOTelProvider(DefaultConfig(),
		sdktrace.WithSyncer(exporter),
		sdktrace.WithSampler(sdktrace.NeverSample()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	_, span := provider.Tracer("test").Start(context.Background(), "op")
	span.End()

	sc := span.SpanContext()
	assert.False(t, sc.HasSpanID(), "feedback cannot attach to a span Phoenix never receives")
	assert.Empty(t, sc.SpanID)
	assert.Empty(t, exporter.GetSpans())
}

func TestOTelProvider_NestedSpans(t *testing.T) {
	provider, exporter := newTestProvider(t)
	tracer := provider.Tracer("test")

	ctx, parentSpan := tracer.Start(context.Background(), "parent")
	_, childSpan := tracer.Start(ctx, "child")
	childSpan.End()
	parentSpan.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)

	var parent, child *tracetest.SpanStub
	for i := range spans {
		switch spans[i].Name {
		case "parent":
			parent = &spans[i]
		case "child":
			child = &spans[i]
		}
	}

	require.NotNil(t, parent)
	require.NotNil(t, child)
	assert.Equal(t, parent.SpanContext.SpanID(), child.Parent.SpanID())
	assert.Equal(t, parent.SpanContext.TraceID(), child.Parent.TraceID())
}

func TestOTelProvider_ErrorRecording(t *testing.T) {
	provider, exporter := newTestProvider(t)

	_, span := provider.Tracer("test").Start(context.Background(), "error-operation")
	span.RecordError(errors.New("upstream failed"))
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)

	captured := spans[0]
	require.NotEmpty(t, captured.Events)
	assert.Equal(t, "exception", captured.Events[0].Name)
	assert.Equal(t, "Error", captured.Status.Code.String())
	assert.Equal(t, "upstream failed", captured.Status.Description)
}

func TestOTelProvider_MetricsHandler(t *testing.T) {
	provider, _ := newTestProvider(t)

	provider.Metrics().RecordGeneration(context.Background(), StatusSuccess, 250*time.Millisecond)

	rec := httptest.NewRecorder()
	provider.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "postgen_generations_total")
	assert.Contains(t, string(body), `status="success"`)
}

func TestOTelProvider_IndependentRegistries(t *testing.T) {
	// Two providers in one process must not collide on metric registration.
	first, _ := newTestProvider(t)
	second, _ := newTestProvider(t)

	first.Metrics().RecordFeedback(context.Background(), "like", StatusSuccess)

	rec := httptest.NewRecorder()
	second.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.NotContains(t, rec.Body.String(), `polarity="like"`)
}

func TestNewOTelProvider_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SampleRate = 2

	_, err := NewOTelProvider(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sample rate")
}

func TestNewSampler(t *testing.T) {
	assert.Contains(t, newSampler(0).Description(), "AlwaysOnSampler")
	assert.Contains(t, newSampler(1).Description(), "AlwaysOnSampler")
	assert.Contains(t, newSampler(0.25).Description(), "TraceIDRatioBased{0.25}")
}

func TestToAttribute(t *testing.T) {
	temp := 0.7
	assert.Equal(t, attribute.String("k", "v"), toAttribute("k", "v"))
	assert.Equal(t, attribute.Bool("k", true), toAttribute("k", true))
	assert.Equal(t, attribute.Int64("k", 7), toAttribute("k", int64(7)))
	assert.Equal(t, attribute.Float64("k", 0.7), toAttribute("k", &temp))
	assert.Equal(t, attribute.StringSlice("k", []string{"a"}), toAttribute("k", []string{"a"}))
	assert.Equal(t, attribute.String("k", `{"a":1}`), toAttribute("k", map[string]int{"a": 1}))
}
