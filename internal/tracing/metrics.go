package tracing

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Status label values shared by all counters.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// MetricsCollector collects Prometheus-compatible metrics for generations,
// feedback deliveries and LLM requests.
type MetricsCollector struct {
	meter metric.Meter

	// Counters
	generationsTotal metric.Int64Counter
	feedbackTotal    metric.Int64Counter
	llmRequestsTotal metric.Int64Counter
	tokensTotal      metric.Int64Counter

	// Histograms
	generationDuration metric.Float64Histogram
	llmLatency         metric.Float64Histogram
}

// NewMetricsCollector creates a new metrics collector using the given meter provider
func NewMetricsCollector(meterProvider metric.MeterProvider) (*MetricsCollector, error) {
	meter := meterProvider.Meter("postgen")

	mc := &MetricsCollector{meter: meter}

	var err error

	mc.generationsTotal, err = meter.Int64Counter(
		"postgen_generations_total",
		metric.WithDescription("Total number of post generations"),
		metric.WithUnit("{generation}"),
	)
	if err != nil {
		return nil, err
	}

	mc.feedbackTotal, err = meter.Int64Counter(
		"postgen_feedback_total",
		metric.WithDescription("Total number of feedback annotations sent"),
		metric.WithUnit("{annotation}"),
	)
	if err != nil {
		return nil, err
	}

	mc.llmRequestsTotal, err = meter.Int64Counter(
		"postgen_llm_requests_total",
		metric.WithDescription("Total number of LLM requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	mc.tokensTotal, err = meter.Int64Counter(
		"postgen_tokens_total",
		metric.WithDescription("Total number of tokens processed"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return nil, err
	}

	mc.generationDuration, err = meter.Float64Histogram(
		"postgen_generation_duration_seconds",
		metric.WithDescription("Post generation duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	mc.llmLatency, err = meter.Float64Histogram(
		"postgen_llm_latency_seconds",
		metric.WithDescription("LLM request latency in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return mc, nil
}

// RecordGeneration records one Generate call.
func (mc *MetricsCollector) RecordGeneration(ctx context.Context, status string, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String("status", status))
	mc.generationsTotal.Add(ctx, 1, attrs)
	mc.generationDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordFeedback records one feedback delivery attempt.
func (mc *MetricsCollector) RecordFeedback(ctx context.Context, polarity, status string) {
	mc.feedbackTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("polarity", polarity),
		attribute.String("status", status),
	))
}

// RecordLLMRequest records an LLM request completion
func (mc *MetricsCollector) RecordLLMRequest(ctx context.Context, provider, model, status string, promptTokens, completionTokens int, latency time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("provider", provider),
		attribute.String("model", model),
		attribute.String("status", status),
	}

	mc.llmRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	mc.llmLatency.Record(ctx, latency.Seconds(), metric.WithAttributes(attrs...))

	if promptTokens > 0 {
		tokenAttrs := append(attrs[:2:2], attribute.String("type", "prompt"))
		mc.tokensTotal.Add(ctx, int64(promptTokens), metric.WithAttributes(tokenAttrs...))
	}
	if completionTokens > 0 {
		tokenAttrs := append(attrs[:2:2], attribute.String("type", "completion"))
		mc.tokensTotal.Add(ctx, int64(completionTokens), metric.WithAttributes(tokenAttrs...))
	}
}
