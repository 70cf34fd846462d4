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
	"fmt"
	"log/slog"
	"time"

	"github.com/tombee/postgen/internal/tracing/export"
	"github.com/tombee/postgen/internal/tracing/storage"
	"github.com/tombee/postgen/pkg/observability"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// SpanStore persists converted spans.
type SpanStore interface {
	StoreSpan(ctx context.Context, span *observability.Span) error
	Close() error
}

// StorageExporter exports OpenTelemetry spans to the local span store.
type StorageExporter struct {
	store  SpanStore
	logger *slog.Logger
}

// NewStorageExporter creates a new storage exporter. The exporter owns the
// store and closes it on Shutdown.
func NewStorageExporter(store SpanStore, logger *slog.Logger) *StorageExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &StorageExporter{store: store, logger: logger}
}

// ExportSpans exports a batch of spans to storage.
func (e *StorageExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, otelSpan := range spans {
		span := convertOTelSpan(otelSpan)
		if err := e.store.StoreSpan(ctx, span); err != nil {
			// One bad span must not block the rest of the batch.
			e.logger.Warn("failed to store span", "span_id", span.SpanID, "error", err)
		}
	}
	return nil
}

// Shutdown closes the underlying store.
func (e *StorageExporter) Shutdown(ctx context.Context) error {
	return e.store.Close()
}

// convertOTelSpan converts an OpenTelemetry span to observability.Span.
func convertOTelSpan(otelSpan sdktrace.ReadOnlySpan) *observability.Span {
	span := &observability.Span{
		TraceID:   otelSpan.SpanContext().TraceID().String(),
		SpanID:    otelSpan.SpanContext().SpanID().String(),
		Name:      otelSpan.Name(),
		StartTime: otelSpan.StartTime(),
		EndTime:   otelSpan.EndTime(),
	}

	if otelSpan.Parent().IsValid() {
		span.ParentID = otelSpan.Parent().SpanID().String()
	}

	switch otelSpan.SpanKind() {
	case trace.SpanKindClient:
		span.Kind = observability.SpanKindClient
	case trace.SpanKindServer:
		span.Kind = observability.SpanKindServer
	default:
		span.Kind = observability.SpanKindInternal
	}

	status := otelSpan.Status()
	switch status.Code {
	case codes.Ok:
		span.Status.Code = observability.StatusCodeOK
	case codes.Error:
		span.Status.Code = observability.StatusCodeError
		span.Status.Message = status.Description
	default:
		span.Status.Code = observability.StatusCodeUnset
	}

	span.Attributes = make(map[string]any, len(otelSpan.Attributes()))
	for _, attr := range otelSpan.Attributes() {
		span.Attributes[string(attr.Key)] = attr.Value.AsInterface()
	}

	return span
}

var _ sdktrace.SpanExporter = (*StorageExporter)(nil)

// CreateExporter creates a span exporter from configuration.
// A nil exporter with a nil error means the type was "none".
func CreateExporter(ctx context.Context, cfg ExporterConfig) (sdktrace.SpanExporter, error) {
	switch cfg.Type {
	case "console":
		return export.NewConsoleExporter(export.ConsoleConfig{PrettyPrint: true})

	case "otlp":
		tlsConfig, err := export.BuildTLSConfig(export.TLSConfigInput{
			Enabled:           cfg.TLS.Enabled,
			VerifyCertificate: cfg.TLS.VerifyCertificate,
			CACertPath:        cfg.TLS.CACertPath,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to build TLS config for OTLP exporter: %w", err)
		}

		return export.NewOTLPExporter(ctx, export.OTLPConfig{
			Endpoint:  cfg.Endpoint,
			Insecure:  !cfg.TLS.Enabled,
			TLSConfig: tlsConfig,
			Headers:   cfg.Headers,
		})

	case "otlp_http", "otlp-http":
		tlsConfig, err := export.BuildTLSConfig(export.TLSConfigInput{
			Enabled:           cfg.TLS.Enabled,
			VerifyCertificate: cfg.TLS.VerifyCertificate,
			CACertPath:        cfg.TLS.CACertPath,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to build TLS config for OTLP HTTP exporter: %w", err)
		}

		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = DefaultPhoenixTracesEndpoint
		}

		return export.NewOTLPHTTPExporter(ctx, export.OTLPHTTPConfig{
			EndpointURL: endpoint,
			TLSConfig:   tlsConfig,
			Headers:     cfg.Headers,
		})

	case "none", "":
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown exporter type: %s", cfg.Type)
	}
}

// CreateExportersFromConfig creates span processors for all configured
// exporters and, when enabled, the local span store.
// Exporter creation failures are logged but don't block startup.
func CreateExportersFromConfig(ctx context.Context, cfg Config, logger *slog.Logger) []sdktrace.SpanProcessor {
	if logger == nil {
		logger = slog.Default()
	}

	var processors []sdktrace.SpanProcessor

	if cfg.Enabled {
		for i, exporterCfg := range cfg.Exporters {
			exporter, err := CreateExporter(ctx, exporterCfg)
			if err != nil {
				logger.Warn("failed to create exporter, skipping",
					"index", i,
					"type", exporterCfg.Type,
					"endpoint", exporterCfg.Endpoint,
					"error", err)
				continue
			}
			if exporter == nil {
				continue
			}

			processors = append(processors, newSpanProcessor(exporter, cfg.BatchInterval))
			logger.Debug("created exporter",
				"type", exporterCfg.Type,
				"endpoint", exporterCfg.Endpoint)
		}
	}

	if cfg.Storage.Enabled {
		store, err := storage.New(storage.Config{Path: cfg.Storage.Path})
		if err != nil {
			logger.Warn("failed to open span store, history disabled", "path", cfg.Storage.Path, "error", err)
		} else {
			// Synchronous so history is current as soon as a command returns.
			processors = append(processors, sdktrace.NewSimpleSpanProcessor(NewStorageExporter(store, logger)))
		}
	}

	return processors
}

// newSpanProcessor exports each span as it ends unless a batch interval is
// set. Feedback annotates a span by ID, so it must reach the collector first.
func newSpanProcessor(exporter sdktrace.SpanExporter, batchInterval time.Duration) sdktrace.SpanProcessor {
	if batchInterval > 0 {
		return sdktrace.NewBatchSpanProcessor(exporter, sdktrace.WithBatchTimeout(batchInterval))
	}
	return sdktrace.NewSimpleSpanProcessor(exporter)
}

// NewProviderFromConfig builds exporters from cfg and returns a provider
// that uses them.
func NewProviderFromConfig(ctx context.Context, cfg Config, logger *slog.Logger) (*OTelProvider, error) {
	var opts []sdktrace.TracerProviderOption
	for _, p := range CreateExportersFromConfig(ctx, cfg, logger) {
		opts = append(opts, sdktrace.WithSpanProcessor(p))
	}
	return NewOTelProvider(cfg, opts...)
}
