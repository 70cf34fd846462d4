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

package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/tombee/postgen/internal/config"
	"github.com/tombee/postgen/internal/log"
	"github.com/tombee/postgen/internal/tracing/storage"
	pgerrors "github.com/tombee/postgen/pkg/errors"
	"github.com/tombee/postgen/pkg/llm"
	"github.com/tombee/postgen/pkg/phoenix"
)

type stubProvider struct{}

func (stubProvider) Name() string { return "openai" }

func (stubProvider) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return &llm.CompletionResponse{
		Content: "Great mug! #mugs",
		Model:   req.Model,
		Usage:   llm.TokenUsage{InputTokens: 40, OutputTokens: 6, TotalTokens: 46},
	}, nil
}

func testConfig(t *testing.T, phoenixURL string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Tracing.Exporter = "none"
	cfg.History.Path = filepath.Join(t.TempDir(), "history.db")
	if phoenixURL != "" {
		cfg.Phoenix.Endpoint = phoenixURL
	}
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestApp_GenerateRecordsHistoryAndFeedback(t *testing.T) {
	var received phoenix.SpanAnnotationsRequest
	px := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/span_annotations", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer px.Close()

	cfg := testConfig(t, px.URL)
	spans := tracetest.NewInMemoryExporter()
	ctx := context.Background()

	a, err := New(ctx, cfg, Options{
		Version:       "test",
		Logger:        log.Discard(),
		Provider:      stubProvider{},
		TracerOptions: []sdktrace.TracerProviderOption{sdktrace.WithSyncer(spans)},
	})
	require.NoError(t, err)

	gen, err := a.Generator()
	require.NoError(t, err)

	result := gen.Generate(ctx, "Blue ceramic mug, 12oz, dishwasher safe.")
	require.True(t, result.OK(), "generation failed: %v", result.Err)
	assert.Len(t, result.SpanID, 16)

	require.Len(t, spans.GetSpans(), 2, "expected generation and LLM spans")

	assert.True(t, a.Relay.Send(ctx, result.SpanID, "like"))
	require.Len(t, received.Data, 1)
	assert.Equal(t, result.SpanID, received.Data[0].SpanID)
	assert.Equal(t, "👍", received.Data[0].Result.Label)

	require.NoError(t, a.Close(ctx))

	store, err := storage.New(storage.Config{Path: cfg.History.Path})
	require.NoError(t, err)
	defer store.Close()

	generations, err := store.ListGenerations(ctx, 5)
	require.NoError(t, err)
	require.Len(t, generations, 1)
	assert.Equal(t, result.SpanID, generations[0].SpanID)
	assert.Equal(t, "Blue ceramic mug, 12oz, dishwasher safe.", generations[0].Description)
	assert.Equal(t, "Great mug! #mugs", generations[0].Post)
	assert.Equal(t, "gpt-4o", generations[0].Model)
}

func TestApp_TraceExportedBeforeFeedback(t *testing.T) {
	var mu sync.Mutex
	var order []string
	px := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		mu.Lock()
		order = append(order, r.URL.Path)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer px.Close()

	cfg := testConfig(t, px.URL)
	cfg.Tracing.Exporter = "otlp-http"
	cfg.History.Enabled = false
	ctx := context.Background()

	a, err := New(ctx, cfg, Options{Logger: log.Discard(), Provider: stubProvider{}})
	require.NoError(t, err)
	defer a.Close(ctx)

	gen, err := a.Generator()
	require.NoError(t, err)
	result := gen.Generate(ctx, "Blue ceramic mug, 12oz, dishwasher safe.")
	require.True(t, result.OK(), "generation failed: %v", result.Err)

	require.True(t, a.Relay.Send(ctx, result.SpanID, "like"))

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, order)
	assert.Equal(t, "/v1/traces", order[0], "spans must reach Phoenix before the annotation")
	assert.Equal(t, "/v1/span_annotations", order[len(order)-1])
}

func TestApp_GeneratorRequiresAPIKey(t *testing.T) {
	cfg := testConfig(t, "")
	cfg.History.Enabled = false
	cfg.LLM.APIKey = ""

	a, err := New(context.Background(), cfg, Options{Logger: log.Discard()})
	require.NoError(t, err, "building the app must not need an API key")
	defer a.Close(context.Background())

	_, err = a.Generator()
	var cfgErr *pgerrors.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "llm.api_key", cfgErr.Key)

	// The error is sticky.
	_, again := a.Generator()
	assert.Equal(t, err, again)
}

func TestApp_GeneratorIsShared(t *testing.T) {
	cfg := testConfig(t, "")
	cfg.History.Enabled = false

	a, err := New(context.Background(), cfg, Options{Logger: log.Discard(), Provider: stubProvider{}})
	require.NoError(t, err)
	defer a.Close(context.Background())

	g1, err := a.Generator()
	require.NoError(t, err)
	g2, err := a.Generator()
	require.NoError(t, err)
	assert.Same(t, g1, g2)
	assert.Equal(t, "gpt-4o", g1.Model())
}
