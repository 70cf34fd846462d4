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
	"encoding/json"
	"fmt"
	"time"

	"github.com/tombee/postgen/pkg/llm"
	"github.com/tombee/postgen/pkg/observability"
)

// LLMSpanName is the name of the span opened around each completion.
const LLMSpanName = "ChatCompletion"

// TracedProvider wraps an LLM provider so every Complete call produces an
// OpenInference LLM span, the way Phoenix's auto-instrumentation does.
type TracedProvider struct {
	provider llm.Provider
	tracer   observability.Tracer
	metrics  *MetricsCollector // Optional metrics collector
}

// WrapProvider wraps an LLM provider with tracing instrumentation.
func WrapProvider(provider llm.Provider, tracer observability.Tracer) llm.Provider {
	return &TracedProvider{
		provider: provider,
		tracer:   tracer,
	}
}

// WrapProviderWithMetrics wraps an LLM provider with both tracing and metrics.
func WrapProviderWithMetrics(provider llm.Provider, tracer observability.Tracer, metrics *MetricsCollector) llm.Provider {
	return &TracedProvider{
		provider: provider,
		tracer:   tracer,
		metrics:  metrics,
	}
}

// Name returns the underlying provider's name.
func (t *TracedProvider) Name() string {
	return t.provider.Name()
}

// Complete creates a span for the completion request and records token usage.
func (t *TracedProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	startTime := time.Now()

	attrs := map[string]any{
		observability.AttrSpanKind:                observability.KindLLM,
		observability.AttrLLMProvider:             t.provider.Name(),
		observability.AttrLLMSystem:               t.provider.Name(),
		observability.AttrLLMModelName:            req.Model,
		observability.AttrLLMInvocationParameters: invocationParameters(req),
		observability.AttrInputValue:              messagesJSON(req.Messages),
	}
	for i, m := range req.Messages {
		prefix := fmt.Sprintf("%s.%d.", observability.AttrLLMInputMessages, i)
		attrs[prefix+observability.AttrMessageRole] = string(m.Role)
		attrs[prefix+observability.AttrMessageContent] = m.Content
	}
	for k, v := range req.Metadata {
		attrs["metadata."+k] = v
	}

	ctx, span := t.tracer.Start(ctx, LLMSpanName,
		observability.WithSpanKind(observability.SpanKindClient),
		observability.WithAttributes(attrs),
	)
	defer span.End()

	resp, err := t.provider.Complete(ctx, req)
	latency := time.Since(startTime)

	if err != nil {
		span.RecordError(err)
		if t.metrics != nil {
			t.metrics.RecordLLMRequest(ctx, t.provider.Name(), req.Model, StatusError, 0, 0, latency)
		}
		return nil, err
	}

	outPrefix := observability.AttrLLMOutputMessages + ".0."
	span.SetAttributes(map[string]any{
		observability.AttrLLMModelName:               resp.Model,
		observability.AttrOutputValue:                resp.Content,
		outPrefix + observability.AttrMessageRole:    string(llm.MessageRoleAssistant),
		outPrefix + observability.AttrMessageContent: resp.Content,
		observability.AttrLLMTokenCountPrompt:        resp.Usage.InputTokens,
		observability.AttrLLMTokenCountCompletion:    resp.Usage.OutputTokens,
		observability.AttrLLMTokenCountTotal:         resp.Usage.TotalTokens,
		"llm.finish_reason":                          string(resp.FinishReason),
		"llm.request_id":                             resp.RequestID,
	})

	if t.metrics != nil {
		t.metrics.RecordLLMRequest(ctx, t.provider.Name(), resp.Model, StatusSuccess,
			resp.Usage.InputTokens, resp.Usage.OutputTokens, latency)
	}

	span.SetStatus(observability.StatusCodeOK, "")
	return resp, nil
}

func invocationParameters(req llm.CompletionRequest) string {
	params := map[string]any{"model": req.Model}
	if req.Temperature != nil {
		params["temperature"] = *req.Temperature
	}
	if req.MaxTokens != nil {
		params["max_tokens"] = *req.MaxTokens
	}
	data, _ := json.Marshal(params)
	return string(data)
}

func messagesJSON(msgs []llm.Message) string {
	type message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	out := make([]message, len(msgs))
	for i, m := range msgs {
		out[i] = message{Role: string(m.Role), Content: m.Content}
	}
	data, _ := json.Marshal(map[string]any{"messages": out})
	return string(data)
}

var _ llm.Provider = (*TracedProvider)(nil)
