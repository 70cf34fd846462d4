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

// Package mock provides test doubles for the LLM provider and the Phoenix
// server.
package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/tombee/postgen/pkg/llm"
)

// Response is a scripted completion. When PromptContains is set the
// response is only used for prompts containing it (case-insensitive).
type Response struct {
	PromptContains string
	Content        string
	Err            error
}

// LLMProvider is a scripted llm.Provider that records every request.
type LLMProvider struct {
	mu        sync.Mutex
	responses []Response
	requests  []llm.CompletionRequest
}

// NewLLMProvider returns a provider that always answers content.
func NewLLMProvider(content string) *LLMProvider {
	return &LLMProvider{responses: []Response{{Content: content}}}
}

// NewFailingLLMProvider returns a provider whose every call fails with err.
func NewFailingLLMProvider(err error) *LLMProvider {
	return &LLMProvider{responses: []Response{{Err: err}}}
}

// NewScriptedLLMProvider returns a provider that answers with the first
// matching response.
func NewScriptedLLMProvider(responses ...Response) *LLMProvider {
	return &LLMProvider{responses: responses}
}

// Name reports "openai" so spans look like real traffic.
func (m *LLMProvider) Name() string { return "openai" }

// Complete returns the first matching scripted response.
func (m *LLMProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)

	prompt := strings.ToLower(promptText(req))
	for _, r := range m.responses {
		if r.PromptContains != "" && !strings.Contains(prompt, strings.ToLower(r.PromptContains)) {
			continue
		}
		if r.Err != nil {
			return nil, r.Err
		}
		return &llm.CompletionResponse{
			Content:      r.Content,
			Model:        req.Model,
			FinishReason: llm.FinishReasonStop,
			Usage: llm.TokenUsage{
				InputTokens:  len(strings.Fields(prompt)),
				OutputTokens: len(strings.Fields(r.Content)),
				TotalTokens:  len(strings.Fields(prompt)) + len(strings.Fields(r.Content)),
			},
		}, nil
	}
	return &llm.CompletionResponse{Model: req.Model, FinishReason: llm.FinishReasonStop}, nil
}

// Requests returns a copy of the recorded requests.
func (m *LLMProvider) Requests() []llm.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]llm.CompletionRequest(nil), m.requests...)
}

// LastPrompt returns the user message of the most recent request.
func (m *LLMProvider) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return ""
	}
	return userMessage(m.requests[len(m.requests)-1])
}

func userMessage(req llm.CompletionRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == llm.MessageRoleUser {
			return req.Messages[i].Content
		}
	}
	return ""
}

// promptText joins all messages, system prompt included.
func promptText(req llm.CompletionRequest) string {
	parts := make([]string, 0, len(req.Messages))
	for _, m := range req.Messages {
		parts = append(parts, m.Content)
	}
	return strings.Join(parts, "\n")
}

var _ llm.Provider = (*LLMProvider)(nil)
