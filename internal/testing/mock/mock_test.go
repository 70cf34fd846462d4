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

package mock

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/postgen/pkg/llm"
	"github.com/tombee/postgen/pkg/phoenix"
)

func request(system, user string) llm.CompletionRequest {
	return llm.CompletionRequest{
		Model: "gpt-4o",
		Messages: []llm.Message{
			{Role: llm.MessageRoleSystem, Content: system},
			{Role: llm.MessageRoleUser, Content: user},
		},
	}
}

func TestLLMProvider_Scripted(t *testing.T) {
	p := NewScriptedLLMProvider(
		Response{PromptContains: "MUG", Content: "Great mug!"},
		Response{PromptContains: "shoes", Err: errors.New("rate limited")},
		Response{Content: "fallback"},
	)
	ctx := context.Background()

	resp, err := p.Complete(ctx, request("sys", "a blue mug"))
	require.NoError(t, err)
	assert.Equal(t, "Great mug!", resp.Content)
	assert.Equal(t, "gpt-4o", resp.Model)
	assert.Positive(t, resp.Usage.TotalTokens)

	_, err = p.Complete(ctx, request("sys", "running shoes"))
	assert.EqualError(t, err, "rate limited")

	resp, err = p.Complete(ctx, request("sys", "a lamp"))
	require.NoError(t, err)
	assert.Equal(t, "fallback", resp.Content)

	assert.Len(t, p.Requests(), 3)
	assert.Equal(t, "a lamp", p.LastPrompt())
}

func TestLLMProvider_Failing(t *testing.T) {
	p := NewFailingLLMProvider(errors.New("boom"))
	_, err := p.Complete(context.Background(), request("sys", "x"))
	assert.EqualError(t, err, "boom")
	assert.Equal(t, "openai", p.Name())
}

func TestPhoenix_RecordsAnnotations(t *testing.T) {
	px := NewPhoenix(t, http.StatusOK)
	client, err := phoenix.New(phoenix.Config{BaseURL: px.URL, APIKey: "px-key"})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, client.Ping(ctx))

	annotation := phoenix.SpanAnnotation{SpanID: "abc123abc123abcd", Name: "user feedback", AnnotatorKind: phoenix.AnnotatorHuman}
	require.NoError(t, client.PostSpanAnnotations(ctx, []phoenix.SpanAnnotation{annotation}))

	px.SetStatus(http.StatusNotFound)
	require.Error(t, client.PostSpanAnnotations(ctx, []phoenix.SpanAnnotation{annotation}))

	assert.Equal(t, 2, px.Calls())
	require.Len(t, px.Annotations(), 1)
	assert.Equal(t, "abc123abc123abcd", px.Annotations()[0].SpanID)
	assert.Equal(t, "Bearer px-key", px.Authorization())
}
