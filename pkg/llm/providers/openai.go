// Package providers contains concrete implementations of LLM providers.
package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	pgerrors "github.com/tombee/postgen/pkg/errors"
	"github.com/tombee/postgen/pkg/llm"
)

// OpenAIConfig configures the OpenAI provider.
type OpenAIConfig struct {
	// APIKey authenticates against the API. Required.
	APIKey string

	// BaseURL overrides the API base URL (Azure, proxies, local gateways).
	BaseURL string

	// HTTPClient is used for all requests. Nil uses the SDK default.
	HTTPClient *http.Client
}

// OpenAIProvider implements llm.Provider over the OpenAI chat completions API.
type OpenAIProvider struct {
	client openai.Client
}

// NewOpenAIProvider creates an OpenAI provider.
// The SDK's built-in retries are disabled: a failed completion is reported once.
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, &pgerrors.ConfigError{Key: "llm.api_key", Reason: "OpenAI API key is not set"}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &OpenAIProvider{client: openai.NewClient(opts...)}, nil
}

// Name returns the provider identifier.
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Complete sends one chat completion request and returns the first choice.
func (p *OpenAIProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	params := openai.ChatCompletionNewParams{
		Model:    req.Model,
		Messages: toOpenAIMessages(req.Messages),
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	if req.MaxTokens != nil {
		params.MaxTokens = openai.Int(int64(*req.MaxTokens))
	}

	res, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, wrapOpenAIError(err)
	}

	if len(res.Choices) == 0 {
		return nil, &pgerrors.ProviderError{
			Provider:  p.Name(),
			Message:   "response contained no choices",
			RequestID: res.ID,
		}
	}

	choice := res.Choices[0]
	return &llm.CompletionResponse{
		Content:      choice.Message.Content,
		FinishReason: llm.FinishReason(choice.FinishReason),
		Usage: llm.TokenUsage{
			InputTokens:  int(res.Usage.PromptTokens),
			OutputTokens: int(res.Usage.CompletionTokens),
			TotalTokens:  int(res.Usage.TotalTokens),
		},
		Model:     res.Model,
		RequestID: res.ID,
		Created:   time.Unix(res.Created, 0),
	}, nil
}

func toOpenAIMessages(msgs []llm.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case llm.MessageRoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case llm.MessageRoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

func wrapOpenAIError(err error) error {
	provErr := &pgerrors.ProviderError{
		Provider: "openai",
		Message:  err.Error(),
		Cause:    err,
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		provErr.StatusCode = apiErr.StatusCode
		if apiErr.Response != nil {
			provErr.RequestID = apiErr.Response.Header.Get("x-request-id")
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		provErr.Message = fmt.Sprintf("request timed out: %v", err)
	}

	return provErr
}

var _ llm.Provider = (*OpenAIProvider)(nil)
