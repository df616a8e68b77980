// Package openai provides an adapter for the OpenAI API using the official SDK.
// It implements the domain.Provider interface and converts SDK stream chunks
// and API errors into domain types.
package openai

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/davidbz/chatrelay/internal/domain"
	"github.com/davidbz/chatrelay/internal/observability"
)

// Provider implements the domain.Provider interface for OpenAI
type Provider struct {
	client openai.Client
	name   string
	models modelSet
}

// NewProvider creates a new OpenAI provider. extraModels are accepted in
// addition to the built-in model list.
func NewProvider(config Config, extraModels ...string) (*Provider, error) {
	if config.APIKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		// Retries are always set explicitly; the SDK retries by default.
		option.WithMaxRetries(max(config.MaxRetries, 0)),
	}

	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	if config.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(time.Duration(config.Timeout)*time.Second))
	}

	return &Provider{
		client: openai.NewClient(opts...),
		name:   "openai",
		models: newModelSet(chatModels, extraModels),
	}, nil
}

// Stream sends a completion request and returns a stream of chunks.
func (p *Provider) Stream(ctx context.Context, req *domain.CompletionRequest) (<-chan domain.StreamChunk, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}

	logger := observability.FromContext(ctx)
	logger.Debug("calling OpenAI streaming API", observability.Int("messages", len(req.Messages)))

	// Call OpenAI SDK streaming
	stream := p.client.Chat.Completions.NewStreaming(ctx, p.toSDKParams(req))

	// Convert SDK stream to domain chunks channel
	domainChunks := make(chan domain.StreamChunk)

	go func() {
		defer close(domainChunks)
		defer stream.Close()

		var finishReason string
		var usage *domain.Usage

		// Iterate over SDK stream
		for stream.Next() {
			chunk := stream.Current()

			// The usage chunk arrives last, with no choices.
			if chunk.Usage.TotalTokens > 0 {
				usage = &domain.Usage{
					PromptTokens:     int(chunk.Usage.PromptTokens),
					CompletionTokens: int(chunk.Usage.CompletionTokens),
					TotalTokens:      int(chunk.Usage.TotalTokens),
				}
			}

			if len(chunk.Choices) == 0 {
				continue
			}

			choice := chunk.Choices[0]
			if choice.FinishReason != "" {
				finishReason = choice.FinishReason
			}

			if choice.Delta.Content == "" {
				continue
			}

			if !send(ctx, domainChunks, domain.StreamChunk{Delta: choice.Delta.Content}) {
				return
			}
		}

		// Check for stream errors
		if err := stream.Err(); err != nil && !errors.Is(err, io.EOF) {
			logger.Error("OpenAI stream failed", observability.Error(err))
			send(ctx, domainChunks, domain.StreamChunk{Error: toUpstreamError(err)})
			return
		}

		logger.Debug("OpenAI stream completed", observability.String("finish_reason", finishReason))
		send(ctx, domainChunks, domain.StreamChunk{Done: true, FinishReason: finishReason, Usage: usage})
	}()

	return domainChunks, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return p.name
}

// IsModelSupported checks if the provider supports the given model.
func (p *Provider) IsModelSupported(_ context.Context, model string) bool {
	return p.models.has(model)
}

// SupportedModels returns a list of all models this provider supports.
func (p *Provider) SupportedModels(_ context.Context) []string {
	return p.models.sorted()
}

// toSDKParams converts domain request to SDK ChatCompletionNewParams
func (p *Provider) toSDKParams(req *domain.CompletionRequest) openai.ChatCompletionNewParams {
	// Convert messages
	messages := make([]openai.ChatCompletionMessageParamUnion, len(req.Messages))
	for i, msg := range req.Messages {
		switch msg.Role {
		case domain.RoleUser:
			messages[i] = openai.UserMessage(msg.Content)
		case domain.RoleAssistant:
			messages[i] = openai.AssistantMessage(msg.Content)
		case domain.RoleSystem:
			messages[i] = openai.SystemMessage(msg.Content)
		default:
			// Fallback to user message if role is unknown
			messages[i] = openai.UserMessage(msg.Content)
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(req.Model),
		Messages: messages,
		StreamOptions: openai.ChatCompletionStreamOptionsParam{
			IncludeUsage: openai.Bool(true),
		},
	}

	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}

	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	return params
}

// send delivers chunk unless the consumer has gone away.
func send(ctx context.Context, chunks chan<- domain.StreamChunk, chunk domain.StreamChunk) bool {
	select {
	case chunks <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}

// toUpstreamError maps SDK errors to domain upstream errors.
func toUpstreamError(err error) error {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return domain.NewUpstreamError(err)
	}

	code := domain.CodeUpstreamError
	switch apiErr.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		code = domain.CodeUpstreamUnauthorized
	case http.StatusTooManyRequests:
		code = domain.CodeUpstreamRateLimited
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		code = domain.CodeUpstreamTimeout
	}

	message := apiErr.Message
	if message == "" {
		message = statusMessage(apiErr.StatusCode)
	}

	return &domain.UpstreamError{
		Code:       code,
		Message:    "[OpenAI] " + message,
		StatusCode: apiErr.StatusCode,
		Err:        err,
	}
}

func statusMessage(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return "incorrect API key provided"
	case http.StatusForbidden:
		return "server refused access, please try again later"
	case http.StatusTooManyRequests:
		return "rate limit reached, please try again later"
	case http.StatusBadGateway:
		return "bad gateway"
	case http.StatusServiceUnavailable:
		return "server is busy, please try again later"
	case http.StatusGatewayTimeout:
		return "request timed out"
	default:
		return "server error (" + http.StatusText(status) + ")"
	}
}
