// Package echo provides a provider that streams the latest user message back
// word by word. It implements domain.Provider without external API calls and
// gives deterministic responses for development and tests.
package echo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/davidbz/chatrelay/internal/domain"
	"github.com/davidbz/chatrelay/internal/observability"
)

const (
	providerName = "echo"
	modelName    = "echo"
)

// Option configures the echo provider.
type Option func(*Provider)

// WithChunkDelay pauses between streamed words.
func WithChunkDelay(delay time.Duration) Option {
	return func(p *Provider) {
		p.delay = delay
	}
}

// WithModels adds model names the provider answers for.
func WithModels(models ...string) Option {
	return func(p *Provider) {
		for _, model := range models {
			if model != "" {
				p.supportedModels[model] = true
			}
		}
	}
}

// Provider implements the domain.Provider interface for echo testing.
type Provider struct {
	name            string
	supportedModels map[string]bool
	delay           time.Duration
}

// NewProvider creates a new echo provider.
func NewProvider(opts ...Option) *Provider {
	p := &Provider{
		name: providerName,
		supportedModels: map[string]bool{
			modelName: true,
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Stream returns the last user message as a stream of words followed by a
// done chunk carrying word-count usage.
func (p *Provider) Stream(ctx context.Context, req *domain.CompletionRequest) (<-chan domain.StreamChunk, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}

	if !p.supportedModels[req.Model] {
		return nil, fmt.Errorf("model %s is not supported by echo provider", req.Model)
	}

	logger := observability.FromContext(ctx)
	logger.Debug("streaming echo request", observability.Int("messages", len(req.Messages)))

	words := strings.Fields(lastUserContent(req.Messages))
	usage := &domain.Usage{
		PromptTokens:     countTokens(req.Messages),
		CompletionTokens: len(words),
	}
	usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens

	chunks := make(chan domain.StreamChunk)

	go func() {
		defer close(chunks)

		for i, word := range words {
			delta := word
			if i < len(words)-1 {
				delta += " "
			}

			select {
			case <-ctx.Done():
				return
			case chunks <- domain.StreamChunk{Delta: delta}:
			}

			if p.delay > 0 {
				select {
				case <-ctx.Done():
					return
				case <-time.After(p.delay):
				}
			}
		}

		select {
		case chunks <- domain.StreamChunk{Done: true, FinishReason: "stop", Usage: usage}:
		case <-ctx.Done():
		}
	}()

	return chunks, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return p.name
}

// IsModelSupported checks if the provider supports the given model.
func (p *Provider) IsModelSupported(_ context.Context, model string) bool {
	return p.supportedModels[model]
}

// SupportedModels returns a list of all models this provider supports.
func (p *Provider) SupportedModels(_ context.Context) []string {
	models := make([]string, 0, len(p.supportedModels))
	for model := range p.supportedModels {
		models = append(models, model)
	}
	sort.Strings(models)
	return models
}

func lastUserContent(messages []domain.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == domain.RoleUser {
			return messages[i].Content
		}
	}
	return ""
}

// countTokens performs simple word-based token counting.
func countTokens(messages []domain.Message) int {
	total := 0
	for _, msg := range messages {
		total += len(strings.Fields(msg.Content))
	}
	return total
}
