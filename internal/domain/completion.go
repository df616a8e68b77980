package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/davidbz/chatrelay/internal/observability"
)

// CompletionInput is one message to complete together with its history.
type CompletionInput struct {
	Message           string
	Context           ContinuationContext
	SystemInstruction string
	ConversationID    string
	ParentMessageID   string
}

// CompletionClient turns a message and its continuation context into a
// provider request and relays the provider stream as fragments.
type CompletionClient struct {
	registry ProviderRegistry
	model    string
	maxTurns int
}

// NewCompletionClient creates a completion client for model. maxTurns caps the
// number of prior turns sent upstream; zero sends all of them.
func NewCompletionClient(registry ProviderRegistry, model string, maxTurns int) *CompletionClient {
	return &CompletionClient{
		registry: registry,
		model:    model,
		maxTurns: maxTurns,
	}
}

// Model returns the active completion model.
func (c *CompletionClient) Model() string {
	return c.model
}

// Complete streams a completion for in. onFragment is called synchronously for
// every increment in arrival order; each fragment carries the full text so far.
// After an error no further fragments are delivered.
func (c *CompletionClient) Complete(
	ctx context.Context,
	in *CompletionInput,
	onFragment func(Fragment) error,
) (*CompletionResult, error) {
	if in == nil {
		return nil, errors.New("completion input cannot be nil")
	}

	if onFragment == nil {
		return nil, errors.New("fragment callback cannot be nil")
	}

	provider, err := c.registry.GetByModel(ctx, c.model)
	if err != nil {
		return nil, &UpstreamError{
			Code:    CodeUpstreamError,
			Message: fmt.Sprintf("no completion provider for model %s", c.model),
			Err:     err,
		}
	}

	ctx = observability.WithProvider(ctx, provider.Name())
	logger := observability.FromContext(ctx)

	// Cancelling on return aborts the provider call when delivery stops early.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	chunks, err := provider.Stream(ctx, c.buildRequest(in))
	if err != nil {
		logger.Error("provider stream failed to start", observability.Error(err))
		return nil, NewUpstreamError(err)
	}

	conversationID := in.ConversationID
	if conversationID == "" {
		conversationID = uuid.New().String()
	}

	result := &CompletionResult{
		MessageID:      uuid.New().String(),
		ConversationID: conversationID,
		Model:          c.model,
	}

	fragment := Fragment{
		Role:            RoleAssistant,
		ID:              result.MessageID,
		ParentMessageID: in.ParentMessageID,
		ConversationID:  conversationID,
	}

	var text strings.Builder
	for {
		select {
		case <-ctx.Done():
			logger.Info("completion aborted", observability.Error(ctx.Err()))
			return nil, NewUpstreamError(ctx.Err())

		case chunk, ok := <-chunks:
			// A chunk that raced a cancellation is dropped.
			if ctx.Err() != nil {
				logger.Info("completion aborted", observability.Error(ctx.Err()))
				return nil, NewUpstreamError(ctx.Err())
			}

			if !ok {
				return nil, &UpstreamError{
					Code:    CodeUpstreamError,
					Message: "upstream stream ended before completion",
				}
			}

			if chunk.Error != nil {
				logger.Error("provider stream error", observability.Error(chunk.Error))
				return nil, NewUpstreamError(chunk.Error)
			}

			if chunk.Delta != "" {
				text.WriteString(chunk.Delta)
				fragment.Text = text.String()
				fragment.Delta = chunk.Delta
				if deliverErr := onFragment(fragment); deliverErr != nil {
					return nil, fmt.Errorf("fragment delivery failed: %w", deliverErr)
				}
				result.Fragments++
			}

			if chunk.Done {
				result.Text = text.String()
				result.Usage = chunk.Usage

				fragment.Text = result.Text
				fragment.Delta = ""
				fragment.Detail = &FragmentDetail{
					Model:        c.model,
					FinishReason: chunk.FinishReason,
					Usage:        chunk.Usage,
				}
				if deliverErr := onFragment(fragment); deliverErr != nil {
					return nil, fmt.Errorf("fragment delivery failed: %w", deliverErr)
				}
				result.Fragments++

				return result, nil
			}
		}
	}
}

// buildRequest lays out the system instruction, the history from the root to
// the most recent turn, and the new message.
func (c *CompletionClient) buildRequest(in *CompletionInput) *CompletionRequest {
	history := in.Context.Limit(c.maxTurns).Chronological()

	messages := make([]Message, 0, len(history)*2+2)
	if strings.TrimSpace(in.SystemInstruction) != "" {
		messages = append(messages, Message{Role: RoleSystem, Content: in.SystemInstruction})
	}

	for _, turn := range history {
		messages = append(messages,
			Message{Role: RoleUser, Content: turn.Prompt},
			Message{Role: RoleAssistant, Content: turn.Response},
		)
	}

	messages = append(messages, Message{Role: RoleUser, Content: in.Message})

	metadata := map[string]string{}
	if in.ConversationID != "" {
		metadata["conversation_id"] = in.ConversationID
	}
	if in.ParentMessageID != "" {
		metadata["parent_message_id"] = in.ParentMessageID
	}

	return &CompletionRequest{
		Model:    c.model,
		Messages: messages,
		Metadata: metadata,
	}
}
