package domain_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/davidbz/chatrelay/internal/domain"
	"github.com/davidbz/chatrelay/internal/mocks"
)

// streamOf returns a closed channel holding chunks.
func streamOf(chunks ...domain.StreamChunk) <-chan domain.StreamChunk {
	ch := make(chan domain.StreamChunk, len(chunks))
	for _, chunk := range chunks {
		ch <- chunk
	}
	close(ch)
	return ch
}

func newCompletionClient(t *testing.T, maxTurns int, chunks ...domain.StreamChunk) (*domain.CompletionClient, *mocks.MockProvider) {
	t.Helper()

	registry := mocks.NewMockProviderRegistry(t)
	provider := mocks.NewMockProvider(t)

	registry.EXPECT().GetByModel(mock.Anything, "gpt-test").Return(provider, nil)
	provider.EXPECT().Name().Return("test").Maybe()
	provider.EXPECT().Stream(mock.Anything, mock.Anything).Return(streamOf(chunks...), nil).Maybe()

	return domain.NewCompletionClient(registry, "gpt-test", maxTurns), provider
}

func collectFragments(fragments *[]domain.Fragment) func(domain.Fragment) error {
	return func(fragment domain.Fragment) error {
		*fragments = append(*fragments, fragment)
		return nil
	}
}

func TestCompletionClient_Complete_BuildsRequest(t *testing.T) {
	registry := mocks.NewMockProviderRegistry(t)
	provider := mocks.NewMockProvider(t)

	var captured *domain.CompletionRequest
	registry.EXPECT().GetByModel(mock.Anything, "gpt-test").Return(provider, nil)
	provider.EXPECT().Name().Return("test")
	provider.EXPECT().Stream(mock.Anything, mock.Anything).
		RunAndReturn(func(_ context.Context, req *domain.CompletionRequest) (<-chan domain.StreamChunk, error) {
			captured = req
			return streamOf(domain.StreamChunk{Done: true}), nil
		})

	client := domain.NewCompletionClient(registry, "gpt-test", 0)
	_, err := client.Complete(context.Background(), &domain.CompletionInput{
		Message:           "p3",
		SystemInstruction: "be terse",
		Context: domain.ContinuationContext{
			{Prompt: "p2", Response: "r2"},
			{Prompt: "p1", Response: "r1"},
		},
		ConversationID:  "c1",
		ParentMessageID: "m2",
	}, func(domain.Fragment) error { return nil })
	require.NoError(t, err)

	require.NotNil(t, captured)
	require.Equal(t, "gpt-test", captured.Model)
	require.Equal(t, []domain.Message{
		{Role: domain.RoleSystem, Content: "be terse"},
		{Role: domain.RoleUser, Content: "p1"},
		{Role: domain.RoleAssistant, Content: "r1"},
		{Role: domain.RoleUser, Content: "p2"},
		{Role: domain.RoleAssistant, Content: "r2"},
		{Role: domain.RoleUser, Content: "p3"},
	}, captured.Messages)
	require.Equal(t, map[string]string{"conversation_id": "c1", "parent_message_id": "m2"}, captured.Metadata)
}

func TestCompletionClient_Complete_LimitsTurns(t *testing.T) {
	registry := mocks.NewMockProviderRegistry(t)
	provider := mocks.NewMockProvider(t)

	var captured *domain.CompletionRequest
	registry.EXPECT().GetByModel(mock.Anything, "gpt-test").Return(provider, nil)
	provider.EXPECT().Name().Return("test")
	provider.EXPECT().Stream(mock.Anything, mock.Anything).
		RunAndReturn(func(_ context.Context, req *domain.CompletionRequest) (<-chan domain.StreamChunk, error) {
			captured = req
			return streamOf(domain.StreamChunk{Done: true}), nil
		})

	client := domain.NewCompletionClient(registry, "gpt-test", 1)
	_, err := client.Complete(context.Background(), &domain.CompletionInput{
		Message: "p3",
		Context: domain.ContinuationContext{
			{Prompt: "p2", Response: "r2"},
			{Prompt: "p1", Response: "r1"},
		},
	}, func(domain.Fragment) error { return nil })
	require.NoError(t, err)

	require.Equal(t, []domain.Message{
		{Role: domain.RoleUser, Content: "p2"},
		{Role: domain.RoleAssistant, Content: "r2"},
		{Role: domain.RoleUser, Content: "p3"},
	}, captured.Messages)
}

func TestCompletionClient_Complete_Fragments(t *testing.T) {
	usage := &domain.Usage{PromptTokens: 3, CompletionTokens: 2, TotalTokens: 5}
	client, _ := newCompletionClient(t, 0,
		domain.StreamChunk{Delta: "Hel"},
		domain.StreamChunk{Delta: "lo"},
		domain.StreamChunk{Done: true, FinishReason: "stop", Usage: usage},
	)

	var fragments []domain.Fragment
	result, err := client.Complete(context.Background(), &domain.CompletionInput{
		Message:         "hi",
		ConversationID:  "c1",
		ParentMessageID: "m1",
	}, collectFragments(&fragments))

	require.NoError(t, err)
	require.Equal(t, "Hello", result.Text)
	require.Equal(t, "c1", result.ConversationID)
	require.Equal(t, "gpt-test", result.Model)
	require.Equal(t, usage, result.Usage)
	require.Equal(t, 3, result.Fragments)

	require.Len(t, fragments, 3)
	require.Equal(t, []string{"Hel", "Hello", "Hello"},
		[]string{fragments[0].Text, fragments[1].Text, fragments[2].Text})
	require.Equal(t, "lo", fragments[1].Delta)

	for _, fragment := range fragments {
		require.Equal(t, result.MessageID, fragment.ID)
		require.Equal(t, domain.RoleAssistant, fragment.Role)
		require.Equal(t, "m1", fragment.ParentMessageID)
		require.Equal(t, "c1", fragment.ConversationID)
	}

	require.Nil(t, fragments[0].Detail)
	require.Equal(t, &domain.FragmentDetail{Model: "gpt-test", FinishReason: "stop", Usage: usage}, fragments[2].Detail)
}

func TestCompletionClient_Complete_MintsConversationID(t *testing.T) {
	client, _ := newCompletionClient(t, 0, domain.StreamChunk{Done: true})

	result, err := client.Complete(context.Background(), &domain.CompletionInput{Message: "hi"},
		func(domain.Fragment) error { return nil })

	require.NoError(t, err)
	_, parseErr := uuid.Parse(result.ConversationID)
	require.NoError(t, parseErr)
	_, parseErr = uuid.Parse(result.MessageID)
	require.NoError(t, parseErr)
}

func TestCompletionClient_Complete_Errors(t *testing.T) {
	t.Run("should fail after delivered fragments on a stream error", func(t *testing.T) {
		client, _ := newCompletionClient(t, 0,
			domain.StreamChunk{Delta: "a"},
			domain.StreamChunk{Delta: "b"},
			domain.StreamChunk{Error: &domain.UpstreamError{Code: domain.CodeUpstreamRateLimited, Message: "slow down"}},
			domain.StreamChunk{Delta: "never"},
		)

		var fragments []domain.Fragment
		result, err := client.Complete(context.Background(), &domain.CompletionInput{Message: "hi"},
			collectFragments(&fragments))

		require.Nil(t, result)
		require.Len(t, fragments, 2)

		var upstreamErr *domain.UpstreamError
		require.ErrorAs(t, err, &upstreamErr)
		require.Equal(t, domain.CodeUpstreamRateLimited, upstreamErr.Code)
		require.ErrorIs(t, err, domain.ErrUpstream)
	})

	t.Run("should fail when the stream ends without completion", func(t *testing.T) {
		client, _ := newCompletionClient(t, 0, domain.StreamChunk{Delta: "partial"})

		result, err := client.Complete(context.Background(), &domain.CompletionInput{Message: "hi"},
			func(domain.Fragment) error { return nil })

		require.Nil(t, result)
		require.ErrorIs(t, err, domain.ErrUpstream)
		require.Contains(t, err.Error(), "ended before completion")
	})

	t.Run("should fail when no provider serves the model", func(t *testing.T) {
		registry := mocks.NewMockProviderRegistry(t)
		registry.EXPECT().GetByModel(mock.Anything, "gpt-test").Return(nil, domain.ErrProviderNotFound)

		client := domain.NewCompletionClient(registry, "gpt-test", 0)
		result, err := client.Complete(context.Background(), &domain.CompletionInput{Message: "hi"},
			func(domain.Fragment) error { return nil })

		require.Nil(t, result)
		require.ErrorIs(t, err, domain.ErrUpstream)
		require.ErrorIs(t, err, domain.ErrProviderNotFound)
	})

	t.Run("should fail when the stream cannot start", func(t *testing.T) {
		registry := mocks.NewMockProviderRegistry(t)
		provider := mocks.NewMockProvider(t)
		registry.EXPECT().GetByModel(mock.Anything, "gpt-test").Return(provider, nil)
		provider.EXPECT().Name().Return("test")
		provider.EXPECT().Stream(mock.Anything, mock.Anything).Return(nil, errors.New("dial failed"))

		client := domain.NewCompletionClient(registry, "gpt-test", 0)
		_, err := client.Complete(context.Background(), &domain.CompletionInput{Message: "hi"},
			func(domain.Fragment) error { return nil })

		require.ErrorIs(t, err, domain.ErrUpstream)
		require.Contains(t, err.Error(), "dial failed")
	})

	t.Run("should stop when delivery fails", func(t *testing.T) {
		client, _ := newCompletionClient(t, 0,
			domain.StreamChunk{Delta: "a"},
			domain.StreamChunk{Delta: "b"},
			domain.StreamChunk{Done: true},
		)

		calls := 0
		_, err := client.Complete(context.Background(), &domain.CompletionInput{Message: "hi"},
			func(domain.Fragment) error {
				calls++
				return errors.New("client gone")
			})

		require.Error(t, err)
		require.Contains(t, err.Error(), "client gone")
		require.Equal(t, 1, calls)
	})

	t.Run("should abort when a finished stream races a cancellation", func(t *testing.T) {
		registry := mocks.NewMockProviderRegistry(t)
		provider := mocks.NewMockProvider(t)
		registry.EXPECT().GetByModel(mock.Anything, "gpt-test").Return(provider, nil)
		provider.EXPECT().Name().Return("test")
		provider.EXPECT().Stream(mock.Anything, mock.Anything).
			RunAndReturn(func(context.Context, *domain.CompletionRequest) (<-chan domain.StreamChunk, error) {
				return streamOf(domain.StreamChunk{Delta: "a"}, domain.StreamChunk{Done: true}), nil
			})

		client := domain.NewCompletionClient(registry, "gpt-test", 0)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		// Both the stream and the context are ready on every attempt.
		for range 50 {
			var fragments []domain.Fragment
			result, err := client.Complete(ctx, &domain.CompletionInput{Message: "hi"}, collectFragments(&fragments))

			require.Nil(t, result)
			require.ErrorIs(t, err, context.Canceled)
			var upstreamErr *domain.UpstreamError
			require.ErrorAs(t, err, &upstreamErr)
			require.Equal(t, domain.CodeCanceled, upstreamErr.Code)
			require.Empty(t, fragments)
		}
	})

	t.Run("should reject a nil input", func(t *testing.T) {
		client := domain.NewCompletionClient(mocks.NewMockProviderRegistry(t), "gpt-test", 0)

		_, err := client.Complete(context.Background(), nil, func(domain.Fragment) error { return nil })
		require.Error(t, err)
	})
}
