package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/chatrelay/internal/domain"
)

func chainRecords() []domain.MessageRecord {
	// Shuffled on purpose: the pool carries no order.
	return []domain.MessageRecord{
		{ID: "m3", Prompt: "p3", Response: "r3", ParentMessageID: "m2"},
		{ID: "m1", Prompt: "p1", Response: "r1"},
		{ID: "other", Prompt: "x", Response: "y", ParentMessageID: "m1"},
		{ID: "m2", Prompt: "p2", Response: "r2", ParentMessageID: "m1"},
	}
}

func TestReconstruct(t *testing.T) {
	tests := []struct {
		name     string
		records  []domain.MessageRecord
		parentID string
		expected domain.ContinuationContext
	}{
		{
			name:     "empty parent yields empty context",
			records:  chainRecords(),
			parentID: "",
			expected: domain.ContinuationContext{},
		},
		{
			name:     "absent parent yields empty context",
			records:  chainRecords(),
			parentID: "missing",
			expected: domain.ContinuationContext{},
		},
		{
			name:     "no records yields empty context",
			records:  nil,
			parentID: "m3",
			expected: domain.ContinuationContext{},
		},
		{
			name:     "single root record",
			records:  chainRecords(),
			parentID: "m1",
			expected: domain.ContinuationContext{{Prompt: "p1", Response: "r1"}},
		},
		{
			name:     "chain is ordered from most recent to root",
			records:  chainRecords(),
			parentID: "m3",
			expected: domain.ContinuationContext{
				{Prompt: "p3", Response: "r3"},
				{Prompt: "p2", Response: "r2"},
				{Prompt: "p1", Response: "r1"},
			},
		},
		{
			name: "first record in input order wins on duplicate ids",
			records: []domain.MessageRecord{
				{ID: "a", Prompt: "first", Response: "one"},
				{ID: "a", Prompt: "second", Response: "two"},
			},
			parentID: "a",
			expected: domain.ContinuationContext{{Prompt: "first", Response: "one"}},
		},
		{
			name: "walk stops at a dangling parent link",
			records: []domain.MessageRecord{
				{ID: "b", Prompt: "pb", Response: "rb", ParentMessageID: "gone"},
			},
			parentID: "b",
			expected: domain.ContinuationContext{{Prompt: "pb", Response: "rb"}},
		},
		{
			name: "cycle terminates",
			records: []domain.MessageRecord{
				{ID: "x", Prompt: "px", Response: "rx", ParentMessageID: "y"},
				{ID: "y", Prompt: "py", Response: "ry", ParentMessageID: "x"},
			},
			parentID: "x",
			expected: domain.ContinuationContext{
				{Prompt: "px", Response: "rx"},
				{Prompt: "py", Response: "ry"},
			},
		},
		{
			name: "self reference terminates",
			records: []domain.MessageRecord{
				{ID: "s", Prompt: "ps", Response: "rs", ParentMessageID: "s"},
			},
			parentID: "s",
			expected: domain.ContinuationContext{{Prompt: "ps", Response: "rs"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := domain.Reconstruct(tt.records, tt.parentID)
			require.NotNil(t, got)
			require.Equal(t, tt.expected, got)
		})
	}
}

func TestContinuationContext_Chronological(t *testing.T) {
	got := domain.Reconstruct(chainRecords(), "m3").Chronological()

	require.Equal(t, []domain.Turn{
		{Prompt: "p1", Response: "r1"},
		{Prompt: "p2", Response: "r2"},
		{Prompt: "p3", Response: "r3"},
	}, got)

	require.Empty(t, domain.ContinuationContext{}.Chronological())
}

func TestContinuationContext_Limit(t *testing.T) {
	history := domain.Reconstruct(chainRecords(), "m3")

	require.Len(t, history.Limit(0), 3)
	require.Len(t, history.Limit(-1), 3)
	require.Len(t, history.Limit(5), 3)
	require.Equal(t, domain.ContinuationContext{
		{Prompt: "p3", Response: "r3"},
		{Prompt: "p2", Response: "r2"},
	}, history.Limit(2))
}

func TestMessageRecord_UnmarshalJSON(t *testing.T) {
	t.Run("should decode flat records", func(t *testing.T) {
		var record domain.MessageRecord
		err := json.Unmarshal([]byte(`{"id":"m2","prompt":"hi","text":"hello","parentMessageId":"m1","conversationId":"c1"}`), &record)

		require.NoError(t, err)
		require.Equal(t, domain.MessageRecord{
			ID:              "m2",
			Prompt:          "hi",
			Response:        "hello",
			ParentMessageID: "m1",
			ConversationID:  "c1",
		}, record)
	})

	t.Run("should decode nested client records", func(t *testing.T) {
		raw := `{
			"text": "answer",
			"conversationOptions": {"conversationId": "c9", "parentMessageId": "m9"},
			"requestOptions": {"prompt": "question", "options": {"parentMessageId": "m8"}}
		}`

		var record domain.MessageRecord
		require.NoError(t, json.Unmarshal([]byte(raw), &record))

		require.Equal(t, "m9", record.ID)
		require.Equal(t, "question", record.Prompt)
		require.Equal(t, "answer", record.Response)
		require.Equal(t, "m8", record.ParentMessageID)
		require.Equal(t, "c9", record.ConversationID)
	})

	t.Run("should decode records inside a chat request", func(t *testing.T) {
		raw := `{
			"prompt": "next",
			"options": {
				"parentMessageId": "m2",
				"dataSources": [
					{"id": "m1", "prompt": "p1", "text": "r1"},
					{"id": "m2", "prompt": "p2", "text": "r2", "parentMessageId": "m1"}
				]
			}
		}`

		var req domain.ChatRequest
		require.NoError(t, json.Unmarshal([]byte(raw), &req))
		require.Len(t, req.Options.DataSources, 2)

		history := domain.Reconstruct(req.Options.DataSources, req.Options.ParentMessageID)
		require.Equal(t, domain.ContinuationContext{
			{Prompt: "p2", Response: "r2"},
			{Prompt: "p1", Response: "r1"},
		}, history)
	})

	t.Run("should reject non-object records", func(t *testing.T) {
		var record domain.MessageRecord
		require.Error(t, json.Unmarshal([]byte(`["m1"]`), &record))
	})
}
