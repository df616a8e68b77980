package domain

// Message roles understood by providers.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// MessageRecord is one turn of a conversation as supplied by the caller.
// ID is the identifier a client passes back as parentMessageId to continue
// after this turn; ParentMessageID links to the turn it continued.
type MessageRecord struct {
	ID              string `json:"id"`
	Prompt          string `json:"prompt"`
	Response        string `json:"text"`
	ParentMessageID string `json:"parentMessageId,omitempty"`
	ConversationID  string `json:"conversationId,omitempty"`
}

// Turn is one (prompt, response) pair of a continuation context.
type Turn struct {
	Prompt   string
	Response string
}

// ContinuationContext is the ancestry chain ordered from the most recent turn
// back to the conversation root.
type ContinuationContext []Turn

// ChatOptions carries the continuation hints of a chat request.
type ChatOptions struct {
	ConversationID  string          `json:"conversationId,omitempty"`
	ParentMessageID string          `json:"parentMessageId,omitempty"`
	DataSources     []MessageRecord `json:"dataSources,omitempty"`
}

// ChatRequest is the inbound body of the streaming chat endpoint.
type ChatRequest struct {
	Prompt        string      `json:"prompt"`
	Options       ChatOptions `json:"options"`
	SystemMessage string      `json:"systemMessage,omitempty"`
}

// CompletionRequest represents a unified provider request.
type CompletionRequest struct {
	Model       string            `json:"model"`
	Messages    []Message         `json:"messages"`
	Temperature float64           `json:"temperature,omitempty"`
	MaxTokens   int               `json:"max_tokens,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"` // user, assistant, system
	Content string `json:"content"`
}

// StreamChunk represents a single streaming response chunk from a provider.
// A provider sends zero or more delta chunks followed by exactly one chunk
// with Done or Error set, then closes the channel.
type StreamChunk struct {
	Delta        string `json:"delta"`
	Done         bool   `json:"done"`
	FinishReason string `json:"finish_reason,omitempty"`
	Usage        *Usage `json:"usage,omitempty"`
	Error        error  `json:"error,omitempty"`
}

// Usage tracks token consumption reported by a provider.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Fragment is one incremental state of the generated message. Text always
// holds the full text accumulated so far.
type Fragment struct {
	Role            string          `json:"role"`
	ID              string          `json:"id"`
	ParentMessageID string          `json:"parentMessageId,omitempty"`
	ConversationID  string          `json:"conversationId,omitempty"`
	Text            string          `json:"text"`
	Delta           string          `json:"delta,omitempty"`
	Detail          *FragmentDetail `json:"detail,omitempty"`
}

// FragmentDetail is attached to the final fragment of a completion.
type FragmentDetail struct {
	Model        string `json:"model"`
	FinishReason string `json:"finish_reason,omitempty"`
	Usage        *Usage `json:"usage,omitempty"`
}

// CompletionResult describes a finished completion.
type CompletionResult struct {
	MessageID      string
	ConversationID string
	Text           string
	Model          string
	Usage          *Usage
	Fragments      int
}

// LedgerState is the persisted usage ledger. A zero Limit means no ceiling
// has been persisted and the configured default applies.
type LedgerState struct {
	Used  int64 `json:"numberOfUsedTokens"`
	Limit int64 `json:"maxTokenLimit,omitempty"`
}
