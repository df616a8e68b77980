package domain

import "context"

// Provider represents any completion provider.
type Provider interface {
	// Stream sends a completion request and returns a stream of chunks.
	Stream(ctx context.Context, req *CompletionRequest) (<-chan StreamChunk, error)

	// Name returns the provider identifier.
	Name() string

	// IsModelSupported checks if the provider supports the given model.
	IsModelSupported(ctx context.Context, model string) bool

	// SupportedModels lists the models known to the provider.
	SupportedModels(ctx context.Context) []string
}

// ProviderRegistry manages available providers.
type ProviderRegistry interface {
	// Register adds a provider to the registry.
	Register(ctx context.Context, provider Provider) error

	// Get retrieves a provider by name.
	Get(ctx context.Context, providerName string) (Provider, error)

	// GetByModel retrieves a provider supporting the model.
	GetByModel(ctx context.Context, model string) (Provider, error)

	// List returns all available providers.
	List(ctx context.Context) ([]string, error)
}

// LedgerStore persists the usage ledger. Every mutation is atomic with
// respect to concurrent callers and returns the state it produced.
type LedgerStore interface {
	// Load reads the current state.
	Load(ctx context.Context) (LedgerState, error)

	// Add increments the used units by delta.
	Add(ctx context.Context, delta int64) (LedgerState, error)

	// Reset sets the used units to zero.
	Reset(ctx context.Context) (LedgerState, error)

	// SetLimit persists a new ceiling.
	SetLimit(ctx context.Context, limit int64) (LedgerState, error)
}

// CostModel computes the ledger units charged for a successful completion.
type CostModel interface {
	// Cost returns the units to record.
	Cost(req *ChatRequest, result *CompletionResult) int64

	// Name returns the cost model identifier.
	Name() string
}

// EventPublisher publishes events for observability.
type EventPublisher interface {
	// Publish publishes an event with the given type and data.
	Publish(ctx context.Context, eventType string, data map[string]interface{})
}
