// Package registry resolves completion providers by name or by model.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/davidbz/chatrelay/internal/domain"
)

// Registry implements the ProviderRegistry interface. Providers are kept in
// registration order; a model advertised by several providers belongs to the
// one registered first.
type Registry struct {
	mu      sync.RWMutex
	ordered []domain.Provider
	byName  map[string]domain.Provider
	byModel map[string]domain.Provider
}

var _ domain.ProviderRegistry = (*Registry)(nil)

// NewRegistry creates a new provider registry.
func NewRegistry() *Registry {
	return &Registry{
		byName:  make(map[string]domain.Provider),
		byModel: make(map[string]domain.Provider),
	}
}

// Register adds a provider and indexes the models it advertises.
func (r *Registry) Register(ctx context.Context, provider domain.Provider) error {
	if provider == nil {
		return errors.New("provider cannot be nil")
	}

	name := provider.Name()
	if name == "" {
		return errors.New("provider name cannot be empty")
	}

	models := provider.SupportedModels(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("provider %s already registered", name)
	}

	r.ordered = append(r.ordered, provider)
	r.byName[name] = provider
	for _, model := range models {
		if _, claimed := r.byModel[model]; !claimed {
			r.byModel[model] = provider
		}
	}

	return nil
}

// Get retrieves a provider by name.
func (r *Registry) Get(_ context.Context, providerName string) (domain.Provider, error) {
	if providerName == "" {
		return nil, errors.New("provider name cannot be empty")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	provider, exists := r.byName[providerName]
	if !exists {
		return nil, fmt.Errorf("%w: %s", domain.ErrProviderNotFound, providerName)
	}

	return provider, nil
}

// List returns provider names in registration order.
func (r *Registry) List(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.ordered))
	for _, provider := range r.ordered {
		names = append(names, provider.Name())
	}

	return names, nil
}

// GetByModel retrieves the provider serving model. Models not advertised by
// any provider are offered to each provider in registration order.
func (r *Registry) GetByModel(ctx context.Context, model string) (domain.Provider, error) {
	if model == "" {
		return nil, errors.New("model cannot be empty")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if provider, indexed := r.byModel[model]; indexed {
		return provider, nil
	}

	for _, provider := range r.ordered {
		if provider.IsModelSupported(ctx, model) {
			return provider, nil
		}
	}

	return nil, fmt.Errorf("%w: no provider found for model: %s", domain.ErrProviderNotFound, model)
}
