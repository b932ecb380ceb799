package gpa

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	once                sync.Once
	instance            *ProviderRegistry
	ErrProviderNotFound = errors.New("provider not found")

	factoriesMu sync.RWMutex
	factories   = make(map[string]ProviderFactory)
)

// =====================================
// Factory Registration
// =====================================

// RegisterProvider registers a provider factory under name. Adapters call it from init.
func RegisterProvider(name string, factory ProviderFactory) error {
	if name == "" || factory == nil {
		return NewError(ErrorTypeInvalidArgument, "provider name and factory are required")
	}
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = factory
	return nil
}

// UnregisterProvider removes a provider factory
func UnregisterProvider(name string) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	delete(factories, name)
}

// NewProvider creates a new provider instance with the named factory
func NewProvider(name string, config Config) (Provider, error) {
	factoriesMu.RLock()
	factory, exists := factories[name]
	factoriesMu.RUnlock()
	if !exists {
		return nil, NewErrorWithCause(ErrorTypeNotFound, "provider not found: "+name, ErrProviderNotFound)
	}
	return factory.Create(config)
}

// ListProviders returns all registered provider names, sorted
func ListProviders() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// =====================================
// Instance Registry
// =====================================

// ProviderRegistry holds opened providers organized by type and instance name
type ProviderRegistry struct {
	mutex     sync.RWMutex
	providers map[string]map[string]Provider // [providerType][instanceName]Provider
}

// Registry returns the singleton instance of ProviderRegistry
func Registry() *ProviderRegistry {
	once.Do(func() {
		instance = newProviderRegistry()
	})
	return instance
}

func newProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		providers: make(map[string]map[string]Provider),
	}
}

// Register adds a provider to the registry
func (r *ProviderRegistry) Register(instanceName string, provider Provider) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	providerType := provider.ProviderInfo().Name
	if r.providers[providerType] == nil {
		r.providers[providerType] = make(map[string]Provider)
	}
	r.providers[providerType][instanceName] = provider
}

// RegisterDefault registers a provider as the default instance for its type
func (r *ProviderRegistry) RegisterDefault(provider Provider) {
	r.Register("default", provider)
}

// Get retrieves a provider by type and instance name
func (r *ProviderRegistry) Get(providerType string, instanceName ...string) (Provider, error) {
	name := "default"
	if len(instanceName) > 0 {
		name = instanceName[0]
	}

	r.mutex.RLock()
	defer r.mutex.RUnlock()

	typeProviders, exists := r.providers[providerType]
	if !exists {
		return nil, fmt.Errorf("%w: provider type '%s' not found", ErrProviderNotFound, providerType)
	}

	provider, exists := typeProviders[name]
	if !exists {
		return nil, fmt.Errorf("%w: instance '%s' of type '%s' not found", ErrProviderNotFound, name, providerType)
	}

	return provider, nil
}

// MustGet retrieves a provider by type and instance name, panics if not found
func (r *ProviderRegistry) MustGet(providerType string, instanceName ...string) Provider {
	provider, err := r.Get(providerType, instanceName...)
	if err != nil {
		panic(err)
	}
	return provider
}

// ListTypes returns all registered provider types, sorted
func (r *ProviderRegistry) ListTypes() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	types := make([]string, 0, len(r.providers))
	for providerType := range r.providers {
		types = append(types, providerType)
	}
	sort.Strings(types)
	return types
}

// Remove closes and removes a provider from the registry
func (r *ProviderRegistry) Remove(providerType, instanceName string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	typeProviders, exists := r.providers[providerType]
	if !exists {
		return fmt.Errorf("%w: provider type '%s' not found", ErrProviderNotFound, providerType)
	}

	provider, exists := typeProviders[instanceName]
	if !exists {
		return fmt.Errorf("%w: instance '%s' of type '%s' not found", ErrProviderNotFound, instanceName, providerType)
	}

	if err := provider.Close(); err != nil {
		return fmt.Errorf("error closing provider: %w", err)
	}

	delete(typeProviders, instanceName)
	if len(typeProviders) == 0 {
		delete(r.providers, providerType)
	}
	return nil
}

// RemoveAll closes and removes all providers from the registry.
// Every provider is closed; the first error is returned.
func (r *ProviderRegistry) RemoveAll() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var firstErr error
	for providerType, typeProviders := range r.providers {
		for instanceName, provider := range typeProviders {
			if err := provider.Close(); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("error closing provider %s:%s: %w", providerType, instanceName, err)
			}
		}
	}

	r.providers = make(map[string]map[string]Provider)
	return firstErr
}

// HealthCheck checks the health of all registered providers
func (r *ProviderRegistry) HealthCheck() map[string]map[string]error {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	results := make(map[string]map[string]error)
	for providerType, typeProviders := range r.providers {
		results[providerType] = make(map[string]error)
		for instanceName, provider := range typeProviders {
			results[providerType][instanceName] = provider.Health()
		}
	}
	return results
}
