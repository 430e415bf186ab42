package identity

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Registry maps backend names to client factories.
// Backends register themselves from init() functions.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]ClientFactory
}

// DefaultRegistry is the global backend registry.
var DefaultRegistry = NewRegistry()

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]ClientFactory),
	}
}

// Register adds a backend factory.
func (r *Registry) Register(name string, f ClientFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("backend already registered: %s", name)
	}
	r.factories[name] = f
	return nil
}

// NewClient validates cfg and builds a client for cfg.Backend.
func (r *Registry) NewClient(ctx context.Context, cfg Config) (AuthClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	f, exists := r.factories[cfg.Backend]
	r.mu.RUnlock()
	if !exists {
		return nil, ErrNotFound("backend", cfg.Backend)
	}

	client, err := f.Create(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", cfg.Backend, err)
	}
	return client, nil
}

// List returns the registered backend names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Unregister removes a backend. This is mainly useful for testing.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.factories, name)
}

// Register adds a backend factory to the default registry.
func Register(name string, f ClientFactory) error {
	return DefaultRegistry.Register(name, f)
}

// NewClient builds a client from the default registry.
func NewClient(ctx context.Context, cfg Config) (AuthClient, error) {
	return DefaultRegistry.NewClient(ctx, cfg)
}
