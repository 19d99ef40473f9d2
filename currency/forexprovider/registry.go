package forexprovider

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/thrasher-corp/omniexchange/currency/forexprovider/base"
)

var (
	// ErrProviderNotFound is returned when a provider identifier has no
	// registered implementation
	ErrProviderNotFound = errors.New("forex provider not found")

	errProviderIDEmpty = errors.New("forex provider identifier is empty")
	errProviderIsNil   = errors.New("forex provider is nil")
)

// Registry maps provider identifiers to their implementations. Build one at
// start up, register each enabled provider and hand it to NewForexProviders.
type Registry struct {
	mtx       sync.RWMutex
	providers map[string]base.Provider
}

// NewRegistry returns an empty provider registry
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]base.Provider)}
}

// Register stores p under id, replacing any previous registration
func (r *Registry) Register(id string, p base.Provider) error {
	if id == "" {
		return errProviderIDEmpty
	}
	if p == nil {
		return fmt.Errorf("%s: %w", id, errProviderIsNil)
	}
	r.mtx.Lock()
	r.providers[id] = p
	r.mtx.Unlock()
	return nil
}

// Resolve returns the provider registered under id
func (r *Registry) Resolve(id string) (base.Provider, error) {
	r.mtx.RLock()
	p, ok := r.providers[id]
	r.mtx.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrProviderNotFound, id)
	}
	return p, nil
}

// ResolveAll resolves every identifier in order and fails on the first one
// that is not registered
func (r *Registry) ResolveAll(ids []string) ([]base.Provider, error) {
	resolved := make([]base.Provider, len(ids))
	for i := range ids {
		p, err := r.Resolve(ids[i])
		if err != nil {
			return nil, err
		}
		resolved[i] = p
	}
	return resolved, nil
}

// List returns the registered identifiers sorted alphabetically
func (r *Registry) List() []string {
	r.mtx.RLock()
	ids := make([]string, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	r.mtx.RUnlock()
	sort.Strings(ids)
	return ids
}
