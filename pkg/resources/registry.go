package resources

import (
	"fmt"
	"sort"
	"sync"
)

// Registry stores resources by name.
type Registry struct {
	mu        sync.RWMutex
	resources map[string]Resource
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{resources: make(map[string]Resource)}
}

// Default returns a registry holding the leads and users resources.
func Default() *Registry {
	r := NewRegistry()
	r.MustRegister(Leads())
	r.MustRegister(Users())
	return r
}

// Register adds a resource. Duplicate names return an error.
func (r *Registry) Register(res Resource) error {
	if res.Name == "" {
		return fmt.Errorf("resources: resource name is required")
	}
	if res.Endpoint == "" {
		return fmt.Errorf("resources: resource %q has no endpoint", res.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.resources[res.Name]; exists {
		return fmt.Errorf("resources: resource %q already registered", res.Name)
	}
	r.resources[res.Name] = res
	return nil
}

// MustRegister panics on registration failure.
func (r *Registry) MustRegister(res Resource) {
	if err := r.Register(res); err != nil {
		panic(err)
	}
}

// Get retrieves a resource by name.
func (r *Registry) Get(name string) (Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res, ok := r.resources[name]
	if !ok {
		return Resource{}, fmt.Errorf("resources: resource %q not found", name)
	}
	return res, nil
}

// List returns the sorted resource names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.resources))
	for name := range r.resources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.resources[name]
	return ok
}
