package watcher

import (
	"github.com/blackwell-systems/logport/internal/collection"
)

// Registry holds every connected watcher, keyed by id.
type Registry struct {
	watchers *collection.Collection[*Watcher]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{watchers: collection.New[*Watcher](Comparer{})}
}

// Register adds w. Ids must be unique.
func (r *Registry) Register(w *Watcher) error {
	return r.watchers.Add(w)
}

// Find returns the watcher with the given id.
func (r *Registry) Find(id string) (*Watcher, error) {
	return r.watchers.FindByID(id)
}

// Unregister removes w.
func (r *Registry) Unregister(w *Watcher) error {
	return r.watchers.Remove(w)
}

// All returns every registered watcher in connection order.
func (r *Registry) All() []*Watcher {
	return r.watchers.FindAll()
}

// Len returns the number of registered watchers.
func (r *Registry) Len() int {
	return r.watchers.Len()
}
