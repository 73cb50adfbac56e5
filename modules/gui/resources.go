package gui

import (
	"slices"
	"sync"
)

// Resources is a keyed resource dictionary. Lookups through Find search the
// dictionary itself, then its merged dictionaries one level deep.
type Resources struct {
	mu      sync.RWMutex
	entries map[string]any
	merged  []*Resources
}

// NewResources creates an empty dictionary.
func NewResources() *Resources {
	return &Resources{entries: make(map[string]any)}
}

// Set stores value under key.
func (r *Resources) Set(key string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[key] = value
}

// Get returns the value stored directly under key.
func (r *Resources) Get(key string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.entries[key]
	return v, ok
}

// Merge appends a merged dictionary.
func (r *Resources) Merge(d *Resources) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.merged = append(r.merged, d)
}

// MergedDictionaries returns the merged dictionaries in merge order.
func (r *Resources) MergedDictionaries() []*Resources {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.merged)
}

// Find looks key up in the dictionary, then in each merged dictionary.
// Dictionaries merged into merged dictionaries are not searched.
func (r *Resources) Find(key string) (any, bool) {
	if v, ok := r.Get(key); ok {
		return v, true
	}
	for _, d := range r.MergedDictionaries() {
		if v, ok := d.Get(key); ok {
			return v, true
		}
	}
	return nil, false
}
