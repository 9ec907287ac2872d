package provider

import (
	"fmt"
	"strings"
	"sync"
)

// Registry holds the adapters for one capability, keyed by canonical name,
// plus the alias table that maps legacy names onto them.
type Registry[T Provider] struct {
	mu        sync.RWMutex
	providers map[string]T
	aliases   map[string]string
	order     []string
}

// NewRegistry creates an empty Registry.
func NewRegistry[T Provider]() *Registry[T] {
	return &Registry[T]{
		providers: make(map[string]T),
		aliases:   make(map[string]string),
	}
}

// Normalize trims and lower-cases a provider name.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register adds p under its own name. Registering the same name twice
// replaces the adapter and keeps its original position.
func (r *Registry[T]) Register(p T) {
	name := Normalize(p.Name())
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[name]; !exists {
		r.order = append(r.order, name)
	}
	r.providers[name] = p
}

// Alias makes alias resolve to canonical.
func (r *Registry[T]) Alias(alias, canonical string) error {
	alias, canonical = Normalize(alias), Normalize(canonical)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.providers[alias]; ok {
		return fmt.Errorf("alias %q shadows a registered provider", alias)
	}
	r.aliases[alias] = canonical
	return nil
}

// Canonical normalizes name and follows its alias. Unknown names come back
// normalized with ok false.
func (r *Registry[T]) Canonical(name string) (string, bool) {
	name = Normalize(name)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if target, ok := r.aliases[name]; ok {
		name = target
	}
	_, ok := r.providers[name]
	return name, ok
}

// Get returns the adapter registered under name or one of its aliases.
func (r *Registry[T]) Get(name string) (T, bool) {
	canonical, _ := r.Canonical(name)
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[canonical]
	return p, ok
}

// Names returns canonical names in registration order.
func (r *Registry[T]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Aliases returns a copy of the alias table.
func (r *Registry[T]) Aliases() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.aliases))
	for k, v := range r.aliases {
		out[k] = v
	}
	return out
}

// Resolve canonicalizes names, drops unknown entries and duplicates while
// keeping first-seen order, and falls back to defaults when nothing is
// left. Dropped unknown names are returned for reporting.
func (r *Registry[T]) Resolve(names, defaults []string) (resolved, unknown []string) {
	resolved = r.dedupe(names, &unknown)
	if len(resolved) == 0 {
		resolved = r.dedupe(defaults, nil)
	}
	return resolved, unknown
}

func (r *Registry[T]) dedupe(names []string, unknown *[]string) []string {
	seen := make(map[string]bool, len(names))
	var out []string
	for _, n := range names {
		if Normalize(n) == "" {
			continue
		}
		canonical, ok := r.Canonical(n)
		if !ok {
			if unknown != nil {
				*unknown = append(*unknown, canonical)
			}
			continue
		}
		if seen[canonical] {
			continue
		}
		seen[canonical] = true
		out = append(out, canonical)
	}
	return out
}
