package strategy

import (
	"sort"
	"strings"
	"sync"

	dErrors "metafed/pkg/domain-errors"
)

// BuiltinNamespace holds the strategies shipped with metafed. Unqualified
// names resolve here.
const BuiltinNamespace = "metafed"

// DefaultName is used when no strategy is selected.
const DefaultName = FirstSeen

// Registry maps qualified strategy names ("namespace.name") to strategies.
// It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{strategies: make(map[string]Strategy)}
}

// Register adds s under namespace. Registering a second strategy with the
// same qualified name is a conflict.
func (r *Registry) Register(namespace string, s Strategy) error {
	if s == nil {
		return dErrors.New(dErrors.CodeValidation, "strategy is required")
	}
	if namespace == "" || s.Name() == "" {
		return dErrors.New(dErrors.CodeValidation, "strategy namespace and name are required")
	}
	if strings.Contains(s.Name(), ".") {
		return dErrors.Newf(dErrors.CodeValidation, "strategy name %q must not contain '.'", s.Name())
	}
	key := namespace + "." + s.Name()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.strategies[key]; exists {
		return dErrors.Newf(dErrors.CodeConflict, "strategy %s already registered", key)
	}
	r.strategies[key] = s
	return nil
}

// Resolve returns the strategy registered under name. An empty name selects
// DefaultName.
func (r *Registry) Resolve(name string) (Strategy, error) {
	key := qualify(name)

	r.mu.RLock()
	s, ok := r.strategies[key]
	r.mu.RUnlock()
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeStrategyNotFound, "merge strategy %q not found", name)
	}
	return s, nil
}

// Names returns every registered qualified name, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.strategies))
	for k := range r.strategies {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func qualify(name string) string {
	if name == "" {
		name = DefaultName
	}
	if !strings.Contains(name, ".") {
		return BuiltinNamespace + "." + name
	}
	return name
}

var defaultRegistry = NewBuiltinRegistry()

// Default returns the process-wide registry holding the built-in strategies.
func Default() *Registry {
	return defaultRegistry
}

// NewBuiltinRegistry returns a fresh registry holding only the built-ins.
func NewBuiltinRegistry() *Registry {
	r := NewRegistry()
	for _, s := range []Strategy{firstSeen(), replaceExisting(), remove(), unionRoles()} {
		if err := r.Register(BuiltinNamespace, s); err != nil {
			panic(err)
		}
	}
	return r
}
