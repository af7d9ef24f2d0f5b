package indicator

import (
	"fmt"
	"sync"
)

// Registry manages indicator calculators
type Registry struct {
	mu          sync.RWMutex
	calculators map[string]Calculator
	order       []string // registration order, kept for deterministic iteration
}

// NewRegistry creates a new indicator registry
func NewRegistry() *Registry {
	return &Registry{
		calculators: make(map[string]Calculator),
	}
}

// Register registers a calculator with the registry
func (r *Registry) Register(calc Calculator) error {
	if calc == nil {
		return fmt.Errorf("calculator cannot be nil")
	}

	name := calc.Name()
	if name == "" {
		return fmt.Errorf("calculator name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.calculators[name]; exists {
		return fmt.Errorf("calculator with name %q already registered", name)
	}

	r.calculators[name] = calc
	r.order = append(r.order, name)
	return nil
}

// Get retrieves a calculator by name
func (r *Registry) Get(name string) (Calculator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	calc, exists := r.calculators[name]
	if !exists {
		return nil, fmt.Errorf("calculator %q not found", name)
	}

	return calc, nil
}

// List returns all registered calculator names in registration order
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Each calls fn for every calculator in registration order.
// Iteration order is fixed so that per-bar updates are deterministic.
func (r *Registry) Each(fn func(calc Calculator) error) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range r.order {
		if err := fn(r.calculators[name]); err != nil {
			return err
		}
	}
	return nil
}

// ResetAll resets every registered calculator
func (r *Registry) ResetAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, calc := range r.calculators {
		calc.Reset()
	}
}
