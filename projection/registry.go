package projection

import (
	"fmt"
	"sync"
)

// Registry maps aggregate types to their projector and replay policy.
type Registry struct {
	mu         sync.RWMutex
	projectors map[string]registration
}

type registration struct {
	projector Projector
	policy    Policy
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{projectors: make(map[string]registration)}
}

// Register binds a projector and replay policy to an aggregate type.
// Registering the same type twice replaces the previous binding.
func (r *Registry) Register(aggregateType string, projector Projector, policy Policy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.projectors[aggregateType] = registration{projector: projector, policy: policy}
}

// Get returns the projector and policy for an aggregate type.
func (r *Registry) Get(aggregateType string) (Projector, Policy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.projectors[aggregateType]
	if !ok {
		return nil, PolicyStrict, fmt.Errorf("no projector registered for aggregate type %q", aggregateType)
	}
	return reg.projector, reg.policy, nil
}
