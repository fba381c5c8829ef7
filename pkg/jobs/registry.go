package jobs

import (
	"context"
	"fmt"
	"sync"
)

// Handler applies one status transition. Handlers re-read current state
// and no-op when the entity already advanced or is gone, so a job firing
// late or for a deleted row is harmless.
type Handler func(ctx context.Context, job Job) error

// Registry maps (entity kind, phase) to the handler that performs the
// transition. Registration happens at startup, before the runner starts.
type Registry struct {
	mu       sync.RWMutex
	handlers map[registryKey]Handler
}

type registryKey struct {
	kind  EntityKind
	phase Phase
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[registryKey]Handler)}
}

func (r *Registry) Register(kind EntityKind, phase Phase, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[registryKey{kind: kind, phase: phase}] = h
}

func (r *Registry) Resolve(kind EntityKind, phase Phase) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[registryKey{kind: kind, phase: phase}]
	if !ok {
		return nil, fmt.Errorf("no transition handler for %s/%s", kind, phase)
	}
	return h, nil
}
