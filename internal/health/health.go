// Package health runs named subsystem probes for the health endpoint.
package health

import (
	"context"
	"sync"
)

// Check probes one subsystem. A nil return means healthy.
type Check func(ctx context.Context) error

// Status is the outcome of a single probe.
type Status struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Detail  string `json:"detail,omitempty"`
}

// Registry holds named probes and runs them on demand.
type Registry struct {
	mu     sync.RWMutex
	probes []probe
}

type probe struct {
	name  string
	check Check
}

// NewRegistry creates an empty probe registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a named probe.
func (r *Registry) Register(name string, check Check) {
	r.mu.Lock()
	r.probes = append(r.probes, probe{name: name, check: check})
	r.mu.Unlock()
}

// Run executes every registered probe and reports the aggregate health
// alongside the individual outcomes.
func (r *Registry) Run(ctx context.Context) (bool, []Status) {
	r.mu.RLock()
	probes := make([]probe, len(r.probes))
	copy(probes, r.probes)
	r.mu.RUnlock()

	healthy := true
	statuses := make([]Status, len(probes))
	for i, p := range probes {
		st := Status{Name: p.name, Healthy: true}
		if err := p.check(ctx); err != nil {
			st.Healthy = false
			st.Detail = err.Error()
			healthy = false
		}
		statuses[i] = st
	}
	return healthy, statuses
}
