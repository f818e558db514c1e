package circuitbreaker

import (
	"sort"
	"sync"
	"time"

	"github.com/drift-pay/drift-gateway/pkg/logger"
)

// Registry holds one circuit breaker per name, created on first use
type Registry struct {
	enabled      bool
	threshold    int
	window       time.Duration
	resetTimeout time.Duration
	logger       logger.Logger

	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
}

// NewRegistry creates a registry whose breakers share the given settings
func NewRegistry(enabled bool, threshold int, window time.Duration, resetTimeout time.Duration, logger logger.Logger) *Registry {
	return &Registry{
		enabled:      enabled,
		threshold:    threshold,
		window:       window,
		resetTimeout: resetTimeout,
		logger:       logger,
		breakers:     make(map[string]*CircuitBreaker),
	}
}

// Get returns the breaker for name, creating it if needed
func (r *Registry) Get(name string) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	cb, ok := r.breakers[name]
	if !ok {
		cb = NewCircuitBreaker(name, r.enabled, r.threshold, r.window, r.resetTimeout, r.logger)
		r.breakers[name] = cb
	}
	return cb
}

// Reset resets the breaker for name, reporting whether it existed
func (r *Registry) Reset(name string) bool {
	r.mu.Lock()
	cb, ok := r.breakers[name]
	r.mu.Unlock()
	if ok {
		cb.Reset()
	}
	return ok
}

// States returns a snapshot of every breaker sorted by name
func (r *Registry) States() []State {
	r.mu.Lock()
	breakers := make([]*CircuitBreaker, 0, len(r.breakers))
	for _, cb := range r.breakers {
		breakers = append(breakers, cb)
	}
	r.mu.Unlock()

	states := make([]State, 0, len(breakers))
	for _, cb := range breakers {
		states = append(states, cb.GetState())
	}
	sort.Slice(states, func(i, j int) bool { return states[i].Name < states[j].Name })
	return states
}
