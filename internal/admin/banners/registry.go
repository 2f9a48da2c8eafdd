package banners

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultIdleTTL is how long an unused editor session is kept.
const DefaultIdleTTL = 2 * time.Hour

// Registry maps admin session ids to editor sessions.
type Registry struct {
	mu      sync.Mutex
	editors map[string]*Editor
	ttl     time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

// RegistryOption customises a Registry.
type RegistryOption func(*Registry)

// WithIdleTTL overrides the idle eviction timeout.
func WithIdleTTL(ttl time.Duration) RegistryOption {
	return func(r *Registry) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithClock injects a clock, mainly for tests.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// WithRegistryLogger attaches a logger.
func WithRegistryLogger(logger *zap.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry constructs an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		editors: make(map[string]*Editor),
		ttl:     DefaultIdleTTL,
		now:     time.Now,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Get returns the editor for a session, creating it on first use.
func (r *Registry) Get(sessionID string) *Editor {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.editors[sessionID]; ok {
		return e
	}
	e := NewEditor(sessionID, r.now)
	r.editors[sessionID] = e
	return e
}

// Drop removes and closes the editor of a session, e.g. on logout.
func (r *Registry) Drop(sessionID string) {
	r.mu.Lock()
	e, ok := r.editors[sessionID]
	delete(r.editors, sessionID)
	r.mu.Unlock()
	if ok {
		e.Close()
	}
}

// Len returns the number of live editors.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.editors)
}

// Sweep evicts editors idle for longer than the TTL and returns how many were removed.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.ttl)
	var evicted []*Editor
	r.mu.Lock()
	for id, e := range r.editors {
		if e.LastUsed().Before(cutoff) {
			evicted = append(evicted, e)
			delete(r.editors, id)
		}
	}
	r.mu.Unlock()
	for _, e := range evicted {
		e.Close()
	}
	if len(evicted) > 0 {
		r.logger.Debug("evicted idle banner editors", zap.Int("count", len(evicted)))
	}
	return len(evicted)
}

// Run sweeps periodically until ctx is cancelled, then closes every editor.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = r.ttl / 4
		if interval <= 0 {
			interval = time.Minute
		}
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.closeAll()
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

func (r *Registry) closeAll() {
	r.mu.Lock()
	editors := r.editors
	r.editors = make(map[string]*Editor)
	r.mu.Unlock()
	for _, e := range editors {
		e.Close()
	}
}
