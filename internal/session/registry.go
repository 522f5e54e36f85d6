package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultIdleTimeout is how long an unused session is kept.
const DefaultIdleTimeout = 12 * time.Hour

type entry struct {
	manager  *Manager
	lastSeen time.Time
}

// Registry keeps one Manager per bearer token for transports that serve many
// users at once. Sessions not used for the idle timeout are closed by Sweep.
type Registry struct {
	provider    IdentityProvider
	logger      *zap.Logger
	idleTimeout time.Duration
	now         func() time.Time

	mu       sync.RWMutex
	sessions map[string]*entry
}

type RegistryOption func(*Registry)

// WithIdleTimeout sets how long an unused session survives. Zero or negative
// keeps DefaultIdleTimeout.
func WithIdleTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d > 0 {
			r.idleTimeout = d
		}
	}
}

func withClock(now func() time.Time) RegistryOption {
	return func(r *Registry) { r.now = now }
}

func NewRegistry(provider IdentityProvider, l *zap.Logger, opts ...RegistryOption) *Registry {
	r := &Registry{
		provider:    provider,
		logger:      l,
		idleTimeout: DefaultIdleTimeout,
		now:         time.Now,
		sessions:    make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	return r
}

// Create starts an unauthenticated session and returns its token.
func (r *Registry) Create() (string, *Manager) {
	token := uuid.NewString()
	m := NewManager(r.provider, WithLogger(r.logger))

	r.mu.Lock()
	r.sessions[token] = &entry{manager: m, lastSeen: r.now()}
	r.mu.Unlock()
	return token, m
}

// Get returns the session behind token and marks it as used.
func (r *Registry) Get(token string) (*Manager, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[token]
	if !ok {
		return nil, false
	}
	e.lastSeen = r.now()
	return e.manager, true
}

// Delete closes and forgets the session behind token.
func (r *Registry) Delete(token string) {
	r.mu.Lock()
	e, ok := r.sessions[token]
	delete(r.sessions, token)
	r.mu.Unlock()
	if ok {
		e.manager.Close()
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep closes and forgets sessions idle for longer than the idle timeout.
// It returns how many were removed.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.idleTimeout)

	var expired []*Manager
	r.mu.Lock()
	for token, e := range r.sessions {
		if e.lastSeen.Before(cutoff) {
			expired = append(expired, e.manager)
			delete(r.sessions, token)
		}
	}
	r.mu.Unlock()

	for _, m := range expired {
		m.Close()
	}
	if len(expired) > 0 {
		r.logger.Debug("expired idle sessions", zap.Int("count", len(expired)), zap.Int("left", r.Len()))
	}
	return len(expired)
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Close closes every session.
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*entry)
	r.mu.Unlock()
	for _, e := range sessions {
		e.manager.Close()
	}
}
