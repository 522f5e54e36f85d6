// Package session tracks who is signed in and in which role. A Manager is
// created explicitly at startup, owns the only subscription point for
// authentication changes and is closed at shutdown.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/spigell/talenthub/internal/logger"
)

// State is the authentication lifecycle state.
type State int

const (
	Unauthenticated State = iota
	Authenticating
	Authenticated
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// User is the identity returned by the provider.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
	// IDToken is the provider's credential; it is never serialised.
	IDToken string `json:"-"`
}

// IdentityProvider authenticates users. Errors should wrap the sentinel
// errors of this package where they apply.
type IdentityProvider interface {
	SignIn(ctx context.Context, email, password string) (*User, error)
	SignUp(ctx context.Context, email, password, displayName string) (*User, error)
	SignOut(ctx context.Context, user *User) error
}

// Snapshot is an immutable view of a session.
type Snapshot struct {
	State State `json:"state"`
	User  *User `json:"user,omitempty"`
	Role  Role  `json:"role,omitempty"`
}

func (s Snapshot) Authenticated() bool { return s.State == Authenticated }

// Listener receives every state change.
type Listener func(Snapshot)

type Manager struct {
	provider IdentityProvider
	logger   *zap.Logger

	mu        sync.RWMutex
	state     State
	user      *User
	role      Role
	listeners map[int]Listener
	nextID    int
	closed    bool
}

// Option customises a Manager.
type Option func(*Manager)

func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

func NewManager(provider IdentityProvider, opts ...Option) *Manager {
	m := &Manager{
		provider:  provider,
		role:      DefaultRole,
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logger.WithFields(m.logger, zap.String("component", "session"))
	return m
}

// Current returns the present session snapshot.
func (m *Manager) Current() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

func (m *Manager) Authenticated() bool { return m.Current().Authenticated() }

func (m *Manager) Role() Role { return m.Current().Role }

// Subscribe registers l and immediately delivers the current snapshot to it.
// The returned function removes the listener; calling it twice is safe.
func (m *Manager) Subscribe(l Listener) (unsubscribe func()) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return func() {}
	}
	id := m.nextID
	m.nextID++
	m.listeners[id] = l
	snap := m.snapshotLocked()
	m.mu.Unlock()

	l(snap)

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.listeners, id)
			m.mu.Unlock()
		})
	}
}

// SignIn authenticates with the provider and selects role.
func (m *Manager) SignIn(ctx context.Context, email, password string, role Role) (Snapshot, error) {
	return m.authenticate(ctx, role, func() (*User, error) {
		return m.provider.SignIn(ctx, strings.TrimSpace(email), password)
	})
}

// SignUp registers a new account, signs it in and selects role.
func (m *Manager) SignUp(ctx context.Context, email, password, username string, role Role) (Snapshot, error) {
	return m.authenticate(ctx, role, func() (*User, error) {
		return m.provider.SignUp(ctx, strings.TrimSpace(email), password, strings.TrimSpace(username))
	})
}

func (m *Manager) authenticate(ctx context.Context, role Role, call func() (*User, error)) (Snapshot, error) {
	if !role.Valid() {
		return m.Current(), fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	m.mu.Lock()
	switch {
	case m.closed:
		m.mu.Unlock()
		return Snapshot{}, ErrClosed
	case m.state == Authenticating:
		snap := m.snapshotLocked()
		m.mu.Unlock()
		return snap, ErrSignInInProgress
	}
	previous := m.snapshotLocked()
	m.state = Authenticating
	m.notifyLocked()

	user, err := call()
	if err == nil && user == nil {
		err = fmt.Errorf("identity provider returned no user")
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return Snapshot{}, ErrClosed
	}
	if err != nil {
		// A failed attempt leaves any earlier session untouched.
		m.state, m.user, m.role = previous.State, previous.User, previous.Role
		snap := m.notifyLocked()
		m.logger.Info("sign-in failed", zap.Error(err))
		return snap, err
	}

	m.state, m.user, m.role = Authenticated, user, role
	snap := m.notifyLocked()
	m.logger.Info("signed in", logger.SessionFields(user.Email, string(role))...)
	return snap, nil
}

// SignOut ends the session. The local session is cleared even when the
// provider call fails; that error is still returned.
func (m *Manager) SignOut(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.state != Authenticated {
		m.mu.Unlock()
		return ErrNotAuthenticated
	}
	user := m.user
	m.state, m.user, m.role = Unauthenticated, nil, DefaultRole
	m.notifyLocked()

	if err := m.provider.SignOut(ctx, user); err != nil {
		m.logger.Warn("provider sign-out failed", zap.Error(err))
		return fmt.Errorf("sign out: %w", err)
	}
	m.logger.Info("signed out")
	return nil
}

// SetRole switches the role of the signed-in user.
func (m *Manager) SetRole(role Role) (Snapshot, error) {
	if !role.Valid() {
		return m.Current(), fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return Snapshot{}, ErrClosed
	}
	if m.state != Authenticated {
		snap := m.snapshotLocked()
		m.mu.Unlock()
		return snap, ErrNotAuthenticated
	}
	if m.role == role {
		snap := m.snapshotLocked()
		m.mu.Unlock()
		return snap, nil
	}
	m.role = role
	return m.notifyLocked(), nil
}

// Close drops all listeners and rejects further operations.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.listeners = make(map[int]Listener)
}

func (m *Manager) snapshotLocked() Snapshot {
	snap := Snapshot{State: m.state}
	if m.state == Authenticated {
		u := *m.user
		snap.User = &u
		snap.Role = m.role
	}
	return snap
}

// notifyLocked releases the lock and then calls every listener with the new
// snapshot, so listeners may call back into the manager.
func (m *Manager) notifyLocked() Snapshot {
	snap := m.snapshotLocked()
	listeners := make([]Listener, 0, len(m.listeners))
	for _, l := range m.listeners {
		listeners = append(listeners, l)
	}
	m.mu.Unlock()

	for _, l := range listeners {
		l(snap)
	}
	return snap
}
