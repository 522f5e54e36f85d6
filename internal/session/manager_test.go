package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeProvider struct {
	mu       sync.Mutex
	signIn   func(email, password string) (*User, error)
	signUp   func(email, password, name string) (*User, error)
	signOut  error
	outCalls int
	// gate, when set, blocks SignIn until closed.
	gate chan struct{}
}

func (f *fakeProvider) SignIn(ctx context.Context, email, password string) (*User, error) {
	if f.gate != nil {
		<-f.gate
	}
	return f.signIn(email, password)
}

func (f *fakeProvider) SignUp(ctx context.Context, email, password, name string) (*User, error) {
	return f.signUp(email, password, name)
}

func (f *fakeProvider) SignOut(ctx context.Context, user *User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outCalls++
	return f.signOut
}

func acceptingProvider() *fakeProvider {
	return &fakeProvider{
		signIn: func(email, password string) (*User, error) {
			if password != "correct-horse" {
				return nil, fmt.Errorf("firebase: %w", ErrInvalidCredential)
			}
			return &User{ID: "u1", Email: email, IDToken: "token"}, nil
		},
		signUp: func(email, password, name string) (*User, error) {
			if len(password) < 6 {
				return nil, ErrWeakPassword
			}
			return &User{ID: "u2", Email: email, DisplayName: name}, nil
		},
	}
}

type recorder struct {
	mu     sync.Mutex
	states []State
}

func (r *recorder) listen(s Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s.State)
}

func (r *recorder) all() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.states...)
}

func equalStates(a, b []State) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSignInLifecycle(t *testing.T) {
	t.Parallel()

	m := NewManager(acceptingProvider(), WithLogger(zap.NewNop()))
	defer m.Close()

	rec := &recorder{}
	unsubscribe := m.Subscribe(rec.listen)
	defer unsubscribe()

	snap, err := m.SignIn(context.Background(), " jane@example.com ", "correct-horse", RoleRecruiter)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !snap.Authenticated() || snap.Role != RoleRecruiter || snap.User.Email != "jane@example.com" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if !m.Authenticated() || m.Role() != RoleRecruiter {
		t.Fatalf("manager does not report the signed-in state")
	}

	expect := []State{Unauthenticated, Authenticating, Authenticated}
	if got := rec.all(); !equalStates(got, expect) {
		t.Fatalf("expected transitions %v, got %v", expect, got)
	}
}

func TestSignInFailureRestoresState(t *testing.T) {
	t.Parallel()

	m := NewManager(acceptingProvider())
	rec := &recorder{}
	m.Subscribe(rec.listen)

	snap, err := m.SignIn(context.Background(), "jane@example.com", "wrong", RoleApplicant)
	if !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential, got %v", err)
	}
	if snap.State != Unauthenticated || snap.User != nil {
		t.Fatalf("expected unauthenticated snapshot, got %+v", snap)
	}
	if Describe(err) != "Invalid email or password. Please check your credentials or sign up." {
		t.Fatalf("unexpected notice: %q", Describe(err))
	}

	expect := []State{Unauthenticated, Authenticating, Unauthenticated}
	if got := rec.all(); !equalStates(got, expect) {
		t.Fatalf("expected transitions %v, got %v", expect, got)
	}
}

func TestSignUp(t *testing.T) {
	t.Parallel()

	m := NewManager(acceptingProvider())

	_, err := m.SignUp(context.Background(), "sam@example.com", "123", "sam", RoleApplicant)
	if !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}

	snap, err := m.SignUp(context.Background(), "sam@example.com", "long-enough", " sam ", RoleApplicant)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.User.DisplayName != "sam" || snap.Role != RoleApplicant {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestConcurrentSignInIsRejected(t *testing.T) {
	t.Parallel()

	provider := acceptingProvider()
	provider.gate = make(chan struct{})
	m := NewManager(provider)

	authenticating := make(chan struct{})
	var once sync.Once
	m.Subscribe(func(s Snapshot) {
		if s.State == Authenticating {
			once.Do(func() { close(authenticating) })
		}
	})

	done := make(chan error, 1)
	go func() {
		_, err := m.SignIn(context.Background(), "a@example.com", "correct-horse", RoleApplicant)
		done <- err
	}()

	<-authenticating
	if _, err := m.SignIn(context.Background(), "b@example.com", "correct-horse", RoleApplicant); !errors.Is(err, ErrSignInInProgress) {
		t.Fatalf("expected ErrSignInInProgress, got %v", err)
	}

	close(provider.gate)
	if err := <-done; err != nil {
		t.Fatalf("first sign-in failed: %v", err)
	}
	if m.Current().User.Email != "a@example.com" {
		t.Fatalf("expected first user to win")
	}
}

func TestSetRole(t *testing.T) {
	t.Parallel()

	m := NewManager(acceptingProvider())

	if _, err := m.SetRole(RoleRecruiter); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}

	if _, err := m.SignIn(context.Background(), "jane@example.com", "correct-horse", RoleApplicant); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var roles []Role
	m.Subscribe(func(s Snapshot) { roles = append(roles, s.Role) })

	if _, err := m.SetRole("admin"); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
	snap, err := m.SetRole(RoleRecruiter)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Role != RoleRecruiter {
		t.Fatalf("expected recruiter, got %s", snap.Role)
	}
	if len(roles) != 2 || roles[0] != RoleApplicant || roles[1] != RoleRecruiter {
		t.Fatalf("unexpected notifications: %v", roles)
	}
}

func TestSignOut(t *testing.T) {
	t.Parallel()

	provider := acceptingProvider()
	m := NewManager(provider)

	if err := m.SignOut(context.Background()); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}

	if _, err := m.SignIn(context.Background(), "jane@example.com", "correct-horse", RoleRecruiter); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	provider.signOut = errors.New("network down")
	if err := m.SignOut(context.Background()); err == nil {
		t.Fatalf("expected provider error to surface")
	}
	if m.Authenticated() {
		t.Fatalf("expected local session to be cleared")
	}
	if provider.outCalls != 1 {
		t.Fatalf("expected one provider sign-out, got %d", provider.outCalls)
	}
}

func TestUnsubscribeAndClose(t *testing.T) {
	t.Parallel()

	m := NewManager(acceptingProvider())
	rec := &recorder{}
	unsubscribe := m.Subscribe(rec.listen)
	unsubscribe()
	unsubscribe()

	if _, err := m.SignIn(context.Background(), "jane@example.com", "correct-horse", RoleApplicant); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := rec.all(); len(got) != 1 {
		t.Fatalf("expected only the initial snapshot, got %v", got)
	}

	m.Close()
	if _, err := m.SignIn(context.Background(), "jane@example.com", "correct-horse", RoleApplicant); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestToolsByRole(t *testing.T) {
	t.Parallel()

	applicant := Tools(RoleApplicant)
	if len(applicant) != 4 || applicant[0] != ToolResumeScreening || applicant[3] != ToolSettings {
		t.Fatalf("unexpected applicant tools: %v", applicant)
	}
	if Allows(RoleApplicant, ToolTalentSourcing) || !Allows(RoleRecruiter, ToolAppraisal) {
		t.Fatalf("unexpected role permissions")
	}
	if ToolSkillGap.Title() != "Skill Gap Analysis" {
		t.Fatalf("unexpected title %q", ToolSkillGap.Title())
	}
}

func TestParseRole(t *testing.T) {
	t.Parallel()

	tests := map[string]Role{"": RoleApplicant, "Recruiter": RoleRecruiter, " applicant ": RoleApplicant}
	for input, expect := range tests {
		got, err := ParseRole(input)
		if err != nil || got != expect {
			t.Fatalf("ParseRole(%q): expected %s, got %s (%v)", input, expect, got, err)
		}
	}
	if _, err := ParseRole("admin"); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
}

func TestDescribe(t *testing.T) {
	t.Parallel()

	if got := Describe(fmt.Errorf("wrapped: %w", ErrEmailInUse)); got != "This email is already in use. Please try logging in." {
		t.Fatalf("unexpected notice: %q", got)
	}
	if got := Describe(errors.New("boom")); got != genericFailure {
		t.Fatalf("expected generic notice, got %q", got)
	}
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	r := NewRegistry(acceptingProvider(), zap.NewNop())
	token, m := r.Create()

	if got, ok := r.Get(token); !ok || got != m {
		t.Fatalf("expected registered manager")
	}
	r.Delete(token)
	if _, ok := r.Get(token); ok {
		t.Fatalf("expected session to be removed")
	}
	if _, err := m.SignIn(context.Background(), "a@example.com", "correct-horse", RoleApplicant); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected deleted session to be closed, got %v", err)
	}

	r.Create()
	r.Close()
	if r.Len() != 0 {
		t.Fatalf("expected empty registry after close")
	}
}

func TestRegistrySweepsIdleSessions(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	advance := func(d time.Duration) {
		mu.Lock()
		now = now.Add(d)
		mu.Unlock()
	}

	r := NewRegistry(acceptingProvider(), zap.NewNop(), WithIdleTimeout(time.Hour), withClock(clock))
	idle, idleManager := r.Create()
	active, _ := r.Create()

	advance(40 * time.Minute)
	if _, ok := r.Get(active); !ok {
		t.Fatalf("expected active session")
	}
	advance(30 * time.Minute)

	if removed := r.Sweep(); removed != 1 {
		t.Fatalf("expected 1 expired session, got %d", removed)
	}
	if _, ok := r.Get(idle); ok {
		t.Fatalf("expected idle session to be removed")
	}
	if _, ok := r.Get(active); !ok {
		t.Fatalf("expected recently used session to survive")
	}
	if _, err := idleManager.SignIn(context.Background(), "a@example.com", "correct-horse", RoleApplicant); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected expired session to be closed, got %v", err)
	}
	if r.Len() != 1 {
		t.Fatalf("expected 1 session left, got %d", r.Len())
	}
}

func TestRegistryRunStopsWithContext(t *testing.T) {
	t.Parallel()

	r := NewRegistry(acceptingProvider(), zap.NewNop(), WithIdleTimeout(time.Nanosecond))
	r.Create()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx, time.Millisecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for r.Len() != 0 {
		select {
		case <-deadline:
			t.Fatalf("expected background sweep to expire the session")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected Run to return after cancel")
	}
}
