package firebase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/spigell/talenthub/internal/session"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := New(zap.NewNop(), "web-key")
	c.APIURL = srv.URL + "/v1"
	return c
}

func TestSignIn(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/accounts:signInWithPassword" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "web-key" {
			t.Errorf("expected api key in query, got %q", r.URL.RawQuery)
		}
		var body credentialsRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body.Email != "jane@example.com" || !body.ReturnSecureToken {
			t.Errorf("unexpected body: %+v", body)
		}
		_, _ = w.Write([]byte(`{"localId": "uid-1", "email": "jane@example.com", "idToken": "tok"}`))
	})

	user, err := c.SignIn(context.Background(), "jane@example.com", "secret1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID != "uid-1" || user.IDToken != "tok" {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestErrorCodes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		message string
		expect  error
	}{
		{name: "invalid credentials", message: "INVALID_LOGIN_CREDENTIALS", expect: session.ErrInvalidCredential},
		{name: "unknown email", message: "EMAIL_NOT_FOUND", expect: session.ErrInvalidCredential},
		{name: "email exists", message: "EMAIL_EXISTS", expect: session.ErrEmailInUse},
		{name: "weak password", message: "WEAK_PASSWORD : Password should be at least 6 characters", expect: session.ErrWeakPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error": {"code": 400, "message": "` + tt.message + `"}}`))
			})

			_, err := c.SignUp(context.Background(), "jane@example.com", "x", "jane")
			if !errors.Is(err, tt.expect) {
				t.Fatalf("expected %v, got %v", tt.expect, err)
			}
		})
	}
}

func TestUnexpectedError(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.SignIn(context.Background(), "jane@example.com", "x")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusServiceUnavailable {
		t.Fatalf("expected APIError with 503, got %v", err)
	}
	if session.Describe(err) != "An unexpected error occurred. Please try again." {
		t.Fatalf("unexpected notice %q", session.Describe(err))
	}
}

func TestManagerWithFirebase(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"localId": "uid-2", "email": "sam@example.com", "displayName": "sam", "idToken": "tok"}`))
	})

	m := session.NewManager(c)
	snap, err := m.SignUp(context.Background(), "sam@example.com", "long-password", "sam", session.RoleApplicant)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !snap.Authenticated() || snap.User.DisplayName != "sam" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if err := m.SignOut(context.Background()); err != nil {
		t.Fatalf("unexpected sign-out error: %v", err)
	}
}
