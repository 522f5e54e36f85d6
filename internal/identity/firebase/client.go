// Package firebase signs users in with the Firebase Identity Toolkit REST
// API using email and password.
package firebase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/talenthub/internal/session"
)

const (
	apiURL      = "https://identitytoolkit.googleapis.com/v1"
	userAgent   = "spigell/talenthub"
	contentType = "application/json"
)

type Client struct {
	apiKey     string
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
}

var _ session.IdentityProvider = (*Client)(nil)

func New(logger *zap.Logger, apiKey string) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		apiKey: apiKey,
		APIURL: apiURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger:    logger,
		UserAgent: userAgent,
	}
}

type credentialsRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	DisplayName       string `json:"displayName,omitempty"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type accountResponse struct {
	LocalID     string `json:"localId"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	IDToken     string `json:"idToken"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// APIError is a non-success answer from the identity toolkit.
type APIError struct {
	Status int
	// Code is the toolkit error code, such as EMAIL_EXISTS.
	Code string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("identity toolkit: status %d: %s", e.Status, e.Code)
}

// Unwrap maps toolkit codes onto the session sentinel errors.
func (e *APIError) Unwrap() error {
	switch e.Code {
	case "INVALID_LOGIN_CREDENTIALS", "EMAIL_NOT_FOUND", "INVALID_PASSWORD", "INVALID_EMAIL", "USER_DISABLED":
		return session.ErrInvalidCredential
	case "EMAIL_EXISTS":
		return session.ErrEmailInUse
	case "WEAK_PASSWORD":
		return session.ErrWeakPassword
	}
	return nil
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*session.User, error) {
	return c.account(ctx, "accounts:signInWithPassword", credentialsRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	})
}

func (c *Client) SignUp(ctx context.Context, email, password, displayName string) (*session.User, error) {
	return c.account(ctx, "accounts:signUp", credentialsRequest{
		Email:             email,
		Password:          password,
		DisplayName:       displayName,
		ReturnSecureToken: true,
	})
}

// SignOut drops nothing server side: ID tokens expire on their own and the
// session manager forgets the token.
func (c *Client) SignOut(ctx context.Context, user *session.User) error {
	if user != nil {
		c.logger.Debug("discarding identity token", zap.String("uid", user.ID))
	}
	return nil
}

func (c *Client) account(ctx context.Context, method string, body credentialsRequest) (*session.User, error) {
	var resp accountResponse
	if err := c.postJSON(ctx, method, body, &resp); err != nil {
		return nil, err
	}
	if resp.LocalID == "" {
		return nil, errors.New("identity toolkit: response has no user id")
	}
	return &session.User{
		ID:          resp.LocalID,
		Email:       resp.Email,
		DisplayName: resp.DisplayName,
		IDToken:     resp.IDToken,
	}, nil
}

func (c *Client) postJSON(ctx context.Context, method string, body any, target any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	endpoint := strings.TrimRight(c.APIURL, "/") + "/" + method + "?" + url.Values{"key": {c.apiKey}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("User-Agent", c.UserAgent)

	c.logger.Debug("make request", zap.String("method", method))
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("identity toolkit %s: %w", method, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		return parseError(resp.StatusCode, data)
	}

	return json.Unmarshal(data, target)
}

// parseError extracts the toolkit code. Messages look like
// "WEAK_PASSWORD : Password should be at least 6 characters".
func parseError(status int, data []byte) error {
	var e errorResponse
	if err := json.Unmarshal(data, &e); err != nil || e.Error.Message == "" {
		return &APIError{Status: status, Code: http.StatusText(status)}
	}
	code, _, _ := strings.Cut(e.Error.Message, " ")
	return &APIError{Status: status, Code: strings.TrimSpace(code)}
}
