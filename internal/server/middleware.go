package server

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/keyauth"

	"github.com/spigell/talenthub/internal/session"
)

const (
	localToken   = "session_token"
	localManager = "session"
)

// requireAuth resolves the bearer token to an authenticated session.
func (s *Server) requireAuth() fiber.Handler {
	return keyauth.New(keyauth.Config{
		ContextKey: localToken,
		Validator: func(c *fiber.Ctx, token string) (bool, error) {
			m, ok := s.sessions.Get(token)
			if !ok || !m.Authenticated() {
				return false, session.ErrNotAuthenticated
			}
			c.Locals(localManager, m)
			return true, nil
		},
		ErrorHandler: func(*fiber.Ctx, error) error {
			return session.ErrNotAuthenticated
		},
	})
}

// requireTool rejects callers whose role navigation does not include t.
func (s *Server) requireTool(t session.Tool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		m := manager(c)
		if m == nil {
			return session.ErrNotAuthenticated
		}
		if role := m.Role(); !session.Allows(role, t) {
			return fiber.NewError(fiber.StatusForbidden, fmt.Sprintf("%s is not available to the %s role", t.Title(), role))
		}
		return c.Next()
	}
}

func manager(c *fiber.Ctx) *session.Manager {
	m, _ := c.Locals(localManager).(*session.Manager)
	return m
}

func token(c *fiber.Ctx) string {
	t, _ := c.Locals(localToken).(string)
	return t
}
