package server

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spigell/talenthub/internal/logger"
	"github.com/spigell/talenthub/internal/schema"
	"github.com/spigell/talenthub/internal/session"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

func (cr *credentials) check(signUp bool) error {
	c := schema.NewChecker().
		Field("email", strings.TrimSpace(cr.Email), schema.Required()).
		Field("password", cr.Password, schema.Required())
	if signUp {
		c.Field("username", strings.TrimSpace(cr.Username), schema.Required(), schema.Length(2, 50))
	}
	roles := make([]string, 0, len(session.Roles))
	for _, r := range session.Roles {
		roles = append(roles, string(r))
	}
	c.Field("role", strings.ToLower(strings.TrimSpace(cr.Role)), schema.OneOf(roles...))
	return c.Err()
}

// role is only called after check, so parsing cannot fail.
func (cr *credentials) role() session.Role {
	r, _ := session.ParseRole(cr.Role)
	return r
}

type sessionResponse struct {
	Token   string           `json:"token,omitempty"`
	Session session.Snapshot `json:"session"`
	Tools   []toolResponse   `json:"tools"`
}

type toolResponse struct {
	ID    session.Tool `json:"id"`
	Title string       `json:"title"`
}

func toolsFor(r session.Role) []toolResponse {
	tools := session.Tools(r)
	out := make([]toolResponse, 0, len(tools))
	for _, t := range tools {
		out = append(out, toolResponse{ID: t, Title: t.Title()})
	}
	return out
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	return s.authenticate(c, false, func(ctx context.Context, m *session.Manager, cr *credentials) (session.Snapshot, error) {
		return m.SignIn(ctx, strings.TrimSpace(cr.Email), cr.Password, cr.role())
	})
}

func (s *Server) handleSignUp(c *fiber.Ctx) error {
	return s.authenticate(c, true, func(ctx context.Context, m *session.Manager, cr *credentials) (session.Snapshot, error) {
		return m.SignUp(ctx, strings.TrimSpace(cr.Email), cr.Password, strings.TrimSpace(cr.Username), cr.role())
	})
}

// authenticate opens a session, runs the identity call and keeps the session
// only when it succeeds.
func (s *Server) authenticate(c *fiber.Ctx, signUp bool, call func(context.Context, *session.Manager, *credentials) (session.Snapshot, error)) error {
	var cr credentials
	if err := c.BodyParser(&cr); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := cr.check(signUp); err != nil {
		return err
	}

	tok, m := s.sessions.Create()
	snap, err := call(c.UserContext(), m, &cr)
	if err != nil {
		s.sessions.Delete(tok)
		if !errors.Is(err, session.ErrInvalidCredential) {
			s.logger.Warn("authentication failed", zap.Error(err))
		}
		return err
	}

	s.logger.Info("session opened", logger.SessionFields(snap.User.Email, string(snap.Role))...)
	return c.Status(fiber.StatusCreated).JSON(sessionResponse{Token: tok, Session: snap, Tools: toolsFor(snap.Role)})
}

func (s *Server) handleLogout(c *fiber.Ctx) error {
	m := manager(c)
	err := m.SignOut(c.UserContext())
	s.sessions.Delete(token(c))
	if err != nil {
		s.logger.Warn("identity provider sign-out failed", zap.Error(err))
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleSession(c *fiber.Ctx) error {
	snap := manager(c).Current()
	return c.JSON(sessionResponse{Session: snap, Tools: toolsFor(snap.Role)})
}

func (s *Server) handleSetRole(c *fiber.Ctx) error {
	var body struct {
		Role string `json:"role"`
	}
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(body.Role) == "" {
		return session.ErrInvalidRole
	}
	role, err := session.ParseRole(body.Role)
	if err != nil {
		return err
	}
	snap, err := manager(c).SetRole(role)
	if err != nil {
		return err
	}
	return c.JSON(sessionResponse{Session: snap, Tools: toolsFor(snap.Role)})
}

func (s *Server) handleTools(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"tools": toolsFor(manager(c).Role())})
}
