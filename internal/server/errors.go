package server

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"

	"github.com/spigell/talenthub/internal/ai"
	"github.com/spigell/talenthub/internal/schema"
	"github.com/spigell/talenthub/internal/session"
	"github.com/spigell/talenthub/internal/storage"
)

const (
	upstreamNotice = "The AI service could not produce an answer. Please try again later."
	genericNotice  = "An unexpected error occurred. Please try again."
)

type errorBody struct {
	Code       string             `json:"code"`
	Message    string             `json:"message"`
	Violations []schema.Violation `json:"violations,omitempty"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

// errorHandler renders every failure as the error envelope.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	status, body := s.classify(c, err)
	return c.Status(status).JSON(errorEnvelope{Error: body})
}

func (s *Server) classify(c *fiber.Ctx, err error) (int, errorBody) {
	log := s.logger.With(zap.String("request_id", requestID(c)), zap.String("path", c.Path()))

	var (
		verr *schema.ValidationError
		up   *ai.UpstreamError
		sv   *ai.SchemaViolationError
		fe   *fiber.Error
	)

	switch {
	case errors.As(err, &verr):
		return fiber.StatusBadRequest, errorBody{Code: "validation_failed", Message: verr.Error(), Violations: verr.Violations}
	case errors.As(err, &sv):
		log.Error("model output violated the response schema", zap.String("flow", sv.Flow), zap.Error(err))
		return fiber.StatusBadGateway, errorBody{Code: "schema_violation", Message: upstreamNotice}
	case errors.As(err, &up):
		log.Error("model call failed", zap.Error(err))
		return fiber.StatusBadGateway, errorBody{Code: "upstream_error", Message: upstreamNotice}
	case errors.Is(err, session.ErrNotAuthenticated):
		return fiber.StatusUnauthorized, errorBody{Code: "unauthenticated", Message: session.Describe(err)}
	case errors.Is(err, session.ErrInvalidCredential):
		return fiber.StatusUnauthorized, errorBody{Code: "invalid_credentials", Message: session.Describe(err)}
	case errors.Is(err, session.ErrEmailInUse):
		return fiber.StatusConflict, errorBody{Code: "email_in_use", Message: session.Describe(err)}
	case errors.Is(err, session.ErrSignInInProgress):
		return fiber.StatusConflict, errorBody{Code: "sign_in_in_progress", Message: session.Describe(err)}
	case errors.Is(err, session.ErrWeakPassword):
		return fiber.StatusBadRequest, errorBody{Code: "weak_password", Message: session.Describe(err)}
	case errors.Is(err, session.ErrInvalidRole):
		return fiber.StatusBadRequest, errorBody{Code: "invalid_role", Message: session.Describe(err)}
	case errors.Is(err, storage.ErrNotFound):
		return fiber.StatusNotFound, errorBody{Code: "document_not_found", Message: err.Error()}
	case errors.Is(err, storage.ErrInvalidRef):
		return fiber.StatusBadRequest, errorBody{Code: "invalid_document_ref", Message: err.Error()}
	case errors.As(err, &fe):
		return fe.Code, errorBody{Code: codeFor(fe.Code), Message: fe.Message}
	}

	log.Error("unhandled error", zap.Error(err))
	return fiber.StatusInternalServerError, errorBody{Code: "internal_error", Message: genericNotice}
}

// codeFor turns a status into a snake_case code, "Not Found" -> "not_found".
func codeFor(status int) string {
	return strings.ReplaceAll(strings.ToLower(utils.StatusMessage(status)), " ", "_")
}
