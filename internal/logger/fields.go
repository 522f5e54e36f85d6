package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldProvider is the structured log field key for the AI provider name.
	FieldProvider = "ai_provider"
	// FieldModel is the structured log field key for the AI model identifier.
	FieldModel = "ai_model"
	// FieldFlow names the prompt flow handling a request.
	FieldFlow = "flow"
	// FieldRunID correlates every entry produced by one flow execution.
	FieldRunID = "run_id"
	FieldRole  = "role"
	FieldUser  = "user"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts key/value pairs into zap fields. Entries with a blank
// key or value are dropped.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields attaches fields to the logger, falling back to a no-op logger
// when nil is passed.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// CommonFields returns the fields describing the model backing a call.
func CommonFields(provider, model string) []zap.Field {
	return StringFields(
		StringField{Key: FieldProvider, Value: provider},
		StringField{Key: FieldModel, Value: model},
	)
}

// WithCommonFields attaches the provider and model fields to the logger.
func WithCommonFields(logger *zap.Logger, provider, model string) *zap.Logger {
	return WithFields(logger, CommonFields(provider, model)...)
}

// FlowFields identifies a single execution of a prompt flow.
func FlowFields(flow, runID string) []zap.Field {
	return StringFields(
		StringField{Key: FieldFlow, Value: flow},
		StringField{Key: FieldRunID, Value: runID},
	)
}

// SessionFields describes the signed-in principal. The email is never logged
// verbatim, only its domain.
func SessionFields(email, role string) []zap.Field {
	domain := ""
	if at := strings.LastIndex(email, "@"); at >= 0 {
		domain = "*" + email[at:]
	}
	return StringFields(
		StringField{Key: FieldUser, Value: domain},
		StringField{Key: FieldRole, Value: role},
	)
}
