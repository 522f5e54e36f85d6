// Package flows implements the prompt flows: one typed request/response
// contract per capability, backed by a single model call each.
package flows

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/spigell/talenthub/internal/ai"
	"github.com/spigell/talenthub/internal/logger"
	"github.com/spigell/talenthub/internal/prompt"
	"github.com/spigell/talenthub/internal/schema"
)

const (
	FlowRateResume = "rate-resume"
	FlowSkillGap   = "skill-gap"
	FlowAppraisal  = "appraisal-feedback"
	FlowWellbeing  = "wellbeing"
)

// Names lists every flow in a stable order.
var Names = []string{FlowRateResume, FlowSkillGap, FlowAppraisal, FlowWellbeing}

const systemInstruction = "Answer only with a JSON object that matches the requested response schema. Do not add commentary outside the JSON."

//go:embed prompts/*.md
var promptFS embed.FS

func mustTemplate(name, file string) *prompt.Template {
	src, err := promptFS.ReadFile("prompts/" + file)
	if err != nil {
		panic(fmt.Sprintf("flows: missing prompt %s: %v", file, err))
	}
	return prompt.MustParse(name, string(src))
}

// definition binds a flow's prompt template to its declared output schema.
type definition struct {
	name     string
	template *prompt.Template
	output   *ai.Schema
}

// Service executes the flows against one generator. It holds no per-call
// state and is safe for concurrent use.
type Service struct {
	generator ai.Generator
	logger    *zap.Logger
	newRunID  func() string
	now       func() time.Time
}

// Option customises a Service.
type Option func(*Service)

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New returns a Service calling g.
func New(g ai.Generator, opts ...Option) *Service {
	s := &Service{
		generator: g,
		newRunID:  func() string { return uuid.NewString() },
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	provider, model := "", ""
	if g != nil {
		provider, model = g.Provider(), g.Model()
	}
	s.logger = logger.WithCommonFields(s.logger, provider, model)
	return s
}

// generate renders the prompt and performs the single model call. It
// returns the parsed JSON object and the raw output.
func (s *Service) generate(ctx context.Context, def definition, values prompt.Values, log *zap.Logger) (map[string]any, string, error) {
	parts, err := def.template.Render(values)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", def.name, err)
	}

	if s.generator == nil {
		return nil, "", &ai.UpstreamError{Err: errors.New("no model generator configured")}
	}

	started := s.now()
	raw, err := s.generator.Generate(ctx, &ai.Request{
		Flow:   def.name,
		System: systemInstruction,
		Parts:  parts,
		Schema: def.output,
	})
	elapsed := s.now().Sub(started)
	if err != nil {
		var verr *schema.ValidationError
		if errors.As(err, &verr) {
			log.Warn("model input rejected", zap.Error(err))
			return nil, "", err
		}
		var up *ai.UpstreamError
		if !errors.As(err, &up) {
			up = &ai.UpstreamError{Provider: s.generator.Provider(), Model: s.generator.Model(), Err: err}
		}
		log.Error("model call failed", zap.Duration("elapsed", elapsed), zap.Error(up))
		return nil, "", up
	}
	log.Debug("model call finished", zap.Duration("elapsed", elapsed))

	data, err := ai.ParseObject(raw)
	if err != nil {
		return nil, raw, &ai.SchemaViolationError{
			Flow:       def.name,
			Violations: []schema.Violation{{Rule: schema.RuleFormat, Message: "response is not a JSON object"}},
			Raw:        raw,
			Err:        err,
		}
	}
	return data, raw, nil
}

// decodeOutput decodes and validates model output into T. Any violation is
// reported as a SchemaViolationError; advisories are returned separately.
func decodeOutput[T any](flow, raw string, data map[string]any, check func(*schema.Checker, *T)) (*T, []schema.Violation, error) {
	var out T
	c, err := schema.Decode(data, &out)
	if err != nil {
		return nil, nil, err
	}
	check(c, &out)

	if verr := c.Err(); verr != nil {
		var v *schema.ValidationError
		errors.As(verr, &v)
		return nil, nil, &ai.SchemaViolationError{Flow: flow, Violations: v.Violations, Raw: raw, Err: verr}
	}
	return &out, c.Advisories(), nil
}

func (s *Service) runLogger(flow string) *zap.Logger {
	return logger.WithFields(s.logger, logger.FlowFields(flow, s.newRunID())...)
}

// decodeRequest decodes an untyped payload into a typed request and runs its
// checks.
func decodeRequest[T any](payload map[string]any, check func(*schema.Checker, *T), hooks ...mapstructure.DecodeHookFunc) (*T, error) {
	var req T
	c, err := schema.Decode(payload, &req, hooks...)
	if err != nil {
		return nil, err
	}
	check(c, &req)
	if err := c.Err(); err != nil {
		return nil, err
	}
	return &req, nil
}

func validate[T any](req *T, check func(*schema.Checker, *T)) error {
	if req == nil {
		return &schema.ValidationError{Violations: []schema.Violation{{Rule: schema.RuleRequired, Message: "request is required"}}}
	}
	c := schema.NewChecker()
	check(c, req)
	return c.Err()
}
