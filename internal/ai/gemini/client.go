package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/talenthub/internal/ai"
	"github.com/spigell/talenthub/internal/logger"
	"github.com/spigell/talenthub/internal/schema"
	"github.com/spigell/talenthub/internal/utils"
)

const (
	Provider = "gemini"

	defaultModel        = "gemini-2.5-flash"
	defaultMaxLogLength = 200
)

// contentModels is the subset of genai.Models used by the generator.
type contentModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Options configure a Generator.
type Options struct {
	Model       string
	Temperature *float32
	// Attachments selects how documents reach the model, see AttachmentMode.
	Attachments  AttachmentMode
	MaxLogLength int
	Logger       *zap.Logger
}

// Generator implements ai.Generator on top of the Gemini API with JSON
// structured output. Every Generate call issues exactly one request.
type Generator struct {
	models      contentModels
	model       string
	temperature *float32
	attachments AttachmentMode
	maxLogLen   int
	logger      *zap.Logger
}

var _ ai.Generator = (*Generator)(nil)

// NewGenerator creates a Generator configured for the Gemini API backend.
func NewGenerator(ctx context.Context, apiKey string, opts Options) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newGenerator(client.Models, opts)
}

func newGenerator(models contentModels, opts Options) (*Generator, error) {
	mode, err := ParseAttachmentMode(string(opts.Attachments))
	if err != nil {
		return nil, err
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}

	maxLogLen := opts.MaxLogLength
	if maxLogLen <= 0 {
		maxLogLen = defaultMaxLogLength
	}

	return &Generator{
		models:      models,
		model:       model,
		temperature: opts.Temperature,
		attachments: mode,
		maxLogLen:   maxLogLen,
		logger:      logger.WithCommonFields(opts.Logger, Provider, model),
	}, nil
}

func (g *Generator) Provider() string { return Provider }

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}

// Generate sends the request and returns the model's text output. Documents
// that cannot be read are returned as *schema.ValidationError before any
// call; every other failure is an *ai.UpstreamError. Nothing is retried.
func (g *Generator) Generate(ctx context.Context, req *ai.Request) (string, error) {
	if g == nil || g.models == nil {
		return "", g.upstream(errors.New("gemini generator is not initialized"))
	}
	if req == nil || len(req.Parts) == 0 {
		return "", g.upstream(errors.New("request has no content"))
	}

	parts, err := g.contentParts(ctx, req.Parts)
	if err != nil {
		var verr *schema.ValidationError
		if errors.As(err, &verr) {
			return "", err
		}
		return "", g.upstream(err)
	}

	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   convertSchema(req.Schema),
		Temperature:      g.temperature,
	}
	if req.Temperature != nil {
		cfg.Temperature = req.Temperature
	}
	if system := strings.TrimSpace(req.System); system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	log := g.logger.With(zap.String(logger.FieldFlow, req.Flow))
	log.Debug("gemini generate content request",
		zap.Int("parts", len(parts)),
		zap.String("prompt_preview", utils.TruncateForLog(textOf(parts), g.maxLogLen)),
	)

	resp, err := g.models.GenerateContent(ctx, g.model, []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, cfg)
	if err != nil {
		return "", g.upstream(err)
	}

	output, err := responseText(resp)
	if err != nil {
		return "", g.upstream(err)
	}

	log.Debug("gemini generate content response",
		zap.Int("response_length", utf8.RuneCountInString(output)),
		zap.String("response_preview", utils.TruncateForLog(output, g.maxLogLen)),
	)

	return output, nil
}

func (g *Generator) upstream(err error) *ai.UpstreamError {
	up := &ai.UpstreamError{Provider: Provider, Err: err}
	if g != nil {
		up.Model = g.model
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		up.Code = apiErr.Code
		up.Status = apiErr.Status
	}
	return up
}

// responseText joins the text parts of the first candidate. Blocked prompts
// and empty answers are errors.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", errors.New("gemini api returned no response")
	}
	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" {
		msg := fmt.Sprintf("prompt blocked: %s", fb.BlockReason)
		if fb.BlockReasonMessage != "" {
			msg += " (" + fb.BlockReasonMessage + ")"
		}
		return "", errors.New(msg)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return "", errors.New("gemini api returned no candidates")
	}

	candidate := resp.Candidates[0]
	var builder strings.Builder
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			builder.WriteString(part.Text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		if candidate.FinishReason != "" && candidate.FinishReason != genai.FinishReasonStop {
			return "", fmt.Errorf("gemini api returned empty response (finish reason %s)", candidate.FinishReason)
		}
		return "", errors.New("gemini api returned empty response")
	}

	return output, nil
}

func textOf(parts []*genai.Part) string {
	var b strings.Builder
	for _, p := range parts {
		if p.Text != "" {
			b.WriteString(p.Text)
			continue
		}
		if p.InlineData != nil {
			fmt.Fprintf(&b, "[%s %s]", p.InlineData.MIMEType, utils.FormatBytes(int64(len(p.InlineData.Data))))
		}
	}
	return b.String()
}
