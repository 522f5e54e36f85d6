package gemini

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/genai"

	"github.com/spigell/talenthub/internal/ai"
	"github.com/spigell/talenthub/internal/document"
	"github.com/spigell/talenthub/internal/prompt"
)

type modelCall struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

type fakeModelResponse struct {
	resp *genai.GenerateContentResponse
	err  error
}

type fakeModels struct {
	mu    sync.Mutex
	calls []modelCall
	queue []fakeModelResponse
}

func (f *fakeModels) enqueue(resp *genai.GenerateContentResponse, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, fakeModelResponse{resp: resp, err: err})
}

func (f *fakeModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, modelCall{model: model, contents: contents, config: config})
	if len(f.queue) == 0 {
		return nil, errors.New("unexpected call")
	}
	res := f.queue[0]
	f.queue = f.queue[1:]
	return res.resp, res.err
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:      &genai.Content{Parts: []*genai.Part{{Text: text}}},
			FinishReason: genai.FinishReasonStop,
		}},
	}
}

func newTestGenerator(t *testing.T, models contentModels, opts Options) *Generator {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	g, err := newGenerator(models, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return g
}

func TestGeneratorSendsStructuredRequest(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(textResponse(`{"score": 72, "aiComments": "Solid backend profile"}`), nil)

	g := newTestGenerator(t, models, Options{Model: "gemini-pro"})

	req := &ai.Request{
		Flow:   "rate-resume",
		System: "Respond with JSON only.",
		Parts: []prompt.Part{
			{Text: "Job field: Web Development\n"},
			{Document: &document.Document{MediaType: document.MediaPDF, Data: []byte("%PDF-1.4")}},
		},
		Schema: ai.Object("rating", ai.Field("score", ai.Number("score", 0, 100))),
	}

	output, err := g.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(output, `"score": 72`) {
		t.Fatalf("unexpected output: %q", output)
	}

	if len(models.calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(models.calls))
	}
	call := models.calls[0]
	if call.model != "gemini-pro" {
		t.Fatalf("expected model gemini-pro, got %q", call.model)
	}
	if call.config.ResponseMIMEType != "application/json" {
		t.Fatalf("expected JSON response type, got %q", call.config.ResponseMIMEType)
	}
	if call.config.ResponseSchema == nil || call.config.ResponseSchema.Type != genai.TypeObject {
		t.Fatalf("expected object response schema, got %+v", call.config.ResponseSchema)
	}
	if got := call.config.ResponseSchema.Properties["score"]; got == nil || *got.Maximum != 100 {
		t.Fatalf("expected score schema with maximum 100, got %+v", got)
	}
	if call.config.SystemInstruction == nil || call.config.SystemInstruction.Parts[0].Text != "Respond with JSON only." {
		t.Fatalf("expected system instruction to be set")
	}

	parts := call.contents[0].Parts
	if len(parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(parts))
	}
	if parts[1].InlineData == nil || parts[1].InlineData.MIMEType != document.MediaPDF {
		t.Fatalf("expected inline PDF part, got %+v", parts[1])
	}
}

func TestGeneratorDoesNotRetryOnTemporaryError(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(nil, genai.APIError{Code: http.StatusServiceUnavailable, Status: "UNAVAILABLE", Message: "overloaded"})
	models.enqueue(textResponse(`{}`), nil)

	g := newTestGenerator(t, models, Options{})

	_, err := g.Generate(context.Background(), &ai.Request{Parts: []prompt.Part{{Text: "hi"}}})

	var up *ai.UpstreamError
	if !errors.As(err, &up) {
		t.Fatalf("expected *ai.UpstreamError, got %T (%v)", err, err)
	}
	if up.Code != http.StatusServiceUnavailable || up.Status != "UNAVAILABLE" {
		t.Fatalf("unexpected upstream details: %+v", up)
	}
	if up.Provider != Provider || up.Model != defaultModel {
		t.Fatalf("unexpected provider/model: %s/%s", up.Provider, up.Model)
	}
	if len(models.calls) != 1 {
		t.Fatalf("expected a single call, got %d", len(models.calls))
	}
}

func TestGeneratorEmptyAndBlockedResponses(t *testing.T) {
	tests := []struct {
		name   string
		resp   *genai.GenerateContentResponse
		expect string
	}{
		{
			name: "blocked prompt",
			resp: &genai.GenerateContentResponse{
				PromptFeedback: &genai.GenerateContentResponsePromptFeedback{BlockReason: genai.BlockedReasonSafety},
			},
			expect: "prompt blocked",
		},
		{
			name:   "no candidates",
			resp:   &genai.GenerateContentResponse{},
			expect: "no candidates",
		},
		{
			name: "max tokens",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				Content:      &genai.Content{Parts: []*genai.Part{{Text: "  "}}},
				FinishReason: genai.FinishReasonMaxTokens,
			}}},
			expect: "MAX_TOKENS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			models := &fakeModels{}
			models.enqueue(tt.resp, nil)
			g := newTestGenerator(t, models, Options{})

			_, err := g.Generate(context.Background(), &ai.Request{Parts: []prompt.Part{{Text: "hi"}}})
			var up *ai.UpstreamError
			if !errors.As(err, &up) {
				t.Fatalf("expected *ai.UpstreamError, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.expect) {
				t.Fatalf("expected error containing %q, got %v", tt.expect, err)
			}
		})
	}
}

func TestGeneratorSkipsThoughtParts(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []*genai.Part{
			{Text: "thinking...", Thought: true},
			{Text: `{"suggestion":`},
			{Text: ` "Stretch"}`},
		}},
	}}}, nil)

	g := newTestGenerator(t, models, Options{})

	output, err := g.Generate(context.Background(), &ai.Request{Parts: []prompt.Part{{Text: "hi"}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output != `{"suggestion": "Stretch"}` {
		t.Fatalf("unexpected output: %q", output)
	}
}

func TestGeneratorRejectsEmptyRequest(t *testing.T) {
	models := &fakeModels{}
	g := newTestGenerator(t, models, Options{})

	_, err := g.Generate(context.Background(), &ai.Request{})
	var up *ai.UpstreamError
	if !errors.As(err, &up) {
		t.Fatalf("expected *ai.UpstreamError, got %v", err)
	}
	if len(models.calls) != 0 {
		t.Fatalf("expected no model call, got %d", len(models.calls))
	}
}

func TestGeneratorLogsPreviews(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)
	models := &fakeModels{}
	models.enqueue(textResponse(`{"suggestion": "Take a short walk outside"}`), nil)

	g := newTestGenerator(t, models, Options{Logger: zap.New(core), MaxLogLength: 10})

	if _, err := g.Generate(context.Background(), &ai.Request{Flow: "wellbeing", Parts: []prompt.Part{{Text: "Mood: stressed and tired"}}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries := observed.FilterMessage("gemini generate content request").All()
	if len(entries) != 1 {
		t.Fatalf("expected one request log entry, got %d", len(entries))
	}
	ctx := entries[0].ContextMap()
	if ctx["prompt_preview"] != "Mood: stre..." {
		t.Fatalf("unexpected prompt preview %q", ctx["prompt_preview"])
	}
	if ctx["flow"] != "wellbeing" || ctx["ai_provider"] != Provider {
		t.Fatalf("unexpected log context: %v", ctx)
	}
}
