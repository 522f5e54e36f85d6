package ai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/spigell/talenthub/internal/schema"
)

func TestExtractJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{name: "plain", input: `{"score": 80}`, expect: `{"score": 80}`},
		{name: "json fence", input: "```json\n{\"score\": 80}\n```", expect: `{"score": 80}`},
		{name: "bare fence", input: "```\n{\"score\": 80}\n```", expect: `{"score": 80}`},
		{name: "surrounding prose", input: "Here you go: {\"score\": 80} Thanks!", expect: `{"score": 80}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ExtractJSON(tt.input); got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}

func TestParseObject(t *testing.T) {
	t.Parallel()

	data, err := ParseObject("```json\n{\"suggestion\": \"Take a walk\"}\n```")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if data["suggestion"] != "Take a walk" {
		t.Fatalf("unexpected data: %v", data)
	}

	for _, raw := range []string{"", "not json", "null", "[1,2]"} {
		if _, err := ParseObject(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestObjectSchema(t *testing.T) {
	t.Parallel()

	s := Object("result",
		Field("score", Number("overall score", 0, 100)),
		Property{Name: "note", Schema: String("optional note"), Optional: true},
	)

	if s.Type != TypeObject {
		t.Fatalf("expected object type, got %s", s.Type)
	}
	if len(s.Required) != 1 || s.Required[0] != "score" {
		t.Fatalf("expected only score to be required, got %v", s.Required)
	}
	if strings.Join(s.Order, ",") != "score,note" {
		t.Fatalf("unexpected order %v", s.Order)
	}
	if *s.Properties["score"].Maximum != 100 {
		t.Fatalf("expected maximum 100, got %v", *s.Properties["score"].Maximum)
	}

	arr := ArrayOf("skills", String("skill"), 0, 7)
	if arr.MinItems != nil || arr.MaxItems == nil || *arr.MaxItems != 7 {
		t.Fatalf("unexpected array bounds: %+v", arr)
	}
}

func TestUpstreamErrorUnwrap(t *testing.T) {
	t.Parallel()

	err := error(&UpstreamError{Provider: "gemini", Model: "gemini-2.5-flash", Code: 503, Status: "UNAVAILABLE", Err: context.DeadlineExceeded})

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected wrapped deadline error")
	}
	expect := "upstream model call failed (gemini/gemini-2.5-flash): status 503 UNAVAILABLE: context deadline exceeded"
	if err.Error() != expect {
		t.Fatalf("expected %q, got %q", expect, err.Error())
	}
}

func TestSchemaViolationErrorMessage(t *testing.T) {
	t.Parallel()

	err := &SchemaViolationError{
		Flow: "rate-resume",
		Violations: []schema.Violation{
			{Field: "score", Rule: schema.RuleRange, Message: "must be between 0 and 100"},
		},
	}
	if !strings.Contains(err.Error(), "rate-resume") || !strings.Contains(err.Error(), "score must be between 0 and 100") {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}
