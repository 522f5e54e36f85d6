package ai

import (
	"fmt"
	"strings"

	"github.com/spigell/talenthub/internal/schema"
)

// UpstreamError reports that the model call itself failed: transport errors,
// non-success statuses, blocked prompts or empty output.
type UpstreamError struct {
	Provider string
	Model    string
	// Code is the HTTP status returned by the provider, when known.
	Code   int
	Status string
	Err    error
}

func (e *UpstreamError) Error() string {
	var b strings.Builder
	b.WriteString("upstream model call failed")
	if e.Provider != "" {
		fmt.Fprintf(&b, " (%s", e.Provider)
		if e.Model != "" {
			fmt.Fprintf(&b, "/%s", e.Model)
		}
		b.WriteString(")")
	}
	if e.Code != 0 {
		fmt.Fprintf(&b, ": status %d", e.Code)
		if e.Status != "" {
			fmt.Fprintf(&b, " %s", e.Status)
		}
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// SchemaViolationError reports model output that does not match the flow's
// declared response schema.
type SchemaViolationError struct {
	Flow       string
	Violations []schema.Violation
	// Raw is the unmodified model output.
	Raw string
	Err error
}

func (e *SchemaViolationError) Error() string {
	var parts []string
	for _, v := range e.Violations {
		parts = append(parts, v.String())
	}
	msg := fmt.Sprintf("%s: model output violates response schema", e.Flow)
	if len(parts) > 0 {
		msg += ": " + strings.Join(parts, "; ")
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *SchemaViolationError) Unwrap() error { return e.Err }
