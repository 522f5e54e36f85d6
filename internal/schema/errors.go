package schema

import (
	"fmt"
	"strings"
)

// Rule classifies a violated constraint.
type Rule string

const (
	RuleRequired Rule = "required"
	RuleType     Rule = "type"
	RuleRange    Rule = "range"
	RuleLength   Rule = "length"
	RuleEnum     Rule = "enum"
	RuleSize     Rule = "size"
	RuleFormat   Rule = "format"
	RuleCount    Rule = "count"
	RuleEqual    Rule = "equal"
)

// Violation is a single failed constraint on a named field.
type Violation struct {
	Field   string `json:"field"`
	Rule    Rule   `json:"rule"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	if v.Field == "" {
		return v.Message
	}
	return v.Field + " " + v.Message
}

// ValidationError carries every violation found in one validation pass.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Violations) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.String())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(parts, "; "))
}

// For returns the violations recorded against field.
func (e *ValidationError) For(field string) []Violation {
	if e == nil {
		return nil
	}
	var out []Violation
	for _, v := range e.Violations {
		if v.Field == field {
			out = append(out, v)
		}
	}
	return out
}

// Fields lists the distinct fields that failed, in first-seen order.
func (e *ValidationError) Fields() []string {
	if e == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(e.Violations))
	var out []string
	for _, v := range e.Violations {
		if _, ok := seen[v.Field]; ok {
			continue
		}
		seen[v.Field] = struct{}{}
		out = append(out, v.Field)
	}
	return out
}
