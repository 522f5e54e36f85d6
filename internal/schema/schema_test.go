package schema

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

type sample struct {
	Name  string   `mapstructure:"name"`
	Score float64  `mapstructure:"score"`
	Tags  []string `mapstructure:"tags"`
	Items []item   `mapstructure:"items"`
}

type item struct {
	Subject string  `mapstructure:"subject"`
	Level   float64 `mapstructure:"level"`
}

func checkSample(c *Checker, s sample) error {
	c.Field("name", s.Name, Required(), Length(2, 10)).
		Field("score", s.Score, Required(), Range(0, 100))
	for i, it := range s.Items {
		path := "items[" + string(rune('0'+i)) + "]"
		c.Field(path+".subject", it.Subject, Required())
		c.Field(path+".level", it.Level, Required(), Range(0, 100))
	}
	c.Advise("items", s.Items, Count(2, 3))
	return c.Err()
}

func TestDecodeValidPayload(t *testing.T) {
	t.Parallel()

	payload := map[string]any{
		"name":  "Ada",
		"score": 87.5,
		"tags":  []any{"go"},
		"items": []any{
			map[string]any{"subject": "Go", "level": 80},
			map[string]any{"subject": "SQL", "level": 40},
		},
	}

	var got sample
	c, err := Decode(payload, &got)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if err := checkSample(c, got); err != nil {
		t.Fatalf("expected valid payload, got %v", err)
	}

	expect := sample{
		Name:  "Ada",
		Score: 87.5,
		Tags:  []string{"go"},
		Items: []item{{Subject: "Go", Level: 80}, {Subject: "SQL", Level: 40}},
	}
	if !reflect.DeepEqual(got, expect) {
		t.Fatalf("expected %+v, got %+v", expect, got)
	}
	if advisories := c.Advisories(); len(advisories) != 0 {
		t.Fatalf("expected no advisories, got %v", advisories)
	}
}

func TestDecodeCollectsAllViolations(t *testing.T) {
	t.Parallel()

	payload := map[string]any{
		"name":  "A",
		"score": 101,
		"items": []any{
			map[string]any{"level": -1},
		},
	}

	var got sample
	c, err := Decode(payload, &got)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	err = checkSample(c, got)

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}

	expect := []string{"name", "score", "items[0].subject", "items[0].level"}
	if fields := verr.Fields(); !reflect.DeepEqual(fields, expect) {
		t.Fatalf("expected violations for %v, got %v", expect, fields)
	}
	if v := verr.For("score"); len(v) != 1 || v[0].Rule != RuleRange {
		t.Fatalf("expected a range violation for score, got %+v", v)
	}
	if v := verr.For("items[0].subject"); len(v) != 1 || v[0].Rule != RuleRequired {
		t.Fatalf("expected a required violation for subject, got %+v", v)
	}
	if advisories := c.Advisories(); len(advisories) != 1 || advisories[0].Rule != RuleCount {
		t.Fatalf("expected one count advisory, got %+v", advisories)
	}
}

func TestDecodeTypeMismatchIsReportedOnce(t *testing.T) {
	t.Parallel()

	var got sample
	c, err := Decode(map[string]any{"name": "Ada", "score": "high"}, &got)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	err = checkSample(c, got)

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	v := verr.For("score")
	if len(v) != 1 {
		t.Fatalf("expected exactly one score violation, got %+v", verr.Violations)
	}
	if v[0].Rule != RuleType {
		t.Fatalf("expected type rule, got %s", v[0].Rule)
	}
}

func TestDecodeNullCountsAsAbsent(t *testing.T) {
	t.Parallel()

	var got sample
	c, err := Decode(map[string]any{"name": "Ada", "score": nil}, &got)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}

	var verr *ValidationError
	if !errors.As(checkSample(c, got), &verr) {
		t.Fatalf("expected validation error")
	}
	if v := verr.For("score"); len(v) != 1 || v[0].Rule != RuleRequired {
		t.Fatalf("expected required violation for null score, got %+v", verr.Violations)
	}
}

func TestDecodeRejectsNonObject(t *testing.T) {
	t.Parallel()

	var got sample
	c, err := Decode("not an object", &got)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if c.Err() == nil {
		t.Fatalf("expected violation for non-object payload")
	}
}

func TestConstraints(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value any
		cons  Constraint
		ok    bool
	}{
		{name: "range lower bound", value: 0.0, cons: Range(0, 100), ok: true},
		{name: "range upper bound", value: 100, cons: Range(0, 100), ok: true},
		{name: "range above", value: 101.0, cons: Range(0, 100), ok: false},
		{name: "range below", value: -1, cons: Range(0, 100), ok: false},
		{name: "length 49 of 50", value: strings.Repeat("a", 49), cons: Length(50, 5000), ok: false},
		{name: "length 50 of 50", value: strings.Repeat("a", 50), cons: Length(50, 5000), ok: true},
		{name: "length counts runes", value: strings.Repeat("é", 50), cons: Length(50, 50), ok: true},
		{name: "length unbounded max", value: strings.Repeat("a", 9000), cons: Length(1, 0), ok: true},
		{name: "enum hit", value: "pdf", cons: OneOf("pdf", "docx"), ok: true},
		{name: "enum miss", value: "png", cons: OneOf("pdf", "docx"), ok: false},
		{name: "bytes within", value: []byte("12345"), cons: MaxBytes(5), ok: true},
		{name: "bytes over", value: "123456", cons: MaxBytes(5), ok: false},
		{name: "equal", value: 100.0, cons: Equal(100), ok: true},
		{name: "not equal", value: 99.0, cons: Equal(100), ok: false},
		{name: "count within", value: []int{1, 2}, cons: Count(2, 3), ok: true},
		{name: "count over", value: []int{1, 2, 3, 4}, cons: Count(2, 3), ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := NewChecker().Field("field", tt.value, tt.cons).Err()
			if tt.ok && err != nil {
				t.Fatalf("expected value to pass, got %v", err)
			}
			if !tt.ok && err == nil {
				t.Fatalf("expected value to fail %s", tt.cons.Rule())
			}
		})
	}
}

func TestOptionalFieldSkipsConstraintsWhenAbsent(t *testing.T) {
	t.Parallel()

	if err := NewChecker().Field("recentActivities", "", Length(5, 10)).Err(); err != nil {
		t.Fatalf("expected absent optional field to pass, got %v", err)
	}
}

func TestValidationErrorMessage(t *testing.T) {
	t.Parallel()

	err := &ValidationError{Violations: []Violation{
		{Field: "score", Rule: RuleRange, Message: "must be between 0 and 100"},
		{Field: "aiComments", Rule: RuleRequired, Message: "is required"},
	}}
	expect := "validation failed: score must be between 0 and 100; aiComments is required"
	if err.Error() != expect {
		t.Fatalf("expected %q, got %q", expect, err.Error())
	}
}
