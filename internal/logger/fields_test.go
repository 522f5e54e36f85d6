package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestStringFields(t *testing.T) {
	fields := StringFields(
		StringField{Key: "  flow  ", Value: "  rate-resume  "},
		StringField{Key: "ignored", Value: "   "},
		StringField{Key: "   ", Value: "empty key"},
	)

	if len(fields) != 1 {
		t.Fatalf("expected 1 field, got %d", len(fields))
	}

	if fields[0].Key != "flow" || fields[0].String != "rate-resume" {
		t.Fatalf("unexpected flow field: %+v", fields[0])
	}

	if empty := StringFields(); len(empty) != 0 {
		t.Fatalf("expected empty fields, got %d", len(empty))
	}
}

func TestWithCommonFields(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)

	enriched := WithCommonFields(zap.New(core), "gemini", "gemini-2.5-flash")
	enriched.Info("model call")

	entries := observed.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	ctx := entries[0].ContextMap()
	if ctx[FieldProvider] != "gemini" {
		t.Fatalf("expected provider gemini, got %q", ctx[FieldProvider])
	}
	if ctx[FieldModel] != "gemini-2.5-flash" {
		t.Fatalf("expected model gemini-2.5-flash, got %q", ctx[FieldModel])
	}

	fallback := WithCommonFields(nil, "gemini", "x")
	if fallback == nil {
		t.Fatalf("expected fallback logger when nil provided")
	}
	fallback.Info("does not panic")
}

func TestFlowFields(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)

	WithFields(zap.New(core), FlowFields("skill-gap", "run-1")...).Debug("rendered")

	ctx := observed.All()[0].ContextMap()
	if ctx[FieldFlow] != "skill-gap" || ctx[FieldRunID] != "run-1" {
		t.Fatalf("unexpected context: %v", ctx)
	}

	if got := FlowFields("", ""); len(got) != 0 {
		t.Fatalf("expected blank values to be dropped, got %d fields", len(got))
	}
}

func TestSessionFieldsMasksEmail(t *testing.T) {
	t.Parallel()

	fields := SessionFields("jane@example.com", "recruiter")
	if len(fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(fields))
	}
	if fields[0].String != "*@example.com" {
		t.Fatalf("expected masked email, got %q", fields[0].String)
	}
	if fields[1].String != "recruiter" {
		t.Fatalf("expected role recruiter, got %q", fields[1].String)
	}

	if got := SessionFields("", ""); len(got) != 0 {
		t.Fatalf("expected no fields for anonymous session, got %d", len(got))
	}
}
