// Package prompt holds prompt templates as explicit segment trees. Templates
// are either built in code from segments or parsed from a small markup, and
// rendered into ordered text and document parts. User values are inserted
// verbatim and never re-parsed.
package prompt

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/spigell/talenthub/internal/document"
)

// Kind identifies a segment type.
type Kind int

const (
	KindLiteral Kind = iota
	KindSlot
	KindMedia
	KindConditional
)

func (k Kind) String() string {
	switch k {
	case KindLiteral:
		return "literal"
	case KindSlot:
		return "slot"
	case KindMedia:
		return "media"
	case KindConditional:
		return "conditional"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Segment is one node of a template.
type Segment struct {
	Kind Kind
	// Text is the literal text of a KindLiteral segment.
	Text string
	// Field names the value consumed by slot, media and conditional segments.
	Field string
	// Body is rendered only when Field holds a non-blank value.
	Body []Segment
}

func Literal(text string) Segment { return Segment{Kind: KindLiteral, Text: text} }

func Slot(field string) Segment { return Segment{Kind: KindSlot, Field: field} }

func Media(field string) Segment { return Segment{Kind: KindMedia, Field: field} }

func When(field string, body ...Segment) Segment {
	return Segment{Kind: KindConditional, Field: field, Body: body}
}

// Template is a named, ordered list of segments.
type Template struct {
	Name     string
	Segments []Segment
}

func New(name string, segments ...Segment) *Template {
	return &Template{Name: name, Segments: segments}
}

// Values maps field names to render values. Slots take strings (or anything
// printable), media segments take a document.Document or a slice of them.
type Values map[string]any

// Part is one rendered piece of a prompt: text or a document attachment.
// Field names the media field a document came from.
type Part struct {
	Text     string
	Document *document.Document
	Field    string
}

// ErrMissingValue is wrapped by Render when a required field has no value.
var ErrMissingValue = errors.New("missing template value")

// Fields lists every field referenced by the template, in order of first use.
func (t *Template) Fields() []string {
	seen := make(map[string]struct{})
	var out []string
	var walk func([]Segment)
	walk = func(segs []Segment) {
		for _, s := range segs {
			if s.Kind != KindLiteral {
				if _, ok := seen[s.Field]; !ok {
					seen[s.Field] = struct{}{}
					out = append(out, s.Field)
				}
			}
			walk(s.Body)
		}
	}
	walk(t.Segments)
	return out
}

// Render interprets the template against v. Adjacent text is merged into a
// single part.
func (t *Template) Render(v Values) ([]Part, error) {
	r := &renderer{values: v}
	if err := r.render(t.Segments); err != nil {
		return nil, fmt.Errorf("render %s: %w", t.Name, err)
	}
	r.flush()
	return r.parts, nil
}

type renderer struct {
	values Values
	parts  []Part
	text   strings.Builder
}

func (r *renderer) render(segs []Segment) error {
	for _, s := range segs {
		switch s.Kind {
		case KindLiteral:
			r.text.WriteString(s.Text)
		case KindSlot:
			val, ok := r.values[s.Field]
			if !ok || val == nil {
				return fmt.Errorf("%w: %s", ErrMissingValue, s.Field)
			}
			r.text.WriteString(fmt.Sprint(val))
		case KindMedia:
			if err := r.media(s.Field); err != nil {
				return err
			}
		case KindConditional:
			if blank(r.values[s.Field]) {
				continue
			}
			if err := r.render(s.Body); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown segment %s", s.Kind)
		}
	}
	return nil
}

func (r *renderer) media(field string) error {
	switch val := r.values[field].(type) {
	case document.Document:
		if val.IsZero() {
			return fmt.Errorf("%w: %s", ErrMissingValue, field)
		}
		r.attach(field, val)
	case *document.Document:
		if val == nil || val.IsZero() {
			return fmt.Errorf("%w: %s", ErrMissingValue, field)
		}
		r.attach(field, *val)
	case []document.Document:
		for i, d := range val {
			r.attach(fmt.Sprintf("%s[%d]", field, i), d)
		}
	case nil:
		return fmt.Errorf("%w: %s", ErrMissingValue, field)
	default:
		return fmt.Errorf("field %s: media segment expects a document, got %T", field, val)
	}
	return nil
}

func (r *renderer) attach(field string, d document.Document) {
	r.flush()
	doc := d
	r.parts = append(r.parts, Part{Document: &doc, Field: field})
}

func (r *renderer) flush() {
	if r.text.Len() == 0 {
		return
	}
	r.parts = append(r.parts, Part{Text: r.text.String()})
	r.text.Reset()
}

func blank(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case document.Document:
		return val.IsZero()
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map:
		return rv.Len() == 0
	case reflect.Ptr:
		return rv.IsNil()
	}
	return false
}
