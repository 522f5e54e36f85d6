package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/spigell/talenthub/internal/document"
	"github.com/spigell/talenthub/internal/prompt"
	"github.com/spigell/talenthub/internal/schema"
)

// AttachmentMode selects how prompt documents are delivered.
type AttachmentMode string

const (
	// AttachInline sends PDFs and images as inline binary parts. Word
	// documents are not readable by the model and are always sent as
	// extracted text.
	AttachInline AttachmentMode = "inline"
	// AttachText sends the extracted text of every text-bearing document.
	// Images stay inline.
	AttachText AttachmentMode = "text"
)

// ParseAttachmentMode accepts "inline", "text" or an empty string.
func ParseAttachmentMode(s string) (AttachmentMode, error) {
	switch AttachmentMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", AttachInline:
		return AttachInline, nil
	case AttachText:
		return AttachText, nil
	}
	return "", fmt.Errorf("unknown attachment mode %q (want inline or text)", s)
}

// contentParts converts rendered parts. A document whose content cannot be
// read is the caller's input, so it comes back as a *schema.ValidationError.
func (g *Generator) contentParts(ctx context.Context, in []prompt.Part) ([]*genai.Part, error) {
	out := make([]*genai.Part, 0, len(in))
	for _, p := range in {
		if p.Document == nil {
			if p.Text != "" {
				out = append(out, genai.NewPartFromText(p.Text))
			}
			continue
		}

		part, err := g.documentPart(ctx, *p.Document)
		if errors.Is(err, document.ErrUnreadable) {
			return nil, &schema.ValidationError{Violations: []schema.Violation{{
				Field:   p.Field,
				Rule:    schema.RuleFormat,
				Message: "could not be read as " + p.Document.MediaType,
			}}}
		}
		if err != nil {
			return nil, err
		}
		out = append(out, part)
	}
	return out, nil
}

func (g *Generator) documentPart(ctx context.Context, doc document.Document) (*genai.Part, error) {
	asText := doc.MediaType == document.MediaDOCX || doc.MediaType == document.MediaText ||
		(g.attachments == AttachText && document.Extractable(doc))
	if !asText {
		return genai.NewPartFromBytes(doc.Data, doc.MediaType), nil
	}

	text, err := document.ExtractText(ctx, doc)
	if err != nil {
		return nil, err
	}

	label := doc.Name
	if label == "" {
		label = "document"
	}
	return genai.NewPartFromText(fmt.Sprintf("<%s>\n%s\n</%s>", label, text, label)), nil
}
