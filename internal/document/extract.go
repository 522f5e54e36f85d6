package document

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

var (
	// ErrUnsupported is returned when text cannot be extracted from a media type.
	ErrUnsupported = errors.New("unsupported media type for text extraction")
	// ErrUnreadable is wrapped by extraction failures caused by the document
	// content itself, such as a DOCX that is not a zip archive.
	ErrUnreadable = errors.New("document content is unreadable")
)

// Extractable reports whether ExtractText can handle the document.
func Extractable(d Document) bool {
	switch d.MediaType {
	case MediaPDF, MediaDOCX, MediaText:
		return true
	}
	return false
}

// ExtractText returns the plain text content of a PDF, DOCX or text document.
func ExtractText(ctx context.Context, d Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var (
		text string
		err  error
	)
	switch d.MediaType {
	case MediaText:
		text = string(d.Data)
	case MediaPDF:
		text, err = extractPDF(d.Data)
	case MediaDOCX:
		text, err = extractDOCX(d.Data)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupported, d.MediaType)
	}
	if err != nil {
		return "", fmt.Errorf("extracting text from %s: %w: %w", describe(d), ErrUnreadable, err)
	}

	return strings.TrimSpace(text), nil
}

// Check reports whether a Word document can be read. Word documents are
// always sent to the model as extracted text, so a broken archive is caught
// here, before any model call. Other media types pass.
func Check(d Document) error {
	if d.MediaType != MediaDOCX {
		return nil
	}
	if _, err := extractDOCX(d.Data); err != nil {
		return fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	return nil
}

// extractPDF reads page text. The pdf reader panics on some malformed
// files, so it runs under guard.
func extractPDF(data []byte) (string, error) {
	return guard("read pdf", func() (string, error) {
		r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return "", err
		}

		var b strings.Builder
		for i := 1; i <= r.NumPage(); i++ {
			page := r.Page(i)
			if page.V.IsNull() {
				continue
			}
			text, err := page.GetPlainText(nil)
			if err != nil {
				return "", fmt.Errorf("page %d: %w", i, err)
			}
			b.WriteString(text)
			b.WriteString("\n")
		}
		return b.String(), nil
	})
}

// guard runs a parser and turns a panic into an error.
func guard(op string, parse func() (string, error)) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%s: malformed document: %v", op, r)
		}
	}()

	text, err = parse()
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return text, nil
}

func extractDOCX(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty docx data")
	}

	return guard("parse docx", func() (string, error) {
		doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return "", err
		}
		defer doc.Close()

		return stripWordXML(doc.Editable().GetContent()), nil
	})
}

// stripWordXML keeps character data and turns paragraph and break ends into
// newlines.
func stripWordXML(raw string) string {
	dec := xml.NewDecoder(strings.NewReader(raw))
	var b strings.Builder
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return raw
		}
		switch t := tok.(type) {
		case xml.CharData:
			b.Write(t)
		case xml.EndElement:
			if (t.Name.Local == "p" || t.Name.Local == "br") && b.Len() > 0 {
				b.WriteString("\n")
			}
		}
	}
	return strings.TrimSpace(b.String())
}

func isDOCX(data []byte) bool {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return false
	}
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == "word/document.xml" {
			return true
		}
	}
	return false
}

func describe(d Document) string {
	if d.Name != "" {
		return d.Name
	}
	return d.MediaType
}
