package document

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"strings"
)

const (
	MediaPDF  = "application/pdf"
	MediaDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MediaPNG  = "image/png"
	MediaJPEG = "image/jpeg"
	MediaText = "text/plain"

	// MaxUploadBytes is the per-file limit for resumes and certificates.
	MaxUploadBytes = 5 * 1024 * 1024
)

var (
	// ResumeTypes are the media types accepted for resumes.
	ResumeTypes = []string{MediaPDF, MediaDOCX}
	// CertificateTypes are the media types accepted for certificates.
	CertificateTypes = []string{MediaPDF, MediaPNG, MediaJPEG}

	// ErrNotDataURI is returned for strings that are not base64 data URIs.
	ErrNotDataURI = errors.New("must be a base64 data URI")
)

var extensions = map[string]string{
	".pdf":  MediaPDF,
	".docx": MediaDOCX,
	".png":  MediaPNG,
	".jpg":  MediaJPEG,
	".jpeg": MediaJPEG,
	".txt":  MediaText,
}

// Document is an uploaded file carried in memory.
type Document struct {
	Name      string
	MediaType string
	Data      []byte
}

func (d Document) Size() int64 { return int64(len(d.Data)) }

func (d Document) IsZero() bool { return len(d.Data) == 0 }

// Image reports whether the model can only read the document as an image.
func (d Document) Image() bool { return strings.HasPrefix(d.MediaType, "image/") }

// DataURI encodes the document as data:<mediatype>;base64,<payload>.
func (d Document) DataURI() string {
	return "data:" + d.MediaType + ";base64," + base64.StdEncoding.EncodeToString(d.Data)
}

// ParseDataURI decodes a base64 data URI. A name parameter, if present, is
// kept as the document name.
func ParseDataURI(s string) (Document, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "data:") {
		return Document{}, ErrNotDataURI
	}

	header, payload, ok := strings.Cut(s[len("data:"):], ",")
	if !ok {
		return Document{}, ErrNotDataURI
	}

	params := strings.Split(header, ";")
	if len(params) < 2 || params[len(params)-1] != "base64" {
		return Document{}, ErrNotDataURI
	}

	doc := Document{MediaType: Normalize(params[0], "", nil)}
	for _, p := range params[1 : len(params)-1] {
		if k, v, ok := strings.Cut(p, "="); ok && strings.EqualFold(k, "name") {
			doc.Name = v
		}
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Document{}, fmt.Errorf("decoding data URI payload: %w", err)
	}
	doc.Data = data

	if doc.MediaType == "" {
		doc.MediaType = Normalize("", "", data)
	}

	return doc, nil
}

// FromFile reads a document from disk, deriving its media type from the
// extension and falling back to content sniffing.
func FromFile(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("reading %s: %w", path, err)
	}
	name := filepath.Base(path)
	return Document{Name: name, MediaType: Normalize("", name, data), Data: data}, nil
}

// FromFileHeader reads a multipart upload. At most limit+1 bytes are read so
// oversized uploads still fail the size constraint without being buffered
// whole.
func FromFileHeader(fh *multipart.FileHeader, limit int64) (Document, error) {
	f, err := fh.Open()
	if err != nil {
		return Document{}, fmt.Errorf("opening upload %s: %w", fh.Filename, err)
	}
	defer f.Close()

	var r io.Reader = f
	if limit > 0 {
		r = io.LimitReader(f, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return Document{}, fmt.Errorf("reading upload %s: %w", fh.Filename, err)
	}

	return Document{
		Name:      fh.Filename,
		MediaType: Normalize(fh.Header.Get("Content-Type"), fh.Filename, data),
		Data:      data,
	}, nil
}

// Normalize resolves a media type from a declared type, the file name and the
// payload, in that order. Generic declared types defer to the later sources.
func Normalize(declared, name string, data []byte) string {
	clean := ""
	if declared != "" {
		if mt, _, err := mime.ParseMediaType(declared); err == nil {
			clean = strings.ToLower(mt)
		} else {
			clean = strings.ToLower(strings.TrimSpace(strings.Split(declared, ";")[0]))
		}
	}

	switch clean {
	case "", "application/octet-stream", "application/zip":
	case "image/jpg":
		return MediaJPEG
	default:
		return clean
	}

	if mt, ok := extensions[strings.ToLower(filepath.Ext(name))]; ok {
		return mt
	}

	if len(data) > 0 {
		sniffed, _, _ := mime.ParseMediaType(http.DetectContentType(data))
		if sniffed == "application/zip" && isDOCX(data) {
			return MediaDOCX
		}
		return sniffed
	}

	return clean
}

// DecodeHook converts data URI strings into Documents while decoding
// payloads with mapstructure.
func DecodeHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(Document{}) || from.Kind() != reflect.String {
		return data, nil
	}
	s, _ := data.(string)
	if strings.TrimSpace(s) == "" {
		return Document{}, nil
	}
	return ParseDataURI(s)
}
