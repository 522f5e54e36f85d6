package server

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spigell/talenthub/internal/document"
	"github.com/spigell/talenthub/internal/storage"
)

const (
	resumeField       = "resumeDataUri"
	certificatesField = "certificatesDataUris"
	// resumeRefField replaces resumeDataUri with a previously archived document.
	resumeRefField = "resumeRef"
)

// documentFields are the payload keys carrying data URIs. true marks list
// fields.
var documentFields = map[string]bool{
	resumeField:       false,
	certificatesField: true,
}

type flowResponse struct {
	Flow      string           `json:"flow"`
	Result    any              `json:"result"`
	Documents []storedDocument `json:"documents,omitempty"`
}

type storedDocument struct {
	Field string      `json:"field"`
	Name  string      `json:"name,omitempty"`
	Ref   storage.Ref `json:"ref"`
}

type upload struct {
	field string
	doc   document.Document
}

func (s *Server) handleFlow(flow string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		payload, uploads, err := s.payload(c)
		if err != nil {
			return err
		}
		if err := s.resolveRefs(ctx, payload); err != nil {
			return err
		}

		res, err := s.flows.Run(ctx, flow, payload)
		if err != nil {
			return err
		}

		return c.JSON(flowResponse{Flow: flow, Result: res, Documents: s.archive(ctx, uploads)})
	}
}

// payload reads a JSON body or a multipart form into the untyped shape the
// flows decode. Uploaded files become data URIs.
func (s *Server) payload(c *fiber.Ctx) (map[string]any, []upload, error) {
	if strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm) {
		return multipartPayload(c)
	}

	payload := make(map[string]any)
	if len(c.Body()) > 0 {
		if err := json.Unmarshal(c.Body(), &payload); err != nil {
			return nil, nil, fiber.NewError(fiber.StatusBadRequest, "request body must be a JSON object")
		}
	}
	return payload, jsonUploads(payload), nil
}

func multipartPayload(c *fiber.Ctx) (map[string]any, []upload, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, nil, fiber.NewError(fiber.StatusBadRequest, "failed to parse multipart form")
	}

	payload := make(map[string]any, len(form.Value)+len(form.File))
	for key, values := range form.Value {
		if len(values) == 0 {
			continue
		}
		if documentFields[key] || len(values) > 1 {
			list := make([]any, 0, len(values))
			for _, v := range values {
				list = append(list, v)
			}
			payload[key] = list
			continue
		}
		payload[key] = values[0]
	}

	var uploads []upload
	for key, files := range form.File {
		list := make([]any, 0, len(files))
		for _, fh := range files {
			doc, err := document.FromFileHeader(fh, document.MaxUploadBytes)
			if err != nil {
				return nil, nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			uploads = append(uploads, upload{field: key, doc: doc})
			list = append(list, doc.DataURI())
		}
		if documentFields[key] || len(list) > 1 {
			payload[key] = list
			continue
		}
		payload[key] = list[0]
	}

	return payload, uploads, nil
}

// jsonUploads collects the documents sent inline as data URIs. Malformed
// ones are left for flow validation to report.
func jsonUploads(payload map[string]any) []upload {
	var uploads []upload
	add := func(field string, v any) {
		s, ok := v.(string)
		if !ok {
			return
		}
		if doc, err := document.ParseDataURI(s); err == nil {
			uploads = append(uploads, upload{field: field, doc: doc})
		}
	}

	for field := range documentFields {
		switch v := payload[field].(type) {
		case []any:
			for _, item := range v {
				add(field, item)
			}
		default:
			add(field, v)
		}
	}
	return uploads
}

func (s *Server) resolveRefs(ctx context.Context, payload map[string]any) error {
	raw, ok := payload[resumeRefField]
	if !ok {
		return nil
	}
	delete(payload, resumeRefField)

	ref, _ := raw.(string)
	if strings.TrimSpace(ref) == "" {
		return nil
	}
	if s.store == nil {
		return fiber.NewError(fiber.StatusBadRequest, "document storage is not configured")
	}

	doc, err := s.store.Get(ctx, storage.Ref(ref))
	if err != nil {
		return err
	}
	payload[resumeField] = doc.DataURI()
	return nil
}

// archive stores the uploads of a successful run. Failures are logged and
// never fail the request.
func (s *Server) archive(ctx context.Context, uploads []upload) []storedDocument {
	if s.store == nil || len(uploads) == 0 {
		return nil
	}

	stored := make([]storedDocument, 0, len(uploads))
	for _, u := range uploads {
		ref, err := s.store.Put(ctx, u.doc)
		if err != nil {
			s.logger.Warn("archiving document failed", zap.String("field", u.field), zap.Error(err))
			continue
		}
		stored = append(stored, storedDocument{Field: u.field, Name: u.doc.Name, Ref: ref})
	}
	return stored
}
