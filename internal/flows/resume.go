package flows

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/spigell/talenthub/internal/ai"
	"github.com/spigell/talenthub/internal/document"
	"github.com/spigell/talenthub/internal/prompt"
	"github.com/spigell/talenthub/internal/schema"
)

// JobFields are the job fields offered by the resume screening form.
var JobFields = []string{"Data Science", "Web Development"}

type ResumeRatingRequest struct {
	JobField       string              `mapstructure:"jobField" json:"jobField"`
	Resume         document.Document   `mapstructure:"resumeDataUri" json:"-"`
	Certificates   []document.Document `mapstructure:"certificatesDataUris" json:"-"`
	WorkExperience string              `mapstructure:"workExperience" json:"workExperience"`
}

type ResumeRatingResult struct {
	Score      float64 `mapstructure:"score" json:"score"`
	AIComments string  `mapstructure:"aiComments" json:"aiComments"`
}

var rateResume = definition{
	name:     FlowRateResume,
	template: mustTemplate(FlowRateResume, "rate_resume.md"),
	output: ai.Object("Resume rating",
		ai.Field("score", ai.Number("Overall fit for the job field", 0, 100)),
		ai.Field("aiComments", ai.String("Review of strengths, gaps and one improvement")),
	),
}

func checkResumeRating(c *schema.Checker, r *ResumeRatingRequest) {
	c.Field("jobField", r.JobField, schema.Required())
	checkDocument(c, "resumeDataUri", r.Resume, document.ResumeTypes)
	for i, cert := range r.Certificates {
		checkDocument(c, fmt.Sprintf("certificatesDataUris[%d]", i), cert, document.CertificateTypes)
	}
	c.Field("workExperience", r.WorkExperience, schema.Required(), schema.Length(50, 2000))
}

func checkResumeRatingResult(c *schema.Checker, r *ResumeRatingResult) {
	c.Field("score", r.Score, schema.Required(), schema.Range(0, 100))
	c.Field("aiComments", r.AIComments, schema.Required())
}

// checkDocument requires a readable document within the upload limit and
// of one of the allowed media types.
func checkDocument(c *schema.Checker, path string, doc document.Document, types []string) {
	c.Field(path, doc, schema.Required(), schema.MaxBytes(document.MaxUploadBytes))
	c.Field(path, doc.MediaType, schema.OneOf(types...))
	if doc.IsZero() || !slices.Contains(types, doc.MediaType) {
		return
	}
	if err := document.Check(doc); err != nil {
		c.Add(schema.Violation{Field: path, Rule: schema.RuleFormat, Message: "could not be read as " + doc.MediaType})
	}
}

// DecodeResumeRatingRequest validates an untyped payload. Documents are
// expected as base64 data URIs.
func DecodeResumeRatingRequest(payload map[string]any) (*ResumeRatingRequest, error) {
	return decodeRequest(payload, checkResumeRating, document.DecodeHook)
}

func (r *ResumeRatingRequest) Validate() error {
	return validate(r, checkResumeRating)
}

// RateResume scores a resume for a job field.
func (s *Service) RateResume(ctx context.Context, req *ResumeRatingRequest) (*ResumeRatingResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	log := s.runLogger(FlowRateResume)
	log.Info("rating resume",
		zap.String("job_field", req.JobField),
		zap.String("resume_type", req.Resume.MediaType),
		zap.Int("certificates", len(req.Certificates)),
	)

	data, raw, err := s.generate(ctx, rateResume, prompt.Values{
		"jobField":             req.JobField,
		"workExperience":       req.WorkExperience,
		"resumeDataUri":        req.Resume,
		"certificatesDataUris": req.Certificates,
	}, log)
	if err != nil {
		return nil, err
	}

	res, _, err := decodeOutput(FlowRateResume, raw, data, checkResumeRatingResult)
	if err != nil {
		log.Warn("model output rejected", zap.Error(err))
		return nil, err
	}

	log.Info("resume rated", zap.Float64("score", res.Score))
	return res, nil
}
