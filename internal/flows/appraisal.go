package flows

import (
	"context"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/talenthub/internal/ai"
	"github.com/spigell/talenthub/internal/prompt"
	"github.com/spigell/talenthub/internal/schema"
)

// Employees are the sample employees offered by the appraisal form.
var Employees = []string{"John Doe", "Jane Smith", "Sam Wilson"}

type AppraisalRequest struct {
	EmployeeName string `mapstructure:"employeeName" json:"employeeName"`
	JobTitle     string `mapstructure:"jobTitle" json:"jobTitle"`
	FeedbackText string `mapstructure:"feedbackText" json:"feedbackText"`
}

type AppraisalResult struct {
	Summary         string `mapstructure:"summary" json:"summary"`
	KeyInsights     string `mapstructure:"keyInsights" json:"keyInsights"`
	Recommendations string `mapstructure:"recommendations" json:"recommendations"`
}

var appraisal = definition{
	name:     FlowAppraisal,
	template: mustTemplate(FlowAppraisal, "appraisal.md"),
	output: ai.Object("Appraisal feedback analysis",
		ai.Field("summary", ai.String("Balanced summary of the feedback")),
		ai.Field("keyInsights", ai.String("Key strengths and development areas")),
		ai.Field("recommendations", ai.String("Concrete next steps")),
	),
}

func checkAppraisal(c *schema.Checker, r *AppraisalRequest) {
	c.Field("employeeName", r.EmployeeName, schema.Required(), schema.Length(1, 0))
	c.Field("jobTitle", r.JobTitle, schema.Required(), schema.Length(2, 0))
	c.Field("feedbackText", r.FeedbackText, schema.Required(), schema.Length(50, 5000))
}

func checkAppraisalResult(c *schema.Checker, r *AppraisalResult) {
	c.Field("summary", r.Summary, schema.Required())
	c.Field("keyInsights", r.KeyInsights, schema.Required())
	c.Field("recommendations", r.Recommendations, schema.Required())
}

func DecodeAppraisalRequest(payload map[string]any) (*AppraisalRequest, error) {
	return decodeRequest(payload, checkAppraisal)
}

func (r *AppraisalRequest) Validate() error {
	return validate(r, checkAppraisal)
}

// AnalyzeAppraisal summarises collected feedback for an employee.
func (s *Service) AnalyzeAppraisal(ctx context.Context, req *AppraisalRequest) (*AppraisalResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	log := s.runLogger(FlowAppraisal)
	log.Info("analyzing appraisal feedback",
		zap.String("job_title", req.JobTitle),
		zap.Int("feedback_length", utf8.RuneCountInString(req.FeedbackText)),
	)

	data, raw, err := s.generate(ctx, appraisal, prompt.Values{
		"employeeName": req.EmployeeName,
		"jobTitle":     req.JobTitle,
		"feedbackText": req.FeedbackText,
	}, log)
	if err != nil {
		return nil, err
	}

	res, _, err := decodeOutput(FlowAppraisal, raw, data, checkAppraisalResult)
	if err != nil {
		log.Warn("model output rejected", zap.Error(err))
		return nil, err
	}
	return res, nil
}
