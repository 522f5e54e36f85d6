package flows

import (
	"context"

	"go.uber.org/zap"

	"github.com/spigell/talenthub/internal/ai"
	"github.com/spigell/talenthub/internal/prompt"
	"github.com/spigell/talenthub/internal/schema"
)

type WellbeingRequest struct {
	Mood string `mapstructure:"mood" json:"mood"`
	// RecentActivities is optional context for the suggestion.
	RecentActivities string `mapstructure:"recentActivities" json:"recentActivities,omitempty"`
}

type WellbeingResult struct {
	Suggestion string `mapstructure:"suggestion" json:"suggestion"`
}

var wellbeing = definition{
	name:     FlowWellbeing,
	template: mustTemplate(FlowWellbeing, "wellbeing.md"),
	output: ai.Object("Well-being suggestion",
		ai.Field("suggestion", ai.String("One personalized suggestion")),
	),
}

func checkWellbeing(c *schema.Checker, r *WellbeingRequest) {
	c.Field("mood", r.Mood, schema.Required(), schema.Length(2, 50))
}

func checkWellbeingResult(c *schema.Checker, r *WellbeingResult) {
	c.Field("suggestion", r.Suggestion, schema.Required())
}

func DecodeWellbeingRequest(payload map[string]any) (*WellbeingRequest, error) {
	return decodeRequest(payload, checkWellbeing)
}

func (r *WellbeingRequest) Validate() error {
	return validate(r, checkWellbeing)
}

// SuggestWellbeing returns a suggestion for the given mood.
func (s *Service) SuggestWellbeing(ctx context.Context, req *WellbeingRequest) (*WellbeingResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	log := s.runLogger(FlowWellbeing)
	log.Info("suggesting well-being activity", zap.Bool("with_activities", req.RecentActivities != ""))

	data, raw, err := s.generate(ctx, wellbeing, prompt.Values{
		"mood":             req.Mood,
		"recentActivities": req.RecentActivities,
	}, log)
	if err != nil {
		return nil, err
	}

	res, _, err := decodeOutput(FlowWellbeing, raw, data, checkWellbeingResult)
	if err != nil {
		log.Warn("model output rejected", zap.Error(err))
		return nil, err
	}
	return res, nil
}
