package flows

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/talenthub/internal/ai"
	"github.com/spigell/talenthub/internal/document"
	"github.com/spigell/talenthub/internal/prompt"
	"github.com/spigell/talenthub/internal/schema"
)

// TargetRoles are the roles offered by the skill gap form.
var TargetRoles = []string{
	"Frontend Developer",
	"Backend Developer",
	"Full Stack Developer",
	"Data Scientist",
	"DevOps Engineer",
}

const (
	fullMark = 100

	minSkills          = 5
	maxSkills          = 7
	minRecommendations = 2
	maxRecommendations = 3
)

type SkillGapRequest struct {
	Resume     document.Document `mapstructure:"resumeDataUri" json:"-"`
	TargetRole string            `mapstructure:"targetRole" json:"targetRole"`
}

// SkillLevel is one axis of the skill radar chart.
type SkillLevel struct {
	Subject  string   `mapstructure:"subject" json:"subject"`
	Your     float64  `mapstructure:"your" json:"your"`
	Required float64  `mapstructure:"required" json:"required"`
	// FullMark is the chart's outer ring and is always 100.
	FullMark float64 `mapstructure:"fullMark" json:"fullMark"`
}

type Recommendation struct {
	Skill          string `mapstructure:"skill" json:"skill"`
	Recommendation string `mapstructure:"recommendation" json:"recommendation"`
}

type SkillGapResult struct {
	Analysis        []SkillLevel     `mapstructure:"analysis" json:"analysis"`
	Recommendations []Recommendation `mapstructure:"recommendations" json:"recommendations"`
	Score           float64          `mapstructure:"score" json:"score"`
	// Advisories are out-of-bounds item counts. They do not fail the flow.
	Advisories []schema.Violation `mapstructure:"-" json:"advisories,omitempty"`
}

var skillGap = definition{
	name:     FlowSkillGap,
	template: mustTemplate(FlowSkillGap, "skill_gap.md"),
	output: ai.Object("Skill gap analysis",
		ai.Field("analysis", ai.ArrayOf("Key skills for the role", ai.Object("Skill level",
			ai.Field("subject", ai.String("Skill name")),
			ai.Field("your", ai.Number("Applicant's current level", 0, 100)),
			ai.Field("required", ai.Number("Level required by the role", 0, 100)),
			ai.Field("fullMark", ai.Number("Always 100", fullMark, fullMark)),
		), minSkills, maxSkills)),
		ai.Field("recommendations", ai.ArrayOf("Actionable recommendations", ai.Object("Recommendation",
			ai.Field("skill", ai.String("Skill addressed")),
			ai.Field("recommendation", ai.String("What to do")),
		), minRecommendations, maxRecommendations)),
		ai.Field("score", ai.Number("Overall match with the target role", 0, 100)),
	),
}

func checkSkillGap(c *schema.Checker, r *SkillGapRequest) {
	checkDocument(c, "resumeDataUri", r.Resume, document.ResumeTypes)
	c.Field("targetRole", r.TargetRole, schema.Required())
}

func checkSkillGapResult(c *schema.Checker, r *SkillGapResult) {
	c.Field("analysis", r.Analysis, schema.Required())
	for i := range r.Analysis {
		skill := &r.Analysis[i]
		path := fmt.Sprintf("analysis[%d]", i)
		c.Field(path+".subject", skill.Subject, schema.Required())
		c.Field(path+".your", skill.Your, schema.Required(), schema.Range(0, 100))
		c.Field(path+".required", skill.Required, schema.Required(), schema.Range(0, 100))
		// fullMark is a fixed literal: absent is filled in, anything else is wrong.
		if c.Present(path + ".fullMark") {
			c.Field(path+".fullMark", skill.FullMark, schema.Equal(fullMark))
		}
		skill.FullMark = fullMark
	}

	c.Field("recommendations", r.Recommendations, schema.Required())
	for i, rec := range r.Recommendations {
		path := fmt.Sprintf("recommendations[%d]", i)
		c.Field(path+".skill", rec.Skill, schema.Required())
		c.Field(path+".recommendation", rec.Recommendation, schema.Required())
	}

	c.Field("score", r.Score, schema.Required(), schema.Range(0, 100))

	c.Advise("analysis", r.Analysis, schema.Count(minSkills, maxSkills))
	c.Advise("recommendations", r.Recommendations, schema.Count(minRecommendations, maxRecommendations))
}

func DecodeSkillGapRequest(payload map[string]any) (*SkillGapRequest, error) {
	return decodeRequest(payload, checkSkillGap, document.DecodeHook)
}

func (r *SkillGapRequest) Validate() error {
	return validate(r, checkSkillGap)
}

// AnalyzeSkillGap compares a resume with a target role.
func (s *Service) AnalyzeSkillGap(ctx context.Context, req *SkillGapRequest) (*SkillGapResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	log := s.runLogger(FlowSkillGap)
	log.Info("analyzing skill gap",
		zap.String("target_role", req.TargetRole),
		zap.String("resume_type", req.Resume.MediaType),
	)

	data, raw, err := s.generate(ctx, skillGap, prompt.Values{
		"targetRole":    req.TargetRole,
		"resumeDataUri": req.Resume,
	}, log)
	if err != nil {
		return nil, err
	}

	res, advisories, err := decodeOutput(FlowSkillGap, raw, data, checkSkillGapResult)
	if err != nil {
		log.Warn("model output rejected", zap.Error(err))
		return nil, err
	}

	res.Advisories = advisories
	for _, a := range advisories {
		log.Warn("skill gap output outside expected bounds", zap.String("field", a.Field), zap.String("detail", a.Message))
	}

	log.Info("skill gap analyzed",
		zap.Float64("score", res.Score),
		zap.Int("skills", len(res.Analysis)),
		zap.Int("recommendations", len(res.Recommendations)),
	)
	return res, nil
}
