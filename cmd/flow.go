package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/talenthub/internal/ai"
	"github.com/spigell/talenthub/internal/document"
	"github.com/spigell/talenthub/internal/flows"
	"github.com/spigell/talenthub/internal/schema"
)

const upstreamNotice = "The AI service could not produce an answer. Please try again later."

var errFlowFailed = errors.New("flow failed")

var rateResumeCmd = &cobra.Command{
	Use:   "rate-resume",
	Short: "Score a resume for a job field",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runFlow(cmd, func(ctx context.Context, cfg *Config, svc *flows.Service) (any, error) {
			resume, err := loadResume(ctx, cfg, flagString(cmd, "resume"), flagString(cmd, "resume-ref"))
			if err != nil {
				return nil, err
			}
			certs, err := loadDocuments(flagStrings(cmd, "certificate"))
			if err != nil {
				return nil, err
			}
			experience, err := textOrFile(flagString(cmd, "experience"), flagString(cmd, "experience-file"))
			if err != nil {
				return nil, err
			}
			return svc.RateResume(ctx, &flows.ResumeRatingRequest{
				JobField:       flagString(cmd, "job-field"),
				Resume:         resume,
				Certificates:   certs,
				WorkExperience: experience,
			})
		})
	},
}

var skillGapCmd = &cobra.Command{
	Use:   "skill-gap",
	Short: "Compare a resume with a target role",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runFlow(cmd, func(ctx context.Context, cfg *Config, svc *flows.Service) (any, error) {
			resume, err := loadResume(ctx, cfg, flagString(cmd, "resume"), flagString(cmd, "resume-ref"))
			if err != nil {
				return nil, err
			}
			return svc.AnalyzeSkillGap(ctx, &flows.SkillGapRequest{
				Resume:     resume,
				TargetRole: flagString(cmd, "target-role"),
			})
		})
	},
}

var appraiseCmd = &cobra.Command{
	Use:   "appraise",
	Short: "Summarize appraisal feedback for an employee",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runFlow(cmd, func(ctx context.Context, _ *Config, svc *flows.Service) (any, error) {
			feedback, err := textOrFile(flagString(cmd, "feedback"), flagString(cmd, "feedback-file"))
			if err != nil {
				return nil, err
			}
			return svc.AnalyzeAppraisal(ctx, &flows.AppraisalRequest{
				EmployeeName: flagString(cmd, "employee"),
				JobTitle:     flagString(cmd, "job-title"),
				FeedbackText: feedback,
			})
		})
	},
}

var wellbeingCmd = &cobra.Command{
	Use:   "wellbeing",
	Short: "Suggest a well-being activity for a mood",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runFlow(cmd, func(ctx context.Context, _ *Config, svc *flows.Service) (any, error) {
			return svc.SuggestWellbeing(ctx, &flows.WellbeingRequest{
				Mood:             flagString(cmd, "mood"),
				RecentActivities: flagString(cmd, "activities"),
			})
		})
	},
}

func init() {
	rootCmd.AddCommand(rateResumeCmd, skillGapCmd, appraiseCmd, wellbeingCmd)

	rateResumeCmd.Flags().String("job-field", "", fmt.Sprintf("job field (%s)", strings.Join(flows.JobFields, ", ")))
	rateResumeCmd.Flags().String("resume", "", "path to the resume (PDF or DOCX)")
	rateResumeCmd.Flags().String("resume-ref", "", "reference of a resume archived in document storage")
	rateResumeCmd.Flags().StringSlice("certificate", nil, "path to a certificate (PDF, PNG or JPEG), repeatable")
	rateResumeCmd.Flags().String("experience", "", "work experience description")
	rateResumeCmd.Flags().String("experience-file", "", "file with the work experience description")

	skillGapCmd.Flags().String("resume", "", "path to the resume (PDF or DOCX)")
	skillGapCmd.Flags().String("resume-ref", "", "reference of a resume archived in document storage")
	skillGapCmd.Flags().String("target-role", "", fmt.Sprintf("target role, for example %q", flows.TargetRoles[1]))

	appraiseCmd.Flags().String("employee", "", "employee name")
	appraiseCmd.Flags().String("job-title", "", "employee job title")
	appraiseCmd.Flags().String("feedback", "", "appraisal feedback text")
	appraiseCmd.Flags().String("feedback-file", "", "file with the appraisal feedback text")

	wellbeingCmd.Flags().String("mood", "", "current mood")
	wellbeingCmd.Flags().String("activities", "", "recent activities (optional)")
}

// runFlow wires the flow service, runs call and prints the result as JSON.
func runFlow(cmd *cobra.Command, call func(context.Context, *Config, *flows.Service) (any, error)) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	logger, config := setup()
	svc, err := newFlows(ctx, config, logger)
	if err != nil {
		logger.Fatal("configuring flows", zap.Error(err))
	}

	res, err := call(ctx, config, svc)
	if err != nil {
		reportFlowError(cmd, logger, err)
		return errFlowFailed
	}

	return printJSON(cmd, res)
}

// reportFlowError prints what the user can act on: every violation for
// invalid input, a generic notice for model failures.
func reportFlowError(cmd *cobra.Command, logger *zap.Logger, err error) {
	out := cmd.ErrOrStderr()

	var (
		verr *schema.ValidationError
		up   *ai.UpstreamError
		sv   *ai.SchemaViolationError
	)
	switch {
	case errors.As(err, &verr):
		fmt.Fprintln(out, "The request is invalid:")
		for _, v := range verr.Violations {
			fmt.Fprintf(out, "  - %s\n", v)
		}
	case errors.As(err, &sv):
		logger.Error("model output violated the response schema", zap.String("flow", sv.Flow), zap.Error(err))
		fmt.Fprintln(out, upstreamNotice)
	case errors.As(err, &up):
		logger.Error("model call failed", zap.Error(err))
		fmt.Fprintln(out, upstreamNotice)
	default:
		logger.Error("flow failed", zap.Error(err))
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func loadDocuments(paths []string) ([]document.Document, error) {
	docs := make([]document.Document, 0, len(paths))
	for _, p := range paths {
		doc, err := document.FromFile(p)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// textOrFile returns text, or the contents of file when text is empty.
func textOrFile(text, file string) (string, error) {
	if text != "" || file == "" {
		return text, nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", file, err)
	}
	return strings.TrimSpace(string(data)), nil
}

func flagString(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	return v
}

func flagStrings(cmd *cobra.Command, name string) []string {
	v, _ := cmd.Flags().GetStringSlice(name)
	return v
}
