package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/talenthub/internal/schema"
	"github.com/spigell/talenthub/internal/talent"
)

var talentCmd = &cobra.Command{
	Use:   "talent",
	Short: "Source candidates from the talent directory",
}

var talentSearchCmd = &cobra.Command{
	Use:   "search",
	Short: "Filter candidates by search term, role, experience and score",
	RunE: func(cmd *cobra.Command, _ []string) error {
		logger, config := setup()

		directory, err := loadTalent(config.Talent)
		if err != nil {
			logger.Fatal("loading candidate directory", zap.Error(err))
		}

		minExperience, _ := cmd.Flags().GetInt("min-experience")
		minScore, _ := cmd.Flags().GetFloat64("min-score")
		q := talent.Query{
			Search:        flagString(cmd, "search"),
			Role:          flagString(cmd, "role"),
			MinExperience: minExperience,
			MinScore:      minScore,
		}

		found, steps, err := directory.Search(context.Background(), logger, q)
		if err != nil {
			var verr *schema.ValidationError
			if errors.As(err, &verr) {
				fmt.Fprintf(cmd.ErrOrStderr(), "Invalid search: %v\nKnown roles: %v\n", verr, directory.Roles())
				return errFlowFailed
			}
			return err
		}

		for _, step := range steps {
			logger.Info("filter step",
				zap.String("name", step.Name),
				zap.Int("initial", step.Initial),
				zap.Int("dropped", step.Dropped),
				zap.Int("left", step.Left),
			)
		}

		if byRole, _ := cmd.Flags().GetBool("by-role"); byRole {
			return printJSON(cmd, found.ReportByRole())
		}
		return printJSON(cmd, found.Items)
	},
}

var talentRolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "List the roles present in the talent directory",
	RunE: func(cmd *cobra.Command, _ []string) error {
		logger, config := setup()
		directory, err := loadTalent(config.Talent)
		if err != nil {
			logger.Fatal("loading candidate directory", zap.Error(err))
		}
		for _, role := range directory.Roles() {
			fmt.Fprintln(cmd.OutOrStdout(), role)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(talentCmd)
	talentCmd.AddCommand(talentSearchCmd, talentRolesCmd)

	talentSearchCmd.Flags().StringP("search", "s", "", "match name, role or skill (case-insensitive)")
	talentSearchCmd.Flags().StringP("role", "r", talent.AllRoles, "exact role or 'all'")
	talentSearchCmd.Flags().Int("min-experience", 0, "minimum years of experience")
	talentSearchCmd.Flags().Float64("min-score", 0, "minimum candidate score (0-100)")
	talentSearchCmd.Flags().Bool("by-role", false, "group the result by role")
}
