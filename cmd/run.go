package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/talenthub/internal/document"
	"github.com/spigell/talenthub/internal/flows"
	"github.com/spigell/talenthub/internal/logger"
	"github.com/spigell/talenthub/internal/session"
	"github.com/spigell/talenthub/internal/storage"
	"github.com/spigell/talenthub/internal/talent"
)

const (
	PromptLogin      = "Log in"
	PromptSignUp     = "Sign up"
	PromptExit       = "Exit"
	PromptSwitchRole = "Switch role"
	PromptLogout     = "Log out"
	PromptSkip       = "skip"
)

var errExit = errors.New("exit requested")

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the interactive dashboard",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// dashboard holds what the interactive session needs between prompts.
type dashboard struct {
	cmd       *cobra.Command
	logger    *zap.Logger
	config    *Config
	session   *session.Manager
	flows     *flows.Service
	directory *talent.Candidates
	store     storage.Store
}

// run is the interactive entry point: sign in, then use the role's tools.
func run(cmd *cobra.Command) {
	ctx := context.Background()

	log, config := setup()
	log.Info("starting the talenthub dashboard", zap.String("version", version))

	svc, err := newFlows(ctx, config, log)
	if err != nil {
		log.Fatal("configuring flows", zap.Error(err))
	}
	identity, err := newIdentity(config.Identity, log)
	if err != nil {
		log.Fatal("configuring identity provider", zap.Error(err))
	}
	store, err := newStore(ctx, config.Storage)
	if err != nil {
		log.Fatal("configuring document storage", zap.Error(err))
	}
	directory, err := loadTalent(config.Talent)
	if err != nil {
		log.Fatal("loading candidate directory", zap.Error(err))
	}

	m := session.NewManager(identity, session.WithLogger(log))
	defer m.Close()

	unsubscribe := m.Subscribe(func(s session.Snapshot) {
		email := ""
		if s.User != nil {
			email = s.User.Email
		}
		fields := append([]zap.Field{zap.Stringer("state", s.State)}, logger.SessionFields(email, string(s.Role))...)
		log.Debug("session changed", fields...)
	})
	defer unsubscribe()

	d := &dashboard{cmd: cmd, logger: log, config: config, session: m, flows: svc, directory: directory, store: store}
	for {
		var err error
		if m.Authenticated() {
			err = d.tools(ctx)
		} else {
			err = d.signIn(ctx)
		}
		if errors.Is(err, errExit) || errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			log.Info("exiting")
			return
		}
		if err != nil {
			log.Fatal("exiting", zap.Error(err))
		}
	}
}

func (d *dashboard) signIn(ctx context.Context) error {
	_, action, err := (&promptui.Select{
		Label: "Welcome to TalentHub",
		Items: []string{PromptLogin, PromptSignUp, PromptExit},
	}).Run()
	if err != nil {
		return err
	}
	if action == PromptExit {
		return errExit
	}

	email, err := ask("Email", "", required)
	if err != nil {
		return err
	}
	password, err := (&promptui.Prompt{Label: "Password", Mask: '*', Validate: required}).Run()
	if err != nil {
		return err
	}
	username := ""
	if action == PromptSignUp {
		if username, err = ask("Username", "", required); err != nil {
			return err
		}
	}
	role, err := chooseRole("I am a")
	if err != nil {
		return err
	}

	if action == PromptSignUp {
		_, err = d.session.SignUp(ctx, email, password, username, role)
	} else {
		_, err = d.session.SignIn(ctx, email, password, role)
	}
	if err != nil {
		// Identity failures are shown and the user may retry.
		fmt.Fprintln(d.cmd.ErrOrStderr(), session.Describe(err))
		d.logger.Debug("authentication failed", zap.Error(err))
		return nil
	}

	fmt.Fprintf(d.cmd.OutOrStdout(), "Signed in as %s.\n", d.session.Role().Title())
	return nil
}

func (d *dashboard) tools(ctx context.Context) error {
	role := d.session.Role()
	tools := session.Tools(role)

	items := make([]string, 0, len(tools)+2)
	for _, t := range tools {
		items = append(items, t.Title())
	}
	items = append(items, PromptSwitchRole, PromptLogout)

	idx, choice, err := (&promptui.Select{
		Label: fmt.Sprintf("%s dashboard", role.Title()),
		Items: items,
	}).Run()
	if err != nil {
		return err
	}

	switch choice {
	case PromptSwitchRole:
		return d.switchRole()
	case PromptLogout:
		// The local session is cleared even when the provider call fails.
		if err := d.session.SignOut(ctx); err != nil {
			d.logger.Warn("identity provider sign-out failed", zap.Error(err))
		}
		return nil
	}

	tool := tools[idx]
	if !session.Allows(d.session.Role(), tool) {
		return nil
	}

	res, err := d.useTool(ctx, tool)
	if err != nil {
		reportFlowError(d.cmd, d.logger, err)
		return nil
	}
	if res != nil {
		return printJSON(d.cmd, res)
	}
	return nil
}

func (d *dashboard) switchRole() error {
	role, err := chooseRole("Switch to")
	if err != nil {
		return err
	}
	_, err = d.session.SetRole(role)
	return err
}

func (d *dashboard) useTool(ctx context.Context, tool session.Tool) (any, error) {
	switch tool {
	case session.ToolResumeScreening:
		return d.rateResume(ctx)
	case session.ToolSkillGap:
		return d.skillGap(ctx)
	case session.ToolWellness:
		return d.wellbeing(ctx)
	case session.ToolTalentSourcing:
		return d.talentSearch(ctx)
	case session.ToolAppraisal:
		return d.appraisal(ctx)
	case session.ToolSettings:
		return d.session.Current(), nil
	}
	return nil, fmt.Errorf("unknown tool %s", tool)
}

func (d *dashboard) rateResume(ctx context.Context) (any, error) {
	field, err := choose("Job field", flows.JobFields)
	if err != nil {
		return nil, err
	}
	resume, err := d.askResume(ctx)
	if err != nil {
		return nil, err
	}
	certPaths, err := ask("Certificate paths, comma separated", "", nil)
	if err != nil {
		return nil, err
	}
	certs, err := loadDocuments(splitList(certPaths))
	if err != nil {
		return nil, err
	}
	experience, err := ask("Work experience", "", required)
	if err != nil {
		return nil, err
	}
	return d.flows.RateResume(ctx, &flows.ResumeRatingRequest{
		JobField:       field,
		Resume:         resume,
		Certificates:   certs,
		WorkExperience: experience,
	})
}

func (d *dashboard) skillGap(ctx context.Context) (any, error) {
	resume, err := d.askResume(ctx)
	if err != nil {
		return nil, err
	}
	target, err := choose("Target role", flows.TargetRoles)
	if err != nil {
		return nil, err
	}
	return d.flows.AnalyzeSkillGap(ctx, &flows.SkillGapRequest{Resume: resume, TargetRole: target})
}

func (d *dashboard) wellbeing(ctx context.Context) (any, error) {
	mood, err := ask("How are you feeling", "", required)
	if err != nil {
		return nil, err
	}
	activities, err := ask("Recent activities (optional)", "", nil)
	if err != nil {
		return nil, err
	}
	return d.flows.SuggestWellbeing(ctx, &flows.WellbeingRequest{Mood: mood, RecentActivities: activities})
}

func (d *dashboard) appraisal(ctx context.Context) (any, error) {
	employee, err := choose("Employee", flows.Employees)
	if err != nil {
		return nil, err
	}
	title, err := ask("Job title", "", required)
	if err != nil {
		return nil, err
	}
	feedback, err := ask("Feedback", "", required)
	if err != nil {
		return nil, err
	}
	return d.flows.AnalyzeAppraisal(ctx, &flows.AppraisalRequest{EmployeeName: employee, JobTitle: title, FeedbackText: feedback})
}

func (d *dashboard) talentSearch(ctx context.Context) (any, error) {
	term, err := ask("Search by name, role or skill", "", nil)
	if err != nil {
		return nil, err
	}
	role, err := choose("Role", append([]string{talent.AllRoles}, d.directory.Roles()...))
	if err != nil {
		return nil, err
	}
	experience, err := ask("Minimum years of experience", "0", integer)
	if err != nil {
		return nil, err
	}
	score, err := ask("Minimum score", "0", number)
	if err != nil {
		return nil, err
	}

	years, _ := strconv.Atoi(experience)
	minScore, _ := strconv.ParseFloat(score, 64)
	found, _, err := d.directory.Search(ctx, d.logger, talent.Query{Search: term, Role: role, MinExperience: years, MinScore: minScore})
	if err != nil {
		return nil, err
	}
	d.logger.Info("candidates found", zap.Int("count", found.Len()))
	return found.ReportByRole(), nil
}

// askResume accepts a file path, or a storage reference prefixed with "ref:".
func (d *dashboard) askResume(ctx context.Context) (document.Document, error) {
	answer, err := ask("Resume path (or ref:<reference>)", "", required)
	if err != nil {
		return document.Document{}, err
	}
	if ref, ok := strings.CutPrefix(answer, "ref:"); ok {
		return loadResume(ctx, d.config, "", ref)
	}
	doc, err := loadResume(ctx, d.config, answer, "")
	if err != nil || d.store == nil {
		return doc, err
	}
	if ref, err := d.store.Put(ctx, doc); err == nil {
		fmt.Fprintf(d.cmd.OutOrStdout(), "Resume archived as ref:%s\n", ref)
	} else {
		d.logger.Warn("archiving resume failed", zap.Error(err))
	}
	return doc, nil
}

func chooseRole(label string) (session.Role, error) {
	items := make([]string, 0, len(session.Roles))
	for _, r := range session.Roles {
		items = append(items, r.Title())
	}
	idx, _, err := (&promptui.Select{Label: label, Items: items}).Run()
	if err != nil {
		return "", err
	}
	return session.Roles[idx], nil
}

func choose(label string, items []string) (string, error) {
	_, v, err := (&promptui.Select{Label: label, Items: items}).Run()
	return v, err
}

func ask(label, def string, validate promptui.ValidateFunc) (string, error) {
	v, err := (&promptui.Prompt{Label: label, Default: def, Validate: validate}).Run()
	return strings.TrimSpace(v), err
}

func required(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("required")
	}
	return nil
}

func number(s string) error {
	if _, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
		return errors.New("must be a number")
	}
	return nil
}

func integer(s string) error {
	if _, err := strconv.Atoi(strings.TrimSpace(s)); err != nil {
		return errors.New("must be a whole number")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
