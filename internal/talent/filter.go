package talent

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/spigell/talenthub/internal/schema"
)

// AllRoles disables the role filter.
const AllRoles = "all"

// Query is the recruiter's sourcing criteria. Zero values match everything.
type Query struct {
	Search        string  `json:"search" query:"search"`
	Role          string  `json:"role" query:"role"`
	MinExperience int     `json:"minExperience" query:"minExperience"`
	MinScore      float64 `json:"minScore" query:"minScore"`
}

// Validate checks the query against the roles known to the directory.
func (q Query) Validate(roles []string) error {
	return schema.NewChecker().
		Field("role", q.Role, schema.OneOf(append([]string{AllRoles}, roles...)...)).
		Field("minExperience", q.MinExperience, schema.Range(0, 50)).
		Field("minScore", q.MinScore, schema.Range(0, 100)).
		Err()
}

// Filter is a single sourcing step.
type Filter interface {
	Name() string
	Apply(ctx context.Context, c *Candidates) (Step, error)
}

// Step describes the result of executing a filtering step.
type Step struct {
	Name    string `json:"name"`
	Initial int    `json:"initial"`
	Dropped int    `json:"dropped"`
	Left    int    `json:"left"`
}

type predicateFilter struct {
	name string
	keep func(*Candidate) bool
}

func (f *predicateFilter) Name() string { return f.name }

func (f *predicateFilter) Apply(ctx context.Context, c *Candidates) (Step, error) {
	if err := ctx.Err(); err != nil {
		return Step{}, err
	}
	initial := c.Len()
	dropped := c.Keep(f.keep)
	return Step{Name: f.name, Initial: initial, Dropped: len(dropped), Left: c.Len()}, nil
}

func NewSearch(term string) Filter {
	return &predicateFilter{name: "search", keep: func(ca *Candidate) bool { return ca.Matches(term) }}
}

func NewRole(role string) Filter {
	return &predicateFilter{name: "role", keep: func(ca *Candidate) bool {
		return role == "" || role == AllRoles || ca.Role == role
	}}
}

func NewExperience(years int) Filter {
	return &predicateFilter{name: "experience", keep: func(ca *Candidate) bool { return ca.Experience >= years }}
}

func NewScore(min float64) Filter {
	return &predicateFilter{name: "score", keep: func(ca *Candidate) bool { return ca.Score >= min }}
}

// Steps builds the pipeline for a query in display order.
func (q Query) Steps() []Filter {
	return []Filter{
		NewSearch(q.Search),
		NewRole(q.Role),
		NewExperience(q.MinExperience),
		NewScore(q.MinScore),
	}
}

// Run applies the steps to a copy of the directory.
func Run(ctx context.Context, logger *zap.Logger, steps []Filter, c *Candidates) (*Candidates, []Step, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	result := c.Clone()
	report := make([]Step, 0, len(steps))
	for _, step := range steps {
		info, err := step.Apply(ctx, result)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		logger.Debug("filter step",
			zap.String("name", step.Name()),
			zap.Int("initial", info.Initial),
			zap.Int("dropped", info.Dropped),
			zap.Int("left", info.Left),
		)
		report = append(report, info)
	}

	return result, report, nil
}

// Search validates the query and runs its pipeline over the directory.
func (c *Candidates) Search(ctx context.Context, logger *zap.Logger, q Query) (*Candidates, []Step, error) {
	if err := q.Validate(c.Roles()); err != nil {
		return nil, nil, err
	}
	return Run(ctx, logger, q.Steps(), c)
}

// String renders a step the way the CLI prints it.
func (s Step) String() string {
	return s.Name + ": " + strconv.Itoa(s.Initial) + " -> " + strconv.Itoa(s.Left)
}
