package session

import (
	"fmt"
	"strings"
)

// Role selects which tools a signed-in user can reach.
type Role string

const (
	RoleApplicant Role = "applicant"
	RoleRecruiter Role = "recruiter"

	// DefaultRole is preselected on the sign-in and sign-up forms.
	DefaultRole = RoleApplicant
)

// Roles lists the selectable roles.
var Roles = []Role{RoleApplicant, RoleRecruiter}

// ParseRole accepts a role name case-insensitively. An empty string selects
// DefaultRole.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return DefaultRole, nil
	case RoleApplicant:
		return RoleApplicant, nil
	case RoleRecruiter:
		return RoleRecruiter, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
}

func (r Role) Valid() bool { return r == RoleApplicant || r == RoleRecruiter }

// Title is the display name of the role.
func (r Role) Title() string {
	switch r {
	case RoleApplicant:
		return "Applicant"
	case RoleRecruiter:
		return "Recruiter"
	}
	return string(r)
}

// Tool is a navigation entry of the dashboard.
type Tool string

const (
	ToolResumeScreening Tool = "resume-screening"
	ToolSkillGap        Tool = "skill-gap-analysis"
	ToolWellness        Tool = "wellness"
	ToolTalentSourcing  Tool = "talent-sourcing"
	ToolAppraisal       Tool = "appraisal"
	ToolSettings        Tool = "settings"
)

var toolTitles = map[Tool]string{
	ToolResumeScreening: "Resume Screening",
	ToolSkillGap:        "Skill Gap Analysis",
	ToolWellness:        "Wellness",
	ToolTalentSourcing:  "Talent Sourcing",
	ToolAppraisal:       "Appraisal",
	ToolSettings:        "Settings",
}

func (t Tool) Title() string {
	if title, ok := toolTitles[t]; ok {
		return title
	}
	return string(t)
}

// Tools returns the navigation of a role, in display order.
func Tools(r Role) []Tool {
	switch r {
	case RoleApplicant:
		return []Tool{ToolResumeScreening, ToolSkillGap, ToolWellness, ToolSettings}
	case RoleRecruiter:
		return []Tool{ToolTalentSourcing, ToolAppraisal, ToolSettings}
	}
	return nil
}

// Allows reports whether the role's navigation includes t.
func Allows(r Role, t Tool) bool {
	for _, tool := range Tools(r) {
		if tool == t {
			return true
		}
	}
	return false
}
