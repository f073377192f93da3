package ai

import (
	"strings"
)

// Role is a job-role label the screening can settle on.
type Role string

const (
	RoleUnknown        Role = "Unknown"
	RoleDataScientist  Role = "Data Scientist"
	RoleDataEngineer   Role = "Data Engineer"
	RoleDataAnalyst    Role = "Data Analyst"
	RoleMLOpsEngineer  Role = "MLOps Engineer"
	RoleProjectManager Role = "Project Manager"
	// RoleIncompetent is only ever a verdict, never a hypothesis.
	RoleIncompetent Role = "Incompetent candidate"
)

var roles = []Role{
	RoleDataScientist,
	RoleDataEngineer,
	RoleDataAnalyst,
	RoleMLOpsEngineer,
	RoleProjectManager,
}

// Descriptions used when enumerating the label set for the model.
var roleHints = map[Role]string{
	RoleDataScientist:  "ML, DL, statistics",
	RoleDataEngineer:   "ETL, pipelines, databases",
	RoleDataAnalyst:    "visualisation, SQL, reports",
	RoleMLOpsEngineer:  "model deployment, CI/CD",
	RoleProjectManager: "project management, agile",
}

var aliases = map[string]Role{
	"ds":                        RoleDataScientist,
	"de":                        RoleDataEngineer,
	"da":                        RoleDataAnalyst,
	"mlops":                     RoleMLOpsEngineer,
	"ml ops engineer":           RoleMLOpsEngineer,
	"pm":                        RoleProjectManager,
	"incompetent":               RoleIncompetent,
	"некомпетентный соискатель": RoleIncompetent,
	"unknown":                   RoleUnknown,
}

// Roles returns the fixed role set in a stable order.
func Roles() []Role {
	out := make([]Role, len(roles))
	copy(out, roles)
	return out
}

// VerdictLabels returns the roles plus the incompetent catch-all.
func VerdictLabels() []Role {
	return append(Roles(), RoleIncompetent)
}

// Hint returns a short description of what the role covers.
func (r Role) Hint() string {
	return roleHints[r]
}

// IsRole reports whether r belongs to the fixed role set.
func (r Role) IsRole() bool {
	for _, known := range roles {
		if r == known {
			return true
		}
	}
	return false
}

// IsVerdict reports whether r may be used as a terminal verdict.
func (r Role) IsVerdict() bool {
	return r == RoleIncompetent || r.IsRole()
}

// Verdict renders the role in the bracketed form candidates see.
func (r Role) Verdict() string {
	return "[" + string(r) + "]"
}

// ParseRole interprets a short classifier answer. Exact labels and aliases win;
// otherwise the earliest label mentioned in the text is used. Anything else is
// RoleUnknown.
func ParseRole(raw string) Role {
	if role, ok := lookup(raw); ok && role.IsRole() {
		return role
	}

	lower := strings.ToLower(raw)
	best, bestIdx := RoleUnknown, -1
	for _, role := range roles {
		idx := strings.Index(lower, strings.ToLower(string(role)))
		if idx == -1 {
			continue
		}
		if bestIdx == -1 || idx < bestIdx {
			best, bestIdx = role, idx
		}
	}

	return best
}

func lookup(raw string) (Role, bool) {
	key := normalize(raw)
	if key == "" {
		return "", false
	}

	for _, role := range VerdictLabels() {
		if strings.ToLower(string(role)) == key {
			return role, true
		}
	}

	role, ok := aliases[key]
	return role, ok
}

func normalize(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, "[]\"'`*.!:- \t")
	s = strings.Join(strings.Fields(s), " ")
	return strings.ToLower(s)
}
