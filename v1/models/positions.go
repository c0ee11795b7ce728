package models

import "strings"

// MatchKind controls how a PositionRule compares against a position title
type MatchKind string

const (
	MatchExact    MatchKind = "exact"
	MatchPrefix   MatchKind = "prefix"
	MatchContains MatchKind = "contains"
)

// PositionRule maps organizational titles onto a role and scope
type PositionRule struct {
	Title string    `yaml:"title"`
	Match MatchKind `yaml:"match"`
	Role  Role      `yaml:"role"`
	Scope Scope     `yaml:"scope"`
}

func (r PositionRule) matches(position string) bool {
	title := strings.ToLower(strings.TrimSpace(r.Title))
	switch r.Match {
	case MatchPrefix:
		return strings.HasPrefix(position, title)
	case MatchContains:
		return strings.Contains(position, title)
	default:
		return position == title
	}
}

// Classification is the role and scope derived from a position
type Classification struct {
	Role  Role
	Scope Scope
}

// DefaultPositionRules holds the organization's built-in title table.
// Rules are evaluated in order; the first match wins.
var DefaultPositionRules = []PositionRule{
	{Title: "President", Match: MatchExact, Role: RoleAdmin, Scope: ScopeAll},
	{Title: "Vice-President", Match: MatchExact, Role: RoleAdmin, Scope: ScopeAll},
	{Title: "Vice President", Match: MatchExact, Role: RoleAdmin, Scope: ScopeAll},
	{Title: "Head", Match: MatchContains, Role: RoleDepartmentHead, Scope: ScopeDepartment},
}

// PositionClassifier derives roles from free-form position titles
type PositionClassifier struct {
	rules       []PositionRule
	departments []string
}

// NewPositionClassifier builds a classifier. Nil rules select the defaults;
// an empty departments list accepts any department.
func NewPositionClassifier(rules []PositionRule, departments []string) *PositionClassifier {
	if rules == nil {
		rules = DefaultPositionRules
	}
	return &PositionClassifier{rules: rules, departments: departments}
}

// Classify returns the role and scope for position, falling back to member
func (c *PositionClassifier) Classify(position string) Classification {
	normalized := strings.ToLower(strings.TrimSpace(position))
	if normalized != "" {
		for _, rule := range c.rules {
			if rule.matches(normalized) {
				return Classification{Role: rule.Role, Scope: rule.Scope}
			}
		}
	}
	return Classification{Role: RoleMember, Scope: ScopeNone}
}

// Access combines an assigned role with the classification of position.
// The stronger role wins and the scope is the wider of the two.
func (c *PositionClassifier) Access(role Role, position string) Classification {
	if !role.IsValid() {
		role = RoleMember
	}
	access := Classification{Role: role, Scope: RoleScopes[role]}
	if strings.TrimSpace(position) == "" {
		return access
	}
	pc := c.Classify(position)
	if pc.Role.Outranks(access.Role) {
		access.Role = pc.Role
	}
	access.Scope = access.Scope.Wider(pc.Scope)
	return access
}

// IsSuperScoped reports whether the classification reaches every department
func (c Classification) IsSuperScoped() bool {
	return c.Role == RoleAdmin || c.Scope == ScopeAll
}

// IsKnownDepartment reports whether department is in the configured list
func (c *PositionClassifier) IsKnownDepartment(department string) bool {
	if len(c.departments) == 0 {
		return true
	}
	for _, d := range c.departments {
		if strings.EqualFold(d, department) {
			return true
		}
	}
	return false
}

// Departments returns the configured department list
func (c *PositionClassifier) Departments() []string {
	return c.departments
}
