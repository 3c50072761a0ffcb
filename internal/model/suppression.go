package model

// CategoryCustomRule is the sentinel category that marks a suppression row
// as a custom rule definition rather than a muted category.
const CategoryCustomRule = "custom_rule"

// CustomRuleKind discriminates custom rule definitions.
type CustomRuleKind string

const (
	// RuleKindForbiddenTerm flags occurrences of a literal term in target text.
	RuleKindForbiddenTerm CustomRuleKind = "forbidden_term"
	// RuleKindPattern flags matches of a regular expression in target text.
	RuleKindPattern CustomRuleKind = "pattern"
)

// CustomRuleDef describes one project-defined rule evaluated by the custom
// rule harness.
type CustomRuleDef struct {
	Name        string         `json:"name" yaml:"name"`
	Kind        CustomRuleKind `json:"kind" yaml:"kind"`
	Pattern     string         `json:"pattern" yaml:"pattern"`
	Severity    Severity       `json:"severity" yaml:"severity"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
}

// SuppressionRule is one row of the project's suppression table. A row
// either mutes a finding category, or (when Category is the custom_rule
// sentinel) carries a custom rule definition.
type SuppressionRule struct {
	ID         string         `json:"id"`
	TenantID   string         `json:"tenant_id"`
	ProjectID  string         `json:"project_id"`
	Category   string         `json:"category"`
	Definition *CustomRuleDef `json:"definition,omitempty"`
	Active     bool           `json:"active"`
}

// PartitionSuppressionRules splits active suppression rows into muted
// categories and custom rule definitions. Rows are partitioned once on load
// so the engine never re-inspects the sentinel. Inactive rows and
// custom_rule rows without a definition are dropped.
func PartitionSuppressionRules(rules []SuppressionRule) (map[string]bool, []CustomRuleDef) {
	muted := make(map[string]bool)
	var custom []CustomRuleDef
	for _, r := range rules {
		if !r.Active {
			continue
		}
		if r.Category == CategoryCustomRule {
			if r.Definition != nil {
				custom = append(custom, *r.Definition)
			}
			continue
		}
		muted[r.Category] = true
	}
	return muted, custom
}
