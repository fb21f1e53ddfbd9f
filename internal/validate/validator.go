package validate

import (
	"strings"

	"github.com/ppiankov/kgcurator/internal/model"
)

// Validator performs soft domain/range checking. It fails open on unknown
// types and fails closed only on a contradiction between two known types.
// It flags, it never rejects.
type Validator struct {
	rules *RuleTable
}

// NewValidator creates a validator over a rule table
func NewValidator(rules *RuleTable) *Validator {
	if rules == nil {
		rules = NewRuleTable(model.DefaultConfig().Rules)
	}
	return &Validator{rules: rules}
}

// Validate returns a copy of rel, with TYPE_VIOLATION added when both types
// are known and at least one falls outside the predicate's allowed set
func (v *Validator) Validate(rel model.Relationship) model.Relationship {
	out := rel.Clone()
	if v.Violates(rel) {
		out.Flags[model.FlagTypeViolation] = true
	}
	return out
}

// Violates reports whether the relationship contradicts its predicate rule
func (v *Validator) Violates(rel model.Relationship) bool {
	rule, ok := v.rules.rules[model.CanonicalPredicate(rel.Predicate)]
	if !ok {
		return false
	}

	if !known(rel.SourceType) || !known(rel.TargetType) {
		return false
	}

	return !allows(rule.source, *rel.SourceType) || !allows(rule.target, *rel.TargetType)
}

// ValidateBatch validates every relationship and returns the violation count
func (v *Validator) ValidateBatch(rels []model.Relationship) ([]model.Relationship, int) {
	out := make([]model.Relationship, len(rels))
	violations := 0
	for i, rel := range rels {
		out[i] = v.Validate(rel)
		if out[i].HasFlag(model.FlagTypeViolation) {
			violations++
		}
	}
	return out, violations
}

func known(t *string) bool {
	return !strings.EqualFold(model.TypeName(t), "unknown")
}
