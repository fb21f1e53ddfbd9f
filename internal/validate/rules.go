package validate

import (
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/kgcurator/internal/model"
	"gopkg.in/yaml.v3"
)

// RuleTable maps canonical predicates to their allowed slot types
type RuleTable struct {
	rules map[string]*compiledRule
}

type compiledRule struct {
	source map[string]bool
	target map[string]bool
}

// NewRuleTable builds a lookup table from configured rules
func NewRuleTable(rules map[string]model.TypeRule) *RuleTable {
	table := &RuleTable{rules: make(map[string]*compiledRule, len(rules))}

	for predicate, rule := range rules {
		key := model.CanonicalPredicate(predicate)
		if key == "" {
			continue
		}
		table.rules[key] = &compiledRule{
			source: typeSet(rule.Source),
			target: typeSet(rule.Target),
		}
	}

	return table
}

// LoadRuleTable reads a standalone rules file (predicate -> {source, target})
func LoadRuleTable(path string) (*RuleTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}

	var rules map[string]model.TypeRule
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}

	return NewRuleTable(rules), nil
}

// Has reports whether a rule exists for the predicate
func (t *RuleTable) Has(predicate string) bool {
	_, ok := t.rules[model.CanonicalPredicate(predicate)]
	return ok
}

// Len returns the number of rules
func (t *RuleTable) Len() int {
	return len(t.rules)
}

// allows reports whether a known type fits a slot. An empty allowed set
// constrains nothing.
func allows(set map[string]bool, typ string) bool {
	if len(set) == 0 {
		return true
	}
	return set[strings.ToLower(typ)]
}

func typeSet(types []string) map[string]bool {
	set := make(map[string]bool, len(types))
	for _, t := range types {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			set[t] = true
		}
	}
	return set
}
