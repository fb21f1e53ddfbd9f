package postprocess

import (
	"context"
	"strings"

	"github.com/ppiankov/kgcurator/internal/model"
	"github.com/ppiankov/kgcurator/internal/validate"
)

// PredicateNormalizer maps verbose predicates ("is located in") to their
// canonical names. Aliases are matched in canonical form; a predicate with
// a copula prefix is also rewritten when the remainder has a type rule.
type PredicateNormalizer struct {
	counter
	aliases map[string]string
	rules   *validate.RuleTable
}

var copulaPrefixes = []string{"is_", "was_", "are_", "were_", "has_been_", "had_been_"}

// NewPredicateNormalizer creates the normalizer; rules may be nil
func NewPredicateNormalizer(aliases map[string]string, rules *validate.RuleTable) *PredicateNormalizer {
	m := make(map[string]string, len(aliases))
	for from, to := range aliases {
		m[model.CanonicalPredicate(from)] = model.CanonicalPredicate(to)
	}
	return &PredicateNormalizer{aliases: m, rules: rules}
}

func (p *PredicateNormalizer) Name() string  { return NamePredicateNormalizer }
func (p *PredicateNormalizer) Priority() int { return 70 }

// Apply rewrites predicates that have a canonical name
func (p *PredicateNormalizer) Apply(_ context.Context, batch []model.Relationship) []model.Relationship {
	out := make([]model.Relationship, 0, len(batch))
	for _, rel := range batch {
		canonical, ok := p.canonical(rel.Predicate)
		if !ok || canonical == rel.Predicate {
			out = append(out, rel)
			continue
		}

		r := rel.Clone()
		if r.Metadata == nil {
			r.Metadata = make(map[string]string)
		}
		if _, kept := r.Metadata["original_predicate"]; !kept {
			r.Metadata["original_predicate"] = rel.Predicate
		}
		r.Predicate = canonical
		r.Flags[model.FlagPredicateNormalized] = true
		r.Rekey()
		p.add("normalized", 1)
		out = append(out, r)
	}
	return out
}

func (p *PredicateNormalizer) canonical(predicate string) (string, bool) {
	key := model.CanonicalPredicate(predicate)
	if to, ok := p.aliases[key]; ok {
		return to, true
	}
	if p.rules == nil || p.rules.Has(key) {
		return "", false
	}
	for _, prefix := range copulaPrefixes {
		if rest := strings.TrimPrefix(key, prefix); rest != key && p.rules.Has(rest) {
			return rest, true
		}
	}
	return "", false
}

// TypeRechecker re-applies the type validator after enrichment and
// splitting have changed entities. It only ever adds TYPE_VIOLATION.
type TypeRechecker struct {
	counter
	validator *validate.Validator
}

// NewTypeRechecker creates the rechecker
func NewTypeRechecker(v *validate.Validator) *TypeRechecker {
	return &TypeRechecker{validator: v}
}

func (t *TypeRechecker) Name() string  { return NameTypeRechecker }
func (t *TypeRechecker) Priority() int { return 80 }

// Apply flags relationships whose known types contradict the rule table
func (t *TypeRechecker) Apply(_ context.Context, batch []model.Relationship) []model.Relationship {
	out := make([]model.Relationship, 0, len(batch))
	for _, rel := range batch {
		if rel.HasFlag(model.FlagTypeViolation) || !t.validator.Violates(rel) {
			out = append(out, rel)
			continue
		}
		out = append(out, rel.WithFlag(model.FlagTypeViolation))
		t.add("violations", 1)
	}
	return out
}
