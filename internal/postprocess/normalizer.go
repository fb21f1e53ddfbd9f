package postprocess

import (
	"context"
	"strings"

	"github.com/ppiankov/kgcurator/internal/model"
)

// Normalizer collapses whitespace and stray punctuation around entities
// and rewrites the predicate to lower snake case. Entity casing is kept;
// identity hashing lower-cases on its own.
type Normalizer struct {
	counter
}

// NewNormalizer creates the normalizer
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

func (n *Normalizer) Name() string  { return NameNormalizer }
func (n *Normalizer) Priority() int { return 10 }

// Apply normalizes every relationship in the batch
func (n *Normalizer) Apply(_ context.Context, batch []model.Relationship) []model.Relationship {
	out := make([]model.Relationship, 0, len(batch))
	for _, rel := range batch {
		source := cleanEntity(rel.Source)
		target := cleanEntity(rel.Target)
		predicate := model.CanonicalPredicate(rel.Predicate)

		if source == rel.Source && target == rel.Target && predicate == rel.Predicate {
			out = append(out, rel)
			continue
		}

		r := rel.Clone()
		if source != r.Source {
			if r.SourceSurface == "" {
				r.SourceSurface = r.Source
			}
			r.Source = source
			n.add("entities", 1)
		}
		if target != r.Target {
			if r.TargetSurface == "" {
				r.TargetSurface = r.Target
			}
			r.Target = target
			n.add("entities", 1)
		}
		if predicate != r.Predicate {
			r.Predicate = predicate
			n.add("predicates", 1)
		}
		r.Rekey()
		out = append(out, r)
	}
	return out
}

const entityTrim = " \t\r\n\"'`“”‘’.,;:"

// cleanEntity collapses whitespace and trims quotes and trailing
// punctuation. Idempotent.
func cleanEntity(s string) string {
	for {
		next := strings.Trim(strings.Join(strings.Fields(s), " "), entityTrim)
		if next == s {
			return s
		}
		s = next
	}
}
