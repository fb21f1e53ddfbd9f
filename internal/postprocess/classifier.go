package postprocess

import (
	"context"
	"strings"

	"github.com/ppiankov/kgcurator/internal/model"
)

var (
	attributionPredicates = map[string]bool{
		"authored": true, "wrote": true, "founded": true, "founded_by": true, "created": true,
		"created_by": true, "invented": true, "published": true, "directed": true, "said": true,
		"stated": true, "coined": true, "composed": true, "designed": true, "developed": true,
	}
	definitionPredicates = map[string]bool{
		"is_a": true, "is_an": true, "is": true, "defined_as": true, "type_of": true,
		"instance_of": true, "kind_of": true, "means": true, "refers_to": true, "subclass_of": true,
	}
	normativeCues = []string{
		"should", "must", "ought", "best", "better", "worse", "worst", "important", "essential",
		"recommend", "need", "needs", "crucial", "vital", "beneficial", "harmful", "good", "bad",
	}
)

// ClaimClassifier tags each relationship as factual, attribution,
// definition or normative. The tag is a pure function of predicate and
// target, so reclassifying is stable.
type ClaimClassifier struct {
	counter
}

// NewClaimClassifier creates the classifier
func NewClaimClassifier() *ClaimClassifier {
	return &ClaimClassifier{}
}

func (c *ClaimClassifier) Name() string  { return NameClaimClassifier }
func (c *ClaimClassifier) Priority() int { return 100 }

// Apply sets ClaimType where it differs from the computed class
func (c *ClaimClassifier) Apply(_ context.Context, batch []model.Relationship) []model.Relationship {
	out := make([]model.Relationship, 0, len(batch))
	for _, rel := range batch {
		class := Classify(rel.Predicate, rel.Target)
		if rel.ClaimType == class {
			out = append(out, rel)
			continue
		}
		r := rel.Clone()
		r.ClaimType = class
		c.add(string(class), 1)
		out = append(out, r)
	}
	return out
}

// Classify returns the claim type for a predicate and target
func Classify(predicate, target string) model.ClaimType {
	p := model.CanonicalPredicate(predicate)
	words := strings.Fields(strings.ReplaceAll(p, "_", " ") + " " + model.Canonical(target))
	for _, w := range words {
		for _, cue := range normativeCues {
			if w == cue {
				return model.ClaimTypeNormative
			}
		}
	}
	switch {
	case attributionPredicates[p]:
		return model.ClaimTypeAttribution
	case definitionPredicates[p]:
		return model.ClaimTypeDefinition
	default:
		return model.ClaimTypeFactual
	}
}
