package score

import (
	"github.com/ppiankov/kgcurator/internal/model"
)

// PatternPriors supplies the prior belief for a predicate, derived from how
// often relationships with that predicate were historically accepted
type PatternPriors struct {
	def         float64
	byPredicate map[string]float64
}

// NewPatternPriors creates priors from configuration
func NewPatternPriors(cfg model.PriorConfig) *PatternPriors {
	def := cfg.Default
	if def <= 0 || def >= 1 {
		def = 0.5
	}

	p := &PatternPriors{
		def:         def,
		byPredicate: make(map[string]float64, len(cfg.Predicates)),
	}
	for predicate, prior := range cfg.Predicates {
		if prior < 0 || prior > 1 {
			continue
		}
		p.byPredicate[model.CanonicalPredicate(predicate)] = prior
	}
	return p
}

// Prior returns the prior for the predicate, or the default for unseen ones
func (p *PatternPriors) Prior(predicate string) float64 {
	if v, ok := p.byPredicate[model.CanonicalPredicate(predicate)]; ok {
		return v
	}
	return p.def
}

// PredicateStats counts historical outcomes for one predicate
type PredicateStats struct {
	Total    int
	Accepted int
}

// PriorsFromStats builds a new prior configuration from historical counts,
// smoothing each predicate toward the default with strength alpha:
// prior = (accepted + alpha*default) / (total + alpha)
func PriorsFromStats(stats map[string]PredicateStats, def, alpha float64) model.PriorConfig {
	if alpha <= 0 {
		alpha = 1
	}
	cfg := model.PriorConfig{
		Default:    def,
		Predicates: make(map[string]float64, len(stats)),
	}
	for predicate, s := range stats {
		if s.Total <= 0 {
			continue
		}
		cfg.Predicates[model.CanonicalPredicate(predicate)] =
			(float64(s.Accepted) + alpha*def) / (float64(s.Total) + alpha)
	}
	return cfg
}
