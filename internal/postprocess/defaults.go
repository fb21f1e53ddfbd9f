package postprocess

import (
	"fmt"

	"github.com/ppiankov/kgcurator/internal/docstore"
	"github.com/ppiankov/kgcurator/internal/logging"
	"github.com/ppiankov/kgcurator/internal/model"
	"github.com/ppiankov/kgcurator/internal/validate"
)

// DefaultModules builds the standard module set: resolve vague entities
// before blocking them, normalize first, deduplicate last
func DefaultModules(cfg *model.Config, docs docstore.TextSource, log *logging.Logger) ([]Module, error) {
	matcher, err := NewVagueMatcher(cfg.Pipeline.VaguePatterns)
	if err != nil {
		return nil, err
	}
	rules := validate.NewRuleTable(cfg.Rules)
	subjective, err := NewSubjectiveFilter(cfg.Pipeline.NormativeMode)
	if err != nil {
		return nil, err
	}

	return []Module{
		NewNormalizer(),
		NewContextEnricher(docs, matcher, cfg.Pipeline, log),
		NewListSplitter(cfg.Pipeline.ListConjunctions),
		NewPredicateNormalizer(cfg.Pipeline.PredicateAliases, rules),
		NewTypeRechecker(validate.NewValidator(rules)),
		NewVagueEntityBlocker(matcher),
		NewClaimClassifier(),
		subjective,
		NewConfidenceFilter(cfg.Pipeline),
		NewDeduplicator(),
	}, nil
}

// NewDefaultEngine builds an engine over DefaultModules
func NewDefaultEngine(cfg *model.Config, docs docstore.TextSource, log *logging.Logger) (*Engine, error) {
	modules, err := DefaultModules(cfg, docs, log)
	if err != nil {
		return nil, fmt.Errorf("build modules: %w", err)
	}
	return NewEngine(log, modules...)
}
