package postprocess

import (
	"context"
	"fmt"
	"sort"

	"github.com/ppiankov/kgcurator/internal/logging"
	"github.com/ppiankov/kgcurator/internal/model"
)

// Engine runs modules in priority order. The order is fixed at
// construction and identical for every batch.
type Engine struct {
	modules []Module
	log     *logging.Logger
}

// NewEngine sorts modules by priority (then name) and checks placement:
// the normalizer must run strictly first and the deduplicator strictly last
func NewEngine(log *logging.Logger, modules ...Module) (*Engine, error) {
	if len(modules) == 0 {
		return nil, fmt.Errorf("no modules")
	}

	sorted := make([]Module, len(modules))
	copy(sorted, modules)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Priority() != sorted[j].Priority() {
			return sorted[i].Priority() < sorted[j].Priority()
		}
		return sorted[i].Name() < sorted[j].Name()
	})

	seen := make(map[string]bool, len(sorted))
	for _, m := range sorted {
		if seen[m.Name()] {
			return nil, fmt.Errorf("duplicate module %q", m.Name())
		}
		seen[m.Name()] = true
	}

	first, last := sorted[0], sorted[len(sorted)-1]
	if first.Name() != NameNormalizer {
		return nil, fmt.Errorf("%s must run first, got %s", NameNormalizer, first.Name())
	}
	if last.Name() != NameDeduplicator {
		return nil, fmt.Errorf("%s must run last, got %s", NameDeduplicator, last.Name())
	}
	if len(sorted) > 1 {
		if sorted[1].Priority() == first.Priority() {
			return nil, fmt.Errorf("%s shares priority %d with %s", NameNormalizer, first.Priority(), sorted[1].Name())
		}
		if sorted[len(sorted)-2].Priority() == last.Priority() {
			return nil, fmt.Errorf("%s shares priority %d with %s", NameDeduplicator, last.Priority(), sorted[len(sorted)-2].Name())
		}
	}

	return &Engine{modules: sorted, log: logging.OrNop(log)}, nil
}

// Modules returns the modules in execution order
func (e *Engine) Modules() []Module {
	out := make([]Module, len(e.modules))
	copy(out, e.modules)
	return out
}

// Run applies every module in order and reports candidates that no longer
// appear in the batch after a module, with that module as the reason.
// Every stage always runs to completion; ctx only reaches the modules'
// own lookups.
func (e *Engine) Run(ctx context.Context, batch []model.Relationship) ([]model.Relationship, []model.Exclusion) {
	current := batch
	var exclusions []model.Exclusion

	for _, m := range e.modules {
		before := candidateUIDs(current)
		next := m.Apply(ctx, current)
		after := candidateUIDs(next)

		for _, uid := range before.order {
			if !after.set[uid] {
				exclusions = append(exclusions, model.Exclusion{
					CandidateUID: uid,
					Reason:       "removed by " + m.Name(),
				})
			}
		}

		e.log.Debug("module applied",
			"module", m.Name(),
			"priority", m.Priority(),
			"in", len(current),
			"out", len(next),
		)
		current = next
	}

	return current, exclusions
}

// Stats returns a snapshot of every module's counters keyed by module name
func (e *Engine) Stats() map[string]map[string]int {
	out := make(map[string]map[string]int, len(e.modules))
	for _, m := range e.modules {
		out[m.Name()] = m.Stats()
	}
	return out
}

type uidSet struct {
	order []string
	set   map[string]bool
}

func candidateUIDs(batch []model.Relationship) uidSet {
	s := uidSet{set: make(map[string]bool, len(batch))}
	for _, r := range batch {
		if r.CandidateUID == "" || s.set[r.CandidateUID] {
			continue
		}
		s.set[r.CandidateUID] = true
		s.order = append(s.order, r.CandidateUID)
	}
	return s
}
