package postprocess

import (
	"context"

	"github.com/ppiankov/kgcurator/internal/model"
)

// ConfidenceFilter drops relationships whose p_true falls below a
// threshold. A flag can carry its own, stricter threshold; the highest
// applicable one wins. With no thresholds configured nothing is dropped.
// Relationships kept below flagBelow are marked LOW_CONFIDENCE.
type ConfidenceFilter struct {
	counter
	threshold float64
	perFlag   map[model.Flag]float64
	flagBelow float64
}

// NewConfidenceFilter creates the filter from pipeline settings
func NewConfidenceFilter(cfg model.PipelineConfig) *ConfidenceFilter {
	perFlag := make(map[model.Flag]float64, len(cfg.FlagThresholds))
	for flag, t := range cfg.FlagThresholds {
		perFlag[model.Flag(flag)] = t
	}
	return &ConfidenceFilter{
		threshold: cfg.ConfidenceThreshold,
		perFlag:   perFlag,
		flagBelow: cfg.LowConfidenceFlag,
	}
}

func (f *ConfidenceFilter) Name() string  { return NameConfidenceFilter }
func (f *ConfidenceFilter) Priority() int { return 110 }

// Apply filters and marks low-confidence relationships
func (f *ConfidenceFilter) Apply(_ context.Context, batch []model.Relationship) []model.Relationship {
	out := make([]model.Relationship, 0, len(batch))
	for _, rel := range batch {
		if rel.PTrue < f.thresholdFor(rel) {
			f.add("dropped", 1)
			continue
		}
		if rel.PTrue < f.flagBelow && !rel.HasFlag(model.FlagLowConfidence) {
			out = append(out, rel.WithFlag(model.FlagLowConfidence))
			f.add("flagged", 1)
			continue
		}
		out = append(out, rel)
	}
	return out
}

func (f *ConfidenceFilter) thresholdFor(rel model.Relationship) float64 {
	t := f.threshold
	for flag, ft := range f.perFlag {
		if rel.HasFlag(flag) && ft > t {
			t = ft
		}
	}
	return t
}
