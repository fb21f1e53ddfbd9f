package postprocess

import (
	"context"
	"fmt"

	"github.com/ppiankov/kgcurator/internal/model"
)

// Normative modes
const (
	NormativeKeep = ""
	NormativeFlag = "flag"
	NormativeDrop = "drop"
)

// SubjectiveFilter handles opinions and recommendations once the classifier
// has tagged them: kept as they are, marked SUBJECTIVE, or dropped.
type SubjectiveFilter struct {
	counter
	mode string
}

// NewSubjectiveFilter creates the filter for a normative mode
func NewSubjectiveFilter(mode string) (*SubjectiveFilter, error) {
	switch mode {
	case NormativeKeep, "keep":
		return &SubjectiveFilter{mode: NormativeKeep}, nil
	case NormativeFlag, NormativeDrop:
		return &SubjectiveFilter{mode: mode}, nil
	default:
		return nil, fmt.Errorf("unknown normative mode %q (want keep, flag or drop)", mode)
	}
}

func (f *SubjectiveFilter) Name() string  { return NameSubjectiveFilter }
func (f *SubjectiveFilter) Priority() int { return 105 }

// Apply flags or drops normative relationships
func (f *SubjectiveFilter) Apply(_ context.Context, batch []model.Relationship) []model.Relationship {
	if f.mode == NormativeKeep {
		return batch
	}
	out := make([]model.Relationship, 0, len(batch))
	for _, rel := range batch {
		if rel.ClaimType != model.ClaimTypeNormative {
			out = append(out, rel)
			continue
		}
		switch {
		case f.mode == NormativeDrop:
			f.add("dropped", 1)
		case rel.HasFlag(model.FlagSubjective):
			out = append(out, rel)
		default:
			out = append(out, rel.WithFlag(model.FlagSubjective))
			f.add("flagged", 1)
		}
	}
	return out
}
