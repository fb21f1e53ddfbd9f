package postprocess

import (
	"context"

	"github.com/ppiankov/kgcurator/internal/model"
)

// Deduplicator collapses relationships sharing a claim_uid, keeping the
// one with the highest p_true (the first seen on a tie). Output keeps the
// order of first occurrence.
type Deduplicator struct {
	counter
}

// NewDeduplicator creates the deduplicator
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{}
}

func (d *Deduplicator) Name() string  { return NameDeduplicator }
func (d *Deduplicator) Priority() int { return 1000 }

// Apply removes duplicate claims
func (d *Deduplicator) Apply(_ context.Context, batch []model.Relationship) []model.Relationship {
	index := make(map[string]int, len(batch))
	out := make([]model.Relationship, 0, len(batch))

	for _, rel := range batch {
		if rel.ClaimUID == "" {
			rel = rel.Clone()
			rel.Rekey()
		}
		i, seen := index[rel.ClaimUID]
		if !seen {
			index[rel.ClaimUID] = len(out)
			out = append(out, rel)
			continue
		}
		d.add("duplicates_removed", 1)
		if rel.PTrue > out[i].PTrue {
			out[i] = rel
		}
	}
	return out
}
