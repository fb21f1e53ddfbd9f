package postprocess

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ppiankov/kgcurator/internal/model"
)

func newRel(uid, source, predicate, target string, span *model.EvidenceSpan) model.Relationship {
	r := model.NewRelationship(model.Candidate{
		CandidateUID: uid,
		Source:       source,
		Predicate:    predicate,
		Target:       target,
		Evidence:     span,
	}, nil, nil)
	r.PTrue = 0.8
	r.Rekey()
	return r
}

// spanOf returns a span covering the first occurrence of part in text
func spanOf(t *testing.T, docID, text, part string) *model.EvidenceSpan {
	t.Helper()
	start := strings.Index(text, part)
	require.GreaterOrEqual(t, start, 0, "%q not in document", part)
	return &model.EvidenceSpan{
		DocID:          docID,
		DocContentHash: "H-" + docID,
		StartChar:      start,
		EndChar:        start + len(part),
		WindowText:     part,
	}
}

func defaultMatcher(t *testing.T) *VagueMatcher {
	t.Helper()
	m, err := NewVagueMatcher(model.DefaultConfig().Pipeline.VaguePatterns)
	require.NoError(t, err)
	return m
}

// reprioritized moves a module to a different priority
type reprioritized struct {
	Module
	priority int
}

func (r reprioritized) Priority() int { return r.priority }

func targets(batch []model.Relationship) []string {
	out := make([]string, 0, len(batch))
	for _, r := range batch {
		out = append(out, r.Target)
	}
	return out
}
