package postprocess

import (
	"context"
	"fmt"
	"strings"

	"github.com/coregx/ahocorasick"
	"github.com/orsinium-labs/stopwords"

	"github.com/ppiankov/kgcurator/internal/model"
)

var english = stopwords.MustGet("en")

// VagueMatcher recognizes entity text that carries no referent on its own:
// pronouns and empty abstractions such as "the answer". An entity is vague
// when it contains at least one pattern and every remaining word is a
// stopword.
type VagueMatcher struct {
	ac       *ahocorasick.Automaton
	patterns []string
}

// NewVagueMatcher compiles the patterns into an automaton
func NewVagueMatcher(patterns []string) (*VagueMatcher, error) {
	seen := make(map[string]bool, len(patterns))
	var keys []string
	for _, p := range patterns {
		k := model.Canonical(p)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return &VagueMatcher{}, nil
	}

	ac, err := ahocorasick.NewBuilder().
		AddStrings(keys).
		SetMatchKind(ahocorasick.LeftmostLongest).
		SetPrefilter(true).
		Build()
	if err != nil {
		return nil, fmt.Errorf("compile vague patterns: %w", err)
	}
	return &VagueMatcher{ac: ac, patterns: keys}, nil
}

// Vague reports whether the entity text is unfixably vague on its own
func (m *VagueMatcher) Vague(entity string) bool {
	if m == nil || m.ac == nil {
		return false
	}
	text := model.Canonical(cleanEntity(entity))
	if text == "" {
		return false
	}

	haystack := []byte(text)
	covered := make([]bool, len(haystack))
	matched := false
	for _, hit := range m.ac.FindAllOverlapping(haystack) {
		if !wordBounded(haystack, hit.Start, hit.End) {
			continue
		}
		matched = true
		for i := hit.Start; i < hit.End; i++ {
			covered[i] = true
		}
	}
	if !matched {
		return false
	}

	// Whatever the patterns left over must be filler
	var rest strings.Builder
	for i, b := range haystack {
		if covered[i] {
			rest.WriteByte(' ')
			continue
		}
		rest.WriteByte(b)
	}
	for _, w := range strings.Fields(rest.String()) {
		if !english.Contains(w) {
			return false
		}
	}
	return true
}

func wordBounded(text []byte, start, end int) bool {
	if start < 0 || end > len(text) || start >= end {
		return false
	}
	if start > 0 && text[start-1] != ' ' {
		return false
	}
	if end < len(text) && text[end] != ' ' {
		return false
	}
	return true
}

// VagueEntityBlocker drops relationships whose source or target is still
// vague after context enrichment
type VagueEntityBlocker struct {
	counter
	matcher *VagueMatcher
}

// NewVagueEntityBlocker creates the blocker
func NewVagueEntityBlocker(matcher *VagueMatcher) *VagueEntityBlocker {
	return &VagueEntityBlocker{matcher: matcher}
}

func (b *VagueEntityBlocker) Name() string  { return NameVagueEntityBlocker }
func (b *VagueEntityBlocker) Priority() int { return 85 }

// Apply removes relationships with an unresolved vague entity
func (b *VagueEntityBlocker) Apply(_ context.Context, batch []model.Relationship) []model.Relationship {
	out := make([]model.Relationship, 0, len(batch))
	for _, rel := range batch {
		switch {
		case rel.HasFlag(model.FlagVagueSource) || b.matcher.Vague(rel.Source):
			b.add("blocked_source", 1)
		case rel.HasFlag(model.FlagVagueTarget) || b.matcher.Vague(rel.Target):
			b.add("blocked_target", 1)
		default:
			out = append(out, rel)
		}
	}
	return out
}
