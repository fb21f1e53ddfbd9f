package postprocess

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/ppiankov/kgcurator/internal/model"
)

const maxListElementWords = 6

// ListSplitter emits one relationship per element when a source or target
// holds a conjunctive list ("compost and biochar"). Children keep the
// parent's candidate_uid and evidence span; distinct entities give them
// distinct claim_uids.
type ListSplitter struct {
	counter
	conj  *regexp.Regexp
	comma *regexp.Regexp
}

// NewListSplitter creates a splitter for the given conjunctions
func NewListSplitter(conjunctions []string) *ListSplitter {
	if len(conjunctions) == 0 {
		conjunctions = []string{"and", "&"}
	}
	// Longest first so "as well as" wins over shorter alternatives
	sorted := append([]string(nil), conjunctions...)
	sort.Slice(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })

	alts := make([]string, 0, len(sorted))
	for _, c := range sorted {
		if c = strings.TrimSpace(c); c != "" {
			alts = append(alts, regexp.QuoteMeta(c))
		}
	}
	group := "(?:" + strings.Join(alts, "|") + ")"
	return &ListSplitter{
		conj:  regexp.MustCompile(`(?i)\s*,?\s+` + group + `\s+`),
		comma: regexp.MustCompile(`\s*,\s*`),
	}
}

func (s *ListSplitter) Name() string  { return NameListSplitter }
func (s *ListSplitter) Priority() int { return 40 }

// Apply splits list-valued slots
func (s *ListSplitter) Apply(_ context.Context, batch []model.Relationship) []model.Relationship {
	out := make([]model.Relationship, 0, len(batch))
	for _, rel := range batch {
		sources := s.split(rel.Source)
		targets := s.split(rel.Target)
		if len(sources) < 2 && len(targets) < 2 {
			out = append(out, rel)
			continue
		}
		if len(sources) < 2 {
			sources = []string{rel.Source}
		}
		if len(targets) < 2 {
			targets = []string{rel.Target}
		}

		for _, src := range sources {
			for _, tgt := range targets {
				child := rel.Clone()
				if src != rel.Source {
					if child.SourceSurface == "" {
						child.SourceSurface = rel.Source
					}
					child.Source = src
				}
				if tgt != rel.Target {
					if child.TargetSurface == "" {
						child.TargetSurface = rel.Target
					}
					child.Target = tgt
				}
				child.Flags[model.FlagListSplit] = true
				child.Rekey()
				out = append(out, child)
			}
		}
		s.add("split", 1)
		s.add("emitted", len(sources)*len(targets))
	}
	return out
}

// split returns the list elements of an entity, or nil when it is not a list
func (s *ListSplitter) split(entity string) []string {
	if !s.conj.MatchString(entity) {
		return nil
	}

	var parts []string
	for _, piece := range s.conj.Split(entity, -1) {
		// "A, B and C": commas only separate elements once a conjunction is present
		parts = append(parts, s.comma.Split(piece, -1)...)
	}

	seen := make(map[string]bool, len(parts))
	var out []string
	for _, p := range parts {
		p = cleanEntity(p)
		if p == "" {
			return nil
		}
		if len(strings.Fields(p)) > maxListElementWords || fillerOnly(p) {
			return nil
		}
		if key := model.Canonical(p); !seen[key] {
			seen[key] = true
			out = append(out, p)
		}
	}
	if len(out) < 2 {
		return nil
	}
	// "Simon & Schuster": two single capitalized words joined by & read as one name
	if len(out) == 2 && strings.Contains(entity, "&") && singleName(out[0]) && singleName(out[1]) {
		return nil
	}
	return out
}

func fillerOnly(s string) bool {
	for _, w := range strings.Fields(strings.ToLower(s)) {
		if !english.Contains(w) {
			return false
		}
	}
	return true
}

func singleName(s string) bool {
	return !strings.Contains(s, " ") && capitalized(s)
}
