package postprocess

import (
	"context"
	"strings"

	"github.com/ppiankov/kgcurator/internal/docstore"
	"github.com/ppiankov/kgcurator/internal/extract"
	"github.com/ppiankov/kgcurator/internal/logging"
	"github.com/ppiankov/kgcurator/internal/model"
)

// Scope names, narrowest first
const (
	ScopeSentence         = "sentence"
	ScopePreviousSentence = "previous_sentence"
	ScopeParagraph        = "paragraph"
)

// ContextEnricher replaces a vague source or target with a named entity
// from the surrounding text. It searches the evidence sentence, then the
// previous sentence, then the paragraph, and stops at the first match.
// Entities it cannot resolve are flagged VAGUE_SOURCE / VAGUE_TARGET.
type ContextEnricher struct {
	counter
	docs      docstore.TextSource
	matcher   *VagueMatcher
	prevChars int
	paraChars int
	log       *logging.Logger
}

// NewContextEnricher creates the enricher. docs may be nil, in which case
// only the span's window text is searched.
func NewContextEnricher(docs docstore.TextSource, matcher *VagueMatcher, cfg model.PipelineConfig, log *logging.Logger) *ContextEnricher {
	e := &ContextEnricher{
		docs:      docs,
		matcher:   matcher,
		prevChars: cfg.PreviousSentenceChars,
		paraChars: cfg.ParagraphChars,
		log:       logging.OrNop(log),
	}
	if e.prevChars <= 0 {
		e.prevChars = 300
	}
	if e.paraChars <= 0 {
		e.paraChars = 1200
	}
	return e
}

func (e *ContextEnricher) Name() string  { return NameContextEnricher }
func (e *ContextEnricher) Priority() int { return 30 }

type pick int

const (
	pickFirst pick = iota
	pickLast
	pickNearestBefore
)

type scope struct {
	name     string
	mentions []mention
	anchor   int
	pick     pick
}

// Apply resolves vague entities where the context allows
func (e *ContextEnricher) Apply(ctx context.Context, batch []model.Relationship) []model.Relationship {
	out := make([]model.Relationship, 0, len(batch))
	for _, rel := range batch {
		sourceVague := e.matcher.Vague(rel.Source)
		targetVague := e.matcher.Vague(rel.Target)
		if !sourceVague && !targetVague {
			out = append(out, rel)
			continue
		}

		r := rel.Clone()
		scopes := e.scopes(ctx, r)
		rewritten := false

		if sourceVague {
			if name, where, ok := e.resolve(scopes, r.Source, r.Target); ok {
				if r.SourceSurface == "" {
					r.SourceSurface = r.Source
				}
				r.Source = name
				delete(r.Flags, model.FlagVagueSource)
				rewritten = true
				e.add("resolved_"+where, 1)
			} else {
				r.Flags[model.FlagVagueSource] = true
				e.add("unresolved", 1)
			}
		}
		if targetVague {
			if name, where, ok := e.resolve(scopes, r.Target, r.Source); ok {
				if r.TargetSurface == "" {
					r.TargetSurface = r.Target
				}
				r.Target = name
				delete(r.Flags, model.FlagVagueTarget)
				rewritten = true
				e.add("resolved_"+where, 1)
			} else {
				r.Flags[model.FlagVagueTarget] = true
				e.add("unresolved", 1)
			}
		}

		if rewritten {
			r.Flags[model.FlagContextEnriched] = true
			r.Rekey()
		}
		out = append(out, r)
	}
	return out
}

// resolve returns the first acceptable mention across scopes. Mentions are
// cleaned the way the normalizer cleans entities, so a rerun of the
// pipeline does not rewrite them again.
func (e *ContextEnricher) resolve(scopes []scope, vague, other string) (string, string, bool) {
	skip := map[string]bool{
		model.Canonical(vague): true,
		model.Canonical(other): true,
	}
	for _, s := range scopes {
		var usable []mention
		for _, m := range s.mentions {
			m.Text = cleanEntity(m.Text)
			if m.Text == "" || skip[model.Canonical(m.Text)] || e.matcher.Vague(m.Text) {
				continue
			}
			usable = append(usable, m)
		}
		if len(usable) == 0 {
			continue
		}

		switch s.pick {
		case pickLast:
			return usable[len(usable)-1].Text, s.name, true
		case pickNearestBefore:
			best := -1
			for i, m := range usable {
				if m.Start < s.anchor {
					best = i
				}
			}
			if best < 0 {
				best = 0
			}
			return usable[best].Text, s.name, true
		default:
			return usable[0].Text, s.name, true
		}
	}
	return "", "", false
}

// scopes builds the search windows around the evidence span
func (e *ContextEnricher) scopes(ctx context.Context, r model.Relationship) []scope {
	span := r.Evidence
	fallback := func() []scope {
		if span == nil || strings.TrimSpace(span.WindowText) == "" {
			return nil
		}
		return []scope{{name: ScopeSentence, mentions: mentions(span.WindowText, 0), pick: pickFirst}}
	}

	// Offsets of a stale span point into an older revision
	if e.docs == nil || !span.Valid() || r.EvidenceStatus == model.EvidenceStale {
		return fallback()
	}

	lo := max(0, span.StartChar-e.paraChars)
	window, err := e.docs.Text(ctx, span.DocID, lo, span.EndChar+e.paraChars)
	if err != nil || window == "" {
		e.log.Debug("context lookup failed", "doc_id", span.DocID, "error", err)
		return fallback()
	}
	anchor := span.StartChar - lo

	var out []scope
	sentences := extract.Sentences(window)
	if i := extract.Containing(sentences, anchor); i >= 0 {
		s := sentences[i]
		out = append(out, scope{name: ScopeSentence, mentions: mentions(s.Text, s.Start), anchor: anchor, pick: pickFirst})

		if i > 0 {
			prev := sentences[i-1]
			text, base := prev.Text, prev.Start
			if runes := []rune(text); len(runes) > e.prevChars {
				cut := len(runes) - e.prevChars
				text, base = string(runes[cut:]), base+cut
			}
			out = append(out, scope{name: ScopePreviousSentence, mentions: mentions(text, base), anchor: anchor, pick: pickLast})
		}
	}

	paragraphs := extract.Paragraphs(window)
	if j := extract.Containing(paragraphs, anchor); j >= 0 {
		p := paragraphs[j]
		out = append(out, scope{name: ScopeParagraph, mentions: mentions(p.Text, p.Start), anchor: anchor, pick: pickNearestBefore})
	}
	return out
}
