package llm

import (
	"context"
	"fmt"
	"os"
	"sort"
	"unicode/utf8"

	"github.com/ppiankov/kgcurator/internal/model"
)

// FixtureScorer answers from a JSON-lines file of score records, for
// offline runs. Candidates without a record get none.
type FixtureScorer struct {
	records   map[string]ScoreRecord
	malformed int
}

// LoadScoreFixture reads score records from path
func LoadScoreFixture(path string) (*FixtureScorer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read score fixture: %w", err)
	}
	result, _ := ParseScoreLines(string(data))
	s := &FixtureScorer{
		records:   make(map[string]ScoreRecord, len(result.Records)),
		malformed: result.Malformed,
	}
	for _, r := range result.Records {
		s.records[r.CandidateUID] = r
	}
	return s, nil
}

// Score returns the stored records for the requested candidates
func (s *FixtureScorer) Score(ctx context.Context, items []ScoreItem) (ScoreResult, error) {
	if err := ctx.Err(); err != nil {
		return ScoreResult{}, err
	}
	var out ScoreResult
	for _, item := range items {
		if r, ok := s.records[item.CandidateUID]; ok {
			out.Records = append(out.Records, r)
		}
	}
	return out, nil
}

// Malformed returns the number of fixture lines that could not be parsed
func (s *FixtureScorer) Malformed() int {
	return s.malformed
}

// FixtureExtractor answers from a JSON-lines file of candidates, keyed by
// the document id in each candidate's evidence span
type FixtureExtractor struct {
	byDoc     map[string][]model.Candidate
	malformed int
}

// LoadCandidateFixture reads candidates from path
func LoadCandidateFixture(path string) (*FixtureExtractor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read candidate fixture: %w", err)
	}
	result, _ := ParseCandidateLines(string(data))
	e := &FixtureExtractor{byDoc: make(map[string][]model.Candidate), malformed: result.Malformed}
	for _, c := range result.Candidates {
		doc := ""
		if c.Evidence != nil {
			doc = c.Evidence.DocID
		}
		e.byDoc[doc] = append(e.byDoc[doc], c)
	}
	return e, nil
}

// Extract returns the stored candidates for the requested document whose
// span starts inside the requested window. Candidates without a span, or
// without a document, go to the window at offset 0. A request without text
// covers the whole document.
func (e *FixtureExtractor) Extract(ctx context.Context, req ExtractRequest) (ExtractResult, error) {
	if err := ctx.Err(); err != nil {
		return ExtractResult{}, err
	}
	whole := req.Text == ""
	end := req.Offset + utf8.RuneCountInString(req.Text)

	var out ExtractResult
	for _, c := range e.byDoc[req.DocID] {
		if c.Evidence == nil {
			if whole || req.Offset == 0 {
				out.Candidates = append(out.Candidates, c)
			}
			continue
		}
		if whole || (c.Evidence.StartChar >= req.Offset && c.Evidence.StartChar < end) {
			out.Candidates = append(out.Candidates, c)
		}
	}
	if whole || req.Offset == 0 {
		out.Candidates = append(out.Candidates, e.byDoc[""]...)
	}
	return out, nil
}

// Documents lists the document ids the fixture has candidates for
func (e *FixtureExtractor) Documents() []string {
	var ids []string
	for id := range e.byDoc {
		if id != "" {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
