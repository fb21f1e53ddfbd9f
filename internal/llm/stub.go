package llm

import (
	"context"
	"sync"

	"github.com/ppiankov/kgcurator/internal/model"
)

// StubScorer returns fixed records; Fail lets a test fail chosen calls.
// It is safe for concurrent use.
type StubScorer struct {
	Records map[string]ScoreRecord
	Fail    func(call int, items []ScoreItem) error

	mu    sync.Mutex
	calls int
}

// Score implements Scorer
func (s *StubScorer) Score(ctx context.Context, items []ScoreItem) (ScoreResult, error) {
	s.mu.Lock()
	s.calls++
	call := s.calls
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return ScoreResult{}, err
	}
	if s.Fail != nil {
		if err := s.Fail(call, items); err != nil {
			return ScoreResult{}, err
		}
	}

	var out ScoreResult
	for _, item := range items {
		if r, ok := s.Records[item.CandidateUID]; ok {
			out.Records = append(out.Records, r)
		}
	}
	return out, nil
}

// Calls returns how many times Score ran
func (s *StubScorer) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// StubExtractor returns fixed candidates
type StubExtractor struct {
	Candidates []model.Candidate
	Err        error
}

// Extract implements Extractor
func (s *StubExtractor) Extract(ctx context.Context, _ ExtractRequest) (ExtractResult, error) {
	if s.Err != nil {
		return ExtractResult{}, s.Err
	}
	if err := ctx.Err(); err != nil {
		return ExtractResult{}, err
	}
	return ExtractResult{Candidates: append([]model.Candidate(nil), s.Candidates...)}, nil
}

// StubCompleter returns a canned answer, for provider-free tests
type StubCompleter struct {
	Answer string
	Err    error

	mu      sync.Mutex
	Prompts []string
}

// Name implements Completer
func (s *StubCompleter) Name() string { return "stub" }

// Complete implements Completer
func (s *StubCompleter) Complete(_ context.Context, req CompletionRequest) (string, error) {
	s.mu.Lock()
	s.Prompts = append(s.Prompts, req.Prompt)
	s.mu.Unlock()
	return s.Answer, s.Err
}
