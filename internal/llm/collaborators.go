package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ppiankov/kgcurator/internal/logging"
	"github.com/ppiankov/kgcurator/internal/model"
)

// ModelScorer scores batches with a language model
type ModelScorer struct {
	completer Completer
	model     string
	maxTokens int
	log       *logging.Logger
}

// NewModelScorer creates a scorer over a completer
func NewModelScorer(c Completer, config Config, log *logging.Logger) *ModelScorer {
	return &ModelScorer{
		completer: c,
		model:     config.Model,
		maxTokens: config.MaxTokens,
		log:       logging.OrNop(log),
	}
}

// Score sends one batch and parses the JSON-lines answer
func (s *ModelScorer) Score(ctx context.Context, items []ScoreItem) (ScoreResult, error) {
	if len(items) == 0 {
		return ScoreResult{}, nil
	}

	prompt, err := renderPrompt(scorePrompt, items)
	if err != nil {
		return ScoreResult{}, Permanent(err)
	}

	raw, err := s.completer.Complete(ctx, CompletionRequest{
		System:    scoreSystem,
		Prompt:    prompt,
		Model:     s.model,
		MaxTokens: s.maxTokens,
	})
	if err != nil {
		return ScoreResult{}, err
	}

	result, errs := ParseScoreLines(raw)
	for _, e := range errs {
		s.log.Warn("skipping malformed score record", "provider", s.completer.Name(), "error", e)
	}
	if len(result.Records) == 0 {
		// Nothing usable at all reads as a truncated or refused answer
		return result, fmt.Errorf("%s returned no score records for %d candidates", s.completer.Name(), len(items))
	}
	return result, nil
}

// ModelExtractor proposes candidates with a language model
type ModelExtractor struct {
	completer Completer
	model     string
	maxTokens int
	log       *logging.Logger
}

// NewModelExtractor creates an extractor over a completer
func NewModelExtractor(c Completer, config Config, log *logging.Logger) *ModelExtractor {
	return &ModelExtractor{
		completer: c,
		model:     config.Model,
		maxTokens: config.MaxTokens,
		log:       logging.OrNop(log),
	}
}

// Extract proposes candidates from one text window. Span offsets in the
// answer are relative to the window and are shifted into the document.
func (e *ModelExtractor) Extract(ctx context.Context, req ExtractRequest) (ExtractResult, error) {
	if req.Text == "" {
		return ExtractResult{}, nil
	}

	prompt, err := renderPrompt(extractPrompt, req.Text)
	if err != nil {
		return ExtractResult{}, Permanent(err)
	}

	raw, err := e.completer.Complete(ctx, CompletionRequest{
		System:    extractSystem,
		Prompt:    prompt,
		Model:     e.model,
		MaxTokens: e.maxTokens,
	})
	if err != nil {
		return ExtractResult{}, err
	}

	result, errs := ParseCandidateLines(raw)
	for _, err := range errs {
		e.log.Warn("skipping malformed candidate", "provider", e.completer.Name(), "doc_id", req.DocID, "error", err)
	}

	runes := []rune(req.Text)
	for i := range result.Candidates {
		c := &result.Candidates[i]
		if c.Evidence == nil {
			continue
		}
		start := max(0, min(c.Evidence.StartChar, len(runes)))
		end := max(start, min(c.Evidence.EndChar, len(runes)))
		c.Evidence = &model.EvidenceSpan{
			DocID:          req.DocID,
			DocContentHash: req.DocContentHash,
			StartChar:      req.Offset + start,
			EndChar:        req.Offset + end,
			WindowText:     string(runes[start:end]),
		}
	}
	return result, nil
}

func toJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
