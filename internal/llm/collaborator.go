package llm

import (
	"context"

	"github.com/ppiankov/kgcurator/internal/model"
)

// ExtractRequest is a document text window to propose candidates from
type ExtractRequest struct {
	DocID          string
	DocContentHash string
	Text           string
	Offset         int // character offset of Text within the document
}

// ExtractResult holds proposed candidates and the number of lines skipped
type ExtractResult struct {
	Candidates []model.Candidate
	Malformed  int
}

// Extractor proposes candidate relationships from text
type Extractor interface {
	Extract(ctx context.Context, req ExtractRequest) (ExtractResult, error)
}

// ScoreItem is one candidate sent to the scoring collaborator
type ScoreItem struct {
	CandidateUID string `json:"candidate_uid"`
	Source       string `json:"source"`
	Predicate    string `json:"predicate"`
	Target       string `json:"target"`
	SourceType   string `json:"source_type,omitempty"`
	TargetType   string `json:"target_type,omitempty"`
	Evidence     string `json:"evidence,omitempty"`
}

// ScoreRecord is one line of scoring output. Signals are pointers so a
// missing value can be told apart from zero.
type ScoreRecord struct {
	CandidateUID          string   `json:"candidate_uid"`
	TextConfidence        *float64 `json:"text_confidence"`
	KnowledgePlausibility *float64 `json:"knowledge_plausibility"`
	SignalsConflict       bool     `json:"signals_conflict"`
	ConflictExplanation   string   `json:"conflict_explanation,omitempty"`
	SuggestedCorrection   string   `json:"suggested_correction,omitempty"`
}

// ScoreResult holds the parsed records of one batch
type ScoreResult struct {
	Records   []ScoreRecord `json:"records"`
	Malformed int           `json:"malformed,omitempty"`
}

// Scorer produces dual signals for a batch of candidates
type Scorer interface {
	Score(ctx context.Context, items []ScoreItem) (ScoreResult, error)
}

// ItemFor builds the scoring input for a relationship
func ItemFor(rel model.Relationship) ScoreItem {
	item := ScoreItem{
		CandidateUID: rel.CandidateUID,
		Source:       rel.Source,
		Predicate:    rel.Predicate,
		Target:       rel.Target,
	}
	if rel.SourceType != nil {
		item.SourceType = *rel.SourceType
	}
	if rel.TargetType != nil {
		item.TargetType = *rel.TargetType
	}
	if rel.Evidence != nil {
		item.Evidence = rel.Evidence.WindowText
	}
	return item
}
