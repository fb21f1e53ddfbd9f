package model

import "strings"

// EvidenceSpan is the exact document location a relationship is grounded in
type EvidenceSpan struct {
	DocID          string `json:"doc_id" yaml:"doc_id"`
	DocContentHash string `json:"doc_content_hash" yaml:"doc_content_hash"`
	StartChar      int    `json:"start_char" yaml:"start_char"`
	EndChar        int    `json:"end_char" yaml:"end_char"`
	WindowText     string `json:"window_text,omitempty" yaml:"window_text,omitempty"`
}

// Complete reports whether every identity-bearing field is present
func (e *EvidenceSpan) Complete() bool {
	if e == nil {
		return false
	}
	return strings.TrimSpace(e.DocID) != "" && strings.TrimSpace(e.DocContentHash) != ""
}

// Valid reports whether the span is complete and its offsets are ordered
func (e *EvidenceSpan) Valid() bool {
	return e.Complete() && e.StartChar >= 0 && e.StartChar < e.EndChar
}

// Clone returns a copy of the span (nil-safe)
func (e *EvidenceSpan) Clone() *EvidenceSpan {
	if e == nil {
		return nil
	}
	c := *e
	return &c
}

// EvidenceStatus tracks whether a span still matches its document
type EvidenceStatus string

const (
	EvidenceFresh   EvidenceStatus = "fresh"   // Span hash matches the current document
	EvidenceStale   EvidenceStatus = "stale"   // Document was re-ingested with different content
	EvidenceMissing EvidenceStatus = "missing" // Span fields absent or invalid
)
