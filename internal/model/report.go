package model

import "time"

// CurationReport is the result of one curation pass over a document
type CurationReport struct {
	DocID         string                    `json:"doc_id"`
	ConfigVersion string                    `json:"config_version"`
	CuratedAt     time.Time                 `json:"curated_at"`
	Relationships []Relationship            `json:"relationships"`
	Metrics       Metrics                   `json:"metrics"`
	QualityGate   QualityGate               `json:"quality_gate"`
	Exclusions    []Exclusion               `json:"exclusions,omitempty"`
	FailedBatches []FailedBatch             `json:"failed_batches,omitempty"`
	Malformed     int                       `json:"malformed_records,omitempty"` // collaborator lines skipped
	ModuleStats   map[string]map[string]int `json:"module_stats,omitempty"`
	Cancelled     bool                      `json:"cancelled,omitempty"`
}

// Metrics summarizes the final relationship set
type Metrics struct {
	Total           int `json:"total"`
	WithEvidence    int `json:"with_evidence"`
	Flagged         int `json:"flagged"`
	UniqueClaimUIDs int `json:"unique_claim_uids"`
	Stale           int `json:"stale"`
	Missing         int `json:"missing"`
}

// EvidenceRatio returns with_evidence / total (1 for an empty set)
func (m Metrics) EvidenceRatio() float64 {
	if m.Total == 0 {
		return 1
	}
	return float64(m.WithEvidence) / float64(m.Total)
}

// QualityGate reports the soft evidence-coverage gate
type QualityGate struct {
	Passed    bool    `json:"passed"`
	Ratio     float64 `json:"ratio"`
	Threshold float64 `json:"threshold"`
	Message   string  `json:"message,omitempty"`
}

// Exclusion records why a candidate never reached the final set
type Exclusion struct {
	CandidateUID string `json:"candidate_uid"`
	Reason       string `json:"reason"`
}

// Collaborator stages a batch can fail in
const (
	StageExtraction = "extraction"
	StageScoring    = "scoring"
)

// FailedBatch records a collaborator batch that exhausted its retries.
// For extraction the batch is a text window starting at StartChar.
type FailedBatch struct {
	Stage         string   `json:"stage"`
	Index         int      `json:"index"`
	StartChar     int      `json:"start_char,omitempty"`
	CandidateUIDs []string `json:"candidate_uids,omitempty"`
	Attempts      int      `json:"attempts"`
	Error         string   `json:"error"`
}
