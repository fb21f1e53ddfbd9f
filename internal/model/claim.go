package model

import (
	"sort"
	"time"
)

// Candidate is a relationship proposed by the extraction collaborator,
// before validation and scoring
type Candidate struct {
	CandidateUID  string            `json:"candidate_uid,omitempty"`
	Source        string            `json:"source"`
	Predicate     string            `json:"predicate"`
	Target        string            `json:"target"`
	Evidence      *EvidenceSpan     `json:"evidence_span,omitempty"`
	SourceSurface string            `json:"source_surface,omitempty"`
	TargetSurface string            `json:"target_surface,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"` // version/prompt labels, never part of identity
}

// Flag names a boolean issue attached to a relationship
type Flag string

const (
	FlagTypeViolation       Flag = "TYPE_VIOLATION"
	FlagVagueSource         Flag = "VAGUE_SOURCE"
	FlagVagueTarget         Flag = "VAGUE_TARGET"
	FlagContextEnriched     Flag = "CONTEXT_ENRICHED"
	FlagListSplit           Flag = "LIST_SPLIT"
	FlagPredicateNormalized Flag = "PREDICATE_NORMALIZED"
	FlagSignalsConflict     Flag = "SIGNALS_CONFLICT"
	FlagLowConfidence       Flag = "LOW_CONFIDENCE"
	FlagStaleEvidence       Flag = "STALE_EVIDENCE"
	FlagSubjective          Flag = "SUBJECTIVE"
)

// Flags is a set of flags
type Flags map[Flag]bool

// Has reports whether the flag is set
func (f Flags) Has(flag Flag) bool {
	return f[flag]
}

// Sorted returns the set flags in lexical order
func (f Flags) Sorted() []Flag {
	out := make([]Flag, 0, len(f))
	for flag, on := range f {
		if on {
			out = append(out, flag)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ClaimType categorizes the nature of a curated relationship
type ClaimType string

const (
	ClaimTypeFactual     ClaimType = "factual"     // Checkable statement about the world
	ClaimTypeAttribution ClaimType = "attribution" // Who wrote, said, founded or created something
	ClaimTypeDefinition  ClaimType = "definition"  // is-a / defined-as statements
	ClaimTypeNormative   ClaimType = "normative"   // Opinions, recommendations, value judgements
)

// Relationship is a candidate after validation, scoring and identity assignment
type Relationship struct {
	Candidate

	SourceType *string `json:"source_type"` // nil means unknown
	TargetType *string `json:"target_type"`
	Flags      Flags   `json:"flags,omitempty"`

	TextConfidence        float64 `json:"text_confidence"`
	KnowledgePlausibility float64 `json:"knowledge_plausibility"`
	PatternPrior          float64 `json:"pattern_prior"`
	SignalsConflict       bool    `json:"signals_conflict"`
	ConflictExplanation   string  `json:"conflict_explanation,omitempty"`
	SuggestedCorrection   string  `json:"suggested_correction,omitempty"`
	PTrue                 float64 `json:"p_true"`

	ClaimUID       string         `json:"claim_uid"`
	EvidenceStatus EvidenceStatus `json:"evidence_status"`
	ClaimType      ClaimType      `json:"claim_type,omitempty"`

	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// NewRelationship wraps a candidate with its resolved types
func NewRelationship(c Candidate, sourceType, targetType *string) Relationship {
	return Relationship{
		Candidate:  cloneCandidate(c),
		SourceType: cloneString(sourceType),
		TargetType: cloneString(targetType),
		Flags:      Flags{},
	}
}

// Clone returns a deep copy; stages work on copies, never on their input
func (r Relationship) Clone() Relationship {
	out := r
	out.Candidate = cloneCandidate(r.Candidate)
	out.SourceType = cloneString(r.SourceType)
	out.TargetType = cloneString(r.TargetType)
	out.Flags = make(Flags, len(r.Flags))
	for k, v := range r.Flags {
		if v {
			out.Flags[k] = true
		}
	}
	return out
}

// WithFlag returns a copy with the flag set
func (r Relationship) WithFlag(flag Flag) Relationship {
	out := r.Clone()
	out.Flags[flag] = true
	return out
}

// HasFlag reports whether the flag is set
func (r Relationship) HasFlag(flag Flag) bool {
	return r.Flags.Has(flag)
}

// Flagged reports whether any flag marks the relationship for review
func (r Relationship) Flagged() bool {
	for _, on := range r.Flags {
		if on {
			return true
		}
	}
	return false
}

// Rekey recomputes the claim identity after an entity or predicate rewrite.
// CandidateUID is left untouched.
func (r *Relationship) Rekey() {
	r.ClaimUID = ClaimUID(r.Source, r.Predicate, r.Target, r.Evidence)
}

// TypeName returns the type or "unknown"
func TypeName(t *string) string {
	if t == nil || *t == "" {
		return "unknown"
	}
	return *t
}

// StringPtr returns a pointer to s, or nil for an empty string
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func cloneCandidate(c Candidate) Candidate {
	out := c
	out.Evidence = c.Evidence.Clone()
	if c.Metadata != nil {
		out.Metadata = make(map[string]string, len(c.Metadata))
		for k, v := range c.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
