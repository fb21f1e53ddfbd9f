package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func span(hash string, start, end int) *EvidenceSpan {
	return &EvidenceSpan{DocID: "doc-1", DocContentHash: hash, StartChar: start, EndChar: end}
}

func TestClaimUID_Deterministic(t *testing.T) {
	a := ClaimUID("Aaron Perry", "works_at", "Y on Earth", span("H1", 100, 120))
	b := ClaimUID("Aaron Perry", "works_at", "Y on Earth", span("H1", 100, 120))
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestClaimUID_CanonicalizesText(t *testing.T) {
	a := ClaimUID("  Aaron   PERRY ", "Works At", "y on earth", span("H1", 1, 5))
	b := ClaimUID("aaron perry", "works_at", "Y on Earth", span("H1", 1, 5))
	assert.Equal(t, a, b)
}

func TestClaimUID_DocumentRevisionChangesIdentity(t *testing.T) {
	old := ClaimUID("Boulder", "located_in", "Colorado", span("H1", 100, 120))
	updated := ClaimUID("Boulder", "located_in", "Colorado", span("H2", 100, 120))
	assert.NotEqual(t, old, updated)
}

func TestClaimUID_IgnoresMetadata(t *testing.T) {
	c1 := Candidate{Source: "Boulder", Predicate: "located_in", Target: "Colorado",
		Evidence: span("H1", 0, 10), Metadata: map[string]string{"prompt_version": "v13"}}
	c2 := c1
	c2.Metadata = map[string]string{"prompt_version": "v14_3_2"}

	r1 := NewRelationship(c1, nil, nil)
	r2 := NewRelationship(c2, nil, nil)
	r1.Rekey()
	r2.Rekey()
	assert.Equal(t, r1.ClaimUID, r2.ClaimUID)
}

func TestClaimUID_FieldBoundaries(t *testing.T) {
	a := ClaimUID("ab", "x", "c", span("H", 0, 1))
	b := ClaimUID("a", "x", "bc", span("H", 0, 1))
	assert.NotEqual(t, a, b)
}

func TestCanonical_Idempotent(t *testing.T) {
	in := "  Compost\tAND   Biochar "
	once := Canonical(in)
	assert.Equal(t, "compost and biochar", once)
	assert.Equal(t, once, Canonical(once))
}

func TestCanonicalPredicate(t *testing.T) {
	assert.Equal(t, "located_in", CanonicalPredicate("Located In"))
	assert.Equal(t, "works_at", CanonicalPredicate("works-at"))
	assert.Equal(t, "works_at", CanonicalPredicate("works_at"))
}

func TestRelationship_CloneIsDeep(t *testing.T) {
	r := NewRelationship(Candidate{Source: "a", Predicate: "p", Target: "b",
		Evidence: span("H", 0, 3), Metadata: map[string]string{"k": "v"}}, StringPtr("Person"), nil)
	r.Flags[FlagTypeViolation] = true

	c := r.Clone()
	c.Flags[FlagListSplit] = true
	c.Evidence.StartChar = 2
	c.Metadata["k"] = "changed"
	*c.SourceType = "Place"

	assert.False(t, r.HasFlag(FlagListSplit))
	assert.Equal(t, 0, r.Evidence.StartChar)
	assert.Equal(t, "v", r.Metadata["k"])
	assert.Equal(t, "Person", *r.SourceType)
}

func TestEvidenceSpan_Valid(t *testing.T) {
	require.True(t, span("H", 0, 1).Valid())
	assert.False(t, span("H", 5, 5).Valid())
	assert.False(t, span("", 0, 5).Valid())
	var nilSpan *EvidenceSpan
	assert.False(t, nilSpan.Valid())
}

func TestFlags_Sorted(t *testing.T) {
	f := Flags{FlagVagueTarget: true, FlagListSplit: true, FlagTypeViolation: false}
	assert.Equal(t, []Flag{FlagListSplit, FlagVagueTarget}, f.Sorted())
}

func TestMetrics_EvidenceRatio(t *testing.T) {
	assert.Equal(t, 1.0, Metrics{}.EvidenceRatio())
	assert.InDelta(t, 0.5, Metrics{Total: 4, WithEvidence: 2}.EvidenceRatio(), 1e-9)
}
