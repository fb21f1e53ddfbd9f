package validate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ppiankov/kgcurator/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestValidator() *Validator {
	return NewValidator(NewRuleTable(map[string]model.TypeRule{
		"works_at":   {Source: []string{"Person"}, Target: []string{"Organization"}},
		"located_in": {Source: []string{"Place"}, Target: []string{"Place"}},
	}))
}

func rel(source, predicate, target string, sourceType, targetType *string) model.Relationship {
	return model.NewRelationship(model.Candidate{
		Source: source, Predicate: predicate, Target: target,
	}, sourceType, targetType)
}

func TestValidator_TargetUnknown(t *testing.T) {
	v := newTestValidator()
	out := v.Validate(rel("Aaron", "works_at", "biochar", model.StringPtr("Person"), nil))
	assert.False(t, out.HasFlag(model.FlagTypeViolation), "unknown target must pass silently")
}

func TestValidator_BothUnknownNeverFlagged(t *testing.T) {
	v := newTestValidator()
	for _, predicate := range []string{"works_at", "located_in", "unheard_of"} {
		out := v.Validate(rel("x", predicate, "y", nil, nil))
		assert.False(t, out.HasFlag(model.FlagTypeViolation), predicate)

		unknown := model.StringPtr("unknown")
		out = v.Validate(rel("x", predicate, "y", unknown, unknown))
		assert.False(t, out.HasFlag(model.FlagTypeViolation), predicate)
	}
}

func TestValidator_KnownContradiction(t *testing.T) {
	v := newTestValidator()
	out := v.Validate(rel("Aaron", "works_at", "Boulder", model.StringPtr("Person"), model.StringPtr("Place")))
	assert.True(t, out.HasFlag(model.FlagTypeViolation))
}

func TestValidator_KnownMatch(t *testing.T) {
	v := newTestValidator()
	out := v.Validate(rel("Aaron", "Works At", "Y on Earth", model.StringPtr("person"), model.StringPtr("Organization")))
	assert.False(t, out.HasFlag(model.FlagTypeViolation))
}

func TestValidator_UnknownPredicateAccepted(t *testing.T) {
	v := newTestValidator()
	out := v.Validate(rel("a", "admires", "b", model.StringPtr("Place"), model.StringPtr("Place")))
	assert.False(t, out.HasFlag(model.FlagTypeViolation))
}

func TestValidator_DoesNotMutateInput(t *testing.T) {
	v := newTestValidator()
	in := rel("Aaron", "works_at", "Boulder", model.StringPtr("Person"), model.StringPtr("Place"))
	_ = v.Validate(in)
	assert.False(t, in.HasFlag(model.FlagTypeViolation))
}

func TestValidator_KeepsExistingFlag(t *testing.T) {
	v := newTestValidator()
	in := rel("Aaron", "works_at", "biochar", model.StringPtr("Person"), nil).WithFlag(model.FlagTypeViolation)
	out := v.Validate(in)
	assert.True(t, out.HasFlag(model.FlagTypeViolation))
}

func TestValidator_ValidateBatch(t *testing.T) {
	v := newTestValidator()
	out, violations := v.ValidateBatch([]model.Relationship{
		rel("Aaron", "works_at", "Boulder", model.StringPtr("Person"), model.StringPtr("Place")),
		rel("Aaron", "works_at", "Y on Earth", model.StringPtr("Person"), model.StringPtr("Organization")),
		rel("Aaron", "works_at", "biochar", model.StringPtr("Person"), nil),
	})
	require.Len(t, out, 3)
	assert.Equal(t, 1, violations)
}

func TestLoadRuleTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := "works_at:\n  source: [Person]\n  target: [Organization]\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	table, err := LoadRuleTable(path)
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())
	assert.True(t, table.Has("Works At"))
}

func TestLoadRuleTable_Missing(t *testing.T) {
	_, err := LoadRuleTable(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
