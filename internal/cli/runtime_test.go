package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/kgcurator/internal/docstore"
	"github.com/ppiankov/kgcurator/internal/logging"
	"github.com/ppiankov/kgcurator/internal/model"
)

const episodeText = "Aaron Perry works at Y on Earth."

// offlineSetup writes a document, a candidate fixture and a score fixture
// and returns a config pointing at them
func offlineSetup(t *testing.T) (*model.Config, runtimeOptions, string) {
	t.Helper()
	dir := t.TempDir()
	docs := filepath.Join(dir, "docs")
	require.NoError(t, os.MkdirAll(docs, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "episode-1.txt"), []byte(episodeText), 0o644))

	candidates := filepath.Join(dir, "candidates.jsonl")
	require.NoError(t, os.WriteFile(candidates, []byte(fmt.Sprintf(
		`{"candidate_uid":"c1","source":"Aaron Perry","predicate":"works_at","target":"Y on Earth","evidence_span":{"doc_id":"episode-1","doc_content_hash":%q,"start_char":0,"end_char":32}}`+"\n",
		docstore.HashText(episodeText))), 0o644))

	scores := filepath.Join(dir, "scores.jsonl")
	require.NoError(t, os.WriteFile(scores, []byte(
		`{"candidate_uid":"c1","text_confidence":0.9,"knowledge_plausibility":0.9}`+"\n"), 0o644))

	cfg := model.DefaultConfig()
	cfg.Documents.Dir = docs
	cfg.Storage.Enabled = true
	cfg.Storage.Path = filepath.Join(dir, "kg.db")
	cfg.RateLimiting.RequestsPerSecond = 0
	cfg.Output.Dir = filepath.Join(dir, "out")

	return cfg, runtimeOptions{Candidates: candidates, Scores: scores, NoCache: true}, docs
}

func TestRuntime_OfflineCurationPersistsAndGoesStale(t *testing.T) {
	cfg, opts, docs := offlineSetup(t)
	rt, err := newRuntime(cfg, opts)
	require.NoError(t, err)
	defer rt.Close()

	require.NotNil(t, rt.fixtures)
	assert.Equal(t, []string{"episode-1"}, rt.fixtures.Documents())

	ctx := context.Background()
	report, err := rt.curator.CurateDocument(ctx, "episode-1")
	require.NoError(t, err)
	require.Len(t, report.Relationships, 1)

	rel := report.Relationships[0]
	assert.Equal(t, model.EvidenceFresh, rel.EvidenceStatus)
	assert.Greater(t, rel.PTrue, 0.9)
	assert.True(t, report.QualityGate.Passed)

	n, err := rt.store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Nothing changed yet
	checked, changed, err := refreshEvidence(ctx, rt.store, docstore.NewFileStore(docs, 0), logging.Nop(), "", false)
	require.NoError(t, err)
	assert.Equal(t, 1, checked)
	assert.Empty(t, changed)

	// Re-ingest with different content
	require.NoError(t, os.WriteFile(filepath.Join(docs, "episode-1.txt"), []byte(episodeText+" He hosts a podcast."), 0o644))

	_, changed, err = refreshEvidence(ctx, rt.store, docstore.NewFileStore(docs, 0), logging.Nop(), "episode-1", true)
	require.NoError(t, err)
	require.Len(t, changed, 1)
	stored, err := rt.store.Get(ctx, rel.ClaimUID)
	require.NoError(t, err)
	assert.Equal(t, model.EvidenceFresh, stored.EvidenceStatus, "dry run leaves the store alone")

	_, changed, err = refreshEvidence(ctx, rt.store, docstore.NewFileStore(docs, 0), logging.Nop(), "", false)
	require.NoError(t, err)
	require.Len(t, changed, 1)
	stored, err = rt.store.Get(ctx, rel.ClaimUID)
	require.NoError(t, err)
	assert.Equal(t, model.EvidenceStale, stored.EvidenceStatus)
	assert.True(t, stored.HasFlag(model.FlagStaleEvidence))

	// Stale evidence no longer counts as accepted
	priors, err := derivePriors(ctx, rt.store, cfg, 0.5, 5)
	require.NoError(t, err)
	assert.InDelta(t, 2.5/6, priors.Predicates["works_at"], 1e-9)
	assert.Equal(t, cfg.Priors.Default, priors.Default)
}

func TestRuntime_NeedsAScorer(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Documents.Dir = t.TempDir()
	_, err := newRuntime(cfg, runtimeOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no scorer")
}

func TestRuntime_UnknownProvider(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.LLM.Provider = "mystery"
	_, err := newRuntime(cfg, runtimeOptions{})
	assert.Error(t, err)
}

func TestRuntime_BadTypesFile(t *testing.T) {
	cfg, opts, _ := offlineSetup(t)
	opts.Types = filepath.Join(t.TempDir(), "absent.yaml")
	_, err := newRuntime(cfg, opts)
	assert.Error(t, err)
}

func TestRuntime_RulesFile(t *testing.T) {
	cfg, opts, _ := offlineSetup(t)
	dir := t.TempDir()
	opts.Types = filepath.Join(dir, "types.yaml")
	require.NoError(t, os.WriteFile(opts.Types, []byte("Aaron Perry: Person\nY on Earth: Organization\n"), 0o644))
	cfg.RulesFile = filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(cfg.RulesFile, []byte("works_at:\n  source: [Organization]\n  target: [Organization]\n"), 0o644))

	rt, err := newRuntime(cfg, opts)
	require.NoError(t, err)
	defer rt.Close()

	report, err := rt.curator.CurateDocument(context.Background(), "episode-1")
	require.NoError(t, err)
	require.Len(t, report.Relationships, 1)
	assert.True(t, report.Relationships[0].HasFlag(model.FlagTypeViolation), "rules from the file replace the defaults")

	cfg.RulesFile = filepath.Join(dir, "absent.yaml")
	_, err = newRuntime(cfg, opts)
	assert.ErrorContains(t, err, "read rules")
}

func TestWriteReportFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "doc.json")
	report := &model.CurationReport{DocID: "doc-1", ConfigVersion: "v1"}
	require.NoError(t, writeReportFile(path, report))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"doc_id": "doc-1"`)
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"episode-120", "episode-120"},
		{"a/b c", "a_b-c"},
		{"../etc", "_etc"},
		{"", "document"},
		{strings.Repeat("x", 150), strings.Repeat("x", 100)},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	printSummary(&buf, &model.CurationReport{
		DocID:         "doc-1",
		Metrics:       model.Metrics{Total: 4, Flagged: 1},
		QualityGate:   model.QualityGate{Passed: false, Ratio: 0.5, Threshold: 0.95},
		FailedBatches: []model.FailedBatch{{Index: 0}},
	})
	out := buf.String()
	assert.Contains(t, out, "⚠ doc-1: 4 relationships, 1 flagged")
	assert.Contains(t, out, "1 failed batch(es)")
}
