package curate

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ppiankov/kgcurator/internal/docstore"
	"github.com/ppiankov/kgcurator/internal/llm"
	"github.com/ppiankov/kgcurator/internal/model"
	"github.com/ppiankov/kgcurator/internal/score"
)

const docText = "Aaron Perry works at Y on Earth. Boulder is located in Colorado. Compost and biochar improve soil."

var testTypes = NewStaticTypes(map[string]string{
	"Aaron Perry": "Person",
	"Y on Earth":  "Organization",
	"Boulder":     "Place",
	"Colorado":    "Place",
	"Lafayette":   "Place",
})

func testConfig() *model.Config {
	cfg := model.DefaultConfig()
	cfg.RateLimiting.RequestsPerSecond = 0
	cfg.Scoring.InitialBackoff = time.Second
	return cfg
}

func span(t *testing.T, hash, part string) *model.EvidenceSpan {
	t.Helper()
	start := strings.Index(docText, part)
	require.GreaterOrEqual(t, start, 0, "%q not in document", part)
	return &model.EvidenceSpan{
		DocID:          "doc-1",
		DocContentHash: hash,
		StartChar:      start,
		EndChar:        start + len(part),
		WindowText:     part,
	}
}

func candidates(t *testing.T, hash string) []model.Candidate {
	return []model.Candidate{
		{CandidateUID: "c1", Source: "Aaron Perry", Predicate: "works_at", Target: "Y on Earth",
			Evidence: span(t, hash, "Aaron Perry works at Y on Earth.")},
		{CandidateUID: "c2", Source: "Boulder", Predicate: "located_in", Target: "Colorado",
			Evidence: span(t, hash, "Boulder is located in Colorado.")},
		{CandidateUID: "c3", Source: "Y on Earth", Predicate: "promotes", Target: "compost and biochar",
			Evidence: span(t, hash, "Compost and biochar improve soil.")},
	}
}

func record(uid string, text, know float64, conflict bool) llm.ScoreRecord {
	return llm.ScoreRecord{
		CandidateUID:          uid,
		TextConfidence:        score.Float(text),
		KnowledgePlausibility: score.Float(know),
		SignalsConflict:       conflict,
	}
}

func confidentScores(uids ...string) map[string]llm.ScoreRecord {
	out := make(map[string]llm.ScoreRecord, len(uids))
	for _, uid := range uids {
		out[uid] = record(uid, 0.9, 0.9, false)
	}
	return out
}

// sleeper records backoff waits instead of sleeping
type sleeper struct {
	mu     sync.Mutex
	waited []time.Duration
}

func (s *sleeper) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.waited = append(s.waited, d)
	s.mu.Unlock()
	return ctx.Err()
}

// memorySink collects upserts
type memorySink struct {
	mu      sync.Mutex
	version string
	rels    []model.Relationship
	err     error
}

func (s *memorySink) Upsert(_ context.Context, version string, rels []model.Relationship) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.version = version
	s.rels = append(s.rels, rels...)
	return nil
}

type fixture struct {
	docs    *docstore.MemoryStore
	hash    string
	scorer  *llm.StubScorer
	sleeper *sleeper
	sink    *memorySink
	curator *Curator
}

func newFixture(t *testing.T, cfg *model.Config) *fixture {
	t.Helper()
	f := &fixture{
		docs:    docstore.NewMemoryStore(),
		scorer:  &llm.StubScorer{Records: confidentScores("c1", "c2", "c3")},
		sleeper: &sleeper{},
		sink:    &memorySink{},
	}
	f.hash = f.docs.Put("doc-1", docText)

	var err error
	f.curator, err = New(Options{
		Config: cfg,
		Scorer: f.scorer,
		Docs:   f.docs,
		Types:  testTypes,
		Sink:   f.sink,
		Sleep:  f.sleeper.sleep,
	})
	require.NoError(t, err)
	return f
}

func claimUIDs(rels []model.Relationship) []string {
	out := make([]string, len(rels))
	for i, r := range rels {
		out[i] = r.ClaimUID
	}
	return out
}

func byCandidate(rels []model.Relationship, uid string) []model.Relationship {
	var out []model.Relationship
	for _, r := range rels {
		if r.CandidateUID == uid {
			out = append(out, r)
		}
	}
	return out
}

func reasonFor(exclusions []model.Exclusion, uid string) string {
	for _, e := range exclusions {
		if e.CandidateUID == uid {
			return e.Reason
		}
	}
	return ""
}
