// Package curate runs one curation pass over a document: type validation,
// batched scoring, signal combination, identity and staleness, then the
// postprocessing pipeline.
package curate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/ppiankov/kgcurator/internal/docstore"
	"github.com/ppiankov/kgcurator/internal/identity"
	"github.com/ppiankov/kgcurator/internal/llm"
	"github.com/ppiankov/kgcurator/internal/logging"
	"github.com/ppiankov/kgcurator/internal/model"
	"github.com/ppiankov/kgcurator/internal/postprocess"
	"github.com/ppiankov/kgcurator/internal/score"
	"github.com/ppiankov/kgcurator/internal/validate"
	"github.com/ppiankov/kgcurator/internal/worker"
)

// Sink persists curated relationships keyed by claim_uid
type Sink interface {
	Upsert(ctx context.Context, configVersion string, rels []model.Relationship) error
}

// Options wires a Curator. Config and Scorer are required.
type Options struct {
	Config     *model.Config
	Scorer     llm.Scorer
	ScorerName string        // rate limiter key, defaults to "scorer"
	Extractor  llm.Extractor // needed by CurateDocument only
	Docs       docstore.Store
	Types      TypeLookup
	Sink       Sink
	Limiter    *worker.Limiter
	Log        *logging.Logger

	// Rules replaces Config.Rules when set
	Rules *validate.RuleTable

	// WindowRunes caps the text sent to the extractor per call
	WindowRunes int

	// Sleep waits between retries; tests replace it
	Sleep func(ctx context.Context, d time.Duration) error
	Now   func() time.Time
}

// Input is one document's candidates
type Input struct {
	DocID      string
	Candidates []model.Candidate
	Malformed  int // extraction lines already skipped upstream

	// FailedWindows are extraction windows that exhausted their retries
	FailedWindows []model.FailedBatch
	// Cancelled is set when extraction stopped early
	Cancelled bool
}

// Curator sequences the curation stages. It holds only read-only
// configuration and is safe to share between concurrent documents.
type Curator struct {
	cfg        *model.Config
	scorer     llm.Scorer
	scorerName string
	extractor  llm.Extractor
	docs       docstore.Store
	types      TypeLookup
	sink       Sink
	limiter    *worker.Limiter
	window     int
	known      map[string]string
	validator  *validate.Validator
	combiner   *score.Combiner
	priors     *score.PatternPriors
	log        *logging.Logger
	sleep      func(ctx context.Context, d time.Duration) error
	now        func() time.Time
}

// New creates a curator
func New(opts Options) (*Curator, error) {
	if opts.Config == nil {
		return nil, errors.New("curator needs a config")
	}
	if opts.Scorer == nil {
		return nil, errors.New("curator needs a scorer")
	}
	// Fail on a bad pattern set here rather than on the first document
	if _, err := postprocess.NewVagueMatcher(opts.Config.Pipeline.VaguePatterns); err != nil {
		return nil, fmt.Errorf("vague patterns: %w", err)
	}
	if _, err := postprocess.NewSubjectiveFilter(opts.Config.Pipeline.NormativeMode); err != nil {
		return nil, err
	}

	rules := opts.Rules
	if rules == nil {
		rules = validate.NewRuleTable(opts.Config.Rules)
	}

	log := logging.OrNop(opts.Log)
	c := &Curator{
		cfg:        opts.Config,
		scorer:     opts.Scorer,
		scorerName: opts.ScorerName,
		extractor:  opts.Extractor,
		docs:       opts.Docs,
		types:      opts.Types,
		sink:       opts.Sink,
		limiter:    opts.Limiter,
		window:     opts.WindowRunes,
		validator:  validate.NewValidator(rules),
		combiner:   score.NewCombiner(opts.Config.Calibration, log),
		priors:     score.NewPatternPriors(opts.Config.Priors),
		log:        log.With("component", "curator"),
		sleep:      opts.Sleep,
		now:        opts.Now,
	}
	if c.scorerName == "" {
		c.scorerName = "scorer"
	}
	if c.limiter == nil {
		c.limiter = worker.NewLimiterFor(opts.Config.RateLimiting)
	}
	if c.window <= 0 {
		c.window = defaultWindowRunes
	}
	if c.sleep == nil {
		c.sleep = sleepContext
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c, nil
}

// WithKnownHashes returns a curator that trusts the given doc_id to
// content hash map instead of hashing those documents again. The map must
// not change afterwards.
func (c *Curator) WithKnownHashes(hashes map[string]string) *Curator {
	out := *c
	out.known = hashes
	return &out
}

// CurateDocument extracts candidates from a stored document and curates
// them. It implements worker.Curator.
func (c *Curator) CurateDocument(ctx context.Context, docID string) (*model.CurationReport, error) {
	if c.extractor == nil || c.docs == nil {
		return nil, errors.New("curating a stored document needs an extractor and a document store")
	}

	hash, ok := c.known[docID]
	if !ok {
		var err error
		if hash, err = c.docs.ContentHash(ctx, docID); err != nil {
			return nil, fmt.Errorf("hash %s: %w", docID, err)
		}
	}
	text, err := c.docs.Text(ctx, docID, 0, math.MaxInt32)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", docID, err)
	}

	in := Input{DocID: docID}
	for index, w := range textWindows(text, c.window) {
		if ctx.Err() != nil {
			in.Cancelled = true
			break
		}

		var res llm.ExtractResult
		attempts, err := c.retry(ctx, "extractor", "extraction window", func() error {
			var err error
			res, err = c.extractor.Extract(ctx, llm.ExtractRequest{
				DocID:          docID,
				DocContentHash: hash,
				Text:           w.Text,
				Offset:         w.Start,
			})
			return err
		})
		if err != nil {
			if ctx.Err() != nil {
				in.Cancelled = true
				break
			}
			in.FailedWindows = append(in.FailedWindows, model.FailedBatch{
				Stage:     model.StageExtraction,
				Index:     index,
				StartChar: w.Start,
				Attempts:  attempts,
				Error:     err.Error(),
			})
			c.log.Error("extraction window failed", "doc_id", docID, "window", index, "start", w.Start, "attempts", attempts, "error", err)
			continue
		}
		in.Candidates = append(in.Candidates, res.Candidates...)
		in.Malformed += res.Malformed
	}

	c.log.Debug("extracted candidates", "doc_id", docID, "candidates", len(in.Candidates))
	return c.Curate(ctx, in)
}

// Curate runs every stage over one document's candidates. The report is
// returned even alongside a *BatchError or a context error, and is always
// deduplicated and identity-stable.
func (c *Curator) Curate(ctx context.Context, in Input) (*model.CurationReport, error) {
	log := c.log.With("doc_id", in.DocID)
	report := &model.CurationReport{
		DocID:         in.DocID,
		ConfigVersion: c.cfg.Version,
		CuratedAt:     c.now().UTC(),
		Malformed:     in.Malformed,
		FailedBatches: append([]model.FailedBatch(nil), in.FailedWindows...),
		Cancelled:     in.Cancelled,
	}

	// 1. Intake: candidate ids and types
	rels := make([]model.Relationship, 0, len(in.Candidates))
	for _, cand := range in.Candidates {
		cand = identity.EnsureCandidateUID(cand)
		rels = append(rels, model.NewRelationship(cand, c.typeOf(cand.Source), c.typeOf(cand.Target)))
	}

	// 2. Soft type validation
	rels, violations := c.validator.ValidateBatch(rels)

	// 3. Batched scoring
	scored := c.scoreAll(ctx, in.DocID, rels, report)

	// Once scoring is done the remaining stages run to completion, so a
	// cancelled run still returns a deduplicated report
	stageCtx := context.WithoutCancel(ctx)

	// 4. Signal combination
	combined := make([]model.Relationship, 0, len(scored))
	for _, s := range scored {
		rel, err := c.combine(s.rel, s.record)
		if err != nil {
			report.Exclusions = append(report.Exclusions, model.Exclusion{CandidateUID: s.rel.CandidateUID, Reason: err.Error()})
			log.Warn("candidate excluded", "candidate_uid", s.rel.CandidateUID, "error", err)
			continue
		}
		combined = append(combined, rel)
	}

	// 5. Identity and staleness
	ids := identity.NewManager(c.docs, log)
	ids.Seed(c.known)
	for i, rel := range combined {
		assigned := ids.Assign(rel)
		checked, err := ids.Check(stageCtx, assigned)
		if err != nil {
			// The span cannot be verified right now, so it is not trusted
			log.Warn("evidence check failed, marking evidence missing",
				"claim_uid", assigned.ClaimUID, "error", err)
			checked = assigned.Clone()
			checked.EvidenceStatus = model.EvidenceMissing
		}
		combined[i] = checked
	}

	// 6. Postprocessing
	engine, err := postprocess.NewDefaultEngine(c.cfg, c.docs, log)
	if err != nil {
		return nil, err
	}
	final, removed := engine.Run(stageCtx, combined)
	report.Exclusions = append(report.Exclusions, removed...)
	report.ModuleStats = engine.Stats()

	sort.SliceStable(final, func(i, j int) bool { return final[i].ClaimUID < final[j].ClaimUID })
	report.Relationships = final

	// 7. Metrics, boundary invariant and quality gate
	report.Metrics = computeMetrics(final)
	if report.Metrics.UniqueClaimUIDs != report.Metrics.Total {
		return nil, fmt.Errorf("%s: %d relationships, %d unique: %w",
			in.DocID, report.Metrics.Total, report.Metrics.UniqueClaimUIDs, ErrDuplicateClaimUID)
	}
	report.QualityGate = c.gate(report.Metrics)
	if !report.QualityGate.Passed {
		log.Warn("quality gate failed", "ratio", report.QualityGate.Ratio, "threshold", report.QualityGate.Threshold)
	}

	// 8. Checkpoint
	if c.sink != nil && len(final) > 0 {
		if err := c.sink.Upsert(stageCtx, c.cfg.Version, final); err != nil {
			return report, fmt.Errorf("persist %s: %w", in.DocID, err)
		}
	}

	log.Info("document curated",
		"candidates", len(in.Candidates),
		"type_violations", violations,
		"relationships", len(final),
		"excluded", len(report.Exclusions),
		"failed_batches", len(report.FailedBatches),
		"cancelled", report.Cancelled,
	)

	if report.Cancelled {
		return report, context.Cause(ctx)
	}
	if len(report.FailedBatches) > 0 {
		return report, &BatchError{DocID: in.DocID, Failed: report.FailedBatches}
	}
	return report, nil
}

func (c *Curator) typeOf(entity string) *string {
	if c.types == nil {
		return nil
	}
	return c.types.TypeOf(entity)
}

type scoredRel struct {
	rel    model.Relationship
	record *llm.ScoreRecord
}

// scoreAll sends rels to the scorer in fixed batches. Candidates in failed
// batches, or never sent because the run was cancelled, become exclusions.
func (c *Curator) scoreAll(ctx context.Context, docID string, rels []model.Relationship, report *model.CurationReport) []scoredRel {
	size := c.cfg.Scoring.BatchSize
	if size <= 0 {
		size = 50
	}

	var out []scoredRel
	for index, start := 0, 0; start < len(rels); index, start = index+1, start+size {
		batch := rels[start:min(start+size, len(rels))]

		if report.Cancelled || ctx.Err() != nil {
			report.Cancelled = true
			excludeAll(report, rels[start:], "not scored: run cancelled")
			break
		}

		result, attempts, err := c.scoreBatch(ctx, batch)
		if err != nil {
			if ctx.Err() != nil {
				report.Cancelled = true
				excludeAll(report, rels[start:], "not scored: run cancelled")
				break
			}
			report.FailedBatches = append(report.FailedBatches, model.FailedBatch{
				Stage:         model.StageScoring,
				Index:         index,
				CandidateUIDs: candidateUIDs(batch),
				Attempts:      attempts,
				Error:         err.Error(),
			})
			excludeAll(report, batch, fmt.Sprintf("scoring batch %d failed", index))
			c.log.Error("scoring batch failed", "doc_id", docID, "batch", index, "attempts", attempts, "error", err)
			continue
		}

		report.Malformed += result.Malformed
		records := make(map[string]*llm.ScoreRecord, len(result.Records))
		for i := range result.Records {
			r := &result.Records[i]
			if _, dup := records[r.CandidateUID]; dup {
				c.log.Warn("duplicate score record ignored", "candidate_uid", r.CandidateUID)
				continue
			}
			records[r.CandidateUID] = r
		}
		for _, rel := range batch {
			out = append(out, scoredRel{rel: rel, record: records[rel.CandidateUID]})
		}
	}
	return out
}

// scoreBatch scores one batch with retries
func (c *Curator) scoreBatch(ctx context.Context, batch []model.Relationship) (llm.ScoreResult, int, error) {
	items := make([]llm.ScoreItem, len(batch))
	for i, rel := range batch {
		items[i] = llm.ItemFor(rel)
	}

	var result llm.ScoreResult
	attempts, err := c.retry(ctx, c.scorerName, "scoring batch", func() error {
		var err error
		result, err = c.scorer.Score(ctx, items)
		return err
	})
	if err != nil {
		return llm.ScoreResult{}, attempts, err
	}
	return result, attempts, nil
}

// retry calls fn through the limiter with exponential backoff and returns
// the number of attempts made. Permanent errors and cancellation stop
// retrying.
func (c *Curator) retry(ctx context.Context, key, what string, fn func() error) (int, error) {
	maxAttempts := max(1, c.cfg.Scoring.MaxRetries)
	backoff := c.cfg.Scoring.InitialBackoff

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx, key); err != nil {
			return attempt - 1, err
		}

		err := fn()
		if err == nil {
			return attempt, nil
		}
		lastErr = err

		if llm.IsPermanent(err) || ctx.Err() != nil || attempt == maxAttempts {
			return attempt, lastErr
		}

		c.log.Warn(what+" retry", "attempt", attempt, "backoff", backoff, "error", err)
		if err := c.sleep(ctx, backoff); err != nil {
			return attempt, err
		}
		backoff *= 2
	}
	return maxAttempts, lastErr
}

// combine folds one score record into the relationship
func (c *Curator) combine(rel model.Relationship, rec *llm.ScoreRecord) (model.Relationship, error) {
	if rec == nil {
		return rel, errors.New("no score record")
	}

	prior := c.priors.Prior(rel.Predicate)
	p, err := c.combiner.Combine(score.Signals{
		TextConfidence:        rec.TextConfidence,
		KnowledgePlausibility: rec.KnowledgePlausibility,
		PatternPrior:          &prior,
		Conflict:              rec.SignalsConflict,
	})
	if err != nil {
		return rel, err
	}

	out := rel.Clone()
	out.TextConfidence = clamp01(*rec.TextConfidence)
	out.KnowledgePlausibility = clamp01(*rec.KnowledgePlausibility)
	out.PatternPrior = prior
	out.SignalsConflict = rec.SignalsConflict
	out.ConflictExplanation = rec.ConflictExplanation
	out.SuggestedCorrection = rec.SuggestedCorrection
	out.PTrue = p
	if rec.SignalsConflict {
		out.Flags[model.FlagSignalsConflict] = true
	}
	return out, nil
}

func (c *Curator) gate(m model.Metrics) model.QualityGate {
	g := model.QualityGate{
		Ratio:     m.EvidenceRatio(),
		Threshold: c.cfg.QualityGate.MinEvidenceRatio,
	}
	g.Passed = g.Ratio >= g.Threshold
	if !g.Passed {
		g.Message = fmt.Sprintf("evidence coverage %.2f below %.2f", g.Ratio, g.Threshold)
	}
	return g
}

func computeMetrics(rels []model.Relationship) model.Metrics {
	m := model.Metrics{Total: len(rels)}
	seen := make(map[string]bool, len(rels))
	for _, r := range rels {
		if r.Evidence.Valid() {
			m.WithEvidence++
		}
		if r.Flagged() {
			m.Flagged++
		}
		switch r.EvidenceStatus {
		case model.EvidenceStale:
			m.Stale++
		case model.EvidenceMissing:
			m.Missing++
		}
		seen[r.ClaimUID] = true
	}
	m.UniqueClaimUIDs = len(seen)
	return m
}

func excludeAll(report *model.CurationReport, rels []model.Relationship, reason string) {
	for _, r := range rels {
		report.Exclusions = append(report.Exclusions, model.Exclusion{CandidateUID: r.CandidateUID, Reason: reason})
	}
}

func candidateUIDs(rels []model.Relationship) []string {
	out := make([]string, len(rels))
	for i, r := range rels {
		out[i] = r.CandidateUID
	}
	return out
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
