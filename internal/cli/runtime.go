package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/kgcurator/internal/cache"
	"github.com/ppiankov/kgcurator/internal/curate"
	"github.com/ppiankov/kgcurator/internal/docstore"
	"github.com/ppiankov/kgcurator/internal/llm"
	"github.com/ppiankov/kgcurator/internal/logging"
	"github.com/ppiankov/kgcurator/internal/model"
	"github.com/ppiankov/kgcurator/internal/store"
	"github.com/ppiankov/kgcurator/internal/validate"
	"github.com/ppiankov/kgcurator/internal/worker"
)

// scoreCacheTTL bounds how long a scoring answer is reused
const scoreCacheTTL = 7 * 24 * time.Hour

// runtimeOptions are the per-command inputs shared by curate and batch
type runtimeOptions struct {
	Candidates string // JSON-lines candidate fixture, replaces the extraction model
	Scores     string // JSON-lines score fixture, replaces the scoring model
	Types      string // YAML entity: type table
	NoCache    bool
	NeedStore  bool
}

// runtime holds everything one command invocation wires together
type runtime struct {
	cfg      *model.Config
	log      *logging.Logger
	docs     *docstore.FileStore
	store    *store.SQLiteStore
	curator  *curate.Curator
	fixtures *llm.FixtureExtractor
}

// newRuntime builds the collaborators, stores and curator from cfg
func newRuntime(cfg *model.Config, opts runtimeOptions) (*runtime, error) {
	log, err := logging.New(cfg.Output.LogMode, cfg.Output.Verbose)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	rt := &runtime{
		cfg:  cfg,
		log:  log,
		docs: docstore.NewFileStore(cfg.Documents.Dir, cfg.Documents.CacheTTL),
	}

	if cfg.Storage.Enabled || opts.NeedStore {
		rt.store, err = store.Open(cfg.Storage.Path)
		if err != nil {
			return nil, err
		}
	}

	completer, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM))
	if err != nil {
		rt.Close()
		return nil, err
	}

	curOpts := curate.Options{
		Config:  cfg,
		Docs:    rt.docs,
		Limiter: worker.NewLimiterFor(cfg.RateLimiting),
		Log:     log,
	}
	if rt.store != nil {
		curOpts.Sink = rt.store
	}

	if err := rt.wireScorer(&curOpts, completer, opts); err != nil {
		rt.Close()
		return nil, err
	}
	if err := rt.wireExtractor(&curOpts, completer, opts); err != nil {
		rt.Close()
		return nil, err
	}

	if cfg.RulesFile != "" {
		rules, err := validate.LoadRuleTable(cfg.RulesFile)
		if err != nil {
			rt.Close()
			return nil, err
		}
		log.Debug("type rules loaded", "path", cfg.RulesFile, "rules", rules.Len())
		curOpts.Rules = rules
	}

	if opts.Types != "" {
		types, err := curate.LoadTypes(opts.Types)
		if err != nil {
			rt.Close()
			return nil, err
		}
		curOpts.Types = types
	}

	rt.curator, err = curate.New(curOpts)
	if err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

func (rt *runtime) wireScorer(opts *curate.Options, completer llm.Completer, ro runtimeOptions) error {
	if ro.Scores != "" {
		fixture, err := llm.LoadScoreFixture(ro.Scores)
		if err != nil {
			return err
		}
		if n := fixture.Malformed(); n > 0 {
			rt.log.Warn("skipped malformed score fixture lines", "path", ro.Scores, "lines", n)
		}
		opts.Scorer = fixture
		opts.ScorerName = "fixture"
		return nil
	}
	if completer == nil {
		return fmt.Errorf("no scorer: set llm.provider (KGCURATOR_LLM_PROVIDER) or pass --scores")
	}

	llmCfg := llm.ConfigFromModel(rt.cfg.LLM)
	var scorer llm.Scorer = llm.NewModelScorer(completer, llmCfg, rt.log)
	if !ro.NoCache {
		c := cache.NewLayeredCache(
			cache.NewMemoryCache(time.Hour, 2*time.Hour),
			cache.NewDiskCache(cacheDir(), scoreCacheTTL),
		)
		scorer = llm.NewCachedScorer(scorer, c, completer.Name()+"/"+rt.cfg.LLM.Model, scoreCacheTTL, rt.log)
	}
	opts.Scorer = scorer
	opts.ScorerName = completer.Name()
	return nil
}

func (rt *runtime) wireExtractor(opts *curate.Options, completer llm.Completer, ro runtimeOptions) error {
	if ro.Candidates != "" {
		fixture, err := llm.LoadCandidateFixture(ro.Candidates)
		if err != nil {
			return err
		}
		rt.fixtures = fixture
		opts.Extractor = fixture
		return nil
	}
	if completer != nil {
		opts.Extractor = llm.NewModelExtractor(completer, llm.ConfigFromModel(rt.cfg.LLM), rt.log)
	}
	return nil
}

// Close releases the store and flushes the logger
func (rt *runtime) Close() {
	if rt.store != nil {
		if err := rt.store.Close(); err != nil {
			rt.log.Warn("close store", "error", err)
		}
	}
	rt.log.Sync()
}

// cacheDir returns ~/.kgcurator/cache, or a temp dir without a home
func cacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "kgcurator-cache")
	}
	return filepath.Join(home, ".kgcurator", "cache")
}

// writeReport writes a report as indented JSON
func writeReport(w io.Writer, report *model.CurationReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// writeReportFile writes a report to path, creating parent directories
func writeReportFile(path string, report *model.CurationReport) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close report: %w", closeErr)
		}
	}()
	return writeReport(f, report)
}

// sanitizeFilename turns a document id into a safe file name
func sanitizeFilename(s string) string {
	s = strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "-",
	).Replace(strings.TrimSpace(s))

	s = strings.TrimLeft(s, ".")
	if s == "" {
		s = "document"
	}
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}

// printSummary prints a one-line summary of a report to stderr
func printSummary(w io.Writer, report *model.CurationReport) {
	mark := "✓"
	if !report.QualityGate.Passed || len(report.FailedBatches) > 0 {
		mark = "⚠"
	}
	fmt.Fprintf(w, "%s %s: %d relationships, %d flagged, evidence %.0f%% (gate %.0f%%)",
		mark, report.DocID, report.Metrics.Total, report.Metrics.Flagged,
		report.QualityGate.Ratio*100, report.QualityGate.Threshold*100)
	if n := len(report.FailedBatches); n > 0 {
		fmt.Fprintf(w, ", %d failed batch(es)", n)
	}
	if report.Cancelled {
		fmt.Fprintf(w, ", cancelled")
	}
	fmt.Fprintln(w)
}
