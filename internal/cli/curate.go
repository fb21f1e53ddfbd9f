package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/kgcurator/internal/curate"
)

var (
	candidatesPath string
	scoresPath     string
	typesPath      string
	rulesPath      string
	docsDir        string
	storePath      string
	outPath        string
	noCache        bool
	timeout        time.Duration
)

// curateCmd represents the curate command
var curateCmd = &cobra.Command{
	Use:   "curate [doc-id...]",
	Short: "Curate the candidate relationships of one or more documents",
	Long: `Curate extracts candidate relationships from stored documents and runs
them through type validation, batched scoring, signal combination,
identity assignment and the postprocessing pipeline.

Candidates and scores come from the configured language model, or from
JSON-lines fixture files for offline runs. Without doc ids, every document
named in the candidate fixture is curated.

Example:
  kgcurator curate episode-120 --docs ./transcripts
  kgcurator curate --candidates cands.jsonl --scores scores.jsonl --docs ./docs
  kgcurator curate episode-120 --store ./kg.db --out report.json`,
	RunE: runCurate,
}

func init() {
	rootCmd.AddCommand(curateCmd)
	addCurationFlags(curateCmd)
	curateCmd.Flags().StringVarP(&outPath, "out", "o", "", "write the JSON report here (single document; default stdout)")
	curateCmd.Flags().DurationVar(&timeout, "timeout", 10*time.Minute, "overall curation timeout")
}

// addCurationFlags registers the flags curate and batch share
func addCurationFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&candidatesPath, "candidates", "", "JSON-lines candidate fixture (replaces the extraction model)")
	cmd.Flags().StringVar(&scoresPath, "scores", "", "JSON-lines score fixture (replaces the scoring model)")
	cmd.Flags().StringVar(&typesPath, "types", "", "YAML table of entity: type")
	cmd.Flags().StringVar(&rulesPath, "rules", "", "YAML type rules file (overrides rules_file)")
	cmd.Flags().StringVar(&docsDir, "docs", "", "document directory (overrides documents.dir)")
	cmd.Flags().StringVar(&storePath, "store", "", "SQLite store path; enables persistence")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the scoring cache")
	cmd.Flags().String("llm-provider", "", "LLM provider (openai, anthropic, ollama)")
	cmd.Flags().String("llm-model", "", "LLM model name")
}

// curationRuntime loads the configuration and applies the shared flags
func curationRuntime(cmd *cobra.Command) (*runtime, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if f := cmd.Flags().Lookup("llm-provider"); f != nil && f.Changed {
		cfg.LLM.Provider = f.Value.String()
		cfg.LLM.APIKey = apiKey(viper.GetViper(), cfg.LLM.Provider)
	}
	if f := cmd.Flags().Lookup("llm-model"); f != nil && f.Changed {
		cfg.LLM.Model = f.Value.String()
	}
	if docsDir != "" {
		cfg.Documents.Dir = docsDir
	}
	if rulesPath != "" {
		cfg.RulesFile = rulesPath
	}
	if storePath != "" {
		cfg.Storage.Enabled = true
		cfg.Storage.Path = storePath
	}
	return newRuntime(cfg, runtimeOptions{
		Candidates: candidatesPath,
		Scores:     scoresPath,
		Types:      typesPath,
		NoCache:    noCache,
	})
}

// signalContext cancels on interrupt so in-flight documents finish with a
// partial report instead of dying mid-batch
func signalContext(d time.Duration) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	ctx, cancel := context.WithTimeout(ctx, d)
	return ctx, func() {
		cancel()
		stop()
	}
}

func runCurate(cmd *cobra.Command, args []string) error {
	rt, err := curationRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	docIDs := args
	if len(docIDs) == 0 && rt.fixtures != nil {
		docIDs = rt.fixtures.Documents()
	}
	if len(docIDs) == 0 {
		return errors.New("no documents: pass doc ids or a --candidates fixture")
	}
	if outPath != "" && len(docIDs) > 1 {
		return errors.New("--out takes a single document; use 'kgcurator batch' for many")
	}

	ctx, cancel := signalContext(timeout)
	defer cancel()

	var failed []string
	for _, docID := range docIDs {
		report, err := rt.curator.CurateDocument(ctx, docID)
		if report == nil {
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", docID, err)
			failed = append(failed, docID)
			continue
		}

		switch {
		case outPath != "":
			if werr := writeReportFile(outPath, report); werr != nil {
				return werr
			}
		case len(docIDs) == 1:
			if werr := writeReport(os.Stdout, report); werr != nil {
				return werr
			}
		default:
			path := filepath.Join(rt.cfg.Output.Dir, sanitizeFilename(docID)+".json")
			if werr := writeReportFile(path, report); werr != nil {
				return werr
			}
		}
		printSummary(os.Stderr, report)

		if err != nil {
			if !curate.IsPartial(err) {
				failed = append(failed, docID)
			}
			fmt.Fprintf(os.Stderr, "  %v\n", err)
		}
		if ctx.Err() != nil {
			break
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("%d of %d document(s) failed: %v", len(failed), len(docIDs), failed)
	}
	return nil
}
