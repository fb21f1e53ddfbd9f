package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/kgcurator/internal/curate"
	"github.com/ppiankov/kgcurator/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
	allDocs      bool
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch [file]",
	Short: "Curate many documents in parallel",
	Long: `Batch curates documents concurrently:
- Read doc ids from a file (one per line, # comments allowed), or take
  every document in the document directory with --all
- Curate documents in parallel with a configurable worker count
- Collaborator calls share one rate limiter across workers
- Write one JSON report per document

A document whose extraction windows or scoring batches partly failed
still gets a report; the failed batches are listed in it. With --all the
content hashes taken at load time are the baseline for the whole run.

Example:
  kgcurator batch ids.txt
  kgcurator batch --all --docs ./transcripts --concurrency 8 --store ./kg.db
  kgcurator batch ids.txt --output-dir ./reports --timeout 1h`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)
	addCurationFlags(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent documents (default: concurrency.workers)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "", "output directory for reports (default: output.dir)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", time.Hour, "total timeout for batch processing")
	batchCmd.Flags().BoolVar(&allDocs, "all", false, "curate every document in the document directory")
}

func runBatch(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !allDocs {
		return errors.New("pass a doc id file or --all")
	}

	rt, err := curationRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	workers := rt.cfg.Concurrency.Workers
	if concurrency > 0 {
		workers = concurrency
	}
	dir := rt.cfg.Output.Dir
	if outputDir != "" {
		dir = outputDir
	}

	ctx, cancel := signalContext(batchTimeout)
	defer cancel()

	curator := rt.curator
	var docIDs []string
	if allDocs {
		// Hashing up front warms the text cache and pins each document's
		// revision for the run
		hashes, err := rt.docs.LoadDir(ctx, workers)
		if err != nil {
			return fmt.Errorf("load documents: %w", err)
		}
		docIDs, err = rt.docs.IDs()
		if err != nil {
			return err
		}
		curator = curator.WithKnownHashes(hashes)
		rt.log.Info("documents hashed", "count", len(hashes))
	} else {
		docIDs, err = worker.ReadDocIDsFromFile(args[0])
		if err != nil {
			return err
		}
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  kgcurator batch\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Documents:    %d\n", len(docIDs))
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", workers)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", dir)
	fmt.Fprintf(os.Stderr, "  Config:       %s\n", rt.cfg.Version)
	fmt.Fprintf(os.Stderr, "\n")

	results, summary := curate.NewBatchCurator(curator, workers).Run(ctx, docIDs)

	for _, result := range results {
		if result.Report != nil {
			path := filepath.Join(dir, sanitizeFilename(result.DocID)+".json")
			if err := writeReportFile(path, result.Report); err != nil {
				fmt.Fprintf(os.Stderr, "✗ %s: failed to write report: %v\n", result.DocID, err)
				continue
			}
			printSummary(os.Stderr, result.Report)
		}
		if result.Error != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.DocID, result.Error)
		}
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:          %d documents\n", summary.Documents)
	fmt.Fprintf(os.Stderr, "  Succeeded:      %d\n", summary.Succeeded)
	fmt.Fprintf(os.Stderr, "  Partial:        %d\n", summary.Partial)
	fmt.Fprintf(os.Stderr, "  Failed:         %d\n", summary.Failed)
	fmt.Fprintf(os.Stderr, "  Relationships:  %d\n", summary.Relationships)
	fmt.Fprintf(os.Stderr, "  Gate failures:  %d\n", summary.GateFailures)
	fmt.Fprintf(os.Stderr, "\n")

	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d document(s) failed", summary.Failed, summary.Documents)
	}
	return nil
}
