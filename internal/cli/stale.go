package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/kgcurator/internal/docstore"
	"github.com/ppiankov/kgcurator/internal/identity"
	"github.com/ppiankov/kgcurator/internal/logging"
	"github.com/ppiankov/kgcurator/internal/model"
	"github.com/ppiankov/kgcurator/internal/store"
)

var staleDryRun bool

// staleCmd represents the stale command
var staleCmd = &cobra.Command{
	Use:   "stale [doc-id]",
	Short: "Re-check stored relationships against the current documents",
	Long: `Stale compares the content hash recorded in each stored relationship's
evidence span with the document's current hash. Relationships whose
document changed are marked stale and flagged STALE_EVIDENCE; those whose
document disappeared are marked missing. Nothing is deleted.

Example:
  kgcurator stale --store ./kg.db --docs ./transcripts
  kgcurator stale episode-120 --store ./kg.db --dry-run`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if docsDir != "" {
			cfg.Documents.Dir = docsDir
		}
		if storePath != "" {
			cfg.Storage.Path = storePath
		}

		log, err := logging.New(cfg.Output.LogMode, cfg.Output.Verbose)
		if err != nil {
			return err
		}
		defer log.Sync()

		st, err := store.Open(cfg.Storage.Path)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		docID := ""
		if len(args) == 1 {
			docID = args[0]
		}

		ctx, cancel := signalContext(timeout)
		defer cancel()

		docs := docstore.NewFileStore(cfg.Documents.Dir, cfg.Documents.CacheTTL)
		checked, changed, err := refreshEvidence(ctx, st, docs, log, docID, staleDryRun)
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "Checked %d relationships, %d changed status\n", checked, len(changed))
		for _, rel := range changed {
			fmt.Fprintf(os.Stderr, "  %s  %s  %s -[%s]-> %s\n",
				rel.EvidenceStatus, rel.ClaimUID[:12], rel.Source, rel.Predicate, rel.Target)
		}
		if staleDryRun && len(changed) > 0 {
			fmt.Fprintf(os.Stderr, "(dry run, store not updated)\n")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(staleCmd)
	staleCmd.Flags().StringVar(&storePath, "store", "", "SQLite store path (overrides storage.path)")
	staleCmd.Flags().StringVar(&docsDir, "docs", "", "document directory (overrides documents.dir)")
	staleCmd.Flags().BoolVar(&staleDryRun, "dry-run", false, "report changes without writing them")
	staleCmd.Flags().DurationVar(&timeout, "timeout", 10*time.Minute, "overall timeout")
}

// refreshEvidence re-checks stored relationships (all of them, or one
// document's) and writes back the ones whose status changed
func refreshEvidence(ctx context.Context, st *store.SQLiteStore, docs docstore.HashSource, log *logging.Logger, docID string, dryRun bool) (int, []model.Relationship, error) {
	var (
		rels []model.Relationship
		err  error
	)
	if docID != "" {
		rels, err = st.ListByDoc(ctx, docID)
	} else {
		rels, err = st.List(ctx)
	}
	if err != nil {
		return 0, nil, err
	}

	changed, err := identity.NewManager(docs, log).Refresh(ctx, rels)
	if err != nil {
		return len(rels), changed, err
	}
	if dryRun {
		return len(rels), changed, nil
	}

	for _, rel := range changed {
		if err := st.MarkStatus(ctx, rel.ClaimUID, rel.EvidenceStatus); err != nil {
			return len(rels), changed, err
		}
	}
	return len(rels), changed, nil
}
