package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/kgcurator/internal/model"
	"github.com/ppiankov/kgcurator/internal/score"
	"github.com/ppiankov/kgcurator/internal/store"
)

var (
	priorsAcceptAt float64
	priorsAlpha    float64
)

// priorsCmd represents the priors command
var priorsCmd = &cobra.Command{
	Use:   "priors",
	Short: "Derive predicate pattern priors from the stored relationships",
	Long: `Priors counts stored relationships per predicate and prints a new priors
section for the configuration file. A relationship counts as accepted when
its p_true reaches --accept-at and its evidence is fresh. Counts are
smoothed toward priors.default with strength --alpha.

Applying the output is a configuration change: bump the version field.

Example:
  kgcurator priors --store ./kg.db
  kgcurator priors --store ./kg.db --accept-at 0.6 --alpha 10`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if storePath != "" {
			cfg.Storage.Path = storePath
		}

		st, err := store.Open(cfg.Storage.Path)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		priors, err := derivePriors(cmd.Context(), st, cfg, priorsAcceptAt, priorsAlpha)
		if err != nil {
			return err
		}

		out, err := yaml.Marshal(map[string]model.PriorConfig{"priors": priors})
		if err != nil {
			return fmt.Errorf("error marshaling priors: %w", err)
		}
		_, err = os.Stdout.Write(out)
		return err
	},
}

func init() {
	rootCmd.AddCommand(priorsCmd)
	priorsCmd.Flags().StringVar(&storePath, "store", "", "SQLite store path (overrides storage.path)")
	priorsCmd.Flags().Float64Var(&priorsAcceptAt, "accept-at", 0.5, "p_true at or above which a relationship counts as accepted")
	priorsCmd.Flags().Float64Var(&priorsAlpha, "alpha", 5, "smoothing strength toward the default prior")
}

// derivePriors turns stored predicate counts into a prior configuration
func derivePriors(ctx context.Context, st *store.SQLiteStore, cfg *model.Config, acceptAt, alpha float64) (model.PriorConfig, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	stats, err := st.PredicateCounts(ctx, acceptAt)
	if err != nil {
		return model.PriorConfig{}, err
	}
	return score.PriorsFromStats(stats, cfg.Priors.Default, alpha), nil
}
