package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/kgcurator/internal/logging"
	"github.com/ppiankov/kgcurator/internal/model"
	"github.com/ppiankov/kgcurator/internal/score"
)

var (
	calibrationBuckets int
	calibrationTarget  float64
)

// calibrateCmd represents the calibrate command
var calibrateCmd = &cobra.Command{
	Use:   "calibrate <gold.jsonl>",
	Short: "Measure calibration of the signal combiner on a labeled set",
	Long: `Calibrate scores a labeled gold set with the configured coefficients and
prints a reliability table and the expected calibration error (ECE).

Each line of the gold set holds text_confidence, knowledge_plausibility,
pattern_prior, signals_conflict and the gold label "correct". The command
fails when ECE exceeds the target.

Example:
  kgcurator calibrate gold.jsonl
  kgcurator calibrate gold.jsonl --buckets 20 --target 0.05`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log, err := logging.New(cfg.Output.LogMode, cfg.Output.Verbose)
		if err != nil {
			return err
		}
		defer log.Sync()

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open gold set: %w", err)
		}
		defer func() { _ = f.Close() }()

		ece, err := calibrate(os.Stdout, f, cfg, log, calibrationBuckets)
		if err != nil {
			return err
		}
		if ece > calibrationTarget {
			return fmt.Errorf("ECE %.4f exceeds target %.4f", ece, calibrationTarget)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(calibrateCmd)
	calibrateCmd.Flags().IntVar(&calibrationBuckets, "buckets", 10, "number of reliability buckets")
	calibrateCmd.Flags().Float64Var(&calibrationTarget, "target", 0.07, "maximum acceptable ECE")
}

// calibrate evaluates the gold set in r and writes the reliability table
func calibrate(w io.Writer, r io.Reader, cfg *model.Config, log *logging.Logger, buckets int) (float64, error) {
	gold, err := score.LoadLabeled(r)
	if err != nil {
		return 0, fmt.Errorf("load gold set: %w", err)
	}
	if len(gold) == 0 {
		return 0, fmt.Errorf("gold set is empty")
	}

	samples, err := score.Evaluate(score.NewCombiner(cfg.Calibration, log), gold)
	if err != nil {
		return 0, err
	}

	fmt.Fprintf(w, "Calibration (%s, config %s, %d samples)\n\n", cfg.Calibration.Mode, cfg.Version, len(samples))
	fmt.Fprintf(w, "  %-13s %7s %8s %9s %7s\n", "bucket", "count", "mean p", "accuracy", "gap")
	for _, b := range score.ReliabilityBuckets(samples, buckets) {
		if b.Count == 0 {
			continue
		}
		fmt.Fprintf(w, "  [%.2f, %.2f) %7d %8.3f %9.3f %7.3f\n", b.Lower, b.Upper, b.Count, b.MeanP, b.Accuracy, b.Gap())
	}

	ece := score.ExpectedCalibrationError(samples, buckets)
	fmt.Fprintf(w, "\nECE: %.4f\n", ece)
	return ece, nil
}
