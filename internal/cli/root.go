package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "kgcurator",
	Short: "kgcurator - knowledge-graph relationship curation",
	Long: `kgcurator turns candidate relationships extracted from documents into
curated, scored, identity-stable graph edges.

Each candidate is type-checked, scored by a language model, combined into a
calibrated probability, given a stable claim_uid tied to its evidence, and
passed through a postprocessing pipeline that splits lists, resolves vague
entities and normalizes predicates.

Flags mark problems for review; nothing is silently dropped.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number and build information for kgcurator.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("kgcurator v0.3.0")
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.kgcurator/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(home + "/.kgcurator")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// KGCURATOR_LLM_PROVIDER maps to llm.provider
	viper.SetEnvPrefix("KGCURATOR")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}
