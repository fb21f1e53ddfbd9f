package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ppiankov/kgcurator/internal/model"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage kgcurator configuration",
	Long: `Manage kgcurator configuration files and settings.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (KGCURATOR_*)
3. Config file (~/.kgcurator/config.yaml)
4. Defaults`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration after merging defaults, the config file and environment variables.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if configFile := viper.ConfigFileUsed(); configFile != "" {
			fmt.Fprintf(os.Stderr, "Configuration file: %s\n\n", configFile)
		} else {
			fmt.Fprintf(os.Stderr, "No configuration file found (using defaults)\n\n")
		}

		yamlData, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}

		fmt.Println("═══════════════════════════════════════════════════════════")
		fmt.Printf("  Current Configuration (version %s)\n", cfg.Version)
		fmt.Println("═══════════════════════════════════════════════════════════")
		fmt.Println()
		fmt.Println(string(yamlData))
		fmt.Println("Configuration hierarchy (highest to lowest priority):")
		fmt.Println("  1. CLI flags")
		fmt.Println("  2. Environment variables (KGCURATOR_*, OPENAI_API_KEY, ANTHROPIC_API_KEY)")
		fmt.Println("  3. Config file (~/.kgcurator/config.yaml)")
		fmt.Println("  4. Defaults")
		fmt.Println()

		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize default configuration file",
	Long:  `Create a default configuration file at ~/.kgcurator/config.yaml with every option filled in.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("error finding home directory: %w", err)
		}

		configPath := filepath.Join(home, ".kgcurator", "config.yaml")
		if err := writeDefaultConfig(configPath); err != nil {
			return err
		}

		fmt.Printf("✓ Created default configuration: %s\n", configPath)
		fmt.Printf("\nTo view the configuration:\n")
		fmt.Printf("  kgcurator config show\n")
		fmt.Printf("\nRule or coefficient changes should bump the version field.\n")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}

// writeDefaultConfig writes the built-in configuration to path, refusing
// to overwrite an existing file
func writeDefaultConfig(path string) (err error) {
	if _, statErr := os.Stat(path); statErr == nil {
		return fmt.Errorf("config file already exists: %s\nUse 'kgcurator config show' to view it, or delete it first to recreate", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	yamlData, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating config file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close config file: %w", closeErr)
		}
	}()

	header := "# kgcurator configuration\n" +
		"#\n" +
		"# Configuration hierarchy (highest to lowest priority):\n" +
		"#   1. CLI flags\n" +
		"#   2. Environment variables (KGCURATOR_*)\n" +
		"#   3. This config file\n" +
		"#   4. Built-in defaults\n" +
		"#\n" +
		"# API keys belong in the environment:\n" +
		"#   export OPENAI_API_KEY=sk-...\n" +
		"#   export ANTHROPIC_API_KEY=sk-ant-...\n\n"
	if _, err := f.WriteString(header); err != nil {
		return fmt.Errorf("error writing config: %w", err)
	}
	if _, err := f.Write(yamlData); err != nil {
		return fmt.Errorf("error writing config: %w", err)
	}
	return nil
}

// loadConfig builds the effective configuration from the defaults, the
// config file viper located, and environment overrides
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if path := viper.ConfigFileUsed(); path != "" {
		if err := decodeConfigFile(path, cfg); err != nil {
			return nil, err
		}
	}
	applyOverrides(viper.GetViper(), cfg)
	return cfg, nil
}

// decodeConfigFile overlays a YAML file onto cfg. A missing file is not an
// error; keys absent from the file keep their current values.
func decodeConfigFile(path string, cfg *model.Config) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// applyOverrides copies the keys viper resolved from flags or the
// environment onto cfg
func applyOverrides(v *viper.Viper, cfg *model.Config) {
	if v.IsSet("version") {
		cfg.Version = v.GetString("version")
	}
	if v.IsSet("llm.provider") {
		cfg.LLM.Provider = v.GetString("llm.provider")
	}
	if v.IsSet("llm.model") {
		cfg.LLM.Model = v.GetString("llm.model")
	}
	if v.IsSet("llm.base_url") {
		cfg.LLM.BaseURL = v.GetString("llm.base_url")
	}
	if v.IsSet("rules_file") {
		cfg.RulesFile = v.GetString("rules_file")
	}
	if v.IsSet("documents.dir") {
		cfg.Documents.Dir = v.GetString("documents.dir")
	}
	if v.IsSet("storage.path") {
		cfg.Storage.Path = v.GetString("storage.path")
		cfg.Storage.Enabled = true
	}
	if v.IsSet("storage.enabled") {
		cfg.Storage.Enabled = v.GetBool("storage.enabled")
	}
	if v.IsSet("output.log_mode") {
		cfg.Output.LogMode = v.GetString("output.log_mode")
	}
	if v.IsSet("output.verbose") {
		cfg.Output.Verbose = v.GetBool("output.verbose")
	}
	if v.IsSet("output.dir") {
		cfg.Output.Dir = v.GetString("output.dir")
	}
	if v.IsSet("concurrency.workers") {
		cfg.Concurrency.Workers = v.GetInt("concurrency.workers")
	}
	if v.IsSet("scoring.batch_size") {
		cfg.Scoring.BatchSize = v.GetInt("scoring.batch_size")
	}
	if v.IsSet("rate_limiting.requests_per_second") {
		cfg.RateLimiting.RequestsPerSecond = v.GetFloat64("rate_limiting.requests_per_second")
	}

	cfg.LLM.APIKey = apiKey(v, cfg.LLM.Provider)
}

// apiKey resolves the provider key; KGCURATOR_LLM_API_KEY wins over the
// provider's own variable
func apiKey(v *viper.Viper, provider string) string {
	if key := v.GetString("llm.api_key"); key != "" {
		return key
	}
	switch provider {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "anthropic", "claude":
		return os.Getenv("ANTHROPIC_API_KEY")
	}
	return ""
}
