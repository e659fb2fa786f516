// contextctl is the control CLI for the contextd tracking engine.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"contextd/internal/config"
	"contextd/internal/logging"
	"contextd/internal/metadata"
)

var (
	configPath string
	dbPath     string
)

var rootCmd = &cobra.Command{
	Use:   "contextctl",
	Short: "Inspect and maintain contextd task file-context state",
	Long: `contextctl operates on the contextd store: per-task file interaction
audit trails, model usage logs, and pending file-context warnings.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (toml or yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "path to the store database (overrides config)")
}

// loadConfig resolves the effective configuration for a command run.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if dbPath != "" {
		cfg.Storage.Path = dbPath
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		return nil, fmt.Errorf("configure logging: %w", err)
	}
	logging.SetDefault(logger)

	return cfg, nil
}

// openStore opens the configured store.
func openStore() (*metadata.SQLiteStore, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return metadata.Open(cfg.Storage.Path)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
