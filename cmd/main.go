package main

import (
	"fmt"
	"log"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	cfgPkg "github.com/xhad/shopsage/pkg/config"
)

var (
	cfgFile string
	cfg     *cfgPkg.Config

	flagOllamaURL string
	flagDBPath    string
	flagDBURL     string
)

var rootCmd = &cobra.Command{
	Use:   "shopsage",
	Short: "Order-aware assistant for Shopify merchants",
	Long: `shopsage ingests store orders, embeds them with a local Ollama model and
answers merchant questions grounded in the retrieved orders.

Example usage:
  shopsage ingest sample                      # Load the demo orders
  shopsage ask "How do I reduce returns?"     # Structured recommendations
  shopsage chat                               # Interactive analyst chat
  shopsage serve                              # HTTP + WebSocket API`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = cfgPkg.LoadConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		// Command line flags win over file and environment.
		if flagOllamaURL != "" {
			cfg.Ollama.BaseURL = flagOllamaURL
		}
		if flagDBURL != "" {
			cfg.Database.URL = flagDBURL
			cfg.Database.Driver = cfgPkg.DriverPostgres
		}
		if flagDBPath != "" {
			cfg.Database.Path = flagDBPath
			cfg.Database.Driver = cfgPkg.DriverSQLite
		}

		if errs := cfg.Validate(); len(errs) > 0 {
			for _, e := range errs {
				color.Red("config: %v", e)
			}
			return fmt.Errorf("invalid configuration")
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./shopsage.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagOllamaURL, "ollama-url", "", "Ollama server URL")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db-path", "", "SQLite database file")
	rootCmd.PersistentFlags().StringVar(&flagDBURL, "db-url", "", "PostgreSQL connection string")

	rootCmd.AddCommand(serveCmd, ingestCmd, askCmd, chatCmd, statsCmd)
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
