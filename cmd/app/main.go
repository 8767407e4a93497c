package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"FinCollect/pkg/config"
)

var configPath string

// rootCmd serves by default; subcommands cover one-off calendar and export tasks.
var rootCmd = &cobra.Command{
	Use:   "fincollect",
	Short: "FinCollect scheduled market data collector",
	Long: `FinCollect polls an upstream quote endpoint for one symbol on a fixed
cadence, keeps a bounded per-symbol ledger and exports it on demand. In auto
mode collection follows the exchange trading calendar.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/config.yaml", "config file path (empty for defaults)")
	rootCmd.AddCommand(serveCmd, sessionCmd, exportCmd)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
