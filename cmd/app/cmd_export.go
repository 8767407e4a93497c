package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"FinCollect/internal/di"
	"FinCollect/internal/domain/models"
)

var (
	exportSymbol string
	exportMarket string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a persisted ledger to the configured sink",
	Long: `Restore ledgers from the configured store backend and export one of
them. Only meaningful with store.backend=redis; a memory store starts empty.

Example usage:
  fincollect export --symbol 700.HK --market equity`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportSymbol, "symbol", "", "ledger symbol")
	exportCmd.Flags().StringVar(&exportMarket, "market", "equity", "market kind: crypto or equity")
	_ = exportCmd.MarkFlagRequired("symbol")
}

func runExport(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	market, err := models.ParseMarketKind(exportMarket)
	if err != nil {
		return err
	}

	tool, cleanup, err := di.InitializeExportTool(cfg)
	if err != nil {
		return fmt.Errorf("export initialization failed: %w", err)
	}
	defer cleanup()

	res, err := tool.Export(cmd.Context(), models.LedgerKey{Market: market, Symbol: exportSymbol})
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
