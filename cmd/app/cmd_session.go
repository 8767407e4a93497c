package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"FinCollect/internal/di"
	"FinCollect/internal/domain/models"
	"FinCollect/pkg/util"
)

var (
	sessionMarket string
	sessionAt     string
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Print the trading session for a market at an instant",
	Long: `Evaluate the configured trading calendar without starting the collector.

Example usage:
  fincollect session --market equity
  fincollect session --market equity --at 2024-01-03T04:30:00Z`,
	RunE: runSession,
}

func init() {
	sessionCmd.Flags().StringVar(&sessionMarket, "market", "equity", "market kind: crypto or equity")
	sessionCmd.Flags().StringVar(&sessionAt, "at", "", "instant as RFC3339 or unix seconds (default now)")
}

func runSession(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cal, err := di.ProvideCalendar(cfg)
	if err != nil {
		return err
	}
	market, err := models.ParseMarketKind(sessionMarket)
	if err != nil {
		return err
	}
	at := time.Now()
	if sessionAt != "" {
		t, ok := util.ParseTime(sessionAt)
		if !ok {
			return fmt.Errorf("invalid --at %q", sessionAt)
		}
		at = t
	}

	session, err := cal.SessionAt(market, at)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(session)
}
