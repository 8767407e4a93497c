package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"FinCollect/internal/di"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the collector and its admin HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		return fmt.Errorf("app initialization failed: %w", err)
	}
	defer cleanup()

	return app.Run(cmd.Context())
}
