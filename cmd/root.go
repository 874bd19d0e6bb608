package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/overviewer/sheetscan/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "sheetscan",
	Short: "Spreadsheet company enrichment service",
	Long:  "Ingests spreadsheets of company records, reconciles them against previously enriched companies, scrapes and summarizes the rest, and exports the enriched sheet.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
