package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/overviewer/sheetscan/internal/export"
	"github.com/overviewer/sheetscan/internal/extract"
	"github.com/overviewer/sheetscan/internal/model"
	"github.com/overviewer/sheetscan/internal/reconcile"
	"github.com/overviewer/sheetscan/internal/sheet"
)

var (
	runInPath  string
	runOutPath string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Enrich a spreadsheet file in one pass",
	Long:  "Reads an XLSX file, reconciles its rows against the store, enriches what remains, and writes the enriched sheet.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		data, err := os.ReadFile(runInPath)
		if err != nil {
			return eris.Wrap(err, "read input file")
		}

		raw, err := sheet.Read(data)
		if err != nil {
			return eris.Wrap(err, "parse input file")
		}
		if len(raw.Headers) == 0 {
			return eris.New("input sheet has no header row")
		}

		mapped, err := env.Mapper.MapHeaders(ctx, raw.Headers)
		if err != nil {
			return eris.Wrap(err, "map headers")
		}
		zap.L().Info("headers mapped",
			zap.String("company_name", mapped.CompanyName),
			zap.String("country", mapped.Country),
			zap.String("website", mapped.Website),
		)

		identities, rows, err := extract.Rows(raw, mapped)
		if err != nil {
			return eris.Wrap(err, "extract rows")
		}

		lookup := make([]model.CompanyIdentity, 0, len(identities))
		for i, id := range identities {
			if !rows[i].HasError {
				lookup = append(lookup, id)
			}
		}
		out := env.Reconciler.Reconcile(ctx, lookup)
		rows = reconcile.Apply(rows, out)

		rows, report, err := env.Enricher.Enrich(ctx, rows)
		if err != nil {
			return eris.Wrap(err, "enrich rows")
		}

		cells := export.Project(rows)
		if len(cells) == 0 {
			zap.L().Warn("nothing to export, all rows invalid")
		} else {
			f, err := os.Create(runOutPath)
			if err != nil {
				return eris.Wrap(err, "create output file")
			}
			defer func() { _ = f.Close() }()
			if err := sheet.Write(f, "Enriched", export.Headers, cells); err != nil {
				return eris.Wrap(err, "write output file")
			}
			zap.L().Info("export written",
				zap.String("path", runOutPath),
				zap.Int("rows", len(cells)),
			)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"rows":      len(rows),
			"succeeded": report.Succeeded,
			"skipped":   report.Skipped,
			"failed":    report.Failed,
			"errors":    report.ErrorCount(),
			"degraded":  out.Degraded,
		})
	},
}

func init() {
	runCmd.Flags().StringVar(&runInPath, "in", "", "input XLSX file (required)")
	runCmd.Flags().StringVar(&runOutPath, "out", "enriched.xlsx", "output XLSX file")
	_ = runCmd.MarkFlagRequired("in")
	rootCmd.AddCommand(runCmd)
}
