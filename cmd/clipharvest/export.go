package main

import (
	"fmt"

	"clipharvest/internal/pipeline"
	"clipharvest/pkg/ui"

	"github.com/spf13/cobra"
)

var (
	exportInputs []string
	exportXLSX   string
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:     "export",
	Short:   "Merge result tables into a spreadsheet",
	Example: `  clipharvest export --input data/tiktok/ai/ai_NL.csv --input data/tiktok/ai/ai_US.csv --xlsx ai.xlsx`,
	Args:    cobra.NoArgs,
	RunE:    runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringSliceVarP(&exportInputs, "input", "i", nil, "result tables to merge (repeatable)")
	exportCmd.Flags().StringVar(&exportXLSX, "xlsx", "", "spreadsheet to write")
	_ = exportCmd.MarkFlagRequired("input")
	_ = exportCmd.MarkFlagRequired("xlsx")
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(nil)
	if err != nil {
		return err
	}

	n, err := pipeline.New(cfg, log).Export(exportInputs, exportXLSX)
	if err != nil {
		log.WithError(err).Error("Export failed")
		return err
	}
	ui.PrintSuccess(fmt.Sprintf("Exported %d rows to %s", n, exportXLSX))
	return nil
}
