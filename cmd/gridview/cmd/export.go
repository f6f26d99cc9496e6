package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/solatis/gridview/internal/export"
	"github.com/spf13/cobra"
)

var (
	exportFlags  gridFlags
	exportOutput string
	exportFormat string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a resolved view as an Excel workbook or CSV file",
	Example: `  gridview export --view items.yaml --records items.json --output items.xlsx
  gridview export --view items.yaml --records items.json --filter location=Nantes --output nantes.csv`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportFlags.register(exportCmd)
	exportCmd.Flags().StringVar(&exportOutput, "output", "", "output file (.xlsx or .csv)")
	exportCmd.Flags().StringVar(&exportFormat, "format", "", "output format, overriding the file extension (xlsx, csv)")
	exportCmd.Flags().String("sheet-name", "", "worksheet name for xlsx output")
	_ = exportCmd.MarkFlagRequired("output")
}

func runExport(cmd *cobra.Command, args []string) (err error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	format, err := export.FormatForPath(exportOutput)
	if exportFormat != "" {
		format, err = export.ParseFormat(exportFormat)
	}
	if err != nil {
		return err
	}

	r, err := cfg.View.NewResolver()
	if err != nil {
		return err
	}
	g, err := exportFlags.build(r)
	if err != nil {
		return err
	}
	rows := g.ExportGrid()

	f, err := os.Create(exportOutput)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", exportOutput, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := export.Write(f, format, rows, cfg.Export.SheetName); err != nil {
		return err
	}
	slog.Info("exported view", "path", exportOutput, "format", string(format), "rows", len(rows)-1)
	return nil
}
