package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/freakspace/leadtool/internal/harvest"
)

var (
	importXLSX      string
	importSheet     string
	importCSV       string
	importSheetID   string
	importSheetName []string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Harvest domains from a spreadsheet into the store",
	Long:  "Reads the first column of an XLSX file, a CSV file or a shared Google Sheet, normalizes each value to a domain and creates a link for it. Domains that were already emailed are skipped.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		values, err := readImportValues(cmd)
		if err != nil {
			return err
		}

		st, err := openStore(ctx, "store")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		stats, err := harvest.NewHarvester(st).Import(ctx, values)
		if err != nil {
			return eris.Wrap(err, "import")
		}
		return json.NewEncoder(cmd.OutOrStdout()).Encode(stats)
	},
}

// readImportValues loads the first column from whichever source was given.
func readImportValues(cmd *cobra.Command) ([]string, error) {
	switch {
	case importXLSX != "":
		return harvest.ReadXLSX(importXLSX, importSheet)
	case importCSV != "":
		f, err := os.Open(importCSV)
		if err != nil {
			return nil, eris.Wrapf(err, "open %s", importCSV)
		}
		defer f.Close() //nolint:errcheck
		return harvest.ReadCSV(f)
	case importSheetID != "":
		if len(importSheetName) == 0 {
			return nil, eris.New("--sheet-name is required with --sheet-id")
		}
		client := harvest.NewSheetClient()
		var values []string
		for _, name := range importSheetName {
			col, err := client.Column(cmd.Context(), importSheetID, name)
			if err != nil {
				return nil, err
			}
			values = append(values, col...)
		}
		return values, nil
	default:
		return nil, eris.New("one of --xlsx, --csv or --sheet-id is required")
	}
}

func init() {
	importCmd.Flags().StringVar(&importXLSX, "xlsx", "", "path to an XLSX workbook")
	importCmd.Flags().StringVar(&importSheet, "sheet", "", "worksheet name in the XLSX workbook (default first)")
	importCmd.Flags().StringVar(&importCSV, "csv", "", "path to a CSV file")
	importCmd.Flags().StringVar(&importSheetID, "sheet-id", "", "Google Sheets spreadsheet ID")
	importCmd.Flags().StringSliceVar(&importSheetName, "sheet-name", nil, "Google Sheets tab name (repeatable)")
	importCmd.MarkFlagsMutuallyExclusive("xlsx", "csv", "sheet-id")
	rootCmd.AddCommand(importCmd)
}
