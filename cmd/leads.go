package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/freakspace/leadtool/internal/export"
)

var leadsExportOut string

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "Inspect and export parsed leads",
}

var leadsNextCmd = &cobra.Command{
	Use:   "next",
	Short: "Print the next lead awaiting review as JSON",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx, "store")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		link, err := st.FetchOneUnlabeled(ctx)
		if err != nil {
			return eris.Wrap(err, "fetch next lead")
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(link)
	},
}

var leadsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write parsed leads with an email address to CSV",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx, "store")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		out := cmd.OutOrStdout()
		if leadsExportOut != "" && leadsExportOut != "-" {
			f, err := os.Create(leadsExportOut)
			if err != nil {
				return eris.Wrapf(err, "create %s", leadsExportOut)
			}
			defer f.Close() //nolint:errcheck
			out = f
		}

		n, err := export.Leads(ctx, st, out)
		if err != nil {
			return err
		}
		zap.L().Info("leads exported", zap.Int("rows", n), zap.String("out", leadsExportOut))
		return nil
	},
}

func init() {
	leadsExportCmd.Flags().StringVar(&leadsExportOut, "out", "-", "output CSV path (- for stdout)")
	leadsCmd.AddCommand(leadsNextCmd, leadsExportCmd)
	rootCmd.AddCommand(leadsCmd)
}
