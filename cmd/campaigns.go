package main

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var campaignIndustry string

var campaignsCmd = &cobra.Command{
	Use:   "campaigns",
	Short: "Manage outreach campaigns",
}

var campaignsAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a campaign",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx, "store")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		c, err := st.CreateCampaign(ctx, args[0], campaignIndustry)
		if err != nil {
			return eris.Wrap(err, "create campaign")
		}
		return json.NewEncoder(cmd.OutOrStdout()).Encode(c)
	},
}

var campaignsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List campaigns",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx, "store")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		list, err := st.ListCampaigns(ctx)
		if err != nil {
			return eris.Wrap(err, "list campaigns")
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	},
}

func init() {
	campaignsAddCmd.Flags().StringVar(&campaignIndustry, "industry", "", "industry targeted by the campaign")
	campaignsCmd.AddCommand(campaignsAddCmd, campaignsListCmd)
	rootCmd.AddCommand(campaignsCmd)
}
