package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/freakspace/leadtool/internal/batch"
)

var (
	runMode        string
	runLimit       int
	runConcurrency int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Classify or extract every eligible link",
	Long:  "Runs the classification or extraction orchestrator over eligible links in store order. A failing link is logged and the batch continues.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if runMode != "" {
			cfg.Batch.Mode = runMode
		}
		if runLimit > 0 {
			cfg.Batch.Limit = runLimit
		}
		if runConcurrency > 0 {
			cfg.Batch.Concurrency = runConcurrency
		}
		st, err := openStore(ctx, "run")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		p, err := buildPipeline(ctx, cfg, st, newAnthropicClient(cfg))
		if err != nil {
			return err
		}

		links, proc, err := p.selectLinks(ctx, st, cfg.Batch.Mode, cfg.Batch.Limit)
		if err != nil {
			return err
		}
		if len(links) == 0 {
			zap.L().Info("no eligible links", zap.String("mode", cfg.Batch.Mode))
			return nil
		}

		runner := batch.NewRunner(st, cfg.Batch.Concurrency, cfg.Batch.Lease())
		summary := runner.Run(ctx, links, proc)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			return eris.Wrap(err, "write summary")
		}
		if err := ctx.Err(); err != nil {
			return eris.Wrap(err, "run interrupted")
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runMode, "mode", "", "classify or extract (default from config)")
	runCmd.Flags().IntVar(&runLimit, "limit", 0, "max links to process (0 = all)")
	runCmd.Flags().IntVar(&runConcurrency, "concurrency", 0, "links processed in parallel (default from config)")
	rootCmd.AddCommand(runCmd)
}
