package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRefreshSchedulesCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "refresh-schedules",
		Short: "Re-extracts schedules for the most recent postings",
		Long: `Re-runs schedule extraction over the most recently ingested postings
and wholesale-replaces each posting's stored schedule set. Postings that
have since disappeared from the store are skipped.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck // best-effort flush

			w, store, err := buildPipeline(cmd, cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := w.RefreshSchedules(cmd.Context(), limit); err != nil {
				return fmt.Errorf("refresh schedules: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of recent postings to refresh")
	return cmd
}
