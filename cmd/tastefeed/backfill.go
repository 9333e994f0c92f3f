package main

import (
	"fmt"

	"github.com/spf13/cobra"

	backfilluc "github.com/kailas-cloud/tastefeed/internal/usecase/backfill"
)

// NewBackfillCmd fingerprints articles that do not have one yet.
func NewBackfillCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Fingerprint articles missing a fingerprint",
		Long:  `Lists every article in the document store, skips those already fingerprinted and encodes the rest.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, cfg, logger, err := loadRuntime(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			batch, _ := cmd.Flags().GetInt("batch")
			workers, _ := cmd.Flags().GetInt("workers")
			if workers <= 0 {
				workers = cfg.Backfill.Workers
			}
			dryRun, _ := cmd.Flags().GetBool("dry-run")

			a, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			if dryRun {
				missing, err := a.backfill.Missing(cmd.Context())
				if err != nil {
					return fmt.Errorf("backfill: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d articles without a fingerprint\n", len(missing))
				return nil
			}

			res, err := a.backfill.Run(cmd.Context(), backfilluc.Config{Batch: batch, Workers: workers})
			fmt.Fprintf(cmd.OutOrStdout(), "pending=%d generated=%d skipped=%d\n", res.Pending, res.Generated, res.Skipped)
			if err != nil {
				return fmt.Errorf("backfill: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().Int("batch", 0, "Process at most N articles (0 = all)")
	cmd.Flags().Int("workers", 0, "Concurrent encode calls (default from config)")
	cmd.Flags().Bool("dry-run", false, "Only report how many articles need a fingerprint")
	return cmd
}
