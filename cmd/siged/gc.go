package main

import (
	"github.com/spf13/cobra"

	"siged/internal/api"
	"siged/internal/config"
)

func newGCCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var apply bool

	cmd := &cobra.Command{
		Use:   "gc",
		Short: "Sweep blobs no document references (dry run by default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				result, err := client.BlobGC(cmd.Context(), api.BlobGCRequest{Apply: apply}, apply)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(result)
				}
				_ = writePlain("candidates: %d\n", result.CandidateCount)
				_ = writePlain("deleted: %d\n", result.DeletedCount)
				_ = writePlain("failed: %d\n", result.FailedCount)
				_ = writePlain("reclaimed_bytes: %d\n", result.ReclaimedBytes)
				if result.DryRun {
					_ = writePlain("dry run; pass --apply to delete\n")
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&apply, "apply", false, "actually delete orphaned blobs")
	return cmd
}
