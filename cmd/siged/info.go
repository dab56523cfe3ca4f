package main

import (
	"github.com/spf13/cobra"

	"siged/internal/api"
	"siged/internal/config"
)

func newInfoCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show registry and database info",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.GetInfo(cmd.Context())
				if err != nil {
					return err
				}

				if *jsonOutput {
					return writeJSON(resp)
				}

				_ = writePlain("db_path: %s\n", cfg.DBPath)
				_ = writePlain("blob_root: %s\n", cfg.BlobRootFor())
				_ = writePlain("schema_version: %d\n", resp.SchemaVersion)
				_ = writePlain("documents: %d\n", resp.DocumentCount)
				_ = writePlain("trashed_documents: %d\n", resp.TrashedDocuments)
				_ = writePlain("containers: %d\n", resp.ContainerCount)
				_ = writePlain("capacity_max: %d\n", resp.CapacityMax)
				return nil
			})
		},
	}
}
