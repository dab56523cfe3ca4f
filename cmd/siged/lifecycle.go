package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"siged/internal/api"
	"siged/internal/config"
)

func newTrashCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "trash <id>",
		Short: "Move a document to the trash, releasing its folios",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				doc, err := client.TrashDocument(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(doc)
				}
				return writePlain("trashed %s\n", doc.ID)
			})
		},
	}
}

func newRestoreCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <id>",
		Short: "Restore a document from the trash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				doc, err := client.RestoreDocument(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(doc)
				}
				return writePlain("restored %s\n", doc.ID)
			})
		},
	}
}

func newPurgeCmd(cfg *config.Config) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "purge <id>",
		Short: "Permanently delete a document and its unshared file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("purge is irreversible; pass --yes to confirm")
			}
			return withClient(cfg, func(client *api.Client) error {
				if err := client.PurgeDocument(cmd.Context(), args[0]); err != nil {
					return err
				}
				return writePlain("purged %s\n", args[0])
			})
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm permanent deletion")
	return cmd
}
