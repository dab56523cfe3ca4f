package main

import (
	"errors"

	"github.com/spf13/cobra"

	"siged/internal/api"
	"siged/internal/config"
)

func newShowCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] == "" {
				return errors.New("document id is required")
			}
			return withClient(cfg, func(client *api.Client) error {
				doc, err := client.GetDocument(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(doc)
				}
				return writeDocumentDetail(doc)
			})
		},
	}
}
