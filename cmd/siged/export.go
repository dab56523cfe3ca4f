package main

import (
	"os"

	"github.com/spf13/cobra"

	"siged/internal/api"
	"siged/internal/config"
)

func newExportCmd(cfg *config.Config) *cobra.Command {
	var outputPath string
	var compress bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the full registry as NDJSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				w := os.Stdout
				if outputPath != "" {
					f, err := os.Create(outputPath)
					if err != nil {
						return err
					}
					defer f.Close()
					w = f
				}
				return client.Export(cmd.Context(), w, compress)
			})
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().BoolVar(&compress, "gzip", false, "request gzip-compressed output")

	return cmd
}
