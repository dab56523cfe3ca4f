package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"siged/internal/api"
	"siged/internal/config"
)

func newDownloadCmd(cfg *config.Config) *cobra.Command {
	var outputPath string
	var rangeSpec string

	cmd := &cobra.Command{
		Use:   "download <id>",
		Short: "Download a document's file",
		Args:  cobra.ExactArgs(1),
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

				rangeHeader := ""
				if rangeSpec != "" {
					rangeHeader = "bytes=" + rangeSpec
				}

				contentType, err := client.Download(cmd.Context(), args[0], rangeHeader, w)
				if err != nil {
					return err
				}
				if outputPath != "" {
					fmt.Fprintf(os.Stderr, "wrote %s (%s)\n", outputPath, contentType)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().StringVar(&rangeSpec, "range", "", "byte range, e.g. 0-1023")

	return cmd
}
