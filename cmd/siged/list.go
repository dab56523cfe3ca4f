package main

import (
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"siged/internal/api"
	"siged/internal/config"
)

type listCmdOptions struct {
	areaID      string
	typeID      string
	containerID string
	state       string
	trashed     bool
	limit       int
	offset      int
}

func newListCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	opts := &listCmdOptions{}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{}
			if opts.areaID != "" {
				query.Set("area_id", opts.areaID)
			}
			if opts.typeID != "" {
				query.Set("type_id", opts.typeID)
			}
			if opts.containerID != "" {
				query.Set("container_id", opts.containerID)
			}
			if opts.state != "" {
				query.Set("state", opts.state)
			}
			if opts.trashed {
				query.Set("trashed", "true")
			}
			if opts.limit > 0 {
				query.Set("limit", strconv.Itoa(opts.limit))
			}
			if opts.offset > 0 {
				query.Set("offset", strconv.Itoa(opts.offset))
			}

			return withClient(cfg, func(client *api.Client) error {
				docs, err := client.ListDocuments(cmd.Context(), query)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(docs)
				}
				return writeDocumentList(docs)
			})
		},
	}

	cmd.Flags().StringVarP(&opts.areaID, "area", "a", "", "filter by area id")
	cmd.Flags().StringVarP(&opts.typeID, "type", "t", "", "filter by document type id")
	cmd.Flags().StringVarP(&opts.containerID, "container", "c", "", "filter by container id")
	cmd.Flags().StringVar(&opts.state, "state", "", "filter by state")
	cmd.Flags().BoolVar(&opts.trashed, "trashed", false, "list the trash instead of the registry")
	cmd.Flags().IntVar(&opts.limit, "limit", 0, "maximum results")
	cmd.Flags().IntVar(&opts.offset, "offset", 0, "results to skip")

	return cmd
}
