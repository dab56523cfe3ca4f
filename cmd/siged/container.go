package main

import (
	"errors"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"siged/internal/api"
	"siged/internal/config"
)

func newContainerCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "container",
		Aliases: []string{"archivador"},
		Short:   "Manage document containers",
	}

	cmd.AddCommand(
		newContainerCreateCmd(cfg, jsonOutput),
		newContainerShowCmd(cfg, jsonOutput),
		newContainerListCmd(cfg, jsonOutput),
		newContainerUpdateCmd(cfg, jsonOutput),
	)
	return cmd
}

func newContainerCreateCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var description, areaID, typeID, location string

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new container",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return errors.New("container name is required")
			}

			req := api.ContainerCreateRequest{
				Name:   strings.Join(args, " "),
				AreaID: areaID,
				TypeID: typeID,
			}
			if description != "" {
				req.Description = &description
			}
			if location != "" {
				req.Location = &location
			}

			return withClient(cfg, func(client *api.Client) error {
				container, err := client.CreateContainer(cmd.Context(), req)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(container)
				}
				return writePlain("%s\n", container.ID)
			})
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "container description")
	cmd.Flags().StringVarP(&areaID, "area", "a", "", "owning area id")
	cmd.Flags().StringVarP(&typeID, "type", "t", "", "accepted document type id")
	cmd.Flags().StringVar(&location, "location", "", "physical location")

	return cmd
}

func newContainerShowCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				container, err := client.GetContainer(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(container)
				}
				return writeContainerDetail(container)
			})
		},
	}
}

func newContainerListCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var areaID string
	var includeTrashed bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List containers",
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{}
			if areaID != "" {
				query.Set("area_id", areaID)
			}
			if includeTrashed {
				query.Set("include_trashed", "true")
			}

			return withClient(cfg, func(client *api.Client) error {
				containers, err := client.ListContainers(cmd.Context(), query)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(containers)
				}
				return writeContainerList(containers)
			})
		},
	}

	cmd.Flags().StringVarP(&areaID, "area", "a", "", "filter by area id")
	cmd.Flags().BoolVar(&includeTrashed, "include-trashed", false, "include trashed containers")

	return cmd
}

func newContainerUpdateCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var name, description, location, state string
	var trash, restore bool

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a container's metadata, state, or trashed flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if trash && restore {
				return errors.New("--trash conflicts with --restore")
			}

			var req api.ContainerUpdateRequest
			if cmd.Flags().Changed("name") {
				req.Name = &name
			}
			if cmd.Flags().Changed("description") {
				req.Description = &description
			}
			if cmd.Flags().Changed("location") {
				req.Location = &location
			}
			if state != "" {
				req.State = &state
			}
			if trash {
				value := true
				req.Trashed = &value
			}
			if restore {
				value := false
				req.Trashed = &value
			}

			return withClient(cfg, func(client *api.Client) error {
				container, err := client.UpdateContainer(cmd.Context(), args[0], req)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(container)
				}
				return writeContainerDetail(container)
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVarP(&description, "description", "d", "", "new description")
	cmd.Flags().StringVar(&location, "location", "", "new physical location")
	cmd.Flags().StringVar(&state, "state", "", "new state (open, closed, in_custody)")
	cmd.Flags().BoolVar(&trash, "trash", false, "move the container to the trash")
	cmd.Flags().BoolVar(&restore, "restore", false, "restore the container from the trash")

	return cmd
}
