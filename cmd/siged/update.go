package main

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"siged/internal/api"
	"siged/internal/config"
	"siged/internal/models"
)

type updateCmdOptions struct {
	name        string
	subject     string
	docDate     string
	folios      int
	containerID string
	typeID      string
	areaID      string
	destAreaID  string
	state       string
	unassign    bool
	filePath    string
}

func newUpdateCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	opts := &updateCmdOptions{}
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := buildUpdateRequest(cmd, opts)
			if err != nil {
				return err
			}
			return withClient(cfg, func(client *api.Client) error {
				var doc models.Document
				if opts.filePath == "" {
					doc, err = client.UpdateDocument(cmd.Context(), args[0], req)
				} else {
					var file *os.File
					if file, err = os.Open(opts.filePath); err != nil {
						return err
					}
					defer file.Close()
					doc, err = client.UpdateDocumentWithFile(cmd.Context(), args[0], req, filepath.Base(opts.filePath), file)
				}
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

	cmd.Flags().StringVar(&opts.name, "name", "", "new name")
	cmd.Flags().StringVarP(&opts.subject, "subject", "s", "", "new subject")
	cmd.Flags().StringVar(&opts.docDate, "date", "", "new document date (YYYY-MM-DD)")
	cmd.Flags().IntVarP(&opts.folios, "folios", "n", 0, "new folio count")
	cmd.Flags().StringVarP(&opts.containerID, "container", "c", "", "move to container id")
	cmd.Flags().BoolVar(&opts.unassign, "unassign", false, "remove the container assignment")
	cmd.Flags().StringVarP(&opts.typeID, "type", "t", "", "new document type id")
	cmd.Flags().StringVarP(&opts.areaID, "area", "a", "", "new owning area id")
	cmd.Flags().StringVar(&opts.destAreaID, "dest-area", "", "new destination area id")
	cmd.Flags().StringVar(&opts.state, "state", "", "new state")
	cmd.Flags().StringVarP(&opts.filePath, "file", "f", "", "replacement file for the document content")

	return cmd
}

func buildUpdateRequest(cmd *cobra.Command, opts *updateCmdOptions) (api.DocumentUpdateRequest, error) {
	var req api.DocumentUpdateRequest

	if opts.unassign && opts.containerID != "" {
		return req, errors.New("--unassign conflicts with --container")
	}

	if cmd.Flags().Changed("name") {
		req.Name = &opts.name
	}
	if cmd.Flags().Changed("subject") {
		req.Subject = &opts.subject
	}
	if cmd.Flags().Changed("date") {
		parsed, err := time.Parse("2006-01-02", opts.docDate)
		if err != nil {
			return req, errors.New("invalid --date, expected YYYY-MM-DD")
		}
		req.DocDate = &parsed
	}
	if cmd.Flags().Changed("folios") {
		req.Folios = &opts.folios
	}
	if opts.containerID != "" {
		req.ContainerID = &opts.containerID
	}
	if opts.unassign {
		empty := ""
		req.ContainerID = &empty
	}
	if opts.typeID != "" {
		req.TypeID = &opts.typeID
	}
	if opts.areaID != "" {
		req.AreaID = &opts.areaID
	}
	if cmd.Flags().Changed("dest-area") {
		req.DestAreaID = &opts.destAreaID
	}
	if opts.state != "" {
		req.State = &opts.state
	}

	return req, nil
}
