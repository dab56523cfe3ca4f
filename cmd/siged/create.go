package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"siged/internal/api"
	"siged/internal/config"
)

type createCmdOptions struct {
	subject     string
	docDate     string
	folios      int
	containerID string
	typeID      string
	areaID      string
	destAreaID  string
	state       string
	filePath    string
}

func newCreateCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	opts := &createCmdOptions{}
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Register a new document, optionally uploading its file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(cmd, cfg, opts, jsonOutput, args)
		},
	}

	cmd.Flags().StringVarP(&opts.subject, "subject", "s", "", "document subject")
	cmd.Flags().StringVar(&opts.docDate, "date", "", "document date (YYYY-MM-DD)")
	cmd.Flags().IntVarP(&opts.folios, "folios", "n", 1, "folio count")
	cmd.Flags().StringVarP(&opts.containerID, "container", "c", "", "container id to assign")
	cmd.Flags().StringVarP(&opts.typeID, "type", "t", "", "document type id")
	cmd.Flags().StringVarP(&opts.areaID, "area", "a", "", "owning area id")
	cmd.Flags().StringVar(&opts.destAreaID, "dest-area", "", "destination area id")
	cmd.Flags().StringVar(&opts.state, "state", "", "initial state")
	cmd.Flags().StringVarP(&opts.filePath, "file", "f", "", "file to upload as document content")

	return cmd
}

func runCreate(cmd *cobra.Command, cfg *config.Config, opts *createCmdOptions, jsonOutput *bool, args []string) error {
	if len(args) == 0 {
		return errors.New("document name is required")
	}

	req := api.DocumentCreateRequest{
		Name:   strings.Join(args, " "),
		Folios: opts.folios,
		TypeID: opts.typeID,
		AreaID: opts.areaID,
	}
	if opts.subject != "" {
		req.Subject = &opts.subject
	}
	if opts.docDate != "" {
		parsed, err := time.Parse("2006-01-02", opts.docDate)
		if err != nil {
			return errors.New("invalid --date, expected YYYY-MM-DD")
		}
		req.DocDate = &parsed
	}
	if opts.containerID != "" {
		req.ContainerID = &opts.containerID
	}
	if opts.destAreaID != "" {
		req.DestAreaID = &opts.destAreaID
	}
	if opts.state != "" {
		req.State = &opts.state
	}

	return withClient(cfg, func(client *api.Client) error {
		if opts.filePath == "" {
			doc, err := client.CreateDocument(cmd.Context(), req)
			if err != nil {
				return err
			}
			if *jsonOutput {
				return writeJSON(doc)
			}
			return writePlain("%s\n", doc.ID)
		}

		file, err := os.Open(opts.filePath)
		if err != nil {
			return err
		}
		defer file.Close()

		doc, err := client.UploadDocument(cmd.Context(), req, filepath.Base(opts.filePath), file)
		if err != nil {
			return err
		}
		if *jsonOutput {
			return writeJSON(doc)
		}
		return writePlain("%s\n", doc.ID)
	})
}
