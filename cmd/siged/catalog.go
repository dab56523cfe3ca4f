package main

import (
	"github.com/spf13/cobra"

	"siged/internal/api"
	"siged/internal/config"
	"siged/internal/models"
)

func newCatalogCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Show the area and document-type catalogs",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "areas",
			Short: "List areas",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withClient(cfg, func(client *api.Client) error {
					areas, err := client.ListAreas(cmd.Context())
					if err != nil {
						return err
					}
					if *jsonOutput {
						return writeJSON(areas)
					}
					return writeCatalogRows(areasToRows(areas))
				})
			},
		},
		&cobra.Command{
			Use:   "types",
			Short: "List document types",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withClient(cfg, func(client *api.Client) error {
					types, err := client.ListDocumentTypes(cmd.Context())
					if err != nil {
						return err
					}
					if *jsonOutput {
						return writeJSON(types)
					}
					return writeCatalogRows(typesToRows(types))
				})
			},
		},
	)

	return cmd
}

type catalogRow struct {
	id   string
	name string
}

func areasToRows(areas []models.Area) []catalogRow {
	rows := make([]catalogRow, 0, len(areas))
	for _, area := range areas {
		rows = append(rows, catalogRow{id: area.ID, name: area.Name})
	}
	return rows
}

func typesToRows(types []models.DocumentType) []catalogRow {
	rows := make([]catalogRow, 0, len(types))
	for _, t := range types {
		rows = append(rows, catalogRow{id: t.ID, name: t.Name})
	}
	return rows
}

func writeCatalogRows(rows []catalogRow) error {
	for _, row := range rows {
		if err := writePlain("%s  %s\n", row.id, row.name); err != nil {
			return err
		}
	}
	return nil
}
