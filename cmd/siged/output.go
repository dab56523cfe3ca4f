package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"siged/internal/models"
)

func writeJSON(payload any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

func writePlain(format string, args ...any) error {
	_, err := fmt.Fprintf(os.Stdout, format, args...)
	return err
}

func writeDocumentList(docs []models.Document) error {
	for _, doc := range docs {
		if err := writePlain("%s\n", formatDocumentLine(doc)); err != nil {
			return err
		}
	}
	return nil
}

func formatDocumentLine(doc models.Document) string {
	marker := "○"
	if doc.Trashed {
		marker = "✗"
	}
	line := fmt.Sprintf("%s %s [%s] [%df] - %s", marker, doc.ID, doc.State, doc.Folios, doc.Name)
	if doc.HasBlob() {
		line += " (+file)"
	}
	return line
}

func writeDocumentDetail(doc models.Document) error {
	lines := []string{
		fmt.Sprintf("id: %s", doc.ID),
		fmt.Sprintf("name: %s", doc.Name),
		fmt.Sprintf("state: %s", doc.State),
		fmt.Sprintf("folios: %d", doc.Folios),
		fmt.Sprintf("area_id: %s", doc.AreaID),
		fmt.Sprintf("type_id: %s", doc.TypeID),
		fmt.Sprintf("created_at: %s", formatTime(doc.CreatedAt)),
		fmt.Sprintf("updated_at: %s", formatTime(doc.UpdatedAt)),
	}

	if doc.Subject != "" {
		lines = append(lines, fmt.Sprintf("subject: %s", doc.Subject))
	}
	if doc.DocDate != nil {
		lines = append(lines, fmt.Sprintf("doc_date: %s", doc.DocDate.Format("2006-01-02")))
	}
	if doc.ContainerID != "" {
		lines = append(lines, fmt.Sprintf("container_id: %s", doc.ContainerID))
	}
	if doc.DestAreaID != "" {
		lines = append(lines, fmt.Sprintf("dest_area_id: %s", doc.DestAreaID))
	}
	if doc.HasBlob() {
		lines = append(lines,
			fmt.Sprintf("blob_digest: %s", doc.BlobDigest),
			fmt.Sprintf("blob_size: %d", doc.BlobSize),
			fmt.Sprintf("blob_mime: %s", doc.BlobMime),
		)
	}
	if doc.QueryCount > 0 {
		lines = append(lines, fmt.Sprintf("query_count: %d", doc.QueryCount))
	}
	if doc.Trashed {
		lines = append(lines, "trashed: true")
		if doc.TrashedAt != nil {
			lines = append(lines, fmt.Sprintf("trashed_at: %s", formatTime(*doc.TrashedAt)))
		}
	}

	return writePlain("%s\n", strings.Join(lines, "\n"))
}

func writeContainerList(containers []models.Container) error {
	for _, container := range containers {
		if err := writePlain("%s\n", formatContainerLine(container)); err != nil {
			return err
		}
	}
	return nil
}

func formatContainerLine(container models.Container) string {
	return fmt.Sprintf("%s [%s] %d folios - %s", container.ID, container.State, container.FolioTotal, container.Name)
}

func writeContainerDetail(container models.Container) error {
	lines := []string{
		fmt.Sprintf("id: %s", container.ID),
		fmt.Sprintf("name: %s", container.Name),
		fmt.Sprintf("state: %s", container.State),
		fmt.Sprintf("folio_total: %d", container.FolioTotal),
		fmt.Sprintf("area_id: %s", container.AreaID),
		fmt.Sprintf("type_id: %s", container.TypeID),
		fmt.Sprintf("created_at: %s", formatTime(container.CreatedAt)),
	}
	if container.Description != "" {
		lines = append(lines, fmt.Sprintf("description: %s", container.Description))
	}
	if container.Location != "" {
		lines = append(lines, fmt.Sprintf("location: %s", container.Location))
	}
	if container.Trashed {
		lines = append(lines, "trashed: true")
	}
	return writePlain("%s\n", strings.Join(lines, "\n"))
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
