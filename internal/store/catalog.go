package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"siged/internal/models"
)

// AreaExists checks whether an active area exists by id.
func (s *Store) AreaExists(ctx context.Context, id string) (bool, error) {
	return s.rowExists(ctx, "SELECT 1 FROM areas WHERE id = ? AND active = 1 LIMIT 1", id)
}

// DocumentTypeExists checks whether an active document type exists by id.
func (s *Store) DocumentTypeExists(ctx context.Context, id string) (bool, error) {
	return s.rowExists(ctx, "SELECT 1 FROM document_types WHERE id = ? AND active = 1 LIMIT 1", id)
}

// ListAreas lists all areas ordered by name.
func (s *Store) ListAreas(ctx context.Context) ([]models.Area, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, active, created_at FROM areas ORDER BY name ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	areas := []models.Area{}
	for rows.Next() {
		var a models.Area
		var active int
		var createdAt string
		if err := rows.Scan(&a.ID, &a.Name, &active, &createdAt); err != nil {
			return nil, err
		}
		a.Active = active != 0
		if a.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		areas = append(areas, a)
	}
	return areas, rows.Err()
}

// ListDocumentTypes lists all document types ordered by name.
func (s *Store) ListDocumentTypes(ctx context.Context) ([]models.DocumentType, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, active, created_at FROM document_types ORDER BY name ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	types := []models.DocumentType{}
	for rows.Next() {
		var dt models.DocumentType
		var active int
		var createdAt string
		if err := rows.Scan(&dt.ID, &dt.Name, &active, &createdAt); err != nil {
			return nil, err
		}
		dt.Active = active != 0
		if dt.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		types = append(types, dt)
	}
	return types, rows.Err()
}

// UpsertArea inserts an area by name if absent and returns its id.
func (s *Store) UpsertArea(ctx context.Context, name string) (string, error) {
	return s.upsertCatalogRow(ctx, "areas", name)
}

// UpsertDocumentType inserts a document type by name if absent and returns its id.
func (s *Store) UpsertDocumentType(ctx context.Context, name string) (string, error) {
	return s.upsertCatalogRow(ctx, "document_types", name)
}

func (s *Store) upsertCatalogRow(ctx context.Context, table, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("name is required")
	}

	var id string
	err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT id FROM %s WHERE name = ?", table), name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return "", err
	}

	id = uuid.NewString()
	_, err = s.db.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (id, name, active, created_at) VALUES (?, ?, 1, ?)", table),
		id, name, formatTime(time.Now().UTC()),
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) rowExists(ctx context.Context, query string, args ...any) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
