package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"siged/internal/models"
)

const documentColumns = `id, name, subject, doc_date, folios, blob_digest, blob_key, blob_size, blob_mime,
container_id, type_id, area_id, dest_area_id, state, trashed, trashed_at, trashed_by,
query_count, last_query_at, created_at, created_by, updated_at, updated_by`

// DocumentFilter narrows ListDocuments.
type DocumentFilter struct {
	AreaID      string
	TypeID      string
	ContainerID string
	State       string
	Trashed     *bool
	Limit       int
	Offset      int
}

// CreateDocument inserts a document. When the document targets a container,
// the folio reservation, the insert, and the auto-close check commit in one
// transaction; a capacity or closed-state rejection rolls everything back.
func (s *Store) CreateDocument(ctx context.Context, doc *models.Document, capacityMax int) (err error) {
	if doc == nil {
		return fmt.Errorf("document is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if doc.ContainerID != "" {
		if err = reserveContainerTx(ctx, tx, doc.ContainerID, doc.Folios, capacityMax); err != nil {
			return err
		}
	}

	if err = insertDocumentTx(ctx, tx, doc); err != nil {
		return err
	}

	if doc.ContainerID != "" {
		if err = autoCloseContainerTx(ctx, tx, doc.ContainerID, capacityMax); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetDocument returns a document by id, or nil when absent.
func (s *Store) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	return scanDocument(row)
}

// ListDocuments lists documents matching the filter, newest first.
func (s *Store) ListDocuments(ctx context.Context, filter DocumentFilter) ([]models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE 1=1`
	args := []any{}
	if filter.Trashed != nil {
		query += " AND trashed = ?"
		args = append(args, boolToInt(*filter.Trashed))
	}
	if filter.AreaID != "" {
		query += " AND area_id = ?"
		args = append(args, filter.AreaID)
	}
	if filter.TypeID != "" {
		query += " AND type_id = ?"
		args = append(args, filter.TypeID)
	}
	if filter.ContainerID != "" {
		query += " AND container_id = ?"
		args = append(args, filter.ContainerID)
	}
	if filter.State != "" {
		query += " AND state = ?"
		args = append(args, filter.State)
	}
	query += " ORDER BY updated_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []models.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		if doc != nil {
			docs = append(docs, *doc)
		}
	}
	return docs, rows.Err()
}

// UpdateDocument persists doc, adjusting container totals against prev.
// Three cases share one transaction: container changed (full folios added
// to the target, full previous folios released from the source), container
// unchanged with folios changed (only the delta applied), and neither
// (plain row update).
func (s *Store) UpdateDocument(ctx context.Context, doc, prev *models.Document, capacityMax int) (err error) {
	if doc == nil || prev == nil {
		return fmt.Errorf("document and previous state are required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	switch {
	case doc.ContainerID != prev.ContainerID:
		if doc.ContainerID != "" {
			if err = reserveContainerTx(ctx, tx, doc.ContainerID, doc.Folios, capacityMax); err != nil {
				return err
			}
		}
		if prev.ContainerID != "" {
			if err = releaseContainerTx(ctx, tx, prev.ContainerID, prev.Folios); err != nil {
				return err
			}
		}
	case doc.ContainerID != "" && doc.Folios != prev.Folios:
		if err = reserveContainerTx(ctx, tx, doc.ContainerID, doc.Folios-prev.Folios, capacityMax); err != nil {
			return err
		}
	}

	if err = updateDocumentRowTx(ctx, tx, doc); err != nil {
		return err
	}

	if doc.ContainerID != "" {
		if err = autoCloseContainerTx(ctx, tx, doc.ContainerID, capacityMax); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// TrashDocument soft-deletes a document, releasing its folios from its
// container in the same transaction. Trashing a trashed document is a no-op.
func (s *Store) TrashDocument(ctx context.Context, id, actor string) (doc *models.Document, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	doc, err = getDocumentTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}
	if doc.Trashed {
		return doc, tx.Commit()
	}

	now := time.Now().UTC()
	doc.Trashed = true
	doc.TrashedAt = &now
	doc.TrashedBy = actor
	doc.UpdatedAt = now
	doc.UpdatedBy = actor

	_, err = tx.ExecContext(ctx, `
		UPDATE documents SET trashed = 1, trashed_at = ?, trashed_by = ?, updated_at = ?, updated_by = ?
		WHERE id = ?
	`, formatTime(now), nullIfEmpty(actor), formatTime(now), nullIfEmpty(actor), id)
	if err != nil {
		return nil, err
	}

	if doc.ContainerID != "" {
		if err = releaseContainerTx(ctx, tx, doc.ContainerID, doc.Folios); err != nil {
			return nil, err
		}
	}

	return doc, tx.Commit()
}

// RestoreDocument clears the trashed flag, re-reserving folios in the
// document's container under the same discipline as an increase. Restoring
// into a trashed container fails with ErrContainerTrashed; restoring into a
// container that filled up meanwhile fails with a CapacityError.
func (s *Store) RestoreDocument(ctx context.Context, id, actor string, capacityMax int) (doc *models.Document, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	doc, err = getDocumentTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}
	if !doc.Trashed {
		return doc, tx.Commit()
	}

	if doc.ContainerID != "" {
		var container *models.Container
		if container, err = getContainerTx(ctx, tx, doc.ContainerID); err != nil {
			return nil, err
		}
		if container == nil {
			err = ErrContainerNotFound
			return nil, err
		}
		if container.Trashed {
			err = ErrContainerTrashed
			return nil, err
		}
		if err = reserveContainerTx(ctx, tx, doc.ContainerID, doc.Folios, capacityMax); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	doc.Trashed = false
	doc.TrashedAt = nil
	doc.TrashedBy = ""
	doc.UpdatedAt = now
	doc.UpdatedBy = actor

	_, err = tx.ExecContext(ctx, `
		UPDATE documents SET trashed = 0, trashed_at = NULL, trashed_by = NULL, updated_at = ?, updated_by = ?
		WHERE id = ?
	`, formatTime(now), nullIfEmpty(actor), id)
	if err != nil {
		return nil, err
	}

	if doc.ContainerID != "" {
		if err = autoCloseContainerTx(ctx, tx, doc.ContainerID, capacityMax); err != nil {
			return nil, err
		}
	}

	return doc, tx.Commit()
}

// PurgeDocument removes the document row outright. An active (non-trashed)
// document first gets the same folio subtraction a trash would perform.
// The caller handles blob liveness before invoking this.
func (s *Store) PurgeDocument(ctx context.Context, id string) (doc *models.Document, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	doc, err = getDocumentTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}

	if !doc.Trashed && doc.ContainerID != "" {
		if err = releaseContainerTx(ctx, tx, doc.ContainerID, doc.Folios); err != nil {
			return nil, err
		}
	}

	if _, err = tx.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id); err != nil {
		return nil, err
	}

	return doc, tx.Commit()
}

// CountDocumentsByDigest counts documents referencing a blob digest,
// excluding one document id. Blob liveness is derived from this count;
// blobs carry no reference counter of their own.
func (s *Store) CountDocumentsByDigest(ctx context.Context, digest, excludeID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM documents WHERE blob_digest = ? AND id != ?", digest, excludeID,
	).Scan(&count)
	return count, err
}

// DigestReferenced reports whether any document references a blob digest.
func (s *Store) DigestReferenced(ctx context.Context, digest string) (bool, error) {
	return s.rowExists(ctx, "SELECT 1 FROM documents WHERE blob_digest = ? LIMIT 1", digest)
}

// IncrementQueryCount bumps the view counter and the last-query timestamp.
func (s *Store) IncrementQueryCount(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE documents SET query_count = query_count + 1, last_query_at = ? WHERE id = ?
	`, formatTime(time.Now().UTC()), id)
	return err
}

func insertDocumentTx(ctx context.Context, tx *sql.Tx, doc *models.Document) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO documents (
			id, name, subject, doc_date, folios, blob_digest, blob_key, blob_size, blob_mime,
			container_id, type_id, area_id, dest_area_id, state, trashed, trashed_at, trashed_by,
			query_count, last_query_at, created_at, created_by, updated_at, updated_by
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, NULL, NULL, 0, NULL, ?, ?, ?, ?)
	`,
		doc.ID,
		doc.Name,
		nullIfEmpty(doc.Subject),
		nullTime(doc.DocDate),
		doc.Folios,
		nullIfEmpty(doc.BlobDigest),
		nullIfEmpty(doc.BlobKey),
		nullInt64IfZero(doc.BlobSize),
		nullIfEmpty(doc.BlobMime),
		nullIfEmpty(doc.ContainerID),
		doc.TypeID,
		doc.AreaID,
		nullIfEmpty(doc.DestAreaID),
		string(doc.State),
		formatTime(doc.CreatedAt),
		nullIfEmpty(doc.CreatedBy),
		formatTime(doc.UpdatedAt),
		nullIfEmpty(doc.UpdatedBy),
	)
	return err
}

func updateDocumentRowTx(ctx context.Context, tx *sql.Tx, doc *models.Document) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE documents SET
			name = ?, subject = ?, doc_date = ?, folios = ?,
			blob_digest = ?, blob_key = ?, blob_size = ?, blob_mime = ?,
			container_id = ?, type_id = ?, area_id = ?, dest_area_id = ?,
			state = ?, updated_at = ?, updated_by = ?
		WHERE id = ?
	`,
		doc.Name,
		nullIfEmpty(doc.Subject),
		nullTime(doc.DocDate),
		doc.Folios,
		nullIfEmpty(doc.BlobDigest),
		nullIfEmpty(doc.BlobKey),
		nullInt64IfZero(doc.BlobSize),
		nullIfEmpty(doc.BlobMime),
		nullIfEmpty(doc.ContainerID),
		doc.TypeID,
		doc.AreaID,
		nullIfEmpty(doc.DestAreaID),
		string(doc.State),
		formatTime(doc.UpdatedAt),
		nullIfEmpty(doc.UpdatedBy),
		doc.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

func getDocumentTx(ctx context.Context, tx *sql.Tx, id string) (*models.Document, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	return scanDocument(row)
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var doc models.Document
	var subject, docDate, blobDigest, blobKey, blobMime sql.NullString
	var containerID, destAreaID, trashedAt, trashedBy, lastQueryAt sql.NullString
	var createdBy, updatedBy sql.NullString
	var blobSize sql.NullInt64
	var trashed int
	var state, createdAt, updatedAt string

	err := row.Scan(
		&doc.ID, &doc.Name, &subject, &docDate, &doc.Folios,
		&blobDigest, &blobKey, &blobSize, &blobMime,
		&containerID, &doc.TypeID, &doc.AreaID, &destAreaID,
		&state, &trashed, &trashedAt, &trashedBy,
		&doc.QueryCount, &lastQueryAt, &createdAt, &createdBy, &updatedAt, &updatedBy,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	doc.Subject = subject.String
	doc.BlobDigest = blobDigest.String
	doc.BlobKey = blobKey.String
	doc.BlobSize = blobSize.Int64
	doc.BlobMime = blobMime.String
	doc.ContainerID = containerID.String
	doc.DestAreaID = destAreaID.String
	doc.State = models.DocumentState(state)
	doc.Trashed = trashed != 0
	doc.TrashedBy = trashedBy.String
	doc.CreatedBy = createdBy.String
	doc.UpdatedBy = updatedBy.String

	if doc.DocDate, err = parseNullTime(docDate); err != nil {
		return nil, err
	}
	if doc.TrashedAt, err = parseNullTime(trashedAt); err != nil {
		return nil, err
	}
	if doc.LastQueryAt, err = parseNullTime(lastQueryAt); err != nil {
		return nil, err
	}
	if doc.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if doc.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &doc, nil
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullInt64IfZero(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}

func nullTime(value *time.Time) any {
	if value == nil || value.IsZero() {
		return nil
	}
	return formatTime(*value)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, value)
}

func parseNullTime(value sql.NullString) (*time.Time, error) {
	if !value.Valid || value.String == "" {
		return nil, nil
	}
	t, err := parseTime(value.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
