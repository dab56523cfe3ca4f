package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"siged/internal/models"
)

const containerColumns = "id, name, description, area_id, type_id, folio_total, location, state, trashed, created_at, updated_at"

// CreateContainer inserts one container. New containers start Open with a
// zero folio total regardless of the supplied fields.
func (s *Store) CreateContainer(ctx context.Context, c *models.Container) error {
	if c == nil {
		return fmt.Errorf("container is required")
	}

	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = c.CreatedAt
	c.FolioTotal = 0
	c.State = models.ContainerStateOpen
	c.Trashed = false

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO containers (id, name, description, area_id, type_id, folio_total, location, state, trashed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?, 0, ?, ?)
	`,
		c.ID,
		c.Name,
		nullIfEmpty(c.Description),
		c.AreaID,
		c.TypeID,
		nullIfEmpty(c.Location),
		string(c.State),
		formatTime(c.CreatedAt),
		formatTime(c.UpdatedAt),
	)
	return err
}

// GetContainer returns a container by id, or nil when absent.
func (s *Store) GetContainer(ctx context.Context, id string) (*models.Container, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+containerColumns+` FROM containers WHERE id = ?`, id)
	return scanContainer(row)
}

// ListContainers lists containers, optionally filtered by area.
func (s *Store) ListContainers(ctx context.Context, areaID string, includeTrashed bool) ([]models.Container, error) {
	query := `SELECT ` + containerColumns + ` FROM containers WHERE 1=1`
	args := []any{}
	if !includeTrashed {
		query += " AND trashed = 0"
	}
	if areaID != "" {
		query += " AND area_id = ?"
		args = append(args, areaID)
	}
	query += " ORDER BY name ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	containers := []models.Container{}
	for rows.Next() {
		c, err := scanContainer(rows)
		if err != nil {
			return nil, err
		}
		if c != nil {
			containers = append(containers, *c)
		}
	}
	return containers, rows.Err()
}

// UpdateContainerMeta updates name, description, location, state, and the
// trashed flag. Folio totals are never written through this path.
func (s *Store) UpdateContainerMeta(ctx context.Context, c *models.Container) error {
	if c == nil {
		return fmt.Errorf("container is required")
	}
	c.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE containers
		SET name = ?, description = ?, location = ?, state = ?, trashed = ?, updated_at = ?
		WHERE id = ?
	`,
		c.Name,
		nullIfEmpty(c.Description),
		nullIfEmpty(c.Location),
		string(c.State),
		boolToInt(c.Trashed),
		formatTime(c.UpdatedAt),
		c.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrContainerNotFound
	}
	return nil
}

// ReserveCapacity atomically adds delta folios to a container total,
// failing when the container is closed or the new total would exceed max.
// It is the standalone form of the reservation every document mutation
// performs inside its own transaction.
func (s *Store) ReserveCapacity(ctx context.Context, id string, delta, max int) (newTotal int, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = reserveContainerTx(ctx, tx, id, delta, max); err != nil {
		return 0, err
	}
	if err = autoCloseContainerTx(ctx, tx, id, max); err != nil {
		return 0, err
	}
	if newTotal, err = containerTotalTx(ctx, tx, id); err != nil {
		return 0, err
	}
	return newTotal, tx.Commit()
}

// ReleaseCapacity atomically subtracts delta folios from a container total.
func (s *Store) ReleaseCapacity(ctx context.Context, id string, delta int) (newTotal int, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = releaseContainerTx(ctx, tx, id, delta); err != nil {
		return 0, err
	}
	if newTotal, err = containerTotalTx(ctx, tx, id); err != nil {
		return 0, err
	}
	return newTotal, tx.Commit()
}

// ContainerFolioSum recomputes the folio total from non-trashed documents.
// Used to verify the running-total invariant.
func (s *Store) ContainerFolioSum(ctx context.Context, id string) (int, error) {
	var sum int
	err := s.db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(folios), 0) FROM documents WHERE container_id = ? AND trashed = 0", id,
	).Scan(&sum)
	return sum, err
}

// reserveContainerTx is the atomic check-and-increment at the core of the
// capacity invariant: the guard rides in the UPDATE's WHERE clause, so two
// concurrent reservations can never both observe room and both commit.
func reserveContainerTx(ctx context.Context, tx *sql.Tx, id string, delta, max int) error {
	if delta <= 0 {
		return releaseContainerTx(ctx, tx, id, -delta)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE containers
		SET folio_total = folio_total + ?, updated_at = ?
		WHERE id = ? AND trashed = 0 AND state != 'closed' AND folio_total + ? <= ?
	`, delta, formatTime(time.Now().UTC()), id, delta, max)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	// Classify the rejection.
	var total int
	var state string
	var trashed int
	err = tx.QueryRowContext(ctx, "SELECT folio_total, state, trashed FROM containers WHERE id = ?", id).
		Scan(&total, &state, &trashed)
	if err == sql.ErrNoRows {
		return ErrContainerNotFound
	}
	if err != nil {
		return err
	}
	if trashed != 0 {
		return ErrContainerTrashed
	}
	if state == string(models.ContainerStateClosed) {
		return ErrContainerClosed
	}
	return &CapacityError{ContainerID: id, Current: total, Max: max, Delta: delta}
}

func releaseContainerTx(ctx context.Context, tx *sql.Tx, id string, delta int) error {
	if delta == 0 {
		return nil
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE containers SET folio_total = folio_total - ?, updated_at = ? WHERE id = ?
	`, delta, formatTime(time.Now().UTC()), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrContainerNotFound
	}
	return nil
}

// autoCloseContainerTx flips an Open container to Closed once its total
// reaches max. Nothing ever reopens an auto-closed container except an
// explicit administrative edit.
func autoCloseContainerTx(ctx context.Context, tx *sql.Tx, id string, max int) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE containers SET state = 'closed', updated_at = ?
		WHERE id = ? AND state = 'open' AND folio_total >= ?
	`, formatTime(time.Now().UTC()), id, max)
	return err
}

func containerTotalTx(ctx context.Context, tx *sql.Tx, id string) (int, error) {
	var total int
	err := tx.QueryRowContext(ctx, "SELECT folio_total FROM containers WHERE id = ?", id).Scan(&total)
	if err == sql.ErrNoRows {
		return 0, ErrContainerNotFound
	}
	return total, err
}

func getContainerTx(ctx context.Context, tx *sql.Tx, id string) (*models.Container, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+containerColumns+` FROM containers WHERE id = ?`, id)
	return scanContainer(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContainer(row rowScanner) (*models.Container, error) {
	var c models.Container
	var description, location sql.NullString
	var trashed int
	var state, createdAt, updatedAt string

	err := row.Scan(&c.ID, &c.Name, &description, &c.AreaID, &c.TypeID, &c.FolioTotal,
		&location, &state, &trashed, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	c.Description = description.String
	c.Location = location.String
	c.State = models.ContainerState(state)
	c.Trashed = trashed != 0
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
