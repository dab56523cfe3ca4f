package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"siged/internal/models"
)

// testStore creates a temporary store for testing.
func testStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	st, err := Open(path)
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// testCatalog seeds one area and one document type.
func testCatalog(t *testing.T, st *Store) (areaID, typeID string) {
	t.Helper()
	ctx := context.Background()
	areaID, err := st.UpsertArea(ctx, "Secretaría General")
	if err != nil {
		t.Fatalf("upsert area: %v", err)
	}
	typeID, err = st.UpsertDocumentType(ctx, "Oficio")
	if err != nil {
		t.Fatalf("upsert type: %v", err)
	}
	return areaID, typeID
}

func testContainer(t *testing.T, st *Store, areaID, typeID string) *models.Container {
	t.Helper()
	c := &models.Container{
		ID:     uuid.NewString(),
		Name:   "AR-" + uuid.NewString()[:8],
		AreaID: areaID,
		TypeID: typeID,
	}
	if err := st.CreateContainer(context.Background(), c); err != nil {
		t.Fatalf("create container: %v", err)
	}
	return c
}

func testDocument(areaID, typeID, containerID string, folios int) *models.Document {
	now := time.Now().UTC()
	return &models.Document{
		ID:          uuid.NewString(),
		Name:        "Oficio de prueba",
		Folios:      folios,
		ContainerID: containerID,
		TypeID:      typeID,
		AreaID:      areaID,
		State:       models.DocumentStateRegistered,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestOpenAppliesMigrations(t *testing.T) {
	st := testStore(t)

	info, err := st.StoreInfo(context.Background())
	if err != nil {
		t.Fatalf("store info: %v", err)
	}
	if info.SchemaVersion < 1 {
		t.Fatalf("expected schema version >= 1, got %d", info.SchemaVersion)
	}
	if info.DocumentCount != 0 || info.ContainerCount != 0 {
		t.Fatalf("expected empty store, got %+v", info)
	}
}

func TestMigrationPlanOnFreshStore(t *testing.T) {
	st := testStore(t)

	plan, err := st.MigrationPlan()
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if plan.CurrentVersion != plan.AvailableVersion {
		t.Fatalf("fresh store should be fully migrated: %+v", plan)
	}
	if len(plan.Pending) != 0 {
		t.Fatalf("expected no pending migrations, got %d", len(plan.Pending))
	}
}

func TestCatalogUpsertIsIdempotent(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	first, err := st.UpsertArea(ctx, "Alcaldía")
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	second, err := st.UpsertArea(ctx, "Alcaldía")
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if first != second {
		t.Fatalf("upsert returned different ids: %s vs %s", first, second)
	}

	areas, err := st.ListAreas(ctx)
	if err != nil {
		t.Fatalf("list areas: %v", err)
	}
	if len(areas) != 1 {
		t.Fatalf("expected 1 area, got %d", len(areas))
	}

	exists, err := st.AreaExists(ctx, first)
	if err != nil || !exists {
		t.Fatalf("area should exist: exists=%v err=%v", exists, err)
	}
	exists, err = st.AreaExists(ctx, "missing")
	if err != nil || exists {
		t.Fatalf("missing area should not exist: exists=%v err=%v", exists, err)
	}
}
