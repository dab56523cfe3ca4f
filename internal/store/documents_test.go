package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"siged/internal/models"
)

const testCapacityMax = 500

func TestCreateAndGetDocument(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	areaID, typeID := testCatalog(t, st)

	doc := testDocument(areaID, typeID, "", 12)
	doc.Subject = "Solicitud de certificado"
	if err := st.CreateDocument(ctx, doc, testCapacityMax); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := st.GetDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("expected document, got nil")
	}
	if got.Folios != 12 || got.Subject != "Solicitud de certificado" {
		t.Fatalf("unexpected document: %+v", got)
	}
	if got.State != models.DocumentStateRegistered {
		t.Fatalf("expected registered state, got %s", got.State)
	}
	if got.Trashed || got.QueryCount != 0 {
		t.Fatalf("new document should be active with zero queries: %+v", got)
	}
}

func TestCreateDocumentAdjustsContainerTotal(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	areaID, typeID := testCatalog(t, st)
	c := testContainer(t, st, areaID, typeID)

	doc := testDocument(areaID, typeID, c.ID, 30)
	if err := st.CreateDocument(ctx, doc, testCapacityMax); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := st.GetContainer(ctx, c.ID)
	if err != nil {
		t.Fatalf("get container: %v", err)
	}
	if got.FolioTotal != 30 {
		t.Fatalf("expected total 30, got %d", got.FolioTotal)
	}

	sum, err := st.ContainerFolioSum(ctx, c.ID)
	if err != nil {
		t.Fatalf("folio sum: %v", err)
	}
	if sum != got.FolioTotal {
		t.Fatalf("invariant violated: total %d != sum %d", got.FolioTotal, sum)
	}
}

func TestCreateDocumentCapacityRollback(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	areaID, typeID := testCatalog(t, st)
	c := testContainer(t, st, areaID, typeID)

	if _, err := st.ReserveCapacity(ctx, c.ID, 495, testCapacityMax); err != nil {
		t.Fatalf("seed: %v", err)
	}

	doc := testDocument(areaID, typeID, c.ID, 10)
	err := st.CreateDocument(ctx, doc, testCapacityMax)
	if !IsCapacityError(err) {
		t.Fatalf("expected CapacityError, got %v", err)
	}

	// Rejected create must leave no row and no total change behind.
	got, err := st.GetDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatal("document row must not exist after rollback")
	}
	container, err := st.GetContainer(ctx, c.ID)
	if err != nil {
		t.Fatalf("get container: %v", err)
	}
	if container.FolioTotal != 495 {
		t.Fatalf("total must remain 495, got %d", container.FolioTotal)
	}
}

func TestCreateDocumentAutoCloses(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	areaID, typeID := testCatalog(t, st)
	c := testContainer(t, st, areaID, typeID)

	if _, err := st.ReserveCapacity(ctx, c.ID, 490, testCapacityMax); err != nil {
		t.Fatalf("seed: %v", err)
	}

	doc := testDocument(areaID, typeID, c.ID, 10)
	if err := st.CreateDocument(ctx, doc, testCapacityMax); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := st.GetContainer(ctx, c.ID)
	if err != nil {
		t.Fatalf("get container: %v", err)
	}
	if got.FolioTotal != 500 || got.State != models.ContainerStateClosed {
		t.Fatalf("expected 500/closed, got %d/%s", got.FolioTotal, got.State)
	}
}

func TestUpdateDocumentMoveBetweenContainers(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	areaID, typeID := testCatalog(t, st)
	src := testContainer(t, st, areaID, typeID)
	dst := testContainer(t, st, areaID, typeID)

	doc := testDocument(areaID, typeID, src.ID, 25)
	if err := st.CreateDocument(ctx, doc, testCapacityMax); err != nil {
		t.Fatalf("create: %v", err)
	}

	prev := *doc
	doc.ContainerID = dst.ID
	doc.UpdatedAt = time.Now().UTC()
	if err := st.UpdateDocument(ctx, doc, &prev, testCapacityMax); err != nil {
		t.Fatalf("update: %v", err)
	}

	srcAfter, _ := st.GetContainer(ctx, src.ID)
	dstAfter, _ := st.GetContainer(ctx, dst.ID)
	if srcAfter.FolioTotal != 0 {
		t.Fatalf("source total should be 0, got %d", srcAfter.FolioTotal)
	}
	if dstAfter.FolioTotal != 25 {
		t.Fatalf("target total should be 25, got %d", dstAfter.FolioTotal)
	}
}

func TestUpdateDocumentFolioDelta(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	areaID, typeID := testCatalog(t, st)
	c := testContainer(t, st, areaID, typeID)

	doc := testDocument(areaID, typeID, c.ID, 20)
	if err := st.CreateDocument(ctx, doc, testCapacityMax); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Increase applies the delta only.
	prev := *doc
	doc.Folios = 35
	if err := st.UpdateDocument(ctx, doc, &prev, testCapacityMax); err != nil {
		t.Fatalf("increase: %v", err)
	}
	after, _ := st.GetContainer(ctx, c.ID)
	if after.FolioTotal != 35 {
		t.Fatalf("expected total 35, got %d", after.FolioTotal)
	}

	// Decrease is unconditional.
	prev = *doc
	doc.Folios = 5
	if err := st.UpdateDocument(ctx, doc, &prev, testCapacityMax); err != nil {
		t.Fatalf("decrease: %v", err)
	}
	after, _ = st.GetContainer(ctx, c.ID)
	if after.FolioTotal != 5 {
		t.Fatalf("expected total 5, got %d", after.FolioTotal)
	}
}

func TestUpdateDocumentIncreaseRejectedOnClosed(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	areaID, typeID := testCatalog(t, st)
	c := testContainer(t, st, areaID, typeID)

	doc := testDocument(areaID, typeID, c.ID, testCapacityMax)
	if err := st.CreateDocument(ctx, doc, testCapacityMax); err != nil {
		t.Fatalf("create: %v", err)
	}
	container, _ := st.GetContainer(ctx, c.ID)
	if container.State != models.ContainerStateClosed {
		t.Fatalf("container should have auto-closed, got %s", container.State)
	}

	prev := *doc
	doc.Folios = testCapacityMax + 1
	err := st.UpdateDocument(ctx, doc, &prev, testCapacityMax)
	if !errors.Is(err, ErrContainerClosed) {
		t.Fatalf("expected ErrContainerClosed, got %v", err)
	}

	// A decrease on a closed container is still allowed.
	prev = *doc
	prev.Folios = testCapacityMax
	doc.Folios = 100
	if err := st.UpdateDocument(ctx, doc, &prev, testCapacityMax); err != nil {
		t.Fatalf("decrease on closed container: %v", err)
	}
}

func TestTrashReleasesAndRestoreReclaims(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	areaID, typeID := testCatalog(t, st)
	c := testContainer(t, st, areaID, typeID)

	doc := testDocument(areaID, typeID, c.ID, 50)
	if err := st.CreateDocument(ctx, doc, testCapacityMax); err != nil {
		t.Fatalf("create: %v", err)
	}

	trashed, err := st.TrashDocument(ctx, doc.ID, "jperez")
	if err != nil {
		t.Fatalf("trash: %v", err)
	}
	if !trashed.Trashed || trashed.TrashedBy != "jperez" || trashed.TrashedAt == nil {
		t.Fatalf("unexpected trashed document: %+v", trashed)
	}
	container, _ := st.GetContainer(ctx, c.ID)
	if container.FolioTotal != 0 {
		t.Fatalf("trash should release folios, total %d", container.FolioTotal)
	}

	restored, err := st.RestoreDocument(ctx, doc.ID, "jperez", testCapacityMax)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored.Trashed || restored.TrashedAt != nil {
		t.Fatalf("restore should clear trash fields: %+v", restored)
	}
	container, _ = st.GetContainer(ctx, c.ID)
	if container.FolioTotal != 50 {
		t.Fatalf("restore should re-add folios, total %d", container.FolioTotal)
	}

	sum, _ := st.ContainerFolioSum(ctx, c.ID)
	if sum != container.FolioTotal {
		t.Fatalf("invariant violated: total %d != sum %d", container.FolioTotal, sum)
	}
}

func TestRestoreFailsWhenContainerFilledUp(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	areaID, typeID := testCatalog(t, st)
	c := testContainer(t, st, areaID, typeID)

	doc := testDocument(areaID, typeID, c.ID, 50)
	if err := st.CreateDocument(ctx, doc, testCapacityMax); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := st.TrashDocument(ctx, doc.ID, "actor"); err != nil {
		t.Fatalf("trash: %v", err)
	}

	// Fill the freed space while the document sits in the trash.
	if _, err := st.ReserveCapacity(ctx, c.ID, 460, testCapacityMax); err != nil {
		t.Fatalf("fill: %v", err)
	}

	_, err := st.RestoreDocument(ctx, doc.ID, "actor", testCapacityMax)
	if !IsCapacityError(err) {
		t.Fatalf("expected CapacityError, got %v", err)
	}

	// The document stays trashed after the failed restore.
	got, _ := st.GetDocument(ctx, doc.ID)
	if !got.Trashed {
		t.Fatal("document should remain trashed after failed restore")
	}
}

func TestRestoreIntoTrashedContainer(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	areaID, typeID := testCatalog(t, st)
	c := testContainer(t, st, areaID, typeID)

	doc := testDocument(areaID, typeID, c.ID, 10)
	if err := st.CreateDocument(ctx, doc, testCapacityMax); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := st.TrashDocument(ctx, doc.ID, "actor"); err != nil {
		t.Fatalf("trash: %v", err)
	}

	c.Trashed = true
	if err := st.UpdateContainerMeta(ctx, c); err != nil {
		t.Fatalf("trash container: %v", err)
	}

	if _, err := st.RestoreDocument(ctx, doc.ID, "actor", testCapacityMax); !errors.Is(err, ErrContainerTrashed) {
		t.Fatalf("expected ErrContainerTrashed, got %v", err)
	}
	got, _ := st.GetDocument(ctx, doc.ID)
	if !got.Trashed {
		t.Fatal("document trashed flag must be unchanged")
	}
}

func TestPurgeActiveDocumentSubtractsFirst(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	areaID, typeID := testCatalog(t, st)
	c := testContainer(t, st, areaID, typeID)

	doc := testDocument(areaID, typeID, c.ID, 40)
	if err := st.CreateDocument(ctx, doc, testCapacityMax); err != nil {
		t.Fatalf("create: %v", err)
	}

	purged, err := st.PurgeDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if purged.ID != doc.ID {
		t.Fatalf("unexpected purged document: %+v", purged)
	}

	got, _ := st.GetDocument(ctx, doc.ID)
	if got != nil {
		t.Fatal("document row should be gone")
	}
	container, _ := st.GetContainer(ctx, c.ID)
	if container.FolioTotal != 0 {
		t.Fatalf("active purge must subtract folios, total %d", container.FolioTotal)
	}
}

func TestPurgeTrashedDocumentDoesNotTouchTotal(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	areaID, typeID := testCatalog(t, st)
	c := testContainer(t, st, areaID, typeID)

	keeper := testDocument(areaID, typeID, c.ID, 100)
	if err := st.CreateDocument(ctx, keeper, testCapacityMax); err != nil {
		t.Fatalf("create keeper: %v", err)
	}
	doc := testDocument(areaID, typeID, c.ID, 40)
	if err := st.CreateDocument(ctx, doc, testCapacityMax); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := st.TrashDocument(ctx, doc.ID, "actor"); err != nil {
		t.Fatalf("trash: %v", err)
	}

	if _, err := st.PurgeDocument(ctx, doc.ID); err != nil {
		t.Fatalf("purge: %v", err)
	}
	container, _ := st.GetContainer(ctx, c.ID)
	if container.FolioTotal != 100 {
		t.Fatalf("purge of trashed doc must not change total, got %d", container.FolioTotal)
	}
}

func TestCountDocumentsByDigest(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	areaID, typeID := testCatalog(t, st)

	digest := "aabbccdd"
	a := testDocument(areaID, typeID, "", 1)
	a.BlobDigest = digest
	a.BlobKey = "aa/aabbccdd.pdf"
	b := testDocument(areaID, typeID, "", 1)
	b.BlobDigest = digest
	b.BlobKey = "aa/aabbccdd.pdf"
	for _, doc := range []*models.Document{a, b} {
		if err := st.CreateDocument(ctx, doc, testCapacityMax); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	count, err := st.CountDocumentsByDigest(ctx, digest, a.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 other reference, got %d", count)
	}

	referenced, err := st.DigestReferenced(ctx, digest)
	if err != nil || !referenced {
		t.Fatalf("digest should be referenced: %v %v", referenced, err)
	}
	referenced, err = st.DigestReferenced(ctx, "unknown")
	if err != nil || referenced {
		t.Fatalf("unknown digest should not be referenced: %v %v", referenced, err)
	}
}

func TestIncrementQueryCount(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	areaID, typeID := testCatalog(t, st)

	doc := testDocument(areaID, typeID, "", 1)
	if err := st.CreateDocument(ctx, doc, testCapacityMax); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := st.IncrementQueryCount(ctx, doc.ID); err != nil {
		t.Fatalf("increment: %v", err)
	}
	if err := st.IncrementQueryCount(ctx, doc.ID); err != nil {
		t.Fatalf("increment: %v", err)
	}

	got, _ := st.GetDocument(ctx, doc.ID)
	if got.QueryCount != 2 {
		t.Fatalf("expected query_count 2, got %d", got.QueryCount)
	}
	if got.LastQueryAt == nil {
		t.Fatal("expected last_query_at")
	}
}

// Interleaved concurrent mutations must keep Container.total equal to the
// folio sum of its non-trashed documents.
func TestInvariantUnderConcurrentMutations(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	areaID, typeID := testCatalog(t, st)
	c := testContainer(t, st, areaID, typeID)

	const workers = 6
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			doc := testDocument(areaID, typeID, c.ID, 3)
			if err := st.CreateDocument(context.Background(), doc, testCapacityMax); err != nil {
				return
			}
			if _, err := st.TrashDocument(context.Background(), doc.ID, "w"); err != nil {
				return
			}
			_, _ = st.RestoreDocument(context.Background(), doc.ID, "w", testCapacityMax)
		}()
	}
	wg.Wait()

	container, err := st.GetContainer(ctx, c.ID)
	if err != nil {
		t.Fatalf("get container: %v", err)
	}
	sum, err := st.ContainerFolioSum(ctx, c.ID)
	if err != nil {
		t.Fatalf("folio sum: %v", err)
	}
	if container.FolioTotal != sum {
		t.Fatalf("invariant violated: total %d != sum %d", container.FolioTotal, sum)
	}
}
