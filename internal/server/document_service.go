package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"siged/internal/api"
	"siged/internal/blobstore"
	"siged/internal/models"
	"siged/internal/store"
)

// DocumentService implements the registry workflow: metadata validation,
// catalog and assignment checks, blob ingest, and the trash lifecycle.
// Capacity accounting itself lives in the store so that it commits in the
// same transaction as the document row.
type DocumentService struct {
	store       *store.Store
	blobs       *blobstore.Local
	capacityMax int
}

func NewDocumentService(st *store.Store, blobs *blobstore.Local, capacityMax int) *DocumentService {
	return &DocumentService{store: st, blobs: blobs, capacityMax: capacityMax}
}

// Create registers a document. When content is non-nil the file is ingested
// into the blobstore before the registry transaction; if that transaction
// then fails, the blob stays behind as an unreferenced orphan until the
// next sweep, which is cheaper than holding the database open across IO.
func (d *DocumentService) Create(ctx context.Context, req api.DocumentCreateRequest, content io.Reader, filename, actor string) (*models.Document, error) {
	name, err := requireName(req.Name)
	if err != nil {
		return nil, err
	}
	if err := requireFolios(req.Folios); err != nil {
		return nil, err
	}

	typeID, err := requireCatalogID(req.TypeID, "type_id")
	if err != nil {
		return nil, err
	}
	areaID, err := requireCatalogID(req.AreaID, "area_id")
	if err != nil {
		return nil, err
	}
	destAreaID, err := optionalCatalogID(req.DestAreaID, "dest_area_id")
	if err != nil {
		return nil, err
	}
	if err := d.checkCatalog(ctx, areaID, typeID, destAreaID); err != nil {
		return nil, err
	}

	state := models.DocumentStateRegistered
	if raw := valueOrEmpty(req.State); raw != "" {
		if state, err = normalizeDocumentState(raw); err != nil {
			return nil, err
		}
	}

	containerID, err := optionalCatalogID(req.ContainerID, "container_id")
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	doc := &models.Document{
		ID:          uuid.NewString(),
		Name:        name,
		Subject:     valueOrEmpty(req.Subject),
		DocDate:     req.DocDate,
		Folios:      req.Folios,
		ContainerID: containerID,
		TypeID:      typeID,
		AreaID:      areaID,
		DestAreaID:  destAreaID,
		State:       state,
		CreatedAt:   now,
		CreatedBy:   actor,
		UpdatedAt:   now,
		UpdatedBy:   actor,
	}

	if containerID != "" {
		if err := d.checkAssignment(ctx, doc, containerID); err != nil {
			return nil, err
		}
	}

	if content != nil {
		ref, err := d.blobs.Ingest(ctx, content, filename)
		if err != nil {
			return nil, storageFailure(err)
		}
		doc.BlobDigest = ref.Digest
		doc.BlobKey = ref.Key
		doc.BlobSize = ref.Size
		doc.BlobMime = ref.ContentType
	}

	if err := d.store.CreateDocument(ctx, doc, d.capacityMax); err != nil {
		return nil, translateDomainError(err)
	}
	return doc, nil
}

// Update applies a partial edit. Folio and container changes go through the
// store's reservation path so totals stay consistent; an explicit empty
// container_id removes the assignment. A non-nil content reader replaces the
// document's file: the new bytes are ingested exactly as in Create and the
// blob reference is swapped in the same row update.
func (d *DocumentService) Update(ctx context.Context, id string, req api.DocumentUpdateRequest, content io.Reader, filename, actor string) (*models.Document, error) {
	prev, err := d.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if prev.Trashed {
		return nil, conflictCode(fmt.Errorf("document %s is in the trash", id), ErrCodeConflict)
	}

	doc := *prev
	if req.Name != nil {
		if doc.Name, err = requireName(*req.Name); err != nil {
			return nil, err
		}
	}
	if req.Subject != nil {
		doc.Subject = valueOrEmpty(req.Subject)
	}
	if req.DocDate != nil {
		doc.DocDate = req.DocDate
	}
	if req.Folios != nil {
		if err := requireFolios(*req.Folios); err != nil {
			return nil, err
		}
		doc.Folios = *req.Folios
	}
	if req.TypeID != nil {
		if doc.TypeID, err = requireCatalogID(*req.TypeID, "type_id"); err != nil {
			return nil, err
		}
	}
	if req.AreaID != nil {
		if doc.AreaID, err = requireCatalogID(*req.AreaID, "area_id"); err != nil {
			return nil, err
		}
	}
	if req.DestAreaID != nil {
		if doc.DestAreaID, err = optionalCatalogID(req.DestAreaID, "dest_area_id"); err != nil {
			return nil, err
		}
	}
	if req.State != nil {
		if doc.State, err = normalizeDocumentState(*req.State); err != nil {
			return nil, err
		}
	}
	if req.ContainerID != nil {
		target := valueOrEmpty(req.ContainerID)
		if target == "" {
			doc.ContainerID = ""
		} else {
			if !validateID(target) {
				return nil, badRequestCode(fmt.Errorf("invalid container_id"), ErrCodeInvalidID)
			}
			doc.ContainerID = target
		}
	}

	if err := d.checkCatalog(ctx, doc.AreaID, doc.TypeID, doc.DestAreaID); err != nil {
		return nil, err
	}

	// Compatibility is checked whenever the document ends up assigned,
	// not only when the assignment itself changed: an area edit can break
	// an existing assignment just as well.
	if doc.ContainerID != "" {
		if err := d.checkAssignment(ctx, &doc, doc.ContainerID); err != nil {
			return nil, err
		}
	}

	if content != nil {
		ref, err := d.blobs.Ingest(ctx, content, filename)
		if err != nil {
			return nil, storageFailure(err)
		}
		// The previous blob stays on disk; the sweep reclaims it once no
		// document references its digest.
		doc.BlobDigest = ref.Digest
		doc.BlobKey = ref.Key
		doc.BlobSize = ref.Size
		doc.BlobMime = ref.ContentType
	}

	doc.UpdatedAt = time.Now().UTC()
	doc.UpdatedBy = actor

	if err := d.store.UpdateDocument(ctx, &doc, prev, d.capacityMax); err != nil {
		return nil, translateDomainError(err)
	}
	return &doc, nil
}

// Trash soft-deletes a document, freeing its folios.
func (d *DocumentService) Trash(ctx context.Context, id, actor string) (*models.Document, error) {
	doc, err := d.store.TrashDocument(ctx, id, actor)
	if err != nil {
		return nil, translateDomainError(err)
	}
	return doc, nil
}

// Restore moves a trashed document back, re-reserving its folios. The
// restore fails when the container filled up or was trashed in the interim;
// the latter reads as an assignment problem because the remedy is to restore
// the container first.
func (d *DocumentService) Restore(ctx context.Context, id, actor string) (*models.Document, error) {
	doc, err := d.store.RestoreDocument(ctx, id, actor, d.capacityMax)
	if err != nil {
		if errors.Is(err, store.ErrContainerTrashed) {
			return nil, conflictCode(
				fmt.Errorf("document %s cannot return to a trashed container; restore the container first", id),
				ErrCodeInvalidAssignment,
			)
		}
		return nil, translateDomainError(err)
	}
	return doc, nil
}

// Purge permanently deletes a document row and then removes its blob
// unless another document still shares the same content.
func (d *DocumentService) Purge(ctx context.Context, id string) error {
	doc, err := d.store.PurgeDocument(ctx, id)
	if err != nil {
		return translateDomainError(err)
	}
	if !doc.HasBlob() {
		return nil
	}

	referenced, err := d.store.DigestReferenced(ctx, doc.BlobDigest)
	if err != nil {
		return storeFailure(err)
	}
	ref := blobstore.Ref{Digest: doc.BlobDigest, Key: doc.BlobKey, Size: doc.BlobSize, ContentType: doc.BlobMime}
	if err := d.blobs.Purge(ctx, ref, referenced); err != nil {
		return storageFailure(err)
	}
	return nil
}

// Get returns a document or a not-found API error.
func (d *DocumentService) Get(ctx context.Context, id string) (*models.Document, error) {
	doc, err := d.store.GetDocument(ctx, id)
	if err != nil {
		return nil, storeFailure(err)
	}
	if doc == nil {
		return nil, notFoundCode(fmt.Errorf("document %s not found", id), ErrCodeDocumentNotFound)
	}
	return doc, nil
}

func (d *DocumentService) List(ctx context.Context, filter store.DocumentFilter) ([]models.Document, error) {
	docs, err := d.store.ListDocuments(ctx, filter)
	if err != nil {
		return nil, storeFailure(err)
	}
	return docs, nil
}

func (d *DocumentService) checkCatalog(ctx context.Context, areaID, typeID, destAreaID string) error {
	ok, err := d.store.AreaExists(ctx, areaID)
	if err != nil {
		return storeFailure(err)
	}
	if !ok {
		return badRequestCode(fmt.Errorf("unknown area %s", areaID), ErrCodeAreaNotFound)
	}

	ok, err = d.store.DocumentTypeExists(ctx, typeID)
	if err != nil {
		return storeFailure(err)
	}
	if !ok {
		return badRequestCode(fmt.Errorf("unknown document type %s", typeID), ErrCodeTypeNotFound)
	}

	if destAreaID != "" {
		ok, err = d.store.AreaExists(ctx, destAreaID)
		if err != nil {
			return storeFailure(err)
		}
		if !ok {
			return badRequestCode(fmt.Errorf("unknown destination area %s", destAreaID), ErrCodeAreaNotFound)
		}
	}
	return nil
}

// checkAssignment verifies a container accepts the document: it must exist,
// not be trashed, and share the document's area and type. Capacity and the
// closed state are left to the store's reservation, which is the only place
// that can decide them atomically.
func (d *DocumentService) checkAssignment(ctx context.Context, doc *models.Document, containerID string) error {
	container, err := d.store.GetContainer(ctx, containerID)
	if err != nil {
		return storeFailure(err)
	}
	if container == nil {
		return notFoundCode(fmt.Errorf("container %s not found", containerID), ErrCodeContainerNotFound)
	}
	if container.Trashed {
		return conflictCode(fmt.Errorf("container %s is in the trash", containerID), ErrCodeContainerTrashed)
	}
	if container.AreaID != doc.AreaID || container.TypeID != doc.TypeID {
		return conflictCode(
			fmt.Errorf("container %s accepts area %s and type %s", containerID, container.AreaID, container.TypeID),
			ErrCodeInvalidAssignment,
		)
	}
	return nil
}
