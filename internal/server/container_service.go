package server

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"siged/internal/api"
	"siged/internal/models"
	"siged/internal/store"
)

// ContainerService covers the archivador ledger. Folio totals are owned by
// the store's reservation path; nothing here writes them.
type ContainerService struct {
	store *store.Store
}

func NewContainerService(st *store.Store) *ContainerService {
	return &ContainerService{store: st}
}

// Create opens a new empty container bound to an area and a document type.
func (c *ContainerService) Create(ctx context.Context, req api.ContainerCreateRequest) (*models.Container, error) {
	name, err := requireName(req.Name)
	if err != nil {
		return nil, err
	}
	areaID, err := requireCatalogID(req.AreaID, "area_id")
	if err != nil {
		return nil, err
	}
	typeID, err := requireCatalogID(req.TypeID, "type_id")
	if err != nil {
		return nil, err
	}

	ok, err := c.store.AreaExists(ctx, areaID)
	if err != nil {
		return nil, storeFailure(err)
	}
	if !ok {
		return nil, badRequestCode(fmt.Errorf("unknown area %s", areaID), ErrCodeAreaNotFound)
	}
	ok, err = c.store.DocumentTypeExists(ctx, typeID)
	if err != nil {
		return nil, storeFailure(err)
	}
	if !ok {
		return nil, badRequestCode(fmt.Errorf("unknown document type %s", typeID), ErrCodeTypeNotFound)
	}

	now := time.Now().UTC()
	container := &models.Container{
		ID:          uuid.NewString(),
		Name:        name,
		Description: valueOrEmpty(req.Description),
		AreaID:      areaID,
		TypeID:      typeID,
		Location:    valueOrEmpty(req.Location),
		State:       models.ContainerStateOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := c.store.CreateContainer(ctx, container); err != nil {
		return nil, storeFailure(err)
	}
	return container, nil
}

// Get returns a container or a not-found API error.
func (c *ContainerService) Get(ctx context.Context, id string) (*models.Container, error) {
	container, err := c.store.GetContainer(ctx, id)
	if err != nil {
		return nil, storeFailure(err)
	}
	if container == nil {
		return nil, notFoundCode(fmt.Errorf("container %s not found", id), ErrCodeContainerNotFound)
	}
	return container, nil
}

func (c *ContainerService) List(ctx context.Context, areaID string, includeTrashed bool) ([]models.Container, error) {
	containers, err := c.store.ListContainers(ctx, areaID, includeTrashed)
	if err != nil {
		return nil, storeFailure(err)
	}
	return containers, nil
}

// Update applies an administrative edit: metadata, an explicit state
// transition, or the trashed flag. State changes go through the transition
// table; reopening a container that auto-closed is a deliberate act.
func (c *ContainerService) Update(ctx context.Context, id string, req api.ContainerUpdateRequest) (*models.Container, error) {
	container, err := c.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if container.Name, err = requireName(*req.Name); err != nil {
			return nil, err
		}
	}
	if req.Description != nil {
		container.Description = valueOrEmpty(req.Description)
	}
	if req.Location != nil {
		container.Location = valueOrEmpty(req.Location)
	}
	if req.State != nil {
		target, err := normalizeContainerState(*req.State)
		if err != nil {
			return nil, err
		}
		if !models.CanTransition(container.State, target) {
			return nil, conflictCode(
				fmt.Errorf("container cannot move from %s to %s", container.State, target),
				ErrCodeInvalidTransition,
			)
		}
		container.State = target
	}
	if req.Trashed != nil {
		container.Trashed = *req.Trashed
	}

	if err := c.store.UpdateContainerMeta(ctx, container); err != nil {
		return nil, translateDomainError(err)
	}
	return container, nil
}
