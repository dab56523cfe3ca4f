package api

import "time"

// ErrorResponse is a generic JSON error wrapper.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// DocumentCreateRequest defines the metadata payload for registering a
// document. File content travels as a multipart part next to this payload.
type DocumentCreateRequest struct {
	Name        string     `json:"name"`
	Subject     *string    `json:"subject,omitempty"`
	DocDate     *time.Time `json:"doc_date,omitempty"`
	Folios      int        `json:"folios"`
	ContainerID *string    `json:"container_id,omitempty"`
	TypeID      string     `json:"type_id"`
	AreaID      string     `json:"area_id"`
	DestAreaID  *string    `json:"dest_area_id,omitempty"`
	State       *string    `json:"state,omitempty"`
}

// DocumentUpdateRequest defines the partial-update payload. Every field is
// optional; an explicit empty container_id clears the assignment.
type DocumentUpdateRequest struct {
	Name        *string    `json:"name,omitempty"`
	Subject     *string    `json:"subject,omitempty"`
	DocDate     *time.Time `json:"doc_date,omitempty"`
	Folios      *int       `json:"folios,omitempty"`
	ContainerID *string    `json:"container_id,omitempty"`
	TypeID      *string    `json:"type_id,omitempty"`
	AreaID      *string    `json:"area_id,omitempty"`
	DestAreaID  *string    `json:"dest_area_id,omitempty"`
	State       *string    `json:"state,omitempty"`
}

// ContainerCreateRequest defines the payload for creating an archivador.
type ContainerCreateRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	AreaID      string  `json:"area_id"`
	TypeID      string  `json:"type_id"`
	Location    *string `json:"location,omitempty"`
}

// ContainerUpdateRequest defines the administrative container edit payload.
type ContainerUpdateRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Location    *string `json:"location,omitempty"`
	State       *string `json:"state,omitempty"`
	Trashed     *bool   `json:"trashed,omitempty"`
}

// InfoResponse is the response from GET /v1/info.
type InfoResponse struct {
	SchemaVersion    int `json:"schema_version"`
	DocumentCount    int `json:"document_count"`
	TrashedDocuments int `json:"trashed_documents"`
	ContainerCount   int `json:"container_count"`
	CapacityMax      int `json:"capacity_max"`
}

// BlobGCRequest defines the payload for the admin blob sweep.
type BlobGCRequest struct {
	Apply bool `json:"apply"`
}
