package models

import (
	"fmt"
	"strings"
	"time"
)

// DocumentState describes where a document sits in its processing lifecycle.
type DocumentState string

const (
	DocumentStateRegistered DocumentState = "registered"
	DocumentStateInProcess  DocumentState = "in_process"
	DocumentStateArchived   DocumentState = "archived"
	DocumentStateLoaned     DocumentState = "loaned"
)

var validDocumentStates = map[DocumentState]struct{}{
	DocumentStateRegistered: {},
	DocumentStateInProcess:  {},
	DocumentStateArchived:   {},
	DocumentStateLoaned:     {},
}

// Document is a registered record, optionally backed by a stored blob and
// optionally assigned to a container.
type Document struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Subject     string        `json:"subject,omitempty"`
	DocDate     *time.Time    `json:"doc_date,omitempty"`
	Folios      int           `json:"folios"`
	BlobDigest  string        `json:"blob_digest,omitempty"`
	BlobKey     string        `json:"blob_key,omitempty"`
	BlobSize    int64         `json:"blob_size,omitempty"`
	BlobMime    string        `json:"blob_mime,omitempty"`
	ContainerID string        `json:"container_id,omitempty"`
	TypeID      string        `json:"type_id"`
	AreaID      string        `json:"area_id"`
	DestAreaID  string        `json:"dest_area_id,omitempty"`
	State       DocumentState `json:"state"`
	Trashed     bool          `json:"trashed"`
	TrashedAt   *time.Time    `json:"trashed_at,omitempty"`
	TrashedBy   string        `json:"trashed_by,omitempty"`
	QueryCount  int           `json:"query_count"`
	LastQueryAt *time.Time    `json:"last_query_at,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	CreatedBy   string        `json:"created_by,omitempty"`
	UpdatedAt   time.Time     `json:"updated_at"`
	UpdatedBy   string        `json:"updated_by,omitempty"`
}

// HasBlob reports whether the document carries stored file content.
func (d *Document) HasBlob() bool {
	return d != nil && d.BlobDigest != ""
}

func ParseDocumentState(raw string) (DocumentState, error) {
	value := DocumentState(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return "", fmt.Errorf("document state is required")
	}
	if _, ok := validDocumentStates[value]; !ok {
		return "", fmt.Errorf("invalid document state: %s", value)
	}
	return value, nil
}
