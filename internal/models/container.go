package models

import (
	"fmt"
	"strings"
	"time"
)

// ContainerState is the archivador lifecycle state. Open containers accept
// documents; Closed containers reject any folio increase; InCustody marks
// containers handed over to physical custody.
type ContainerState string

const (
	ContainerStateOpen      ContainerState = "open"
	ContainerStateClosed    ContainerState = "closed"
	ContainerStateInCustody ContainerState = "in_custody"
)

var validContainerStates = map[ContainerState]struct{}{
	ContainerStateOpen:      {},
	ContainerStateClosed:    {},
	ContainerStateInCustody: {},
}

// Container is a capacity-bounded grouping of documents with an owning
// area and an accepted document type. FolioTotal must always equal the sum
// of folios over its non-trashed documents.
type Container struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	AreaID      string         `json:"area_id"`
	TypeID      string         `json:"type_id"`
	FolioTotal  int            `json:"folio_total"`
	Location    string         `json:"location,omitempty"`
	State       ContainerState `json:"state"`
	Trashed     bool           `json:"trashed"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func ParseContainerState(raw string) (ContainerState, error) {
	value := ContainerState(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return "", fmt.Errorf("container state is required")
	}
	if _, ok := validContainerStates[value]; !ok {
		return "", fmt.Errorf("invalid container state: %s", value)
	}
	return value, nil
}

// CanTransition reports whether an explicit administrative edit may move a
// container from one state to another. The automatic Open -> Closed
// transition on reaching capacity is handled by the store, not here.
func CanTransition(from, to ContainerState) bool {
	if from == to {
		return true
	}
	switch from {
	case ContainerStateOpen:
		return to == ContainerStateInCustody || to == ContainerStateClosed
	case ContainerStateClosed:
		return to == ContainerStateOpen || to == ContainerStateInCustody
	case ContainerStateInCustody:
		return false
	}
	return false
}
