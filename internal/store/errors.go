package store

import (
	"errors"
	"fmt"
)

var (
	ErrDocumentNotFound  = errors.New("document not found")
	ErrContainerNotFound = errors.New("container not found")
	ErrContainerClosed   = errors.New("container is closed")
	ErrContainerTrashed  = errors.New("container is trashed")
)

// CapacityError reports a rejected folio reservation with the observed
// total at the moment of the atomic check.
type CapacityError struct {
	ContainerID string
	Current     int
	Max         int
	Delta       int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("container %s capacity exceeded: total %d + %d folios > max %d",
		e.ContainerID, e.Current, e.Delta, e.Max)
}

// IsCapacityError reports whether err is a capacity rejection.
func IsCapacityError(err error) bool {
	var capErr *CapacityError
	return errors.As(err, &capErr)
}
