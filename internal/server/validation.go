package server

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"siged/internal/models"
)

const maxNameLength = 500

func validateID(id string) bool {
	if id == "" {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

func requireName(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", badRequestCode(fmt.Errorf("name is required"), ErrCodeMissingRequired)
	}
	if len(value) > maxNameLength {
		return "", badRequestCode(fmt.Errorf("name exceeds %d characters", maxNameLength), ErrCodeInvalidArgument)
	}
	return value, nil
}

func requireFolios(folios int) error {
	if folios <= 0 {
		return badRequestCode(fmt.Errorf("folios must be a positive integer"), ErrCodeInvalidFolios)
	}
	return nil
}

func requireCatalogID(value, field string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", badRequestCode(fmt.Errorf("%s is required", field), ErrCodeMissingRequired)
	}
	if !validateID(value) {
		return "", badRequestCode(fmt.Errorf("invalid %s", field), ErrCodeInvalidID)
	}
	return value, nil
}

func optionalCatalogID(ptr *string, field string) (string, error) {
	value := valueOrEmpty(ptr)
	if value == "" {
		return "", nil
	}
	if !validateID(value) {
		return "", badRequestCode(fmt.Errorf("invalid %s", field), ErrCodeInvalidID)
	}
	return value, nil
}

func normalizeDocumentState(value string) (models.DocumentState, error) {
	state, err := models.ParseDocumentState(value)
	if err != nil {
		return "", badRequestCode(err, ErrCodeInvalidState)
	}
	return state, nil
}

func normalizeContainerState(value string) (models.ContainerState, error) {
	state, err := models.ParseContainerState(value)
	if err != nil {
		return "", badRequestCode(err, ErrCodeInvalidState)
	}
	return state, nil
}
